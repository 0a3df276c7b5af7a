package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerLifecycle(t *testing.T) {
	tracker := NewProgressTracker()

	_, ok := tracker.Get(42)
	assert.False(t, ok, "unknown key means not started or already done")

	tracker.Set(42, StageSearching, 5)
	tracker.Set(42, StageReading, 30)
	p, ok := tracker.Get(42)
	assert.True(t, ok)
	assert.Equal(t, StageReading, p.Stage)
	assert.Equal(t, 30, p.Percent)

	tracker.Remove(42)
	_, ok = tracker.Get(42)
	assert.False(t, ok)

	// Removing twice is harmless.
	tracker.Remove(42)
}
