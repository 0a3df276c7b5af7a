package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTitleYear(t *testing.T) {
	rel := time.Date(2009, 5, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2009", (&Title{ReleaseDate: &rel}).Year())
	assert.Equal(t, "", (&Title{}).Year())
}

func TestDaysSinceRelease(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	past := now.AddDate(0, 0, -10)
	days, ok := (&Title{ReleaseDate: &past}).DaysSinceRelease(now)
	assert.True(t, ok)
	assert.Equal(t, 10, days)

	future := now.AddDate(0, 0, 14)
	days, ok = (&Title{ReleaseDate: &future}).DaysSinceRelease(now)
	assert.True(t, ok)
	assert.Negative(t, days)

	_, ok = (&Title{}).DaysSinceRelease(now)
	assert.False(t, ok)
}
