package services

import "sync"

// Pipeline stages in order, with the percent reported at each transition.
const (
	StageSearching = "Searching for reviews..."
	StageReading   = "Gathering opinions..."
	StageAnalyzing = "Analyzing feedback..."
	StageWriting   = "Writing your verdict..."
)

// Progress is the per-title job state visible to polling clients.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// ProgressTracker holds ephemeral per-title pipeline status. Entries exist
// only while a run is in flight; a missing key means "not started" or
// "already done". The tracker keeps no history and loses everything on
// restart.
type ProgressTracker struct {
	mu   sync.RWMutex
	jobs map[uint]Progress
}

// NewProgressTracker creates an empty tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{jobs: make(map[uint]Progress)}
}

// Set records the current stage for a title's run.
func (t *ProgressTracker) Set(tmdbID uint, stage string, percent int) {
	t.mu.Lock()
	t.jobs[tmdbID] = Progress{Stage: stage, Percent: percent}
	t.mu.Unlock()
}

// Get returns the progress for a title and whether a run is in flight.
func (t *ProgressTracker) Get(tmdbID uint) (Progress, bool) {
	t.mu.RLock()
	p, ok := t.jobs[tmdbID]
	t.mu.RUnlock()
	return p, ok
}

// Remove deletes the entry on terminal success or failure.
func (t *ProgressTracker) Remove(tmdbID uint) {
	t.mu.Lock()
	delete(t.jobs, tmdbID)
	t.mu.Unlock()
}
