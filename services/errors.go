package services

import "errors"

// Failure classes of the pipeline. Callers use these to tell "degraded but
// produced a result" apart from "produced nothing".
var (
	// ErrBranchFailed marks one search/fetch branch failing; the run continues.
	ErrBranchFailed = errors.New("source branch failed")

	// ErrNoSources means zero search results survived; the metadata-only
	// fallback path handles it.
	ErrNoSources = errors.New("no sources found")

	// ErrGenerationFailed means every generative provider failed, including
	// the knowledge-only variant.
	ErrGenerationFailed = errors.New("review generation failed")

	// ErrDuplicateTitle marks the first-insert race on a new title.
	ErrDuplicateTitle = errors.New("title already exists")
)
