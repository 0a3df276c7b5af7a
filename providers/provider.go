package providers

import "context"

// Query is one title lookup across the search backends. Extra carries
// optional disambiguating context (usually the director's name) for titles
// with common names.
type Query struct {
	Title     string
	Year      string
	MediaType string // "movie" or "tv"
	Extra     string
}

// SearchResult is one hit from a search provider, normalized across sources.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SearchProvider is implemented by every opinion-source search backend
// (web search, publisher APIs). Failures must be returned, not logged away;
// the aggregator decides how to isolate them.
type SearchProvider interface {
	// Search runs one provider-specific query and returns normalized results.
	Search(ctx context.Context, q Query) ([]SearchResult, error)

	// Name returns the unique provider name (e.g. "serper-critic").
	Name() string
}
