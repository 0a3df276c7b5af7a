package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"worth-watch/providers"
)

type stubProvider struct {
	name    string
	results []providers.SearchResult
	err     error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(ctx context.Context, q providers.Query) ([]providers.SearchResult, error) {
	return s.results, s.err
}

func result(title, link string) providers.SearchResult {
	return providers.SearchResult{Title: title, Link: link, Snippet: title}
}

func newTestAggregator(sp ...providers.SearchProvider) *Aggregator {
	agg := NewAggregator(sp, nil, zap.NewNop())
	agg.Retry = RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Timeout: time.Second}
	return agg
}

func TestTitleMentionedShortTitles(t *testing.T) {
	tests := []struct {
		title string
		text  string
		want  bool
	}{
		{"Up", "Up (2009) review", true},
		{"Up", "Up: a Pixar masterpiece", true},
		{"Up", "Up review roundup", true},
		{"Up", "Up in the Air", false},
		{"Up", "Cover Up discussion", false},
		{"Up", "What's Up with streaming prices", false},
		{"Heat", "Heat (1995) is still the best crime film", true},
		{"Heat", "The heat of summer releases", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, titleMentioned(tt.title, tt.text))
		})
	}
}

func TestFilterRelevantSkipsLongTitles(t *testing.T) {
	results := []providers.SearchResult{
		result("completely unrelated text", "https://a.example/1"),
	}
	// Four words and up are specific enough to skip the filter.
	assert.Len(t, filterRelevant(results, "Everything Everywhere All At Once"), 1)
	assert.Len(t, filterRelevant(results, "Up"), 0)
}

func TestNormalizeLink(t *testing.T) {
	assert.Equal(t, normalizeLink("https://a.example/review/"), normalizeLink("https://a.example/review#comments"))
	assert.Equal(t, "https://a.example/review", normalizeLink("https://a.example/review/"))
}

func TestDedupeByLink(t *testing.T) {
	results := []providers.SearchResult{
		result("first", "https://a.example/review/"),
		result("dupe by fragment", "https://a.example/review#top"),
		result("dupe by case", "https://A.example/review"),
		result("other", "https://b.example/review"),
	}
	deduped := dedupeByLink(results)
	require.Len(t, deduped, 2)
	assert.Equal(t, "first", deduped[0].Title)
}

func TestAggregatorIsolatesBranchFailures(t *testing.T) {
	agg := newTestAggregator(
		&stubProvider{name: "broken", err: errors.New("provider down")},
		&stubProvider{name: "working", results: []providers.SearchResult{
			result("Dune review", "https://a.example/dune-review"),
			result("Dune discussion", "https://b.example/dune"),
			result("Dune opinions", "https://c.example/dune"),
			result("Dune verdict", "https://d.example/dune"),
			result("Dune take", "https://e.example/dune"),
		}},
	)

	out, err := agg.Search(context.Background(), providers.Query{Title: "Dune", Year: "2021", MediaType: "movie"})
	require.NoError(t, err)
	assert.Len(t, out.Results, 5)
}

func TestAggregatorFallsBackWhenFilterStarves(t *testing.T) {
	// None of these mention "Up" acceptably, so strict filtering would leave
	// zero results; the unfiltered set must come back instead.
	agg := newTestAggregator(
		&stubProvider{name: "working", results: []providers.SearchResult{
			result("Up in the Air", "https://a.example/1"),
			result("Cover Up discussion", "https://b.example/2"),
			result("Seven Up retrospective", "https://c.example/3"),
		}},
	)

	out, err := agg.Search(context.Background(), providers.Query{Title: "Up", Year: "2009", MediaType: "movie"})
	require.NoError(t, err)
	assert.Len(t, out.Results, 3)
}
