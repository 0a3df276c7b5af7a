package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worth-watch/providers"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"https://www.reddit.com/r/movies/comments/abc", categoryReddit},
		{"https://variety.com/2024/film/reviews/dune", categoryCritic},
		{"https://letterboxd.com/film/dune-part-two", categoryUserReview},
		{"https://someblog.example/dune-thoughts", categoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.link), tt.link)
	}
}

func TestSelectSourcesQuotas(t *testing.T) {
	var results []providers.SearchResult
	add := func(n int, pattern string) {
		for i := 0; i < n; i++ {
			results = append(results, providers.SearchResult{Link: fmt.Sprintf(pattern, i)})
		}
	}
	add(8, "https://variety.com/review-%d")
	add(8, "https://www.reddit.com/r/movies/%d")
	add(4, "https://letterboxd.com/film/x-%d")
	add(6, "https://blog-%d.example/post")

	sel := SelectSources(results, 12)
	require.Len(t, sel.Primary, 12)

	counts := map[string]int{}
	for _, r := range sel.Primary {
		counts[Categorize(r.Link)]++
	}
	// Quota picks run first (5/5/2/3 capped at 12), leftovers fill nothing
	// here because the quotas already reach the budget.
	assert.Equal(t, 5, counts[categoryCritic])
	assert.Equal(t, 5, counts[categoryReddit])
	assert.Equal(t, 2, counts[categoryUserReview])
	assert.Equal(t, 0, counts[categoryOther])

	// Backfill never contains community links and stays bounded.
	assert.LessOrEqual(t, len(sel.Backfill), maxBackfill)
	for _, r := range sel.Backfill {
		assert.NotEqual(t, categoryReddit, Categorize(r.Link))
	}
}

func TestSelectSourcesFillsFromLeftovers(t *testing.T) {
	results := []providers.SearchResult{
		{Link: "https://variety.com/review-1"},
		{Link: "https://blog-1.example/post"},
		{Link: "https://blog-2.example/post"},
		{Link: "https://blog-3.example/post"},
		{Link: "https://blog-4.example/post"},
		{Link: "https://blog-5.example/post"},
	}
	sel := SelectSources(results, 12)
	// With quotas unmet, every result lands in the primary list.
	assert.Len(t, sel.Primary, 6)
	assert.Empty(t, sel.Backfill)
}
