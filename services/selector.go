package services

import (
	"strings"

	"worth-watch/providers"
)

// Source categories. The quota per category trades relevance rank for
// viewpoint diversity: a verdict built only from critic sites misses the
// community consensus and vice versa.
const (
	categoryCritic     = "critic"
	categoryReddit     = "reddit"
	categoryUserReview = "userreview"
	categoryOther      = "other"
)

var criticDomains = []string{
	"rogerebert.com", "variety.com", "hollywoodreporter.com", "indiewire.com",
	"theguardian.com", "nytimes.com", "empireonline.com", "slashfilm.com",
	"collider.com", "screenrant.com", "avclub.com", "vulture.com",
	"polygon.com", "ign.com", "denofgeek.com", "pastemagazine.com",
	"rollingstone.com", "theatlantic.com", "vox.com", "time.com",
}

var userReviewDomains = []string{
	"letterboxd.com", "commonsensemedia.org", "trakt.tv",
}

// Selection is the retriever's work order: a bounded primary fetch list plus
// a non-community backfill list used only when the primary under-delivers.
type Selection struct {
	Primary  []providers.SearchResult
	Backfill []providers.SearchResult
}

const (
	quotaCritic     = 5
	quotaReddit     = 5
	quotaUserReview = 2
	quotaOther      = 3
	maxBackfill     = 6
)

// Categorize maps a result link to its source category.
func Categorize(link string) string {
	l := strings.ToLower(link)
	if strings.Contains(l, "reddit.com") {
		return categoryReddit
	}
	for _, d := range criticDomains {
		if strings.Contains(l, d) {
			return categoryCritic
		}
	}
	for _, d := range userReviewDomains {
		if strings.Contains(l, d) {
			return categoryUserReview
		}
	}
	return categoryOther
}

// SelectSources picks a diversified subset of at most maxSources URLs.
// Each category contributes up to its quota in original order; leftover
// budget is filled from the remaining results. Skipped non-community
// results become the backfill list.
func SelectSources(results []providers.SearchResult, maxSources int) Selection {
	quotas := map[string]int{
		categoryCritic:     quotaCritic,
		categoryReddit:     quotaReddit,
		categoryUserReview: quotaUserReview,
		categoryOther:      quotaOther,
	}

	var primary, leftovers []providers.SearchResult
	for _, r := range results {
		cat := Categorize(r.Link)
		if quotas[cat] > 0 && len(primary) < maxSources {
			quotas[cat]--
			primary = append(primary, r)
		} else {
			leftovers = append(leftovers, r)
		}
	}

	var backfill []providers.SearchResult
	for _, r := range leftovers {
		if len(primary) < maxSources {
			primary = append(primary, r)
			continue
		}
		if Categorize(r.Link) != categoryReddit && len(backfill) < maxBackfill {
			backfill = append(backfill, r)
		}
	}

	return Selection{Primary: primary, Backfill: backfill}
}
