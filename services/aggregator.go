package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"worth-watch/providers"
	"worth-watch/providers/omdb"
)

// Aggregator fans a title query out across all search providers in parallel
// and folds the branches into one deduplicated, relevance-filtered result
// list. The trusted-rating lookup rides along in the same fan-out.
type Aggregator struct {
	Providers []providers.SearchProvider
	Ratings   *omdb.Fetcher
	Logger    *zap.Logger
	Retry     RetryPolicy
}

// NewAggregator creates an aggregator over the given search providers.
func NewAggregator(sp []providers.SearchProvider, ratings *omdb.Fetcher, logger *zap.Logger) *Aggregator {
	return &Aggregator{Providers: sp, Ratings: ratings, Logger: logger, Retry: DefaultRetry}
}

// AggregateResult is the merged output of one fan-out.
type AggregateResult struct {
	Results []providers.SearchResult
	Scores  omdb.Scores
}

// minRelevantResults is the floor under which the relevance filter is
// considered over-aggressive and the unfiltered set is used instead.
const minRelevantResults = 5

// Search runs every provider branch concurrently. A failing branch is
// logged and contributes nothing; it never aborts its siblings. Results
// keep provider order (providers in construction order, hits in rank order).
func (a *Aggregator) Search(ctx context.Context, q providers.Query) (AggregateResult, error) {
	branches := make([][]providers.SearchResult, len(a.Providers))
	var scores omdb.Scores

	var wg sync.WaitGroup
	for i, p := range a.Providers {
		wg.Add(1)
		go func(i int, p providers.SearchProvider) {
			defer wg.Done()
			err := a.Retry.Do(ctx, a.Logger, p.Name(), func(ctx context.Context) error {
				results, err := p.Search(ctx, q)
				if err != nil {
					return err
				}
				branches[i] = results
				return nil
			})
			if err != nil {
				searchBranchFailures.WithLabelValues(p.Name()).Inc()
				a.Logger.Warn("Search branch failed",
					zap.String("provider", p.Name()),
					zap.String("title", q.Title),
					zap.Error(fmt.Errorf("%w: %v", ErrBranchFailed, err)))
			}
		}(i, p)
	}

	if a.Ratings != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.Retry.Do(ctx, a.Logger, "omdb", func(ctx context.Context) error {
				s, err := a.Ratings.ScoresByTitle(ctx, q.Title, q.Year, q.MediaType)
				if err != nil {
					return err
				}
				scores = s
				return nil
			})
			if err != nil {
				searchBranchFailures.WithLabelValues("omdb").Inc()
				a.Logger.Warn("Rating lookup failed", zap.String("title", q.Title),
					zap.Error(fmt.Errorf("%w: %v", ErrBranchFailed, err)))
			}
		}()
	}
	wg.Wait()

	var merged []providers.SearchResult
	for _, b := range branches {
		merged = append(merged, b...)
	}

	deduped := dedupeByLink(merged)
	filtered := filterRelevant(deduped, q.Title)
	if len(filtered) < minRelevantResults {
		// The filter starved the pipeline; a noisy set beats an empty one.
		a.Logger.Info("Relevance filter too aggressive, keeping unfiltered results",
			zap.String("title", q.Title),
			zap.Int("filtered", len(filtered)),
			zap.Int("unfiltered", len(deduped)))
		filtered = deduped
	}

	a.Logger.Info("Source aggregation done",
		zap.String("title", q.Title),
		zap.Int("raw", len(merged)),
		zap.Int("final", len(filtered)))
	return AggregateResult{Results: filtered, Scores: scores}, nil
}

// normalizeLink strips fragment and trailing slash so the same page found by
// two providers counts once.
func normalizeLink(link string) string {
	if i := strings.IndexByte(link, '#'); i >= 0 {
		link = link[:i]
	}
	return strings.TrimRight(link, "/")
}

func dedupeByLink(results []providers.SearchResult) []providers.SearchResult {
	seen := make(map[string]bool, len(results))
	out := make([]providers.SearchResult, 0, len(results))
	for _, r := range results {
		key := normalizeLink(strings.ToLower(r.Link))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// Conjunctions that turn a title match into a longer phrase. "Up" followed
// by "in" is "Up in the Air", not the Pixar film.
var phraseConjunctions = map[string]bool{
	"of": true, "and": true, "in": true, "the": true,
	"for": true, "with": true, "from": true,
}

var firstWord = regexp.MustCompile(`^[a-z0-9']+`)

// filterRelevant drops results whose headline and snippet never mention the
// title. Only short titles (three words or fewer) are checked; longer titles
// rarely collide with unrelated phrases.
func filterRelevant(results []providers.SearchResult, title string) []providers.SearchResult {
	if len(strings.Fields(title)) > 3 {
		return results
	}

	out := make([]providers.SearchResult, 0, len(results))
	for _, r := range results {
		if titleMentioned(title, r.Title) || titleMentioned(title, r.Snippet) {
			out = append(out, r)
		}
	}
	return out
}

// titleMentioned looks for the title as a standalone word-boundary phrase.
// A candidate match is rejected when a conjunction follows (longer phrase,
// "Up in the Air") or when it sits mid-phrase after another word without a
// strong signal like punctuation or "review" behind it ("Cover Up discussion").
func titleMentioned(title, text string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	h := strings.ToLower(text)
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(t) + `\b`)

	for _, loc := range re.FindAllStringIndex(h, -1) {
		if followedByConjunction(h[loc[1]:]) {
			continue
		}
		if atPhraseStart(h[:loc[0]]) || strongTrailer(h[loc[1]:]) {
			return true
		}
	}
	return false
}

// atPhraseStart reports whether everything before the match ends in a
// non-letter boundary (start of text, quote, colon, dash).
func atPhraseStart(prefix string) bool {
	prefix = strings.TrimRight(prefix, " ")
	if prefix == "" {
		return true
	}
	last := prefix[len(prefix)-1]
	return !(last >= 'a' && last <= 'z') && !(last >= '0' && last <= '9')
}

func followedByConjunction(rest string) bool {
	return phraseConjunctions[firstWord.FindString(strings.TrimLeft(rest, " "))]
}

// strongTrailer accepts matches followed by punctuation (a year in
// parentheses, a colon) or review language, or sitting at the end of text.
func strongTrailer(rest string) bool {
	rest = strings.TrimLeft(rest, " ")
	if rest == "" {
		return true
	}
	first := rest[0]
	if !(first >= 'a' && first <= 'z') && !(first >= '0' && first <= '9') {
		return true
	}
	w := firstWord.FindString(rest)
	return w == "review" || w == "reviews"
}
