package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worth-watch/providers"
)

func TestExtractOpinionsKeywordTiers(t *testing.T) {
	paragraphs := []string{
		// Long paragraph with review vocabulary: kept.
		"The pacing drags in the middle act, but the performances are strong enough to carry it through, and the cinematography is frequently stunning to look at.",
		// Long paragraph with zero opinion vocabulary: dropped.
		"The film follows a retired detective who moves to a small coastal town after the events of the previous installment and meets a cast of locals there.",
		// Short line with only weak vocabulary: dropped.
		"The acting is fine and the plot moves along.",
		// Short line with a decisive word: kept.
		"An absolute masterpiece, start to finish.",
		// Synopsis marker discards regardless of opinion words.
		"Plot summary: a brilliant scientist builds an amazing machine and learns a terrible lesson.",
		// Too short to consider.
		"Loved it.",
	}

	got := extractOpinions(paragraphs)
	require.Len(t, got, 2)
	joined := strings.Join(got, "\n")
	assert.Contains(t, joined, "masterpiece")
	assert.Contains(t, joined, "pacing")
}

func TestExtractOpinionsCollapsesNearDuplicates(t *testing.T) {
	paragraphs := []string{
		"This movie was absolutely brilliant and worth every minute of the runtime",
		"This movie was absolutely brilliant and worth every minute of the runtime!!!",
		"A completely different take: boring, overlong and a waste of a great cast.",
	}

	got := extractOpinions(paragraphs)
	assert.Len(t, got, 2)
}

func TestExtractOpinionsLengthRatioPrefilter(t *testing.T) {
	short := "Brilliant and worth watching, a gripping experience."
	long := short + strings.Repeat(" The supporting cast is fantastic and the direction is brilliant throughout every scene.", 3)

	// Wildly different lengths skip the similarity comparison entirely.
	got := extractOpinions([]string{short, long})
	assert.Len(t, got, 2)
}

func TestBuildCorpusLabelsAndStats(t *testing.T) {
	docs := []FetchedDoc{
		{
			URL: "https://variety.com/review", Domain: "variety.com",
			Paragraphs: []string{"A gripping, beautifully shot film with fantastic performances across the board and confident direction."},
		},
		{
			URL: "https://old.reddit.com/r/movies/1", Domain: "reddit.com", IsReddit: true,
			Paragraphs: []string{"Honestly one of the best films this year, I loved every minute and would recommend it to anyone."},
		},
	}
	snippets := []providers.SearchResult{
		{Link: "https://reddit.com/r/television/2", Snippet: "Totally worth the watch, the finale absolutely sticks the landing."},
	}

	corpus := BuildCorpus(docs, snippets, 15000)

	assert.Equal(t, 1, corpus.ArticlesRead)
	assert.Equal(t, 2, corpus.RedditSources)
	assert.Len(t, corpus.SourceURLs, 3)
	assert.Contains(t, corpus.Text, "[variety.com]")
	assert.Contains(t, corpus.Text, "[reddit.com]")

	// Community content is ordered ahead of article content.
	assert.Less(t, strings.Index(corpus.Text, "worth the watch"), strings.Index(corpus.Text, "[variety.com]"))
}

func TestBuildCorpusReservesRedditBudget(t *testing.T) {
	filler := "The direction is brilliant and the pacing is fantastic, a gripping watch from start to finish. "
	var docs []FetchedDoc
	for i := 0; i < 40; i++ {
		docs = append(docs, FetchedDoc{
			URL: "https://critic.example/" + strings.Repeat("x", i+1), Domain: "critic.example",
			Paragraphs: []string{strings.Repeat(filler, 10)},
		})
	}
	snippets := []providers.SearchResult{
		{Link: "https://reddit.com/r/movies/1", Snippet: "Absolutely worth it, best thing I have watched all year."},
	}

	corpus := BuildCorpus(docs, snippets, 3000)

	// The cap cannot push the community snippet out of the corpus.
	assert.Contains(t, corpus.Text, "Absolutely worth it")
	assert.LessOrEqual(t, corpus.Chars(), 3000)
}

func TestTruncateAtSentence(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one gets cut off midw"
	got := truncateAtSentence(text, 50)
	assert.True(t, strings.HasSuffix(got, "."))
	assert.LessOrEqual(t, len(got), 50)

	assert.Equal(t, "short", truncateAtSentence("short", 50))
}

func TestBigramSimilarity(t *testing.T) {
	a := "this movie was absolutely brilliant and worth it"
	assert.Equal(t, 1.0, bigramSimilarity(a, a))
	assert.Greater(t, bigramSimilarity(a, a+"!"), 0.9)
	assert.Less(t, bigramSimilarity(a, "completely unrelated text about gardening"), 0.4)
}
