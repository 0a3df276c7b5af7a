package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worth-watch/models"
)

func TestParseDraft(t *testing.T) {
	raw := "```json\n" + `{
		"verdict": "WORTH IT",
		"review_text": "Go watch it.",
		"praise_points": ["great cast"],
		"criticism_points": ["slow start"],
		"confidence": "HIGH",
		"tags": ["binge-worthy"],
		"best_quote": "a triumph",
		"quote_source": "variety.com",
		"vibe": "electric",
		"positive_pct": 70,
		"negative_pct": 20,
		"mixed_pct": 10
	}` + "\n```"

	draft, err := parseDraft(raw)
	require.NoError(t, err)
	assert.Equal(t, models.VerdictWorthIt, draft.Verdict)
	assert.Equal(t, 70, draft.PositivePct)
}

func TestParseDraftRejectsBadOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json at all", "I think this movie is worth watching!"},
		{"invalid verdict", `{"verdict": "MAYBE", "review_text": "hm"}`},
		{"empty review text", `{"verdict": "WORTH IT", "review_text": ""}`},
		{"broken json", `{"verdict": "WORTH IT", "review_text": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDraft(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestPostProcessStripsQuotes(t *testing.T) {
	draft := &VerdictDraft{
		Verdict:      models.VerdictWorthIt,
		ReviewText:   `"Watch it tonight."`,
		BestQuote:    "“a stunning achievement”",
		QuoteSource:  "'variety.com'",
		Vibe:         `"cozy"`,
		PraisePoints: []string{"good"},
	}
	postProcess(draft)

	assert.Equal(t, "Watch it tonight.", draft.ReviewText)
	assert.Equal(t, "a stunning achievement", draft.BestQuote)
	assert.Equal(t, "variety.com", draft.QuoteSource)
	assert.Equal(t, "cozy", draft.Vibe)
}

func TestPostProcessSplitsGluedTags(t *testing.T) {
	draft := &VerdictDraft{
		Verdict:      models.VerdictWorthIt,
		ReviewText:   "ok",
		PraisePoints: []string{"good"},
		Tags:         []string{"slow-burn and visually-stunning and binge-worthy", "divisive"},
	}
	postProcess(draft)

	assert.ElementsMatch(t, []string{"slow-burn", "visually-stunning", "binge-worthy", "divisive"}, draft.Tags)
}

func TestPostProcessBackfillsPraise(t *testing.T) {
	draft := &VerdictDraft{
		Verdict:    models.VerdictNotWorthIt,
		ReviewText: "Skip this one.",
	}
	postProcess(draft)
	require.NotEmpty(t, draft.PraisePoints)
	assert.NotEmpty(t, draft.PraisePoints[0])
}

func TestDegradedDraftIsAlwaysUsable(t *testing.T) {
	draft := degradedDraft(&models.Title{Name: "Obscurity: The Movie"})

	assert.Equal(t, models.VerdictMixedBag, draft.Verdict)
	assert.Equal(t, models.ConfidenceLow, draft.Confidence)
	assert.Equal(t, 100, draft.PositivePct+draft.NegativePct+draft.MixedPct)
	assert.NotEmpty(t, draft.PraisePoints)
	assert.NotEmpty(t, draft.ReviewText)
	assert.Equal(t, "none", draft.Model)
}
