package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"worth-watch/models"
	"worth-watch/providers/omdb"
)

func scoresWith(score float64, votes int) omdb.Scores {
	return omdb.Scores{IMDBScore: score, IMDBVotes: votes}
}

func applyPolicy(t *testing.T, draft *VerdictDraft, override OverrideScore, conf ConfidenceResult, stats ConfidenceStats) {
	t.Helper()
	ApplyVerdictPolicy(PolicyInput{
		Draft:      draft,
		Override:   override,
		Confidence: conf,
		Stats:      stats,
	}, zap.NewNop())
}

func TestPolicyPromotesAgainstHighTrustedScore(t *testing.T) {
	draft := &VerdictDraft{
		Verdict:         models.VerdictMixedBag,
		PraisePoints:    []string{"a", "b", "c"},
		CriticismPoints: []string{"a"},
		PositivePct:     50, NegativePct: 25, MixedPct: 25,
	}
	applyPolicy(t, draft, OverrideScore{Score: 8.6, Votes: 12000},
		ConfidenceResult{Score: 80, Tier: models.ConfidenceHigh},
		ConfidenceStats{ArticlesRead: 8})

	assert.Equal(t, models.VerdictWorthIt, draft.Verdict)
}

func TestPolicyPromotionBlockedByCriticism(t *testing.T) {
	draft := &VerdictDraft{
		Verdict:         models.VerdictMixedBag,
		PraisePoints:    []string{"a"},
		CriticismPoints: []string{"a", "b"},
		PositivePct:     50, NegativePct: 25, MixedPct: 25,
	}
	applyPolicy(t, draft, OverrideScore{Score: 8.6, Votes: 12000},
		ConfidenceResult{Score: 80, Tier: models.ConfidenceHigh},
		ConfidenceStats{ArticlesRead: 8})

	assert.Equal(t, models.VerdictMixedBag, draft.Verdict)
}

func TestPolicyHardFloorOnTerribleScore(t *testing.T) {
	draft := &VerdictDraft{
		Verdict:      models.VerdictWorthIt,
		PraisePoints: []string{"a"},
		PositivePct:  90, NegativePct: 5, MixedPct: 5,
	}
	applyPolicy(t, draft, OverrideScore{Score: 4.2, Votes: 5000},
		ConfidenceResult{Score: 60, Tier: models.ConfidenceMedium},
		ConfidenceStats{ArticlesRead: 6})

	assert.Equal(t, models.VerdictNotWorthIt, draft.Verdict)
}

func TestPolicyRules(t *testing.T) {
	tests := []struct {
		name     string
		draft    VerdictDraft
		override OverrideScore
		tier     string
		articles int
		want     string
	}{
		{
			name: "negative verdict with positive sentiment softens",
			draft: VerdictDraft{Verdict: models.VerdictNotWorthIt,
				PositivePct: 65, NegativePct: 20, MixedPct: 15},
			override: OverrideScore{Score: 7.0, Votes: 300},
			tier:     models.ConfidenceHigh, articles: 8,
			want: models.VerdictMixedBag,
		},
		{
			name: "below-average score demotes positive verdict",
			draft: VerdictDraft{Verdict: models.VerdictWorthIt,
				PositivePct: 60, NegativePct: 25, MixedPct: 15},
			override: OverrideScore{Score: 5.8, Votes: 150},
			tier:     models.ConfidenceMedium, articles: 5,
			want: models.VerdictMixedBag,
		},
		{
			name: "overwhelming sentiment survives below-average score",
			draft: VerdictDraft{Verdict: models.VerdictWorthIt,
				PositivePct: 85, NegativePct: 5, MixedPct: 10},
			override: OverrideScore{Score: 5.8, Votes: 150},
			tier:     models.ConfidenceMedium, articles: 5,
			want: models.VerdictWorthIt,
		},
		{
			name: "gray zone score needs near-unanimous praise",
			draft: VerdictDraft{Verdict: models.VerdictWorthIt,
				PositivePct: 70, NegativePct: 15, MixedPct: 15},
			override: OverrideScore{Score: 5.5, Votes: 800},
			tier:     models.ConfidenceMedium, articles: 5,
			want: models.VerdictMixedBag,
		},
		{
			name: "thin evidence cannot carry a positive claim",
			draft: VerdictDraft{Verdict: models.VerdictWorthIt,
				PositivePct: 75, NegativePct: 10, MixedPct: 15},
			override: OverrideScore{Score: 7.0, Votes: 50},
			tier:     models.ConfidenceLow, articles: 2,
			want: models.VerdictMixedBag,
		},
		{
			name: "no rule fires",
			draft: VerdictDraft{Verdict: models.VerdictWorthIt,
				PositivePct: 75, NegativePct: 10, MixedPct: 15},
			override: OverrideScore{Score: 7.8, Votes: 900},
			tier:     models.ConfidenceHigh, articles: 9,
			want: models.VerdictWorthIt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := tt.draft
			draft.PraisePoints = []string{"something"}
			applyPolicy(t, &draft, tt.override,
				ConfidenceResult{Score: 50, Tier: tt.tier},
				ConfidenceStats{ArticlesRead: tt.articles})
			assert.Equal(t, tt.want, draft.Verdict)
			assert.Contains(t, []string{
				models.VerdictWorthIt, models.VerdictNotWorthIt, models.VerdictMixedBag,
			}, draft.Verdict)
		})
	}
}

func TestPolicyOverwritesModelConfidence(t *testing.T) {
	draft := &VerdictDraft{
		Verdict:      models.VerdictMixedBag,
		Confidence:   models.ConfidenceHigh, // the model flatters itself
		PraisePoints: []string{"a"},
		PositivePct:  40, NegativePct: 30, MixedPct: 30,
	}
	applyPolicy(t, draft, OverrideScore{},
		ConfidenceResult{Score: 20, Tier: models.ConfidenceLow},
		ConfidenceStats{})

	assert.Equal(t, models.ConfidenceLow, draft.Confidence)
}

func TestNormalizeSentiment(t *testing.T) {
	tests := []struct {
		name          string
		pos, neg, mix int
	}{
		{"already normalized", 50, 30, 20},
		{"sums over 100", 70, 50, 30},
		{"sums under 100", 20, 10, 5},
		{"all zero", 0, 0, 0},
		{"negative values clamped", -10, 60, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &VerdictDraft{PositivePct: tt.pos, NegativePct: tt.neg, MixedPct: tt.mix}
			normalizeSentiment(d)
			assert.Equal(t, 100, d.PositivePct+d.NegativePct+d.MixedPct)
			assert.GreaterOrEqual(t, d.PositivePct, 0)
			assert.GreaterOrEqual(t, d.NegativePct, 0)
			assert.GreaterOrEqual(t, d.MixedPct, 0)
		})
	}
}

func TestResolveOverridePrefersIMDB(t *testing.T) {
	title := &models.Title{VoteAverage: 6.1, VoteCount: 3000}

	withIMDB := ResolveOverride(title, scoresWith(8.2, 40000))
	assert.Equal(t, 8.2, withIMDB.Score)
	assert.Equal(t, 40000, withIMDB.Votes)

	withoutIMDB := ResolveOverride(title, scoresWith(0, 0))
	assert.Equal(t, 6.1, withoutIMDB.Score)
	assert.Equal(t, 3000, withoutIMDB.Votes)
}
