package services

import (
	"go.uber.org/zap"

	"worth-watch/models"
	"worth-watch/providers/omdb"
)

// OverrideScore is the trusted rating used to sanity-check the model's
// verdict. The per-title IMDb rating wins over the metadata provider's
// generic popularity average whenever it exists.
type OverrideScore struct {
	Score float64
	Votes int
}

// ResolveOverride picks the trusted rating for the policy rules.
func ResolveOverride(title *models.Title, scores omdb.Scores) OverrideScore {
	if scores.HasIMDB() {
		return OverrideScore{Score: scores.IMDBScore, Votes: scores.IMDBVotes}
	}
	return OverrideScore{Score: title.VoteAverage, Votes: title.VoteCount}
}

// PolicyInput is everything the rules look at.
type PolicyInput struct {
	Draft      *VerdictDraft
	Override   OverrideScore
	Confidence ConfidenceResult
	Stats      ConfidenceStats
}

// ApplyVerdictPolicy reconciles the model's verdict with the trusted rating.
// Rules run in order; the first matching rule decides and later ones still
// apply on the adjusted verdict, mirroring a cascade of sanity checks rather
// than a single classification. The scorer's tier always replaces whatever
// confidence the model claimed for itself.
func ApplyVerdictPolicy(in PolicyInput, logger *zap.Logger) {
	d := in.Draft
	normalizeSentiment(d)

	original := d.Verdict
	score, votes := in.Override.Score, in.Override.Votes

	// Rule 1: a title the wider world rates this highly should not land
	// below WORTH IT unless the draft itself argues against it.
	if score > 7.5 && votes > 500 && d.Verdict != models.VerdictWorthIt {
		if len(d.CriticismPoints) <= len(d.PraisePoints) && d.PositivePct >= 45 {
			d.Verdict = models.VerdictWorthIt
		}
	}

	// Rule 2: a negative verdict contradicting its own sentiment split.
	if d.Verdict == models.VerdictNotWorthIt && d.PositivePct > 60 {
		d.Verdict = models.VerdictMixedBag
	}

	// Rule 3: positive verdict against a clearly below-average rating, unless
	// the corpus overwhelmingly disagrees with the trusted score.
	if score < 6.0 && votes > 100 && d.Verdict == models.VerdictWorthIt && d.PositivePct < 80 {
		d.Verdict = models.VerdictMixedBag
	}

	// Rule 4: hard floor. Nothing rated under 5.0 at real sample size gets a
	// pass, whatever the model or the sentiment says.
	if score < 5.0 && votes > 200 && d.Verdict != models.VerdictNotWorthIt {
		d.Verdict = models.VerdictNotWorthIt
	}

	// Rule 5: the 5.0-6.0 gray zone only sustains WORTH IT on near-unanimous
	// positive sentiment.
	if score >= 5.0 && score <= 6.0 && votes > 200 &&
		d.Verdict == models.VerdictWorthIt && d.PositivePct < 80 {
		d.Verdict = models.VerdictMixedBag
	}

	// Rule 6: thin evidence cannot carry a strong positive claim.
	if in.Confidence.Tier == models.ConfidenceLow && in.Stats.ArticlesRead < 3 &&
		d.Verdict == models.VerdictWorthIt {
		d.Verdict = models.VerdictMixedBag
	}

	d.Confidence = in.Confidence.Tier

	if d.Verdict != original {
		logger.Info("Verdict adjusted by policy",
			zap.String("from", original),
			zap.String("to", d.Verdict),
			zap.Float64("override_score", score),
			zap.Int("override_votes", votes))
	}
}

// normalizeSentiment forces the triple to sum to exactly 100, dumping any
// rounding drift into the mixed bucket.
func normalizeSentiment(d *VerdictDraft) {
	if d.PositivePct < 0 {
		d.PositivePct = 0
	}
	if d.NegativePct < 0 {
		d.NegativePct = 0
	}
	if d.MixedPct < 0 {
		d.MixedPct = 0
	}
	sum := d.PositivePct + d.NegativePct + d.MixedPct
	if sum == 100 {
		return
	}
	if sum == 0 {
		d.PositivePct, d.NegativePct, d.MixedPct = 34, 33, 33
		return
	}
	d.PositivePct = d.PositivePct * 100 / sum
	d.NegativePct = d.NegativePct * 100 / sum
	d.MixedPct = 100 - d.PositivePct - d.NegativePct
}
