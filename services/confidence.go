package services

import "worth-watch/models"

// ConfidenceStats are the retrieval statistics of one pipeline run.
type ConfidenceStats struct {
	ArticlesRead  int
	RedditSources int
	CorpusChars   int

	DaysSinceRelease int
	HasReleaseDate   bool

	// Vote count from the metadata provider. Used to compensate thin
	// scraping results for well-known titles.
	ExternalVoteCount int
}

// ConfidenceResult is the derived confidence signal stored on the review.
type ConfidenceResult struct {
	Score int
	Tier  string
}

// popularTitleVotes is the external vote count above which a title counts as
// well known: a thin corpus then means the scrape missed data, not that the
// title is obscure.
const popularTitleVotes = 5000

// ScoreConfidence converts retrieval statistics into a 0-100 score and a
// tier. Each factor is independent, additive and capped, so the score is
// monotonic in every input.
func ScoreConfidence(stats ConfidenceStats) ConfidenceResult {
	score := 0

	switch {
	case stats.ArticlesRead >= 8:
		score += 25
	case stats.ArticlesRead >= 5:
		score += 15
	case stats.ArticlesRead >= 3:
		score += 8
	}

	switch {
	case stats.RedditSources >= 3:
		score += 30
	case stats.RedditSources >= 1:
		score += 15
	}

	switch {
	case stats.CorpusChars >= 15000:
		score += 25
	case stats.CorpusChars >= 8000:
		score += 15
	case stats.CorpusChars >= 3000:
		score += 8
	}

	if !stats.HasReleaseDate {
		score += 10
	} else {
		switch {
		case stats.DaysSinceRelease > 365:
			score += 20
		case stats.DaysSinceRelease > 90:
			score += 15
		case stats.DaysSinceRelease > 30:
			score += 8
		}
	}

	result := ConfidenceResult{Score: score, Tier: tierFor(score)}

	// Popular-title override: a massively voted title with a LOW/MEDIUM
	// scrape means our sources under-delivered, not that evidence is weak.
	if stats.ExternalVoteCount > popularTitleVotes {
		switch result.Tier {
		case models.ConfidenceLow:
			result.Tier = models.ConfidenceMedium
			if result.Score < 40 {
				result.Score = 40
			}
		case models.ConfidenceMedium:
			if result.Score < 55 {
				result.Score = 55
			}
		}
	}

	return result
}

func tierFor(score int) string {
	switch {
	case score >= 70:
		return models.ConfidenceHigh
	case score >= 40:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
