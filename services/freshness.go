package services

import (
	"time"

	"worth-watch/models"
)

// neverStale marks reviews of titles older than 90 days; once opinions have
// settled, a cached verdict is kept indefinitely.
const neverStale = -1

// minReviewTTL is the shortest TTL any title age maps to. A review younger
// than this cannot be stale, so the sweep query excludes it up front.
const minReviewTTL = 6 * time.Hour

// ReviewTTLHours maps title age to the review's time-to-live. Fresh releases
// get short TTLs because opinions are still forming; neverStale means the
// review is locked. hasRelease=false covers unknown release dates.
func ReviewTTLHours(daysSinceRelease int, hasRelease bool) int {
	if !hasRelease {
		return 48
	}
	switch {
	case daysSinceRelease < 0:
		// Upcoming: pre-release buzz shifts fast.
		return 6
	case daysSinceRelease <= 7:
		return 12
	case daysSinceRelease <= 30:
		return 48
	case daysSinceRelease <= 90:
		return 168
	default:
		return neverStale
	}
}

// IsReviewStale reports whether a review must be regenerated.
func IsReviewStale(review *models.Review, title *models.Title, now time.Time) bool {
	if review == nil {
		return true
	}
	days, hasRelease := title.DaysSinceRelease(now)
	ttl := ReviewTTLHours(days, hasRelease)
	if ttl == neverStale {
		return false
	}
	return now.Sub(review.GeneratedAt) > time.Duration(ttl)*time.Hour
}
