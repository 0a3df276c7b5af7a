package models

import (
	"time"

	"gorm.io/datatypes"
)

// Verdict values. Exactly one of these is stored per review.
const (
	VerdictWorthIt    = "WORTH IT"
	VerdictNotWorthIt = "NOT WORTH IT"
	VerdictMixedBag   = "MIXED BAG"
)

// Confidence tiers for the evidence behind a verdict.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Review stores the synthesized verdict for a title. One row per title;
// regeneration updates the row in place.
type Review struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TitleID uint `json:"title_id" gorm:"uniqueIndex;not null"`

	Verdict    string `json:"verdict" gorm:"index;not null"`
	ReviewText string `json:"review_text" gorm:"type:text;not null"`

	PraisePoints    datatypes.JSON `json:"praise_points" gorm:"type:jsonb"`
	CriticismPoints datatypes.JSON `json:"criticism_points" gorm:"type:jsonb"`

	Vibe       string `json:"vibe,omitempty"`
	Confidence string `json:"confidence" gorm:"index"`

	PositivePct int `json:"positive_pct"`
	NegativePct int `json:"negative_pct"`
	MixedPct    int `json:"mixed_pct"`

	Tags        datatypes.JSON `json:"tags,omitempty" gorm:"type:jsonb"`
	BestQuote   string         `json:"best_quote,omitempty" gorm:"type:text"`
	QuoteSource string         `json:"quote_source,omitempty"`

	// Trusted external scores resolved during the run.
	IMDBScore     float64 `json:"imdb_score,omitempty"`
	IMDBVotes     int     `json:"imdb_votes,omitempty"`
	RTCriticScore int     `json:"rt_critic_score,omitempty"`
	Metascore     int     `json:"metascore,omitempty"`

	SourcesCount int            `json:"sources_count" gorm:"default:0"`
	SourcesURLs  datatypes.JSON `json:"sources_urls,omitempty" gorm:"type:jsonb"`

	LLMModel        string     `json:"llm_model,omitempty"`
	GeneratedAt     time.Time  `json:"generated_at" gorm:"index"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
}

// TableName pins the table name explicitly.
func (Review) TableName() string {
	return "reviews"
}
