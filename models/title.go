package models

import (
	"time"

	"gorm.io/datatypes"
)

// Title represents a film or series known to the system. Rows are created on
// first reference and only ever mutated by metadata refresh.
type Title struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TMDBID    uint   `json:"tmdb_id" gorm:"column:tmdb_id;uniqueIndex;not null"`
	Name      string `json:"title" gorm:"column:title;not null"`
	MediaType string `json:"media_type" gorm:"index;not null"` // "movie" or "tv"
	Overview  string `json:"overview,omitempty" gorm:"type:text"`

	PosterPath   string         `json:"poster_path,omitempty"`
	BackdropPath string         `json:"backdrop_path,omitempty"`
	Genres       datatypes.JSON `json:"genres,omitempty" gorm:"type:jsonb"`

	ReleaseDate *time.Time `json:"release_date,omitempty" gorm:"index"`

	Popularity  float64 `json:"tmdb_popularity"`
	VoteAverage float64 `json:"tmdb_vote_average"`
	VoteCount   int     `json:"tmdb_vote_count"`

	Review *Review `json:"review,omitempty" gorm:"foreignKey:TitleID"`
}

// TableName pins the table name explicitly.
func (Title) TableName() string {
	return "titles"
}

// Year returns the release year as a string, or "" when unknown.
func (t *Title) Year() string {
	if t.ReleaseDate == nil {
		return ""
	}
	return t.ReleaseDate.Format("2006")
}

// DaysSinceRelease returns the title age in days, negative for upcoming
// releases. The second return is false when the release date is unknown.
func (t *Title) DaysSinceRelease(now time.Time) (int, bool) {
	if t.ReleaseDate == nil {
		return 0, false
	}
	return int(now.Sub(*t.ReleaseDate).Hours() / 24), true
}
