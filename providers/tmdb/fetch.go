package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"worth-watch/config"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// TitleDetails is the metadata the pipeline needs about one title.
type TitleDetails struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"` // TV endpoints use "name"
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Genres       []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// DisplayTitle returns the movie or TV title, whichever is set.
func (d *TitleDetails) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// Release returns the release date string, whichever field is set.
func (d *TitleDetails) Release() string {
	if d.ReleaseDate != "" {
		return d.ReleaseDate
	}
	return d.FirstAirDate
}

// Fetcher is the metadata provider client (TMDB-compatible API).
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new metadata fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

func (f *Fetcher) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := f.Config.TMDBBaseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+f.Config.TMDBAPIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb returned status %d for %s", resp.StatusCode, endpoint)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Details fetches full metadata for one title.
func (f *Fetcher) Details(ctx context.Context, tmdbID uint, mediaType string) (*TitleDetails, error) {
	endpoint := fmt.Sprintf("/movie/%d", tmdbID)
	if mediaType == "tv" {
		endpoint = fmt.Sprintf("/tv/%d", tmdbID)
	}
	var d TitleDetails
	if err := f.get(ctx, endpoint, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type creditsResponse struct {
	Crew []struct {
		Name string `json:"name"`
		Job  string `json:"job"`
	} `json:"crew"`
	Cast []struct {
		Name string `json:"name"`
	} `json:"cast"`
}

// Director returns the director's name, used as disambiguating search
// context for titles with common names. Empty string when unavailable.
func (f *Fetcher) Director(ctx context.Context, tmdbID uint, mediaType string) (string, error) {
	endpoint := fmt.Sprintf("/movie/%d/credits", tmdbID)
	if mediaType == "tv" {
		endpoint = fmt.Sprintf("/tv/%d/credits", tmdbID)
	}
	var cr creditsResponse
	if err := f.get(ctx, endpoint, nil, &cr); err != nil {
		return "", err
	}
	for _, c := range cr.Crew {
		if c.Job == "Director" {
			return c.Name, nil
		}
	}
	return "", nil
}

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

// SearchMulti runs a multi-search across movies and TV, returning raw
// result objects for the API layer to shape.
func (f *Fetcher) SearchMulti(ctx context.Context, query string) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("query", query)
	var sr searchResponse
	if err := f.get(ctx, "/search/multi", params, &sr); err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, raw := range sr.Results {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		mt, _ := m["media_type"].(string)
		if mt == "movie" || mt == "tv" {
			out = append(out, m)
		}
	}
	return out, nil
}
