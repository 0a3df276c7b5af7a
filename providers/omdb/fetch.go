package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"worth-watch/config"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Scores holds the trusted external ratings for one title. Zero values mean
// "not available"; OMDB reports many fields as "N/A".
type Scores struct {
	IMDBScore     float64 `json:"imdb_score,omitempty"`
	IMDBVotes     int     `json:"imdb_votes,omitempty"`
	RTCriticScore int     `json:"rt_critic_score,omitempty"`
	Metascore     int     `json:"metascore,omitempty"`
	Awards        string  `json:"awards,omitempty"`
	Rated         string  `json:"rated,omitempty"`
}

// HasIMDB reports whether a per-title IMDb rating was found.
func (s Scores) HasIMDB() bool {
	return s.IMDBScore > 0
}

// Fetcher is the OMDB API client for trusted ratings.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new OMDB fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

type apiResponse struct {
	Response   string `json:"Response"`
	IMDBRating string `json:"imdbRating"`
	IMDBVotes  string `json:"imdbVotes"`
	Metascore  string `json:"Metascore"`
	Awards     string `json:"Awards"`
	Rated      string `json:"Rated"`
	Ratings    []struct {
		Source string `json:"Source"`
		Value  string `json:"Value"`
	} `json:"Ratings"`
}

// ScoresByTitle looks up ratings by title and year. Missing key, no match
// and quota errors all return empty Scores without error; a missing trusted
// score is a degraded input, not a pipeline failure.
func (f *Fetcher) ScoresByTitle(ctx context.Context, title, year, mediaType string) (Scores, error) {
	if f.Config.OMDBAPIKey == "" {
		return Scores{}, nil
	}

	params := url.Values{}
	params.Set("apikey", f.Config.OMDBAPIKey)
	params.Set("t", title)
	if mediaType == "tv" {
		params.Set("type", "series")
	} else {
		params.Set("type", "movie")
	}
	if year != "" {
		params.Set("y", year)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Config.OMDBBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Scores{}, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Scores{}, fmt.Errorf("omdb request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		f.Logger.Warn("OMDB API key invalid or limit reached")
		return Scores{}, nil
	case http.StatusTooManyRequests:
		f.Logger.Warn("OMDB daily limit reached")
		return Scores{}, nil
	case http.StatusOK:
	default:
		return Scores{}, fmt.Errorf("omdb returned status %d", resp.StatusCode)
	}

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return Scores{}, fmt.Errorf("omdb decode: %w", err)
	}
	if ar.Response == "False" {
		return Scores{}, nil
	}

	s := Scores{
		IMDBScore: parseFloat(ar.IMDBRating),
		IMDBVotes: parseVotes(ar.IMDBVotes),
		Metascore: parseInt(ar.Metascore),
		Awards:    parseString(ar.Awards),
		Rated:     parseString(ar.Rated),
	}
	for _, r := range ar.Ratings {
		if r.Source == "Rotten Tomatoes" {
			s.RTCriticScore = parseInt(strings.TrimSuffix(r.Value, "%"))
		}
	}
	return s, nil
}

func parseFloat(v string) float64 {
	if v == "" || v == "N/A" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseVotes handles thousands separators like "1,234,567".
func parseVotes(v string) int {
	return parseInt(strings.ReplaceAll(v, ",", ""))
}

func parseInt(v string) int {
	if v == "" || v == "N/A" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

func parseString(v string) string {
	v = strings.TrimSpace(v)
	if v == "N/A" {
		return ""
	}
	return v
}
