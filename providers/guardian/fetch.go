package guardian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"worth-watch/config"
	"worth-watch/providers"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Fetcher queries the Guardian Open Platform for film reviews.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new Guardian fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

func (f *Fetcher) Name() string { return "guardian" }

type response struct {
	Response struct {
		Results []struct {
			WebURL string `json:"webUrl"`
			Fields struct {
				Headline  string `json:"headline"`
				TrailText string `json:"trailText"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"response"`
}

// Search finds review articles in the film section, tagged as reviews.
// Returns an empty slice without error when no key is configured.
func (f *Fetcher) Search(ctx context.Context, query providers.Query) ([]providers.SearchResult, error) {
	if f.Config.GuardianAPIKey == "" {
		return nil, nil
	}

	q := fmt.Sprintf("%q", query.Title)
	if query.Year != "" {
		q += " " + query.Year
	}
	params := url.Values{}
	params.Set("api-key", f.Config.GuardianAPIKey)
	params.Set("q", q)
	params.Set("section", "film")
	params.Set("tag", "tone/reviews")
	params.Set("show-fields", "trailText,headline")
	params.Set("page-size", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Config.GuardianBaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("guardian request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("guardian returned status %d", resp.StatusCode)
	}

	var gr response
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("guardian decode: %w", err)
	}

	results := make([]providers.SearchResult, 0, len(gr.Response.Results))
	for _, item := range gr.Response.Results {
		results = append(results, providers.SearchResult{
			Title:   item.Fields.Headline,
			Link:    item.WebURL,
			Snippet: item.Fields.TrailText,
		})
	}
	f.Logger.Debug("Guardian search done", zap.String("title", query.Title), zap.Int("count", len(results)))
	return results, nil
}
