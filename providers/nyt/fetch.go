package nyt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"worth-watch/config"
	"worth-watch/providers"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Fetcher queries the NYT Article Search API for movie reviews. The
// dedicated Movie Reviews API is deprecated, so we filter article search
// results by section and material type instead.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new NYT fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

func (f *Fetcher) Name() string { return "nyt" }

type response struct {
	Response struct {
		Docs []struct {
			WebURL   string `json:"web_url"`
			Abstract string `json:"abstract"`
			Headline struct {
				Main string `json:"main"`
			} `json:"headline"`
		} `json:"docs"`
	} `json:"response"`
}

// Search finds review articles mentioning the title. Article search matches
// loosely, so results are post-filtered against the headline: short titles
// need to start the headline or appear as "title (year)" / "title review".
func (f *Fetcher) Search(ctx context.Context, query providers.Query) ([]providers.SearchResult, error) {
	if f.Config.NYTAPIKey == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("api-key", f.Config.NYTAPIKey)
	params.Set("q", fmt.Sprintf("%q review", query.Title))
	params.Set("fq", `section_name:("Movies" "Arts" "Television") AND type_of_material:("Review")`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Config.NYTBaseURL+"/articlesearch.json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nyt request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nyt returned status %d", resp.StatusCode)
	}

	var nr response
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return nil, fmt.Errorf("nyt decode: %w", err)
	}

	var results []providers.SearchResult
	for _, doc := range nr.Response.Docs {
		if !titleMatches(query.Title, doc.Headline.Main, query.Year) {
			continue
		}
		results = append(results, providers.SearchResult{
			Title:   doc.Headline.Main,
			Link:    doc.WebURL,
			Snippet: doc.Abstract,
		})
	}
	f.Logger.Debug("NYT search done", zap.String("title", query.Title), zap.Int("count", len(results)))
	return results, nil
}

// titleMatches checks whether a headline is about the searched title. Very
// short titles ("Up", "It", "Us") only count when they open the headline or
// appear with the release year, otherwise "Cover Up" would match "Up".
func titleMatches(title, text, year string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	h := strings.ToLower(strings.TrimSpace(text))

	if len(t) <= 3 {
		for _, sep := range []string{" ", ":", ",", " –", " -"} {
			if strings.HasPrefix(h, t+sep) {
				return true
			}
		}
		if year != "" && strings.Contains(h, fmt.Sprintf("%s (%s)", t, year)) {
			return true
		}
		return strings.HasPrefix(h, t+" review")
	}

	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(t) + `\b`)
	return pattern.MatchString(h)
}
