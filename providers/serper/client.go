package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"worth-watch/config"
	"worth-watch/providers"
)

// Domains we never want as opinion sources: aggregators, databases,
// social platforms whose pages carry no scrapeable review text.
var blocklist = []string{
	"reelgood.com", "moviefone.com", "streamin.co", "freemoviescinema",
	"teepublic.com", "themoviedb.org", "imdb.com", "justwatch.com",
	"rottentomatoes.com", "metacritic.com", "simkl.com",
	"facebook.com", "instagram.com", "twitter.com", "tiktok.com", "youtube.com",
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Client talks to a Serper-compatible web search API. It holds the key
// failover state: once the primary key returns 402/429 the fallback key is
// used for the rest of the process.
type Client struct {
	Config *config.Config
	Logger *zap.Logger

	mu        sync.Mutex
	activeKey string
	switched  bool
}

// NewClient creates a search client with the primary key active.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		Config:    cfg,
		Logger:    logger,
		activeKey: cfg.SerperAPIKey,
	}
}

func (c *Client) key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeKey
}

// switchToFallback activates the fallback key. Returns false when no fallback
// is configured or it is already active.
func (c *Client) switchToFallback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.switched {
		c.Logger.Error("Both search keys exhausted, no more search credits")
		return false
	}
	if c.Config.SerperFallbackKey == "" {
		c.Logger.Error("Primary search key exhausted and no fallback key set")
		return false
	}
	c.activeKey = c.Config.SerperFallbackKey
	c.switched = true
	c.Logger.Warn("Switched to fallback search API key")
	return true
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *Client) post(ctx context.Context, query string, num int) (*http.Response, error) {
	body, err := json.Marshal(map[string]any{"q": query, "num": num})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.SerperBaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.key())
	req.Header.Set("Content-Type", "application/json")
	return httpClient.Do(req)
}

// Search runs one query and returns blocklist-filtered organic results.
func (c *Client) Search(ctx context.Context, query string, num int) ([]providers.SearchResult, error) {
	resp, err := c.post(ctx, query, num)
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}

	// Key exhausted: retry once on the fallback key.
	if resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		c.Logger.Warn("Search key exhausted", zap.Int("status", resp.StatusCode))
		if !c.switchToFallback() {
			return nil, fmt.Errorf("serper credits exhausted (status %d)", resp.StatusCode)
		}
		resp, err = c.post(ctx, query, num)
		if err != nil {
			return nil, fmt.Errorf("serper retry: %w", err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper returned status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("serper decode: %w", err)
	}

	results := make([]providers.SearchResult, 0, len(sr.Organic))
	for _, item := range sr.Organic {
		if blockedDomain(item.Link) {
			continue
		}
		results = append(results, providers.SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}

func blockedDomain(link string) bool {
	l := strings.ToLower(link)
	for _, b := range blocklist {
		if strings.Contains(l, b) {
			return true
		}
	}
	return false
}
