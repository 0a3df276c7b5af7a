package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"worth-watch/config"
	"worth-watch/providers"
)

var fetchClient = &http.Client{Timeout: 15 * time.Second}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

var googleCachePrefix = "https://webcache.googleusercontent.com/search?q=cache:"

// Content containers tried in order before falling back to the whole body.
var contentSelectors = []string{
	"article",
	"[role=main]",
	"main",
	".article-body",
	".article-content",
	".entry-content",
	".post-content",
	".story-body",
	".review-body",
	"#content",
}

// Lines containing any of these are boilerplate, not opinion.
var skipPhrases = []string{
	"cookie", "subscribe", "newsletter", "sign up", "sign in", "log in",
	"advertisement", "sponsored", "privacy policy", "terms of service",
	"all rights reserved", "share this", "follow us", "related articles",
	"read more", "javascript", "enable js",
}

const (
	maxParagraphsPerDoc = 50
	minStructuredParas  = 3
)

// FetchedDoc is the text retrieved from one source URL. Snippet-only
// community results never become FetchedDocs; they go straight into the
// corpus as snippets.
type FetchedDoc struct {
	URL        string
	Domain     string
	Paragraphs []string
	IsReddit   bool
}

// Retriever fetches page text with per-domain strategies. It never returns
// an error for a single URL; unfetchable pages are dropped and counted.
type Retriever struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewRetriever creates a retriever bounded by cfg.FetchConcurrency.
func NewRetriever(cfg *config.Config, logger *zap.Logger) *Retriever {
	return &Retriever{Config: cfg, Logger: logger}
}

// FetchAll retrieves every selected source. Reddit URLs share one batch
// decision: the first one is probed against the script-free mirror, and its
// outcome routes the whole batch either direct or through the search cache.
func (r *Retriever) FetchAll(ctx context.Context, sources []providers.SearchResult) []FetchedDoc {
	var redditURLs, articleURLs []string
	for _, s := range sources {
		if isRedditLink(s.Link) {
			redditURLs = append(redditURLs, s.Link)
		} else {
			articleURLs = append(articleURLs, s.Link)
		}
	}

	sem := make(chan struct{}, r.Config.FetchConcurrency)
	var mu sync.Mutex
	var docs []FetchedDoc
	var wg sync.WaitGroup

	for _, link := range articleURLs {
		wg.Add(1)
		go func(link string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			paras, ok := r.fetchArticle(ctx, link)
			if !ok {
				fetchFailures.WithLabelValues("article").Inc()
				return
			}
			mu.Lock()
			docs = append(docs, FetchedDoc{URL: link, Domain: domainOf(link), Paragraphs: paras})
			mu.Unlock()
		}(link)
	}

	if len(redditURLs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			redditDocs := r.fetchRedditBatch(ctx, redditURLs, sem)
			mu.Lock()
			docs = append(docs, redditDocs...)
			mu.Unlock()
		}()
	}

	wg.Wait()
	r.Logger.Info("Content retrieval done",
		zap.Int("requested", len(sources)),
		zap.Int("fetched", len(docs)))
	return docs
}

// fetchRedditBatch probes exactly one mirror URL. Success means the mirror is
// reachable from this host and every remaining URL is fetched the same way;
// failure means all of them skip straight to the search-engine cache. The
// cache keeps its own rate-limit latch: once throttled, the rest of the batch
// is dropped instead of hammered.
func (r *Retriever) fetchRedditBatch(ctx context.Context, urls []string, sem chan struct{}) []FetchedDoc {
	probe := toOldReddit(urls[0])
	paras, ok := r.fetchRedditPage(ctx, probe)

	var docs []FetchedDoc
	if ok {
		docs = append(docs, FetchedDoc{URL: urls[0], Domain: "reddit.com", Paragraphs: paras, IsReddit: true})

		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, link := range urls[1:] {
			wg.Add(1)
			go func(link string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				p, ok := r.fetchRedditPage(ctx, toOldReddit(link))
				if !ok {
					fetchFailures.WithLabelValues("reddit").Inc()
					return
				}
				mu.Lock()
				docs = append(docs, FetchedDoc{URL: link, Domain: "reddit.com", Paragraphs: p, IsReddit: true})
				mu.Unlock()
			}(link)
		}
		wg.Wait()
		return docs
	}

	r.Logger.Warn("Reddit mirror probe failed, routing batch through search cache",
		zap.Int("urls", len(urls)))

	// Cache lookups run sequentially. They share one IP-level quota, so
	// parallel requests just trip the limiter faster.
	rateLimited := false
	for _, link := range urls {
		if rateLimited {
			fetchFailures.WithLabelValues("reddit-cache-skipped").Inc()
			continue
		}
		p, status := r.fetchCached(ctx, link)
		if status == http.StatusTooManyRequests {
			rateLimited = true
			r.Logger.Warn("Search cache rate limited, skipping remaining community URLs")
			fetchFailures.WithLabelValues("reddit-cache").Inc()
			continue
		}
		if len(p) == 0 {
			fetchFailures.WithLabelValues("reddit-cache").Inc()
			continue
		}
		docs = append(docs, FetchedDoc{URL: link, Domain: "reddit.com", Paragraphs: p, IsReddit: true})
	}
	return docs
}

func (r *Retriever) fetchArticle(ctx context.Context, link string) ([]string, bool) {
	doc, _, ok := r.get(ctx, link)
	if !ok {
		return nil, false
	}
	paras := extractParagraphs(doc)
	if len(paras) == 0 {
		return nil, false
	}
	return paras, true
}

func (r *Retriever) fetchRedditPage(ctx context.Context, link string) ([]string, bool) {
	doc, _, ok := r.get(ctx, link)
	if !ok {
		return nil, false
	}
	paras := extractRedditComments(doc)
	if len(paras) == 0 {
		return nil, false
	}
	return paras, true
}

func (r *Retriever) fetchCached(ctx context.Context, link string) ([]string, int) {
	doc, status, ok := r.get(ctx, googleCachePrefix+url.QueryEscape(link))
	if !ok {
		return nil, status
	}
	if paras := extractRedditComments(doc); len(paras) > 0 {
		return paras, status
	}
	return extractParagraphs(doc), status
}

// get fetches one page and parses it. Returns (nil, status, false) on any
// transport or parse failure; the status code is kept for rate-limit checks.
func (r *Retriever) get(ctx context.Context, link string) (*goquery.Document, int, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, 0, false
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := fetchClient.Do(req)
	if err != nil {
		r.Logger.Debug("Fetch failed", zap.String("url", link), zap.Error(err))
		return nil, 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.Logger.Debug("Fetch returned non-200", zap.String("url", link), zap.Int("status", resp.StatusCode))
		return nil, resp.StatusCode, false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, false
	}
	return doc, resp.StatusCode, true
}

// extractParagraphs pulls readable text out of an article page. Junk elements
// are removed first, then content containers are tried in order; if structured
// extraction yields too little, the raw body text is split by lines instead.
func extractParagraphs(doc *goquery.Document) []string {
	doc.Find("script, style, nav, header, footer, aside, form, iframe, noscript, button").Remove()

	var paras []string
	for _, sel := range contentSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		paras = collectParagraphs(container)
		if len(paras) >= minStructuredParas {
			return paras
		}
	}

	if body := collectParagraphs(doc.Find("body")); len(body) >= minStructuredParas {
		return body
	}

	// Last resort: raw line splitting over the whole body text.
	var out []string
	for _, line := range strings.Split(doc.Find("body").Text(), "\n") {
		line = strings.TrimSpace(line)
		if keepLine(line) {
			out = append(out, line)
			if len(out) >= maxParagraphsPerDoc {
				break
			}
		}
	}
	return out
}

func collectParagraphs(s *goquery.Selection) []string {
	var paras []string
	seen := make(map[string]bool)
	s.Find("p, li, blockquote").Each(func(_ int, el *goquery.Selection) {
		if len(paras) >= maxParagraphsPerDoc {
			return
		}
		text := strings.TrimSpace(el.Text())
		if !keepLine(text) {
			return
		}
		// First-80-chars key catches the same paragraph rendered twice.
		key := text
		if len(key) > 80 {
			key = key[:80]
		}
		if seen[key] {
			return
		}
		seen[key] = true
		paras = append(paras, text)
	})
	return paras
}

func extractRedditComments(doc *goquery.Document) []string {
	var paras []string
	doc.Find(".usertext-body p, [data-testid=comment] p").Each(func(_ int, el *goquery.Selection) {
		if len(paras) >= maxParagraphsPerDoc {
			return
		}
		text := strings.TrimSpace(el.Text())
		if keepLine(text) {
			paras = append(paras, text)
		}
	})
	return paras
}

func keepLine(line string) bool {
	if len(line) < 30 {
		return false
	}
	l := strings.ToLower(line)
	for _, phrase := range skipPhrases {
		if strings.Contains(l, phrase) {
			return false
		}
	}
	return true
}

func isRedditLink(link string) bool {
	return strings.Contains(strings.ToLower(link), "reddit.com")
}

// toOldReddit rewrites a Reddit URL onto the script-free mirror, which serves
// plain HTML without the client-side app shell.
func toOldReddit(link string) string {
	link = strings.Replace(link, "://www.reddit.com", "://old.reddit.com", 1)
	return strings.Replace(link, "://reddit.com", "://old.reddit.com", 1)
}

func domainOf(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
