package serper

import (
	"context"
	"fmt"
	"strings"

	"worth-watch/providers"
)

// Variant is one query template over the shared search client. The templates
// differ only in the terms added to the title, steering results toward
// critic reviews, Reddit threads, or general forum discussion.
type Variant struct {
	client  *Client
	name    string
	suffix  string // appended after title/year/type hint
	numHits int
}

func (v *Variant) Name() string { return v.name }

func (v *Variant) Search(ctx context.Context, q providers.Query) ([]providers.SearchResult, error) {
	hint := v.typeHint(q.MediaType)
	query := strings.TrimSpace(fmt.Sprintf("%q %s %s %s %s", q.Title, q.Year, q.Extra, hint, v.suffix))
	return v.client.Search(ctx, strings.Join(strings.Fields(query), " "), v.numHits)
}

func (v *Variant) typeHint(mediaType string) string {
	if mediaType == "tv" {
		if v.name == "serper-critic" {
			return "TV series"
		}
		return "TV show"
	}
	return "movie"
}

// NewCritic searches for professional review articles.
func NewCritic(c *Client) *Variant {
	return &Variant{client: c, name: "serper-critic", suffix: "review opinion", numHits: 20}
}

// NewReddit searches Reddit discussions through the web index.
func NewReddit(c *Client) *Variant {
	return &Variant{client: c, name: "serper-reddit", suffix: "reddit", numHits: 15}
}

// NewForum searches general forum and blog opinion.
func NewForum(c *Client) *Variant {
	return &Variant{client: c, name: "serper-forum", suffix: "review discussion opinions worth watching", numHits: 10}
}
