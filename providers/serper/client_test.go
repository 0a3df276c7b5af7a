package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"worth-watch/config"
	"worth-watch/providers"
)

func TestBlockedDomain(t *testing.T) {
	assert.True(t, blockedDomain("https://www.imdb.com/title/tt0111161/"))
	assert.True(t, blockedDomain("https://www.youtube.com/watch?v=abc"))
	assert.False(t, blockedDomain("https://variety.com/review"))
}

func TestSearchFailsOverToFallbackKey(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			assert.Equal(t, "primary", r.Header.Get("X-API-KEY"))
			w.WriteHeader(http.StatusPaymentRequired)
			return
		}
		assert.Equal(t, "fallback", r.Header.Get("X-API-KEY"))
		w.Write([]byte(`{"organic": [
			{"title": "Dune review", "link": "https://variety.com/dune", "snippet": "spectacle"},
			{"title": "Dune on IMDb", "link": "https://www.imdb.com/title/tt1160419/", "snippet": "blocked"}
		]}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		SerperBaseURL:     srv.URL,
		SerperAPIKey:      "primary",
		SerperFallbackKey: "fallback",
	}
	client := NewClient(cfg, zap.NewNop())

	results, err := client.Search(context.Background(), "dune review", 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, results, 1, "blocklisted domains are filtered out")
	assert.Equal(t, "https://variety.com/dune", results[0].Link)
}

func TestSearchFailsWithoutFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(&config.Config{SerperBaseURL: srv.URL, SerperAPIKey: "primary"}, zap.NewNop())
	_, err := client.Search(context.Background(), "dune review", 10)
	assert.Error(t, err)
}

func TestVariantQueries(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Q string `json:"q"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body.Q
		w.Write([]byte(`{"organic": []}`))
	}))
	defer srv.Close()

	client := NewClient(&config.Config{SerperBaseURL: srv.URL, SerperAPIKey: "k"}, zap.NewNop())
	q := providers.Query{Title: "Up", Year: "2009", MediaType: "movie", Extra: "Pete Docter"}

	_, err := NewReddit(client).Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, `"Up" 2009 Pete Docter movie reddit`, gotQuery)

	_, err = NewCritic(client).Search(context.Background(), providers.Query{Title: "The Bear", MediaType: "tv"})
	require.NoError(t, err)
	assert.Equal(t, `"The Bear" TV series review opinion`, gotQuery)
}
