package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"worth-watch/config"
	"worth-watch/models"
	"worth-watch/providers"
	"worth-watch/providers/omdb"
	"worth-watch/providers/tmdb"
	"worth-watch/storage"
)

// GatherResult is what a strategy hands to the synthesis stage.
type GatherResult struct {
	Corpus  Corpus
	Scores  omdb.Scores
	Results []providers.SearchResult
}

// Strategy is the swappable orchestration of the evidence-gathering half of
// the pipeline (search, select, fetch, extract). Synthesis, policy and
// persistence are identical across strategies.
type Strategy interface {
	Name() string
	Gather(ctx context.Context, q providers.Query, tmdbID uint) (GatherResult, error)
}

// Pipeline runs the full flow from a title id to a persisted review.
type Pipeline struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Metadata    *tmdb.Fetcher
	Aggregator  *Aggregator
	Retriever   *Retriever
	Synthesizer *Synthesizer
	Progress    *ProgressTracker
	Archive     *storage.Archive

	strategy Strategy
}

// NewPipeline wires the pipeline and picks the gathering strategy from
// configuration ("linear" or "adaptive").
func NewPipeline(cfg *config.Config, logger *zap.Logger, db *gorm.DB, metadata *tmdb.Fetcher,
	agg *Aggregator, retr *Retriever, synth *Synthesizer, progress *ProgressTracker,
	archive *storage.Archive) *Pipeline {

	p := &Pipeline{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		Metadata:    metadata,
		Aggregator:  agg,
		Retriever:   retr,
		Synthesizer: synth,
		Progress:    progress,
		Archive:     archive,
	}
	if cfg.PipelineStrategy == "adaptive" {
		p.strategy = &AdaptiveStrategy{p: p}
	} else {
		p.strategy = &LinearStrategy{p: p}
	}
	logger.Info("Pipeline ready", zap.String("strategy", p.strategy.Name()))
	return p
}

// minBackfillDocs is the article count under which the backfill list is
// fetched on top of the primary selection.
const minBackfillDocs = 3

// GenerateReview runs the whole pipeline for one title and persists the
// result. It always produces a review when the title itself resolves; source
// and provider failures degrade the output instead of failing the call.
func (p *Pipeline) GenerateReview(ctx context.Context, tmdbID uint, mediaType string) (*models.Review, error) {
	log := p.Logger.With(zap.Uint("tmdb_id", tmdbID), zap.String("media_type", mediaType))
	start := time.Now()

	p.Progress.Set(tmdbID, StageSearching, 5)
	defer p.Progress.Remove(tmdbID)

	title, err := p.getOrCreateTitle(ctx, tmdbID, mediaType)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("title", title.Name))

	q := providers.Query{
		Title:     title.Name,
		Year:      title.Year(),
		MediaType: title.MediaType,
	}
	// Short titles collide with unrelated phrases; the director's name
	// anchors the searches. Fetched once, best effort.
	if len(strings.Fields(title.Name)) <= 3 {
		if director, err := p.Metadata.Director(ctx, tmdbID, mediaType); err == nil {
			q.Extra = director
		}
	}

	gathered, err := p.strategy.Gather(ctx, q, tmdbID)
	if err != nil && !errors.Is(err, ErrNoSources) {
		return nil, err
	}

	// Snippet fallback: nothing fetchable but the searches did return hits,
	// so their snippets become the corpus rather than generating blind.
	if gathered.Corpus.Chars() == 0 && len(gathered.Results) > 0 {
		log.Warn("No article content retrieved, falling back to search snippets")
		gathered.Corpus = snippetCorpus(gathered.Results, p.Config.CorpusMaxChars)
	}

	p.Progress.Set(tmdbID, StageAnalyzing, 60)

	now := time.Now()
	days, hasRelease := title.DaysSinceRelease(now)
	stats := ConfidenceStats{
		ArticlesRead:      gathered.Corpus.ArticlesRead,
		RedditSources:     gathered.Corpus.RedditSources,
		CorpusChars:       gathered.Corpus.Chars(),
		DaysSinceRelease:  days,
		HasReleaseDate:    hasRelease,
		ExternalVoteCount: externalVotes(title, gathered.Scores),
	}
	confidence := ScoreConfidence(stats)
	if len(gathered.Results) == 0 {
		// Total search failure: the verdict comes from metadata and model
		// knowledge alone and must say so in its tier.
		confidence = ConfidenceResult{Score: 0, Tier: models.ConfidenceLow}
	}

	p.Progress.Set(tmdbID, StageWriting, 80)

	draft := p.Synthesizer.Synthesize(ctx, SynthesisInput{
		Title:  title,
		Corpus: gathered.Corpus,
		Scores: gathered.Scores,
		Tier:   confidence.Tier,
	})

	ApplyVerdictPolicy(PolicyInput{
		Draft:      draft,
		Override:   ResolveOverride(title, gathered.Scores),
		Confidence: confidence,
		Stats:      stats,
	}, log)

	p.archiveCorpus(ctx, tmdbID, gathered.Corpus)

	review, err := p.saveReview(title, draft, gathered, confidence, now)
	if err != nil {
		return nil, err
	}

	reviewsGenerated.WithLabelValues(review.Verdict).Inc()
	log.Info("Review generated",
		zap.String("verdict", review.Verdict),
		zap.String("confidence", review.Confidence),
		zap.Int("sources", review.SourcesCount),
		zap.Duration("took", time.Since(start)))
	return review, nil
}

// getOrCreateTitle resolves the title row, creating it from provider metadata
// on first reference. Two concurrent first requests can both attempt the
// insert; the loser detects the duplicate key and re-reads the winner's row.
func (p *Pipeline) getOrCreateTitle(ctx context.Context, tmdbID uint, mediaType string) (*models.Title, error) {
	var title models.Title
	err := p.DB.WithContext(ctx).Where("tmdb_id = ?", tmdbID).First(&title).Error
	if err == nil {
		return &title, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load title: %w", err)
	}

	details, err := p.Metadata.Details(ctx, tmdbID, mediaType)
	if err != nil {
		return nil, fmt.Errorf("metadata lookup: %w", err)
	}

	title = models.Title{
		TMDBID:       tmdbID,
		Name:         details.DisplayTitle(),
		MediaType:    mediaType,
		Overview:     details.Overview,
		PosterPath:   details.PosterPath,
		BackdropPath: details.BackdropPath,
		Popularity:   details.Popularity,
		VoteAverage:  details.VoteAverage,
		VoteCount:    details.VoteCount,
	}
	if rel := details.Release(); rel != "" {
		if t, err := time.Parse("2006-01-02", rel); err == nil {
			title.ReleaseDate = &t
		}
	}
	if len(details.Genres) > 0 {
		names := make([]string, 0, len(details.Genres))
		for _, g := range details.Genres {
			names = append(names, g.Name)
		}
		title.Genres = mustJSON(names)
	}

	if err := p.DB.WithContext(ctx).Create(&title).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			p.Logger.Debug("Lost title insert race, re-reading",
				zap.Uint("tmdb_id", tmdbID), zap.Error(ErrDuplicateTitle))
			var existing models.Title
			if rerr := p.DB.WithContext(ctx).Where("tmdb_id = ?", tmdbID).First(&existing).Error; rerr != nil {
				return nil, fmt.Errorf("re-read after insert race: %w", rerr)
			}
			return &existing, nil
		}
		return nil, fmt.Errorf("create title: %w", err)
	}
	return &title, nil
}

// saveReview upserts the one review row per title in place.
func (p *Pipeline) saveReview(title *models.Title, draft *VerdictDraft, gathered GatherResult,
	confidence ConfidenceResult, now time.Time) (*models.Review, error) {

	review := models.Review{
		TitleID:         title.ID,
		Verdict:         draft.Verdict,
		ReviewText:      draft.ReviewText,
		PraisePoints:    mustJSON(draft.PraisePoints),
		CriticismPoints: mustJSON(draft.CriticismPoints),
		Vibe:            draft.Vibe,
		Confidence:      confidence.Tier,
		PositivePct:     draft.PositivePct,
		NegativePct:     draft.NegativePct,
		MixedPct:        draft.MixedPct,
		Tags:            mustJSON(draft.Tags),
		BestQuote:       draft.BestQuote,
		QuoteSource:     draft.QuoteSource,
		IMDBScore:       gathered.Scores.IMDBScore,
		IMDBVotes:       gathered.Scores.IMDBVotes,
		RTCriticScore:   gathered.Scores.RTCriticScore,
		Metascore:       gathered.Scores.Metascore,
		SourcesCount:    gathered.Corpus.ArticlesRead + gathered.Corpus.RedditSources,
		SourcesURLs:     mustJSON(gathered.Corpus.SourceURLs),
		LLMModel:        draft.Model,
		GeneratedAt:     now,
		LastRefreshedAt: &now,
	}

	err := p.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "title_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"verdict", "review_text", "praise_points", "criticism_points",
			"vibe", "confidence", "positive_pct", "negative_pct", "mixed_pct",
			"tags", "best_quote", "quote_source", "imdb_score", "imdb_votes",
			"rt_critic_score", "metascore", "sources_count", "sources_urls",
			"llm_model", "generated_at", "last_refreshed_at", "updated_at",
		}),
	}).Create(&review).Error
	if err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}
	return &review, nil
}

// archiveCorpus uploads the corpus for later audit. Best effort; an archive
// outage never touches the run.
func (p *Pipeline) archiveCorpus(ctx context.Context, tmdbID uint, corpus Corpus) {
	if p.Archive == nil || corpus.Chars() == 0 {
		return
	}
	link, err := p.Archive.StoreCorpus(ctx, tmdbID, corpus.Text)
	if err != nil {
		p.Logger.Warn("Corpus archive failed", zap.Uint("tmdb_id", tmdbID), zap.Error(err))
		return
	}
	p.Logger.Debug("Corpus archived", zap.String("link", link))
}

// RefreshStale finds reviews past their TTL and re-runs the pipeline for up
// to the configured batch size, newest releases first.
func (p *Pipeline) RefreshStale(ctx context.Context) {
	now := time.Now()

	// Reviews younger than the shortest TTL cannot be stale under any release
	// age, so the database filters them out before the per-title check.
	var titles []models.Title
	err := p.DB.WithContext(ctx).
		Preload("Review").
		Joins("JOIN reviews ON reviews.title_id = titles.id").
		Where("reviews.generated_at < ?", now.Add(-minReviewTTL)).
		Order("titles.release_date DESC NULLS LAST").
		Find(&titles).Error
	if err != nil {
		p.Logger.Error("Stale sweep query failed", zap.Error(err))
		return
	}
	refreshed := 0
	for _, t := range titles {
		if refreshed >= p.Config.SweepBatchSize {
			break
		}
		if !IsReviewStale(t.Review, &t, now) {
			continue
		}
		p.Logger.Info("Refreshing stale review",
			zap.String("title", t.Name), zap.Uint("tmdb_id", t.TMDBID))
		if _, err := p.GenerateReview(ctx, t.TMDBID, t.MediaType); err != nil {
			p.Logger.Error("Stale refresh failed", zap.String("title", t.Name), zap.Error(err))
			continue
		}
		sweepRegenerations.Inc()
		refreshed++
	}
	if refreshed > 0 {
		p.Logger.Info("Freshness sweep done", zap.Int("refreshed", refreshed))
	}
}

// gatherOnce is one search-select-fetch-extract round, shared by both
// strategies.
func (p *Pipeline) gatherOnce(ctx context.Context, q providers.Query, tmdbID uint) (GatherResult, error) {
	aggregated, err := p.Aggregator.Search(ctx, q)
	if err != nil {
		return GatherResult{}, err
	}
	if len(aggregated.Results) == 0 {
		return GatherResult{Scores: aggregated.Scores}, ErrNoSources
	}

	selection := SelectSources(aggregated.Results, p.Config.MaxSources)

	p.Progress.Set(tmdbID, StageReading, 30)
	docs := p.Retriever.FetchAll(ctx, selection.Primary)

	if articleCount(docs) < minBackfillDocs && len(selection.Backfill) > 0 {
		p.Logger.Info("Primary fetch under-delivered, trying backfill",
			zap.Int("articles", articleCount(docs)), zap.Int("backfill", len(selection.Backfill)))
		docs = append(docs, p.Retriever.FetchAll(ctx, selection.Backfill)...)
	}

	corpus := BuildCorpus(docs, redditSnippets(selection.Primary, docs), p.Config.CorpusMaxChars)
	return GatherResult{Corpus: corpus, Scores: aggregated.Scores, Results: aggregated.Results}, nil
}

// LinearStrategy is the straightforward single-pass flow.
type LinearStrategy struct {
	p *Pipeline
}

func (s *LinearStrategy) Name() string { return "linear" }

func (s *LinearStrategy) Gather(ctx context.Context, q providers.Query, tmdbID uint) (GatherResult, error) {
	return s.p.gatherOnce(ctx, q, tmdbID)
}

// AdaptiveStrategy re-searches with a broadened query when the first round
// comes back thin. At most two rounds; results of both are merged.
type AdaptiveStrategy struct {
	p *Pipeline
}

// thinCorpusChars is the volume under which the adaptive strategy broadens.
const thinCorpusChars = 3000

func (s *AdaptiveStrategy) Name() string { return "adaptive" }

func (s *AdaptiveStrategy) Gather(ctx context.Context, q providers.Query, tmdbID uint) (GatherResult, error) {
	first, err := s.p.gatherOnce(ctx, q, tmdbID)
	if err != nil && !errors.Is(err, ErrNoSources) {
		return first, err
	}
	if first.Corpus.Chars() >= thinCorpusChars {
		return first, nil
	}

	// Broaden: drop the disambiguation anchor and the year, which both
	// over-constrain searches for niche titles.
	broad := providers.Query{Title: q.Title, MediaType: q.MediaType}
	if broad == q {
		return first, err
	}
	s.p.Logger.Info("Corpus too thin, broadening search",
		zap.String("title", q.Title), zap.Int("chars", first.Corpus.Chars()))

	second, serr := s.p.gatherOnce(ctx, broad, tmdbID)
	if serr != nil {
		return first, err
	}
	if second.Corpus.Chars() > first.Corpus.Chars() {
		second.Results = dedupeByLink(append(first.Results, second.Results...))
		if !second.Scores.HasIMDB() {
			second.Scores = first.Scores
		}
		return second, nil
	}
	return first, err
}

func articleCount(docs []FetchedDoc) int {
	n := 0
	for _, d := range docs {
		if !d.IsReddit {
			n++
		}
	}
	return n
}

// redditSnippets returns the community search results whose pages were not
// fetched, so their snippets still reach the corpus directly.
func redditSnippets(selected []providers.SearchResult, docs []FetchedDoc) []providers.SearchResult {
	fetched := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.IsReddit {
			fetched[normalizeLink(strings.ToLower(d.URL))] = true
		}
	}
	var out []providers.SearchResult
	for _, r := range selected {
		if !isRedditLink(r.Link) {
			continue
		}
		if !fetched[normalizeLink(strings.ToLower(r.Link))] {
			out = append(out, r)
		}
	}
	return out
}

func externalVotes(title *models.Title, scores omdb.Scores) int {
	if scores.IMDBVotes > title.VoteCount {
		return scores.IMDBVotes
	}
	return title.VoteCount
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}

// snippetCorpus packs search-result snippets under the same character budget
// the regular corpus builder enforces.
func snippetCorpus(results []providers.SearchResult, maxChars int) Corpus {
	var c Corpus
	var parts []string
	chars := 0
	for _, r := range results {
		snippet := strings.TrimSpace(r.Snippet)
		if len(snippet) < minParagraphChars {
			continue
		}
		block := fmt.Sprintf("[%s] %s", domainOf(r.Link), snippet)
		if chars+len(block) > maxChars {
			break
		}
		parts = append(parts, block)
		chars += len(block) + 2
		c.SourceURLs = append(c.SourceURLs, r.Link)
		if isRedditLink(r.Link) {
			c.RedditSources++
		}
	}
	c.Text = strings.Join(parts, "\n\n")
	if len(c.Text) > maxChars {
		c.Text = truncateAtSentence(c.Text, maxChars)
	}
	return c
}
