package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"worth-watch/config"
	"worth-watch/models"
	"worth-watch/providers/omdb"
)

// tagVocabulary is the closed set of tags a review may carry.
var tagVocabulary = []string{
	"slow-burn", "action-packed", "tearjerker", "feel-good", "mind-bending",
	"binge-worthy", "visually-stunning", "dialogue-heavy", "plot-driven",
	"character-driven", "comfort-watch", "date-night", "family-friendly",
	"not-for-kids", "cult-classic", "critically-acclaimed", "crowd-pleaser",
	"divisive", "underrated-gem", "overhyped", "background-watch",
	"edge-of-your-seat", "so-bad-its-good", "oscar-bait", "popcorn-flick",
}

// fallbackPraise fills the praise list when the model finds nothing to like.
// The field must never be empty.
var fallbackPraise = []string{
	"It exists, which is more than most script drafts can say",
	"The runtime eventually ends",
	"Watching it counts as quality time with your couch",
}

const maxTagLength = 25

// VerdictDraft is the structured output demanded from the generative
// provider, before the policy layer touches it.
type VerdictDraft struct {
	Verdict         string   `json:"verdict"`
	ReviewText      string   `json:"review_text"`
	PraisePoints    []string `json:"praise_points"`
	CriticismPoints []string `json:"criticism_points"`
	Confidence      string   `json:"confidence"`
	Tags            []string `json:"tags"`
	BestQuote       string   `json:"best_quote"`
	QuoteSource     string   `json:"quote_source"`
	Vibe            string   `json:"vibe"`
	PositivePct     int      `json:"positive_pct"`
	NegativePct     int      `json:"negative_pct"`
	MixedPct        int      `json:"mixed_pct"`

	// Model records which provider/model produced the draft. "none" marks
	// the static degraded result.
	Model string `json:"-"`
}

// generator abstracts one generative backend.
type generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
	Model() string
}

type openaiGenerator struct {
	client *openai.Client
	model  string
}

func (g *openaiGenerator) Model() string { return g.model }

func (g *openaiGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", g.model)
	}
	return resp.Choices[0].Message.Content, nil
}

type anthropicGenerator struct {
	client *anthropic.Client
	model  anthropic.Model
}

func (g *anthropicGenerator) Model() string { return string(g.model) }

func (g *anthropicGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     g.model,
		System:    system,
		MaxTokens: 2000,
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{{Type: "text", Text: &user}},
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("%s returned empty content", g.model)
	}
	return resp.Content[0].GetText(), nil
}

// Synthesizer turns an opinion corpus into a structured verdict, failing over
// across providers and always returning some usable draft.
type Synthesizer struct {
	Config     *config.Config
	Logger     *zap.Logger
	generators []generator
}

// NewSynthesizer builds the provider chain from configuration. The configured
// primary comes first, every other keyed provider becomes a fallback.
func NewSynthesizer(cfg *config.Config, logger *zap.Logger) *Synthesizer {
	s := &Synthesizer{Config: cfg, Logger: logger}

	var deepseek, oai, claude generator
	if cfg.DeepSeekAPIKey != "" {
		dc := openai.DefaultConfig(cfg.DeepSeekAPIKey)
		dc.BaseURL = cfg.DeepSeekBaseURL
		deepseek = &openaiGenerator{client: openai.NewClientWithConfig(dc), model: "deepseek-chat"}
	}
	if cfg.OpenAIAPIKey != "" {
		oai = &openaiGenerator{client: openai.NewClient(cfg.OpenAIAPIKey), model: openai.GPT4oMini}
	}
	if cfg.AnthropicAPIKey != "" {
		claude = &anthropicGenerator{client: anthropic.NewClient(cfg.AnthropicAPIKey), model: anthropic.Model("claude-3-5-sonnet-latest")}
	}

	ordered := []generator{deepseek, oai, claude}
	switch cfg.LLMProvider {
	case "openai":
		ordered = []generator{oai, deepseek, claude}
	case "anthropic":
		ordered = []generator{claude, deepseek, oai}
	}
	for _, g := range ordered {
		if g != nil {
			s.generators = append(s.generators, g)
		}
	}
	return s
}

// SynthesisInput carries everything the prompt needs.
type SynthesisInput struct {
	Title  *models.Title
	Corpus Corpus
	Scores omdb.Scores
	Tier   string
}

// Synthesize runs the failover chain: every configured provider gets the
// corpus prompt once; if all fail, every provider gets a knowledge-only
// prompt; if that fails too, a static degraded draft is returned. The caller
// never sees an error from a provider outage.
func (s *Synthesizer) Synthesize(ctx context.Context, in SynthesisInput) *VerdictDraft {
	system, user := s.buildPrompt(in)
	if draft := s.tryAll(ctx, system, user, "corpus"); draft != nil {
		return draft
	}

	llmFailovers.WithLabelValues("knowledge-only").Inc()
	s.Logger.Warn("All corpus-backed generations failed, falling back to model knowledge",
		zap.String("title", in.Title.Name))
	system, user = s.buildKnowledgePrompt(in)
	if draft := s.tryAll(ctx, system, user, "knowledge"); draft != nil {
		return draft
	}

	llmFailovers.WithLabelValues("degraded").Inc()
	s.Logger.Error("Review generation fully degraded",
		zap.String("title", in.Title.Name), zap.Error(ErrGenerationFailed))
	return degradedDraft(in.Title)
}

func (s *Synthesizer) tryAll(ctx context.Context, system, user, stage string) *VerdictDraft {
	for _, g := range s.generators {
		raw, err := g.Generate(ctx, system, user)
		if err != nil {
			llmFailovers.WithLabelValues(stage).Inc()
			s.Logger.Warn("Generation attempt failed",
				zap.String("model", g.Model()),
				zap.String("stage", stage),
				zap.Error(err))
			continue
		}
		draft, err := parseDraft(raw)
		if err != nil {
			llmFailovers.WithLabelValues(stage).Inc()
			s.Logger.Warn("Generation returned unusable JSON",
				zap.String("model", g.Model()),
				zap.Error(err))
			continue
		}
		draft.Model = g.Model()
		postProcess(draft)
		return draft
	}
	return nil
}

func (s *Synthesizer) buildPrompt(in SynthesisInput) (system, user string) {
	system = "You are a brutally honest friend who tells people whether a film or show is worth their time. " +
		"You have read what critics and regular viewers actually said. Answer ONLY with a single JSON object, no markdown, " +
		`with exactly these fields: {"verdict": "WORTH IT"|"NOT WORTH IT"|"MIXED BAG", "review_text": string, ` +
		`"praise_points": [string], "criticism_points": [string], "confidence": "HIGH"|"MEDIUM"|"LOW", ` +
		`"tags": [string], "best_quote": string, "quote_source": string, "vibe": string, ` +
		`"positive_pct": int, "negative_pct": int, "mixed_pct": int}. ` +
		"The three percentages must sum to exactly 100. praise_points must never be empty; if there is truly nothing " +
		"to praise, invent one witty consolation entry. Tags must come from this list: " +
		strings.Join(tagVocabulary, ", ") + "."

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s", in.Title.Name)
	if y := in.Title.Year(); y != "" {
		fmt.Fprintf(&b, " (%s)", y)
	}
	fmt.Fprintf(&b, "\nType: %s\n", in.Title.MediaType)
	if genres := genreList(in.Title); genres != "" {
		fmt.Fprintf(&b, "Genres: %s\n", genres)
	}

	// Prefer the per-title IMDb rating over the metadata provider's generic
	// popularity average when both exist.
	if in.Scores.HasIMDB() {
		fmt.Fprintf(&b, "IMDb rating: %.1f/10 (%d votes)\n", in.Scores.IMDBScore, in.Scores.IMDBVotes)
	} else if in.Title.VoteAverage > 0 {
		fmt.Fprintf(&b, "Audience rating: %.1f/10 (%d votes)\n", in.Title.VoteAverage, in.Title.VoteCount)
	}
	if in.Scores.RTCriticScore > 0 {
		fmt.Fprintf(&b, "Rotten Tomatoes critics: %d%%\n", in.Scores.RTCriticScore)
	}
	if in.Scores.Metascore > 0 {
		fmt.Fprintf(&b, "Metascore: %d\n", in.Scores.Metascore)
	}

	b.WriteString("\n")
	b.WriteString(tierInstruction(in.Tier))
	b.WriteString("\n\nWhat people are saying (each block is labeled with its source):\n\n")
	b.WriteString(in.Corpus.Text)
	return system, b.String()
}

// buildKnowledgePrompt asks the model to answer from its own training data.
// Used only when every corpus-backed attempt has failed.
func (s *Synthesizer) buildKnowledgePrompt(in SynthesisInput) (system, user string) {
	system, _ = s.buildPrompt(in)

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s", in.Title.Name)
	if y := in.Title.Year(); y != "" {
		fmt.Fprintf(&b, " (%s)", y)
	}
	fmt.Fprintf(&b, "\nType: %s\n\n", in.Title.MediaType)
	b.WriteString("No review sources could be gathered. Answer from your general knowledge of this title's reception. ")
	b.WriteString("If you do not recognize it, say so honestly in review_text, use verdict MIXED BAG, ")
	b.WriteString("confidence LOW and a balanced sentiment split.")
	return system, b.String()
}

// tierInstruction keeps the model from whining about its evidence. The user
// gets a confident verdict; the stored confidence tier tells the real story.
func tierInstruction(tier string) string {
	switch tier {
	case models.ConfidenceHigh:
		return "You have plenty of evidence. Be specific and decisive; cite the recurring themes from the sources."
	case models.ConfidenceMedium:
		return "Evidence is moderate. Be decisive anyway and lean on the strongest recurring opinions. " +
			"Never mention limited data or sample size in your answer."
	default:
		return "Evidence is thin, but the reader must not know that. Give your best confident read from what exists " +
			"plus the ratings. Never mention limited data, missing sources or uncertainty about your information."
	}
}

// parseDraft extracts and validates the JSON object from a model response,
// tolerating markdown fences and leading prose.
func parseDraft(raw string) (*VerdictDraft, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var d VerdictDraft
	if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}

	switch d.Verdict {
	case models.VerdictWorthIt, models.VerdictNotWorthIt, models.VerdictMixedBag:
	default:
		return nil, fmt.Errorf("invalid verdict %q", d.Verdict)
	}
	if d.ReviewText == "" {
		return nil, fmt.Errorf("empty review_text")
	}
	return &d, nil
}

// postProcess repairs the cosmetic damage models reliably inflict. Runs on
// every successful draft regardless of which provider produced it.
func postProcess(d *VerdictDraft) {
	d.ReviewText = stripQuotes(d.ReviewText)
	d.BestQuote = stripQuotes(d.BestQuote)
	d.QuoteSource = stripQuotes(d.QuoteSource)
	d.Vibe = stripQuotes(d.Vibe)

	var tags []string
	for _, t := range d.Tags {
		t = strings.TrimSpace(strings.ToLower(stripQuotes(t)))
		if t == "" {
			continue
		}
		if len(t) > maxTagLength {
			// Models sometimes glue several tags into one string. Recover
			// the canonical ones by substring match.
			tags = append(tags, splitGluedTag(t)...)
			continue
		}
		tags = append(tags, t)
	}
	d.Tags = dedupeStrings(tags)

	if len(d.PraisePoints) == 0 {
		d.PraisePoints = []string{fallbackPraise[len(d.ReviewText)%len(fallbackPraise)]}
	}
}

func splitGluedTag(glued string) []string {
	var out []string
	for _, canonical := range tagVocabulary {
		if strings.Contains(glued, canonical) {
			out = append(out, canonical)
		}
	}
	return out
}

func stripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'“”‘’`)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// degradedDraft is the static last-resort answer when every provider is down.
func degradedDraft(title *models.Title) *VerdictDraft {
	return &VerdictDraft{
		Verdict: models.VerdictMixedBag,
		ReviewText: fmt.Sprintf("We couldn't reach our review sources for %s just now. "+
			"Check back in a bit for the full verdict.", title.Name),
		PraisePoints:    []string{"Patience is a virtue, and you're about to practice it"},
		CriticismPoints: []string{"Our crystal ball is temporarily out of order"},
		Confidence:      models.ConfidenceLow,
		Vibe:            "mysterious",
		PositivePct:     34,
		NegativePct:     33,
		MixedPct:        33,
		Model:           "none",
	}
}

func genreList(t *models.Title) string {
	if len(t.Genres) == 0 {
		return ""
	}
	var genres []string
	if err := json.Unmarshal(t.Genres, &genres); err != nil {
		return ""
	}
	return strings.Join(genres, ", ")
}
