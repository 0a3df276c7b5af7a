package services

import (
	"fmt"
	"sort"
	"strings"

	"worth-watch/providers"
)

// Keyword families for paragraph classification. A paragraph survives when it
// carries opinion vocabulary and no synopsis/promo markers.
var positiveKeywords = []string{
	"amazing", "great", "terrible", "boring", "loved", "hated", "masterpiece",
	"disappointing", "worth", "waste", "overrated", "underrated", "brilliant",
	"awful", "enjoyed", "fantastic", "mediocre", "stunning", "beautiful",
	"compelling", "predictable", "dull", "gripping", "emotional", "funny",
	"hilarious", "tedious", "flawed", "perfect", "solid", "weak", "strong",
	"impressive", "forgettable", "memorable", "performance", "acting",
	"direction", "screenplay", "pacing", "cinematography", "dialogue",
	"soundtrack", "script", "characters", "recommend", "verdict", "rating",
	"stars", "favorite", "favourite", "best", "worst", "must-watch", "skip",
	"rewatch", "binge", "payoff", "slog",
}

// strongKeywords is the subset decisive enough to accept a short paragraph.
// "The movie is long." has no business in the corpus; "Masterpiece." does.
var strongKeywords = []string{
	"masterpiece", "terrible", "amazing", "awful", "brilliant",
	"disappointing", "boring", "loved", "hated", "waste", "worth",
	"recommend", "overrated", "underrated", "must-watch", "worst", "best",
	"fantastic", "gripping", "hilarious", "unwatchable", "perfection",
}

// discardKeywords mark synopsis, promo and navigation text. One hit discards
// the paragraph regardless of opinion vocabulary.
var discardKeywords = []string{
	"plot summary", "synopsis", "box office", "release date", "runtime",
	"streaming on", "available on", "where to watch", "watch now",
	"buy tickets", "watch trailer", "official trailer", "episode guide",
	"cast includes", "full cast", "copyright", "press release",
	"in theaters", "now playing", "pre-order", "click here",
}

const (
	minParagraphChars    = 30
	shortParagraphChars  = 100
	maxParagraphChars    = 2000
	similarityThreshold  = 0.8
	similarityPrefixLen  = 200
	lengthRatioPrefilter = 0.5
)

// redditReservedShare of the corpus budget is held for community content so
// article text can never truncate it away.
const redditReservedShare = 3

// Corpus is the labeled opinion text fed to the generative provider, plus
// the retrieval statistics the confidence scorer needs.
type Corpus struct {
	Text          string
	ArticlesRead  int
	RedditSources int
	SourceURLs    []string
}

// Chars returns the opinion character volume.
func (c Corpus) Chars() int { return len(c.Text) }

// BuildCorpus filters fetched documents down to opinion paragraphs, labels
// them by source domain and concatenates everything under maxChars. Community
// snippets taken directly from search results bypass the keyword filter
// (they are already pure opinion), come first and own a reserved budget.
func BuildCorpus(docs []FetchedDoc, redditSnippets []providers.SearchResult, maxChars int) Corpus {
	var corpus Corpus

	redditBudget := maxChars / redditReservedShare
	var redditParts []string
	redditChars := 0

	for _, s := range redditSnippets {
		snippet := strings.TrimSpace(s.Snippet)
		if len(snippet) < minParagraphChars {
			continue
		}
		block := fmt.Sprintf("[reddit.com] %s", snippet)
		if redditChars+len(block) > redditBudget {
			break
		}
		redditParts = append(redditParts, block)
		redditChars += len(block) + 2
		corpus.RedditSources++
		corpus.SourceURLs = append(corpus.SourceURLs, s.Link)
	}

	for _, doc := range docs {
		if !doc.IsReddit {
			continue
		}
		block := buildBlock(doc, extractOpinions(doc.Paragraphs))
		if block == "" || redditChars+len(block) > redditBudget {
			continue
		}
		redditParts = append(redditParts, block)
		redditChars += len(block) + 2
		corpus.RedditSources++
		corpus.SourceURLs = append(corpus.SourceURLs, doc.URL)
	}

	articleBudget := maxChars - redditChars
	var articleParts []string
	articleChars := 0

	for _, doc := range docs {
		if doc.IsReddit {
			continue
		}
		block := buildBlock(doc, extractOpinions(doc.Paragraphs))
		if block == "" {
			continue
		}
		if articleChars+len(block) > articleBudget {
			remaining := articleBudget - articleChars
			if remaining < minParagraphChars {
				break
			}
			block = truncateAtSentence(block, remaining)
			if block == "" {
				break
			}
		}
		articleParts = append(articleParts, block)
		articleChars += len(block) + 2
		corpus.ArticlesRead++
		corpus.SourceURLs = append(corpus.SourceURLs, doc.URL)
	}

	corpus.Text = strings.Join(append(redditParts, articleParts...), "\n\n")
	if len(corpus.Text) > maxChars {
		corpus.Text = truncateAtSentence(corpus.Text, maxChars)
	}
	return corpus
}

// extractOpinions keeps opinion paragraphs, ranks them by keyword density
// and collapses near-duplicates.
func extractOpinions(paragraphs []string) []string {
	type scored struct {
		text string
		hits int
	}

	var kept []scored
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if len(p) < minParagraphChars {
			continue
		}
		if len(p) > maxParagraphChars {
			p = truncateAtSentence(p, maxParagraphChars)
		}
		l := strings.ToLower(p)

		if containsAny(l, discardKeywords) {
			continue
		}

		hits := countHits(l, positiveKeywords)
		if len(p) <= shortParagraphChars {
			// Short lines need a decisive word, not just review vocabulary.
			if countHits(l, strongKeywords) == 0 {
				continue
			}
		} else if hits == 0 {
			continue
		}
		kept = append(kept, scored{text: p, hits: hits})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		di := float64(kept[i].hits) / float64(len(kept[i].text))
		dj := float64(kept[j].hits) / float64(len(kept[j].text))
		return di > dj
	})

	var out []string
	for _, s := range kept {
		if isNearDuplicate(s.text, out) {
			continue
		}
		out = append(out, s.text)
	}
	return out
}

// isNearDuplicate compares against already-kept paragraphs over the first
// similarityPrefixLen lowercased characters. A cheap length-ratio check runs
// first so most pairs never reach the similarity computation.
func isNearDuplicate(text string, kept []string) bool {
	a := similarityKey(text)
	for _, k := range kept {
		b := similarityKey(k)
		shorter, longer := len(a), len(b)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if longer == 0 || float64(shorter)/float64(longer) < lengthRatioPrefilter {
			continue
		}
		if bigramSimilarity(a, b) >= similarityThreshold {
			return true
		}
	}
	return false
}

func similarityKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) > similarityPrefixLen {
		s = s[:similarityPrefixLen]
	}
	return s
}

// bigramSimilarity is the Sorensen-Dice coefficient over character bigrams.
func bigramSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}
	counts := make(map[string]int)
	for i := 0; i+2 <= len(a); i++ {
		counts[a[i:i+2]]++
	}
	matches := 0
	for i := 0; i+2 <= len(b); i++ {
		bg := b[i : i+2]
		if counts[bg] > 0 {
			counts[bg]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(len(a)+len(b)-2)
}

func buildBlock(doc FetchedDoc, paragraphs []string) string {
	if len(paragraphs) == 0 {
		return ""
	}
	return fmt.Sprintf("[%s]\n%s", doc.Domain, strings.Join(paragraphs, "\n"))
}

// truncateAtSentence cuts text to at most max characters, preferring the last
// full sentence so the provider never sees a dangling clause.
func truncateAtSentence(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if i := strings.LastIndexByte(cut, '.'); i > max/2 {
		return cut[:i+1]
	}
	return cut
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			hits++
		}
	}
	return hits
}
