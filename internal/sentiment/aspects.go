package sentiment

import (
	"sort"
	"strings"

	"github.com/brandpulse/brandpulse-bot/internal/models"
)

// AspectExtractor maps known aspect categories (quality, price, shipping,
// service, ...) to a local sentiment within one mention. The two
// implementations are interchangeable; the choice is made once at engine
// construction, never inline in business logic.
type AspectExtractor interface {
	Name() string
	Extract(text string) []models.AspectScore
}

var aspectCategories = map[string][]string{
	"quality":  {"quality", "build", "material", "durable", "sturdy", "flimsy", "cheap"},
	"price":    {"price", "cost", "expensive", "affordable", "value", "overpriced", "deal"},
	"shipping": {"shipping", "delivery", "arrived", "package", "courier", "late"},
	"service":  {"service", "support", "staff", "helpdesk", "warranty", "response"},
	"battery":  {"battery", "charge", "charging", "power"},
	"design":   {"design", "look", "style", "color", "size", "weight"},
}

// KeywordExtractor assigns the whole mention's polarity to every aspect
// category whose keywords appear in the text
type KeywordExtractor struct{}

// Ensure both extractors satisfy the contract
var (
	_ AspectExtractor = (*KeywordExtractor)(nil)
	_ AspectExtractor = (*WindowExtractor)(nil)
)

func (e *KeywordExtractor) Name() string {
	return "keyword"
}

func (e *KeywordExtractor) Extract(text string) []models.AspectScore {
	lower := strings.ToLower(text)
	label, score := heuristicSentiment(text)

	var aspects []models.AspectScore
	for aspect, keywords := range aspectCategories {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				aspects = append(aspects, models.AspectScore{
					Aspect: aspect,
					Label:  label,
					Score:  score,
				})
				break
			}
		}
	}

	sortAspects(aspects)
	return aspects
}

// WindowExtractor pairs each aspect keyword with the sentiment-bearing
// descriptors in a small token window around it, approximating noun plus
// descriptor dependency pairing without a full parser
type WindowExtractor struct {
	windowSize int
}

// NewWindowExtractor creates a window extractor with the default span
func NewWindowExtractor() *WindowExtractor {
	return &WindowExtractor{windowSize: 3}
}

func (e *WindowExtractor) Name() string {
	return "window"
}

func (e *WindowExtractor) Extract(text string) []models.AspectScore {
	tokens := strings.Fields(strings.ToLower(text))

	var aspects []models.AspectScore
	for aspect, keywords := range aspectCategories {
		if score, ok := e.windowScore(tokens, keywords); ok {
			label := models.SentimentNeutral
			if score > 0.5 {
				label = models.SentimentPositive
			} else if score < 0.5 {
				label = models.SentimentNegative
			}

			aspects = append(aspects, models.AspectScore{
				Aspect: aspect,
				Label:  label,
				Score:  score,
			})
		}
	}

	sortAspects(aspects)
	return aspects
}

func (e *WindowExtractor) windowScore(tokens []string, keywords []string) (float64, bool) {
	found := false
	positives := 0
	negatives := 0

	for i, token := range tokens {
		if !matchesAny(token, keywords) {
			continue
		}
		found = true

		lo := i - e.windowSize
		if lo < 0 {
			lo = 0
		}
		hi := i + e.windowSize + 1
		if hi > len(tokens) {
			hi = len(tokens)
		}

		for _, neighbor := range tokens[lo:hi] {
			if matchesAny(neighbor, positiveWords) {
				positives++
			}
			if matchesAny(neighbor, negativeWords) {
				negatives++
			}
		}
	}

	if !found {
		return 0, false
	}

	return clamp(0.5+0.15*float64(positives-negatives), 0.05, 0.95), true
}

func matchesAny(token string, words []string) bool {
	token = strings.Trim(token, ".,!?'\"")
	for _, word := range words {
		if strings.HasPrefix(token, word) {
			return true
		}
	}
	return false
}

func sortAspects(aspects []models.AspectScore) {
	// Descending by score, aspect name as tiebreaker for deterministic output
	sort.Slice(aspects, func(i, j int) bool {
		if aspects[i].Score != aspects[j].Score {
			return aspects[i].Score > aspects[j].Score
		}
		return aspects[i].Aspect < aspects[j].Aspect
	})
}
