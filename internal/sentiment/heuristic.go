package sentiment

import (
	"sort"
	"strings"

	"github.com/brandpulse/brandpulse-bot/internal/models"
)

// Deterministic lexicon fallback used whenever the inference backend is
// unavailable, unauthenticated or failing. The pipeline never blocks on
// external dependency absence.

var positiveWords = []string{
	"good", "great", "excellent", "love", "awesome", "fantastic", "amazing",
	"perfect", "helpful", "works", "solid", "recommend", "happy", "best",
	"reliable", "impressed", "worth",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "hate", "broken", "error", "fail", "problem",
	"issue", "bug", "worst", "refund", "scam", "defective", "disappointed",
	"useless", "waste", "slow", "overpriced",
}

var emotionLexicon = map[string][]string{
	"joy":      {"love", "happy", "great", "awesome", "amazing", "fantastic", "excellent", "perfect"},
	"anger":    {"hate", "terrible", "awful", "scam", "worst", "furious", "refund"},
	"sadness":  {"disappointed", "sad", "waste", "regret", "unfortunately"},
	"fear":     {"worried", "afraid", "concern", "risky", "scared"},
	"surprise": {"surprised", "unexpected", "wow", "unbelievable"},
}

// heuristicSentiment scores polarity on the [0,1] scale from lexicon hits.
// 0.5 is neutral; each net positive or negative hit shifts the score.
func heuristicSentiment(text string) (string, float64) {
	content := strings.ToLower(text)

	positiveCount := 0
	negativeCount := 0

	for _, word := range positiveWords {
		if strings.Contains(content, word) {
			positiveCount++
		}
	}
	for _, word := range negativeWords {
		if strings.Contains(content, word) {
			negativeCount++
		}
	}

	score := 0.5 + 0.1*float64(positiveCount-negativeCount)
	score = clamp(score, 0.05, 0.95)

	switch {
	case positiveCount > negativeCount:
		return models.SentimentPositive, score
	case negativeCount > positiveCount:
		return models.SentimentNegative, score
	default:
		return models.SentimentNeutral, score
	}
}

// heuristicEmotions builds a normalized emotion distribution from lexicon
// hits. Text with no emotional markers is reported as neutral.
func heuristicEmotions(text string) []models.EmotionScore {
	content := strings.ToLower(text)

	counts := make(map[string]int)
	total := 0
	for emotion, words := range emotionLexicon {
		for _, word := range words {
			if strings.Contains(content, word) {
				counts[emotion]++
				total++
			}
		}
	}

	if total == 0 {
		return []models.EmotionScore{{Name: "neutral", Weight: 1.0}}
	}

	var emotions []models.EmotionScore
	for emotion, count := range counts {
		emotions = append(emotions, models.EmotionScore{
			Name:   emotion,
			Weight: float64(count) / float64(total),
		})
	}

	sortEmotions(emotions)
	return emotions
}

func sortEmotions(emotions []models.EmotionScore) {
	// Descending by weight, name as tiebreaker for deterministic output
	sort.Slice(emotions, func(i, j int) bool {
		if emotions[i].Weight != emotions[j].Weight {
			return emotions[i].Weight > emotions[j].Weight
		}
		return emotions[i].Name < emotions[j].Name
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
