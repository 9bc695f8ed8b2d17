package sentiment

import (
	"strings"
	"unicode"
)

// Credibility scoring is a pure function of text features: a baseline,
// penalties for short/shouty/spammy content, a reward for detail, clamped
// to [0,100] with human-readable reason codes.

const (
	credibilityBaseline = 70.0

	shortTextLimit    = 20
	detailedTextLimit = 200
	capsRatioLimit    = 0.5

	shortPenalty   = 20.0
	capsPenalty    = 15.0
	spamPenalty    = 30.0
	detailedReward = 10.0
)

var spamPhrases = []string{
	"click here", "buy now", "free", "win", "limited offer", "dm me",
	"check my profile", "subscribe", "giveaway", "promo code",
}

// scoreCredibility returns the trust estimate for a cleaned mention text
// together with the reason codes of every rule that fired
func scoreCredibility(text string) (float64, []string) {
	score := credibilityBaseline
	reasons := []string{"baseline"}

	if len(text) < shortTextLimit {
		score -= shortPenalty
		reasons = append(reasons, "very_short_content")
	}

	if capsRatio(text) > capsRatioLimit {
		score -= capsPenalty
		reasons = append(reasons, "excessive_caps")
	}

	lower := strings.ToLower(text)
	for _, phrase := range spamPhrases {
		if strings.Contains(lower, phrase) {
			score -= spamPenalty
			reasons = append(reasons, "spam_indicators")
			break
		}
	}

	if len(text) > detailedTextLimit {
		score += detailedReward
		reasons = append(reasons, "detailed_content")
	}

	return clamp(score, 0, 100), reasons
}

// capsRatio is the share of letters that are upper case
func capsRatio(text string) float64 {
	letters := 0
	upper := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}

	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}
