// Package topics derives batch-level topic clusters and keyword counts
// from cleaned mention text.
package topics

import (
	"sort"
	"strings"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/google/uuid"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"it": true, "its": true, "this": true, "that": true, "these": true, "those": true,
	"i": true, "you": true, "he": true, "she": true, "we": true, "they": true,
	"my": true, "your": true, "his": true, "her": true, "our": true, "their": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "from": true, "by": true, "as": true, "so": true, "if": true,
	"not": true, "no": true, "do": true, "does": true, "did": true, "have": true,
	"has": true, "had": true, "will": true, "would": true, "can": true, "could": true,
	"just": true, "very": true, "really": true, "too": true, "also": true,
	"there": true, "here": true, "what": true, "when": true, "how": true, "all": true,
	"about": true, "after": true, "than": true, "then": true, "them": true, "im": true,
	"get": true, "got": true, "out": true, "up": true, "one": true, "some": true,
}

// TopKeywords returns the most frequent non-stopword tokens across the
// given texts, descending by count
func TopKeywords(texts []string, limit int) []models.KeywordCount {
	counts := make(map[string]int)

	for _, text := range texts {
		for _, token := range tokenize(text) {
			counts[token]++
		}
	}

	keywords := make([]models.KeywordCount, 0, len(counts))
	for keyword, count := range counts {
		keywords = append(keywords, models.KeywordCount{Keyword: keyword, Count: count})
	}

	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Keyword < keywords[j].Keyword
	})

	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}

// ExtractClusters groups a batch's texts into keyword-labeled clusters.
// A cluster is one frequent token plus the count of texts mentioning it;
// productID is set only on product-scoped extraction.
func ExtractClusters(texts []string, productID string, limit int) []models.TopicCluster {
	keywords := TopKeywords(texts, limit)
	now := time.Now().UTC()

	var clusters []models.TopicCluster
	for _, kw := range keywords {
		// Single-mention tokens are noise, not topics
		if kw.Count < 2 {
			continue
		}

		clusters = append(clusters, models.TopicCluster{
			ID:        uuid.NewString(),
			ProductID: productID,
			Label:     kw.Keyword,
			Frequency: kw.Count,
			Keywords:  relatedTokens(texts, kw.Keyword),
			CreatedAt: now,
		})
	}

	return clusters
}

// relatedTokens collects the other frequent tokens co-occurring with label
func relatedTokens(texts []string, label string) []string {
	counts := make(map[string]int)
	for _, text := range texts {
		tokens := tokenize(text)
		if !containsToken(tokens, label) {
			continue
		}
		for _, token := range tokens {
			if token != label {
				counts[token]++
			}
		}
	}

	var related []string
	for token, count := range counts {
		if count >= 2 {
			related = append(related, token)
		}
	}
	sort.Strings(related)

	if len(related) > 5 {
		related = related[:5]
	}
	return related
}

func containsToken(tokens []string, want string) bool {
	for _, token := range tokens {
		if token == want {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))

	var tokens []string
	for _, field := range fields {
		token := strings.Trim(field, ".,!?'\"-:;()")
		if len(token) < 3 || stopwords[token] {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
