package sources

import "github.com/brandpulse/brandpulse-bot/internal/models"

// deduplicateMentions drops repeated native IDs within one adapter's output.
// Cross-source and cross-run dedup happens later on the content fingerprint.
func deduplicateMentions(mentions []models.RawMention) []models.RawMention {
	seen := make(map[string]bool)
	var unique []models.RawMention

	for _, mention := range mentions {
		if !seen[mention.ID] {
			seen[mention.ID] = true
			unique = append(unique, mention)
		}
	}

	return unique
}
