// Package normalize turns raw mention text into the canonical form used for
// deduplication and analysis caching.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	handlePattern  = regexp.MustCompile(`[@#]\w+`)
	symbolPattern  = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?'-]`)
	spacingPattern = regexp.MustCompile(`\s+`)
)

// Clean strips URLs, @mentions, hashtag markers and non-linguistic symbols
// from raw text and collapses whitespace. An empty result means the mention
// carried no analyzable content and should be dropped.
func Clean(raw string) string {
	text := urlPattern.ReplaceAllString(raw, " ")
	text = handlePattern.ReplaceAllString(text, " ")
	text = symbolPattern.ReplaceAllString(text, " ")
	text = spacingPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Fingerprint computes the stable content hash of cleaned text. Two raw
// mentions with identical cleaned text share a fingerprint and are treated
// as one logical item everywhere downstream.
func Fingerprint(cleaned string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(cleaned)))
	return hex.EncodeToString(sum[:])
}
