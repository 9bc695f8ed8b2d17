package models

import "time"

// Sentiment labels assigned by the analysis engine.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
	SentimentError    = "ERROR"
)

// Product represents a tracked entity whose mentions are monitored
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Keywords  []string        `json:"keywords"`
	Sources   map[string]bool `json:"sources"` // per-source tracking flags, empty means all
	CreatedAt time.Time       `json:"created_at"`
}

// RawMention is the ephemeral output of a source adapter. It is never
// persisted directly; the normalizer consumes it and produces a Review.
type RawMention struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`   // "youtube", "reddit", "microblog"
	Platform  string    `json:"platform"` // human-readable platform identifier
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Replies   int       `json:"replies"`
	Reposts   int       `json:"reposts"`
	Keywords  []string  `json:"keywords"` // keywords that matched
}

// Review is the canonical, deduplicated mention record. Fingerprint is
// unique within a product scope; a duplicate fingerprint is a no-op.
type Review struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	Text        string    `json:"text"` // cleaned content
	Fingerprint string    `json:"fingerprint"`
	Source      string    `json:"source"`
	Author      string    `json:"author"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	Likes       int       `json:"likes"`
	Replies     int       `json:"replies"`
	Reposts     int       `json:"reposts"`
}

// EmotionScore is one entry of an emotion distribution
type EmotionScore struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// AspectScore holds the local sentiment for one aspect category
// (quality, price, shipping, ...) within a single mention
type AspectScore struct {
	Aspect string  `json:"aspect"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
}

// SentimentAnalysis is the composite analysis result for one Review.
// Created once per Review and immutable thereafter.
type SentimentAnalysis struct {
	ID                 string         `json:"id"`
	ReviewID           string         `json:"review_id"`
	Fingerprint        string         `json:"fingerprint"`
	Label              string         `json:"label"` // POSITIVE, NEGATIVE, NEUTRAL, ERROR
	Score              float64        `json:"score"` // polarity in [0,1]
	Emotions           []EmotionScore `json:"emotions"`
	PrimaryEmotion     string         `json:"primary_emotion"`
	Credibility        float64        `json:"credibility"` // [0,100]
	CredibilityReasons []string       `json:"credibility_reasons"`
	Aspects            []AspectScore  `json:"aspects"`
	CreatedAt          time.Time      `json:"created_at"`
}

// TopicCluster is a derived, batch-level grouping of related mentions
type TopicCluster struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id,omitempty"` // set only on product-scoped extraction
	Label     string    `json:"label"`
	Frequency int       `json:"frequency"`
	Keywords  []string  `json:"keywords,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert is raised by the alert evaluator or created manually
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // "low_sentiment", "manual", ...
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	ReviewID  string    `json:"review_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// PlatformCount is one entry of the per-source breakdown
type PlatformCount struct {
	Platform string `json:"platform"`
	Count    int    `json:"count"`
}

// EmotionBreakdown is one entry of the emotion frequency histogram
type EmotionBreakdown struct {
	Emotion    string  `json:"emotion"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// KeywordCount is one entry of the top-keyword list
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// CredibilityReport summarizes trust signals across the sampled analyses
type CredibilityReport struct {
	OverallScore    float64 `json:"overallScore"`
	VerifiedReviews int     `json:"verifiedReviews"`
	BotsDetected    int     `json:"botsDetected"`
}

// DashboardSnapshot is the cached, composite aggregate served to dashboard
// readers. It is derived and disposable, never a source of truth.
type DashboardSnapshot struct {
	TotalReviews       int                `json:"totalReviews"`
	SentimentScore     float64            `json:"sentimentScore"` // 0-100 scale
	SentimentDelta     float64            `json:"sentimentDelta"` // day-over-day, 0-100 scale
	AverageCredibility float64            `json:"averageCredibility"`
	PlatformBreakdown  []PlatformCount    `json:"platformBreakdown"`
	CredibilityReport  CredibilityReport  `json:"credibilityReport"`
	EmotionBreakdown   []EmotionBreakdown `json:"emotionBreakdown"`
	AspectScores       []AspectScore      `json:"aspectScores"`
	TopKeywords        []KeywordCount     `json:"topKeywords"`
	RecentReviews      []Review           `json:"recentReviews"`
	GeneratedAt        time.Time          `json:"generatedAt"`
}

// IsEmpty reports whether the snapshot carries no data. Empty snapshots
// are returned to callers but never cached.
func (s DashboardSnapshot) IsEmpty() bool {
	return s.TotalReviews == 0 &&
		len(s.PlatformBreakdown) == 0 &&
		len(s.RecentReviews) == 0
}

// IngestSummary reports the outcome of one ingestion run
type IngestSummary struct {
	TotalScraped int            `json:"total_scraped"`
	TotalSaved   int            `json:"total_saved"`
	PerSource    map[string]int `json:"per_source_counts"`
}
