// Package dashboard computes the composite aggregates served to dashboard
// readers, behind a bounded-staleness snapshot cache.
package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/config"
	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/brandpulse/brandpulse-bot/internal/store"
	"github.com/brandpulse/brandpulse-bot/internal/topics"
	"github.com/sirupsen/logrus"
)

const (
	topKeywordLimit   = 10
	recentReviewLimit = 10

	// Credibility cutoffs for the trust report
	verifiedThreshold = 70.0
	botThreshold      = 30.0
)

// Service aggregates stored reviews and analyses into dashboard snapshots.
// Snapshots are derived and disposable; readers tolerate staleness up to
// the cache TTL.
type Service struct {
	config *config.Config
	store  store.Store
	cache  *Cache
}

// NewService creates a dashboard aggregator
func NewService(cfg *config.Config, st store.Store) *Service {
	return &Service{
		config: cfg,
		store:  st,
		cache:  NewCache(cfg.DashboardTTL),
	}
}

// GetStats returns the dashboard snapshot for a scope. An empty scope
// aggregates across all products. Within the TTL window repeated calls
// serve the cached snapshot; each sub-aggregation failure degrades only
// its own section of a fresh snapshot, never the whole response.
func (s *Service) GetStats(ctx context.Context, scope string) (models.DashboardSnapshot, error) {
	if snapshot, ok := s.cache.Get(scope); ok {
		return snapshot, nil
	}

	snapshot := s.compute(ctx, scope)
	snapshot.GeneratedAt = time.Now().UTC()

	// Empty snapshots are served but never cached, so the first real data
	// becomes visible immediately
	if !snapshot.IsEmpty() {
		s.cache.Put(scope, snapshot)
	}

	return snapshot, nil
}

// compute runs all sub-aggregations concurrently. Each goroutine owns a
// disjoint set of snapshot fields.
func (s *Service) compute(ctx context.Context, scope string) models.DashboardSnapshot {
	var snapshot models.DashboardSnapshot
	var wg sync.WaitGroup

	wg.Add(5)

	go func() {
		defer wg.Done()
		count, err := s.store.CountReviews(ctx, scope)
		if err != nil {
			logrus.Errorf("Dashboard review count failed: %v", err)
			return
		}
		snapshot.TotalReviews = count
	}()

	go func() {
		defer wg.Done()
		analyses, err := s.store.SampleAnalyses(ctx, scope, time.Time{}, time.Time{}, s.config.SampleLimit)
		if err != nil {
			logrus.Errorf("Dashboard analysis sampling failed: %v", err)
			return
		}

		snapshot.SentimentScore = meanSentiment(analyses)
		snapshot.AverageCredibility = meanCredibility(analyses)
		snapshot.SentimentDelta = s.sentimentDelta(ctx, scope)
		snapshot.CredibilityReport = buildCredibilityReport(analyses)
		snapshot.EmotionBreakdown = buildEmotionBreakdown(analyses)
		snapshot.AspectScores = buildAspectScores(analyses, s.config.AspectTopN)
	}()

	go func() {
		defer wg.Done()
		breakdown, err := s.store.PlatformBreakdown(ctx, scope)
		if err != nil {
			logrus.Errorf("Dashboard platform breakdown failed: %v", err)
			return
		}
		snapshot.PlatformBreakdown = breakdown
	}()

	go func() {
		defer wg.Done()
		texts, err := s.store.RecentTexts(ctx, scope, s.config.SampleLimit)
		if err != nil {
			logrus.Errorf("Dashboard keyword sampling failed: %v", err)
			return
		}
		snapshot.TopKeywords = topics.TopKeywords(texts, topKeywordLimit)
	}()

	go func() {
		defer wg.Done()
		recent, err := s.store.RecentReviews(ctx, scope, recentReviewLimit)
		if err != nil {
			logrus.Errorf("Dashboard recent reviews failed: %v", err)
			return
		}
		snapshot.RecentReviews = recent
	}()

	wg.Wait()

	// Sections with no data serialize as empty arrays, not null
	if snapshot.PlatformBreakdown == nil {
		snapshot.PlatformBreakdown = []models.PlatformCount{}
	}
	if snapshot.EmotionBreakdown == nil {
		snapshot.EmotionBreakdown = []models.EmotionBreakdown{}
	}
	if snapshot.AspectScores == nil {
		snapshot.AspectScores = []models.AspectScore{}
	}
	if snapshot.TopKeywords == nil {
		snapshot.TopKeywords = []models.KeywordCount{}
	}
	if snapshot.RecentReviews == nil {
		snapshot.RecentReviews = []models.Review{}
	}

	return snapshot
}

// sentimentDelta is the day-over-day movement of the mean sentiment:
// mean over the last 24h minus mean over the 24h before that, on the
// 0-100 scale. An empty baseline window yields 0.0, never a fabricated
// swing against nothing.
func (s *Service) sentimentDelta(ctx context.Context, scope string) float64 {
	now := time.Now().UTC()

	current, err := s.store.SampleAnalyses(ctx, scope, now.Add(-24*time.Hour), now, s.config.SampleLimit)
	if err != nil {
		logrus.Errorf("Dashboard delta window failed: %v", err)
		return 0.0
	}

	baseline, err := s.store.SampleAnalyses(ctx, scope, now.Add(-48*time.Hour), now.Add(-24*time.Hour), s.config.SampleLimit)
	if err != nil {
		logrus.Errorf("Dashboard baseline window failed: %v", err)
		return 0.0
	}

	if len(current) == 0 || len(baseline) == 0 {
		return 0.0
	}

	return meanSentiment(current) - meanSentiment(baseline)
}

// meanSentiment maps the [0,1] polarity mean onto the 0-100 dashboard scale
func meanSentiment(analyses []models.SentimentAnalysis) float64 {
	if len(analyses) == 0 {
		return 0.0
	}

	var sum float64
	for _, a := range analyses {
		sum += a.Score
	}
	return sum / float64(len(analyses)) * 100.0
}

func meanCredibility(analyses []models.SentimentAnalysis) float64 {
	if len(analyses) == 0 {
		return 0.0
	}

	var sum float64
	for _, a := range analyses {
		sum += a.Credibility
	}
	return sum / float64(len(analyses))
}

func buildCredibilityReport(analyses []models.SentimentAnalysis) models.CredibilityReport {
	report := models.CredibilityReport{
		OverallScore: meanCredibility(analyses),
	}

	for _, a := range analyses {
		switch {
		case a.Credibility >= verifiedThreshold:
			report.VerifiedReviews++
		case a.Credibility < botThreshold:
			report.BotsDetected++
		}
	}

	return report
}

// buildEmotionBreakdown is a histogram of primary emotions across the
// sample, with percentages normalized over analyses carrying an emotion
func buildEmotionBreakdown(analyses []models.SentimentAnalysis) []models.EmotionBreakdown {
	counts := make(map[string]int)
	total := 0

	for _, a := range analyses {
		if a.PrimaryEmotion == "" {
			continue
		}
		counts[a.PrimaryEmotion]++
		total++
	}

	if total == 0 {
		return nil
	}

	breakdown := make([]models.EmotionBreakdown, 0, len(counts))
	for emotion, count := range counts {
		breakdown = append(breakdown, models.EmotionBreakdown{
			Emotion:    emotion,
			Count:      count,
			Percentage: float64(count) / float64(total) * 100.0,
		})
	}

	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Count != breakdown[j].Count {
			return breakdown[i].Count > breakdown[j].Count
		}
		return breakdown[i].Emotion < breakdown[j].Emotion
	})

	return breakdown
}

// buildAspectScores averages per-aspect polarity across the sample and
// keeps the topN highest-scoring aspects
func buildAspectScores(analyses []models.SentimentAnalysis, topN int) []models.AspectScore {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, a := range analyses {
		for _, aspect := range a.Aspects {
			sums[aspect.Aspect] += aspect.Score
			counts[aspect.Aspect]++
		}
	}

	if len(counts) == 0 {
		return nil
	}

	scores := make([]models.AspectScore, 0, len(counts))
	for aspect, count := range counts {
		mean := sums[aspect] / float64(count)
		scores = append(scores, models.AspectScore{
			Aspect: aspect,
			Label:  labelForScore(mean),
			Score:  mean,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Aspect < scores[j].Aspect
	})

	if len(scores) > topN {
		scores = scores[:topN]
	}
	return scores
}

func labelForScore(score float64) string {
	switch {
	case score >= 0.6:
		return models.SentimentPositive
	case score <= 0.4:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}
