// Package pipeline implements the ingestion pipeline: concurrent
// multi-source scraping, normalization and fingerprint deduplication,
// cached sentiment analysis, persistence, and post-commit background jobs.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/alerts"
	"github.com/brandpulse/brandpulse-bot/internal/archive"
	"github.com/brandpulse/brandpulse-bot/internal/config"
	"github.com/brandpulse/brandpulse-bot/internal/jobs"
	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/brandpulse/brandpulse-bot/internal/normalize"
	"github.com/brandpulse/brandpulse-bot/internal/notifications"
	"github.com/brandpulse/brandpulse-bot/internal/sentiment"
	"github.com/brandpulse/brandpulse-bot/internal/sources"
	"github.com/brandpulse/brandpulse-bot/internal/store"
	"github.com/brandpulse/brandpulse-bot/internal/topics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service orchestrates ingestion runs
type Service struct {
	config    *config.Config
	store     store.Store
	engine    *sentiment.Engine
	evaluator *alerts.Evaluator
	notifier  notifications.NotificationInterface
	archiver  archive.Archiver
	jobs      *jobs.Runner
	sources   []sources.Source

	mu      sync.RWMutex
	metrics *Metrics
}

// Metrics holds counters for the most recent ingestion run
type Metrics struct {
	LastRun         time.Time      `json:"last_run"`
	LastRunDuration string         `json:"last_run_duration"`
	TotalScraped    int            `json:"total_scraped"`
	TotalSaved      int            `json:"total_saved"`
	SourceMetrics   map[string]int `json:"source_metrics"`
	ErrorCount      int            `json:"error_count"`
}

// NewService creates an ingestion pipeline. notifier and archiver may be
// nil, which disables alert delivery and batch archival respectively.
func NewService(cfg *config.Config, st store.Store, engine *sentiment.Engine,
	evaluator *alerts.Evaluator, notifier notifications.NotificationInterface,
	archiver archive.Archiver, runner *jobs.Runner) *Service {

	s := &Service{
		config:    cfg,
		store:     st,
		engine:    engine,
		evaluator: evaluator,
		notifier:  notifier,
		archiver:  archiver,
		jobs:      runner,
		metrics: &Metrics{
			SourceMetrics: make(map[string]int),
		},
	}

	s.initializeSources()
	return s
}

func (s *Service) initializeSources() {
	s.sources = []sources.Source{
		sources.NewYouTubeSource(s.config.YouTubeAPIKey, s.config.SourceRatePerMin, s.config.SourceTimeout),
		sources.NewRedditSource(s.config.RedditClientID, s.config.RedditClientSecret, s.config.SourceRatePerMin, s.config.SourceTimeout),
		sources.NewMicroblogSource(s.config.MicroblogBearerToken, s.config.SourceRatePerMin, s.config.SourceTimeout),
	}
}

type sourceResult struct {
	name     string
	mentions []models.RawMention
}

// Ingest runs one ingestion for a product: fan out to all adapters, merge,
// then normalize, deduplicate, analyze and persist the batch. A single
// failing adapter contributes zero results; the call as a whole never fails
// because of one source.
func (s *Service) Ingest(ctx context.Context, keywords []string, productID, targetURL string) (models.IngestSummary, error) {
	summary := models.IngestSummary{PerSource: make(map[string]int)}

	if productID == "" {
		return summary, fmt.Errorf("ingestion requires a product")
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return summary, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	if product == nil {
		return summary, fmt.Errorf("unknown product %s", productID)
	}

	if len(keywords) == 0 {
		keywords = product.Keywords
	}
	if len(keywords) == 0 {
		return summary, fmt.Errorf("product %s has no keywords to search", productID)
	}

	start := time.Now()
	logrus.Infof("Starting ingestion for product %s with keywords %v", productID, keywords)

	batch, errorCount := s.scrapeAll(ctx, product, keywords, targetURL)
	summary.TotalScraped = len(batch)
	for _, mention := range batch {
		summary.PerSource[mention.Source]++
	}

	// Sources that contributed nothing (disabled, failed or empty) still
	// report an explicit zero
	for _, src := range s.sources {
		if _, ok := summary.PerSource[src.GetName()]; !ok {
			summary.PerSource[src.GetName()] = 0
		}
	}

	logrus.Infof("Collected %d raw mentions from all sources", len(batch))

	summary.TotalSaved = s.process(ctx, product, batch)

	s.enqueuePostBatchJobs(product, batch)
	s.updateMetrics(summary, time.Since(start), errorCount)

	logrus.Infof("Ingestion for product %s completed in %v: %d scraped, %d saved",
		productID, time.Since(start), summary.TotalScraped, summary.TotalSaved)

	return summary, nil
}

// scrapeAll fans out to every enabled adapter concurrently. Each adapter
// is bounded by its own timeout and failures are isolated per source.
func (s *Service) scrapeAll(ctx context.Context, product *models.Product, keywords []string, targetURL string) ([]models.RawMention, int) {
	enabled := s.enabledSources(product)

	var wg sync.WaitGroup
	resultsChan := make(chan sourceResult, len(enabled))
	errorsChan := make(chan error, len(enabled))

	for _, source := range enabled {
		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()

			srcCtx, cancel := context.WithTimeout(ctx, s.config.SourceTimeout)
			defer cancel()

			logrus.Infof("Fetching mentions from %s", src.GetName())
			mentions, err := src.FetchMentions(srcCtx, keywords, 24*time.Hour)
			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.GetName(), err)
				errorsChan <- err
				return
			}

			logrus.Infof("Found %d mentions from %s", len(mentions), src.GetName())
			resultsChan <- sourceResult{name: src.GetName(), mentions: mentions}
		}(source)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
		close(errorsChan)
	}()

	var batch []models.RawMention
	for result := range resultsChan {
		batch = append(batch, result.mentions...)
	}

	errorCount := 0
	for range errorsChan {
		errorCount++
	}

	if targetURL != "" {
		batch = filterByURL(batch, targetURL)
		logrus.Infof("After target URL filtering (%s): %d mentions", targetURL, len(batch))
	}

	return batch, errorCount
}

func (s *Service) enabledSources(product *models.Product) []sources.Source {
	var enabled []sources.Source
	for _, src := range s.sources {
		if !src.IsEnabled() {
			continue
		}
		// Empty tracking flags mean every source is in scope
		if len(product.Sources) > 0 && !product.Sources[src.GetName()] {
			continue
		}
		enabled = append(enabled, src)
	}
	return enabled
}

func filterByURL(batch []models.RawMention, targetURL string) []models.RawMention {
	var filtered []models.RawMention
	for _, mention := range batch {
		if strings.Contains(mention.URL, targetURL) {
			filtered = append(filtered, mention)
		}
	}
	return filtered
}

// process normalizes, deduplicates, analyzes and persists one merged batch
// in arrival order, returning the number of reviews saved. Failures are
// contained per item.
func (s *Service) process(ctx context.Context, product *models.Product, batch []models.RawMention) int {
	saved := 0

	for _, mention := range batch {
		cleaned := normalize.Clean(mention.Content)
		if cleaned == "" {
			logrus.Debugf("Dropping mention %s: no content after cleaning", mention.ID)
			continue
		}

		fingerprint := normalize.Fingerprint(cleaned)

		existing, err := s.store.FindReviewByFingerprint(ctx, product.ID, fingerprint)
		if err != nil {
			logrus.Errorf("Dedup check failed for mention %s: %v", mention.ID, err)
			continue
		}
		if existing != nil {
			logrus.Debugf("Skipping duplicate mention %s (fingerprint %s)", mention.ID, fingerprint[:12])
			continue
		}

		analysis := s.engine.Analyze(ctx, cleaned)

		review := &models.Review{
			ID:          uuid.NewString(),
			ProductID:   product.ID,
			Text:        cleaned,
			Fingerprint: fingerprint,
			Source:      mention.Source,
			Author:      mention.Author,
			URL:         mention.URL,
			CreatedAt:   mention.CreatedAt,
			Likes:       mention.Likes,
			Replies:     mention.Replies,
			Reposts:     mention.Reposts,
		}

		inserted, err := s.store.InsertReview(ctx, review)
		if err != nil {
			logrus.Errorf("Failed to store review for mention %s: %v", mention.ID, err)
			continue
		}
		if !inserted {
			// A concurrent ingestion won the insert between the dedup check
			// and the write; this review was never stored, so no analysis,
			// count or alert belongs to it
			logrus.Debugf("Skipping mention %s: lost insert race (fingerprint %s)", mention.ID, fingerprint[:12])
			continue
		}

		// The cached analysis is shared across reviews with identical
		// content; each persisted row gets its own identity
		analysis.ID = uuid.NewString()
		analysis.ReviewID = review.ID
		if err := s.store.InsertAnalysis(ctx, &analysis); err != nil {
			logrus.Errorf("Failed to store analysis for review %s: %v", review.ID, err)
		}

		saved++
		s.enqueueAlertEvaluation(review, &analysis)
	}

	return saved
}

// enqueueAlertEvaluation runs the alert evaluator after the write path has
// committed. A failure to persist or deliver an alert never fails the
// ingestion of the review itself.
func (s *Service) enqueueAlertEvaluation(review *models.Review, analysis *models.SentimentAnalysis) {
	s.jobs.Submit("alert-evaluation", func(ctx context.Context) error {
		alert := s.evaluator.Evaluate(review, analysis)
		if alert == nil {
			return nil
		}

		if err := s.store.InsertAlert(ctx, alert); err != nil {
			return fmt.Errorf("failed to persist alert: %w", err)
		}

		if s.notifier != nil {
			if err := s.notifier.SendAlert(alert); err != nil {
				logrus.Errorf("Failed to deliver alert %s: %v", alert.ID, err)
			}
		}

		return nil
	})
}

func (s *Service) enqueuePostBatchJobs(product *models.Product, batch []models.RawMention) {
	if len(batch) == 0 {
		return
	}

	texts := make([]string, 0, len(batch))
	for _, mention := range batch {
		if cleaned := normalize.Clean(mention.Content); cleaned != "" {
			texts = append(texts, cleaned)
		}
	}

	s.jobs.Submit("topic-extraction", func(ctx context.Context) error {
		clusters := topics.ExtractClusters(texts, product.ID, 10)
		if len(clusters) == 0 {
			return nil
		}
		return s.store.InsertTopics(ctx, clusters)
	})

	if s.archiver != nil {
		name := fmt.Sprintf("mentions/%s/%s.json", product.ID, time.Now().UTC().Format("2006-01-02-15-04-05"))
		s.jobs.Submit("batch-archival", func(ctx context.Context) error {
			return s.archiver.ArchiveBatch(ctx, name, batch)
		})
	}
}

// ReplayArchive re-processes an archived raw mention batch through the
// normalize/dedup/analyze path. Mentions already ingested deduplicate to
// no-ops, so replaying is idempotent; only content lost to a partial
// failure produces new reviews.
func (s *Service) ReplayArchive(ctx context.Context, name, productID string) (models.IngestSummary, error) {
	summary := models.IngestSummary{PerSource: make(map[string]int)}

	if s.archiver == nil {
		return summary, fmt.Errorf("no archive is configured")
	}
	if productID == "" {
		return summary, fmt.Errorf("replay requires a product")
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return summary, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	if product == nil {
		return summary, fmt.Errorf("unknown product %s", productID)
	}

	batch, err := s.archiver.Retrieve(ctx, name)
	if err != nil {
		return summary, fmt.Errorf("failed to retrieve archived batch %s: %w", name, err)
	}

	logrus.Infof("Replaying archived batch %s (%d mentions) for product %s", name, len(batch), productID)

	summary.TotalScraped = len(batch)
	for _, mention := range batch {
		summary.PerSource[mention.Source]++
	}
	summary.TotalSaved = s.process(ctx, product, batch)

	logrus.Infof("Replay of %s completed: %d scraped, %d saved", name, summary.TotalScraped, summary.TotalSaved)
	return summary, nil
}

// ListArchives returns archived batch names under a prefix
func (s *Service) ListArchives(ctx context.Context, prefix string) ([]string, error) {
	if s.archiver == nil {
		return nil, fmt.Errorf("no archive is configured")
	}
	return s.archiver.List(ctx, prefix)
}

// DeleteArchive removes one archived batch
func (s *Service) DeleteArchive(ctx context.Context, name string) error {
	if s.archiver == nil {
		return fmt.Errorf("no archive is configured")
	}
	return s.archiver.Delete(ctx, name)
}

// AnalyzeText runs one ad hoc analysis, bypassing persistence
func (s *Service) AnalyzeText(ctx context.Context, text string) (models.SentimentAnalysis, error) {
	cleaned := normalize.Clean(text)
	if cleaned == "" {
		return models.SentimentAnalysis{}, fmt.Errorf("text has no analyzable content")
	}

	return s.engine.Analyze(ctx, cleaned), nil
}

func (s *Service) updateMetrics(summary models.IngestSummary, duration time.Duration, errorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.TotalScraped = summary.TotalScraped
	s.metrics.TotalSaved = summary.TotalSaved
	s.metrics.ErrorCount = errorCount

	s.metrics.SourceMetrics = make(map[string]int)
	for source, count := range summary.PerSource {
		s.metrics.SourceMetrics[source] = count
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
