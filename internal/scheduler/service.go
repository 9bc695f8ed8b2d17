// Package scheduler drives periodic ingestion runs for every tracked product.
package scheduler

import (
	"context"

	"github.com/brandpulse/brandpulse-bot/internal/config"
	"github.com/brandpulse/brandpulse-bot/internal/pipeline"
	"github.com/brandpulse/brandpulse-bot/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service handles scheduling of ingestion runs
type Service struct {
	config   *config.Config
	store    store.Store
	pipeline *pipeline.Service
	cron     *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, st store.Store, p *pipeline.Service) *Service {
	return &Service{
		config:   cfg,
		store:    st,
		pipeline: p,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins scheduled ingestion on the configured cron expression
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.config.IngestSchedule, func() {
		logrus.Info("Starting scheduled ingestion run")
		s.runAll(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.config.IngestSchedule)
	return nil
}

// runAll ingests every tracked product sequentially. A failing product is
// logged and skipped so the rest of the fleet still gets its run.
func (s *Service) runAll(ctx context.Context) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		logrus.Errorf("Scheduled run could not list products: %v", err)
		return
	}

	if len(products) == 0 {
		logrus.Info("No tracked products, skipping scheduled run")
		return
	}

	for _, product := range products {
		summary, err := s.pipeline.Ingest(ctx, nil, product.ID, "")
		if err != nil {
			logrus.Errorf("Scheduled ingestion for product %s failed: %v", product.ID, err)
			continue
		}
		logrus.Infof("Scheduled ingestion for product %s: %d scraped, %d saved",
			product.ID, summary.TotalScraped, summary.TotalSaved)
	}
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
