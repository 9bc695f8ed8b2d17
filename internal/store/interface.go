package store

import (
	"context"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
)

// Store defines the narrow read/write contract the pipeline and the
// dashboard aggregator depend on. The datastore behind it is an external
// collaborator; nothing above this interface knows the storage engine.
type Store interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	DeleteProductCascade(ctx context.Context, id string) error

	// FindReviewByFingerprint returns nil, nil when no review exists for
	// the fingerprint in the product's scope.
	FindReviewByFingerprint(ctx context.Context, productID, fingerprint string) (*models.Review, error)
	// InsertReview reports whether a row was written. A fingerprint
	// collision within the product scope is a no-op returning false,
	// making re-ingestion idempotent.
	InsertReview(ctx context.Context, r *models.Review) (bool, error)
	InsertAnalysis(ctx context.Context, a *models.SentimentAnalysis) error

	InsertAlert(ctx context.Context, a *models.Alert) error
	ListAlerts(ctx context.Context, unreadOnly bool) ([]models.Alert, error)
	MarkAlertRead(ctx context.Context, id string) error

	InsertTopics(ctx context.Context, topics []models.TopicCluster) error

	// Aggregation reads. An empty productID means global scope. Zero
	// from/to bounds mean an unbounded window.
	CountReviews(ctx context.Context, productID string) (int, error)
	SampleAnalyses(ctx context.Context, productID string, from, to time.Time, limit int) ([]models.SentimentAnalysis, error)
	PlatformBreakdown(ctx context.Context, productID string) ([]models.PlatformCount, error)
	RecentReviews(ctx context.Context, productID string, limit int) ([]models.Review, error)
	RecentTexts(ctx context.Context, productID string, limit int) ([]string, error)

	Close() error
}
