package archive

import (
	"context"

	"github.com/brandpulse/brandpulse-bot/internal/models"
)

// Archiver persists raw mention batches for audit and replay. Archival is
// best effort and fire-and-forget; the ingestion path never depends on it.
type Archiver interface {
	ArchiveBatch(ctx context.Context, name string, mentions []models.RawMention) error
	Retrieve(ctx context.Context, name string) ([]models.RawMention, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}
