package sources

import (
	"context"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
)

// Source interface defines the contract for all mention sources
type Source interface {
	GetName() string
	FetchMentions(ctx context.Context, keywords []string, since time.Duration) ([]models.RawMention, error)
	IsEnabled() bool
}
