package notifications

import "github.com/brandpulse/brandpulse-bot/internal/models"

// NotificationInterface defines the contract for alert delivery channels
type NotificationInterface interface {
	SendAlert(alert *models.Alert) error
}
