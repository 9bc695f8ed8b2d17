package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/config"
	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service delivers triggered alerts through the configured channels.
// Delivery is best effort: a channel failure is logged and reported to the
// job runner, never to the ingestion path.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// WebhookMessage is a MessageCard-style webhook payload
type WebhookMessage struct {
	Type     string           `json:"@type"`
	Context  string           `json:"@context"`
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Sections []WebhookSection `json:"sections,omitempty"`
}

type WebhookSection struct {
	ActivityTitle string        `json:"activityTitle,omitempty"`
	Facts         []WebhookFact `json:"facts,omitempty"`
	Markdown      bool          `json:"markdown,omitempty"`
}

type WebhookFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// Enabled reports whether at least one delivery channel is configured
func (s *Service) Enabled() bool {
	return s.config.WebhookURL != "" || s.config.NotificationEmail != ""
}

// SendAlert delivers one alert via every configured channel
func (s *Service) SendAlert(alert *models.Alert) error {
	var errors []string

	if s.config.WebhookURL != "" {
		if err := s.sendToWebhook(alert); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errors = append(errors, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Infof("Sent alert %s to webhook", alert.ID)
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(alert); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Infof("Sent alert %s via email", alert.ID)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToWebhook(alert *models.Alert) error {
	message := s.buildWebhookMessage(alert)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.WebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send webhook message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildWebhookMessage(alert *models.Alert) *WebhookMessage {
	return &WebhookMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("BrandPulse Alert - %s", strings.ToUpper(alert.Severity)),
		Text:    alert.Message,
		Sections: []WebhookSection{
			{
				ActivityTitle: alert.Type,
				Facts: []WebhookFact{
					{Name: "Severity", Value: alert.Severity},
					{Name: "Triggered", Value: alert.CreatedAt.Format("2006-01-02 15:04:05 UTC")},
				},
				Markdown: true,
			},
		},
	}
}

func (s *Service) sendEmail(alert *models.Alert) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("[BrandPulse] %s alert: %s", alert.Severity, alert.Type))
	m.SetBody("text/plain", fmt.Sprintf("%s\n\nTriggered at %s\nAlert ID: %s\n",
		alert.Message, alert.CreatedAt.Format(time.RFC1123), alert.ID))

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
