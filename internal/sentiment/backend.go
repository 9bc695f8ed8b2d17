package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Backend is the external inference contract. Implementations classify
// sentiment and emotions; the engine treats any error as a signal to fall
// back to the local heuristic.
type Backend interface {
	ClassifySentiment(ctx context.Context, text string) (label string, score float64, err error)
	ClassifyEmotions(ctx context.Context, text string) ([]models.EmotionScore, error)
}

const (
	sentimentModel = "distilbert-base-uncased-finetuned-sst-2-english"
	emotionModel   = "j-hartmann/emotion-english-distilroberta-base"
)

// HTTPBackend calls a hosted-inference API (HuggingFace-style: POST
// {"inputs": text} to /models/<model>, response is a ranked label list)
type HTTPBackend struct {
	client  *resty.Client
	baseURL string
	token   string
	limiter *rate.Limiter
}

// Ensure HTTPBackend implements Backend
var _ Backend = (*HTTPBackend)(nil)

type inferenceLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewHTTPBackend creates a backend against baseURL. Returns nil when no URL
// is configured, which makes the engine heuristic-only.
func NewHTTPBackend(baseURL, token string, timeout time.Duration, ratePerMin int) *HTTPBackend {
	if baseURL == "" {
		return nil
	}

	return &HTTPBackend{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "BrandPulse-Bot/1.0"),
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMin)/60.0), 5),
	}
}

func (b *HTTPBackend) ClassifySentiment(ctx context.Context, text string) (string, float64, error) {
	labels, err := b.classify(ctx, sentimentModel, text)
	if err != nil {
		return "", 0, err
	}
	if len(labels) == 0 {
		return "", 0, fmt.Errorf("inference backend returned no sentiment labels")
	}

	top := labels[0]
	switch strings.ToUpper(top.Label) {
	case "POSITIVE", "LABEL_1":
		// Model confidence maps onto the upper half of the polarity scale
		return models.SentimentPositive, 0.5 + top.Score/2, nil
	case "NEGATIVE", "LABEL_0":
		return models.SentimentNegative, 0.5 - top.Score/2, nil
	default:
		return models.SentimentNeutral, 0.5, nil
	}
}

func (b *HTTPBackend) ClassifyEmotions(ctx context.Context, text string) ([]models.EmotionScore, error) {
	labels, err := b.classify(ctx, emotionModel, text)
	if err != nil {
		return nil, err
	}

	var emotions []models.EmotionScore
	for _, l := range labels {
		emotions = append(emotions, models.EmotionScore{
			Name:   strings.ToLower(l.Label),
			Weight: l.Score,
		})
	}
	return emotions, nil
}

func (b *HTTPBackend) classify(ctx context.Context, model, text string) ([]inferenceLabel, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"inputs": text})
	if b.token != "" {
		req.SetHeader("Authorization", "Bearer "+b.token)
	}

	resp, err := req.Post(fmt.Sprintf("%s/models/%s", b.baseURL, model))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return nil, fmt.Errorf("inference backend unauthenticated: status %d", resp.StatusCode())
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("inference backend returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	// Responses arrive as [[{label,score},...]] ranked by score
	var nested [][]inferenceLabel
	if err := json.Unmarshal(resp.Body(), &nested); err != nil {
		// Some deployments skip the outer array
		var flat []inferenceLabel
		if err := json.Unmarshal(resp.Body(), &flat); err != nil {
			return nil, fmt.Errorf("failed to parse inference response: %w", err)
		}
		return flat, nil
	}

	if len(nested) == 0 {
		return nil, nil
	}
	return nested[0], nil
}
