package sentiment

import (
	"context"
	"sync"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/brandpulse/brandpulse-bot/internal/normalize"
	"github.com/sirupsen/logrus"
)

// Engine computes composite sentiment analyses with an at-most-one
// computation guarantee per unique content: results are cached by content
// fingerprint, so repeated identical text across products and sources is
// analyzed exactly once.
type Engine struct {
	backend   Backend
	extractor AspectExtractor

	mu    sync.RWMutex
	cache map[string]models.SentimentAnalysis
}

// NewEngine creates an engine. A nil backend makes the engine run on the
// deterministic heuristic alone.
func NewEngine(backend Backend, extractor AspectExtractor) *Engine {
	if extractor == nil {
		extractor = &KeywordExtractor{}
	}

	return &Engine{
		backend:   backend,
		extractor: extractor,
		cache:     make(map[string]models.SentimentAnalysis),
	}
}

// Analyze returns the composite analysis for cleaned text. It never fails:
// backend errors degrade to the heuristic path and the result always
// carries a label. The returned analysis has no ID or review binding; the
// caller assigns those before persisting.
func (e *Engine) Analyze(ctx context.Context, text string) models.SentimentAnalysis {
	fingerprint := normalize.Fingerprint(text)

	e.mu.RLock()
	cached, ok := e.cache[fingerprint]
	e.mu.RUnlock()
	if ok {
		return cached
	}

	analysis := e.compute(ctx, text, fingerprint)

	// Last-write-wins: concurrent computation of the same fingerprint is
	// wasteful but safe, the result is a pure function of the text
	e.mu.Lock()
	e.cache[fingerprint] = analysis
	e.mu.Unlock()

	return analysis
}

// CacheSize returns the number of cached analyses
func (e *Engine) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

func (e *Engine) compute(ctx context.Context, text, fingerprint string) models.SentimentAnalysis {
	label, score := "", 0.0
	var emotions []models.EmotionScore

	if e.backend != nil {
		// Sentiment and emotion classification are independent calls; run
		// them in parallel and degrade each one separately
		var wg sync.WaitGroup
		var sentimentErr, emotionErr error

		wg.Add(2)
		go func() {
			defer wg.Done()
			label, score, sentimentErr = e.backend.ClassifySentiment(ctx, text)
		}()
		go func() {
			defer wg.Done()
			emotions, emotionErr = e.backend.ClassifyEmotions(ctx, text)
		}()
		wg.Wait()

		if sentimentErr != nil {
			logrus.Warnf("Inference backend sentiment call failed, using heuristic: %v", sentimentErr)
			label, score = heuristicSentiment(text)
		}
		if emotionErr != nil {
			logrus.Warnf("Inference backend emotion call failed, using heuristic: %v", emotionErr)
			emotions = heuristicEmotions(text)
		}
	} else {
		label, score = heuristicSentiment(text)
		emotions = heuristicEmotions(text)
	}

	credibility, reasons := scoreCredibility(text)

	analysis := models.SentimentAnalysis{
		Fingerprint:        fingerprint,
		Label:              label,
		Score:              score,
		Emotions:           emotions,
		PrimaryEmotion:     primaryEmotion(emotions),
		Credibility:        credibility,
		CredibilityReasons: reasons,
		Aspects:            e.extractor.Extract(text),
		CreatedAt:          time.Now().UTC(),
	}

	return analysis
}

func primaryEmotion(emotions []models.EmotionScore) string {
	if len(emotions) == 0 {
		return ""
	}

	primary := emotions[0]
	for _, e := range emotions[1:] {
		if e.Weight > primary.Weight {
			primary = e
		}
	}
	return primary.Name
}
