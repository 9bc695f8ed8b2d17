package alerts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	evaluator := NewEvaluator(DefaultRules(0.3, []string{"broken", "refund"}))

	tests := []struct {
		name     string
		text     string
		score    float64
		expected bool
	}{
		{
			name:     "low score with watch keyword",
			text:     "completely broken after one week",
			score:    0.2,
			expected: true,
		},
		{
			name:     "low score without watch keyword",
			text:     "not great to be honest",
			score:    0.2,
			expected: false,
		},
		{
			name:     "watch keyword but acceptable score",
			text:     "the broken screen was replaced quickly, happy now",
			score:    0.7,
			expected: false,
		},
		{
			name:     "score exactly at threshold does not trigger",
			text:     "want a refund",
			score:    0.3,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			review := &models.Review{ID: "r1", Text: tt.text}
			analysis := &models.SentimentAnalysis{Score: tt.score}

			alert := evaluator.Evaluate(review, analysis)
			if tt.expected {
				require.NotNil(t, alert)
				assert.Equal(t, "high", alert.Severity)
				assert.Equal(t, "r1", alert.ReviewID)
				assert.Contains(t, alert.Message, "0.2")
			} else {
				assert.Nil(t, alert)
			}
		})
	}
}

func TestEvaluateFirstMatchingRuleWins(t *testing.T) {
	evaluator := NewEvaluator([]Rule{
		{Name: "fraud_watch", Threshold: 0.5, Keywords: []string{"scam"}, Severity: "critical"},
		{Name: "low_sentiment", Threshold: 0.3, Keywords: []string{"scam", "broken"}, Severity: "high"},
	})

	alert := evaluator.Evaluate(
		&models.Review{ID: "r1", Text: "this is a scam"},
		&models.SentimentAnalysis{Score: 0.1},
	)

	require.NotNil(t, alert)
	assert.Equal(t, "fraud_watch", alert.Type)
	assert.Equal(t, "critical", alert.Severity)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - name: low_sentiment
    threshold: 0.3
    keywords: [broken, refund]
  - name: fraud_watch
    threshold: 0.5
    keywords: [scam, fraud]
    severity: critical
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	// Severity defaults to high when omitted
	assert.Equal(t, "high", rules[0].Severity)
	assert.Equal(t, "critical", rules[1].Severity)
	assert.Equal(t, []string{"broken", "refund"}, rules[0].Keywords)
}

func TestLoadRulesErrors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("rules: []"), 0600))
	_, err = LoadRules(empty)
	assert.Error(t, err)
}
