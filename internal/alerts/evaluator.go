// Package alerts evaluates newly analyzed mentions against configured
// threshold rules. Rules are data, not code: new rules are added without
// touching the evaluator's control flow.
package alerts

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Rule triggers when the polarity score drops below Threshold and the
// cleaned text contains at least one of Keywords
type Rule struct {
	Name      string   `yaml:"name"`
	Threshold float64  `yaml:"threshold"`
	Keywords  []string `yaml:"keywords"`
	Severity  string   `yaml:"severity"`
}

// Evaluator inspects each analyzed mention against its rule set
type Evaluator struct {
	rules []Rule
}

// NewEvaluator creates an evaluator with the given rules
func NewEvaluator(rules []Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

// DefaultRules builds the single low-sentiment rule from configuration
func DefaultRules(threshold float64, watchKeywords []string) []Rule {
	return []Rule{
		{
			Name:      "low_sentiment",
			Threshold: threshold,
			Keywords:  watchKeywords,
			Severity:  "high",
		},
	}
}

// LoadRules reads a rule set from a YAML file
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s contains no rules", path)
	}

	for i := range doc.Rules {
		if doc.Rules[i].Severity == "" {
			doc.Rules[i].Severity = "high"
		}
	}

	logrus.Infof("Loaded %d alert rules from %s", len(doc.Rules), path)
	return doc.Rules, nil
}

// Evaluate returns an alert for the first rule the mention triggers, or nil
func (e *Evaluator) Evaluate(review *models.Review, analysis *models.SentimentAnalysis) *models.Alert {
	content := strings.ToLower(review.Text)

	for _, rule := range e.rules {
		if analysis.Score >= rule.Threshold {
			continue
		}

		matched := matchedKeywords(content, rule.Keywords)
		if len(matched) == 0 {
			continue
		}

		logrus.Infof("Alert rule '%s' triggered for review %s (score %.2f)", rule.Name, review.ID, analysis.Score)

		return &models.Alert{
			ID:       uuid.NewString(),
			Type:     rule.Name,
			Severity: rule.Severity,
			Message: fmt.Sprintf("Mention matched %s with sentiment score %.2f: %s",
				strings.Join(matched, ", "), analysis.Score, truncate(review.Text, 140)),
			ReviewID:  review.ID,
			CreatedAt: time.Now().UTC(),
		}
	}

	return nil
}

func matchedKeywords(content string, keywords []string) []string {
	var matched []string
	for _, keyword := range keywords {
		if strings.Contains(content, strings.ToLower(keyword)) {
			matched = append(matched, keyword)
		}
	}
	return matched
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
