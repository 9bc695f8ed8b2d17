// Command analyze runs one sentiment analysis over a text argument and
// prints the result as JSON. Useful for tuning lexicons and alert
// thresholds without a running server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/brandpulse/brandpulse-bot/internal/config"
	"github.com/brandpulse/brandpulse-bot/internal/normalize"
	"github.com/brandpulse/brandpulse-bot/internal/sentiment"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: analyze <text>")
		os.Exit(1)
	}
	text := strings.Join(os.Args[1:], " ")

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}
	logrus.SetLevel(logrus.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	var backend sentiment.Backend
	if httpBackend := sentiment.NewHTTPBackend(cfg.InferenceURL, cfg.InferenceToken, cfg.InferenceTimeout, cfg.SourceRatePerMin); httpBackend != nil {
		backend = httpBackend
	}

	var extractor sentiment.AspectExtractor = &sentiment.KeywordExtractor{}
	if cfg.UseWindowExtracts {
		extractor = sentiment.NewWindowExtractor()
	}
	engine := sentiment.NewEngine(backend, extractor)

	cleaned := normalize.Clean(text)
	if cleaned == "" {
		fmt.Fprintln(os.Stderr, "text has no analyzable content")
		os.Exit(1)
	}

	analysis := engine.Analyze(context.Background(), cleaned)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(analysis); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}
}
