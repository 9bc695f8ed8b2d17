package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/alerts"
	"github.com/brandpulse/brandpulse-bot/internal/archive"
	"github.com/brandpulse/brandpulse-bot/internal/config"
	"github.com/brandpulse/brandpulse-bot/internal/dashboard"
	"github.com/brandpulse/brandpulse-bot/internal/jobs"
	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/brandpulse/brandpulse-bot/internal/notifications"
	"github.com/brandpulse/brandpulse-bot/internal/pipeline"
	"github.com/brandpulse/brandpulse-bot/internal/scheduler"
	"github.com/brandpulse/brandpulse-bot/internal/sentiment"
	"github.com/brandpulse/brandpulse-bot/internal/store"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting BrandPulse Bot")

	// Initialize persistence
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		logrus.Fatalf("Failed to create database directory: %v", err)
	}
	db, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Initialize sentiment engine. Without an inference backend the engine
	// runs on the lexicon heuristics alone.
	var backend sentiment.Backend
	if httpBackend := sentiment.NewHTTPBackend(cfg.InferenceURL, cfg.InferenceToken, cfg.InferenceTimeout, cfg.SourceRatePerMin); httpBackend != nil {
		backend = httpBackend
		logrus.Infof("Using inference backend at %s", cfg.InferenceURL)
	} else {
		logrus.Info("No inference backend configured, using lexicon heuristics")
	}

	var extractor sentiment.AspectExtractor = &sentiment.KeywordExtractor{}
	if cfg.UseWindowExtracts {
		extractor = sentiment.NewWindowExtractor()
	}
	engine := sentiment.NewEngine(backend, extractor)

	// Alert rules come from a YAML file when configured, otherwise the
	// built-in low sentiment rule
	rules := alerts.DefaultRules(cfg.AlertThreshold, cfg.AlertWatchKeywords)
	if cfg.AlertRulesFile != "" {
		rules, err = alerts.LoadRules(cfg.AlertRulesFile)
		if err != nil {
			logrus.Fatalf("Failed to load alert rules: %v", err)
		}
	}
	evaluator := alerts.NewEvaluator(rules)

	// Optional collaborators
	var notifier notifications.NotificationInterface
	if svc := notifications.NewService(cfg); svc.Enabled() {
		notifier = svc
	}

	var archiver archive.Archiver
	if cfg.ArchiveAccount != "" {
		archiver, err = archive.NewAzureArchive(cfg.ArchiveAccount, cfg.ArchiveContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize archive: %v", err)
		}
	}

	runner := jobs.NewRunner(4, 2*time.Minute)

	// Wire the pipeline, dashboard and scheduler
	pipelineService := pipeline.NewService(cfg, db, engine, evaluator, notifier, archiver, runner)
	dashboardService := dashboard.NewService(cfg, db)
	schedulerService := scheduler.NewService(cfg, db, pipelineService)

	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// HTTP API
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(pipelineService)).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ingest", ingestHandler(pipelineService)).Methods("POST")
	api.HandleFunc("/analyze", analyzeHandler(pipelineService)).Methods("POST")
	api.HandleFunc("/dashboard", dashboardHandler(dashboardService)).Methods("GET")
	api.HandleFunc("/dashboard/{productID}", dashboardHandler(dashboardService)).Methods("GET")
	api.HandleFunc("/products", createProductHandler(db)).Methods("POST")
	api.HandleFunc("/products", listProductsHandler(db)).Methods("GET")
	api.HandleFunc("/products/{id}", deleteProductHandler(db)).Methods("DELETE")
	api.HandleFunc("/alerts", listAlertsHandler(db)).Methods("GET")
	api.HandleFunc("/alerts/{id}/read", markAlertReadHandler(db)).Methods("POST")

	if archiver != nil {
		api.HandleFunc("/archives", listArchivesHandler(pipelineService)).Methods("GET")
		api.HandleFunc("/archives/replay", replayArchiveHandler(pipelineService)).Methods("POST")
		api.HandleFunc("/archives/{name:.+}", deleteArchiveHandler(pipelineService)).Methods("DELETE")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Let in-flight background jobs finish before closing the store
	runner.Wait()

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func metricsHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(p.GetMetrics()))
	}
}

type ingestRequest struct {
	ProductID string   `json:"productId"`
	Keywords  []string `json:"keywords,omitempty"`
	TargetURL string   `json:"targetUrl,omitempty"`
	Async     bool     `json:"async,omitempty"`
}

func ingestHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Async {
			go func() {
				if _, err := p.Ingest(context.Background(), req.Keywords, req.ProductID, req.TargetURL); err != nil {
					logrus.Errorf("Async ingestion failed: %v", err)
				}
			}()
			writeJSON(w, http.StatusAccepted, map[string]string{"message": "ingestion started"})
			return
		}

		summary, err := p.Ingest(r.Context(), req.Keywords, req.ProductID, req.TargetURL)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

func analyzeHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		analysis, err := p.AnalyzeText(r.Context(), req.Text)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, analysis)
	}
}

func dashboardHandler(d *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := mux.Vars(r)["productID"]

		snapshot, err := d.GetStats(r.Context(), scope)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

type createProductRequest struct {
	Name     string          `json:"name"`
	Keywords []string        `json:"keywords"`
	Sources  map[string]bool `json:"sources,omitempty"`
}

func createProductHandler(db store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" || len(req.Keywords) == 0 {
			writeError(w, http.StatusBadRequest, "name and keywords are required")
			return
		}

		product := &models.Product{
			ID:        uuid.NewString(),
			Name:      req.Name,
			Keywords:  req.Keywords,
			Sources:   req.Sources,
			CreatedAt: time.Now().UTC(),
		}

		if err := db.CreateProduct(r.Context(), product); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, product)
	}
}

func listProductsHandler(db store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := db.ListProducts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, products)
	}
}

func deleteProductHandler(db store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		product, err := db.GetProduct(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if product == nil {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}

		if err := db.DeleteProductCascade(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
	}
}

func listAlertsHandler(db store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unreadOnly := r.URL.Query().Get("unread") == "true"

		triggered, err := db.ListAlerts(r.Context(), unreadOnly)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, triggered)
	}
}

func markAlertReadHandler(db store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.MarkAlertRead(r.Context(), mux.Vars(r)["id"]); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "alert marked as read"})
	}
}

func listArchivesHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := p.ListArchives(r.Context(), r.URL.Query().Get("prefix"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, names)
	}
}

type replayRequest struct {
	Name      string `json:"name"`
	ProductID string `json:"productId"`
}

func replayArchiveHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "archive name is required")
			return
		}

		summary, err := p.ReplayArchive(r.Context(), req.Name, req.ProductID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func deleteArchiveHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.DeleteArchive(r.Context(), mux.Vars(r)["name"]); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "archive deleted"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
