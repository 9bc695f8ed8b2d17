package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and migrates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logrus.Infof("Opened SQLite store at %s", dbPath)
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		keywords TEXT NOT NULL,
		sources TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id),
		text TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		source TEXT NOT NULL,
		author TEXT,
		url TEXT,
		created_at DATETIME NOT NULL,
		likes INTEGER DEFAULT 0,
		replies INTEGER DEFAULT 0,
		reposts INTEGER DEFAULT 0,
		UNIQUE(product_id, fingerprint)
	);

	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		review_id TEXT NOT NULL REFERENCES reviews(id),
		fingerprint TEXT NOT NULL,
		label TEXT NOT NULL,
		score REAL NOT NULL,
		emotions TEXT,
		primary_emotion TEXT,
		credibility REAL NOT NULL,
		credibility_reasons TEXT,
		aspects TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS topics (
		id TEXT PRIMARY KEY,
		product_id TEXT,
		label TEXT NOT NULL,
		frequency INTEGER NOT NULL,
		keywords TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		review_id TEXT,
		read BOOLEAN DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_fingerprint ON reviews(product_id, fingerprint);
	CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at);
	CREATE INDEX IF NOT EXISTS idx_analyses_review ON analyses(review_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_read ON alerts(read);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateProduct inserts a new tracked product
func (s *SQLiteStore) CreateProduct(ctx context.Context, p *models.Product) error {
	keywordsJSON, _ := json.Marshal(p.Keywords)
	sourcesJSON, _ := json.Marshal(p.Sources)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, keywords, sources, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, string(keywordsJSON), string(sourcesJSON), p.CreatedAt)

	return err
}

// GetProduct returns the product with the given id, or nil if absent
func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, keywords, sources, created_at FROM products WHERE id = ?
	`, id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListProducts returns all tracked products
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, keywords, sources, created_at FROM products ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// DeleteProductCascade removes a product together with its reviews,
// analyses, alerts referencing those reviews, and product-scoped topics
func (s *SQLiteStore) DeleteProductCascade(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM analyses WHERE review_id IN (SELECT id FROM reviews WHERE product_id = ?)`,
		`DELETE FROM alerts WHERE review_id IN (SELECT id FROM reviews WHERE product_id = ?)`,
		`DELETE FROM reviews WHERE product_id = ?`,
		`DELETE FROM topics WHERE product_id = ?`,
		`DELETE FROM products WHERE id = ?`,
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FindReviewByFingerprint returns the review with this fingerprint in the
// product's scope, or nil if none exists
func (s *SQLiteStore) FindReviewByFingerprint(ctx context.Context, productID, fingerprint string) (*models.Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, text, fingerprint, source, author, url, created_at, likes, replies, reposts
		FROM reviews WHERE product_id = ? AND fingerprint = ?
	`, productID, fingerprint)

	var r models.Review
	err := row.Scan(&r.ID, &r.ProductID, &r.Text, &r.Fingerprint, &r.Source,
		&r.Author, &r.URL, &r.CreatedAt, &r.Likes, &r.Replies, &r.Reposts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertReview stores a review and reports whether a row was written; a
// fingerprint collision within the product scope is ignored and reported
// as false
func (s *SQLiteStore) InsertReview(ctx context.Context, r *models.Review) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, product_id, text, fingerprint, source, author, url, created_at, likes, replies, reposts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, fingerprint) DO NOTHING
	`, r.ID, r.ProductID, r.Text, r.Fingerprint, r.Source, r.Author, r.URL,
		r.CreatedAt, r.Likes, r.Replies, r.Reposts)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// InsertAnalysis stores the analysis for a review
func (s *SQLiteStore) InsertAnalysis(ctx context.Context, a *models.SentimentAnalysis) error {
	emotionsJSON, _ := json.Marshal(a.Emotions)
	reasonsJSON, _ := json.Marshal(a.CredibilityReasons)
	aspectsJSON, _ := json.Marshal(a.Aspects)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, review_id, fingerprint, label, score, emotions, primary_emotion, credibility, credibility_reasons, aspects, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ReviewID, a.Fingerprint, a.Label, a.Score, string(emotionsJSON),
		a.PrimaryEmotion, a.Credibility, string(reasonsJSON), string(aspectsJSON), a.CreatedAt)

	return err
}

// InsertAlert stores an alert
func (s *SQLiteStore) InsertAlert(ctx context.Context, a *models.Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, type, severity, message, review_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Type, a.Severity, a.Message, a.ReviewID, a.Read, a.CreatedAt)

	return err
}

// ListAlerts returns alerts newest first
func (s *SQLiteStore) ListAlerts(ctx context.Context, unreadOnly bool) ([]models.Alert, error) {
	query := `SELECT id, type, severity, message, COALESCE(review_id, ''), read, created_at FROM alerts`
	if unreadOnly {
		query += ` WHERE read = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &a.Message, &a.ReviewID, &a.Read, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// MarkAlertRead acknowledges an alert
func (s *SQLiteStore) MarkAlertRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE alerts SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("alert %s not found", id)
	}
	return nil
}

// InsertTopics stores a batch of derived topic clusters
func (s *SQLiteStore) InsertTopics(ctx context.Context, topics []models.TopicCluster) error {
	for _, t := range topics {
		keywordsJSON, _ := json.Marshal(t.Keywords)
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO topics (id, product_id, label, frequency, keywords, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.ID, t.ProductID, t.Label, t.Frequency, string(keywordsJSON), t.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// CountReviews returns the number of reviews in scope
func (s *SQLiteStore) CountReviews(ctx context.Context, productID string) (int, error) {
	query := `SELECT COUNT(*) FROM reviews`
	var args []interface{}
	if productID != "" {
		query += ` WHERE product_id = ?`
		args = append(args, productID)
	}

	var count int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// SampleAnalyses returns up to limit analyses in scope, newest reviews
// first, optionally bounded to a review-creation time window
func (s *SQLiteStore) SampleAnalyses(ctx context.Context, productID string, from, to time.Time, limit int) ([]models.SentimentAnalysis, error) {
	query := `
		SELECT a.id, a.review_id, a.fingerprint, a.label, a.score, a.emotions,
			a.primary_emotion, a.credibility, a.credibility_reasons, a.aspects, a.created_at
		FROM analyses a
		JOIN reviews r ON a.review_id = r.id
		WHERE 1=1`
	var args []interface{}

	if productID != "" {
		query += ` AND r.product_id = ?`
		args = append(args, productID)
	}
	if !from.IsZero() {
		query += ` AND r.created_at >= ?`
		args = append(args, from)
	}
	if !to.IsZero() {
		query += ` AND r.created_at < ?`
		args = append(args, to)
	}

	query += ` ORDER BY r.created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []models.SentimentAnalysis
	for rows.Next() {
		var a models.SentimentAnalysis
		var emotionsJSON, reasonsJSON, aspectsJSON string

		err := rows.Scan(&a.ID, &a.ReviewID, &a.Fingerprint, &a.Label, &a.Score,
			&emotionsJSON, &a.PrimaryEmotion, &a.Credibility, &reasonsJSON, &aspectsJSON, &a.CreatedAt)
		if err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(emotionsJSON), &a.Emotions)
		json.Unmarshal([]byte(reasonsJSON), &a.CredibilityReasons)
		json.Unmarshal([]byte(aspectsJSON), &a.Aspects)

		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// PlatformBreakdown returns per-source review counts in scope
func (s *SQLiteStore) PlatformBreakdown(ctx context.Context, productID string) ([]models.PlatformCount, error) {
	query := `SELECT source, COUNT(*) AS cnt FROM reviews`
	var args []interface{}
	if productID != "" {
		query += ` WHERE product_id = ?`
		args = append(args, productID)
	}
	query += ` GROUP BY source ORDER BY cnt DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breakdown []models.PlatformCount
	for rows.Next() {
		var pc models.PlatformCount
		if err := rows.Scan(&pc.Platform, &pc.Count); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, pc)
	}
	return breakdown, rows.Err()
}

// RecentReviews returns the most recent reviews in scope
func (s *SQLiteStore) RecentReviews(ctx context.Context, productID string, limit int) ([]models.Review, error) {
	query := `
		SELECT id, product_id, text, fingerprint, source, author, url, created_at, likes, replies, reposts
		FROM reviews`
	var args []interface{}
	if productID != "" {
		query += ` WHERE product_id = ?`
		args = append(args, productID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var r models.Review
		err := rows.Scan(&r.ID, &r.ProductID, &r.Text, &r.Fingerprint, &r.Source,
			&r.Author, &r.URL, &r.CreatedAt, &r.Likes, &r.Replies, &r.Reposts)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// RecentTexts returns the cleaned text of the most recent reviews in scope,
// used as the keyword/topic source data
func (s *SQLiteStore) RecentTexts(ctx context.Context, productID string, limit int) ([]string, error) {
	query := `SELECT text FROM reviews`
	var args []interface{}
	if productID != "" {
		query += ` WHERE product_id = ?`
		args = append(args, productID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var keywordsJSON, sourcesJSON string

	if err := row.Scan(&p.ID, &p.Name, &keywordsJSON, &sourcesJSON, &p.CreatedAt); err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(keywordsJSON), &p.Keywords)
	json.Unmarshal([]byte(sourcesJSON), &p.Sources)
	return &p, nil
}
