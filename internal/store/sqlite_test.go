package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func newTestProduct(t *testing.T, s *SQLiteStore, name string) *models.Product {
	t.Helper()

	p := &models.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Keywords:  []string{name},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func insertReview(t *testing.T, s *SQLiteStore, r *models.Review) {
	t.Helper()

	inserted, err := s.InsertReview(context.Background(), r)
	require.NoError(t, err)
	require.True(t, inserted)
}

func testReview(productID, text, fingerprint string, createdAt time.Time) *models.Review {
	return &models.Review{
		ID:          uuid.NewString(),
		ProductID:   productID,
		Text:        text,
		Fingerprint: fingerprint,
		Source:      "reddit",
		Author:      "tester",
		CreatedAt:   createdAt,
	}
}

func TestInsertReviewIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProduct(t, s, "phone")

	r1 := testReview(p.ID, "Great battery, love it", "fp-1", time.Now().UTC())
	r2 := testReview(p.ID, "Great battery, love it", "fp-1", time.Now().UTC())

	inserted, err := s.InsertReview(ctx, r1)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same fingerprint in the same product scope is a no-op, reported so
	// the caller never binds derived rows to the never-stored review
	inserted, err = s.InsertReview(ctx, r2)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := s.CountReviews(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := s.FindReviewByFingerprint(ctx, p.ID, "fp-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, r1.ID, found.ID)
}

func TestFingerprintScopedPerProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p1 := newTestProduct(t, s, "phone")
	p2 := newTestProduct(t, s, "laptop")

	insertReview(t, s, testReview(p1.ID, "same text", "fp-x", time.Now().UTC()))
	insertReview(t, s, testReview(p2.ID, "same text", "fp-x", time.Now().UTC()))

	total, err := s.CountReviews(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	missing, err := s.FindReviewByFingerprint(ctx, p1.ID, "fp-unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteProductCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProduct(t, s, "phone")

	r := testReview(p.ID, "works well", "fp-1", time.Now().UTC())
	insertReview(t, s, r)
	require.NoError(t, s.InsertAnalysis(ctx, &models.SentimentAnalysis{
		ID:          uuid.NewString(),
		ReviewID:    r.ID,
		Fingerprint: r.Fingerprint,
		Label:       models.SentimentPositive,
		Score:       0.9,
		Credibility: 80,
		CreatedAt:   time.Now().UTC(),
	}))
	require.NoError(t, s.InsertAlert(ctx, &models.Alert{
		ID:        uuid.NewString(),
		Type:      "low_sentiment",
		Severity:  "high",
		Message:   "test",
		ReviewID:  r.ID,
		CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.DeleteProductCascade(ctx, p.ID))

	count, err := s.CountReviews(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	analyses, err := s.SampleAnalyses(ctx, "", time.Time{}, time.Time{}, 10)
	require.NoError(t, err)
	assert.Empty(t, analyses)
}

func TestSampleAnalysesWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProduct(t, s, "phone")
	now := time.Now().UTC()

	fresh := testReview(p.ID, "recent opinion", "fp-new", now.Add(-1*time.Hour))
	stale := testReview(p.ID, "older opinion", "fp-old", now.Add(-30*time.Hour))
	insertReview(t, s, fresh)
	insertReview(t, s, stale)

	for _, r := range []*models.Review{fresh, stale} {
		require.NoError(t, s.InsertAnalysis(ctx, &models.SentimentAnalysis{
			ID:          uuid.NewString(),
			ReviewID:    r.ID,
			Fingerprint: r.Fingerprint,
			Label:       models.SentimentNeutral,
			Score:       0.5,
			Credibility: 70,
			Emotions:    []models.EmotionScore{{Name: "joy", Weight: 0.6}},
			CreatedAt:   now,
		}))
	}

	last24h, err := s.SampleAnalyses(ctx, p.ID, now.Add(-24*time.Hour), time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, last24h, 1)
	assert.Equal(t, fresh.ID, last24h[0].ReviewID)
	assert.Equal(t, "joy", last24h[0].Emotions[0].Name)

	previous24h, err := s.SampleAnalyses(ctx, p.ID, now.Add(-48*time.Hour), now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, previous24h, 1)
	assert.Equal(t, stale.ID, previous24h[0].ReviewID)
}

func TestAlertsReadState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &models.Alert{
		ID:        uuid.NewString(),
		Type:      "low_sentiment",
		Severity:  "high",
		Message:   "score 0.1 on watch keyword 'broken'",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.InsertAlert(ctx, a))

	unread, err := s.ListAlerts(ctx, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, s.MarkAlertRead(ctx, a.ID))

	unread, err = s.ListAlerts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.Error(t, s.MarkAlertRead(ctx, "missing-id"))
}

func TestPlatformBreakdownAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newTestProduct(t, s, "phone")
	now := time.Now().UTC()

	for i, source := range []string{"reddit", "reddit", "youtube"} {
		r := testReview(p.ID, "text", uuid.NewString(), now.Add(time.Duration(-i)*time.Minute))
		r.Source = source
		insertReview(t, s, r)
	}

	breakdown, err := s.PlatformBreakdown(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, models.PlatformCount{Platform: "reddit", Count: 2}, breakdown[0])

	recent, err := s.RecentReviews(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	texts, err := s.RecentTexts(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, texts, 3)
}
