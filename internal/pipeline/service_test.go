package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/alerts"
	"github.com/brandpulse/brandpulse-bot/internal/archive"
	"github.com/brandpulse/brandpulse-bot/internal/config"
	"github.com/brandpulse/brandpulse-bot/internal/jobs"
	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/brandpulse/brandpulse-bot/internal/sentiment"
	"github.com/brandpulse/brandpulse-bot/internal/sources"
	"github.com/brandpulse/brandpulse-bot/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staleReadStore simulates a store whose dedup reads never observe
// concurrent writes, so conflict resolution falls entirely on the insert
type staleReadStore struct {
	store.Store
}

func (s *staleReadStore) FindReviewByFingerprint(ctx context.Context, productID, fingerprint string) (*models.Review, error) {
	return nil, nil
}

// memArchiver is an in-memory Archiver for replay tests
type memArchiver struct {
	mu      sync.Mutex
	batches map[string][]models.RawMention
}

var _ archive.Archiver = (*memArchiver)(nil)

func newMemArchiver() *memArchiver {
	return &memArchiver{batches: make(map[string][]models.RawMention)}
}

func (a *memArchiver) ArchiveBatch(ctx context.Context, name string, mentions []models.RawMention) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches[name] = append([]models.RawMention(nil), mentions...)
	return nil
}

func (a *memArchiver) Retrieve(ctx context.Context, name string) ([]models.RawMention, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	batch, ok := a.batches[name]
	if !ok {
		return nil, fmt.Errorf("batch %s not found", name)
	}
	return batch, nil
}

func (a *memArchiver) List(ctx context.Context, prefix string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var names []string
	for name := range a.batches {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (a *memArchiver) Delete(ctx context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.batches[name]; !ok {
		return fmt.Errorf("batch %s not found", name)
	}
	delete(a.batches, name)
	return nil
}

// stubSource is an in-memory source adapter for pipeline tests
type stubSource struct {
	name     string
	mentions []models.RawMention
	err      error
}

func (s *stubSource) GetName() string { return s.name }
func (s *stubSource) IsEnabled() bool { return true }

func (s *stubSource) FetchMentions(ctx context.Context, keywords []string, since time.Duration) ([]models.RawMention, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.mentions, nil
}

func rawMention(source, content string) models.RawMention {
	return models.RawMention{
		ID:        uuid.NewString(),
		Source:    source,
		Content:   content,
		Author:    "tester",
		URL:       fmt.Sprintf("https://%s.example/%s", source, uuid.NewString()),
		CreatedAt: time.Now().UTC(),
	}
}

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func buildService(t *testing.T, st store.Store, archiver archive.Archiver, srcs ...sources.Source) *Service {
	t.Helper()

	cfg := &config.Config{
		SourceTimeout:    5 * time.Second,
		SourceRatePerMin: 600,
		AlertThreshold:   0.3,
	}

	engine := sentiment.NewEngine(nil, &sentiment.KeywordExtractor{})
	evaluator := alerts.NewEvaluator(alerts.DefaultRules(0.3, []string{"broken", "refund"}))
	runner := jobs.NewRunner(2, 5*time.Second)

	svc := NewService(cfg, st, engine, evaluator, nil, archiver, runner)
	svc.sources = srcs
	return svc
}

func newTestService(t *testing.T, srcs ...sources.Source) (*Service, store.Store) {
	t.Helper()

	st := newStore(t)
	return buildService(t, st, nil, srcs...), st
}

func createProduct(t *testing.T, st store.Store, name string) *models.Product {
	t.Helper()

	p := &models.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Keywords:  []string{name},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.CreateProduct(context.Background(), p))
	return p
}

func TestIngest_DeduplicatesAndScoresSpam(t *testing.T) {
	src := &stubSource{name: "reddit", mentions: []models.RawMention{
		rawMention("reddit", "Great battery, love it"),
		rawMention("reddit", "Great battery, love it"), // duplicate content
		rawMention("reddit", "CLICK HERE WIN FREE PHONE"),
	}}

	svc, st := newTestService(t, src)
	p := createProduct(t, st, "phone")

	summary, err := svc.Ingest(context.Background(), nil, p.ID, "")
	require.NoError(t, err)
	svc.jobs.Wait()

	assert.Equal(t, 3, summary.TotalScraped)
	assert.Equal(t, 2, summary.TotalSaved)

	count, err := st.CountReviews(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	analyses, err := st.SampleAnalyses(context.Background(), p.ID, time.Time{}, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, analyses, 2)

	var spamCredibility float64 = -1
	for _, a := range analyses {
		if a.Credibility < 50 {
			spamCredibility = a.Credibility
		}
	}
	assert.GreaterOrEqual(t, spamCredibility, 0.0, "spam text should score low credibility")
}

func TestIngest_Idempotent(t *testing.T) {
	src := &stubSource{name: "reddit", mentions: []models.RawMention{
		rawMention("reddit", "Great battery, love it https://t.co/xyz"),
	}}

	svc, st := newTestService(t, src)
	p := createProduct(t, st, "phone")

	first, err := svc.Ingest(context.Background(), nil, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalSaved)

	// Re-running the same scrape over the same content is a no-op
	second, err := svc.Ingest(context.Background(), nil, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, second.TotalSaved)
	svc.jobs.Wait()

	count, err := st.CountReviews(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	analyses, err := st.SampleAnalyses(context.Background(), p.ID, time.Time{}, time.Time{}, 10)
	require.NoError(t, err)
	assert.Len(t, analyses, 1)
}

func TestIngest_PartialAdapterFailureIsIsolated(t *testing.T) {
	healthy1 := &stubSource{name: "reddit", mentions: []models.RawMention{
		rawMention("reddit", "the camera quality is excellent"),
	}}
	healthy2 := &stubSource{name: "youtube", mentions: []models.RawMention{
		rawMention("youtube", "battery life impressed me a lot"),
	}}
	failing := &stubSource{name: "microblog", err: fmt.Errorf("rate limited")}

	svc, st := newTestService(t, healthy1, healthy2, failing)
	p := createProduct(t, st, "phone")

	summary, err := svc.Ingest(context.Background(), nil, p.ID, "")
	require.NoError(t, err, "one failing source must not fail the run")
	svc.jobs.Wait()

	assert.Equal(t, 2, summary.TotalScraped)
	assert.Equal(t, 2, summary.TotalSaved)
	assert.Equal(t, 1, summary.PerSource["reddit"])
	assert.Equal(t, 1, summary.PerSource["youtube"])
	assert.Equal(t, 0, summary.PerSource["microblog"])
}

func TestIngest_ValidationFailures(t *testing.T) {
	svc, st := newTestService(t, &stubSource{name: "reddit"})

	_, err := svc.Ingest(context.Background(), nil, "", "")
	assert.Error(t, err)

	_, err = svc.Ingest(context.Background(), nil, "no-such-product", "")
	assert.Error(t, err)

	// No reviews written by rejected requests
	count, err := st.CountReviews(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIngest_TriggersAlerts(t *testing.T) {
	src := &stubSource{name: "reddit", mentions: []models.RawMention{
		rawMention("reddit", "totally broken, want a refund, this is the worst"),
	}}

	svc, st := newTestService(t, src)
	p := createProduct(t, st, "phone")

	summary, err := svc.Ingest(context.Background(), nil, p.ID, "")
	require.NoError(t, err)
	require.Equal(t, 1, summary.TotalSaved)

	// Alert evaluation is a background job
	svc.jobs.Wait()

	triggered, err := st.ListAlerts(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, triggered, 1)
	assert.Equal(t, "low_sentiment", triggered[0].Type)
	assert.Equal(t, "high", triggered[0].Severity)
	assert.Contains(t, triggered[0].Message, "broken")
}

func TestIngest_DropsNoiseOnlyMentions(t *testing.T) {
	src := &stubSource{name: "reddit", mentions: []models.RawMention{
		rawMention("reddit", "https://spam.example #ad @bot"),
		rawMention("reddit", "solid product, works great"),
	}}

	svc, st := newTestService(t, src)
	p := createProduct(t, st, "phone")

	summary, err := svc.Ingest(context.Background(), nil, p.ID, "")
	require.NoError(t, err)
	svc.jobs.Wait()

	assert.Equal(t, 2, summary.TotalScraped)
	assert.Equal(t, 1, summary.TotalSaved)
}

func TestIngest_ConflictingInsertIsNotCounted(t *testing.T) {
	src := &stubSource{name: "reddit", mentions: []models.RawMention{
		rawMention("reddit", "Great battery, love it"),
		rawMention("reddit", "Great battery, love it"),
	}}

	// With dedup reads blind to concurrent writes, both mentions pass the
	// fingerprint check and the second insert resolves as a no-op
	base := newStore(t)
	svc := buildService(t, &staleReadStore{Store: base}, nil, src)
	p := createProduct(t, base, "phone")

	summary, err := svc.Ingest(context.Background(), nil, p.ID, "")
	require.NoError(t, err)
	svc.jobs.Wait()

	assert.Equal(t, 2, summary.TotalScraped)
	assert.Equal(t, 1, summary.TotalSaved)

	count, err := base.CountReviews(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The losing insert must not leave an analysis bound to a review that
	// was never stored
	analyses, err := base.SampleAnalyses(context.Background(), p.ID, time.Time{}, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, analyses, 1)

	reviews, err := base.RecentReviews(context.Background(), p.ID, 10)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, reviews[0].ID, analyses[0].ReviewID)
}

func TestReplayArchive(t *testing.T) {
	src := &stubSource{name: "reddit", mentions: []models.RawMention{
		rawMention("reddit", "the camera quality is excellent"),
		rawMention("reddit", "battery life impressed me a lot"),
	}}

	st := newStore(t)
	archiver := newMemArchiver()
	svc := buildService(t, st, archiver, src)
	p := createProduct(t, st, "phone")

	first, err := svc.Ingest(context.Background(), nil, p.ID, "")
	require.NoError(t, err)
	require.Equal(t, 2, first.TotalSaved)
	svc.jobs.Wait()

	names, err := svc.ListArchives(context.Background(), "mentions/")
	require.NoError(t, err)
	require.Len(t, names, 1)

	// Replaying over intact data deduplicates everything
	replayed, err := svc.ReplayArchive(context.Background(), names[0], p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, replayed.TotalScraped)
	assert.Equal(t, 0, replayed.TotalSaved)

	// After losing the product's data the archive restores it
	require.NoError(t, st.DeleteProductCascade(context.Background(), p.ID))
	restored := createProduct(t, st, "phone")

	replayed, err = svc.ReplayArchive(context.Background(), names[0], restored.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, replayed.TotalSaved)
	svc.jobs.Wait()

	count, err := st.CountReviews(context.Background(), restored.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, svc.DeleteArchive(context.Background(), names[0]))

	names, err = svc.ListArchives(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = svc.ReplayArchive(context.Background(), "mentions/gone.json", restored.ID)
	assert.Error(t, err)
}

func TestReplayArchive_RequiresConfiguration(t *testing.T) {
	svc, st := newTestService(t)
	p := createProduct(t, st, "phone")

	_, err := svc.ReplayArchive(context.Background(), "mentions/any.json", p.ID)
	assert.Error(t, err)

	_, err = svc.ListArchives(context.Background(), "")
	assert.Error(t, err)
}

func TestAnalyzeText(t *testing.T) {
	svc, _ := newTestService(t)

	analysis, err := svc.AnalyzeText(context.Background(), "Great battery, love it")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentPositive, analysis.Label)
	assert.NotEmpty(t, analysis.Fingerprint)

	_, err = svc.AnalyzeText(context.Background(), "https://only.noise #tags")
	assert.Error(t, err)
}
