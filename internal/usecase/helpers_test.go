package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/infrastructure/storage"
	"NewsPortal/internal/ports"
)

var errStoreDown = errors.New("store unavailable")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(start time.Time) *clock {
	return &clock{now: start}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyArticles fails UpdateScores for the listed ids and can fail List.
type flakyArticles struct {
	ports.ArticleRepository
	failUpdate map[string]bool
	failList   bool
	failGet    bool
}

func (f *flakyArticles) List(ctx context.Context) ([]domain.Article, error) {
	if f.failList {
		return nil, errStoreDown
	}
	return f.ArticleRepository.List(ctx)
}

func (f *flakyArticles) Get(ctx context.Context, id string) (domain.Article, error) {
	if f.failGet {
		return domain.Article{}, errStoreDown
	}
	return f.ArticleRepository.Get(ctx, id)
}

func (f *flakyArticles) UpdateScores(ctx context.Context, id string, update domain.ScoreUpdate) error {
	if f.failUpdate[id] {
		return errStoreDown
	}
	return f.ArticleRepository.UpdateScores(ctx, id, update)
}

type flakyEvents struct {
	ports.ViewEventRepository
	failCount  bool
	failFind   bool
	failDelete bool
}

func (f *flakyEvents) CountSince(ctx context.Context, since, now time.Time) (map[string]int64, error) {
	if f.failCount {
		return nil, errStoreDown
	}
	return f.ViewEventRepository.CountSince(ctx, since, now)
}

func (f *flakyEvents) FindRecent(ctx context.Context, articleID, identifier string, since time.Time) (domain.ViewEvent, bool, error) {
	if f.failFind {
		return domain.ViewEvent{}, false, errStoreDown
	}
	return f.ViewEventRepository.FindRecent(ctx, articleID, identifier, since)
}

func (f *flakyEvents) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if f.failDelete {
		return 0, errStoreDown
	}
	return f.ViewEventRepository.DeleteExpired(ctx, now)
}

type memoryCache struct {
	mu       sync.Mutex
	rankings map[string][]ports.RankedEntry
	err      error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{rankings: map[string][]ports.RankedEntry{}}
}

func (c *memoryCache) Store(_ context.Context, ranking string, entries []ports.RankedEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.rankings[ranking] = append([]ports.RankedEntry(nil), entries...)
	return nil
}

func (c *memoryCache) Top(_ context.Context, ranking string, limit int) ([]ports.RankedEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	entries := c.rankings[ranking]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return append([]ports.RankedEntry(nil), entries...), nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	batches [][]domain.Article
}

func (n *recordingNotifier) NotifyTrending(_ context.Context, articles []domain.Article) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, articles)
	return nil
}

// fixture seeds articles published an hour before start.
type fixture struct {
	clock    *clock
	articles *storage.MemoryArticleRepository
	events   *storage.MemoryViewEventRepository
}

var epoch = time.Date(2025, time.April, 14, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()

	f := &fixture{
		clock:    newClock(epoch),
		articles: storage.NewMemoryArticleRepository(),
		events:   storage.NewMemoryViewEventRepository(),
	}
	for i, id := range ids {
		err := f.articles.Create(context.Background(), domain.Article{
			ID:          id,
			Title:       "खबर " + id,
			Categories:  []string{"national"},
			PublishedAt: epoch.Add(-time.Hour).Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	return f
}

func (f *fixture) recorder() *Recorder {
	return NewRecorder(RecorderDeps{Articles: f.articles, Events: f.events, Now: f.clock.Now})
}

func (f *fixture) views(t *testing.T, articleID string, viewers int) {
	t.Helper()

	rec := f.recorder()
	for i := 0; i < viewers; i++ {
		identifier := articleID + "-viewer-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		if _, err := rec.RecordView(context.Background(), articleID, identifier); err != nil {
			t.Fatalf("record view %d: %v", i, err)
		}
	}
}

func (f *fixture) get(t *testing.T, id string) domain.Article {
	t.Helper()

	a, err := f.articles.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return a
}
