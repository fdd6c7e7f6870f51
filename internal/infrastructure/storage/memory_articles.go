package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/ports"
)

// MemoryArticleRepository is a keyed in-memory article store that can be
// persisted to a JSON snapshot file.
type MemoryArticleRepository struct {
	mu       sync.RWMutex
	articles map[string]domain.Article
	path     string
	dirty    bool
}

var _ ports.ArticleRepository = (*MemoryArticleRepository)(nil)

// NewMemoryArticleRepository builds an empty store without a snapshot file.
func NewMemoryArticleRepository() *MemoryArticleRepository {
	return &MemoryArticleRepository{articles: map[string]domain.Article{}}
}

// OpenFileArticleRepository loads the snapshot at path when it exists.
func OpenFileArticleRepository(path string) (*MemoryArticleRepository, error) {
	repo := NewMemoryArticleRepository()
	repo.path = path

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return repo, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var records []articleRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	for _, rec := range records {
		repo.articles[rec.ID] = rec.toDomain()
	}
	return repo, nil
}

func (r *MemoryArticleRepository) Create(ctx context.Context, article domain.Article) error {
	if article.ID == "" {
		return fmt.Errorf("%w: article id is empty", domain.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[article.ID]; ok {
		return fmt.Errorf("article %s already exists", article.ID)
	}
	r.articles[article.ID] = clone(article)
	r.dirty = true
	return nil
}

func (r *MemoryArticleRepository) Get(ctx context.Context, id string) (domain.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	article, ok := r.articles[id]
	if !ok {
		return domain.Article{}, domain.ErrNotFound
	}
	return clone(article), nil
}

func (r *MemoryArticleRepository) List(ctx context.Context) ([]domain.Article, error) {
	r.mu.RLock()
	out := make([]domain.Article, 0, len(r.articles))
	for _, a := range r.articles {
		out = append(out, clone(a))
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Article) int {
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *MemoryArticleRepository) IncrementViews(ctx context.Context, id string) (domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.articles[id]
	if !ok {
		return domain.Article{}, domain.ErrNotFound
	}
	article.Views++
	r.articles[id] = article
	r.dirty = true
	return clone(article), nil
}

func (r *MemoryArticleRepository) UpdateScores(ctx context.Context, id string, update domain.ScoreUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.articles[id]
	if !ok {
		return domain.ErrNotFound
	}
	update.Apply(&article)
	r.articles[id] = article
	r.dirty = true
	return nil
}

// Snapshot writes the store to its file when it changed since the last write.
// The file is replaced atomically via rename.
func (r *MemoryArticleRepository) Snapshot(ctx context.Context) error {
	if r.path == "" {
		return nil
	}

	r.mu.Lock()
	if !r.dirty {
		r.mu.Unlock()
		return nil
	}
	records := make([]articleRecord, 0, len(r.articles))
	for _, a := range r.articles {
		records = append(records, recordOf(a))
	}
	r.dirty = false
	r.mu.Unlock()

	slices.SortFunc(records, func(a, b articleRecord) int { return cmp.Compare(a.ID, b.ID) })

	if err := writeSnapshot(r.path, records); err != nil {
		r.mu.Lock()
		r.dirty = true
		r.mu.Unlock()
		return err
	}
	return nil
}

func writeSnapshot(path string, records any) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func clone(a domain.Article) domain.Article {
	a.Categories = slices.Clone(a.Categories)
	return a
}

type articleRecord struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	Excerpt         string    `json:"excerpt,omitempty"`
	Image           string    `json:"image,omitempty"`
	Categories      []string  `json:"categories"`
	PublishedAt     time.Time `json:"publishedAt"`
	Views           int64     `json:"views"`
	ViewsLast24h    int64     `json:"viewsLast24h"`
	ViewsLast7d     int64     `json:"viewsLast7d"`
	TrendingScore   float64   `json:"trendingScore"`
	PopularScore    float64   `json:"popularScore"`
	IsTrending      bool      `json:"isTrending"`
	LastScoreUpdate time.Time `json:"lastScoreUpdate"`
}

func recordOf(a domain.Article) articleRecord {
	return articleRecord{
		ID:              a.ID,
		Title:           a.Title,
		Body:            a.Body,
		Excerpt:         a.Excerpt,
		Image:           a.Image,
		Categories:      a.Categories,
		PublishedAt:     a.PublishedAt,
		Views:           a.Views,
		ViewsLast24h:    a.ViewsLast24h,
		ViewsLast7d:     a.ViewsLast7d,
		TrendingScore:   a.TrendingScore,
		PopularScore:    a.PopularScore,
		IsTrending:      a.IsTrending,
		LastScoreUpdate: a.LastScoreUpdate,
	}
}

func (rec articleRecord) toDomain() domain.Article {
	return domain.Article{
		ID:              rec.ID,
		Title:           rec.Title,
		Body:            rec.Body,
		Excerpt:         rec.Excerpt,
		Image:           rec.Image,
		Categories:      rec.Categories,
		PublishedAt:     rec.PublishedAt,
		Views:           rec.Views,
		ViewsLast24h:    rec.ViewsLast24h,
		ViewsLast7d:     rec.ViewsLast7d,
		TrendingScore:   rec.TrendingScore,
		PopularScore:    rec.PopularScore,
		IsTrending:      rec.IsTrending,
		LastScoreUpdate: rec.LastScoreUpdate,
	}
}
