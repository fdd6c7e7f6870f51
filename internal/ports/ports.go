package ports

import (
	"context"
	"time"

	"NewsPortal/internal/domain"
)

// ArticleRepository persists articles with their counters and scores.
type ArticleRepository interface {
	Create(ctx context.Context, article domain.Article) error
	Get(ctx context.Context, id string) (domain.Article, error)
	List(ctx context.Context) ([]domain.Article, error)
	IncrementViews(ctx context.Context, id string) (domain.Article, error)
	UpdateScores(ctx context.Context, id string, update domain.ScoreUpdate) error
}

// ViewEventRepository stores counted views for deduplication and window counts.
type ViewEventRepository interface {
	Insert(ctx context.Context, event domain.ViewEvent) error
	// FindRecent reports whether a view by identifier exists with viewedAt >= since.
	FindRecent(ctx context.Context, articleID, identifier string, since time.Time) (domain.ViewEvent, bool, error)
	// CountSince groups unexpired events with viewedAt >= since by article id.
	CountSince(ctx context.Context, since, now time.Time) (map[string]int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RankingCache keeps precomputed ranked article id lists.
type RankingCache interface {
	Store(ctx context.Context, ranking string, entries []RankedEntry) error
	Top(ctx context.Context, ranking string, limit int) ([]RankedEntry, error)
}

// RankedEntry is one member of a cached ranking.
type RankedEntry struct {
	ArticleID string
	Score     float64
}

// TrendingNotifier announces articles that just became trending.
type TrendingNotifier interface {
	NotifyTrending(ctx context.Context, articles []domain.Article) error
}

// ContentProcessor sanitizes article bodies and derives listing excerpts.
type ContentProcessor interface {
	Sanitize(body string) string
	Excerpt(body string, limit int) (string, error)
}

// Scheduler controls when recurring tasks execute.
type Scheduler interface {
	Schedule(name, spec string, job func(context.Context)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
