package usecase

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/metrics"
	"NewsPortal/internal/ports"
)

const (
	RankingTrending = "trending"
	RankingPopular  = "popular"

	defaultListLimit = 10
	maxListLimit     = 100
)

// ClampLimit maps a requested page size into [1, 100], defaulting to 10.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

type ordering struct {
	keep  func(domain.Article) bool
	score func(domain.Article) float64
}

var (
	trendingOrder = ordering{
		keep:  func(a domain.Article) bool { return a.IsTrending },
		score: func(a domain.Article) float64 { return a.TrendingScore },
	}
	popularOrder = ordering{
		keep:  func(a domain.Article) bool { return a.PopularScore > 0 },
		score: func(a domain.Article) float64 { return a.PopularScore },
	}
	latestOrder = ordering{
		score: func(domain.Article) float64 { return 0 },
	}
)

// compare sorts by score desc, then newest first, then id for a stable order.
func (o ordering) compare(a, b domain.Article) int {
	if c := cmp.Compare(o.score(b), o.score(a)); c != 0 {
		return c
	}
	if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func rankArticles(articles []domain.Article, keep func(domain.Article) bool, order ordering, limit int) []domain.Article {
	ranked := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if keep == nil || keep(a) {
			ranked = append(ranked, a)
		}
	}
	slices.SortFunc(ranked, order.compare)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func rankEntries(articles []domain.Article, order ordering, limit int) []ports.RankedEntry {
	ranked := rankArticles(articles, order.keep, order, limit)
	entries := make([]ports.RankedEntry, 0, len(ranked))
	for _, a := range ranked {
		entries = append(entries, ports.RankedEntry{ArticleID: a.ID, Score: order.score(a)})
	}
	return entries
}

// ArticleReader serves article detail and ranked listings.
type ArticleReader struct {
	articles ports.ArticleRepository
	cache    ports.RankingCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewArticleReader wires the reader; cache may be nil.
func NewArticleReader(articles ports.ArticleRepository, cache ports.RankingCache, m *metrics.Metrics, logger *slog.Logger) *ArticleReader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ArticleReader{articles: articles, cache: cache, metrics: m, logger: logger}
}

// Get returns one article.
func (r *ArticleReader) Get(ctx context.Context, id string) (domain.Article, error) {
	article, err := r.articles.Get(ctx, id)
	if err != nil {
		return domain.Article{}, domain.NewStorageError("get article", err)
	}
	return article, nil
}

// Trending lists articles classified as trending, hottest first.
func (r *ArticleReader) Trending(ctx context.Context, limit int) ([]domain.Article, error) {
	return r.ranked(ctx, RankingTrending, trendingOrder, ClampLimit(limit))
}

// Popular lists articles by sustained 7d popularity.
func (r *ArticleReader) Popular(ctx context.Context, limit int) ([]domain.Article, error) {
	return r.ranked(ctx, RankingPopular, popularOrder, ClampLimit(limit))
}

// ByCategory lists one category in the requested order.
func (r *ArticleReader) ByCategory(ctx context.Context, category string, order domain.SortOrder, limit int) ([]domain.Article, error) {
	category = normalizeCategory(category)
	if category == "" {
		return nil, domain.ErrInvalidArgument
	}

	all, err := r.articles.List(ctx)
	if err != nil {
		return nil, domain.NewStorageError("list articles", err)
	}

	sortBy := latestOrder
	switch order {
	case domain.SortTrending:
		sortBy = trendingOrder
	case domain.SortPopular:
		sortBy = popularOrder
	}

	inCategory := func(a domain.Article) bool { return a.HasCategory(category) }
	return rankArticles(all, inCategory, sortBy, ClampLimit(limit)), nil
}

func (r *ArticleReader) ranked(ctx context.Context, name string, order ordering, limit int) ([]domain.Article, error) {
	if r.cache != nil {
		if articles, ok := r.fromCache(ctx, name, limit); ok {
			return articles, nil
		}
		r.metrics.RankingFallback(name)
	}

	all, err := r.articles.List(ctx)
	if err != nil {
		return nil, domain.NewStorageError("list articles", err)
	}
	return rankArticles(all, order.keep, order, limit), nil
}

func (r *ArticleReader) fromCache(ctx context.Context, name string, limit int) ([]domain.Article, bool) {
	entries, err := r.cache.Top(ctx, name, limit)
	if err != nil {
		r.logger.Warn("ranking cache read failed", "ranking", name, "error", err)
		return nil, false
	}
	if len(entries) == 0 {
		return nil, false
	}

	articles := make([]domain.Article, 0, len(entries))
	for _, entry := range entries {
		article, err := r.articles.Get(ctx, entry.ArticleID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			r.logger.Warn("ranking cache resolve failed", "ranking", name, "article", entry.ArticleID, "error", err)
			return nil, false
		}
		articles = append(articles, article)
	}
	return articles, true
}
