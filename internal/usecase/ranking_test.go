package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/infrastructure/storage"
	"NewsPortal/internal/metrics"
	"NewsPortal/internal/ports"
)

func TestClampLimit(t *testing.T) {
	t.Parallel()

	cases := map[int]int{-3: 10, 0: 10, 1: 1, 25: 25, 100: 100, 1000: 100}
	for in, want := range cases {
		if got := ClampLimit(in); got != want {
			t.Fatalf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func seededReader(t *testing.T, cache ports.RankingCache, m *metrics.Metrics) (*ArticleReader, *storage.MemoryArticleRepository) {
	t.Helper()

	repo := storage.NewMemoryArticleRepository()
	for _, a := range []domain.Article{
		{ID: "old-hot", Categories: []string{"sports"}, PublishedAt: epoch.Add(-5 * time.Hour), IsTrending: true, TrendingScore: 800, PopularScore: 40},
		{ID: "new-hot", Categories: []string{"politics"}, PublishedAt: epoch.Add(-time.Hour), IsTrending: true, TrendingScore: 800, PopularScore: 90},
		{ID: "cold", Categories: []string{"sports", "politics"}, PublishedAt: epoch, TrendingScore: 20, PopularScore: 5},
		{ID: "unseen", Categories: []string{"sports"}, PublishedAt: epoch.Add(-2 * time.Hour)},
	} {
		require.NoError(t, repo.Create(context.Background(), a))
	}
	return NewArticleReader(repo, cache, m, nil), repo
}

func ids(articles []domain.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.ID)
	}
	return out
}

func TestTrendingFallsBackToScan(t *testing.T) {
	t.Parallel()

	reader, _ := seededReader(t, nil, nil)
	got, err := reader.Trending(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"new-hot", "old-hot"}, ids(got), "ties broken by recency")
}

func TestPopularExcludesUnscored(t *testing.T) {
	t.Parallel()

	reader, _ := seededReader(t, nil, nil)
	got, err := reader.Popular(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"new-hot", "old-hot"}, ids(got))

	all, err := reader.Popular(context.Background(), 50)
	require.NoError(t, err)
	assert.NotContains(t, ids(all), "unseen")
}

func TestTrendingServedFromCache(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache()
	require.NoError(t, cache.Store(context.Background(), RankingTrending, []ports.RankedEntry{
		{ArticleID: "cold", Score: 999},
		{ArticleID: "deleted", Score: 500},
		{ArticleID: "old-hot", Score: 400},
	}))
	reader, _ := seededReader(t, cache, nil)

	got, err := reader.Trending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"cold", "old-hot"}, ids(got), "cache order wins and missing ids are skipped")
}

func TestCacheMissCountsFallback(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache()
	cache.err = errStoreDown
	m := metrics.New()
	reader, _ := seededReader(t, cache, m)

	got, err := reader.Popular(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	count, err := testutil.GatherAndCount(m.Registry(), "news_ranking_cache_fallback_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestByCategory(t *testing.T) {
	t.Parallel()

	reader, _ := seededReader(t, nil, nil)
	ctx := context.Background()

	latest, err := reader.ByCategory(ctx, " Sports ", domain.SortLatest, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"cold", "unseen", "old-hot"}, ids(latest))

	trending, err := reader.ByCategory(ctx, "sports", domain.SortTrending, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-hot", "cold", "unseen"}, ids(trending))

	popular, err := reader.ByCategory(ctx, "politics", domain.SortPopular, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"new-hot"}, ids(popular))

	_, err = reader.ByCategory(ctx, "  ", domain.SortLatest, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestReaderGet(t *testing.T) {
	t.Parallel()

	reader, _ := seededReader(t, nil, nil)
	got, err := reader.Get(context.Background(), "cold")
	require.NoError(t, err)
	assert.Equal(t, "cold", got.ID)

	_, err = reader.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
