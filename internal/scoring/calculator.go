package scoring

import (
	"math"
	"time"

	"NewsPortal/internal/domain"
)

// Policy holds the thresholds that classify an article as trending.
type Policy struct {
	// MinRecentViews qualifies an article once its 24h views exceed it.
	MinRecentViews int64
	// MinTotalViews qualifies an article with any 24h activity once total views exceed it.
	MinTotalViews int64
	// ScoreThreshold qualifies an article once its trending score exceeds it.
	ScoreThreshold float64
}

// DefaultPolicy mirrors the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinRecentViews: 50,
		MinTotalViews:  200,
		ScoreThreshold: 500,
	}
}

const (
	recentWeight    = 10.0
	sustainedWeight = 2.0
)

// TrendingScore is driven by the 24h counter; total views only break ties.
func TrendingScore(viewsLast24h, views int64) float64 {
	if viewsLast24h <= 0 {
		return 0
	}
	return recentWeight*float64(viewsLast24h) + math.Log1p(float64(max(views, 0)))
}

// PopularScore favours sustained 7d volume over bursts.
func PopularScore(viewsLast7d, views int64) float64 {
	return sustainedWeight*float64(max(viewsLast7d, 0)) + math.Sqrt(float64(max(views, 0)))
}

// IsTrending applies the policy to an article's counters and score.
func (p Policy) IsTrending(trendingScore float64, viewsLast24h, views int64) bool {
	if trendingScore > p.ScoreThreshold {
		return true
	}
	if viewsLast24h > p.MinRecentViews {
		return true
	}
	return viewsLast24h > 0 && views > p.MinTotalViews
}

// Calculator derives score updates from an article's counters.
type Calculator struct {
	policy Policy
}

// NewCalculator binds a policy snapshot.
func NewCalculator(policy Policy) Calculator {
	return Calculator{policy: policy}
}

// Policy returns the bound policy.
func (c Calculator) Policy() Policy {
	return c.policy
}

// Update recomputes both scores after replacing the counter of window with count.
func (c Calculator) Update(article domain.Article, window domain.Window, count int64, now time.Time) domain.ScoreUpdate {
	update := domain.ScoreUpdate{LastScoreUpdate: now}

	last24h, last7d := article.ViewsLast24h, article.ViewsLast7d
	switch window {
	case domain.Window24h:
		last24h = count
		update.ViewsLast24h = &last24h
	case domain.Window7d:
		last7d = count
		update.ViewsLast7d = &last7d
	}

	update.TrendingScore = TrendingScore(last24h, article.Views)
	update.PopularScore = PopularScore(last7d, article.Views)
	update.IsTrending = c.policy.IsTrending(update.TrendingScore, last24h, article.Views)
	return update
}
