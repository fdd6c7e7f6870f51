package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/metrics"
	"NewsPortal/internal/ports"
	"NewsPortal/internal/scoring"
)

// ScoringDeps wires the stores and side channels of the scoring pass.
type ScoringDeps struct {
	Articles ports.ArticleRepository
	Events   ports.ViewEventRepository
	Cache    ports.RankingCache
	Notifier ports.TrendingNotifier
	Policy   scoring.Policy
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time

	// TrendingWindow overrides the span counted by the 24h pass.
	TrendingWindow time.Duration
}

// ScoringService recomputes rolling counters and scores and publishes them
// onto the article records.
type ScoringService struct {
	articles   ports.ArticleRepository
	events     ports.ViewEventRepository
	cache      ports.RankingCache
	notifier   ports.TrendingNotifier
	calculator scoring.Calculator
	trending   time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewScoringService constructs the scoring pipeline.
func NewScoringService(deps ScoringDeps) *ScoringService {
	s := &ScoringService{
		articles:   deps.Articles,
		events:     deps.Events,
		cache:      deps.Cache,
		notifier:   deps.Notifier,
		calculator: scoring.NewCalculator(deps.Policy),
		trending:   deps.TrendingWindow,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// WithPolicy returns a copy of the service bound to another policy snapshot.
func (s *ScoringService) WithPolicy(policy scoring.Policy) *ScoringService {
	clone := *s
	clone.calculator = scoring.NewCalculator(policy)
	return &clone
}

// Policy returns the classification thresholds in use.
func (s *ScoringService) Policy() scoring.Policy {
	return s.calculator.Policy()
}

// BulkUpdateScores counts the view events inside window for every article and
// writes the counters and both scores back. Per-article write failures are
// logged and skipped.
func (s *ScoringService) BulkUpdateScores(ctx context.Context, window domain.Window) (domain.BatchResult, error) {
	result := domain.BatchResult{Window: window}
	if window.Duration() == 0 {
		return result, fmt.Errorf("%w: %q", domain.ErrInvalidWindow, window)
	}

	started := time.Now()
	now := s.now().UTC()

	articles, err := s.articles.List(ctx)
	if err != nil {
		return result, domain.NewStorageError("list articles", err)
	}

	counts, err := s.events.CountSince(ctx, now.Add(-s.span(window)), now)
	if err != nil {
		return result, domain.NewStorageError("count view events", err)
	}

	var newlyTrending []domain.Article
	for i := range articles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		article := &articles[i]
		wasTrending := article.IsTrending
		update := s.calculator.Update(*article, window, counts[article.ID], now)

		if err := s.articles.UpdateScores(ctx, article.ID, update); err != nil {
			result.Failed++
			s.logger.Warn("score update failed", "article", article.ID, "window", window, "error", err)
			continue
		}

		update.Apply(article)
		result.Updated++
		if !wasTrending && article.IsTrending {
			newlyTrending = append(newlyTrending, *article)
		}
	}

	s.publishRankings(ctx, articles)
	s.announce(ctx, newlyTrending)

	s.metrics.BatchFinished(string(window), result.Updated, result.Failed, time.Since(started))
	s.logger.Info("scores updated",
		"window", window,
		"updated", result.Updated,
		"failed", result.Failed,
		"newly_trending", len(newlyTrending),
		"took", time.Since(started))

	return result, nil
}

// span is the counted period behind window.
func (s *ScoringService) span(window domain.Window) time.Duration {
	if window == domain.Window24h && s.trending > 0 {
		return s.trending
	}
	return window.Duration()
}

func (s *ScoringService) publishRankings(ctx context.Context, articles []domain.Article) {
	if s.cache == nil {
		return
	}

	rankings := map[string][]ports.RankedEntry{
		RankingTrending: rankEntries(articles, trendingOrder, maxListLimit),
		RankingPopular:  rankEntries(articles, popularOrder, maxListLimit),
	}
	for name, entries := range rankings {
		if err := s.cache.Store(ctx, name, entries); err != nil {
			s.logger.Warn("ranking cache refresh failed", "ranking", name, "error", err)
		}
	}
}

func (s *ScoringService) announce(ctx context.Context, articles []domain.Article) {
	if s.notifier == nil || len(articles) == 0 {
		return
	}
	if err := s.notifier.NotifyTrending(ctx, articles); err != nil {
		s.logger.Warn("trending notification failed", "articles", len(articles), "error", err)
	}
}
