package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/metrics"
	"NewsPortal/internal/ports"
)

const (
	defaultDedupWindow = 24 * time.Hour
	defaultRetention   = 7 * 24 * time.Hour
)

// RecorderDeps wires the stores used by the view recorder.
type RecorderDeps struct {
	Articles    ports.ArticleRepository
	Events      ports.ViewEventRepository
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	DedupWindow time.Duration
	Retention   time.Duration
	Now         func() time.Time
}

// Recorder accepts view notifications and appends deduplicated view events.
type Recorder struct {
	articles    ports.ArticleRepository
	events      ports.ViewEventRepository
	metrics     *metrics.Metrics
	logger      *slog.Logger
	dedupWindow time.Duration
	retention   time.Duration
	now         func() time.Time
}

// NewRecorder applies defaults for zero durations and clock.
func NewRecorder(deps RecorderDeps) *Recorder {
	r := &Recorder{
		articles:    deps.Articles,
		events:      deps.Events,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		dedupWindow: deps.DedupWindow,
		retention:   deps.Retention,
		now:         deps.Now,
	}
	if r.dedupWindow <= 0 {
		r.dedupWindow = defaultDedupWindow
	}
	if r.retention <= 0 {
		r.retention = defaultRetention
	}
	// events must outlive the dedup window or repeat views would be counted again
	if r.retention < r.dedupWindow {
		r.retention = r.dedupWindow
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// RecordView counts one view of articleID by identifier unless the same
// identifier was already counted inside the dedup window.
func (r *Recorder) RecordView(ctx context.Context, articleID, identifier string) (domain.ViewResult, error) {
	articleID = strings.TrimSpace(articleID)
	identifier = strings.TrimSpace(identifier)
	if articleID == "" || identifier == "" {
		return domain.ViewResult{}, fmt.Errorf("%w: article id and viewer identifier are required", domain.ErrInvalidArgument)
	}

	article, err := r.articles.Get(ctx, articleID)
	if err != nil {
		return domain.ViewResult{}, domain.NewStorageError("get article", err)
	}

	now := r.now().UTC()
	_, seen, err := r.events.FindRecent(ctx, articleID, identifier, now.Add(-r.dedupWindow))
	if err != nil {
		return domain.ViewResult{}, domain.NewStorageError("find recent view", err)
	}
	if seen {
		r.metrics.ViewRecorded(false)
		return resultOf(article, false), nil
	}

	event := domain.ViewEvent{
		ID:         uuid.NewString(),
		ArticleID:  articleID,
		Identifier: identifier,
		ViewedAt:   now,
		ExpiresAt:  now.Add(r.retention),
	}
	if err := r.events.Insert(ctx, event); err != nil {
		return domain.ViewResult{}, domain.NewStorageError("insert view event", err)
	}

	updated, err := r.articles.IncrementViews(ctx, articleID)
	if err != nil {
		return domain.ViewResult{}, domain.NewStorageError("increment views", err)
	}

	r.metrics.ViewRecorded(true)
	r.logger.Debug("view counted", "article", articleID, "views", updated.Views)
	return resultOf(updated, true), nil
}

func resultOf(article domain.Article, counted bool) domain.ViewResult {
	return domain.ViewResult{
		Counted:       counted,
		Views:         article.Views,
		ViewsLast24h:  article.ViewsLast24h,
		TrendingScore: article.TrendingScore,
	}
}
