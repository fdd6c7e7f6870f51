package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/metrics"
	"NewsPortal/internal/ports"
)

// Cleaner removes view events past their retention.
type Cleaner struct {
	events  ports.ViewEventRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewCleaner(events ports.ViewEventRepository, m *metrics.Metrics, logger *slog.Logger, now func() time.Time) *Cleaner {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cleaner{events: events, metrics: m, logger: logger, now: now}
}

// Cleanup deletes expired view events and reports how many were removed.
func (c *Cleaner) Cleanup(ctx context.Context) (int64, error) {
	removed, err := c.events.DeleteExpired(ctx, c.now().UTC())
	if err != nil {
		return 0, domain.NewStorageError("delete expired view events", err)
	}
	c.metrics.EventsCleaned(removed)
	c.logger.Info("expired view events removed", "count", removed)
	return removed, nil
}
