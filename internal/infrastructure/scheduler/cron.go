package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsPortal/internal/ports"
)

// CronScheduler drives registered jobs from cron specs ("@every 15m", "0 3 * * *").
type CronScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	logger  *slog.Logger
	entries map[string]cron.EntryID
	runCtx  context.Context
	cancel  context.CancelFunc
	started bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating specs in loc.
func NewCronScheduler(loc *time.Location, logger *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cl := cronLogger{logger: logger}
	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		logger:  logger,
		entries: map[string]cron.EntryID{},
		runCtx:  context.Background(),
	}
}

// Schedule registers job under name. Jobs receive the context passed to Start.
func (c *CronScheduler) Schedule(name, spec string, job func(context.Context)) error {
	if job == nil {
		return fmt.Errorf("job %s is nil", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}

	id, err := c.cron.AddFunc(spec, func() {
		job(c.context())
	})
	if err != nil {
		return fmt.Errorf("parse spec %q: %w", spec, err)
	}
	c.entries[name] = id
	return nil
}

// Start begins ticking in the background. Calling it twice is a no-op.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.cron.Start()
	return nil
}

// Stop halts ticking, cancels running jobs' context and waits for them
// until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	cancel := c.cancel
	c.mu.Unlock()

	done := c.cron.Stop()
	cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports the next activation of a named job.
func (c *CronScheduler) Next(name string) (time.Time, bool) {
	c.mu.Lock()
	id, ok := c.entries[name]
	c.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return c.cron.Entry(id).Next, true
}

func (c *CronScheduler) context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runCtx
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
