package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"NewsPortal/internal/config"
	"NewsPortal/internal/domain"
	"NewsPortal/internal/infrastructure/cache"
	"NewsPortal/internal/infrastructure/content"
	"NewsPortal/internal/infrastructure/httpapi"
	"NewsPortal/internal/infrastructure/scheduler"
	"NewsPortal/internal/infrastructure/storage"
	"NewsPortal/internal/infrastructure/telegram"
	"NewsPortal/internal/logging"
	"NewsPortal/internal/metrics"
	"NewsPortal/internal/ports"
	"NewsPortal/internal/usecase"
)

// Task names.
const (
	TaskTrending = "trending"
	TaskPopular  = "popular"
	TaskCleanup  = "cleanup"
	TaskSnapshot = "snapshot"
)

// ErrEventHistoryMissing blocks a scoring pass that would reset stored
// counters because the view event file is gone.
var ErrEventHistoryMissing = errors.New("view event history missing")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	articles       ports.ArticleRepository
	snapshot       *storage.MemoryArticleRepository
	events         ports.ViewEventRepository
	eventsSnapshot *storage.MemoryViewEventRepository
	checks         map[string]httpapi.HealthCheck
	closers        []func(context.Context) error

	recorder  *usecase.Recorder
	scoring   *usecase.ScoringService
	reader    *usecase.ArticleReader
	publisher *usecase.Publisher
	cleaner   *usecase.Cleaner
	scheduler *usecase.Scheduler
	server    *httpapi.Server
}

// New connects the configured stores and builds every use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		metrics: metrics.New(),
		checks:  map[string]httpapi.HealthCheck{},
	}

	if err := a.openArticles(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	if err := a.openEvents(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	rankings := a.openRankingCache()

	var notifier ports.TrendingNotifier
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID, cfg.Notifications.SiteURL)
	}

	a.recorder = usecase.NewRecorder(usecase.RecorderDeps{
		Articles:    a.articles,
		Events:      a.events,
		Metrics:     a.metrics,
		Logger:      baseLogger.With("component", "recorder"),
		DedupWindow: cfg.Trending.DedupWindow(),
		Retention:   cfg.Trending.Retention(),
	})
	a.scoring = usecase.NewScoringService(usecase.ScoringDeps{
		Articles:       a.articles,
		Events:         a.events,
		Cache:          rankings,
		Notifier:       notifier,
		Policy:         cfg.Trending.Policy(),
		Metrics:        a.metrics,
		Logger:         baseLogger.With("component", "scoring"),
		TrendingWindow: cfg.Trending.TrendingWindow(),
	})
	a.reader = usecase.NewArticleReader(a.articles, rankings, a.metrics, baseLogger.With("component", "reader"))
	a.publisher = usecase.NewPublisher(a.articles, content.NewProcessor(), baseLogger.With("component", "publisher"), nil)
	a.cleaner = usecase.NewCleaner(a.events, a.metrics, baseLogger.With("component", "cleanup"), nil)

	a.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.Scheduler.Location(), baseLogger.With("component", "cron")),
		a.metrics,
		baseLogger.With("component", "scheduler"),
		a.tasks()...,
	)

	a.server = httpapi.NewServer(httpapi.Deps{
		Recorder:              a.recorder,
		Articles:              a.reader,
		Publisher:             a.publisher,
		Metrics:               a.metrics,
		Logger:                baseLogger.With("component", "http"),
		Checks:                a.checks,
		ViewCountDelaySeconds: cfg.Trending.ViewCountDelaySeconds,
		ViewRatePerSecond:     cfg.Server.ViewRatePerSecond,
	}, httpapi.Options{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	return a, nil
}

func (a *Application) openArticles(ctx context.Context) error {
	switch a.cfg.Storage.Articles {
	case config.ArticlesPostgres:
		pool, err := storage.OpenPostgres(ctx, a.cfg.Database.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})

		repo := storage.NewPostgresArticleRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		a.articles = repo
		a.checks["postgres"] = pool.Ping
		a.logger.Info("article store ready", "driver", "postgres")
	case config.ArticlesFile, "":
		repo, err := storage.OpenFileArticleRepository(a.cfg.Storage.SnapshotPath)
		if err != nil {
			return err
		}
		a.articles = repo
		a.snapshot = repo
		a.logger.Info("article store ready", "driver", "file", "path", a.cfg.Storage.SnapshotPath)
	default:
		return fmt.Errorf("unknown article store %q", a.cfg.Storage.Articles)
	}
	return nil
}

func (a *Application) openEvents(ctx context.Context) error {
	if a.cfg.Mongo.URI == "" {
		repo, err := storage.OpenFileViewEventRepository(a.cfg.Storage.EventsPath)
		if err != nil {
			return err
		}
		a.events = repo
		a.eventsSnapshot = repo
		a.logger.Info("view event store ready", "driver", "file", "path", a.cfg.Storage.EventsPath)
		return nil
	}

	client, err := storage.ConnectMongo(ctx, a.cfg.Mongo.URI)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Disconnect)

	repo := storage.NewMongoViewEventRepository(client.Database(a.cfg.Mongo.Database).Collection(a.cfg.Mongo.Collection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return err
	}
	a.events = repo
	a.checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	a.logger.Info("view event store ready", "driver", "mongo", "database", a.cfg.Mongo.Database)
	return nil
}

func (a *Application) openRankingCache() ports.RankingCache {
	if a.cfg.Redis.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr})
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })

	rankings := cache.NewRedisRankingCache(client, a.cfg.Redis.Prefix, a.cfg.Redis.TTL)
	a.checks["redis"] = rankings.Ping
	a.logger.Info("ranking cache enabled", "addr", a.cfg.Redis.Addr)
	return rankings
}

func (a *Application) tasks() []usecase.Task {
	timeout := a.cfg.Scheduler.TaskTimeout
	tasks := []usecase.Task{
		{
			Name:    TaskTrending,
			Spec:    a.cfg.Scheduler.TrendingSpec,
			Timeout: timeout,
			Run: func(ctx context.Context) error {
				_, err := a.score(ctx, domain.Window24h)
				return err
			},
		},
		{
			Name:    TaskPopular,
			Spec:    a.cfg.Scheduler.PopularSpec,
			Timeout: timeout,
			Run: func(ctx context.Context) error {
				_, err := a.score(ctx, domain.Window7d)
				return err
			},
		},
		{
			Name:    TaskCleanup,
			Spec:    a.cfg.Scheduler.CleanupSpec,
			Timeout: timeout,
			Run: func(ctx context.Context) error {
				_, err := a.cleaner.Cleanup(ctx)
				return err
			},
		},
	}
	if a.snapshot != nil || a.eventsSnapshot != nil {
		tasks = append(tasks, usecase.Task{
			Name:    TaskSnapshot,
			Spec:    a.cfg.Scheduler.SnapshotSpec,
			Timeout: timeout,
			Run:     a.flush,
		})
	}
	return tasks
}

// Run serves HTTP and drives the scheduler until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.server.Start)
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *Application) shutdown() error {
	a.logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
	}
	return errors.Join(errs...)
}

func (a *Application) shutdownTimeout() time.Duration {
	if t := a.cfg.Server.ShutdownTimeout; t > 0 {
		return t
	}
	return 10 * time.Second
}

// RunTask executes one scheduled task immediately.
func (a *Application) RunTask(ctx context.Context, name string) error {
	return a.scheduler.RunTask(ctx, name)
}

// Recompute runs one scoring pass for window outside of the schedule.
func (a *Application) Recompute(ctx context.Context, window domain.Window) (domain.BatchResult, error) {
	res, err := a.score(ctx, window)
	if err != nil {
		return res, err
	}
	return res, a.flush(ctx)
}

func (a *Application) score(ctx context.Context, window domain.Window) (domain.BatchResult, error) {
	if err := a.checkEventHistory(ctx); err != nil {
		return domain.BatchResult{Window: window}, err
	}
	return a.scoring.BulkUpdateScores(ctx, window)
}

// checkEventHistory refuses to score when the file event store starts empty
// while articles still carry window counters.
func (a *Application) checkEventHistory(ctx context.Context) error {
	if a.eventsSnapshot == nil || !a.eventsSnapshot.Fresh() {
		return nil
	}

	articles, err := a.articles.List(ctx)
	if err != nil {
		return domain.NewStorageError("list articles", err)
	}
	for _, article := range articles {
		if article.ViewsLast24h > 0 || article.ViewsLast7d > 0 {
			return fmt.Errorf("%w: %s not found while article %s has window counters",
				ErrEventHistoryMissing, a.eventsSnapshot.Path(), article.ID)
		}
	}
	return nil
}

// Cleanup removes expired view events outside of the schedule.
func (a *Application) Cleanup(ctx context.Context) (int64, error) {
	removed, err := a.cleaner.Cleanup(ctx)
	if err != nil {
		return removed, err
	}
	return removed, a.flush(ctx)
}

// flush persists the file-backed stores.
func (a *Application) flush(ctx context.Context) error {
	var errs []error
	if a.eventsSnapshot != nil {
		if err := a.eventsSnapshot.Snapshot(ctx); err != nil {
			errs = append(errs, fmt.Errorf("view events: %w", err))
		}
	}
	if a.snapshot != nil {
		if err := a.snapshot.Snapshot(ctx); err != nil {
			errs = append(errs, fmt.Errorf("articles: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close writes a final snapshot and releases connections.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if err := a.flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("final snapshot: %w", err))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
