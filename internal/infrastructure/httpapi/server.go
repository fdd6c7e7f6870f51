package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/metrics"
)

// ViewRecorder counts article views.
type ViewRecorder interface {
	RecordView(ctx context.Context, articleID, identifier string) (domain.ViewResult, error)
}

// ArticleQueries serves article detail and ranked listings.
type ArticleQueries interface {
	Get(ctx context.Context, id string) (domain.Article, error)
	Trending(ctx context.Context, limit int) ([]domain.Article, error)
	Popular(ctx context.Context, limit int) ([]domain.Article, error)
	ByCategory(ctx context.Context, category string, order domain.SortOrder, limit int) ([]domain.Article, error)
}

// ArticlePublisher creates articles from editor drafts.
type ArticlePublisher interface {
	Publish(ctx context.Context, draft domain.Draft) (domain.Article, error)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Deps wires the use cases behind the HTTP API.
type Deps struct {
	Recorder  ViewRecorder
	Articles  ArticleQueries
	Publisher ArticlePublisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Checks    map[string]HealthCheck

	ViewCountDelaySeconds int
	// ViewRatePerSecond limits view notifications per client IP; zero disables it.
	ViewRatePerSecond float64
}

// Options tunes the listener.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server exposes the portal API over echo.
type Server struct {
	echo   *echo.Echo
	opts   Options
	logger *slog.Logger
}

// NewServer registers middleware and routes.
func NewServer(deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/healthz" || path == "/metrics"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				logger.Info("request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				logger.Error("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	h := &handler{
		recorder:  deps.Recorder,
		articles:  deps.Articles,
		publisher: deps.Publisher,
		checks:    deps.Checks,
		logger:    logger,
		delaySecs: deps.ViewCountDelaySeconds,
	}

	var viewLimit []echo.MiddlewareFunc
	if deps.ViewRatePerSecond > 0 {
		viewLimit = append(viewLimit, middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(deps.ViewRatePerSecond),
				Burst:     max(int(deps.ViewRatePerSecond), 1),
				ExpiresIn: 5 * time.Minute,
			}),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			},
		}))
	}

	api := e.Group("/api")
	api.POST("/articles", h.publish)
	api.GET("/articles/trending", h.trending)
	api.GET("/articles/popular", h.popular)
	api.GET("/articles/:id", h.article)
	api.POST("/articles/:id/view", h.recordView, viewLimit...)
	api.GET("/categories/:category/articles", h.category)
	api.GET("/tracking/config", h.trackingConfig)

	e.GET("/healthz", h.health)
	e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))

	return &Server{echo: e, opts: opts, logger: logger}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.echo.Server.ReadTimeout = s.opts.ReadTimeout
	s.echo.Server.WriteTimeout = s.opts.WriteTimeout

	s.logger.Info("http server listening", "addr", s.opts.Addr)
	if err := s.echo.Start(s.opts.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.opts.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ShutdownTimeout)
		defer cancel()
	}
	return s.echo.Shutdown(ctx)
}
