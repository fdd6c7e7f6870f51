package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"NewsPortal/internal/domain"
)

type handler struct {
	recorder  ViewRecorder
	articles  ArticleQueries
	publisher ArticlePublisher
	checks    map[string]HealthCheck
	logger    *slog.Logger
	delaySecs int
}

type viewRequest struct {
	Identifier string `json:"identifier"`
}

type viewResponse struct {
	Success        bool    `json:"success"`
	Views          int64   `json:"views"`
	ViewsLast24h   int64   `json:"viewsLast24h"`
	TrendingScore  float64 `json:"trendingScore"`
	AlreadyCounted bool    `json:"alreadyCounted"`
	Message        string  `json:"message"`
}

type publishRequest struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Image      string   `json:"image"`
	Categories []string `json:"categories"`
}

type articleResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Body            string    `json:"body,omitempty"`
	Excerpt         string    `json:"excerpt"`
	Image           string    `json:"image,omitempty"`
	Categories      []string  `json:"categories"`
	PublishedAt     time.Time `json:"publishedAt"`
	Views           int64     `json:"views"`
	ViewsLast24h    int64     `json:"viewsLast24h"`
	ViewsLast7d     int64     `json:"viewsLast7d"`
	TrendingScore   float64   `json:"trendingScore"`
	PopularScore    float64   `json:"popularScore"`
	IsTrending      bool      `json:"isTrending"`
	LastScoreUpdate time.Time `json:"lastScoreUpdate"`
}

type listResponse struct {
	Articles []articleResponse `json:"articles"`
	Count    int               `json:"count"`
}

func toResponse(a domain.Article, withBody bool) articleResponse {
	resp := articleResponse{
		ID:              a.ID,
		Title:           a.Title,
		Excerpt:         a.Excerpt,
		Image:           a.Image,
		Categories:      a.Categories,
		PublishedAt:     a.PublishedAt,
		Views:           a.Views,
		ViewsLast24h:    a.ViewsLast24h,
		ViewsLast7d:     a.ViewsLast7d,
		TrendingScore:   a.TrendingScore,
		PopularScore:    a.PopularScore,
		IsTrending:      a.IsTrending,
		LastScoreUpdate: a.LastScoreUpdate,
	}
	if resp.Categories == nil {
		resp.Categories = []string{}
	}
	if withBody {
		resp.Body = a.Body
	}
	return resp
}

func toList(articles []domain.Article) listResponse {
	out := listResponse{Articles: make([]articleResponse, 0, len(articles)), Count: len(articles)}
	for _, a := range articles {
		out.Articles = append(out.Articles, toResponse(a, false))
	}
	return out
}

func (h *handler) recordView(c echo.Context) error {
	var req viewRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = fingerprint(c.RealIP(), c.Request().UserAgent())
	}

	res, err := h.recorder.RecordView(c.Request().Context(), c.Param("id"), identifier)
	if err != nil {
		return h.mapError(err)
	}

	message := "View counted"
	if !res.Counted {
		message = "View already counted in the last 24 hours"
	}
	return c.JSON(http.StatusOK, viewResponse{
		Success:        true,
		Views:          res.Views,
		ViewsLast24h:   res.ViewsLast24h,
		TrendingScore:  res.TrendingScore,
		AlreadyCounted: !res.Counted,
		Message:        message,
	})
}

// fingerprint derives an anonymous viewer identity from network attributes.
func fingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}

func (h *handler) publish(c echo.Context) error {
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	article, err := h.publisher.Publish(c.Request().Context(), domain.Draft{
		Title:      req.Title,
		Body:       req.Body,
		Image:      req.Image,
		Categories: req.Categories,
	})
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusCreated, toResponse(article, true))
}

func (h *handler) article(c echo.Context) error {
	article, err := h.articles.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, toResponse(article, true))
}

func (h *handler) trending(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return h.mapError(err)
	}
	articles, err := h.articles.Trending(c.Request().Context(), limit)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, toList(articles))
}

func (h *handler) popular(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return h.mapError(err)
	}
	articles, err := h.articles.Popular(c.Request().Context(), limit)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, toList(articles))
}

func (h *handler) category(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return h.mapError(err)
	}
	order, err := domain.ParseSortOrder(c.QueryParam("sort"))
	if err != nil {
		return h.mapError(err)
	}
	articles, err := h.articles.ByCategory(c.Request().Context(), c.Param("category"), order, limit)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, toList(articles))
}

func (h *handler) trackingConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{"viewCountDelaySeconds": h.delaySecs})
}

func (h *handler) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	report := map[string]string{"status": "healthy"}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			report["status"] = "degraded"
			report[name] = err.Error()
			continue
		}
		report[name] = "ok"
	}
	return c.JSON(status, report)
}

func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidArgument
	}
	return limit, nil
}

// mapError converts a domain error into an echo.HTTPError.
func (h *handler) mapError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "article not found")
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidWindow):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request handling failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
