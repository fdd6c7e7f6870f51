package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/ports"
)

const excerptRunes = 280

// Publisher creates new articles with zeroed counters and scores.
type Publisher struct {
	articles ports.ArticleRepository
	content  ports.ContentProcessor
	logger   *slog.Logger
	now      func() time.Time
}

// NewPublisher wires the publisher; now defaults to time.Now.
func NewPublisher(articles ports.ArticleRepository, content ports.ContentProcessor, logger *slog.Logger, now func() time.Time) *Publisher {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{articles: articles, content: content, logger: logger, now: now}
}

// Publish sanitizes the draft and stores it as a new article.
func (p *Publisher) Publish(ctx context.Context, draft domain.Draft) (domain.Article, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return domain.Article{}, fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}

	body := draft.Body
	excerpt := ""
	if p.content != nil {
		body = p.content.Sanitize(body)
		var err error
		excerpt, err = p.content.Excerpt(body, excerptRunes)
		if err != nil {
			return domain.Article{}, fmt.Errorf("build excerpt: %w", err)
		}
	}

	article := domain.Article{
		ID:          uuid.NewString(),
		Title:       title,
		Body:        body,
		Excerpt:     excerpt,
		Image:       strings.TrimSpace(draft.Image),
		Categories:  normalizeCategories(draft.Categories),
		PublishedAt: p.now().UTC(),
	}

	if err := p.articles.Create(ctx, article); err != nil {
		return domain.Article{}, domain.NewStorageError("create article", err)
	}

	p.logger.Info("article published", "article", article.ID, "categories", article.Categories)
	return article, nil
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

func normalizeCategories(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = normalizeCategory(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
