package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/ports"
)

// PgxPool is the subset of *pgxpool.Pool used by the repository.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxPool = (*pgxpool.Pool)(nil)

const articlesTable = "articles"

var articleColumns = []string{
	"id", "title", "body", "excerpt", "image", "categories", "published_at",
	"views", "views_last_24h", "views_last_7d",
	"trending_score", "popular_score", "is_trending", "last_score_update",
}

const articlesSchema = `CREATE TABLE IF NOT EXISTS articles (
    id                TEXT PRIMARY KEY,
    title             TEXT NOT NULL,
    body              TEXT NOT NULL DEFAULT '',
    excerpt           TEXT NOT NULL DEFAULT '',
    image             TEXT NOT NULL DEFAULT '',
    categories        TEXT[] NOT NULL DEFAULT '{}',
    published_at      TIMESTAMPTZ NOT NULL,
    views             BIGINT NOT NULL DEFAULT 0,
    views_last_24h    BIGINT NOT NULL DEFAULT 0,
    views_last_7d     BIGINT NOT NULL DEFAULT 0,
    trending_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
    popular_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_trending       BOOLEAN NOT NULL DEFAULT FALSE,
    last_score_update TIMESTAMPTZ NOT NULL DEFAULT '0001-01-01 00:00:00+00'
)`

// PostgresArticleRepository persists articles into Postgres.
type PostgresArticleRepository struct {
	pool PgxPool
	psql sq.StatementBuilderType
}

var _ ports.ArticleRepository = (*PostgresArticleRepository)(nil)

// NewPostgresArticleRepository wires a pgx pool implementation.
func NewPostgresArticleRepository(pool PgxPool) *PostgresArticleRepository {
	return &PostgresArticleRepository{
		pool: pool,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Migrate creates the articles table when missing.
func (r *PostgresArticleRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, articlesSchema); err != nil {
		return fmt.Errorf("create articles table: %w", err)
	}
	return nil
}

func (r *PostgresArticleRepository) Create(ctx context.Context, article domain.Article) error {
	query, args, err := r.psql.Insert(articlesTable).
		Columns(articleColumns...).
		Values(
			article.ID, article.Title, article.Body, article.Excerpt, article.Image,
			nonNil(article.Categories), article.PublishedAt,
			article.Views, article.ViewsLast24h, article.ViewsLast7d,
			article.TrendingScore, article.PopularScore, article.IsTrending, article.LastScoreUpdate,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (r *PostgresArticleRepository) Get(ctx context.Context, id string) (domain.Article, error) {
	query, args, err := r.psql.Select(articleColumns...).
		From(articlesTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build select: %w", err)
	}

	article, err := scanArticle(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("select article: %w", err)
	}
	return article, nil
}

func (r *PostgresArticleRepository) List(ctx context.Context) ([]domain.Article, error) {
	query, args, err := r.psql.Select(articleColumns...).
		From(articlesTable).
		OrderBy("published_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

func (r *PostgresArticleRepository) IncrementViews(ctx context.Context, id string) (domain.Article, error) {
	query, args, err := r.psql.Update(articlesTable).
		Set("views", sq.Expr("views + 1")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(articleColumns, ", ")).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build update: %w", err)
	}

	article, err := scanArticle(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("increment views: %w", err)
	}
	return article, nil
}

func (r *PostgresArticleRepository) UpdateScores(ctx context.Context, id string, update domain.ScoreUpdate) error {
	builder := r.psql.Update(articlesTable).
		Set("trending_score", update.TrendingScore).
		Set("popular_score", update.PopularScore).
		Set("is_trending", update.IsTrending).
		Set("last_score_update", update.LastScoreUpdate)
	if update.ViewsLast24h != nil {
		builder = builder.Set("views_last_24h", *update.ViewsLast24h)
	}
	if update.ViewsLast7d != nil {
		builder = builder.Set("views_last_7d", *update.ViewsLast7d)
	}

	query, args, err := builder.Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update scores: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanArticle(row pgx.Row) (domain.Article, error) {
	var a domain.Article
	err := row.Scan(
		&a.ID, &a.Title, &a.Body, &a.Excerpt, &a.Image, &a.Categories, &a.PublishedAt,
		&a.Views, &a.ViewsLast24h, &a.ViewsLast7d,
		&a.TrendingScore, &a.PopularScore, &a.IsTrending, &a.LastScoreUpdate,
	)
	return a, err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// OpenPostgres connects a pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
