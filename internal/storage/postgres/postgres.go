// Package postgres implements the article store on postgres for shared
// deployments where several readers browse the same corpus. Uniqueness is
// enforced the same way as the sqlite store: by the url column, with
// conflicting inserts ignored.
package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mirosk/newsradar/internal/intel"
	"github.com/mirosk/newsradar/internal/storage"
)

var _ storage.Store = (*postgresStore)(nil)

type postgresStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	url TEXT UNIQUE NOT NULL,
	source TEXT,
	publish_date TEXT,
	author TEXT,
	sub_category TEXT,
	category TEXT,
	summary TEXT,
	keywords TEXT,
	value_score INTEGER,
	value_reason TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_articles_publish_date ON articles(publish_date);
CREATE INDEX IF NOT EXISTS idx_articles_value_score ON articles(value_score);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
`

// New connects to postgres and ensures the schema exists.
func New(ctx context.Context, dsn string) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) ExistingURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT url FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("query existing urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls[u] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate urls: %w", err)
	}

	return urls, nil
}

func (s *postgresStore) InsertBatch(ctx context.Context, articles []intel.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	const insert = `
	INSERT INTO articles (
		title, url, source, publish_date, author,
		sub_category, category, summary, keywords,
		value_score, value_reason, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (url) DO NOTHING
	`

	inserted := 0
	for _, a := range articles {
		tag, err := s.pool.Exec(ctx, insert,
			a.Title, a.URL, a.Source, a.PublishDate, a.Author,
			a.Topic, a.Category, a.Summary, a.Keywords,
			a.ValueScore, a.ValueReason, a.CreatedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert article %s: %w", a.URL, err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

func (s *postgresStore) Query(ctx context.Context, filter storage.Filter) ([]intel.Article, error) {
	builder := sq.Select(
		"title", "url", "source", "publish_date", "author",
		"sub_category", "category", "summary", "keywords",
		"value_score", "value_reason", "created_at",
	).From("articles").PlaceholderFormat(sq.Dollar)

	if filter.Category != "" {
		builder = builder.Where(sq.Eq{"category": filter.Category})
	}
	if filter.Topic != "" {
		builder = builder.Where(sq.Eq{"sub_category": filter.Topic})
	}
	if filter.MinScore > 0 {
		builder = builder.Where(sq.GtOrEq{"value_score": filter.MinScore})
	}
	if filter.Since != nil {
		builder = builder.Where(sq.GtOrEq{"created_at": *filter.Since})
	}

	if filter.OrderByScore {
		builder = builder.OrderBy("value_score DESC", "created_at DESC")
	} else {
		builder = builder.OrderBy("created_at DESC")
	}

	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []intel.Article
	for rows.Next() {
		var a intel.Article
		if err := rows.Scan(
			&a.Title, &a.URL, &a.Source, &a.PublishDate, &a.Author,
			&a.Topic, &a.Category, &a.Summary, &a.Keywords,
			&a.ValueScore, &a.ValueReason, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	return articles, nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}
