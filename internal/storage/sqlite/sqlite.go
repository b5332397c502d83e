// Package sqlite implements the article store on an embedded sqlite
// database. sqlite does not support concurrent writers safely, so a
// process-wide mutex serializes all writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/mirosk/newsradar/internal/intel"
	"github.com/mirosk/newsradar/internal/storage"
	_ "modernc.org/sqlite"
)

var _ storage.Store = (*sqliteStore)(nil)

type sqliteStore struct {
	db      *sql.DB
	writeMu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
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
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
CREATE INDEX IF NOT EXISTS idx_articles_publish_date ON articles(publish_date);
CREATE INDEX IF NOT EXISTS idx_articles_value_score ON articles(value_score);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
`

// New opens (and initializes if needed) a sqlite-backed store at the given
// DSN. A plain file path works; "file::memory:?cache=shared" gives an
// in-memory store for tests.
func New(dsn string) (storage.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) ExistingURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM articles`)
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

func (s *sqliteStore) InsertBatch(ctx context.Context, articles []intel.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback()

	const insert = `
	INSERT OR IGNORE INTO articles (
		title, url, source, publish_date, author,
		sub_category, category, summary, keywords,
		value_score, value_reason, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	inserted := 0
	for _, a := range articles {
		res, err := tx.ExecContext(ctx, insert,
			a.Title, a.URL, a.Source, a.PublishDate, a.Author,
			a.Topic, a.Category, a.Summary, a.Keywords,
			a.ValueScore, a.ValueReason, a.CreatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert article %s: %w", a.URL, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert tx: %w", err)
	}

	return inserted, nil
}

func (s *sqliteStore) Query(ctx context.Context, filter storage.Filter) ([]intel.Article, error) {
	builder := sq.Select(
		"title", "url", "source", "publish_date", "author",
		"sub_category", "category", "summary", "keywords",
		"value_score", "value_reason", "created_at",
	).From("articles")

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

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
