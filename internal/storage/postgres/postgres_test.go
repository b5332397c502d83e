package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mirosk/newsradar/internal/intel"
	"github.com/mirosk/newsradar/internal/storage"
)

// The postgres store needs a live server; the test is skipped unless
// NEWSRADAR_TEST_PG_DSN points at one.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("NEWSRADAR_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("skipping postgres store test: NEWSRADAR_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	s, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create postgres store: %v", err)
	}
	defer s.Close()

	article := intel.Article{
		Title:       "pg roundtrip",
		URL:         "https://example-pg.com/a",
		Source:      "example-pg.com",
		PublishDate: "2024-03-01",
		Author:      "author",
		Topic:       "hair_dryers",
		Category:    "technology_innovation",
		Summary:     "summary",
		Keywords:    "k1, k2",
		ValueScore:  81,
		ValueReason: "reason",
		CreatedAt:   time.Now().UTC(),
	}

	n, err := s.InsertBatch(ctx, []intel.Article{article})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 insert, got %d", n)
	}

	// Same batch again must be a no-op.
	n, err = s.InsertBatch(ctx, []intel.Article{article})
	if err != nil {
		t.Fatalf("duplicate insert errored: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 inserts on duplicate, got %d", n)
	}

	urls, err := s.ExistingURLs(ctx)
	if err != nil {
		t.Fatalf("existing urls failed: %v", err)
	}
	if _, ok := urls[article.URL]; !ok {
		t.Errorf("expected %s in existing urls", article.URL)
	}

	got, err := s.Query(ctx, storage.Filter{MinScore: 80, OrderByScore: true, Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) == 0 {
		t.Error("expected at least one high-value article")
	}
}
