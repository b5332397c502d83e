// Package storage defines the persistence contract for enriched articles.
// Two implementations exist: the embedded sqlite store used by default and
// a postgres store for shared deployments.
package storage

import (
	"context"
	"time"

	"github.com/mirosk/newsradar/internal/intel"
)

// Filter narrows the read path for the browsing layer.
type Filter struct {
	Category string
	Topic    string
	// MinScore keeps only articles at or above the score.
	MinScore int
	// Since keeps only articles created at or after the time.
	Since *time.Time
	// OrderByScore sorts by value score (then recency) instead of pure
	// recency.
	OrderByScore bool
	Limit        int
	Offset       int
}

// Store is the persistence contract. Implementations must make InsertBatch
// idempotent under URL collision: a row whose URL already exists is skipped
// silently, never an error for the batch.
type Store interface {
	// ExistingURLs returns every persisted URL in one bulk read; the
	// pipeline seeds its dedup set from it.
	ExistingURLs(ctx context.Context) (map[string]struct{}, error)

	// InsertBatch writes articles with insert-or-ignore semantics and
	// reports how many rows were actually inserted.
	InsertBatch(ctx context.Context, articles []intel.Article) (int, error)

	// Query reads articles back for the browsing layer.
	Query(ctx context.Context, filter Filter) ([]intel.Article, error)

	Close() error
}
