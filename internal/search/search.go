// Package search discovers candidate articles for a query. Providers fail
// soft: transport or decode problems surface as an empty result list, never
// as an error that would abort the calling task.
package search

import (
	"context"

	"github.com/mirosk/newsradar/internal/intel"
)

// Options refine a single search call.
type Options struct {
	// SortByDate asks the provider to order results newest-first when it
	// supports ordering.
	SortByDate bool
	// DateRestrict limits results to a recency window in provider syntax
	// (e.g. "d7" for the last seven days). Empty means no restriction.
	DateRestrict string
}

// Provider executes one search task's query and returns candidates.
type Provider interface {
	Search(ctx context.Context, query string, count int, opts Options) []intel.Candidate
}
