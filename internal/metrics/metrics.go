// Package metrics exposes prometheus instrumentation for the ingestion
// pipeline and an optional /metrics listener.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skip reasons used as label values on CandidatesSkippedTotal.
const (
	SkipDuplicate      = "duplicate"
	SkipBlacklisted    = "blacklisted"
	SkipFetchFailed    = "fetch_failed"
	SkipTooShort       = "too_short"
	SkipClassifyFailed = "classify_failed"
	SkipUnrelated      = "unrelated"
	SkipInvalid        = "invalid"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsradar_searches_total",
			Help: "Search task executions by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	CandidatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newsradar_candidates_total",
			Help: "Candidate URLs discovered across all search tasks",
		},
	)

	CandidatesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsradar_candidates_skipped_total",
			Help: "Candidates dropped before persistence, by reason",
		},
		[]string{"reason"},
	)

	ArticlesAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newsradar_articles_accepted_total",
			Help: "Articles that survived the full pipeline",
		},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newsradar_fetch_duration_seconds",
			Help:    "Duration of content fetches (including retries)",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	EnrichmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newsradar_enrichment_duration_seconds",
			Help:    "Duration of AI enrichment calls by stage",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
)

// Server wraps the HTTP listener exposing /metrics.
type Server struct {
	srv *http.Server
}

// Start exposes /metrics on the given port without blocking.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
