// Package pipeline orchestrates one ingestion run: discovery, filtering,
// fetching, AI enrichment, and batch persistence, under a bounded worker
// pool. A failing task never aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mirosk/newsradar/internal/enrich"
	"github.com/mirosk/newsradar/internal/fetch"
	"github.com/mirosk/newsradar/internal/intel"
	"github.com/mirosk/newsradar/internal/metrics"
	"github.com/mirosk/newsradar/internal/report"
	"github.com/mirosk/newsradar/internal/search"
	"github.com/mirosk/newsradar/internal/storage"
	"github.com/mirosk/newsradar/internal/strategy"
	"github.com/mirosk/newsradar/pkg/ratelimit"
)

// Config tunes one run.
type Config struct {
	// Workers bounds concurrent tasks.
	Workers int
	// ResultsPerTask caps candidates requested per search query.
	ResultsPerTask int
	// MinContentLength drops extracts shorter than this many bytes.
	MinContentLength int
	// TaskPacing is the delay between task dispatches.
	TaskPacing time.Duration
	// SearchOptions are passed through to the web search provider.
	SearchOptions search.Options
}

// Pipeline wires the stages together. Build one per run with New.
type Pipeline struct {
	cfg      Config
	strat    strategy.Strategy
	web      search.Provider
	feeds    search.Provider
	fetcher  *fetch.Fetcher
	enricher *enrich.Client
	store    storage.Store
	logger   *slog.Logger

	// mu guards claimed, accepted and stats. claimed doubles as the
	// processing lock: a worker that finds the URL present walks away.
	mu       sync.Mutex
	claimed  map[string]struct{}
	accepted []intel.Article
	stats    report.Stats
}

// New assembles a Pipeline. The feeds provider is optional; pass nil to
// skip RSS discovery.
func New(cfg Config, strat strategy.Strategy, web search.Provider, feeds search.Provider,
	fetcher *fetch.Fetcher, enricher *enrich.Client, store storage.Store, logger *slog.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.ResultsPerTask <= 0 {
		cfg.ResultsPerTask = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		strat:    strat,
		web:      web,
		feeds:    feeds,
		fetcher:  fetcher,
		enricher: enricher,
		store:    store,
		logger:   logger,
		claimed:  make(map[string]struct{}),
	}
}

// Run executes the full pipeline and returns the run summary. The only
// errors it returns are store failures and context cancellation; per-task
// failures are absorbed into the summary.
func (p *Pipeline) Run(ctx context.Context) (report.Summary, error) {
	runID := uuid.NewString()
	start := time.Now()

	existing, err := p.store.ExistingURLs(ctx)
	if err != nil {
		return report.Summary{}, fmt.Errorf("seed dedup set: %w", err)
	}
	p.mu.Lock()
	for u := range existing {
		p.claimed[u] = struct{}{}
	}
	p.mu.Unlock()

	tasks := p.strat.Tasks()
	p.stats.TasksTotal = len(tasks)
	feeds := p.strat.FeedSources()
	if p.feeds != nil {
		p.stats.TasksTotal += len(feeds)
	}

	p.logger.Info("run started",
		"run_id", runID,
		"tasks", p.stats.TasksTotal,
		"workers", p.cfg.Workers,
		"known_urls", len(existing))

	pacer := ratelimit.New(p.cfg.TaskPacing, 0)
	defer pacer.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	dispatch := func(task intel.SearchTask, provider search.Provider, kind string) bool {
		if err := pacer.Wait(gctx); err != nil {
			return false
		}
		g.Go(func() error {
			p.runTask(gctx, provider, task, kind)
			return nil
		})
		return true
	}

	for _, task := range tasks {
		if !dispatch(task, p.web, "web") {
			break
		}
	}
	if p.feeds != nil {
		for _, src := range feeds {
			task := intel.SearchTask{Query: src.FeedURL, Topic: strategy.SourceTopic}
			if !dispatch(task, p.feeds, "feed") {
				break
			}
		}
	}

	if err := g.Wait(); err != nil {
		return report.Summary{}, err
	}
	if err := ctx.Err(); err != nil {
		return report.Summary{}, err
	}

	p.mu.Lock()
	accepted := p.accepted
	p.mu.Unlock()

	inserted := 0
	if len(accepted) > 0 {
		inserted, err = p.store.InsertBatch(ctx, accepted)
		if err != nil {
			return report.Summary{}, fmt.Errorf("persist batch: %w", err)
		}
	}
	p.stats.Persisted = inserted

	summary := report.Build(runID, start, time.Now(), p.stats, accepted)
	p.logger.Info("run finished",
		"run_id", runID,
		"duration", summary.Duration,
		"accepted", p.stats.Accepted,
		"persisted", inserted,
		"high_value", len(summary.HighValue))
	return summary, nil
}

// runTask executes one search task to completion. A panic inside a task is
// contained here so the worker pool keeps draining.
func (p *Pipeline) runTask(ctx context.Context, provider search.Provider, task intel.SearchTask, kind string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "query", task.Query, "panic", r)
			p.mu.Lock()
			p.stats.TasksFailed++
			p.mu.Unlock()
		}
	}()

	candidates := provider.Search(ctx, task.Query, p.cfg.ResultsPerTask, p.cfg.SearchOptions)

	outcome := "ok"
	if len(candidates) == 0 {
		outcome = "empty"
	}
	metrics.SearchesTotal.WithLabelValues(kind, outcome).Inc()
	metrics.CandidatesTotal.Add(float64(len(candidates)))

	p.mu.Lock()
	p.stats.Discovered += len(candidates)
	p.mu.Unlock()

	for _, cand := range candidates {
		if ctx.Err() != nil {
			return
		}
		p.processCandidate(ctx, task, cand)
	}
}

// processCandidate takes one search hit through filter, fetch, classify,
// score and validation. Every early exit records a skip reason.
func (p *Pipeline) processCandidate(ctx context.Context, task intel.SearchTask, cand intel.Candidate) {
	if p.strat.Rejected(cand.URL) {
		p.skip(metrics.SkipBlacklisted, cand.URL, &p.stats.Blacklisted)
		return
	}

	// Claim before any network work so that the same URL surfacing in two
	// concurrent tasks is processed exactly once.
	p.mu.Lock()
	if _, seen := p.claimed[cand.URL]; seen {
		p.stats.Duplicates++
		p.mu.Unlock()
		metrics.CandidatesSkippedTotal.WithLabelValues(metrics.SkipDuplicate).Inc()
		return
	}
	p.claimed[cand.URL] = struct{}{}
	p.mu.Unlock()

	fetchStart := time.Now()
	extract, err := p.fetcher.Fetch(ctx, cand.URL)
	metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		p.logger.Warn("fetch failed", "url", cand.URL, "error", err)
		p.skip(metrics.SkipFetchFailed, cand.URL, &p.stats.FetchFailures)
		return
	}

	if len(extract.Text) < p.cfg.MinContentLength {
		p.skip(metrics.SkipTooShort, cand.URL, &p.stats.TooShort)
		return
	}

	title := extract.Title
	if strings.TrimSpace(title) == "" {
		title = cand.Title
	}

	classifyStart := time.Now()
	cls := p.enricher.Classify(ctx, title, extract.Text)
	metrics.EnrichmentDuration.WithLabelValues("classify").Observe(time.Since(classifyStart).Seconds())
	if cls == nil {
		p.skip(metrics.SkipClassifyFailed, cand.URL, &p.stats.ClassifyFailed)
		return
	}
	if cls.Category == intel.CategoryUnrelated {
		p.skip(metrics.SkipUnrelated, cand.URL, &p.stats.Unrelated)
		return
	}

	scoreStart := time.Now()
	val := p.enricher.ScoreValue(ctx, cls.Summary, task.Topic)
	metrics.EnrichmentDuration.WithLabelValues("score").Observe(time.Since(scoreStart).Seconds())
	if val == nil {
		// Valuation failure does not discard the article; it gets the
		// floor score so a later run of the scorer could revisit it.
		val = &enrich.Valuation{Score: intel.MinScore, Reason: "evaluation failed"}
	}

	article, err := intel.NewArticle(intel.Article{
		Title:       title,
		URL:         cand.URL,
		Source:      sourceOf(cand),
		PublishDate: firstOf(cand.PublishDate, extract.PublishDate),
		Author:      firstOf(cand.Author, extract.Author),
		Topic:       task.Topic,
		Category:    cls.Category,
		Summary:     cls.Summary,
		Keywords:    strings.Join(cls.Keywords, ","),
		ValueScore:  val.Score,
		ValueReason: val.Reason,
	})
	if err != nil {
		p.logger.Warn("candidate rejected", "url", cand.URL, "error", err)
		p.skip(metrics.SkipInvalid, cand.URL, &p.stats.Invalid)
		return
	}

	p.mu.Lock()
	p.accepted = append(p.accepted, article)
	p.stats.Accepted++
	p.mu.Unlock()
	metrics.ArticlesAcceptedTotal.Inc()

	p.logger.Info("article accepted",
		"url", article.URL,
		"category", article.Category,
		"score", article.ValueScore)
}

func (p *Pipeline) skip(reason, url string, counter *int) {
	metrics.CandidatesSkippedTotal.WithLabelValues(reason).Inc()
	p.mu.Lock()
	*counter++
	p.mu.Unlock()
	p.logger.Debug("candidate skipped", "url", url, "reason", reason)
}

// sourceOf prefers the provider's display link, falling back to the URL host.
func sourceOf(cand intel.Candidate) string {
	if cand.DisplayLink != "" {
		return cand.DisplayLink
	}
	if u, err := url.Parse(cand.URL); err == nil {
		return u.Host
	}
	return ""
}

func firstOf(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
