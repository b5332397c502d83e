// Command newsradar runs the industry intelligence pipeline: it discovers
// candidate articles through web search and RSS, fetches and enriches them,
// and persists the results for later browsing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirosk/newsradar/internal/config"
	"github.com/mirosk/newsradar/internal/enrich"
	"github.com/mirosk/newsradar/internal/fetch"
	"github.com/mirosk/newsradar/internal/fingerprint"
	"github.com/mirosk/newsradar/internal/metrics"
	"github.com/mirosk/newsradar/internal/pipeline"
	"github.com/mirosk/newsradar/internal/report"
	"github.com/mirosk/newsradar/internal/search"
	"github.com/mirosk/newsradar/internal/storage"
	"github.com/mirosk/newsradar/internal/storage/postgres"
	"github.com/mirosk/newsradar/internal/storage/sqlite"
	"github.com/mirosk/newsradar/internal/strategy"
	"github.com/mirosk/newsradar/pkg/proxy"
	"github.com/mirosk/newsradar/pkg/retry"
)

var (
	flagDSN         string
	flagStrategy    string
	flagWorkers     int
	flagMetricsPort int
	flagJSON        bool
	flagNoFeeds     bool
	flagFingerprint string
	flagProxyFile   string

	flagCategory string
	flagTopic    string
	flagMinScore int
	flagDays     int
	flagLimit    int
)

func main() {
	root := &cobra.Command{
		Use:           "newsradar",
		Short:         "Industry intelligence collector for the personal care appliance vertical",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagDSN, "db", "", "database location: a file path for sqlite or a postgres:// DSN")

	ingest := &cobra.Command{
		Use:   "ingest",
		Short: "Run one full discovery and enrichment pass",
		RunE:  runIngest,
	}
	ingest.Flags().StringVar(&flagStrategy, "strategy", "", "YAML strategy file overriding the built-in search plan")
	ingest.Flags().IntVar(&flagWorkers, "workers", 0, "override the worker pool size")
	ingest.Flags().IntVar(&flagMetricsPort, "metrics-port", 0, "expose Prometheus metrics on this port (0 = off)")
	ingest.Flags().BoolVar(&flagJSON, "json", false, "emit the run summary as JSON")
	ingest.Flags().BoolVar(&flagNoFeeds, "no-feeds", false, "skip RSS feed discovery")
	ingest.Flags().StringVar(&flagFingerprint, "fingerprint", string(fingerprint.ProfileChrome), "TLS fingerprint profile: chrome, firefox, or go")
	ingest.Flags().StringVar(&flagProxyFile, "proxy-file", "", "file with one proxy URL per line to rotate fetches through")

	browse := &cobra.Command{
		Use:   "report",
		Short: "Browse persisted articles",
		RunE:  runReport,
	}
	browse.Flags().StringVar(&flagCategory, "category", "", "filter by category")
	browse.Flags().StringVar(&flagTopic, "topic", "", "filter by topic")
	browse.Flags().IntVar(&flagMinScore, "min-score", 0, "minimum value score")
	browse.Flags().IntVar(&flagDays, "days", 0, "only articles ingested in the last N days")
	browse.Flags().IntVar(&flagLimit, "limit", 20, "maximum rows to print")
	browse.Flags().BoolVar(&flagJSON, "json", false, "emit results as JSON")

	root.AddCommand(ingest, browse)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openStore picks the backend from the DSN shape: postgres:// goes to pgx,
// anything else is treated as a sqlite file path.
func openStore(ctx context.Context, dsn string) (storage.Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.New(ctx, dsn)
	}
	return sqlite.New(dsn)
}

func runIngest(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagDSN != "" {
		cfg.DatabaseDSN = flagDSN
	}
	if flagStrategy != "" {
		cfg.StrategyFile = flagStrategy
	}
	if flagWorkers > 0 {
		cfg.MaxWorkers = flagWorkers
	}
	if flagMetricsPort > 0 {
		cfg.MetricsPort = flagMetricsPort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strat := strategy.Default()
	if cfg.StrategyFile != "" {
		strat, err = strategy.LoadFile(cfg.StrategyFile)
		if err != nil {
			return fmt.Errorf("load strategy: %w", err)
		}
	}

	store, err := openStore(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	var proxies *proxy.Pool
	if flagProxyFile != "" {
		proxies = proxy.NewPool(proxy.Config{})
		if err := proxies.LoadFile(flagProxyFile); err != nil {
			return fmt.Errorf("load proxies: %w", err)
		}
		logger.Info("proxy pool loaded", "proxies", proxies.Size())
	}

	fetcher, err := fetch.New(fetch.Config{
		Timeout:     cfg.RequestTimeout,
		Fingerprint: fingerprint.Profile(flagFingerprint),
		ProxyPool:   proxies,
		Retry: retry.Policy{
			Attempts: cfg.RetryAttempts,
			Delay:    cfg.RetryDelay,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("build fetcher: %w", err)
	}

	var feeds search.Provider
	if !flagNoFeeds {
		feeds = search.NewRSSClient(logger)
	}

	p := pipeline.New(
		pipeline.Config{
			Workers:          cfg.MaxWorkers,
			ResultsPerTask:   cfg.ResultsPerTask,
			MinContentLength: cfg.MinContentLength,
			TaskPacing:       cfg.TaskPacing,
			SearchOptions:    search.Options{SortByDate: true},
		},
		strat,
		search.NewGoogleClient(cfg.GoogleAPIKey, cfg.SearchEngineID, logger),
		feeds,
		fetcher,
		enrich.NewClient(cfg.DeepSeekAPIKey, logger),
		store,
		logger,
	)

	var metricsSrv *metrics.Server
	if cfg.MetricsPort > 0 {
		metricsSrv = metrics.Start(cfg.MetricsPort)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Stop(shutdownCtx)
		}()
	}

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}

	// Individual task failures are already folded into the summary; the
	// command itself succeeds whenever the run completed.
	if flagJSON {
		return report.WriteJSON(os.Stdout, summary)
	}
	return report.WriteText(os.Stdout, summary)
}

func runReport(cmd *cobra.Command, args []string) error {
	dsn := flagDSN
	if dsn == "" {
		dsn = "news.db"
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	filter := storage.Filter{
		Category:     flagCategory,
		Topic:        flagTopic,
		MinScore:     flagMinScore,
		OrderByScore: true,
		Limit:        flagLimit,
	}
	if flagDays > 0 {
		since := time.Now().AddDate(0, 0, -flagDays)
		filter.Since = &since
	}

	articles, err := store.Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("query articles: %w", err)
	}

	if flagJSON {
		return report.WriteArticlesJSON(os.Stdout, articles)
	}
	return report.WriteArticlesText(os.Stdout, articles)
}
