// Package fetch downloads candidate URLs and extracts their readable text.
// Every failure mode (network, block page, unparseable or empty content) is
// retried under a fixed policy; exhausting the retries means "skip this
// candidate", never a hard error for the pipeline.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/mirosk/newsradar/internal/fingerprint"
	"github.com/mirosk/newsradar/pkg/httpclient"
	"github.com/mirosk/newsradar/pkg/proxy"
	"github.com/mirosk/newsradar/pkg/retry"
	"github.com/mirosk/newsradar/pkg/useragent"
)

// maxBodySize caps article downloads; anything larger is not a news page.
const maxBodySize = 10 << 20

// ErrEmptyExtract reports that readability produced no text for the page.
var ErrEmptyExtract = errors.New("no readable text extracted")

// ErrBlocked reports a bot-protection challenge page.
var ErrBlocked = errors.New("blocked by bot protection")

type contextKey string

const proxyKey contextKey = "proxy_url"

// Extract is the readable content of one fetched page.
type Extract struct {
	Title       string
	Text        string
	Excerpt     string
	PublishDate string
	Author      string
}

// Config sets up a Fetcher.
type Config struct {
	Timeout     time.Duration
	Retry       retry.Policy
	UAPool      *useragent.Pool
	ProxyPool   *proxy.Pool
	Fingerprint fingerprint.Profile
}

// Fetcher performs download-then-extract for candidate URLs. One Fetcher is
// shared by all workers; it is safe for concurrent use.
type Fetcher struct {
	cfg    Config
	client *httpclient.Client
	logger *slog.Logger
}

// New builds a Fetcher. The transport is created once so connections pool
// across requests; per-request proxy selection goes through the request
// context.
func New(cfg Config, logger *slog.Logger) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.Policy{Attempts: 3, Delay: 2 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 10,
		UseCookieJar: true,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	return &Fetcher{cfg: cfg, client: client, logger: logger}, nil
}

// Fetch downloads targetURL and extracts its main text, retrying per the
// configured policy. The returned error means the candidate should be
// skipped.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Extract, error) {
	var extract *Extract

	err := f.cfg.Retry.Do(ctx, func() error {
		var attemptErr error
		extract, attemptErr = f.fetchOnce(ctx, targetURL)
		return attemptErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", targetURL, err)
	}

	return extract, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, targetURL string) (*Extract, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	var activeProxy *url.URL
	if f.cfg.ProxyPool != nil {
		if activeProxy = f.cfg.ProxyPool.Next(); activeProxy != nil {
			req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
		}
	}

	req.Header.Set("User-Agent", f.cfg.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = f.cfg.ProxyPool.MarkFailure(activeProxy)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.cfg.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// Challenge detection first: protection vendors answer with 403/503,
	// and those must surface as blocks, not generic status errors.
	if src := blockedBy(resp.StatusCode, resp.Header, body); src != "" {
		f.logger.Debug("challenge page detected", "url", targetURL, "source", src)
		return nil, fmt.Errorf("%w (%s)", ErrBlocked, src)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	pageURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, ErrEmptyExtract
	}

	extract := &Extract{
		Title:   article.Title,
		Text:    text,
		Excerpt: article.Excerpt,
		Author:  article.Byline,
	}

	// Meta tags often carry the publish date and author that readability
	// misses.
	date, author := pageMeta(body)
	if date != "" {
		extract.PublishDate = date
	}
	if extract.Author == "" {
		extract.Author = author
	}

	return extract, nil
}

// pageMeta pulls publish date and author from the document's meta tags.
func pageMeta(body []byte) (publishDate, author string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}

	if v, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		publishDate = strings.TrimSpace(v)
	}
	if publishDate == "" {
		if v, ok := doc.Find(`meta[name="date"]`).Attr("content"); ok {
			publishDate = strings.TrimSpace(v)
		}
	}

	if v, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok {
		author = strings.TrimSpace(v)
	}

	return publishDate, author
}
