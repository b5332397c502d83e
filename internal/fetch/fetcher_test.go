package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mirosk/newsradar/internal/fingerprint"
	"github.com/mirosk/newsradar/pkg/retry"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>High-speed dryer hits the market</title>
  <meta property="article:published_time" content="2024-03-01T10:00:00Z">
  <meta name="author" content="Jane Reporter">
</head>
<body>
  <article>
    <h1>High-speed dryer hits the market</h1>
    <p>%s</p>
  </article>
</body>
</html>`

func longArticleHTML() string {
	return fmt.Sprintf(articleHTML, strings.Repeat("A brushless motor spinning at 110,000 rpm moves more air than conventional designs. ", 10))
}

func newTestFetcher(t *testing.T, attempts int) *Fetcher {
	t.Helper()
	f, err := New(Config{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		Retry:       retry.Policy{Attempts: attempts, Delay: time.Millisecond},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

func TestFetch_ExtractsArticle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected User-Agent header")
		}
		if r.Header.Get("Accept-Language") == "" {
			t.Error("expected Accept-Language header")
		}
		_, _ = w.Write([]byte(longArticleHTML()))
	}))
	defer ts.Close()

	f := newTestFetcher(t, 1)
	got, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(got.Text, "brushless motor") {
		t.Errorf("expected extracted text, got %q", got.Text)
	}
	if got.PublishDate != "2024-03-01T10:00:00Z" {
		t.Errorf("expected publish date from meta tag, got %q", got.PublishDate)
	}
	if got.Author == "" {
		t.Errorf("expected author from meta tag")
	}
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(longArticleHTML()))
	}))
	defer ts.Close()

	f := newTestFetcher(t, 3)
	if _, err := f.Fetch(context.Background(), ts.URL); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	f := newTestFetcher(t, 3)
	if _, err := f.Fetch(context.Background(), ts.URL); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestFetch_EmptyPageIsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>t</title></head><body></body></html>`))
	}))
	defer ts.Close()

	f := newTestFetcher(t, 1)
	_, err := f.Fetch(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected error for empty page")
	}
}

func TestFetch_ChallengePageIsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="cf-turnstile">Checking your browser before accessing</div></body></html>`))
	}))
	defer ts.Close()

	f := newTestFetcher(t, 1)
	_, err := f.Fetch(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected error for challenge page")
	}
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("expected ErrBlocked, got %v", err)
	}
}

func TestFetch_Status403ChallengeIsBlockedNotStatusError(t *testing.T) {
	tests := []struct {
		name   string
		serve  func(w http.ResponseWriter)
		status int
	}{
		{
			name: "cloudflare 403",
			serve: func(w http.ResponseWriter) {
				w.Header().Set("Server", "cloudflare")
				w.WriteHeader(http.StatusForbidden)
			},
		},
		{
			name: "cloudflare 503",
			serve: func(w http.ResponseWriter) {
				w.Header().Set("Server", "cloudflare")
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "akamai 403",
			serve: func(w http.ResponseWriter) {
				w.Header().Set("X-Akamai-Request-ID", "abc123")
				w.WriteHeader(http.StatusForbidden)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.serve(w)
				_, _ = w.Write([]byte(`<html><body>denied</body></html>`))
			}))
			defer ts.Close()

			f := newTestFetcher(t, 1)
			_, err := f.Fetch(context.Background(), ts.URL)
			if err == nil {
				t.Fatal("expected error for challenge response")
			}
			if !errors.Is(err, ErrBlocked) {
				t.Errorf("expected ErrBlocked, got %v", err)
			}
		})
	}
}

func TestBlockedBy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers http.Header
		body    string
		want    string
	}{
		{
			name:    "cloudflare 403",
			status:  http.StatusForbidden,
			headers: http.Header{"Server": []string{"cloudflare"}},
			want:    "Cloudflare",
		},
		{
			name:   "cloudflare body signature",
			status: http.StatusOK,
			body:   "<div id=cf-browser-verification></div>",
			want:   "Cloudflare",
		},
		{
			name:    "akamai header",
			status:  http.StatusForbidden,
			headers: http.Header{"X-Akamai-Request-Id": []string{"abc"}},
			want:    "Akamai",
		},
		{
			name:   "normal page",
			status: http.StatusOK,
			body:   "<html><body>article</body></html>",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := tt.headers
			if headers == nil {
				headers = http.Header{}
			}
			if got := blockedBy(tt.status, headers, []byte(tt.body)); got != tt.want {
				t.Errorf("blockedBy() = %q, want %q", got, tt.want)
			}
		})
	}
}
