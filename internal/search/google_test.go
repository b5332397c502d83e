package search

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoogleSearch_ParsesItems(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("cx") != "cx" {
			t.Errorf("missing credentials in request: %v", q)
		}
		if q.Get("num") != "5" {
			t.Errorf("expected num=5, got %s", q.Get("num"))
		}
		if q.Get("sort") != "date" {
			t.Errorf("expected sort=date, got %s", q.Get("sort"))
		}
		if q.Get("dateRestrict") != "d7" {
			t.Errorf("expected dateRestrict=d7, got %s", q.Get("dateRestrict"))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{
					"title": "New dryer tech",
					"link": "https://example.com/a",
					"displayLink": "example.com",
					"snippet": "A new dryer...",
					"pagemap": {"metatags": [{"article:published_time": "2024-03-01T10:00:00Z", "author": "J. Doe"}]}
				},
				{
					"title": "Plain item",
					"link": "https://example.com/b",
					"displayLink": "example.com",
					"snippet": "no metatags"
				}
			]
		}`))
	}))
	defer ts.Close()

	c := NewGoogleClient("k", "cx", slog.Default(), WithEndpoint(ts.URL))
	got := c.Search(context.Background(), "hair dryer", 5, Options{SortByDate: true, DateRestrict: "d7"})

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].URL != "https://example.com/a" || got[0].PublishDate != "2024-03-01T10:00:00Z" || got[0].Author != "J. Doe" {
		t.Errorf("unexpected first candidate: %+v", got[0])
	}
	if got[1].PublishDate != "" || got[1].Author != "" {
		t.Errorf("candidate without metatags should have empty metadata: %+v", got[1])
	}
}

func TestGoogleSearch_FailSoft(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"items": [`))
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			c := NewGoogleClient("k", "cx", slog.Default(), WithEndpoint(ts.URL))
			got := c.Search(context.Background(), "q", 5, Options{})
			if len(got) != 0 {
				t.Errorf("expected no candidates, got %d", len(got))
			}
		})
	}
}

func TestGoogleSearch_UnreachableEndpoint(t *testing.T) {
	c := NewGoogleClient("k", "cx", slog.Default(), WithEndpoint("http://127.0.0.1:1"))
	if got := c.Search(context.Background(), "q", 5, Options{}); len(got) != 0 {
		t.Errorf("expected no candidates from unreachable endpoint, got %d", len(got))
	}
}
