package proxy

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNext_RoundRobin(t *testing.T) {
	p := NewPool(Config{})
	if err := p.Add("http://p1:8080", "http://p2:8080"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := p.Next()
	second := p.Next()
	third := p.Next()

	if first == nil || second == nil || third == nil {
		t.Fatal("expected proxies, got nil")
	}
	if first.String() == second.String() {
		t.Error("expected rotation between proxies")
	}
	if first.String() != third.String() {
		t.Error("expected rotation to wrap around")
	}
}

func TestNext_EmptyPool(t *testing.T) {
	p := NewPool(Config{})
	if got := p.Next(); got != nil {
		t.Errorf("expected nil from empty pool, got %v", got)
	}
}

func TestAdd_InvalidURL(t *testing.T) {
	p := NewPool(Config{})
	if err := p.Add("not a url"); err == nil {
		t.Fatal("expected error for invalid proxy url")
	}
}

func TestMarkFailure_Benching(t *testing.T) {
	p := NewPool(Config{MaxFailures: 2, Cooldown: time.Hour})
	if err := p.Add("http://p1:8080"); err != nil {
		t.Fatal(err)
	}

	u := p.Next()
	if u == nil {
		t.Fatal("expected proxy")
	}

	_ = p.MarkFailure(u)
	if p.Next() == nil {
		t.Fatal("one failure should not bench the proxy")
	}

	_ = p.MarkFailure(u)
	if p.Next() != nil {
		t.Fatal("proxy should be benched after hitting the failure limit")
	}
}

func TestMarkSuccess_ResetsFailures(t *testing.T) {
	p := NewPool(Config{MaxFailures: 2, Cooldown: time.Hour})
	if err := p.Add("http://p1:8080"); err != nil {
		t.Fatal(err)
	}

	u := p.Next()
	_ = p.MarkFailure(u)
	_ = p.MarkSuccess(u)
	_ = p.MarkFailure(u)

	if p.Next() == nil {
		t.Fatal("success should have reset the failure count")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := "# fleet\nhttp://p1:8080\n\nhttp://p2:8080\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPool(Config{})
	if err := p.LoadFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Size() != 2 {
		t.Errorf("expected 2 proxies, got %d", p.Size())
	}
}
