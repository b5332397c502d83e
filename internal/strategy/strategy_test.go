package strategy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTasks_CrossProduct(t *testing.T) {
	s := Strategy{
		Targets: []Target{
			{Topic: "hair_dryers", Terms: []string{"hair dryer", "high-speed dryer"}},
		},
		Modifiers: []Modifier{
			{Type: "innovation", Terms: []string{"patent", "launch"}},
			{Type: "reviews", Terms: []string{"review"}},
		},
		Sources: []Source{
			{Domain: "techcrunch.com", Keywords: []string{"beauty tech", "hardware"}},
		},
	}

	tasks := s.Tasks()

	// 2 terms x 3 modifier terms + 2 site keywords
	if len(tasks) != 8 {
		t.Fatalf("expected 8 tasks, got %d", len(tasks))
	}

	first := tasks[0]
	if first.Query != `intitle:"hair dryer" "patent"` {
		t.Errorf("unexpected query form: %s", first.Query)
	}
	if first.Topic != "hair_dryers" || first.Modifier != "innovation" {
		t.Errorf("unexpected task labels: %+v", first)
	}

	last := tasks[len(tasks)-1]
	if last.Query != `"hardware" site:techcrunch.com` {
		t.Errorf("unexpected site query form: %s", last.Query)
	}
	if last.Topic != SourceTopic || last.Modifier != "techcrunch.com" {
		t.Errorf("unexpected site task labels: %+v", last)
	}
}

func TestTasks_DefaultStrategyNonEmpty(t *testing.T) {
	tasks := Default().Tasks()
	if len(tasks) == 0 {
		t.Fatal("default strategy produced no tasks")
	}
	for _, task := range tasks {
		if task.Query == "" || task.Topic == "" {
			t.Errorf("task with empty fields: %+v", task)
		}
	}
}

func TestRejected(t *testing.T) {
	s := Default()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/article", false},
		{"http://news.example.org/2024/review.html", false},
		{"", true},
		{"   ", true},
		{"://bad-url", true},
		{"ftp://example.com/file", true},
		{"https://www.youtube.com/watch?v=x", true},
		{"https://m.facebook.com/story", true},
		{"https://example.com/report.pdf", true},
		{"https://example.com/image.PNG", true},
		{"https://example.com/archive.zip", true},
		{"https://example.com/pdf-explained", false}, // extension check, not substring
	}

	for _, tt := range tests {
		if got := s.Rejected(tt.url); got != tt.want {
			t.Errorf("Rejected(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestLoadFile_OverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "strategy.yaml")
	content := `
blacklist:
  - "ads.example.com"
sources:
  - domain: "example.org"
    keywords: ["widgets"]
    feedUrl: "https://example.org/feed.xml"
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFile(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !s.Rejected("https://ads.example.com/x") {
		t.Error("file blacklist not applied")
	}
	if s.Rejected("https://youtube.com/x") {
		t.Error("default blacklist should be fully replaced when the file sets one")
	}
	if len(s.Targets) == 0 {
		t.Error("targets should fall back to defaults")
	}

	feeds := s.FeedSources()
	if len(feeds) != 1 || feeds[0].FeedURL != "https://example.org/feed.xml" {
		t.Errorf("unexpected feed sources: %+v", feeds)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read strategy file") {
		t.Fatalf("expected read error, got %v", err)
	}
}
