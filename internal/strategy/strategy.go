// Package strategy turns a declarative keyword configuration into concrete
// search tasks and provides the URL blacklist consulted before any fetch.
package strategy

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/mirosk/newsradar/internal/intel"
	"gopkg.in/yaml.v3"
)

// Target groups the seed terms for one topic of the vertical.
type Target struct {
	Topic string   `yaml:"topic"`
	Terms []string `yaml:"terms"`
}

// Modifier qualifies seed terms with an angle (innovation, reviews, ...).
type Modifier struct {
	Type  string   `yaml:"type"`
	Terms []string `yaml:"terms"`
}

// Source is a domain worth querying directly with site-restricted searches.
type Source struct {
	Domain   string   `yaml:"domain"`
	Keywords []string `yaml:"keywords"`
	// FeedURL, when set, lets the pipeline also pull the source's RSS feed.
	FeedURL string `yaml:"feedUrl"`
}

// Strategy is the full declarative search configuration.
type Strategy struct {
	Targets   []Target   `yaml:"targets"`
	Modifiers []Modifier `yaml:"modifiers"`
	Sources   []Source   `yaml:"sources"`
	Blacklist []string   `yaml:"blacklist"`
}

// SourceTopic labels articles discovered through site-restricted or feed
// queries, where no seed-term topic applies.
const SourceTopic = "industry_news"

// rejectedExtensions are path suffixes that never lead to readable articles.
var rejectedExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".rar", ".gz", ".tar", ".7z",
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".ico",
	".mp3", ".mp4", ".avi", ".mov", ".exe", ".dmg",
}

// Default returns the built-in strategy for the personal care appliance
// vertical. Callers get a fresh value each time; mutating it is safe.
func Default() Strategy {
	return Strategy{
		Targets: []Target{
			{Topic: "hair_dryers", Terms: []string{"high-speed hair dryer", "hair dryer"}},
			{Topic: "beauty_devices", Terms: []string{"beauty device", "RF beauty device", "microcurrent device"}},
			{Topic: "massage_devices", Terms: []string{"massage gun", "percussive therapy device"}},
		},
		Modifiers: []Modifier{
			{Type: "innovation", Terms: []string{"new technology", "innovation", "patent", "launch"}},
			{Type: "reviews", Terms: []string{"review", "comparison", "vs"}},
			{Type: "regulation", Terms: []string{"FDA approval", "clinical trial", "regulation"}},
			{Type: "research", Terms: []string{"market research", "industry report", "market trends"}},
		},
		Sources: []Source{
			{Domain: "techcrunch.com", Keywords: []string{"beauty tech", "personal care", "hardware"}},
			{Domain: "theverge.com", Keywords: []string{"personal care", "gadgets", "review"}},
			{Domain: "wired.com", Keywords: []string{"beauty device", "grooming tech"}},
		},
		Blacklist: []string{
			"youtube.com", "facebook.com", "twitter.com", "instagram.com",
			"pinterest.com", "linkedin.com", "reddit.com", "tiktok.com",
		},
	}
}

// LoadFile reads a YAML strategy file. Sections left empty in the file fall
// back to the built-in defaults, so a file can override just the blacklist.
func LoadFile(filePath string) (Strategy, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return Strategy{}, fmt.Errorf("read strategy file: %w", err)
	}

	var s Strategy
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Strategy{}, fmt.Errorf("parse strategy file %s: %w", filePath, err)
	}

	def := Default()
	if len(s.Targets) == 0 {
		s.Targets = def.Targets
	}
	if len(s.Modifiers) == 0 {
		s.Modifiers = def.Modifiers
	}
	if len(s.Sources) == 0 {
		s.Sources = def.Sources
	}
	if len(s.Blacklist) == 0 {
		s.Blacklist = def.Blacklist
	}

	return s, nil
}

// Tasks expands the strategy into a flat list of independent search tasks:
// the cross-product of seed and modifier terms per topic, plus one
// site-restricted task per (source, keyword) pair. Pure function, no side
// effects.
func (s Strategy) Tasks() []intel.SearchTask {
	var tasks []intel.SearchTask

	for _, target := range s.Targets {
		for _, term := range target.Terms {
			for _, mod := range s.Modifiers {
				for _, modTerm := range mod.Terms {
					tasks = append(tasks, intel.SearchTask{
						Query:    fmt.Sprintf("intitle:%q %q", term, modTerm),
						Topic:    target.Topic,
						Modifier: mod.Type,
					})
				}
			}
		}
	}

	for _, src := range s.Sources {
		for _, kw := range src.Keywords {
			tasks = append(tasks, intel.SearchTask{
				Query:    fmt.Sprintf("%q site:%s", kw, src.Domain),
				Topic:    SourceTopic,
				Modifier: src.Domain,
			})
		}
	}

	return tasks
}

// FeedSources returns the sources that carry an RSS feed URL.
func (s Strategy) FeedSources() []Source {
	var feeds []Source
	for _, src := range s.Sources {
		if src.FeedURL != "" {
			feeds = append(feeds, src)
		}
	}
	return feeds
}

// Rejected reports whether a candidate URL should be dropped before any
// network work is spent on it. Unparseable URLs are rejected (fail closed).
func (s Strategy) Rejected(rawURL string) bool {
	if strings.TrimSpace(rawURL) == "" {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return true
	}
	if u.Host == "" {
		return true
	}

	host := strings.ToLower(u.Hostname())
	for _, blocked := range s.Blacklist {
		if strings.Contains(host, strings.ToLower(blocked)) {
			return true
		}
	}

	ext := strings.ToLower(path.Ext(u.Path))
	for _, bad := range rejectedExtensions {
		if ext == bad {
			return true
		}
	}

	return false
}
