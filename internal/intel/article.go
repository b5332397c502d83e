// Package intel defines the domain types that flow through the ingestion
// pipeline: search tasks, transient candidates, and enriched articles.
package intel

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Value score bounds and the threshold above which an article counts as
// high-value in run summaries and read-path filters.
const (
	MinScore           = 0
	MaxScore           = 100
	HighValueThreshold = 70
)

// Unknown marks fields the pipeline could not resolve (publish date, author).
const Unknown = "unknown"

// CategoryUnrelated is the sentinel the classifier returns for content that
// does not belong to the vertical. Articles carrying it are never persisted.
const CategoryUnrelated = "unrelated"

// Categories is the closed set the classifier is instructed to choose from.
// Other values coming back from the model are stored as-is.
var Categories = []string{
	"technology_innovation",
	"market_trends",
	"regulation",
	"competitor_analysis",
	"user_feedback",
	"industry_report",
	CategoryUnrelated,
}

// SearchTask is one unit of discovery work: a single search-engine query
// plus the topic label its results will inherit. Tasks are immutable and
// are not persisted.
type SearchTask struct {
	Query    string
	Topic    string
	Modifier string
}

// Candidate is one search hit before any validation. It lives only for the
// duration of the task that discovered it.
type Candidate struct {
	URL         string
	Title       string
	DisplayLink string
	Snippet     string
	// PublishDate and Author come from the search provider's metadata
	// (e.g. pagemap metatags) and may be empty.
	PublishDate string
	Author      string
}

// Article is the unit of persistence. Once written it is immutable; the URL
// is globally unique across the store.
type Article struct {
	Title       string
	URL         string
	Source      string
	PublishDate string
	Author      string
	Topic       string
	Category    string
	Summary     string
	Keywords    string
	ValueScore  int
	ValueReason string
	CreatedAt   time.Time
}

// NewArticle validates the invariants every persisted row must hold: a
// non-empty title, a well-formed http(s) URL, and a score within bounds.
// Unset date/author fields default to Unknown.
func NewArticle(a Article) (Article, error) {
	if strings.TrimSpace(a.Title) == "" {
		return Article{}, fmt.Errorf("article title is empty (url %q)", a.URL)
	}

	u, err := url.Parse(a.URL)
	if err != nil {
		return Article{}, fmt.Errorf("article url %q: %w", a.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Article{}, fmt.Errorf("article url %q is not an absolute http(s) url", a.URL)
	}

	if a.PublishDate == "" {
		a.PublishDate = Unknown
	} else {
		a.PublishDate = datePart(a.PublishDate)
	}
	if a.Author == "" {
		a.Author = Unknown
	}

	a.ValueScore = ClampScore(a.ValueScore)

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	return a, nil
}

// datePart reduces a timestamp to its calendar date. Stored dates are
// either YYYY-MM-DD or Unknown, which keeps date ordering in the store
// meaningful.
func datePart(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02")
	}
	if i := strings.IndexByte(s, 'T'); i > 0 {
		return s[:i]
	}
	return s
}

// ClampScore forces a value score into [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// HighValue reports whether the article clears the high-value threshold.
func (a Article) HighValue() bool {
	return a.ValueScore >= HighValueThreshold
}
