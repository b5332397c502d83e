package search

import (
	"context"
	"log/slog"

	"github.com/mirosk/newsradar/internal/intel"
	"github.com/mmcdole/gofeed"
)

// RSSClient pulls candidates from a source's RSS/Atom feed. The query
// argument is interpreted as the feed URL, so feed tasks flow through the
// same Provider path as search-engine tasks.
type RSSClient struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ Provider = (*RSSClient)(nil)

// NewRSSClient builds a feed-backed provider.
func NewRSSClient(logger *slog.Logger) *RSSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RSSClient{
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// Search fetches and parses the feed at feedURL, returning up to count
// entries. Fail-soft like the other providers.
func (c *RSSClient) Search(ctx context.Context, feedURL string, count int, _ Options) []intel.Candidate {
	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		c.logger.Error("rss fetch failed", "feed", feedURL, "err", err)
		return nil
	}

	n := len(feed.Items)
	if count > 0 && count < n {
		n = count
	}

	candidates := make([]intel.Candidate, 0, n)
	for _, item := range feed.Items[:n] {
		cand := intel.Candidate{
			URL:         item.Link,
			Title:       item.Title,
			DisplayLink: feed.Title,
			Snippet:     item.Description,
		}
		if item.PublishedParsed != nil {
			cand.PublishDate = item.PublishedParsed.Format("2006-01-02")
		}
		if item.Author != nil {
			cand.Author = item.Author.Name
		}
		candidates = append(candidates, cand)
	}

	return candidates
}
