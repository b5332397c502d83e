package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mirosk/newsradar/internal/intel"
	"github.com/mirosk/newsradar/pkg/httpclient"
)

const defaultGoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleClient queries the Google Custom Search JSON API.
type GoogleClient struct {
	apiKey   string
	engineID string
	endpoint string
	client   *httpclient.Client
	logger   *slog.Logger
}

var _ Provider = (*GoogleClient)(nil)

// GoogleOption customizes the client.
type GoogleOption func(*GoogleClient)

// WithEndpoint overrides the API endpoint, mainly for tests.
func WithEndpoint(endpoint string) GoogleOption {
	return func(c *GoogleClient) { c.endpoint = endpoint }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(client *httpclient.Client) GoogleOption {
	return func(c *GoogleClient) { c.client = client }
}

// NewGoogleClient builds a search client for the given API key and custom
// search engine ID.
func NewGoogleClient(apiKey, engineID string, logger *slog.Logger, opts ...GoogleOption) *GoogleClient {
	if logger == nil {
		logger = slog.Default()
	}

	client, _ := httpclient.New(httpclient.Config{})

	c := &GoogleClient{
		apiKey:   apiKey,
		engineID: engineID,
		endpoint: defaultGoogleEndpoint,
		client:   client,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type googleResponse struct {
	Items []googleItem `json:"items"`
}

type googleItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	DisplayLink string `json:"displayLink"`
	Snippet     string `json:"snippet"`
	Pagemap     struct {
		Metatags []map[string]string `json:"metatags"`
	} `json:"pagemap"`
}

// Search runs one query. An empty slice means "no usable results", whether
// the API had none or the call failed; the distinction is logged, not
// returned.
func (c *GoogleClient) Search(ctx context.Context, query string, count int, opts Options) []intel.Candidate {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(count))
	if opts.SortByDate {
		params.Set("sort", "date")
	}
	if opts.DateRestrict != "" {
		params.Set("dateRestrict", opts.DateRestrict)
	}

	reqURL := fmt.Sprintf("%s?%s", c.endpoint, params.Encode())
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error("build search request", "query", query, "err", err)
		return nil
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		c.logger.Error("google search failed", "query", query, "err", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("google search returned non-200", "query", query, "status", resp.StatusCode)
		return nil
	}

	var decoded googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Error("decode google response", "query", query, "err", err)
		return nil
	}

	candidates := make([]intel.Candidate, 0, len(decoded.Items))
	for _, item := range decoded.Items {
		cand := intel.Candidate{
			URL:         item.Link,
			Title:       item.Title,
			DisplayLink: item.DisplayLink,
			Snippet:     item.Snippet,
		}
		if len(item.Pagemap.Metatags) > 0 {
			tags := item.Pagemap.Metatags[0]
			cand.PublishDate = tags["article:published_time"]
			cand.Author = tags["author"]
		}
		candidates = append(candidates, cand)
	}

	return candidates
}
