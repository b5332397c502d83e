// Package enrich runs the two-stage AI pass over fetched articles: a
// classification/summary stage and a business-value scoring stage. The
// model is an untrusted oracle; responses are validated structurally and
// every failure collapses to a nil result the caller substitutes defaults
// for.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mirosk/newsradar/internal/intel"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	defaultModel   = "deepseek-chat"

	// maxTextChars bounds how much article text goes into the
	// classification prompt.
	maxTextChars = 3000

	requestTimeout = 30 * time.Second
)

// Classification is the stage-one result.
type Classification struct {
	Category string   `json:"category"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Valuation is the stage-two result.
type Valuation struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Client talks to a DeepSeek-compatible chat-completions endpoint.
type Client struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// Option customizes the client.
type Option func(*settings)

type settings struct {
	baseURL string
	model   string
}

// WithBaseURL points the client at a different endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) { s.baseURL = baseURL }
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(s *settings) { s.model = model }
}

// NewClient builds an enrichment client for the given API key.
func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	s := settings{baseURL: defaultBaseURL, model: defaultModel}
	for _, opt := range opts {
		opt(&s)
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(s.baseURL),
	)

	return &Client{client: &client, model: s.model, logger: logger}
}

// Classify asks the model to categorize, summarize, and keyword an article.
// nil means the stage failed (transport, timeout, or malformed response)
// and the candidate should be skipped.
func (c *Client) Classify(ctx context.Context, title, text string) *Classification {
	text = truncateRunes(text, maxTextChars)

	prompt := fmt.Sprintf(`You are an industry analyst covering personal care appliances (hair dryers, beauty devices, massage devices). Analyze the article below.

Article title: %s
Article text (may be truncated):
%s

Tasks:
1. "category": pick exactly one of [%s]. Use "unrelated" when the article does not concern the personal care appliance industry.
2. "summary": summarize the core content in at most 200 characters.
3. "keywords": extract 3-5 key terms.

Respond with strict JSON only:
{"category": "...", "summary": "...", "keywords": ["...", "..."]}`,
		title, text, strings.Join(quoteAll(intel.Categories), ", "))

	content := c.complete(ctx, prompt)
	if content == "" {
		return nil
	}

	var parsed Classification
	if err := json.Unmarshal([]byte(cleanJSON(content)), &parsed); err != nil {
		c.logger.Error("parse classification response", "err", err, "content", truncate(content, 200))
		return nil
	}
	if parsed.Category == "" {
		c.logger.Error("classification response missing category", "content", truncate(content, 200))
		return nil
	}

	return &parsed
}

// ScoreValue asks the model to rate the business value of a summary for the
// given topic, 0-100. nil means the stage failed; the caller accepts the
// article anyway with a default score.
func (c *Client) ScoreValue(ctx context.Context, summary, topic string) *Valuation {
	prompt := fmt.Sprintf(`You are a seasoned product lead for a personal care appliance maker. Rate the business value of this intelligence item.

Topic: %s
Summary: %s

Tasks:
1. "score": integer 0-100. Use these bands: 80-100 directly actionable (competitor launch, regulation affecting our products, breakthrough technology); 50-79 relevant context worth tracking; 0-49 background noise.
2. "reason": one short sentence explaining the score.

Respond with strict JSON only:
{"score": 0, "reason": "..."}`, topic, summary)

	content := c.complete(ctx, prompt)
	if content == "" {
		return nil
	}

	var parsed struct {
		Score  *int   `json:"score"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(content)), &parsed); err != nil {
		c.logger.Error("parse valuation response", "err", err, "content", truncate(content, 200))
		return nil
	}
	if parsed.Score == nil {
		c.logger.Error("valuation response missing score", "content", truncate(content, 200))
		return nil
	}

	return &Valuation{
		Score:  intel.ClampScore(*parsed.Score),
		Reason: parsed.Reason,
	}
}

// complete sends one prompt and returns the raw message content, or "" on
// any failure.
func (c *Client) complete(ctx context.Context, prompt string) string {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		c.logger.Error("chat completion failed", "err", err)
		return ""
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("chat completion returned no choices")
		return ""
	}

	return resp.Choices[0].Message.Content
}

// cleanJSON strips markdown fences and any chatter around the outermost
// JSON object. Models wrap JSON in ``` blocks often enough that parsing the
// raw content directly loses usable responses.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	return s
}

func quoteAll(items []string) []string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return quoted
}

// truncateRunes cuts s to at most n bytes without splitting a multi-byte
// rune, so truncated text stays valid UTF-8.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return truncateRunes(s, n) + "..."
}
