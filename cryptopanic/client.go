package cryptopanic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"crypto-news-bot/news"
)

const (
	defaultBaseURL = "https://cryptopanic.com"
	postsPath      = "/api/v1/posts/"
	maxErrorBody   = 200
)

// ErrNoAPIKey is returned when the client has no auth token to send.
var ErrNoAPIKey = errors.New("cryptopanic api key not configured")

// Client reads posts from the CryptoPanic API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	currencies []string
	filter     string
	kind       string
	public     bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithCurrencies restricts posts to the given tickers.
func WithCurrencies(codes []string) Option {
	return func(c *Client) {
		c.currencies = codes
	}
}

// WithFilter sets the importance filter (important, hot, rising, ...).
func WithFilter(filter string) Option {
	return func(c *Client) {
		c.filter = filter
	}
}

// WithKind sets the content kind (news, media, all).
func WithKind(kind string) Option {
	return func(c *Client) {
		c.kind = kind
	}
}

// NewClient creates a CryptoPanic client. An empty apiKey makes Fetch a no-op.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		filter:     "important",
		kind:       "news",
		public:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch reads the latest posts. It never panics: every failure is logged and
// reported through the result's Err with an empty batch.
func (c *Client) Fetch(ctx context.Context) news.FetchResult {
	ctx, span := otel.Tracer("crypto-news-bot/cryptopanic").Start(ctx, "cryptopanic.fetch")
	defer span.End()

	items, err := c.fetchPosts(ctx)
	if err != nil {
		if errors.Is(err, ErrNoAPIKey) {
			slog.Warn("CRYPTOPANIC_API_KEY not set, skipping fetch")
		} else {
			slog.Warn("cryptopanic fetch failed", "error", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return news.Failed(err)
	}

	span.SetAttributes(attribute.Int("cryptopanic.items", len(items)))
	return news.FetchResult{Items: items}
}

func (c *Client) fetchPosts(ctx context.Context) ([]news.Item, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.postsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, snippet(body))
	}

	var page postsResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if page.hasError() {
		return nil, fmt.Errorf("api error: %s", snippet(page.Error))
	}

	items := make([]news.Item, 0, len(page.Results))
	for _, p := range page.Results {
		items = append(items, p.toItem())
	}
	return items, nil
}

func (c *Client) postsURL() string {
	q := url.Values{}
	q.Set("auth_token", c.apiKey)
	if c.public {
		q.Set("public", "true")
	}
	if c.kind != "" {
		q.Set("kind", c.kind)
	}
	if c.filter != "" {
		q.Set("filter", c.filter)
	}
	if len(c.currencies) > 0 {
		q.Set("currencies", strings.Join(c.currencies, ","))
	}
	return c.baseURL + postsPath + "?" + q.Encode()
}

func snippet(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(b)
}
