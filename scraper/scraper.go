package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const defaultMaxBodyBytes = 2 << 20

// Scraper looks up article titles on the linked page.
type Scraper struct {
	httpClient   *http.Client
	maxBodyBytes int64
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		s.httpClient.Timeout = d
	}
}

// WithMaxBodyBytes caps how much of a page is read.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Scraper) {
		s.maxBodyBytes = n
	}
}

// NewScraper creates a new page scraper.
func NewScraper(opts ...Option) *Scraper {
	s := &Scraper{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Title fetches rawURL and returns the readable article title.
func (s *Scraper) Title(ctx context.Context, rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	// Set a user agent to avoid being blocked
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CryptoNewsBot/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, s.maxBodyBytes), parsedURL)
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}

	title := strings.Join(strings.Fields(article.Title), " ")
	if title == "" {
		return "", fmt.Errorf("no title found at %s", rawURL)
	}
	return title, nil
}
