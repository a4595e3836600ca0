// Package ncbi provides the shared HTTP transport for NCBI E-utilities.
// The search and fetch stages both go through a BaseClient so they share one
// rate limiter, the common tool/email/api_key parameters, and the response
// size guard.
package ncbi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the NCBI E-utilities base URL.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	// DefaultTool identifies this application to NCBI.
	DefaultTool = "pubcrawl"
	// DefaultEmail is the contact email sent to NCBI when none is configured.
	DefaultEmail = "pubcrawl@users.noreply.github.com"

	// Rate limits per NCBI policy.
	RateWithoutKey = 3  // requests per second without API key
	RateWithKey    = 10 // requests per second with API key

	// DefaultMaxResponseBytes is the maximum response body size (50 MB).
	DefaultMaxResponseBytes int64 = 50 * 1024 * 1024

	// DefaultMaxRetries is the number of HTTP 429 retries for a single request.
	DefaultMaxRetries = 2

	baseRetryWait = 700 * time.Millisecond
	maxRetryWait  = 4 * time.Second
)

// ErrRateLimited is returned when NCBI keeps answering HTTP 429 after all retries.
var ErrRateLimited = errors.New("NCBI rate limit exceeded")

// StatusError reports a non-200 response from an E-utilities endpoint.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("NCBI returned HTTP %d for %s", e.StatusCode, e.Endpoint)
}

// BaseClient is a rate-limited HTTP client for NCBI E-utilities.
type BaseClient struct {
	BaseURL    string
	APIKey     string
	Tool       string
	Email      string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	MaxBytes   int64
	MaxRetries int
	Logger     *zap.Logger
}

// Option configures a BaseClient.
type Option func(*BaseClient)

// WithBaseURL sets the base URL for requests.
func WithBaseURL(u string) Option {
	return func(c *BaseClient) { c.BaseURL = u }
}

// WithAPIKey sets the NCBI API key and raises the rate limit accordingly.
func WithAPIKey(key string) Option {
	return func(c *BaseClient) {
		c.APIKey = key
		if key != "" {
			c.Limiter = rate.NewLimiter(rate.Limit(RateWithKey), 1)
		}
	}
}

// WithTool sets the tool parameter for NCBI requests.
func WithTool(tool string) Option {
	return func(c *BaseClient) { c.Tool = tool }
}

// WithEmail sets the email parameter for NCBI requests. An empty value keeps
// the default.
func WithEmail(email string) Option {
	return func(c *BaseClient) {
		if email != "" {
			c.Email = email
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *BaseClient) { c.HTTPClient = hc }
}

// WithMaxResponseBytes sets the maximum allowed response body size.
func WithMaxResponseBytes(n int64) Option {
	return func(c *BaseClient) { c.MaxBytes = n }
}

// WithMaxRetries sets how many times a request is retried on HTTP 429.
// Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *BaseClient) {
		if n >= 0 {
			c.MaxRetries = n
		}
	}
}

// WithLogger sets the logger used for retry and request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *BaseClient) {
		if l != nil {
			c.Logger = l
		}
	}
}

// NewBaseClient creates a new NCBI base client with the given options.
func NewBaseClient(opts ...Option) *BaseClient {
	c := &BaseClient{
		BaseURL:    DefaultBaseURL,
		Tool:       DefaultTool,
		Email:      DefaultEmail,
		MaxBytes:   DefaultMaxResponseBytes,
		MaxRetries: DefaultMaxRetries,
		Limiter:    rate.NewLimiter(rate.Limit(RateWithoutKey), 1),
		Logger:     zap.NewNop(),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoGet performs a rate-limited GET against endpoint with the common NCBI
// parameters added, and returns the response body.
func (c *BaseClient) DoGet(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.APIKey != "" {
		params.Set("api_key", c.APIKey)
	}
	if c.Tool != "" {
		params.Set("tool", c.Tool)
	}
	if c.Email != "" {
		params.Set("email", c.Email)
	}

	u, err := url.JoinPath(c.BaseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}
	fullURL := u + "?" + params.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfterDuration(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			if attempt >= c.MaxRetries {
				return nil, fmt.Errorf("%w (HTTP 429 after %d retries); set an API key with --api-key or NCBI_API_KEY", ErrRateLimited, attempt)
			}
			if wait <= 0 {
				wait = baseRetryWait * time.Duration(1<<attempt)
				if wait > maxRetryWait {
					wait = maxRetryWait
				}
			}
			c.Logger.Debug("NCBI rate limited, backing off",
				zap.String("endpoint", endpoint),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt+1))
			if err := sleepWithContext(ctx, wait); err != nil {
				return nil, fmt.Errorf("rate limit retry canceled: %w", err)
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		}

		// Read one byte past the cap so oversized bodies are detected.
		body, err := io.ReadAll(io.LimitReader(resp.Body, c.MaxBytes+1))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		if int64(len(body)) > c.MaxBytes {
			return nil, fmt.Errorf("response exceeds maximum size of %d bytes", c.MaxBytes)
		}
		return body, nil
	}
}

func retryAfterDuration(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}

	if secs, err := strconv.Atoi(v); err == nil {
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return 0
	}

	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
