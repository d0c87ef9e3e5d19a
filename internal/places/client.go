package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frontdesk-labs/frontdesk/internal/log"
)

var (
	// ErrInvalidQuery indicates a request that fails validation before
	// any provider call.
	ErrInvalidQuery = errors.New("places: invalid query")

	// ErrUpstream indicates a provider failure (transport error or a
	// non-success provider status).
	ErrUpstream = errors.New("places: provider request failed")

	// ErrNotFound indicates the provider does not know the place ID.
	ErrNotFound = errors.New("places: place not found")

	// ErrNoRoute indicates the provider found no route for the
	// requested travel mode.
	ErrNoRoute = errors.New("places: no route found")
)

// defaultBaseURL is the Maps Web Service API root. Tests point the
// client at an httptest server instead.
const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// defaultTimeout bounds one provider call including retries' individual
// attempts.
const defaultTimeout = 12 * time.Second

// Retry tuning for transient provider failures.
const (
	maxRetries      = 2
	initialInterval = 300 * time.Millisecond
	maxInterval     = 3 * time.Second
)

// Client is a typed Maps Web Service client. All provider responses
// are normalized into the package types before they leave it.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     log.Logger
}

// Option adjusts a Client at construction time.
type Option func(*Client)

// WithBaseURL overrides the provider base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a Maps client. The API key is required; every
// other setting has a default.
func NewClient(apiKey string, logger log.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("maps api key is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do performs one GET against the provider and decodes the JSON body
// into result. Transient failures are retried with exponential backoff;
// every attempt shares the call's deadline, so a hanging provider
// surfaces as ErrUpstream, never as a silent stall.
func (c *Client) do(ctx context.Context, path string, params url.Values, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params.Set("key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	delay := initialInterval
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := c.doOnce(ctx, reqURL, result)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryableError(err) || attempt == maxRetries {
			break
		}

		c.logger.Debug("retrying provider call",
			"path", path,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, maxInterval)
		}
	}
	return fmt.Errorf("%w: %v", ErrUpstream, lastErr)
}

// doOnce is a single request attempt.
func (c *Client) doOnce(ctx context.Context, reqURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// retryablePatterns marks transient failures worth another attempt.
// String matching is the only option: neither net/http nor the provider
// expose typed errors for these cases.
var retryablePatterns = []string{
	"status 429", "status 500", "status 502", "status 503", "status 504",
	"connection reset", "connection refused", "timeout", "temporary",
	"deadline exceeded",
}

func retryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
