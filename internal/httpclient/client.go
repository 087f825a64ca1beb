// Package httpclient is the JSON-over-HTTP client shared by the market data
// and sentiment collaborators. Requests are rate limited, retried with
// exponential backoff and guarded by a circuit breaker.
package httpclient

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

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"doom-index/internal/apperr"
	"doom-index/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
	DefaultRPS         = 2.0
	DefaultBurst       = 4
	maxErrorBody       = 512
)

// Client performs GET requests that decode JSON responses.
type Client struct {
	provider    string
	baseURL     string
	client      *http.Client
	headers     http.Header
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	logger      zerolog.Logger
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout, covering every attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxAttempts sets the total number of attempts per call.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithRateLimit sets the token bucket. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for one provider rooted at baseURL.
func New(provider, baseURL string, opts ...Option) *Client {
	c := &Client{
		provider:    provider,
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{},
		headers:     make(http.Header),
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		limiter:     rate.NewLimiter(rate.Limit(DefaultRPS), DefaultBurst),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	c.headers.Set("Accept", "application/json")

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     provider,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: breakerSuccess,
	})
	return c
}

// Provider returns the provider name used in errors and metrics.
func (c *Client) Provider() string { return c.provider }

// breakerSuccess keeps client errors such as 404 from tripping the breaker:
// the provider answered, the request was wrong.
func breakerSuccess(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return !se.retryable()
	}
	return err == nil
}

// statusError is a non-2xx response.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

func (e *statusError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

// GetJSON requests path with query and decodes the JSON body into out.
// Errors are *apperr.TimeoutError when the call budget is exhausted and
// *apperr.ExternalAPIError otherwise.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.getWithRetry(ctx, path, query, out)
	})
	observability.RecordProviderCall(c.provider, path, time.Since(start).Seconds(), err)

	if err == nil {
		return nil
	}
	return c.classify(ctx, path, err)
}

func (c *Client) classify(ctx context.Context, path string, err error) error {
	var kinded apperr.Kinded
	if errors.As(err, &kinded) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperr.External(c.provider, 0, "circuit open for "+path, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &apperr.TimeoutError{TimeoutMs: c.timeout.Milliseconds(), Message: c.provider + " " + path, Err: err}
	}
	var se *statusError
	if errors.As(err, &se) {
		return apperr.External(c.provider, se.status, path, err)
	}
	return apperr.External(c.provider, 0, path, err)
}

func (c *Client) getWithRetry(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			c.logger.Debug().
				Str("provider", c.provider).
				Str("path", path).
				Int("attempt", attempt+1).
				Err(lastErr).
				Msg("retrying request")

			select {
			case <-ctx.Done():
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
		}

		body, err := c.do(ctx, endpoint)
		if err != nil {
			lastErr = err
			var se *statusError
			if errors.As(err, &se) && !se.retryable() {
				return err
			}
			if ctx.Err() != nil {
				return err
			}
			continue
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			// malformed payloads are not retried
			return apperr.Parsing(truncate(string(body)), c.provider+" response for "+path, err)
		}
		return nil
	}

	return fmt.Errorf("max attempts exceeded: %w", lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{status: resp.StatusCode, body: truncate(string(body))}
	}
	return body, nil
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody]
}
