// Package apiclient is the HTTP client for the Automation Hub REST API.
//
// Every request goes through Client.Do, which attaches the bearer token,
// a request id and the configured rate limit. A 401 on a request that
// carried a token is reported to the OnUnauthorized hooks no matter which
// component issued the request; this is how a stale session is torn down
// process-wide.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultTimeout is applied when no timeout option is given.
const DefaultTimeout = 30 * time.Second

// UnauthorizedFunc is called with the token a rejected request carried.
type UnauthorizedFunc func(token string)

// Client talks to the REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// MaxRetries bounds how often a GET is re-sent after a network failure.
	MaxRetries int

	tokens  func() string
	limiter *rate.Limiter
	logger  *slog.Logger

	mu             sync.RWMutex
	onUnauthorized []UnauthorizedFunc
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTokenSource sets the function consulted for the bearer token on
// every request.
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.tokens = fn }
}

// WithRateLimit enables a client-side token bucket. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxRetries sets MaxRetries.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.MaxRetries = n }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for baseURL. Trailing slashes are stripped.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		MaxRetries: 1,
		tokens:     func() string { return "" },
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUnauthorized registers fn to run whenever an authenticated request is
// answered with 401.
func (c *Client) OnUnauthorized(fn UnauthorizedFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

// Do sends an authenticated request. body, when non-nil, is JSON encoded.
// The caller owns the response body; use CheckError or DecodeJSON on it.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	return c.do(ctx, method, path, query, body, c.tokens())
}

// DoAnonymous sends a request without credentials, as login does.
func (c *Client) DoAnonymous(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	return c.do(ctx, method, path, query, body, "")
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, token string) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	requestID := uuid.NewString()

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &NetworkError{Method: method, Path: path, Err: err}
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		start := time.Now()
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			netErr := &NetworkError{Method: method, Path: path, Err: err, Timeout: isTimeout(err)}
			if method == http.MethodGet && attempt < c.MaxRetries && ctx.Err() == nil {
				c.logger.Warn("request failed, retrying",
					"method", method, "path", path, "request_id", requestID,
					"attempt", attempt+1, "error", err)
				if sleepErr := sleepCtx(ctx, time.Duration(attempt+1)*200*time.Millisecond); sleepErr != nil {
					return nil, netErr
				}
				continue
			}
			return nil, netErr
		}

		c.logger.Debug("api request",
			"method", method, "path", path, "status", resp.StatusCode,
			"request_id", requestID, "duration", time.Since(start))

		if resp.StatusCode == http.StatusUnauthorized && token != "" {
			c.notifyUnauthorized(token)
		}
		return resp, nil
	}
}

func (c *Client) notifyUnauthorized(token string) {
	c.mu.RLock()
	hooks := make([]UnauthorizedFunc, len(c.onUnauthorized))
	copy(hooks, c.onUnauthorized)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(token)
	}
}

// GetJSON issues an authenticated GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	return DecodeJSON(resp, out)
}

// SendJSON issues an authenticated request with a JSON body and decodes the
// response into out, which may be nil.
func (c *Client) SendJSON(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.Do(ctx, method, path, nil, in)
	if err != nil {
		return err
	}
	return DecodeJSON(resp, out)
}

// DecodeJSON checks resp for an API error and decodes its body into out.
// The body is always closed.
func DecodeJSON(resp *http.Response, out any) error {
	if err := CheckError(resp); err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CheckError returns nil for 2xx responses. Otherwise it consumes and
// closes the body and returns an *APIError.
func CheckError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := ReadBody(resp)
	return newAPIError(resp.StatusCode, resp.Header.Get("X-Request-ID"), data)
}

// ReadBody reads the full response body and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}

func bodyReader(payload []byte) io.Reader {
	if payload == nil {
		return nil
	}
	return bytes.NewReader(payload)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
