// Package httpclient is the shared request pipeline for the CI/CD AI API.
//
// Cross-cutting behaviour (bearer injection, forced logout on 401, request ids,
// logging, metrics, rate limiting) is an explicit Middleware chain composed in
// New. Nothing here mutates process-wide defaults.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cicdai/cli/internal/auth"
)

const (
	DefaultBaseURL   = "http://localhost:8000"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "cicdai-cli/1.0"
)

// Config holds the deployment inputs of the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// WithCredentials attaches a cookie jar so cookies are sent cross-origin.
	// It must agree with the server's CORS policy: a server that allows any
	// origin cannot accept credentialed requests.
	WithCredentials bool
	UserAgent       string
	// RateLimit is the sustained requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

// Client issues requests against the API through the middleware chain.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	userAgent  string
}

type options struct {
	tokens       auth.TokenSource
	unauthorized UnauthorizedHandler
	logger       zerolog.Logger
	metrics      *Metrics
	transport    http.RoundTripper
	extra        []Middleware
}

// Option configures New.
type Option func(*options)

// WithTokenSource enables bearer injection from the given source.
func WithTokenSource(source auth.TokenSource) Option {
	return func(o *options) { o.tokens = source }
}

// WithUnauthorizedHandler sets the reaction to a 401 on an authenticated request.
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(o *options) { o.unauthorized = h }
}

// WithLogger sets the logger used by the logging middleware.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics instruments every round trip.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTransport replaces the innermost transport (http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithMiddleware appends middleware innermost, just before the transport.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) { o.extra = append(o.extra, mw...) }
}

// New creates a client. Middleware order, outermost first: request id, logging,
// metrics, rate limit, bearer, unauthorized, extra, transport.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := options{
		logger:    zerolog.Nop(),
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	chain := []Middleware{RequestID(), Logging(o.logger)}
	if o.metrics != nil {
		chain = append(chain, o.metrics.Middleware())
	}
	if cfg.RateLimit > 0 {
		chain = append(chain, RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	if o.tokens != nil {
		chain = append(chain, Bearer(o.tokens, o.logger))
	}
	if o.unauthorized != nil {
		chain = append(chain, Unauthorized(o.unauthorized))
	}
	chain = append(chain, o.extra...)

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: Chain(o.transport, chain...),
	}

	if cfg.WithCredentials {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: httpClient,
		userAgent:  cfg.UserAgent,
	}, nil
}

// URL joins path (which may carry a query string) to the base URL.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

// DoRequest performs a request and returns the raw response body.
// Statuses >= 400 are returned as *APIError.
func (c *Client) DoRequest(ctx context.Context, method, path string, payload Payload) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		r, err := payload.Body()
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = r
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", payload.ContentType())
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// DoJSON performs a request and decodes a JSON response into out (if non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, payload Payload, out interface{}) error {
	respBody, err := c.DoRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %w", ErrRequestFailed, err)
	}
	return nil
}
