// Package remote provides the retrying HTTP client shared by the marketplace,
// carrier and webhook adapters.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/channelsync/internal/domain/integration"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultMaxRetries      = 3
	defaultRetryInterval   = time.Second
	defaultMaxInterval     = 10 * time.Second
	defaultMaxResponseSize = 10 << 20
)

// Config holds client settings.
type Config struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
	MaxInterval   time.Duration
	UserAgent     string

	// RequestsPerSecond limits outgoing calls; zero disables limiting.
	RequestsPerSecond float64
}

// Validate checks the config and fills defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("remote: base URL is required")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("remote: invalid base URL: %w", err)
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = defaultMaxInterval
	}
	if c.UserAgent == "" {
		c.UserAgent = "channelsync/1.0"
	}
	return nil
}

// Request describes one API call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers map[string]string

	// Token overrides the configured bearer token for this call.
	Token string
}

// Response is a successful raw response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client performs HTTP calls with a bounded timeout and retries transient
// failures (network errors and 5xx) with exponential backoff.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	onRetry    func(err error, wait time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryHook is called before each retry.
func WithRetryHook(fn func(err error, wait time.Duration)) Option {
	return func(c *Client) { c.onRetry = fn }
}

// NewClient creates a client from cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zap.NewNop(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get performs a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) (*Response, error) {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post performs a POST with a JSON body and decodes the JSON response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) (*Response, error) {
	return c.DoJSON(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// DoJSON performs the request and decodes a JSON body into out when out is
// not nil and the body is not empty.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if out != nil && len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return resp, fmt.Errorf("%w: %v", integration.ErrRemoteInvalidResponse, err)
		}
	}
	return resp, nil
}

// Do performs the request with retries and returns the raw response. Non-2xx
// responses are returned as *RemoteAPIError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var payload []byte
	if req.Body != nil {
		var err error
		if payload, err = json.Marshal(req.Body); err != nil {
			return nil, fmt.Errorf("remote: encode request body: %w", err)
		}
	}
	endpoint := c.buildURL(req.Path, req.Query)

	var resp *Response
	operation := func() error {
		r, err := c.attempt(ctx, req, endpoint, payload)
		if err == nil {
			resp = r
			return nil
		}
		var apiErr *RemoteAPIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Retrying remote request",
			zap.String("method", req.Method),
			zap.String("url", endpoint),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if c.onRetry != nil {
			c.onRetry(err, wait)
		}
	}

	if err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify); err != nil {
		var apiErr *RemoteAPIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", integration.ErrRemoteUnavailable, ctxErr)
		}
		if errors.Is(err, integration.ErrRemoteUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrRemoteUnavailable, err)
	}
	return resp, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInterval
	b.MaxInterval = c.cfg.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)
}

func (c *Client) attempt(ctx context.Context, req Request, endpoint string, payload []byte) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("remote: build request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	token := req.Token
	if token == "" {
		token = c.cfg.Token
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, defaultMaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("Remote request completed",
		zap.String("method", req.Method),
		zap.String("url", endpoint),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, newRemoteAPIError(req.Method, endpoint, httpResp.StatusCode, data)
	}
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/")
	if path != "" {
		endpoint += "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}
