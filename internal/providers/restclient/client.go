package restclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/capgate/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

const maxErrorBody = 512

// Config configures one backend client
type Config struct {
	Name    string
	BaseURL string
	// Token is sent as "<AuthScheme> <Token>" in Authorization unless
	// AuthHeader names a different header, which then carries the raw token.
	Token      string
	AuthScheme string
	AuthHeader string
	Headers    map[string]string

	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit is requests per second; zero means unlimited
	RateLimit float64
	Burst     int

	Logger *zap.Logger
}

// DefaultConfig returns production defaults for a named backend
func DefaultConfig(name, baseURL string) Config {
	return Config{
		Name:         name,
		BaseURL:      baseURL,
		AuthScheme:   "Bearer",
		Timeout:      30 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
		RateLimit:    10,
		Burst:        20,
	}
}

// Client wraps resty with rate limiting and a circuit breaker
type Client struct {
	name    string
	resty   *resty.Client
	retry   *retryablehttp.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// Request describes one call
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   any
}

// Response is a decoded reply
type Response struct {
	Status int
	Data   any
}

// New creates a client; BaseURL is required
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s: base URL is not configured", cfg.Name)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil
	// Hand the final response back instead of an error so status mapping
	// happens in one place.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "capgate/1.0").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	if cfg.Token != "" {
		if cfg.AuthHeader != "" {
			restyClient.SetHeader(cfg.AuthHeader, cfg.Token)
		} else {
			restyClient.SetAuthScheme(cfg.AuthScheme).SetAuthToken(cfg.Token)
		}
	}
	for k, v := range cfg.Headers {
		restyClient.SetHeader(k, v)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(cfg.RateLimit) + 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	logger := cfg.Logger.With(zap.String("backend", cfg.Name))
	breaker := resilience.New(cfg.Name, resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.6)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || types.IsCode(err, types.CodeInvalidParams)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		name:    cfg.Name,
		resty:   restyClient,
		retry:   retryClient,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// Do sends the request and decodes a JSON reply
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, types.NewError(types.CodeServiceUnavailable,
			fmt.Sprintf("%s: rate limit wait aborted", c.name),
			map[string]any{"service": c.name, "reason": err.Error()})
	}

	var out *Response
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		resp, err := c.send(ctx, req)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return nil, types.NewError(types.CodeServiceUnavailable,
			fmt.Sprintf("%s is temporarily unavailable", c.name),
			map[string]any{"service": c.name, "reason": "circuit open"})
	case err != nil:
		return nil, err
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	r := c.resty.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	resp, err := r.Execute(method, req.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %s %s: %w", c.name, method, req.Path, err)
	}

	c.logger.Debug("Backend call",
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", resp.Time()),
	)

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return &Response{Status: status, Data: decodeBody(resp.Body())}, nil
	case isClientError(status):
		return nil, types.NewError(types.CodeInvalidParams,
			fmt.Sprintf("%s rejected %s %s: %s", c.name, method, req.Path, http.StatusText(status)),
			map[string]any{
				"service": c.name,
				"status":  status,
				"body":    truncate(resp.String()),
			})
	default:
		return nil, fmt.Errorf("%s: %s %s returned %d: %s",
			c.name, method, req.Path, status, truncate(resp.String()))
	}
}

// Get is a shorthand for a GET request
func (c *Client) Get(ctx context.Context, path string, query map[string]string) (any, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Post is a shorthand for a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body any) (any, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Delete is a shorthand for a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (any, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Ping issues a GET and discards the body
func (c *Client) Ping(ctx context.Context, path string) error {
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path})
	return err
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// BreakerCounts returns circuit breaker statistics
func (c *Client) BreakerCounts() resilience.Counts {
	return c.breaker.Counts()
}

// Close releases idle connections
func (c *Client) Close() {
	c.retry.HTTPClient.CloseIdleConnections()
}

func isClientError(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := sonic.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
