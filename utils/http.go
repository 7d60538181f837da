package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BrowserUserAgent is sent with every outbound request.
const BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	ErrRateLimited = errors.New("rate limited")
	ErrServerError = errors.New("server error")
	ErrStatus      = errors.New("unexpected status code")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// HTTPClient performs single-attempt GET requests guarded by one circuit
// breaker per host. Callers decide whether to retry. Use ForSource to give
// each caller breakers of its own.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	scope     string

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewHTTPClient creates a client with the given timeout and User-Agent.
// An empty userAgent falls back to BrowserUserAgent.
func NewHTTPClient(timeout time.Duration, userAgent string) *HTTPClient {
	if userAgent == "" {
		userAgent = BrowserUserAgent
	}
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}
}

// ForSource returns a client that shares the transport and User-Agent but
// keeps its own breakers, so one source tripping a host does not block
// another source on the same host.
func (c *HTTPClient) ForSource(name string) *HTTPClient {
	return &HTTPClient{
		client:    c.client,
		userAgent: c.userAgent,
		scope:     name,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}
}

// countsAsSuccess keeps plain 4xx responses (a missing archive page) from
// tripping the breaker. 429 and 5xx still count.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, ErrStatus)
}

func (c *HTTPClient) breaker(host string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[host]
	if !ok {
		name := host
		if c.scope != "" {
			name = c.scope + "@" + host
		}
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:         name,
			MaxRequests:  5,
			Interval:     time.Minute,
			Timeout:      2 * time.Minute,
			IsSuccessful: countsAsSuccess,
		})
		c.breakers[host] = cb
	}
	return cb
}

// Get fetches rawURL and returns the body of a 2xx response.
func (c *HTTPClient) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(req)
}

// Do sends req through the host's circuit breaker and returns the body.
func (c *HTTPClient) Do(req *http.Request) ([]byte, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	host := req.URL.Hostname()

	result, err := c.breaker(host).Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: %d", ErrServerError, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, host, err)
		}
		return nil, fmt.Errorf("GET %s: %w", req.URL, err)
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}
