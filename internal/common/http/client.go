package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxResponseBytes caps how much of an upstream response body is read
const MaxResponseBytes = 1 << 20

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	UserAgent           string
	Transport           http.RoundTripper
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             15 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		UserAgent:           "webhook-gateway",
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithMaxIdleConnsPerHost sets the maximum number of idle connections per host
func WithMaxIdleConnsPerHost(max int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxIdleConnsPerHost = max
	}
}

// WithUserAgent sets the User-Agent sent with every request
func WithUserAgent(ua string) ClientOption {
	return func(c *ClientConfig) {
		c.UserAgent = ua
	}
}

// WithTransport sets a custom transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// NewHTTPClient creates a new HTTP client with the given options
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}
	}

	if cfg.UserAgent != "" {
		transport = &userAgentTransport{next: transport, userAgent: cfg.UserAgent}
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// NewHTTPClientWithTimeout creates a new HTTP client with the specified timeout
func NewHTTPClientWithTimeout(timeout time.Duration) *http.Client {
	return NewHTTPClient(WithTimeout(timeout))
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(r)
}

// StatusError is returned when the upstream answered with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("invalid response status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("invalid response status code: %d: %s", e.StatusCode, e.Body)
}

// Request describes a single upstream call
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	Body        io.Reader
	ContentType string
}

// Do sends req with client. A 2xx response body is decoded as JSON into out when out
// is non-nil; any other status yields a *StatusError.
func Do(ctx context.Context, client *http.Client, req Request, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if out != nil {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid response format: %w", err)
	}
	return nil
}

// DoJSON marshals in as the request body and decodes the response into out
func DoJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	return Do(ctx, client, Request{
		Method:      method,
		URL:         url,
		Headers:     headers,
		Body:        body,
		ContentType: contentType,
	}, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
