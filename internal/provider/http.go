package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// RetryPolicy controls when a JSON request is retried.
type RetryPolicy struct {
	// Retry429 waits Retry-After (capped at Max429Wait) and retries once.
	Retry429   bool
	Max429Wait time.Duration
	// Retry5xx waits Backoff5xx and retries once.
	Retry5xx   bool
	Backoff5xx time.Duration
}

// DefaultRetryPolicy retries 429 (cap 30s) and 5xx (1s backoff).
var DefaultRetryPolicy = RetryPolicy{
	Retry429:   true,
	Max429Wait: 30 * time.Second,
	Retry5xx:   true,
	Backoff5xx: time.Second,
}

// HTTPClient issues throttled JSON GET requests for providers without an SDK.
type HTTPClient struct {
	name    string
	baseURL string
	header  http.Header
	client  *http.Client
	limiter *rate.Limiter
	policy  RetryPolicy
}

// NewHTTPClient creates a client for baseURL allowing rps requests per
// second with the given burst.
func NewHTTPClient(name, baseURL string, rps float64, burst int) *HTTPClient {
	return &HTTPClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  make(http.Header),
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		policy:  DefaultRetryPolicy,
	}
}

// SetHeader adds a header sent with every request.
func (c *HTTPClient) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// SetHTTPClient replaces the underlying client.
func (c *HTTPClient) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.client = client
	}
}

// SetRetryPolicy replaces the retry policy.
func (c *HTTPClient) SetRetryPolicy(policy RetryPolicy) {
	c.policy = policy
}

// GetJSON decodes the response to path into out and returns the response
// headers.
func (c *HTTPClient) GetJSON(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	resp, err := c.do(ctx, target)
	if err != nil {
		return nil, MapError(c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		retryAfter, _ := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After")))
		return resp.Header, FromStatus(c.name, resp.StatusCode, retryAfter)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, &ProviderError{Provider: c.name, Code: CodeUnknown, Message: fmt.Sprintf("decode %s response: %v", c.name, err)}
		}
	}
	return resp.Header, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.header {
		req.Header[k] = v
	}
	return req, nil
}

// do performs the request and on 429/5xx (when the policy allows) waits and
// retries once. Other 4xx responses are never retried.
func (c *HTTPClient) do(ctx context.Context, target string) (*http.Response, error) {
	req, err := c.newRequest(ctx, target)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	var wait time.Duration
	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests && c.policy.Retry429:
		wait = parseRetryAfter(resp.Header.Get("Retry-After"), c.policy.Max429Wait)
	case code >= 500 && c.policy.Retry5xx:
		wait = c.policy.Backoff5xx
	default:
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}

	retry, err := c.newRequest(ctx, target)
	if err != nil {
		return nil, err
	}
	return c.client.Do(retry)
}

// parseRetryAfter parses Retry-After (seconds or HTTP-date) capped at max.
func parseRetryAfter(s string, max time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Second
	}
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		d := time.Duration(sec) * time.Second
		if d > max {
			return max
		}
		return d
	}
	t, err := time.Parse(time.RFC1123, s)
	if err != nil {
		return time.Second
	}
	until := time.Until(t)
	if until <= 0 {
		return 0
	}
	if until > max {
		return max
	}
	return until
}
