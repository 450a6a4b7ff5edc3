package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"hkexplorer/pkg/config"
	"hkexplorer/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("hkexplorer/%s", version.Version)

// StatusError is returned for responses with a 4xx or 5xx status after retries.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client with per-provider backoff and retries on
// network errors, 429 and 5xx responses. It doubles as an http.RoundTripper
// so SDK clients can share its retry policy.
type Client struct {
	base      http.RoundTripper
	timeout   time.Duration
	retries   int
	baseDelay time.Duration
	backoff   *ProviderBackoff
}

// New creates a new Client from the outbound client settings.
func New(cfg config.ClientConfig) *Client {
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	baseDelay := cfg.Backoff.BaseDelay.Std()
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	maxDelay := cfg.Backoff.MaxDelay.Std()
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &Client{
		base:      http.DefaultTransport,
		timeout:   cfg.Timeout.Std(),
		retries:   retries,
		baseDelay: baseDelay,
		backoff:   NewProviderBackoff(baseDelay, maxDelay),
	}
}

// HTTPClient returns an *http.Client that routes through c.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{Transport: c, Timeout: c.timeout}
}

// Do sends the request through c. It satisfies the HTTPDoer shape SDKs accept.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.HTTPClient().Do(req)
}

// RoundTrip implements http.RoundTripper.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	provider := normalizeProvider(req.URL.Host)
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		if err := c.backoff.Wait(ctx, provider); err != nil {
			return nil, err
		}

		out, err := prepare(req, attempt)
		if err != nil {
			return nil, err
		}

		slog.Debug("Network Request", "provider", provider, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.base.RoundTrip(out)

		retryable := false
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Request failed", "provider", provider, "attempt", attempt+1, "error", err)
			retryable = true
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			slog.Warn("API Backoff", "provider", provider, "status", resp.StatusCode, "attempt", attempt+1)
			retryable = true
		}

		if !retryable {
			c.backoff.RecordSuccess(provider)
			return resp, nil
		}

		c.backoff.RecordFailure(provider)
		if attempt >= c.retries || !rewindable(req) {
			return resp, err
		}
		if resp != nil {
			drain(resp)
		}

		sleep := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// prepare clones req for one attempt, rewinding the body on retries.
func prepare(req *http.Request, attempt int) (*http.Request, error) {
	out := req.Clone(req.Context())
	if out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", defaultUserAgent)
	}
	if attempt > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		out.Body = body
	}
	return out, nil
}

func rewindable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

// Get performs a GET request and returns the body.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.read(req)
}

// PostJSON encodes body as JSON, posts it and returns the response body.
func (c *Client) PostJSON(ctx context.Context, u string, body any, headers map[string]string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.read(req)
}

func (c *Client) read(req *http.Request) ([]byte, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func normalizeProvider(host string) string {
	host = strings.ToLower(host)
	switch {
	case strings.HasSuffix(host, "googleapis.com"):
		return "gemini"
	case strings.HasSuffix(host, "openai.com"):
		return "openai"
	case strings.HasSuffix(host, "groq.com"):
		return "groq"
	case strings.HasSuffix(host, "deepseek.com"):
		return "deepseek"
	case strings.HasSuffix(host, ":11434"):
		return "ollama"
	}
	return host
}
