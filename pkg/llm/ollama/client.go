// Package ollama implements llm.Provider for a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ollama/ollama/api"

	"hkexplorer/pkg/config"
	"hkexplorer/pkg/request"
	"hkexplorer/pkg/tracker"
)

// DefaultHost is used when neither the config nor OLLAMA_HOST names a server.
const DefaultHost = "http://localhost:11434"

var jsonFormat = json.RawMessage(`"json"`)

// Client implements llm.Provider for Ollama.
type Client struct {
	api         *api.Client
	host        string
	model       string
	profiles    map[string]string
	temperature float32
	tracker     *tracker.Tracker
	label       string

	mu sync.RWMutex
}

// NewClient creates a new Ollama client.
func NewClient(cfg config.ProviderConfig, rc *request.Client, t *tracker.Tracker) (*Client, error) {
	host := cfg.BaseURL
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	base, err := url.Parse(strings.TrimSuffix(host, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	httpClient := http.DefaultClient
	if rc != nil {
		httpClient = rc.HTTPClient()
	}

	return &Client{
		api:         api.NewClient(base, httpClient),
		host:        base.String(),
		model:       cfg.Model,
		profiles:    cfg.Profiles,
		temperature: cfg.Temperature,
		tracker:     t,
		label:       config.ProviderOllama,
	}, nil
}

// SetLabel sets the provider label used for tracking.
func (c *Client) SetLabel(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.label = label
}

// GenerateText implements llm.Provider.
func (c *Client) GenerateText(ctx context.Context, profile, system, prompt string) (string, error) {
	model, err := c.ResolveModel(profile)
	if err != nil {
		return "", err
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		System: system,
		Prompt: prompt,
		Stream: &stream,
	}
	if c.temperature > 0 {
		req.Options = map[string]any{"temperature": c.temperature}
	}
	if strings.Contains(strings.ToLower(system+prompt), "json") {
		req.Format = jsonFormat
	}

	c.mu.RLock()
	label := c.label
	c.mu.RUnlock()

	var sb strings.Builder
	err = c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		c.track(label, false)
		return "", fmt.Errorf("ollama generate (%s): %w", model, err)
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" && c.tracker != nil {
		c.tracker.TrackAPIZero(label)
	}
	c.track(label, true)
	return text, nil
}

func (c *Client) track(label string, ok bool) {
	if c.tracker == nil {
		return
	}
	if ok {
		c.tracker.TrackAPISuccess(label)
	} else {
		c.tracker.TrackAPIFailure(label)
	}
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.api.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama at %s unreachable: %w", c.host, err)
	}
	return nil
}

// HasProfile implements llm.Provider.
func (c *Client) HasProfile(name string) bool {
	_, err := c.ResolveModel(name)
	return err == nil
}

// ResolveModel returns the model configured for a profile, or the default model.
func (c *Client) ResolveModel(profile string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if model, ok := c.profiles[profile]; ok && model != "" {
		return model, nil
	}
	if c.model != "" {
		return c.model, nil
	}
	return "", fmt.Errorf("profile %q not configured", profile)
}
