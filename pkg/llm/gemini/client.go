// Package gemini implements llm.Provider for Google Gemini.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"hkexplorer/pkg/config"
	"hkexplorer/pkg/llm"
	"hkexplorer/pkg/request"
	"hkexplorer/pkg/tracker"
)

// DefaultModel is used when neither a profile nor the provider names a model.
const DefaultModel = "gemini-2.5-flash-lite"

// Client implements llm.Provider for Google Gemini.
type Client struct {
	genaiClient *genai.Client
	apiKey      string
	modelName   string
	profiles    map[string]string // profile -> model
	temperature float32
	tracker     *tracker.Tracker
	label       string

	mu sync.RWMutex
}

// NewClient creates a new Gemini client. A client without a key is returned
// unconfigured; its calls fail with llm.ErrNotConfigured.
func NewClient(cfg config.ProviderConfig, rc *request.Client, t *tracker.Tracker) (*Client, error) {
	c := &Client{tracker: t, label: config.ProviderGemini}
	if err := c.Configure(cfg, rc); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure updates the client with new settings.
func (c *Client) Configure(cfg config.ProviderConfig, rc *request.Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiKey = cfg.Key
	c.modelName = cfg.Model
	c.profiles = cfg.Profiles
	c.temperature = cfg.Temperature

	if c.modelName == "" {
		c.modelName = DefaultModel
	}

	if c.apiKey == "" {
		c.genaiClient = nil
		return nil
	}

	cc := &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	if rc != nil {
		cc.HTTPClient = rc.HTTPClient()
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}
	c.genaiClient = client
	return nil
}

// SetLabel sets the provider label used for tracking.
func (c *Client) SetLabel(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.label = label
}

// Close cleans up resources.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genaiClient = nil
}

// GenerateText implements llm.Provider.
func (c *Client) GenerateText(ctx context.Context, profile, system, prompt string) (string, error) {
	c.mu.RLock()
	client := c.genaiClient
	label := c.label
	c.mu.RUnlock()

	if client == nil {
		return "", fmt.Errorf("gemini: %w", llm.ErrNotConfigured)
	}

	modelName, gc := c.resolveModel(profile, system, prompt)

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), gc)
	if err != nil {
		c.track(label, false)
		return "", fmt.Errorf("generate text error: %w", err)
	}

	text, err := getResponseText(resp)
	if err != nil {
		c.track(label, false)
		return "", err
	}

	if strings.TrimSpace(text) == "" && c.tracker != nil {
		c.tracker.TrackAPIZero(label)
	}
	c.track(label, true)
	return text, nil
}

// resolveModel returns the target model name and configuration for the given profile.
func (c *Client) resolveModel(profile, system, prompt string) (string, *genai.GenerateContentConfig) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	targetModel := c.modelName
	if profileModel, ok := c.profiles[profile]; ok && profileModel != "" {
		targetModel = profileModel
	}

	gc := &genai.GenerateContentConfig{}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if c.temperature > 0 {
		gc.Temperature = genai.Ptr(c.temperature)
	}
	if strings.Contains(strings.ToLower(system+prompt), "json") {
		gc.ResponseMIMEType = "application/json"
	}
	return targetModel, gc
}

// HasProfile implements llm.Provider. Gemini always has a default model.
func (c *Client) HasProfile(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modelName != "" || c.profiles[name] != ""
}

// HealthCheck verifies the key by fetching the default model's metadata.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	client := c.genaiClient
	name := c.modelName
	c.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("gemini: %w", llm.ErrNotConfigured)
	}

	if !strings.HasPrefix(name, "models/") {
		name = "models/" + name
	}
	if _, err := client.Models.Get(ctx, name, nil); err != nil {
		return fmt.Errorf("gemini model %s unavailable: %w", name, err)
	}
	slog.Debug("Gemini model validation success", "model", name)
	return nil
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

func getResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("candidate has no content (finish reason %q)", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
