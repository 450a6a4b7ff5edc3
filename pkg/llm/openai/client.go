// Package openai implements llm.Provider for OpenAI and OpenAI-compatible
// chat completion APIs (Groq, DeepSeek).
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	goopenai "github.com/sashabaranov/go-openai"

	"hkexplorer/pkg/config"
	"hkexplorer/pkg/llm"
	"hkexplorer/pkg/request"
	"hkexplorer/pkg/tracker"
)

// Default endpoints for the OpenAI-compatible presets.
const (
	BaseURLOpenAI   = "https://api.openai.com/v1"
	BaseURLGroq     = "https://api.groq.com/openai/v1"
	BaseURLDeepSeek = "https://api.deepseek.com"
)

const defaultTemperature float32 = 0.7

// PresetBaseURL returns the default endpoint for a provider type.
func PresetBaseURL(providerType string) string {
	switch providerType {
	case config.ProviderGroq:
		return BaseURLGroq
	case config.ProviderDeepSeek:
		return BaseURLDeepSeek
	case config.ProviderOpenAI:
		return BaseURLOpenAI
	}
	return ""
}

// Client implements llm.Provider for any OpenAI-compatible API.
type Client struct {
	api         *goopenai.Client
	apiKey      string
	baseURL     string
	model       string
	profiles    map[string]string
	temperature float32
	tracker     *tracker.Tracker
	label       string

	mu sync.RWMutex
}

// NewClient creates a new OpenAI-compatible client. An empty cfg.BaseURL
// falls back to defaultBaseURL.
func NewClient(cfg config.ProviderConfig, defaultBaseURL string, rc *request.Client, t *tracker.Tracker) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	apiCfg := goopenai.DefaultConfig(cfg.Key)
	apiCfg.BaseURL = baseURL
	if rc != nil {
		apiCfg.HTTPClient = rc.HTTPClient()
	}

	temp := cfg.Temperature
	if temp <= 0 {
		temp = defaultTemperature
	}

	label := cfg.Type
	if label == "" {
		label = config.ProviderOpenAI
	}

	return &Client{
		api:         goopenai.NewClientWithConfig(apiCfg),
		apiKey:      cfg.Key,
		baseURL:     baseURL,
		model:       cfg.Model,
		profiles:    cfg.Profiles,
		temperature: temp,
		tracker:     t,
		label:       label,
	}, nil
}

// SetLabel sets the provider label used for tracking.
func (c *Client) SetLabel(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.label = label
}

func (c *Client) getLabel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.label
}

// GenerateText implements llm.Provider.
func (c *Client) GenerateText(ctx context.Context, profile, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%s: %w", c.getLabel(), llm.ErrNotConfigured)
	}
	model, err := c.ResolveModel(profile)
	if err != nil {
		return "", err
	}

	req := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: messages(system, prompt),
	}
	if !isReasoner(model) {
		req.Temperature = c.temperature
		if wantsJSON(system, prompt) {
			req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
				Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}
	}

	label := c.getLabel()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.track(label, false)
		return "", describe(err)
	}
	if len(resp.Choices) == 0 {
		c.track(label, false)
		return "", fmt.Errorf("api returned no choices")
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" && c.tracker != nil {
		c.tracker.TrackAPIZero(label)
	}
	c.track(label, true)
	slog.Debug("OpenAI-compatible completion", "provider", label, "profile", profile, "model", model, "tokens", resp.Usage.TotalTokens)
	return text, nil
}

func messages(system, prompt string) []goopenai.ChatCompletionMessage {
	var msgs []goopenai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	return append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})
}

// wantsJSON reports whether json_object mode may be requested. Compatible
// providers reject that mode unless the word "json" appears in the messages.
func wantsJSON(system, prompt string) bool {
	return strings.Contains(strings.ToLower(system+prompt), "json")
}

// describe keeps the HTTP status in the message so the failover chain can classify it.
func describe(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai api error (status %d): %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("openai request error (status %d): %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("openai completion failed: %w", err)
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

// HealthCheck lists the models available to the key and checks the configured ones.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("%s: %w", c.getLabel(), llm.ErrNotConfigured)
	}
	return c.ValidateModels(ctx)
}

// ValidateModels checks if the configured models are available.
func (c *Client) ValidateModels(ctx context.Context) error {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch models from %s: %w", c.baseURL, describe(err))
	}

	available := make(map[string]bool, len(list.Models))
	var availableList []string
	for _, m := range list.Models {
		available[m.ID] = true
		availableList = append(availableList, m.ID)
	}

	var missing []string
	for _, model := range c.configuredModels() {
		if !available[model] {
			missing = append(missing, model)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("configured models %v not found at %s. Available models: %v", missing, c.baseURL, availableList)
	}
	return nil
}

func (c *Client) configuredModels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, m := range c.profiles {
		if m != "" && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	if c.model != "" && !seen[c.model] {
		out = append(out, c.model)
	}
	return out
}

// HasProfile implements llm.Provider. A default model serves every profile.
func (c *Client) HasProfile(name string) bool {
	_, err := c.ResolveModel(name)
	return err == nil
}

// ResolveModel returns the model configured for a profile.
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

func isReasoner(model string) bool {
	m := strings.ToLower(model)
	if strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4") {
		return true
	}
	return strings.Contains(m, "reasoner") || strings.Contains(m, "r1")
}
