package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider types understood by the LLM factory.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderGroq     = "groq"
	ProviderDeepSeek = "deepseek"
	ProviderOllama   = "ollama"
)

var knownProviderTypes = map[string]bool{
	ProviderGemini:   true,
	ProviderOpenAI:   true,
	ProviderGroq:     true,
	ProviderDeepSeek: true,
	ProviderOllama:   true,
}

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	LLM     LLMConfig     `yaml:"llm"`
	Planner PlannerConfig `yaml:"planner"`
	Prompts PromptsConfig `yaml:"prompts"`
	Client  ClientConfig  `yaml:"client"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	LLM      LogSettings `yaml:"llm"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
	// Retention is how long journaled plans are kept. Zero keeps them forever.
	Retention Duration `yaml:"retention"`
}

// LLMConfig holds the configured providers and the order they are tried in.
type LLMConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Fallback  []string                  `yaml:"fallback"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Type        string            `yaml:"type"`
	Key         string            `yaml:"key"`
	BaseURL     string            `yaml:"base_url"`
	Model       string            `yaml:"model"`
	Profiles    map[string]string `yaml:"profiles"` // profile -> model
	Temperature float32           `yaml:"temperature"`
}

// PlannerConfig holds the route planning knobs.
type PlannerConfig struct {
	HistoryTurns int      `yaml:"history_turns"`
	DefaultHours float64  `yaml:"default_hours"`
	MaxStops     int      `yaml:"max_stops"`
	TravelBuffer Duration `yaml:"travel_buffer"`
}

// PromptsConfig points at an optional directory of template overrides.
type PromptsConfig struct {
	Dir string `yaml:"dir"`
}

// ClientConfig holds outbound HTTP settings shared by the providers and planctl.
type ClientConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// CatalogConfig selects the challenge catalog. An empty path uses the built-in sample.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "localhost:8080",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			LLM: LogSettings{
				Path:  "./logs/llm.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:      "./data/hkexplorer.db",
			Retention: Duration(30 * Day),
		},
		LLM: LLMConfig{
			Providers: map[string]ProviderConfig{
				"gemini": {
					Type:  ProviderGemini,
					Model: "gemini-2.5-flash-lite",
					Profiles: map[string]string{
						"planner":  "gemini-2.5-flash-lite",
						"research": "gemini-2.5-flash",
						"guide":    "gemini-2.5-flash",
					},
					Temperature: 0.7,
				},
			},
			Fallback: []string{"gemini"},
		},
		Planner: PlannerConfig{
			HistoryTurns: 6,
			DefaultHours: 4,
			MaxStops:     6,
			TravelBuffer: Duration(15 * time.Minute),
		},
		Client: ClientConfig{
			Retries: 3,
			Timeout: Duration(120 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(1 * time.Second),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, defaults are merged with its values but nothing is written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)
	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty credentials from the environment. Values are never saved back.
func applyEnv(cfg *Config) {
	for name, p := range cfg.LLM.Providers {
		switch p.Type {
		case ProviderGemini:
			if p.Key == "" {
				p.Key = os.Getenv("GEMINI_API_KEY")
			}
		case ProviderOpenAI:
			if p.Key == "" {
				p.Key = os.Getenv("OPENAI_API_KEY")
			}
		case ProviderGroq:
			if p.Key == "" {
				p.Key = os.Getenv("GROQ_API_KEY")
			}
		case ProviderDeepSeek:
			if p.Key == "" {
				p.Key = os.Getenv("DEEPSEEK_API_KEY")
			}
		case ProviderOllama:
			if p.BaseURL == "" {
				p.BaseURL = os.Getenv("OLLAMA_HOST")
			}
		}
		cfg.LLM.Providers[name] = p
	}
}

// expandPaths resolves $VAR references in configured file paths.
func expandPaths(cfg *Config) {
	for _, p := range []*string{
		&cfg.DB.Path,
		&cfg.Log.Server.Path,
		&cfg.Log.Requests.Path,
		&cfg.Log.LLM.Path,
		&cfg.Prompts.Dir,
		&cfg.Catalog.Path,
	} {
		*p = os.ExpandEnv(*p)
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	for name, p := range c.LLM.Providers {
		if !knownProviderTypes[p.Type] {
			return fmt.Errorf("llm provider %q: unknown type %q (known: %s)", name, p.Type, strings.Join(ProviderTypes(), ", "))
		}
	}
	if len(c.LLM.Fallback) == 0 {
		return fmt.Errorf("llm.fallback must name at least one provider")
	}
	for _, name := range c.LLM.Fallback {
		if _, ok := c.LLM.Providers[name]; !ok {
			return fmt.Errorf("llm.fallback references unknown provider %q", name)
		}
	}
	if c.Planner.HistoryTurns < 0 {
		return fmt.Errorf("planner.history_turns must not be negative")
	}
	if c.Planner.DefaultHours <= 0 {
		return fmt.Errorf("planner.default_hours must be positive")
	}
	if c.Planner.MaxStops < 1 {
		return fmt.Errorf("planner.max_stops must be at least 1")
	}
	return nil
}

// ProviderTypes lists the supported provider types in sorted order.
func ProviderTypes() []string {
	out := make([]string, 0, len(knownProviderTypes))
	for t := range knownProviderTypes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# hkexplorer configuration
# ------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# API keys may be left empty and supplied through the environment
# (GEMINI_API_KEY, OPENAI_API_KEY, GROQ_API_KEY, DEEPSEEK_API_KEY, OLLAMA_HOST).

`)
	data = append(header, data...)

	reType := regexp.MustCompile(`(?m)^(\s+)type:`)
	data = reType.ReplaceAll(data, []byte("${1}# Options: "+strings.Join(ProviderTypes(), ", ")+"\n${1}type:"))

	reFallback := regexp.MustCompile(`(?m)^(\s+)fallback:`)
	data = reFallback.ReplaceAll(data, []byte("${1}# Providers are tried in this order\n${1}fallback:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
