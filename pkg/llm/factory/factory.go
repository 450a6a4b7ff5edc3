// Package factory builds the configured LLM providers and chains them.
package factory

import (
	"fmt"
	"log/slog"

	"hkexplorer/pkg/config"
	"hkexplorer/pkg/llm"
	"hkexplorer/pkg/llm/failover"
	"hkexplorer/pkg/llm/gemini"
	"hkexplorer/pkg/llm/ollama"
	"hkexplorer/pkg/llm/openai"
	"hkexplorer/pkg/request"
	"hkexplorer/pkg/tracker"
)

// labeler is implemented by providers that track stats under a name.
type labeler interface {
	SetLabel(label string)
}

// NewProvider builds every provider named in cfg.Fallback, in order, and
// wraps them in a failover chain. logPath may be empty to disable the LLM log.
func NewProvider(cfg config.LLMConfig, logPath string, rc *request.Client, t *tracker.Tracker) (*failover.Provider, error) {
	if len(cfg.Fallback) == 0 {
		return nil, fmt.Errorf("no llm providers configured in fallback list")
	}

	providers := make([]llm.Provider, 0, len(cfg.Fallback))
	names := make([]string, 0, len(cfg.Fallback))
	for _, name := range cfg.Fallback {
		pCfg, ok := cfg.Providers[name]
		if !ok {
			return nil, fmt.Errorf("provider %q not found in config", name)
		}

		p, err := New(pCfg, rc, t)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		if l, ok := p.(labeler); ok {
			l.SetLabel(name)
		}
		if pCfg.Key == "" && pCfg.Type != config.ProviderOllama {
			slog.Warn("LLM provider has no API key, it will be disabled on first use", "provider", name, "type", pCfg.Type)
		}

		providers = append(providers, p)
		names = append(names, name)
	}

	return failover.New(providers, names, logPath, logPath != "")
}

// New builds a single provider from its config.
func New(cfg config.ProviderConfig, rc *request.Client, t *tracker.Tracker) (llm.Provider, error) {
	switch cfg.Type {
	case config.ProviderGemini:
		return gemini.NewClient(cfg, rc, t)
	case config.ProviderOpenAI, config.ProviderGroq, config.ProviderDeepSeek:
		return openai.NewClient(cfg, openai.PresetBaseURL(cfg.Type), rc, t)
	case config.ProviderOllama:
		return ollama.NewClient(cfg, rc, t)
	default:
		return nil, fmt.Errorf("unknown llm provider type: %s", cfg.Type)
	}
}
