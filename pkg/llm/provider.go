package llm

import (
	"context"
	"errors"
)

// Profiles used by the planning pipeline. Providers map each to a model.
const (
	ProfilePlanner  = "planner"
	ProfileResearch = "research"
	ProfileGuide    = "guide"
)

// Profiles lists every profile the pipeline binds.
var Profiles = []string{ProfilePlanner, ProfileResearch, ProfileGuide}

// ErrNotConfigured is returned by providers that are missing credentials.
var ErrNotConfigured = errors.New("provider not configured")

// Provider defines the interface for interacting with LLM services.
type Provider interface {
	// GenerateText sends a system instruction and a prompt and returns the text response.
	GenerateText(ctx context.Context, profile, system, prompt string) (string, error)

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error

	// HasProfile checks if the provider has a specific profile configured.
	HasProfile(name string) bool
}

// Bound is a provider pinned to one profile.
type Bound struct {
	provider Provider
	profile  string
}

// Bind pins a provider to a profile so it can serve as a single-purpose generator.
func Bind(p Provider, profile string) *Bound {
	return &Bound{provider: p, profile: profile}
}

// Generate returns the provider's text for the bound profile.
func (b *Bound) Generate(ctx context.Context, system, prompt string) (string, error) {
	return b.provider.GenerateText(ctx, b.profile, system, prompt)
}

// Profile returns the bound profile name.
func (b *Bound) Profile() string {
	return b.profile
}
