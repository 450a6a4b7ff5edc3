// Package failover chains LLM providers. A provider that fails with an
// unrecoverable error is switched off for the rest of the process, and one
// that fails transiently sits out as many requests per profile as it has
// failed in a row. The last provider in line is retried with backoff instead.
package failover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"hkexplorer/pkg/llm"
)

// lastRetries is how often the last provider is retried after its first failure.
const lastRetries = 3

type member struct {
	index    int
	name     string
	provider llm.Provider
}

// penalty counts consecutive failures of one provider for one profile and
// the requests it has sat out since the last failure.
type penalty struct {
	failures int
	skipped  int
}

// Provider is an llm.Provider backed by an ordered chain of providers.
type Provider struct {
	members   []member
	log       *callLog
	retryBase time.Duration

	mu       sync.RWMutex
	disabled map[int]bool
	backoffs map[string]*penalty // key: provider:profile
}

// New builds a chain over providers, tried in the given order. names label
// the providers in logs and stats. When enabled, every call is appended to
// the file at logPath.
func New(providers []llm.Provider, names []string, logPath string, enabled bool) (*Provider, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider required for failover")
	}
	if len(providers) != len(names) {
		return nil, fmt.Errorf("provider count (%d) does not match name count (%d)", len(providers), len(names))
	}

	members := make([]member, len(providers))
	for i, p := range providers {
		members[i] = member{index: i, name: names[i], provider: p}
	}

	var cl *callLog
	if enabled && logPath != "" {
		cl = &callLog{path: logPath}
	}

	return &Provider{
		members:   members,
		log:       cl,
		retryBase: time.Second,
		disabled:  make(map[int]bool),
		backoffs:  make(map[string]*penalty),
	}, nil
}

// Names returns the chain's provider names in order.
func (f *Provider) Names() []string {
	out := make([]string, len(f.members))
	for i, m := range f.members {
		out[i] = m.name
	}
	return out
}

// HasProfile implements llm.Provider. A profile is served when any member serves it.
func (f *Provider) HasProfile(name string) bool {
	for _, m := range f.members {
		if m.provider.HasProfile(name) {
			return true
		}
	}
	return false
}

// HealthCheck succeeds as soon as one enabled member is healthy.
func (f *Provider) HealthCheck(ctx context.Context) error {
	var failures []string
	for _, m := range f.members {
		if f.isDisabled(m.index) {
			continue
		}
		err := m.provider.HealthCheck(ctx)
		if err == nil {
			return nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", m.name, err))
	}

	if len(failures) == 0 {
		return fmt.Errorf("no providers available in failover chain")
	}
	return fmt.Errorf("all LLM providers failed health check: %s", strings.Join(failures, "; "))
}

// GenerateText implements llm.Provider.
func (f *Provider) GenerateText(ctx context.Context, profile, system, prompt string) (string, error) {
	call := func(p llm.Provider) (string, error) {
		return p.GenerateText(ctx, profile, system, prompt)
	}
	return f.execute(ctx, profile, system+"\n\n"+prompt, call)
}

// candidates returns the enabled members that serve profile, in chain order.
func (f *Provider) candidates(profile string) []member {
	var out []member
	for _, m := range f.members {
		if f.isDisabled(m.index) || !m.provider.HasProfile(profile) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (f *Provider) execute(ctx context.Context, profile, logText string, call func(llm.Provider) (string, error)) (string, error) {
	line := f.candidates(profile)
	if len(line) == 0 {
		return "", fmt.Errorf("no active provider supports profile %q", profile)
	}

	for i, m := range line {
		key := m.name + ":" + profile
		last := i == len(line)-1

		if f.sitOut(key) {
			slog.Debug("LLM provider in backoff, skipping", "provider", m.name, "profile", profile)
			continue
		}

		text, err := call(m.provider)
		f.log.record(m.name, profile, logText, text, err)
		if err == nil {
			f.clearPenalty(key)
			return text, nil
		}

		if isUnrecoverable(err) {
			if last {
				return "", err
			}
			slog.Warn("LLM provider failed fatally, disabling it", "provider", m.name, "profile", profile, "error", err)
			f.disable(m.index)
			continue
		}

		failures := f.addPenalty(key)
		if !last {
			slog.Info("LLM provider failed, trying next", "provider", m.name, "next", line[i+1].name, "failures", failures, "error", err)
			continue
		}

		text, err = f.retryLast(ctx, m, call)
		f.log.record(m.name, profile, logText, text, err)
		if err == nil {
			f.clearPenalty(key)
		}
		return text, err
	}

	return "", fmt.Errorf("all LLM providers exhausted for profile %q", profile)
}

// retryLast retries the final member with exponential backoff.
func (f *Provider) retryLast(ctx context.Context, m member, call func(llm.Provider) (string, error)) (string, error) {
	delay := f.retryBase
	var lastErr error
	for attempt := 1; attempt <= lastRetries; attempt++ {
		text, err := call(m.provider)
		if err == nil {
			return text, nil
		}
		if isUnrecoverable(err) {
			return "", fmt.Errorf("last provider failed with fatal error: %w", err)
		}
		lastErr = err

		slog.Warn("Last LLM provider failed, backing off", "provider", m.name, "attempt", attempt, "delay", delay, "error", err)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return "", fmt.Errorf("last provider exhausted after %d retries: %w", lastRetries, lastErr)
}

func (f *Provider) isDisabled(i int) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.disabled[i]
}

func (f *Provider) disable(i int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled[i] = true
}

// sitOut reports whether key must skip this request, counting the skip.
func (f *Provider) sitOut(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.backoffs[key]
	if !ok || p.skipped >= p.failures {
		return false
	}
	p.skipped++
	return true
}

func (f *Provider) addPenalty(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.backoffs[key]
	if !ok {
		p = &penalty{}
		f.backoffs[key] = p
	}
	p.failures++
	p.skipped = 0
	return p.failures
}

func (f *Provider) clearPenalty(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.backoffs, key)
}

// isUnrecoverable reports errors that disable a provider: missing or rejected
// credentials, and a caller that has given up. 400 and 429 are retryable.
func isUnrecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrNotConfigured) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"401", "403", "unauthorized", "forbidden", "invalid_api_key", "context canceled", "context deadline exceeded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
