package request

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// BackoffState is the backoff bookkeeping for one provider.
type BackoffState struct {
	Failures    int
	NextAllowed time.Time
}

// ProviderBackoff spaces out requests to providers that recently failed.
// Each failure doubles the pause, capped at the maximum, plus up to 10% jitter.
// Each success forgives one failure.
type ProviderBackoff struct {
	base, max time.Duration

	mu    sync.Mutex
	state map[string]BackoffState
}

// NewProviderBackoff creates a backoff tracker.
func NewProviderBackoff(baseDelay, maxDelay time.Duration) *ProviderBackoff {
	return &ProviderBackoff{
		base:  baseDelay,
		max:   maxDelay,
		state: make(map[string]BackoffState),
	}
}

// Wait blocks until provider may be called again or ctx ends.
func (b *ProviderBackoff) Wait(ctx context.Context, provider string) error {
	wait := time.Until(b.State(provider).NextAllowed)
	if wait <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordFailure counts a failure and pushes the next allowed call out.
func (b *ProviderBackoff) RecordFailure(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.state[provider]
	s.Failures++
	s.NextAllowed = time.Now().Add(b.delay(s.Failures))
	b.state[provider] = s
}

// RecordSuccess forgives one failure. The pause is lifted once none remain.
func (b *ProviderBackoff) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.state[provider]
	if !ok {
		return
	}
	if s.Failures > 0 {
		s.Failures--
	}
	if s.Failures == 0 {
		delete(b.state, provider)
		return
	}
	b.state[provider] = s
}

// State returns the current bookkeeping for provider.
func (b *ProviderBackoff) State(provider string) BackoffState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state[provider]
}

func (b *ProviderBackoff) delay(failures int) time.Duration {
	d := b.base
	for i := 1; i < failures && d < b.max; i++ {
		d *= 2
	}
	if d > b.max {
		d = b.max
	}
	return d + time.Duration(rand.Float64()*0.1*float64(d))
}
