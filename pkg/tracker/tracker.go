// Package tracker counts generator calls per provider and planning outcomes
// for the stats endpoint.
package tracker

import (
	"sync"
	"sync/atomic"
)

// ProviderStats is a point-in-time copy of one provider's counters.
type ProviderStats struct {
	APISuccess    int64 `json:"api_success"`
	APIFailures   int64 `json:"api_failures"`
	APIZeroResult int64 `json:"api_zero_result"`
}

type providerCounters struct {
	success, failure, zero atomic.Int64
}

// Tracker is safe for concurrent use. A nil *Tracker records nothing.
type Tracker struct {
	providers registry[providerCounters]
	outcomes  registry[atomic.Int64]
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

func (t *Tracker) provider(name string) *providerCounters {
	return t.providers.get(name)
}

// TrackAPISuccess counts a call that returned text.
func (t *Tracker) TrackAPISuccess(provider string) {
	if t != nil {
		t.provider(provider).success.Add(1)
	}
}

// TrackAPIFailure counts a call that returned an error.
func (t *Tracker) TrackAPIFailure(provider string) {
	if t != nil {
		t.provider(provider).failure.Add(1)
	}
}

// TrackAPIZero counts calls that succeeded but returned no text.
func (t *Tracker) TrackAPIZero(provider string) {
	if t != nil {
		t.provider(provider).zero.Add(1)
	}
}

// TrackOutcome counts how a planning request ended (assembled, fallback, ...).
func (t *Tracker) TrackOutcome(outcome string) {
	if t != nil {
		t.outcomes.get(outcome).Add(1)
	}
}

// Snapshot copies the provider counters.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	out := make(map[string]ProviderStats)
	if t == nil {
		return out
	}
	t.providers.each(func(name string, c *providerCounters) {
		out[name] = ProviderStats{
			APISuccess:    c.success.Load(),
			APIFailures:   c.failure.Load(),
			APIZeroResult: c.zero.Load(),
		}
	})
	return out
}

// Outcomes copies the outcome counters.
func (t *Tracker) Outcomes() map[string]int64 {
	out := make(map[string]int64)
	if t == nil {
		return out
	}
	t.outcomes.each(func(name string, c *atomic.Int64) {
		out[name] = c.Load()
	})
	return out
}

// registry lazily creates one value per key. Values never move once created,
// so callers update them without holding the lock.
type registry[V any] struct {
	mu sync.RWMutex
	m  map[string]*V
}

func (r *registry[V]) get(key string) *V {
	r.mu.RLock()
	v, ok := r.m[key]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok = r.m[key]; ok {
		return v
	}
	if r.m == nil {
		r.m = make(map[string]*V)
	}
	v = new(V)
	r.m[key] = v
	return v
}

func (r *registry[V]) each(fn func(string, *V)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k, v := range r.m {
		fn(k, v)
	}
}
