// Package probe runs the startup checks of the planning service.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a probe that does not set its own timeout.
const DefaultTimeout = 5 * time.Second

// CheckFunc returns nil when the checked component is usable.
type CheckFunc func(ctx context.Context) error

// Probe is one startup check. A failed Critical probe stops the server.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool
	Timeout  time.Duration
}

// Result is the outcome of one probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Run executes the probes concurrently and returns their results in input
// order. Each check gets its own timeout even if ctx is long-lived.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			timeout := p.Timeout
			if timeout <= 0 {
				timeout = DefaultTimeout
			}
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := p.Check(checkCtx)
			results[i] = Result{
				Probe:    p,
				Error:    err,
				Duration: time.Since(start),
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// AnalyzeResults logs one line per probe and joins the errors of the
// critical probes that failed.
func AnalyzeResults(results []Result) error {
	var errs []error
	failed := 0
	for _, r := range results {
		attrs := []any{"probe", r.Probe.Name, "took", r.Duration.Round(time.Millisecond)}
		if r.Error == nil {
			slog.Info("Startup check passed", attrs...)
			continue
		}
		failed++
		slog.Error("Startup check failed", append(attrs, "critical", r.Probe.Critical, "error", r.Error)...)
		if r.Probe.Critical {
			errs = append(errs, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		}
	}
	slog.Info("Startup checks finished", "total", len(results), "failed", failed)
	return errors.Join(errs...)
}
