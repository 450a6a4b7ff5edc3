// Package route builds routes from upstream selections or, when those are
// unusable, from a deterministic greedy pass over the catalog.
package route

import (
	"time"

	"hkexplorer/pkg/duration"
)

// FallbackReason is attached to every stop chosen by the fallback builder.
const FallbackReason = "Best match for your preferences"

const (
	// DefaultMaxStops caps the fallback route length.
	DefaultMaxStops = 6
	// DefaultTravelBuffer is the fixed walking allowance between two stops.
	DefaultTravelBuffer = 15 * time.Minute
	// unknownDuration is assumed for challenges without an expected duration.
	unknownDuration = time.Hour
)

// Options tune route building.
type Options struct {
	MaxStops     int
	TravelBuffer time.Duration
}

// Defaults returns the standard options.
func Defaults() Options {
	return Options{
		MaxStops:     DefaultMaxStops,
		TravelBuffer: DefaultTravelBuffer,
	}
}

func (o Options) normalized() Options {
	if o.MaxStops <= 0 {
		o.MaxStops = DefaultMaxStops
	}
	if o.TravelBuffer < 0 {
		o.TravelBuffer = 0
	}
	return o
}

// TravelTime returns the heuristic travel time for a route with n stops.
func (o Options) TravelTime(n int) string {
	if n < 2 {
		return duration.Zero
	}
	return duration.FormatDuration(o.TravelBuffer * time.Duration(n-1))
}
