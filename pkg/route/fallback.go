package route

import (
	"log/slog"
	"slices"
	"time"

	"hkexplorer/pkg/duration"
	"hkexplorer/pkg/geo"
	"hkexplorer/pkg/model"
)

// BuildFallback builds a fallback route using the default options.
func BuildFallback(prefs model.Preferences, catalog []model.Challenge) *model.Route {
	return Defaults().Fallback(prefs, catalog)
}

// Fallback picks stops straight from the catalog without any model output.
// Filters that would leave nothing are ignored, candidates are packed greedily
// by score into the time budget, and the result is ordered south to north.
// It returns nil only when the catalog has no entry with a usable location.
func (o Options) Fallback(prefs model.Preferences, catalog []model.Challenge) *model.Route {
	if len(catalog) == 0 {
		return nil
	}
	o = o.normalized()

	var candidates []model.Challenge
	for _, c := range catalog {
		if len(c.Location) == 2 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		slog.Warn("No catalog entry has a usable location", "catalog", len(catalog))
		return nil
	}

	if len(prefs.Interests) > 0 {
		candidates = keepNonEmpty(candidates, func(c model.Challenge) bool {
			return prefs.Wants(c.Type)
		})
	}

	if prefs.Difficulty != "" && prefs.Difficulty != model.DifficultyAny {
		candidates = keepNonEmpty(candidates, func(c model.Challenge) bool {
			return c.Difficulty == prefs.Difficulty
		})
	}

	slices.SortStableFunc(candidates, func(a, b model.Challenge) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	budget := prefs.Budget()
	var selected []model.Challenge
	var total time.Duration
	for _, c := range candidates {
		if len(selected) >= o.MaxStops {
			break
		}
		d := expectedDuration(c)
		buffer := o.TravelBuffer * time.Duration(len(selected))
		if total+d+buffer <= budget {
			selected = append(selected, c)
			total += d
		}
	}

	if len(selected) == 0 {
		selected = candidates[:1]
	}

	ordered, err := geo.SortByLatitude(selected, func(c model.Challenge) []string { return c.Location })
	if err != nil {
		slog.Debug("Keeping score order for fallback route", "error", err)
	}

	stops := make([]model.RouteChallenge, 0, len(ordered))
	durations := make([]string, 0, len(ordered))
	for _, c := range ordered {
		rc, err := model.NewRouteChallenge(c.ID, c.Title, c.Type, c.Location, c.ExpectedDuration, FallbackReason)
		if err != nil {
			continue
		}
		stops = append(stops, rc)
		durations = append(durations, c.ExpectedDuration)
	}

	r, err := model.NewRoute(stops, duration.Sum(durations...), o.TravelTime(len(stops)))
	if err != nil {
		return nil
	}
	return r
}

// keepNonEmpty keeps matching challenges in order, or returns the input when none match.
func keepNonEmpty(in []model.Challenge, keep func(model.Challenge) bool) []model.Challenge {
	var out []model.Challenge
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return in
	}
	return out
}

func expectedDuration(c model.Challenge) time.Duration {
	if c.ExpectedDuration == "" {
		return unknownDuration
	}
	return duration.Seconds(c.ExpectedDuration)
}
