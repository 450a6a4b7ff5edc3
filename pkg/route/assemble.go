package route

import (
	"log/slog"
	"strings"

	"hkexplorer/pkg/duration"
	"hkexplorer/pkg/model"
)

// Override holds the fields an upstream selection may rewrite for one stop.
// Empty or malformed fields fall back to the catalog.
type Override struct {
	Title            string
	Reason           string
	Type             string
	ExpectedDuration string
	Location         []string
}

// Assemble builds a route using the default options.
func Assemble(order []string, overrides map[string]Override, catalog []model.Challenge, travel string) *model.Route {
	return Defaults().Assemble(order, overrides, catalog, travel)
}

// Assemble resolves the ordered IDs against the catalog and builds a route.
// IDs missing from the catalog are dropped and duplicates keep their first
// position. An override never adds a stop the catalog does not have. The total
// duration is always recomputed. travel is used when it is a valid duration,
// otherwise the per-stop buffer applies.
// It returns nil when no stop survives.
func (o Options) Assemble(order []string, overrides map[string]Override, catalog []model.Challenge, travel string) *model.Route {
	o = o.normalized()
	idx := model.Catalog(catalog)
	seen := make(map[string]bool, len(order))

	var stops []model.RouteChallenge
	for _, raw := range order {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		c, ok := idx[id]
		if !ok {
			slog.Debug("Dropping unknown challenge from selection", "id", id)
			continue
		}
		seen[id] = true

		rc, err := buildStop(c, overrides[id])
		if err != nil {
			slog.Warn("Dropping challenge with unusable location", "id", id, "error", err)
			continue
		}
		stops = append(stops, rc)
	}

	if len(stops) == 0 {
		return nil
	}

	durations := make([]string, len(stops))
	for i, s := range stops {
		durations[i] = s.ExpectedDuration
	}

	if !duration.Valid(travel) {
		travel = o.TravelTime(len(stops))
	}

	r, err := model.NewRoute(stops, duration.Sum(durations...), travel)
	if err != nil {
		return nil
	}
	return r
}

func buildStop(c model.Challenge, ov Override) (model.RouteChallenge, error) {
	title := c.Title
	if t := strings.TrimSpace(ov.Title); t != "" {
		title = t
	}

	typ := c.Type
	if ov.Type != "" {
		if parsed := model.ParseCategory(ov.Type); parsed != model.CategoryOther {
			typ = parsed
		}
	}

	expected := c.ExpectedDuration
	if duration.Valid(ov.ExpectedDuration) {
		expected = strings.TrimSpace(ov.ExpectedDuration)
	}

	location := c.Location
	if len(ov.Location) == 2 {
		location = ov.Location
	}

	return model.NewRouteChallenge(c.ID, title, typ, location, expected, strings.TrimSpace(ov.Reason))
}
