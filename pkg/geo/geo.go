// Package geo parses decorated coordinates and orders stops geographically.
package geo

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"hkexplorer/pkg/model"
)

// ErrBadCoordinate is returned for coordinates that do not parse.
var ErrBadCoordinate = errors.New("bad coordinate")

// ParseLatitude parses values like "22.293° N". A trailing S negates.
func ParseLatitude(s string) (float64, error) {
	return parseCoordinate(s, 'N', 'S')
}

// ParseLongitude parses values like "114.168° E". A trailing W negates.
func ParseLongitude(s string) (float64, error) {
	return parseCoordinate(s, 'E', 'W')
}

func parseCoordinate(s string, pos, neg rune) (float64, error) {
	sign := 1.0
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '°', r == ' ', r == '\t', r == '\n', r == '\u00a0':
		case r == pos, r == pos+('a'-'A'):
		case r == neg, r == neg+('a'-'A'):
			sign = -1
		default:
			b.WriteRune(r)
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadCoordinate, s)
	}
	return sign * v, nil
}

// ParseLocation converts a [lat, lon] pair into an orb.Point.
func ParseLocation(loc []string) (orb.Point, error) {
	if len(loc) != 2 {
		return orb.Point{}, fmt.Errorf("%w: want 2 elements, got %d", ErrBadCoordinate, len(loc))
	}
	lat, err := ParseLatitude(loc[0])
	if err != nil {
		return orb.Point{}, err
	}
	lon, err := ParseLongitude(loc[1])
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{lon, lat}, nil
}

// SortByLatitude returns the items ordered south to north (stable).
// If any item lacks a parseable latitude the input order is returned unchanged
// along with the error. The input slice is never modified.
func SortByLatitude[T any](items []T, location func(T) []string) ([]T, error) {
	lats := make([]float64, len(items))
	for i, it := range items {
		loc := location(it)
		if len(loc) == 0 {
			return items, fmt.Errorf("%w: item %d has no location", ErrBadCoordinate, i)
		}
		lat, err := ParseLatitude(loc[0])
		if err != nil {
			return items, err
		}
		lats[i] = lat
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case lats[a] < lats[b]:
			return -1
		case lats[a] > lats[b]:
			return 1
		}
		return 0
	})

	out := make([]T, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out, nil
}

// RouteLine returns the stops of a route as a line. Unparseable stops are skipped.
func RouteLine(r *model.Route) orb.LineString {
	if r == nil {
		return nil
	}
	var ls orb.LineString
	for _, c := range r.Challenges {
		p, err := ParseLocation(c.Location)
		if err != nil {
			continue
		}
		ls = append(ls, p)
	}
	return ls
}

// PathKm returns the great-circle length of the walk through all stops in km.
// It is informational only; travel time uses a fixed buffer per stop.
func PathKm(r *model.Route) float64 {
	return lineKm(RouteLine(r))
}

func lineKm(line orb.LineString) float64 {
	return geo.Length(line) / 1000
}

// FeatureCollection renders a route as GeoJSON: one point per stop plus the path.
func FeatureCollection(r *model.Route) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if r == nil {
		return fc
	}

	for i, c := range r.Challenges {
		p, err := ParseLocation(c.Location)
		if err != nil {
			continue
		}
		f := geojson.NewFeature(p)
		f.Properties["id"] = c.ID
		f.Properties["title"] = c.Title
		f.Properties["type"] = string(c.Type)
		f.Properties["order"] = i + 1
		f.Properties["expected_duration"] = c.ExpectedDuration
		fc.Append(f)
	}

	if line := RouteLine(r); len(line) > 1 {
		f := geojson.NewFeature(line)
		f.Properties["total_duration"] = r.TotalDuration
		f.Properties["estimated_travel_time"] = r.EstimatedTravelTime
		f.Properties["length_km"] = math.Round(lineKm(line)*100) / 100
		fc.Append(f)
	}
	return fc
}
