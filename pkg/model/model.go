package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBadLocation is returned when a location is not a latitude/longitude pair.
	ErrBadLocation = errors.New("location must have exactly 2 elements")
	// ErrEmptyRoute is returned when a route would have no challenges.
	ErrEmptyRoute = errors.New("route must contain at least one challenge")
)

// DefaultReason is used when no stage supplied a reason for a stop.
const DefaultReason = "Recommended for you"

// DefaultAvailableHours is the time budget used when none could be extracted.
const DefaultAvailableHours = 4.0

// MaxAvailableHours caps any time budget. Longer requests are planned as a week.
const MaxAvailableHours = 7 * 24.0

// Challenge is a location-anchored activity from the catalog.
type Challenge struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Type             Category   `json:"type"`
	Difficulty       Difficulty `json:"difficulty"`
	ExpectedDuration string     `json:"expected_duration"`
	Location         []string   `json:"location"` // [lat, lon], e.g. "22.293° N"
	Score            float64    `json:"score"`
	JoinedPeople     []string   `json:"joined_people"`
}

// UnmarshalJSON accepts the legacy "chlgID" key for the identifier.
func (c *Challenge) UnmarshalJSON(data []byte) error {
	type plain Challenge
	aux := struct {
		*plain
		ChlgID      string `json:"chlgID"`
		ChallengeID string `json:"challengeId"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = aux.ChlgID
	}
	if c.ID == "" {
		c.ID = aux.ChallengeID
	}
	return nil
}

// Catalog indexes challenges by ID. Later duplicates do not replace earlier ones.
func Catalog(challenges []Challenge) map[string]Challenge {
	idx := make(map[string]Challenge, len(challenges))
	for _, c := range challenges {
		if _, exists := idx[c.ID]; !exists {
			idx[c.ID] = c
		}
	}
	return idx
}

// Preferences are the visitor's constraints extracted from a request.
type Preferences struct {
	Interests          []Category `json:"interests"`
	Difficulty         Difficulty `json:"difficulty_preference"`
	AvailableTimeHours float64    `json:"available_time_hours"`
	GroupSize          int        `json:"group_size"`
	SpecialRequests    string     `json:"special_requests,omitempty"`
}

// DefaultPreferences returns the preferences used when extraction fails.
func DefaultPreferences() Preferences {
	return Preferences{
		Difficulty:         DifficultyAny,
		AvailableTimeHours: DefaultAvailableHours,
		GroupSize:          1,
	}
}

// Wants reports whether the category is among the declared interests.
func (p Preferences) Wants(c Category) bool {
	for _, i := range p.Interests {
		if i == c {
			return true
		}
	}
	return false
}

// Budget returns the time budget, clamped to [0, MaxAvailableHours].
func (p Preferences) Budget() time.Duration {
	hours := p.AvailableTimeHours
	switch {
	case !(hours > 0):
		return 0
	case hours > MaxAvailableHours:
		hours = MaxAvailableHours
	}
	return time.Duration(hours * float64(time.Hour))
}

// BudgetSeconds returns Budget in whole seconds.
func (p Preferences) BudgetSeconds() int {
	return int(p.Budget() / time.Second)
}

// RouteChallenge is a selected stop on a route.
type RouteChallenge struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Type             Category `json:"type"`
	Location         []string `json:"location"`
	ExpectedDuration string   `json:"expected_duration"`
	Reason           string   `json:"reason"`
}

// NewRouteChallenge builds a stop, rejecting anything but a two-element location.
func NewRouteChallenge(id, title string, typ Category, location []string, expected, reason string) (RouteChallenge, error) {
	if len(location) != 2 {
		return RouteChallenge{}, fmt.Errorf("challenge %q: %w (got %d)", id, ErrBadLocation, len(location))
	}
	if reason == "" {
		reason = DefaultReason
	}
	loc := []string{location[0], location[1]}
	return RouteChallenge{
		ID:               id,
		Title:            title,
		Type:             typ,
		Location:         loc,
		ExpectedDuration: expected,
		Reason:           reason,
	}, nil
}

// Route is an ordered, time-totaled sequence of stops.
type Route struct {
	Challenges          []RouteChallenge `json:"challenges"`
	TotalDuration       string           `json:"total_duration"`
	EstimatedTravelTime string           `json:"estimated_travel_time"`
	StartLocation       []string         `json:"start_location"`
	EndLocation         []string         `json:"end_location"`
}

// NewRoute pins start and end to the first and last stop.
func NewRoute(stops []RouteChallenge, total, travel string) (*Route, error) {
	if len(stops) == 0 {
		return nil, ErrEmptyRoute
	}
	return &Route{
		Challenges:          stops,
		TotalDuration:       total,
		EstimatedTravelTime: travel,
		StartLocation:       stops[0].Location,
		EndLocation:         stops[len(stops)-1].Location,
	}, nil
}

// IDs returns the stop identifiers in route order.
func (r *Route) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, len(r.Challenges))
	for i, c := range r.Challenges {
		ids[i] = c.ID
	}
	return ids
}
