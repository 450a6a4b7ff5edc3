package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Calendar units accepted in config durations on top of time.ParseDuration's.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// Duration is a time.Duration that reads and writes yaml values such as
// "15m", "30d" or "2d12h".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String renders whole days as "Nd" and anything else the way time.Duration does.
func (d Duration) String() string {
	td := time.Duration(d)
	if td != 0 && td%Day == 0 {
		return strconv.FormatInt(int64(td/Day), 10) + "d"
	}
	return td.String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

var calendarUnits = map[string]time.Duration{
	"d": Day,
	"w": Week,
}

var durationTerm = regexp.MustCompile(`^([0-9]*\.?[0-9]+)([a-zµ]+)`)

// ParseDuration parses a duration. An empty string is zero. Values without
// d or w go straight to time.ParseDuration; others are summed term by term.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0, nil
	case !strings.ContainsAny(s, "dw"):
		return time.ParseDuration(s)
	}

	var total time.Duration
	for rest := s; rest != ""; {
		m := durationTerm.FindStringSubmatch(rest)
		if m == nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		rest = rest[len(m[0]):]

		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		unit, ok := calendarUnits[m[2]]
		if !ok {
			std, err := time.ParseDuration("1" + m[2])
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: unknown unit %q", s, m[2])
			}
			unit = std
		}
		total += time.Duration(n * float64(unit))
	}
	return total, nil
}
