// Package duration converts between HH:MM:SS strings and seconds.
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Zero is the formatted zero duration.
const Zero = "00:00:00"

// MaxSeconds is the largest duration Parse accepts, a million hours. Anything
// above it is treated as malformed so sums of parsed values cannot overflow.
const MaxSeconds = 1_000_000 * 3600

// Parse converts an "H:MM:SS" string to seconds.
// Any other shape yields 0; upstream text is untrusted so this never fails.
func Parse(text string) int {
	secs, ok := parse(text)
	if !ok {
		return 0
	}
	return secs
}

// Valid reports whether text is a well-formed H:MM:SS value.
func Valid(text string) bool {
	_, ok := parse(text)
	return ok
}

func parse(text string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 3 {
		return 0, false
	}

	var fields [3]int
	for i, p := range parts {
		if p == "" {
			return 0, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > MaxSeconds {
			return 0, false
		}
		fields[i] = n
	}
	total := fields[0]*3600 + fields[1]*60 + fields[2]
	if total > MaxSeconds {
		return 0, false
	}
	return total, true
}

// Format renders seconds as zero-padded HH:MM:SS. The hour field grows past 24.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatDuration renders a time.Duration, truncated to whole seconds.
func FormatDuration(d time.Duration) string {
	return Format(int(d / time.Second))
}

// Sum adds the given durations and formats the result.
func Sum(durations ...string) string {
	total := 0
	for _, d := range durations {
		total += Parse(d)
	}
	return Format(total)
}

// Seconds converts a parsed duration into a time.Duration.
func Seconds(text string) time.Duration {
	return time.Duration(Parse(text)) * time.Second
}
