package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// captureAttrLimit drops long attribute values such as prompts and user messages.
const captureAttrLimit = 20

// Capture is a slog.Handler that keeps the most recent records in memory,
// condensed to "HH:MM:SS msg (key=value, ...)". It backs the log endpoints.
type Capture struct {
	level slog.Leveler
	attrs []slog.Attr
	group string
	ring  *ring
}

type ring struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
}

// NewCapture returns a handler retaining up to size lines at level and above.
func NewCapture(size int, level slog.Leveler) *Capture {
	if size < 1 {
		size = 1
	}
	return &Capture{level: level, ring: &ring{lines: make([]string, size)}}
}

// Recent is the capture attached to the server logger by Init.
var Recent = NewCapture(50, slog.LevelInfo)

func (c *Capture) Enabled(_ context.Context, level slog.Level) bool {
	return level >= c.level.Level()
}

// nolint:gocritic // slog.Handler takes the record by value
func (c *Capture) Handle(_ context.Context, r slog.Record) error {
	params := make([]string, 0, len(c.attrs)+r.NumAttrs())
	for _, a := range c.attrs {
		if p, ok := param(a); ok {
			params = append(params, p)
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if p, ok := param(c.qualify(a)); ok {
			params = append(params, p)
		}
		return true
	})
	sort.Strings(params)

	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Format(time.TimeOnly))
		b.WriteByte(' ')
	}
	b.WriteString(r.Message)
	if len(params) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(params, ", "))
	}
	c.ring.push(b.String())
	return nil
}

// qualify prefixes the attribute key with the open group, if any.
func (c *Capture) qualify(a slog.Attr) slog.Attr {
	if c.group != "" && a.Key != "" {
		a.Key = c.group + "." + a.Key
	}
	return a
}

func param(a slog.Attr) (string, bool) {
	a.Value = a.Value.Resolve()
	if a.Key == "" || a.Value.Kind() == slog.KindGroup {
		return "", false
	}
	val := strings.TrimSpace(a.Value.String())
	if strings.HasSuffix(a.Key, "request_id") && len(val) > 8 {
		val = val[:8]
	}
	if len(val) > captureAttrLimit {
		return "", false
	}
	return a.Key + "=" + val, true
}

func (c *Capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *c
	out.attrs = slices.Clone(c.attrs)
	for _, a := range attrs {
		out.attrs = append(out.attrs, c.qualify(a))
	}
	return &out
}

func (c *Capture) WithGroup(name string) slog.Handler {
	out := *c
	if out.group != "" {
		name = out.group + "." + name
	}
	out.group = name
	return &out
}

// Last returns the newest captured line, or "" when nothing was logged yet.
func (c *Capture) Last() string {
	lines := c.Lines(1)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

// Lines returns up to n captured lines, oldest first.
func (c *Capture) Lines(n int) []string {
	return c.ring.tail(n)
}

func (r *ring) push(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) tail(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := r.next
	if r.full {
		count = len(r.lines)
	}
	if n <= 0 || n > count {
		n = count
	}

	out := make([]string, n)
	start := r.next - n
	for i := range out {
		out[i] = r.lines[(start+i+len(r.lines))%len(r.lines)]
	}
	return out
}
