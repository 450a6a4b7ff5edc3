package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExtractObject recovers a JSON object from free text.
// It strips code fences, tries a direct parse, then the span between the first
// '{' and the last '}'. On failure it returns an empty map; it never panics or
// errors, so callers treat missing keys as the failure signal.
func ExtractObject(text string) map[string]any {
	cleaned := CleanJSONBlock(text)
	if obj, ok := decodeObject(cleaned); ok {
		return obj
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if obj, ok := decodeObject(cleaned[start : end+1]); ok {
			return obj
		}
	}

	return map[string]any{}
}

func decodeObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first key holding a string or number, rendered as text.
func String(m map[string]any, keys ...string) (string, bool) {
	v, ok := lookup(m, keys)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// Float returns the first key holding a number or a string starting with one,
// so "3", "3.5 hours" and 3 all succeed.
func Float(m map[string]any, keys ...string) (float64, bool) {
	v, ok := lookup(m, keys)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		return leadingFloat(t)
	default:
		return 0, false
	}
}

func leadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || s[end] == '-' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Strings returns a string list. A single comma-separated string is split.
// Non-string list members are rendered with fmt.
func Strings(m map[string]any, keys ...string) ([]string, bool) {
	v, ok := lookup(m, keys)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case string:
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			case nil, map[string]any, []any:
			default:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out, true
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// Objects returns the list of objects under the first matching key.
// List members that are not objects are skipped.
func Objects(m map[string]any, keys ...string) ([]map[string]any, bool) {
	v, ok := lookup(m, keys)
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out, true
}
