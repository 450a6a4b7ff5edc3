package llm

import (
	"regexp"
	"strings"
)

// Markers around the catalog block in the research prompt.
const (
	CatalogStart = "<start of catalog>"
	CatalogEnd   = "<end of catalog>"
)

// WordWrap re-flows each line of text to at most width columns. Words longer
// than width get a line of their own. A width of zero or less returns text as is.
func WordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	out := make([]string, 0, strings.Count(text, "\n")+1)
	for _, line := range strings.Split(text, "\n") {
		var cur strings.Builder
		for _, word := range strings.Fields(line) {
			switch {
			case cur.Len() == 0:
			case cur.Len()+1+len(word) > width:
				out = append(out, cur.String())
				cur.Reset()
			default:
				cur.WriteByte(' ')
			}
			cur.WriteString(word)
		}
		out = append(out, cur.String())
	}
	return strings.Join(out, "\n")
}

// TruncateCatalog shortens a prompt for logging: inside the catalog block,
// blank lines are dropped and the rest trimmed and cut to maxLen runes.
func TruncateCatalog(text string, maxLen int) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	inside := false
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, CatalogStart) || strings.Contains(lower, CatalogEnd) {
			inside = strings.Contains(lower, CatalogStart)
			kept = append(kept, line)
			continue
		}
		if !inside {
			kept = append(kept, line)
			continue
		}
		if entry := clip(strings.TrimSpace(line), maxLen); entry != "" {
			kept = append(kept, entry)
		}
	}
	return strings.Join(kept, "\n")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

var fenceMarker = regexp.MustCompile("```[A-Za-z]*")

// CleanJSONBlock strips markdown code fences, keeping whatever surrounds them.
func CleanJSONBlock(text string) string {
	return strings.TrimSpace(fenceMarker.ReplaceAllString(text, ""))
}
