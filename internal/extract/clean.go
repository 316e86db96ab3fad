// Package extract turns unreliable machine text and HTML into canonical
// startup records. Every parser degrades instead of failing: a strategy
// that matches nothing hands off to the next one, and a single bad entry
// never aborts the batch.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	codeFenceRe    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	citationRe     = regexp.MustCompile(`\[\d+\]`)
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	jsonArrayRe    = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
	jsonObjectRe   = regexp.MustCompile(`(?s)\{\s*".*\}`)
	currencyInKeys = strings.NewReplacer("€", "", "£", "", "¥", "")
)

// CleanResponse prepares raw LLM output for JSON parsing. Models wrap
// responses in markdown fences, sprinkle footnote citations, and leave
// trailing commas; all of that is valid prose but fatal to json.Unmarshal.
func CleanResponse(raw string) string {
	s := raw

	// Prefer the contents of a fenced block when one exists.
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
		s = m[1]
	}

	s = citationRe.ReplaceAllString(s, "")
	s = trailingComma.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// ExtractJSON locates the first JSON array or object embedded in free
// text. Returns the empty string when nothing JSON-shaped is present.
func ExtractJSON(s string) string {
	if m := jsonArrayRe.FindString(s); m != "" {
		return m
	}
	if m := jsonObjectRe.FindString(s); m != "" {
		return m
	}
	return ""
}

// DecodeRecords parses cleaned LLM output into loose maps. It accepts a
// bare array, a single object, or the schema envelope
// {"startups": [...], "total_count": n}. A nil result means JSON parsing
// failed entirely and the text-heuristic parser should take over.
func DecodeRecords(cleaned string) []map[string]any {
	candidate := cleaned
	if !looksLikeJSON(candidate) {
		candidate = ExtractJSON(cleaned)
		if candidate == "" {
			return nil
		}
	}

	// Stray currency glyphs outside of string values break the decoder;
	// drop the non-ASCII ones that models emit around amounts. Dollar
	// signs are ASCII and survive inside quoted values untouched.
	attempts := []string{candidate, currencyInKeys.Replace(candidate)}

	for _, a := range attempts {
		if records := decodeOnce(a); records != nil {
			return records
		}
	}
	return nil
}

func decodeOnce(s string) []map[string]any {
	var arr []map[string]any
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		return arr
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}

	// Schema envelope.
	if raw, ok := obj["startups"]; ok {
		if items, ok := raw.([]any); ok {
			var records []map[string]any
			for _, it := range items {
				if m, ok := it.(map[string]any); ok {
					records = append(records, m)
				}
			}
			return records
		}
	}

	return []map[string]any{obj}
}

func looksLikeJSON(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}
