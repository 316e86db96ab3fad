package extract

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/startup-finder/internal/model"
)

// coerceRule maps an arbitrarily-named input key onto one canonical
// field. Rules are evaluated in order per incoming key; the first
// matching rule claims it. Keeping the table declarative keeps LLM key
// drift ("Company Name", "startup-name", "Sector") out of control flow.
type coerceRule struct {
	match func(key string) bool
	apply func(s *model.Startup, v any, now time.Time)
}

func keyContains(parts ...string) func(string) bool {
	return func(key string) bool {
		for _, p := range parts {
			if !strings.Contains(key, p) {
				return false
			}
		}
		return true
	}
}

func keyIn(names ...string) func(string) bool {
	return func(key string) bool {
		for _, n := range names {
			if key == n {
				return true
			}
		}
		return false
	}
}

func keyHasAny(parts ...string) func(string) bool {
	return func(key string) bool {
		for _, p := range parts {
			if strings.Contains(key, p) {
				return true
			}
		}
		return false
	}
}

var coerceRules = []coerceRule{
	{keyContains("company", "name"), func(s *model.Startup, v any, _ time.Time) { s.Name = asString(v) }},
	{keyIn("name", "company_name", "startup_name"), func(s *model.Startup, v any, _ time.Time) { s.Name = asString(v) }},
	{keyIn("description", "desc", "about"), func(s *model.Startup, v any, _ time.Time) { s.Description = asString(v) }},
	{keyContains("funding", "amount"), func(s *model.Startup, v any, _ time.Time) { s.FundingAmount = asString(v) }},
	{keyHasAny("round", "stage"), func(s *model.Startup, v any, _ time.Time) { s.FundingRound = asString(v) }},
	{keyHasAny("date"), func(s *model.Startup, v any, now time.Time) { s.FundingDate = ParseDate(asString(v), now) }},
	{keyHasAny("investor"), func(s *model.Startup, v any, _ time.Time) { s.Investors = asStringList(v) }},
	{keyHasAny("industry", "sector"), func(s *model.Startup, v any, _ time.Time) { s.Industry = asString(v) }},
	{keyHasAny("location", "city"), func(s *model.Startup, v any, _ time.Time) { s.Location = asString(v) }},
	{keyHasAny("size", "employees"), func(s *model.Startup, v any, _ time.Time) { s.CompanySize = asString(v) }},
	{keyHasAny("linkedin"), func(s *model.Startup, v any, _ time.Time) { s.LinkedInURL = asString(v) }},
	{keyHasAny("website", "url"), func(s *model.Startup, v any, _ time.Time) { s.CompanyURL = asString(v) }},
}

// CoerceRecord normalizes one loosely-keyed record into a Startup. The
// second return is false when the record lacks the one required field,
// a non-empty name.
func CoerceRecord(data map[string]any, now time.Time) (model.Startup, bool) {
	s := model.Startup{CreatedAt: now, UpdatedAt: now}

	// Sorted traversal keeps the result stable when two input keys land
	// on the same field.
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, rawKey := range keys {
		v := data[rawKey]
		if v == nil {
			continue
		}
		key := normalizeKey(rawKey)
		for _, rule := range coerceRules {
			if rule.match(key) {
				rule.apply(&s, v, now)
				break
			}
		}
	}

	if strings.TrimSpace(s.Name) == "" {
		return model.Startup{}, false
	}
	if s.Description == "" {
		s.Description = model.NoDescription
	}
	return s, true
}

// CoercePartial salvages the required fields from a record that failed
// full validation. Partial information beats no information.
func CoercePartial(data map[string]any, now time.Time) (model.Startup, bool) {
	full, ok := CoerceRecord(data, now)
	if !ok {
		return model.Startup{}, false
	}
	s := model.NewStartup(full.Name)
	if full.Description != "" {
		s.Description = full.Description
	}
	return s, true
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	case float64:
		// JSON numbers; company sizes like 250 arrive this way.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return ""
	default:
		return ""
	}
}

func asStringList(v any) []string {
	switch t := v.(type) {
	case []any:
		var out []string
		for _, it := range t {
			if s := asString(it); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	default:
		return nil
	}
}
