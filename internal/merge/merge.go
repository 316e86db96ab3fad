// Package merge reconciles the aggregated multi-source record list into
// one canonical record per startup. Merging is deterministic: for a
// fixed input order the output is always the same, and merging a
// record with itself changes nothing.
package merge

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/startup-finder/internal/model"
)

// ConflictPolicy decides which value wins when the existing and the
// incoming record both carry a non-empty value for the same field.
type ConflictPolicy int

const (
	// PreferIncoming lets the later-seen value overwrite. This is the
	// default: later sources in a run tend to be fresher.
	PreferIncoming ConflictPolicy = iota
	// PreferExisting keeps the first-seen value.
	PreferExisting
)

// Options configures a merge run.
type Options struct {
	Conflict ConflictPolicy
}

// Merge collapses records sharing a dedup key (trimmed, lowercased
// name) into one record each. Empty values never overwrite non-empty
// ones; the conflict policy applies only when both sides are set.
// Records whose name is empty after trimming are dropped. First-seen
// order is preserved.
func Merge(records []model.Startup, opts Options) []model.Startup {
	byKey := make(map[string]int, len(records))
	var merged []model.Startup

	dropped := 0
	for _, rec := range records {
		key := rec.DedupKey()
		if key == "" {
			dropped++
			continue
		}
		i, seen := byKey[key]
		if !seen {
			byKey[key] = len(merged)
			merged = append(merged, rec)
			continue
		}
		merged[i] = mergeInto(merged[i], rec, opts)
	}

	if dropped > 0 {
		zap.L().Warn("merge: dropped records with empty names", zap.Int("count", dropped))
	}
	zap.L().Info("merge: complete",
		zap.Int("input", len(records)),
		zap.Int("output", len(merged)),
	)
	return merged
}

// mergeInto folds incoming into existing field by field. The Source
// field is special-cased as a label set union; timestamps keep the
// earliest CreatedAt and the latest UpdatedAt.
func mergeInto(existing, incoming model.Startup, opts Options) model.Startup {
	out := existing

	// Name is identity, not data: the first-seen spelling stays.
	out.Name = existing.Name
	out.Description = pickDescription(existing.Description, incoming.Description, opts)
	out.FundingAmount = pickString(existing.FundingAmount, incoming.FundingAmount, opts)
	out.FundingRound = pickString(existing.FundingRound, incoming.FundingRound, opts)
	out.Industry = pickString(existing.Industry, incoming.Industry, opts)
	out.Location = pickString(existing.Location, incoming.Location, opts)
	out.CompanySize = pickString(existing.CompanySize, incoming.CompanySize, opts)
	out.CompanyURL = pickString(existing.CompanyURL, incoming.CompanyURL, opts)
	out.LinkedInURL = pickString(existing.LinkedInURL, incoming.LinkedInURL, opts)
	out.SourceURL = pickString(existing.SourceURL, incoming.SourceURL, opts)

	if existing.FundingDate == nil {
		out.FundingDate = incoming.FundingDate
	} else if incoming.FundingDate != nil && opts.Conflict == PreferIncoming {
		out.FundingDate = incoming.FundingDate
	}

	if len(existing.Investors) == 0 {
		out.Investors = incoming.Investors
	} else if len(incoming.Investors) > 0 && opts.Conflict == PreferIncoming {
		out.Investors = incoming.Investors
	}
	if len(existing.KeyPeople) == 0 {
		out.KeyPeople = incoming.KeyPeople
	} else if len(incoming.KeyPeople) > 0 && opts.Conflict == PreferIncoming {
		out.KeyPeople = incoming.KeyPeople
	}

	out.Source = unionSources(existing.Source, incoming.Source)

	if incoming.CreatedAt.Before(out.CreatedAt) {
		out.CreatedAt = incoming.CreatedAt
	}
	if incoming.UpdatedAt.After(out.UpdatedAt) {
		out.UpdatedAt = incoming.UpdatedAt
	}
	return out
}

func pickString(existing, incoming string, opts Options) string {
	if existing == "" {
		return incoming
	}
	if incoming == "" {
		return existing
	}
	if opts.Conflict == PreferIncoming {
		return incoming
	}
	return existing
}

// pickDescription treats the placeholder description as empty so a real
// description always beats it.
func pickDescription(existing, incoming string, opts Options) string {
	if existing == model.NoDescription {
		existing = ""
	}
	if incoming == model.NoDescription {
		incoming = ""
	}
	if s := pickString(existing, incoming, opts); s != "" {
		return s
	}
	return model.NoDescription
}

// unionSources joins the two comma-separated source labels, keeping
// first-mention order and dropping duplicates.
func unionSources(a, b string) string {
	seen := make(map[string]bool)
	var out []string
	for _, label := range append(splitSources(a), splitSources(b)...) {
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	return strings.Join(out, ", ")
}

func splitSources(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
