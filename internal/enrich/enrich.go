// Package enrich fills gaps in collected records with a follow-up
// lookup per startup. Enrichment only ever adds: a field the record
// already carries is never overwritten, and a failed lookup returns
// the record unchanged.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/startup-finder/internal/extract"
	"github.com/sells-group/startup-finder/internal/model"
	"github.com/sells-group/startup-finder/pkg/perplexity"
)

// Enricher looks up additional detail for one startup.
type Enricher interface {
	Enrich(ctx context.Context, s model.Startup) (model.Startup, error)
}

// PerplexityEnricher queries the Perplexity API for company details
// the collectors could not provide: the LinkedIn page, key people,
// company size and website.
type PerplexityEnricher struct {
	client perplexity.Client
}

// NewPerplexityEnricher creates an Enricher backed by the given client.
func NewPerplexityEnricher(client perplexity.Client) *PerplexityEnricher {
	return &PerplexityEnricher{client: client}
}

const enrichSystemPrompt = "You are a company research assistant. " +
	"Provide accurate, verifiable details about the requested company. " +
	"Respond with a single JSON object and nothing else."

func (e *PerplexityEnricher) Enrich(ctx context.Context, s model.Startup) (model.Startup, error) {
	if s.Name == "" {
		return s, eris.New("enrich: startup has no name")
	}

	temp := 0.1
	maxTokens := 2000
	resp, err := e.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: enrichSystemPrompt},
			{Role: "user", Content: buildLookup(s)},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return s, eris.Wrapf(err, "enrich: lookup %s", s.Name)
	}

	records := extract.DecodeRecords(extract.CleanResponse(resp.Content()))
	if len(records) == 0 {
		zap.L().Warn("enrich: no parseable details", zap.String("name", s.Name))
		return s, nil
	}
	return apply(s, records[0]), nil
}

// buildLookup renders the detail query for one startup. Known context
// (industry, location) is included to disambiguate common names.
func buildLookup(s model.Startup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find details about the company %q", s.Name)
	if s.Industry != "" {
		fmt.Fprintf(&b, " (industry: %s)", s.Industry)
	}
	if s.Location != "" {
		fmt.Fprintf(&b, " (location: %s)", s.Location)
	}
	b.WriteString(".\n\nReturn a JSON object with these fields:\n")
	b.WriteString(`{
  "company_website": "Official website URL",
  "linkedin_url": "Company LinkedIn page URL",
  "company_size": "Number of employees",
  "location": "Headquarters location",
  "key_people": [
    {"name": "Full name", "title": "Role", "linkedin_url": "Profile URL", "email": "Email if public"}
  ]
}

Use null for anything you cannot verify.`)
	return b.String()
}

// apply copies looked-up values into the record's empty fields only.
func apply(s model.Startup, rec map[string]any) model.Startup {
	out := s

	fill := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v, ok := rec[k].(string); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	fill(&out.CompanyURL, "company_website", "website", "company_url")
	fill(&out.LinkedInURL, "linkedin_url", "linkedin")
	fill(&out.CompanySize, "company_size", "size", "employees")
	fill(&out.Location, "location", "headquarters")
	fill(&out.Industry, "industry", "sector")

	if len(out.KeyPeople) == 0 {
		out.KeyPeople = parsePeople(rec["key_people"])
	}
	return out
}

// parsePeople converts the loosely-typed key_people payload. Entries
// without a name are dropped.
func parsePeople(v any) []model.KeyPerson {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var people []model.KeyPerson
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p := model.KeyPerson{
			Name:        stringField(m, "name"),
			Title:       stringField(m, "title", "role"),
			LinkedInURL: stringField(m, "linkedin_url", "linkedin"),
			Email:       stringField(m, "email"),
		}
		if p.Name != "" {
			people = append(people, p)
		}
	}
	return people
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// EnrichAll runs the enricher over every record with bounded
// concurrency. A failed lookup keeps the original record; the batch
// never fails as a whole.
func EnrichAll(ctx context.Context, e Enricher, startups []model.Startup, maxConcurrent int) []model.Startup {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	out := make([]model.Startup, len(startups))
	copy(out, startups)

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrent)

	// Each goroutine owns exactly one slot of out.
	for i := range out {
		g.Go(func() error {
			enriched, err := e.Enrich(ctx, out[i])
			if err != nil {
				zap.L().Warn("enrich: lookup failed, keeping original",
					zap.String("name", out[i].Name),
					zap.Error(err),
				)
				return nil
			}
			out[i] = enriched
			return nil
		})
	}
	_ = g.Wait()
	return out
}
