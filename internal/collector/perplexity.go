package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/startup-finder/internal/extract"
	"github.com/sells-group/startup-finder/internal/model"
	"github.com/sells-group/startup-finder/pkg/perplexity"
)

const (
	defaultTargetCount = 30
	systemPrompt       = "You are a startup funding research assistant. " +
		"Provide accurate, up-to-date information about recently funded startups. " +
		"Return responses in a structured JSON format with detailed information for each startup. " +
		"Ensure all data is factual and include citations where possible."
)

// PerplexityCollector asks the Perplexity search API for recently
// funded startups. It tries three response contracts in decreasing
// order of structure: a JSON-schema constrained response, a freeform
// response cleaned and JSON-parsed, and finally text heuristics.
type PerplexityCollector struct {
	client       perplexity.Client
	snapshotPath string
	targetCount  int
	now          func() time.Time
}

// PerplexityOption configures the collector.
type PerplexityOption func(*PerplexityCollector)

// WithSnapshotPath enables snapshot persistence after successful runs.
func WithSnapshotPath(path string) PerplexityOption {
	return func(c *PerplexityCollector) { c.snapshotPath = path }
}

// WithTargetCount overrides how many startups one run asks for.
func WithTargetCount(n int) PerplexityOption {
	return func(c *PerplexityCollector) { c.targetCount = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) PerplexityOption {
	return func(c *PerplexityCollector) { c.now = now }
}

// NewPerplexityCollector creates the structured-query adapter.
func NewPerplexityCollector(client perplexity.Client, opts ...PerplexityOption) *PerplexityCollector {
	c := &PerplexityCollector{
		client:      client,
		targetCount: defaultTargetCount,
		now:         time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *PerplexityCollector) SourceName() string { return "Perplexity API" }

// Collect runs one collection pass. Source failures are logged and
// yield an empty list; they never propagate.
func (c *PerplexityCollector) Collect(ctx context.Context, filter model.Filter) ([]model.Startup, error) {
	now := c.now().UTC()

	startups := c.collectStructured(ctx, filter, now)
	if len(startups) == 0 {
		zap.L().Warn("perplexity: schema-constrained mode returned no valid records, falling back to freeform")
		startups = c.collectFreeform(ctx, filter, now)
	}

	for i := range startups {
		startups[i].Source = c.SourceName()
	}

	if len(startups) == 0 {
		zap.L().Error("perplexity: every parsing strategy returned nothing")
		return nil, nil
	}

	if c.snapshotPath != "" {
		if err := WriteSnapshot(c.snapshotPath, startups, now); err != nil {
			zap.L().Warn("perplexity: snapshot save failed", zap.Error(err))
		}
	}

	zap.L().Info("perplexity: collected startups", zap.Int("count", len(startups)))
	return startups, nil
}

// collectStructured is the schema-constrained mode: the API is asked
// for a single JSON object {"startups": [...], "total_count": n}.
// Records failing field-by-field validation are retried as partials
// (name and description only) rather than dropped.
func (c *PerplexityCollector) collectStructured(ctx context.Context, filter model.Filter, now time.Time) []model.Startup {
	temp := 0.2
	maxTokens := 8000
	resp, err := c.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: c.buildQuery(filter, now)},
		},
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ResponseFormat: startupSchemaFormat(),
	})
	if err != nil {
		zap.L().Error("perplexity: schema-constrained request failed", zap.Error(err))
		return nil
	}

	records := extract.DecodeRecords(extract.CleanResponse(resp.Content()))
	if records == nil {
		return nil
	}

	var startups []model.Startup
	for _, rec := range records {
		if validateRecord(rec) {
			if s, ok := extract.CoerceRecord(rec, now); ok {
				startups = append(startups, s)
				continue
			}
		}
		// Partial information beats no information.
		if s, ok := extract.CoercePartial(rec, now); ok {
			zap.L().Debug("perplexity: salvaged partial record", zap.String("name", s.Name))
			startups = append(startups, s)
		}
	}
	return startups
}

// collectFreeform is the fallback mode: no response_format constraint.
// The raw text is cleaned and JSON-parsed; if that fails entirely, the
// text-heuristic parser takes over.
func (c *PerplexityCollector) collectFreeform(ctx context.Context, filter model.Filter, now time.Time) []model.Startup {
	temp := 0.2
	maxTokens := 8000
	resp, err := c.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: c.buildQuery(filter, now)},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		zap.L().Error("perplexity: freeform request failed", zap.Error(err))
		return nil
	}

	content := resp.Content()
	cleaned := extract.CleanResponse(content)

	if records := extract.DecodeRecords(cleaned); records != nil {
		var startups []model.Startup
		for _, rec := range records {
			if s, ok := extract.CoerceRecord(rec, now); ok {
				startups = append(startups, s)
			}
		}
		if len(startups) > 0 {
			return startups
		}
	}

	zap.L().Warn("perplexity: JSON parsing failed, using text heuristics")
	return extract.ParseText(content, now)
}

// buildQuery renders the user prompt from the filter.
func (c *PerplexityCollector) buildQuery(filter model.Filter, now time.Time) string {
	count := c.targetCount
	if filter.Limit > 0 {
		count = filter.Limit
	}

	start := filter.Cutoff(now)
	var b strings.Builder
	fmt.Fprintf(&b, "Find and list %d recently funded startups from %s to %s.\n\n",
		count, start.Format("January 2006"), now.Format("January 2006"))

	b.WriteString(`For each startup, provide the following information in a structured JSON format:

{
  "startups": [
    {
      "company_name": "Exact company name",
      "description": "Brief description of what the company does",
      "funding_amount": "Amount raised (e.g., $10M, $5.2M)",
      "funding_round": "Type of round (e.g., Seed, Series A, Series B)",
      "funding_date": "Date of funding announcement (YYYY-MM-DD format)",
      "investors": ["List of investors"],
      "industry": "Primary industry/sector",
      "location": "Company headquarters location",
      "company_size": "Number of employees (if available)",
      "company_website": "Official website URL (if available)"
    }
  ],
  "total_count": 0
}

Focus on:
`)

	if len(filter.Industries) > 0 {
		fmt.Fprintf(&b, "- Startups in these industries: %s\n", strings.Join(filter.Industries, ", "))
	} else {
		b.WriteString("- Tech startups (AI, SaaS, fintech, biotech, e-commerce, etc.)\n")
	}
	if len(filter.FundingRounds) > 0 {
		fmt.Fprintf(&b, "- These funding rounds: %s\n", strings.Join(filter.FundingRounds, ", "))
	} else {
		b.WriteString("- Seed, Series A, Series B, and Series C rounds\n")
	}
	if len(filter.Locations) > 0 {
		fmt.Fprintf(&b, "- Companies headquartered in: %s\n", strings.Join(filter.Locations, ", "))
	} else {
		b.WriteString("- Companies from major startup hubs (US, Europe, Asia)\n")
	}
	b.WriteString("- Recent announcements from reliable sources\n\n")
	b.WriteString("Ensure the response is valid JSON with complete information for each startup.")

	return b.String()
}

// startupSchemaFormat is the response_format for schema-constrained
// mode, mirroring the prompt's envelope.
func startupSchemaFormat() *perplexity.ResponseFormat {
	stringOrNull := map[string]any{"type": []string{"string", "null"}}
	return &perplexity.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &perplexity.JSONSchema{
			Schema: map[string]any{
				"type":     "object",
				"required": []string{"startups", "total_count"},
				"properties": map[string]any{
					"total_count": map[string]any{"type": "integer"},
					"startups": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []string{"company_name", "description"},
							"properties": map[string]any{
								"company_name":    map[string]any{"type": "string"},
								"description":     map[string]any{"type": "string"},
								"funding_amount":  stringOrNull,
								"funding_round":   stringOrNull,
								"funding_date":    stringOrNull,
								"investors":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
								"industry":        stringOrNull,
								"location":        stringOrNull,
								"company_size":    stringOrNull,
								"company_website": stringOrNull,
							},
						},
					},
				},
			},
		},
	}
}

// validateRecord checks one decoded record field-by-field against the
// schema contract: required strings present and non-empty, optional
// fields either absent, null, strings, or (for investors) a string
// list. Anything else fails full validation and goes down the partial
// path.
func validateRecord(rec map[string]any) bool {
	name, ok := rec["company_name"].(string)
	if !ok {
		name, ok = rec["name"].(string)
	}
	if !ok || strings.TrimSpace(name) == "" {
		return false
	}
	if desc, present := rec["description"]; present {
		if _, ok := desc.(string); !ok && desc != nil {
			return false
		}
	}

	for _, key := range []string{"funding_amount", "funding_round", "funding_date", "industry", "location", "company_size", "company_website"} {
		v, present := rec[key]
		if !present || v == nil {
			continue
		}
		if _, ok := v.(string); !ok {
			return false
		}
	}

	if inv, present := rec["investors"]; present && inv != nil {
		list, ok := inv.([]any)
		if !ok {
			return false
		}
		for _, it := range list {
			if _, ok := it.(string); !ok {
				return false
			}
		}
	}
	return true
}
