// Package collector contains the source adapters that pull raw startup
// funding data from external origins, and the orchestrator that fans
// out across them.
package collector

import (
	"context"

	"github.com/sells-group/startup-finder/internal/model"
)

// Collector is one source of startup funding records. Implementations
// own extraction end to end: Collect returns canonical records, never
// raw source payloads.
//
// Collect must not propagate source failures: a network error, timeout,
// or total extraction failure yields an empty slice and a nil error
// after logging. A non-nil error is reserved for programmer mistakes
// (nil client, bad configuration) the orchestrator should surface.
type Collector interface {
	Collect(ctx context.Context, filter model.Filter) ([]model.Startup, error)
	SourceName() string
}

var (
	_ Collector = (*PerplexityCollector)(nil)
	_ Collector = (*ScrapingCollector)(nil)
)
