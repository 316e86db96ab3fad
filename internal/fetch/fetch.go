// Package fetch provides the page-fetch capability used by the scraping
// adapter. Two implementations satisfy it: a plain net/http fetcher and
// a render-service fetcher for pages that need a real browser pass.
package fetch

import "context"

// Fetcher retrieves the HTML of one page.
type Fetcher interface {
	// Name identifies the fetcher in logs.
	Name() string
	// Fetch returns the page HTML. Implementations must honor ctx
	// cancellation and apply their own timeouts.
	Fetch(ctx context.Context, url string) (string, error)
}
