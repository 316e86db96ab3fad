package collector

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/startup-finder/internal/extract"
	"github.com/sells-group/startup-finder/internal/fetch"
	"github.com/sells-group/startup-finder/internal/model"
)

// ScrapingCollector extracts funding news from configured public pages.
// Each source is processed independently: a failing fetch or parse is
// logged and skipped, and the remaining sources still contribute.
type ScrapingCollector struct {
	sources       []model.SourceDescriptor
	fetcher       fetch.Fetcher
	maxConcurrent int
	now           func() time.Time
}

// ScrapingOption configures the collector.
type ScrapingOption func(*ScrapingCollector)

// WithScrapeConcurrency bounds how many sources are fetched at once.
func WithScrapeConcurrency(n int) ScrapingOption {
	return func(c *ScrapingCollector) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithScrapeClock overrides the time source, for tests.
func WithScrapeClock(now func() time.Time) ScrapingOption {
	return func(c *ScrapingCollector) { c.now = now }
}

// NewScrapingCollector creates the scraping adapter. The fetcher
// decides how pages are retrieved; pass a rendered fetcher for sources
// that lazy-load their article lists.
func NewScrapingCollector(sources []model.SourceDescriptor, fetcher fetch.Fetcher, opts ...ScrapingOption) *ScrapingCollector {
	c := &ScrapingCollector{
		sources:       sources,
		fetcher:       fetcher,
		maxConcurrent: 4,
		now:           time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *ScrapingCollector) SourceName() string { return "Web Scraping" }

// Collect scrapes every configured source and returns the funding
// articles newer than the filter's cutoff.
func (c *ScrapingCollector) Collect(ctx context.Context, filter model.Filter) ([]model.Startup, error) {
	now := c.now().UTC()
	cutoff := filter.Cutoff(now)

	var (
		mu  sync.Mutex
		all []model.Startup
	)

	g := new(errgroup.Group)
	g.SetLimit(c.maxConcurrent)

	for _, src := range c.sources {
		g.Go(func() error {
			startups := c.scrapeSource(ctx, src, cutoff, now)
			if len(startups) == 0 {
				return nil
			}
			mu.Lock()
			all = append(all, startups...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("scraping: collection complete",
		zap.Int("sources", len(c.sources)),
		zap.Int("startups", len(all)),
	)
	return all, nil
}

// scrapeSource fetches and parses one source. Failures are contained
// here so one broken site never aborts its siblings.
func (c *ScrapingCollector) scrapeSource(ctx context.Context, src model.SourceDescriptor, cutoff, now time.Time) []model.Startup {
	zap.L().Info("scraping: fetching source",
		zap.String("source", src.Name),
		zap.String("url", src.URL),
		zap.String("fetcher", c.fetcher.Name()),
	)

	html, err := c.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		zap.L().Error("scraping: fetch failed, skipping source",
			zap.String("source", src.Name),
			zap.Error(err),
		)
		return nil
	}

	startups := extract.ParseArticles(html, src.URL, cutoff, now)

	// Stamp provenance before anything leaves the adapter. Articles
	// without a resolved link fall back to the source page URL.
	for i := range startups {
		startups[i].Source = src.Name
		if startups[i].SourceURL == "" {
			startups[i].SourceURL = src.URL
		}
	}

	zap.L().Info("scraping: source done",
		zap.String("source", src.Name),
		zap.Int("startups", len(startups)),
	)
	return startups
}
