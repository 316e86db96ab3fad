package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/startup-finder/internal/collector"
	"github.com/sells-group/startup-finder/internal/fetch"
	"github.com/sells-group/startup-finder/internal/store"
	"github.com/sells-group/startup-finder/pkg/perplexity"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "startups.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initPerplexity() (perplexity.Client, error) {
	if cfg.Perplexity.Key == "" {
		return nil, eris.New("perplexity API key is required (STARTUPFINDER_PERPLEXITY_KEY)")
	}
	return perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	), nil
}

// initFetcher picks the render service when one is configured, plain
// HTTP otherwise.
func initFetcher() fetch.Fetcher {
	if cfg.Render.BaseURL != "" {
		return fetch.NewRenderedFetcher(fetch.RenderedOptions{
			BaseURL:       cfg.Render.BaseURL,
			APIKey:        cfg.Render.Key,
			Settle:        time.Duration(cfg.Render.SettleMs) * time.Millisecond,
			Timeout:       time.Duration(cfg.Render.TimeoutSecs) * time.Second,
			MaxConcurrent: cfg.Render.MaxConcurrent,
		})
	}
	return fetch.NewHTTPFetcher(fetch.HTTPOptions{
		Timeout:     time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
		PerHostRate: rate.Limit(cfg.Scrape.RatePerSecond),
	})
}

// buildOrchestrator registers every configured collector.
func buildOrchestrator(client perplexity.Client) *collector.Orchestrator {
	o := collector.NewOrchestrator(
		collector.WithMaxConcurrent(cfg.Collect.MaxConcurrent),
		collector.WithAdapterTimeout(time.Duration(cfg.Collect.AdapterTimeoutS)*time.Second),
	)

	o.Register("perplexity", collector.NewPerplexityCollector(client,
		collector.WithSnapshotPath(cfg.Collect.SnapshotPath),
		collector.WithTargetCount(cfg.Collect.TargetCount),
	))
	if len(cfg.Scrape.Sources) > 0 {
		o.Register("scraping", collector.NewScrapingCollector(cfg.Scrape.Sources, initFetcher(),
			collector.WithScrapeConcurrency(cfg.Scrape.MaxConcurrent),
		))
	}
	return o
}
