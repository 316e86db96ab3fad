package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/startup-finder/internal/config"
	"github.com/sells-group/startup-finder/internal/enrich"
	"github.com/sells-group/startup-finder/internal/merge"
	"github.com/sells-group/startup-finder/internal/model"
)

var (
	collectMonths   int
	collectIndustry []string
	collectLocation []string
	collectRound    []string
	collectLimit    int
	collectSource   string
	collectReplace  bool
	collectEnrich   bool
	collectDryRun   bool
	collectPrefer   string
	collectSources  string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect recently funded startups from all sources",
	Long:  "Runs every registered collector, merges duplicate records, and saves the canonical result to the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, err := initPerplexity()
		if err != nil {
			return err
		}

		if collectSources != "" {
			sources, err := config.LoadSources(collectSources)
			if err != nil {
				return err
			}
			cfg.Scrape.Sources = sources
		}

		filter := model.Filter{
			MonthsBack:    collectMonths,
			Industries:    collectIndustry,
			Locations:     collectLocation,
			FundingRounds: collectRound,
			Limit:         collectLimit,
		}

		o := buildOrchestrator(client)

		var raw []model.Startup
		if collectSource != "" {
			raw, err = o.CollectOne(ctx, collectSource, filter)
			if err != nil {
				return err
			}
		} else {
			raw = o.CollectAll(ctx, filter)
		}

		opts, err := mergeOptions(collectPrefer)
		if err != nil {
			return err
		}
		merged := merge.Merge(raw, opts)

		if collectEnrich {
			enricher := enrich.NewPerplexityEnricher(client)
			merged = enrich.EnrichAll(ctx, enricher, merged, cfg.Enrich.MaxConcurrent)
		}

		if collectDryRun {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(merged)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var saved int
		if collectReplace {
			saved, err = st.ReplaceAll(ctx, merged)
		} else {
			saved, err = st.SaveAll(ctx, merged)
		}
		if err != nil {
			return eris.Wrap(err, "collect: save")
		}

		zap.L().Info("collect complete",
			zap.Int("collected", len(raw)),
			zap.Int("merged", len(merged)),
			zap.Int("saved", saved),
		)
		fmt.Printf("Collected %d records, %d after merge, %d saved.\n", len(raw), len(merged), saved)
		return nil
	},
}

func mergeOptions(prefer string) (merge.Options, error) {
	switch prefer {
	case "", "incoming":
		return merge.Options{Conflict: merge.PreferIncoming}, nil
	case "existing":
		return merge.Options{Conflict: merge.PreferExisting}, nil
	default:
		return merge.Options{}, eris.Errorf("unknown conflict preference: %s (want incoming or existing)", prefer)
	}
}

func init() {
	collectCmd.Flags().IntVar(&collectMonths, "months", 3, "how many months back to search")
	collectCmd.Flags().StringSliceVar(&collectIndustry, "industry", nil, "restrict to industries")
	collectCmd.Flags().StringSliceVar(&collectLocation, "location", nil, "restrict to locations")
	collectCmd.Flags().StringSliceVar(&collectRound, "round", nil, "restrict to funding rounds")
	collectCmd.Flags().IntVar(&collectLimit, "limit", 0, "target number of records per collector")
	collectCmd.Flags().StringVar(&collectSource, "source", "", "run a single collector (perplexity, scraping)")
	collectCmd.Flags().BoolVar(&collectReplace, "replace", false, "replace the stored dataset instead of upserting")
	collectCmd.Flags().BoolVar(&collectEnrich, "enrich", false, "run the detail lookup on merged records")
	collectCmd.Flags().BoolVar(&collectDryRun, "dry-run", false, "print merged records as JSON without saving")
	collectCmd.Flags().StringVar(&collectPrefer, "prefer", "incoming", "conflict winner when both sources set a field (incoming, existing)")
	collectCmd.Flags().StringVar(&collectSources, "sources", "", "YAML file listing scrape sources (overrides config)")
	rootCmd.AddCommand(collectCmd)
}
