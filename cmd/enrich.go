package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/startup-finder/internal/enrich"
	"github.com/sells-group/startup-finder/internal/model"
)

var (
	enrichLimit int
	enrichName  string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill gaps in stored records with a detail lookup",
	Long:  "Looks up LinkedIn pages, key people, and company details for stored startups. Existing field values are never overwritten.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, err := initPerplexity()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var targets []model.Startup
		if enrichName != "" {
			s, err := st.FindByName(ctx, enrichName)
			if err != nil {
				return eris.Wrap(err, "enrich: find")
			}
			if s == nil {
				return eris.Errorf("no startup named %q", enrichName)
			}
			targets = []model.Startup{*s}
		} else {
			targets, err = st.List(ctx, model.Filter{Limit: enrichLimit})
			if err != nil {
				return eris.Wrap(err, "enrich: list")
			}
		}
		if len(targets) == 0 {
			fmt.Println("Nothing to enrich.")
			return nil
		}

		enricher := enrich.NewPerplexityEnricher(client)
		enriched := enrich.EnrichAll(ctx, enricher, targets, cfg.Enrich.MaxConcurrent)

		saved, err := st.SaveAll(ctx, enriched)
		if err != nil {
			return eris.Wrap(err, "enrich: save")
		}

		zap.L().Info("enrich complete", zap.Int("saved", saved))
		fmt.Printf("Enriched %d records.\n", saved)
		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 100, "max records to enrich")
	enrichCmd.Flags().StringVar(&enrichName, "name", "", "enrich a single startup by name")
	rootCmd.AddCommand(enrichCmd)
}
