package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/startup-finder/internal/model"
)

var startupsCmd = &cobra.Command{
	Use:   "startups",
	Short: "Inspect stored startup records",
}

// -- startups list --

var (
	listMonths   int
	listIndustry []string
	listLocation []string
	listRound    []string
	listSource   []string
	listLimit    int
	listJSON     bool
)

var startupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored startups",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		startups, err := st.List(ctx, model.Filter{
			MonthsBack:    listMonths,
			Industries:    listIndustry,
			Locations:     listLocation,
			FundingRounds: listRound,
			Sources:       listSource,
			Limit:         listLimit,
		})
		if err != nil {
			return eris.Wrap(err, "startups list")
		}

		if len(startups) == 0 {
			fmt.Fprintln(os.Stderr, "No startups found.")
			return nil
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(startups)
		}
		formatStartupList(os.Stdout, startups)
		return nil
	},
}

// -- startups show --

var startupsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show full details of one startup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		startup, err := st.FindByName(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "startups show")
		}
		if startup == nil {
			return eris.Errorf("no startup named %q", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(startup)
	},
}

func formatStartupList(w io.Writer, startups []model.Startup) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tROUND\tAMOUNT\tINDUSTRY\tLOCATION\tDATE\tSOURCE")
	for _, s := range startups {
		date := ""
		if s.FundingDate != nil {
			date = s.FundingDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Name, s.FundingRound, s.FundingAmount, s.Industry, s.Location, date, s.Source)
	}
	tw.Flush()
}

func init() {
	startupsListCmd.Flags().IntVar(&listMonths, "months", 0, "only records funded within the last N months")
	startupsListCmd.Flags().StringSliceVar(&listIndustry, "industry", nil, "filter by industry")
	startupsListCmd.Flags().StringSliceVar(&listLocation, "location", nil, "filter by location")
	startupsListCmd.Flags().StringSliceVar(&listRound, "round", nil, "filter by funding round")
	startupsListCmd.Flags().StringSliceVar(&listSource, "from-source", nil, "filter by source label")
	startupsListCmd.Flags().IntVar(&listLimit, "limit", 50, "max records")
	startupsListCmd.Flags().BoolVar(&listJSON, "json", false, "output JSON instead of a table")

	startupsCmd.AddCommand(startupsListCmd)
	startupsCmd.AddCommand(startupsShowCmd)
	rootCmd.AddCommand(startupsCmd)
}
