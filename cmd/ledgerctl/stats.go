package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func statsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard totals, category breakdown and the monthly series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			stats, err := a.store().DashboardStats(ctx)
			if err != nil {
				return fmt.Errorf("failed to compute stats: %w", err)
			}
			breakdown, err := a.store().CategoryBreakdown(ctx)
			if err != nil {
				return fmt.Errorf("failed to compute category breakdown: %w", err)
			}
			series, err := a.store().MonthlySeries(ctx)
			if err != nil {
				return fmt.Errorf("failed to compute monthly series: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"dashboard":  stats,
					"categories": breakdown,
					"monthly":    series,
				})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Total expenses\t%s\n", stats.TotalExpenses)
			fmt.Fprintf(w, "Total income\t%s\n", stats.TotalIncome)
			fmt.Fprintf(w, "Balance\t%s\n", stats.Balance)

			fmt.Fprintln(w, "\nTop categories")
			for _, c := range stats.TopCategories {
				fmt.Fprintf(w, "  %s\t%s\n", c.Category, c.Amount)
			}

			fmt.Fprintln(w, "\nBy category")
			for _, s := range breakdown {
				fmt.Fprintf(w, "  %s\t%s\t%s\n", s.Name, s.Amount, s.Color)
			}

			fmt.Fprintln(w, "\nMonth\tExpenses\tIncome")
			for _, b := range series {
				fmt.Fprintf(w, "%s %d\t%s\t%s\n", b.Label, b.Year, b.Expenses, b.Income)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
