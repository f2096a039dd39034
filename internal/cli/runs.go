package cli

import (
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jfenske/sonarfix/internal/analytics"
	"github.com/jfenske/sonarfix/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past run reports",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runlog.DefaultStore()
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		runs, err := store.List()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"Run", "Project", "Fixed", "Failed", "Debt", "Cost", "Mode"})

		var data [][]string
		for _, r := range runs {
			mode := "live"
			if r.DryRun {
				mode = "dry-run"
			}
			data = append(data, []string{
				r.ID,
				r.ProjectKey,
				fmt.Sprintf("%d", r.Fixed),
				fmt.Sprintf("%d", r.Failed),
				fmt.Sprintf("%d min", r.DebtMinutes),
				fmt.Sprintf("$%.4f", r.CostUSD),
				mode,
			})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		return table.Render()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one run report (latest when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runlog.DefaultStore()
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}

		report, err := store.Latest()
		if len(args) == 1 {
			report, err = store.Get(args[0])
		}
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return renderReport(cmd.OutOrStdout(), report)
	},
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate spend and outcome stats across all runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runlog.DefaultStore()
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		runs, err := store.List()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		agg := analytics.Summarize(runs)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(agg)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Runs:           %d (%d live)\n", agg.Runs, agg.LiveRuns)
		fmt.Fprintf(w, "Fixed:          %d (%.1f%%)\n", agg.Fixed, agg.FixRatePct)
		fmt.Fprintf(w, "Failed:         %d\n", agg.Failed)
		fmt.Fprintf(w, "Debt resolved:  %d min\n", agg.DebtMinutes)
		fmt.Fprintf(w, "Total cost:     $%.4f\n", agg.CostUSD)
		fmt.Fprintf(w, "Cost per run:   avg $%.4f, p50 $%.4f, p95 $%.4f\n",
			agg.AvgCostPerRun, agg.P50CostPerRun, agg.P95CostPerRun)
		if agg.HasCostPerDebtMinute {
			fmt.Fprintf(w, "Cost/debt min:  $%.4f\n", agg.CostPerDebtMinute)
		} else {
			fmt.Fprintf(w, "Cost/debt min:  NA\n")
		}
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [run-id]",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := runlog.DefaultStore()
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s.\n", args[0])
		return nil
	},
}

func init() {
	runsShowCmd.Flags().Bool("json", false, "print the report as JSON")
	runsStatsCmd.Flags().Bool("json", false, "print the stats as JSON")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}
