package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/jfenske/sonarfix/internal/orchestrator"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.FgHiBlack)
)

// renderReport prints a human-readable run report: one findings table,
// the commit list, and the cost summary.
func renderReport(w io.Writer, report *orchestrator.Report) error {
	mode := ""
	if report.DryRun {
		mode = warnColor.Sprint(" (dry run)")
	}
	fmt.Fprintf(w, "\nRun for %s%s\n", report.ProjectKey, mode)
	fmt.Fprintf(w, "%s fetched, %d skipped by cache, %d attempted\n\n",
		pluralize(report.FindingsFetched, "finding"), report.SkippedCached, report.Attempted)

	if len(report.Results) > 0 {
		if err := renderFindings(w, report); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	for _, c := range report.Commits {
		if c.OK {
			okColor.Fprintf(w, "commit %s", c.CommitID)
			fmt.Fprintf(w, " (batch #%d, %d file(s))\n", c.Batch, c.Files)
		} else {
			failColor.Fprintf(w, "batch #%d failed", c.Batch)
			fmt.Fprintf(w, ": %s\n", c.Error)
		}
	}
	if report.MergeRequestURL != "" {
		fmt.Fprintf(w, "merge request: %s\n", report.MergeRequestURL)
	}
	if len(report.Commits) > 0 || report.MergeRequestURL != "" {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Fixed:        %d\n", report.Fixed)
	fmt.Fprintf(w, "Failed:       %d\n", report.Failed)
	fmt.Fprintf(w, "Debt resolved: %d min\n", report.DebtMinutes)
	fmt.Fprintf(w, "Tokens:       %d\n", report.Usage.TotalTokens)
	fmt.Fprintf(w, "Cost:         $%.4f\n", report.Usage.CostUSD)
	if perMin, ok := report.CostPerDebtMinute(); ok {
		fmt.Fprintf(w, "Cost/debt min: $%.4f\n", perMin)
	} else {
		fmt.Fprintf(w, "Cost/debt min: NA\n")
	}
	return nil
}

func renderFindings(w io.Writer, report *orchestrator.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rule", "File", "Line", "Debt", "Status"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, res := range report.Results {
		status := statusLabel(res, report.DryRun)
		data = append(data, []string{
			res.Finding.Rule,
			res.Finding.FilePath,
			strconv.Itoa(res.Finding.Line),
			fmt.Sprintf("%d min", res.Finding.EffortMinutes),
			status,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func statusLabel(res orchestrator.FindingResult, dryRun bool) string {
	switch {
	case res.Fixed && dryRun:
		return warnColor.Sprint("fixed (not published)")
	case res.Fixed:
		return okColor.Sprint("fixed")
	default:
		return failColor.Sprint("failed") + dimColor.Sprintf(" %s", truncate(res.Error, 40))
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
