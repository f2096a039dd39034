package cli

import (
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jfenske/sonarfix/internal/tracker"
)

var cachePath string
var cacheRoot string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fixed-issue cache",
}

func openCache() (*tracker.Tracker, error) {
	path := cachePath
	if path == "" {
		var err error
		path, err = tracker.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	cache, err := tracker.Open(path, cacheRoot)
	if err != nil {
		return nil, fmt.Errorf("open issue cache: %w", err)
	}
	if err := cache.Migrate(); err != nil {
		cache.Close()
		return nil, fmt.Errorf("migrate issue cache: %w", err)
	}
	return cache, nil
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached fixed issues per rule",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		defer cache.Close()

		branch, _ := cmd.Flags().GetString("branch")
		stats, err := cache.Stats(branch)
		if err != nil {
			return fmt.Errorf("read cache stats: %w", err)
		}
		if stats.Total == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty.")
			return nil
		}

		rules := make([]string, 0, len(stats.ByRule))
		for rule := range stats.ByRule {
			rules = append(rules, rule)
		}
		sort.Strings(rules)

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"Rule", "Fixed"})
		var data [][]string
		for _, rule := range rules {
			data = append(data, []string{rule, fmt.Sprintf("%d", stats.ByRule[rule])})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d issue(s), %d debt minute(s) resolved\n",
			stats.Total, stats.DebtMinutes)
		return nil
	},
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete cache entries older than a number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		defer cache.Close()

		days, _ := cmd.Flags().GetInt("days")
		deleted, err := cache.CleanupOld(days)
		if err != nil {
			return fmt.Errorf("cleanup cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entry(ies) older than %d day(s).\n", deleted, days)
		return nil
	},
}

var cacheResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		defer cache.Close()

		if err := cache.Reset(); err != nil {
			return fmt.Errorf("reset cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cache reset.")
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cachePath, "tracker-path", "", "path to the cache database")
	cacheCmd.PersistentFlags().StringVar(&cacheRoot, "repo-root", ".", "path to the local checkout")
	cacheStatsCmd.Flags().String("branch", "", "restrict stats to one branch")
	cacheCleanupCmd.Flags().Int("days", 30, "delete entries older than this many days")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
	cacheCmd.AddCommand(cacheResetCmd)
}
