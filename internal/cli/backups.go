package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jfenske/sonarfix/internal/repofs"
)

var backupsRoot string

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Manage pre-fix file backups",
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := repofs.New(backupsRoot)
		if err != nil {
			return fmt.Errorf("open repository root: %w", err)
		}
		backups, err := store.ListBackups()
		if err != nil {
			return fmt.Errorf("list backups: %w", err)
		}
		if len(backups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No backups found.")
			return nil
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"Backup", "Created"})

		var data [][]string
		for _, b := range backups {
			data = append(data, []string{
				b.Name,
				b.Created.Format("2006-01-02 15:04:05"),
			})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		return table.Render()
	},
}

var backupsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete backups older than a number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		store, err := repofs.New(backupsRoot)
		if err != nil {
			return fmt.Errorf("open repository root: %w", err)
		}
		deleted, err := store.CleanupOld(days)
		if err != nil {
			return fmt.Errorf("cleanup backups: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d backup(s) older than %d day(s).\n", deleted, days)
		return nil
	},
}

func init() {
	backupsCmd.PersistentFlags().StringVar(&backupsRoot, "repo-root", ".", "path to the local checkout")
	backupsCleanupCmd.Flags().Int("days", 7, "delete backups older than this many days")
	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsCleanupCmd)
}
