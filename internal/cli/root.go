package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "sonarfix",
	Short: "sonarfix - automated remediation of SonarQube code smells",
	Long: `sonarfix fetches open code smells from SonarQube, repairs them with an
AI model, and publishes the fixes as batched commits plus a merge request
on GitLab or GitHub.

Every model invocation is accounted for: reports show tokens spent, dollar
cost, and cost per minute of technical debt resolved. State is stored in
~/.sonarfix/ (SQLite for the fixed-issue cache, JSON for run reports).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(cacheCmd)
}
