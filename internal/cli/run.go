package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfenske/sonarfix/internal/ai"
	"github.com/jfenske/sonarfix/internal/config"
	"github.com/jfenske/sonarfix/internal/executor"
	"github.com/jfenske/sonarfix/internal/gitinfo"
	"github.com/jfenske/sonarfix/internal/host"
	"github.com/jfenske/sonarfix/internal/orchestrator"
	"github.com/jfenske/sonarfix/internal/prompt"
	"github.com/jfenske/sonarfix/internal/repofs"
	"github.com/jfenske/sonarfix/internal/runlog"
	"github.com/jfenske/sonarfix/internal/sonar"
	"github.com/jfenske/sonarfix/internal/tracker"
)

var runFlags config.Flags
var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch findings, fix them, and publish the result",
	Long: `Run the full remediation pipeline: fetch open code smells from
SonarQube ordered by technical debt, repair each with the configured AI
model, commit the fixes in batches to a working branch, and optionally
open a merge request.

Settings resolve in three layers: flags override the --env-file, which
overrides environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(runFlags)
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
		}

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		files, err := repofs.New(cfg.RepoRoot)
		if err != nil {
			return fmt.Errorf("open repository root: %w", err)
		}

		// Default the target branch to the local checkout's branch when
		// the flag and config are silent, and stamp the report with the
		// checkout's HEAD. The orchestrator falls back to main if the
		// checkout is not a git repository.
		var headCommit string
		if gitinfo.IsRepo(cfg.RepoRoot) {
			if cfg.TargetBranch == "" {
				if branch, err := gitinfo.CurrentBranch(cfg.RepoRoot); err == nil {
					cfg.TargetBranch = branch
				}
			}
			if hash, err := gitinfo.CommitHash(cfg.RepoRoot); err == nil {
				headCommit = hash
			}
		}

		source := sonar.NewClient(cfg.SonarURL, cfg.SonarToken)
		if err := source.Ping(ctx); err != nil {
			return fmt.Errorf("sonarqube unreachable: %w", err)
		}

		var model ai.Client
		switch cfg.Provider {
		case "mock":
			model = ai.NewMockClient()
		default:
			model = ai.NewMistralClient(cfg.AIAPIKey, cfg.Model, cfg.AIBaseURL)
		}

		prompts := prompt.NewCatalog()
		if cfg.PromptOverrides != "" {
			if err := prompts.LoadOverrides(cfg.PromptOverrides); err != nil {
				return fmt.Errorf("load prompt overrides: %w", err)
			}
		}

		var repoHost host.Host
		if !cfg.DryRun {
			repoHost, err = buildHost(cmd, cfg)
			if err != nil {
				return err
			}
		}

		opts := orchestrator.Opts{
			Source:       source,
			Fixer:        executor.New(files, model, prompts, cfg.DryRun),
			Host:         repoHost,
			ProjectKey:   cfg.SonarProject,
			PullRequest:  cfg.PullRequest,
			TargetBranch: cfg.TargetBranch,
			WorkBranch:   cfg.WorkBranch,
			Commit:       headCommit,
			Limit:        cfg.Limit,
			BatchSize:    cfg.BatchSize,
			DryRun:       cfg.DryRun,
			CreateMR:     cfg.CreateMR,
			Progress:     cmd.ErrOrStderr(),
		}

		if !cfg.NoCache {
			path := cfg.TrackerPath
			if path == "" {
				path, err = tracker.DefaultPath()
				if err != nil {
					return err
				}
			}
			cache, err := tracker.Open(path, cfg.RepoRoot)
			if err != nil {
				return fmt.Errorf("open issue cache: %w", err)
			}
			defer cache.Close()
			if err := cache.Migrate(); err != nil {
				return fmt.Errorf("migrate issue cache: %w", err)
			}
			opts.Tracker = cache
		}

		o, err := orchestrator.New(opts)
		if err != nil {
			return err
		}
		// An aborted run can still return a partial report carrying the
		// tokens already spent; save and render it before failing.
		report, runErr := o.Run(ctx)
		if report == nil {
			return runErr
		}

		if store, err := runlog.DefaultStore(); err == nil {
			if _, err := store.Save(report); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: save run report: %v\n", err)
			}
		}

		if runJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else if err := renderReport(out, report); err != nil {
			return err
		}
		return runErr
	},
}

// buildHost constructs the repository host client for publishing.
func buildHost(cmd *cobra.Command, cfg *config.Config) (host.Host, error) {
	switch cfg.HostKind {
	case "github":
		owner, repo, ok := strings.Cut(cfg.HostProject, "/")
		if !ok {
			return nil, fmt.Errorf("github project must be owner/repo, got %q", cfg.HostProject)
		}
		return host.NewGitHubClient(cmd.Context(), cfg.HostURL, cfg.HostToken, owner, repo)
	default:
		return host.NewGitLabClient(cfg.HostURL, cfg.HostToken, cfg.HostProject), nil
	}
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.EnvFile, "env-file", "", "dotenv file with settings (flags override it)")

	f.StringVar(&runFlags.SonarURL, "sonar-url", "", "SonarQube base URL")
	f.StringVar(&runFlags.SonarToken, "sonar-token", "", "SonarQube API token")
	f.StringVar(&runFlags.SonarProject, "project", "", "SonarQube project key")
	f.StringVar(&runFlags.PullRequest, "pull-request", "", "restrict findings to a pull request key")

	f.StringVar(&runFlags.Provider, "provider", "", "AI provider: mistral or mock")
	f.StringVar(&runFlags.Model, "model", "", "model name used for pricing and requests")
	f.StringVar(&runFlags.AIAPIKey, "ai-api-key", "", "AI provider API key")
	f.StringVar(&runFlags.AIBaseURL, "ai-base-url", "", "override the AI provider base URL")

	f.StringVar(&runFlags.HostKind, "host", "", "repository host: gitlab or github")
	f.StringVar(&runFlags.HostURL, "host-url", "", "host base URL (required for gitlab)")
	f.StringVar(&runFlags.HostToken, "host-token", "", "host API token")
	f.StringVar(&runFlags.HostProject, "host-project", "", "gitlab project path or github owner/repo")

	f.StringVar(&runFlags.TargetBranch, "branch", "", "branch findings are reported against (default: current branch)")
	f.StringVar(&runFlags.WorkBranch, "work-branch", "", "branch to commit fixes to (default: sonarfix/<timestamp>)")
	f.IntVar(&runFlags.BatchSize, "batch-size", 0, "fixes per commit (default 10)")
	f.IntVar(&runFlags.Limit, "limit", 0, "maximum findings to fix per run (default 10)")
	f.BoolVar(&runFlags.DryRun, "dry-run", false, "fix in memory only; no writes, commits, or MRs")
	f.BoolVar(&runFlags.CreateMR, "create-mr", false, "open a merge request after publishing")

	f.StringVar(&runFlags.RepoRoot, "repo-root", "", "path to the local checkout (default .)")
	f.StringVar(&runFlags.PromptOverrides, "prompts", "", "YAML file overriding per-rule prompt templates")
	f.StringVar(&runFlags.TrackerPath, "tracker-path", "", "path to the fixed-issue cache database")
	f.BoolVar(&runFlags.NoCache, "no-cache", false, "disable the fixed-issue cache")

	f.BoolVar(&runJSON, "json", false, "print the run report as JSON")
}
