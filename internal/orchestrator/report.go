package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/jfenske/sonarfix/internal/ledger"
	"github.com/jfenske/sonarfix/internal/publisher"
	"github.com/jfenske/sonarfix/internal/sonar"
)

// FindingResult records the outcome of one remediation attempt.
type FindingResult struct {
	Finding    sonar.Finding `json:"finding"`
	Fixed      bool          `json:"fixed"`
	Published  bool          `json:"published"`
	Error      string        `json:"error,omitempty"`
	BackupPath string        `json:"backup_path,omitempty"`
}

// Report is the full account of a single run.
type Report struct {
	StartedAt       time.Time                `json:"started_at"`
	FinishedAt      time.Time                `json:"finished_at"`
	ProjectKey      string                   `json:"project_key"`
	TargetBranch    string                   `json:"target_branch"`
	Commit          string                   `json:"commit,omitempty"`
	WorkBranch      string                   `json:"work_branch,omitempty"`
	DryRun          bool                     `json:"dry_run"`
	FindingsFetched int                      `json:"findings_fetched"`
	SkippedCached   int                      `json:"skipped_cached"`
	Attempted       int                      `json:"attempted"`
	Fixed           int                      `json:"fixed"`
	Failed          int                      `json:"failed"`
	DebtMinutes     int                      `json:"debt_minutes"`
	Results         []FindingResult          `json:"results"`
	Commits         []publisher.CommitResult `json:"commits,omitempty"`
	Usage           ledger.Totals            `json:"usage"`
	MergeRequestURL string                   `json:"merge_request_url,omitempty"`
}

// CostPerDebtMinute returns spend divided by resolved debt minutes. The
// second return is false when no debt was resolved, in which case the ratio
// is undefined rather than zero.
func (r *Report) CostPerDebtMinute() (float64, bool) {
	if r.DebtMinutes == 0 {
		return 0, false
	}
	return r.Usage.CostUSD / float64(r.DebtMinutes), true
}

// SuccessfulCommits counts commits that reached the host.
func (r *Report) SuccessfulCommits() int {
	n := 0
	for _, c := range r.Commits {
		if c.OK {
			n++
		}
	}
	return n
}

// mergeRequestTitle builds the MR title from the run's outcome.
func (r *Report) mergeRequestTitle() string {
	noun := "code smells"
	if r.Fixed == 1 {
		noun = "code smell"
	}
	return fmt.Sprintf("sonarfix: resolve %d %s", r.Fixed, noun)
}

// mergeRequestBody renders the MR description with the cost and debt
// summary and the list of resolved findings.
func (r *Report) mergeRequestBody() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Automated remediation of %d SonarQube finding(s) on `%s`.\n\n", r.Fixed, r.ProjectKey)
	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- Findings fetched: %d\n", r.FindingsFetched)
	fmt.Fprintf(&b, "- Fixed: %d\n", r.Fixed)
	fmt.Fprintf(&b, "- Failed: %d\n", r.Failed)
	fmt.Fprintf(&b, "- Technical debt resolved: %d min\n", r.DebtMinutes)
	fmt.Fprintf(&b, "- Tokens used: %d (cost $%.4f)\n", r.Usage.TotalTokens, r.Usage.CostUSD)
	if perMin, ok := r.CostPerDebtMinute(); ok {
		fmt.Fprintf(&b, "- Cost per debt minute: $%.4f\n", perMin)
	} else {
		fmt.Fprintf(&b, "- Cost per debt minute: NA\n")
	}

	fixed := make([]FindingResult, 0, r.Fixed)
	for _, res := range r.Results {
		if res.Fixed {
			fixed = append(fixed, res)
		}
	}
	if len(fixed) > 0 {
		fmt.Fprintf(&b, "\n## Resolved findings\n\n")
		for _, res := range fixed {
			fmt.Fprintf(&b, "- `%s` %s:%d: %s\n", res.Finding.Rule, res.Finding.FilePath, res.Finding.Line, res.Finding.Message)
		}
	}

	fmt.Fprintf(&b, "\nEach batch was committed separately; review commit-by-commit if preferred.\n")
	return b.String()
}
