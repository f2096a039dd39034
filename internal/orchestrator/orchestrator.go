// Package orchestrator drives a full remediation run: fetch findings,
// repair them one at a time, publish batched commits, and account for
// every token spent along the way.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jfenske/sonarfix/internal/executor"
	"github.com/jfenske/sonarfix/internal/host"
	"github.com/jfenske/sonarfix/internal/ledger"
	"github.com/jfenske/sonarfix/internal/prioritize"
	"github.com/jfenske/sonarfix/internal/publisher"
	"github.com/jfenske/sonarfix/internal/sonar"
)

// IssueSource fetches open findings for a project.
type IssueSource interface {
	Fetch(ctx context.Context, projectKey, pullRequest string, limit int) ([]sonar.Finding, error)
}

// Fixer attempts to remediate a single finding.
type Fixer interface {
	Apply(ctx context.Context, f sonar.Finding) executor.FixOutcome
}

// IssueTracker remembers which findings were already fixed on a branch so
// reruns skip them. A nil tracker disables the cache.
type IssueTracker interface {
	FilterUnfixed(branch string, findings []sonar.Finding) ([]sonar.Finding, error)
	MarkFixed(branch string, f sonar.Finding) error
}

// Opts configures a run. Source, Fixer, and ProjectKey are required; Host
// is required unless DryRun is set.
type Opts struct {
	Source  IssueSource
	Fixer   Fixer
	Host    host.Host
	Tracker IssueTracker

	ProjectKey  string
	PullRequest string
	// TargetBranch is the branch findings were reported against and the
	// MR target. Defaults to main.
	TargetBranch string
	// WorkBranch receives the fix commits. Generated from the current
	// time when empty.
	WorkBranch string
	// Commit is the local checkout's HEAD, stamped into the report.
	Commit string
	Limit      int
	BatchSize  int
	DryRun     bool
	CreateMR   bool

	// Progress receives human-readable progress lines. Defaults to
	// io.Discard.
	Progress io.Writer
}

// Orchestrator owns one run's state. Create a fresh one per run.
type Orchestrator struct {
	opts   Opts
	ledger *ledger.Ledger
	pub    *publisher.Publisher

	branchReady bool
}

// New validates opts, applies defaults, and returns an Orchestrator.
func New(opts Opts) (*Orchestrator, error) {
	if opts.Source == nil {
		return nil, errors.New("issue source is required")
	}
	if opts.Fixer == nil {
		return nil, errors.New("fixer is required")
	}
	if opts.Host == nil && !opts.DryRun {
		return nil, errors.New("repository host is required")
	}
	if opts.ProjectKey == "" {
		return nil, errors.New("project key is required")
	}
	if opts.TargetBranch == "" {
		opts.TargetBranch = "main"
	}
	if opts.WorkBranch == "" {
		opts.WorkBranch = fmt.Sprintf("sonarfix/%s", time.Now().Format("20060102-150405"))
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}

	return &Orchestrator{
		opts:   opts,
		ledger: ledger.New(),
		pub:    publisher.New(opts.Host, opts.WorkBranch, opts.BatchSize),
	}, nil
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	fmt.Fprintf(o.opts.Progress, format+"\n", args...)
}

// Run executes the pipeline end to end. It returns an error only for
// conditions that make the whole run meaningless: an unreachable issue
// source or a work branch that cannot be created. Per-finding and per-batch
// failures are recorded in the Report and never abort the run.
//
// A work-branch failure can only surface after at least one fix consumed
// model tokens, so Run returns the partial report alongside the error; the
// spend is reported even when the run aborts.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		StartedAt:    time.Now().UTC(),
		ProjectKey:   o.opts.ProjectKey,
		TargetBranch: o.opts.TargetBranch,
		Commit:       o.opts.Commit,
		DryRun:       o.opts.DryRun,
	}

	o.logf("fetching findings for %s", o.opts.ProjectKey)
	findings, err := o.opts.Source.Fetch(ctx, o.opts.ProjectKey, o.opts.PullRequest, o.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch findings: %w", err)
	}
	report.FindingsFetched = len(findings)

	if o.opts.Tracker != nil {
		unfixed, err := o.opts.Tracker.FilterUnfixed(o.opts.TargetBranch, findings)
		if err != nil {
			o.logf("warning: issue cache unavailable: %v", err)
		} else {
			report.SkippedCached = len(findings) - len(unfixed)
			findings = unfixed
		}
	}

	ordered, err := prioritize.Order(findings, o.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("order findings: %w", err)
	}

	if len(ordered) == 0 {
		o.logf("no findings to fix")
		return o.finish(ctx, report)
	}
	o.logf("fixing %d finding(s), highest debt first", len(ordered))

	for i, f := range ordered {
		report.Attempted++
		o.logf("[%d/%d] %s %s (%d min)", i+1, len(ordered), f.Rule, f.FilePath, f.EffortMinutes)

		outcome := o.opts.Fixer.Apply(ctx, f)
		if outcome.Usage != nil {
			o.ledger.Record(*outcome.Usage)
		}

		res := FindingResult{Finding: f, BackupPath: outcome.BackupPath}
		if !outcome.Success {
			report.Failed++
			res.Error = outcome.Err.Error()
			report.Results = append(report.Results, res)
			o.logf("  failed: %v", outcome.Err)
			continue
		}

		report.Fixed++
		report.DebtMinutes += f.EffortMinutes
		res.Fixed = true

		if !o.opts.DryRun {
			if err := o.publishFix(ctx, f, outcome, report); err != nil {
				report.Results = append(report.Results, res)
				return o.seal(report), err
			}
			res.Published = true
		}
		report.Results = append(report.Results, res)
	}

	return o.finish(ctx, report)
}

// publishFix queues one fixed file for commit, creating the work branch on
// first use. Branch creation failure is fatal; nothing can be published
// without it.
func (o *Orchestrator) publishFix(ctx context.Context, f sonar.Finding, outcome executor.FixOutcome, report *Report) error {
	if !o.branchReady {
		o.logf("creating branch %s from %s", o.opts.WorkBranch, o.opts.TargetBranch)
		if err := o.opts.Host.CreateBranch(ctx, o.opts.WorkBranch, o.opts.TargetBranch); err != nil {
			return fmt.Errorf("create branch %s: %w", o.opts.WorkBranch, err)
		}
		o.branchReady = true
		report.WorkBranch = o.opts.WorkBranch
	}

	if result := o.pub.Enqueue(ctx, host.File{
		Path:    f.FilePath,
		Content: outcome.FixedContent,
		Action:  host.ActionUpdate,
	}); result != nil {
		o.recordCommit(report, result)
	}

	if o.opts.Tracker != nil {
		if err := o.opts.Tracker.MarkFixed(o.opts.TargetBranch, f); err != nil {
			o.logf("warning: record fixed issue %s: %v", f.Key, err)
		}
	}
	return nil
}

func (o *Orchestrator) recordCommit(report *Report, result *publisher.CommitResult) {
	report.Commits = append(report.Commits, *result)
	if result.OK {
		o.logf("  committed batch #%d (%d file(s))", result.Batch, result.Files)
	} else {
		o.logf("  batch #%d failed: %s", result.Batch, result.Error)
	}
}

// seal closes the accounting on a report without publishing anything
// further. Used when the run aborts mid-way: the ledger totals still land
// in the report.
func (o *Orchestrator) seal(report *Report) *Report {
	report.Usage = o.ledger.Totals()
	report.FinishedAt = time.Now().UTC()
	return report
}

// finish flushes the publisher, opens the merge request when asked to, and
// seals the report.
func (o *Orchestrator) finish(ctx context.Context, report *Report) (*Report, error) {
	if !o.opts.DryRun {
		if result := o.pub.Flush(ctx); result != nil {
			o.recordCommit(report, result)
		}
	}

	report.Usage = o.ledger.Totals()

	if o.opts.CreateMR && !o.opts.DryRun && report.SuccessfulCommits() > 0 {
		url, err := o.opts.Host.CreateMergeRequest(ctx, o.opts.WorkBranch, o.opts.TargetBranch,
			report.mergeRequestTitle(), report.mergeRequestBody())
		if err != nil {
			o.logf("warning: create merge request: %v", err)
		} else {
			report.MergeRequestURL = url
			o.logf("merge request: %s", url)
		}
	}

	report.FinishedAt = time.Now().UTC()
	o.logf("done: %d fixed, %d failed, %d debt minute(s) resolved, $%.4f spent",
		report.Fixed, report.Failed, report.DebtMinutes, report.Usage.CostUSD)
	return report, nil
}

// UsageEntries exposes the per-invocation ledger records for reporting.
func (o *Orchestrator) UsageEntries() []ledger.TokenUsage {
	return o.ledger.Entries()
}
