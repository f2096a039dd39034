package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfenske/sonarfix/internal/executor"
	"github.com/jfenske/sonarfix/internal/host"
	"github.com/jfenske/sonarfix/internal/ledger"
	"github.com/jfenske/sonarfix/internal/repofs"
	"github.com/jfenske/sonarfix/internal/sonar"
)

// --- Fakes ---

type fakeSource struct {
	findings []sonar.Finding
	err      error
}

func (s *fakeSource) Fetch(ctx context.Context, projectKey, pullRequest string, limit int) ([]sonar.Finding, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.findings, nil
}

// fakeFixer succeeds for every finding except keys listed in fail, and
// reports token usage for every attempt that reaches the model.
type fakeFixer struct {
	fail    map[string]error
	noUsage map[string]bool
	applied []string
}

func (x *fakeFixer) Apply(ctx context.Context, f sonar.Finding) executor.FixOutcome {
	x.applied = append(x.applied, f.Key)
	outcome := executor.FixOutcome{Finding: f}
	if !x.noUsage[f.Key] {
		outcome.Usage = &ledger.TokenUsage{FindingKey: f.Key, PromptTokens: 100, CompletionTokens: 50, CostUSD: 0.001}
	}
	if err, ok := x.fail[f.Key]; ok {
		outcome.Err = err
		return outcome
	}
	outcome.Success = true
	outcome.FixedContent = []byte("fixed " + f.Key)
	return outcome
}

type fakeHost struct {
	branches  []string
	commits   [][]host.File
	mrTitle   string
	mrBody    string
	mrURL     string
	branchErr error
	commitErr error
	mrErr     error
}

func (h *fakeHost) CreateBranch(ctx context.Context, name, ref string) error {
	if h.branchErr != nil {
		return h.branchErr
	}
	h.branches = append(h.branches, name)
	return nil
}

func (h *fakeHost) Commit(ctx context.Context, branch string, files []host.File, message string) (string, error) {
	if h.commitErr != nil {
		return "", h.commitErr
	}
	h.commits = append(h.commits, files)
	return fmt.Sprintf("sha-%d", len(h.commits)), nil
}

func (h *fakeHost) CreateMergeRequest(ctx context.Context, source, target, title, body string) (string, error) {
	if h.mrErr != nil {
		return "", h.mrErr
	}
	h.mrTitle = title
	h.mrBody = body
	h.mrURL = "https://git.example.com/mr/1"
	return h.mrURL, nil
}

type fakeTracker struct {
	fixed map[string]bool
}

func (t *fakeTracker) FilterUnfixed(branch string, findings []sonar.Finding) ([]sonar.Finding, error) {
	var out []sonar.Finding
	for _, f := range findings {
		if !t.fixed[f.Key] {
			out = append(out, f)
		}
	}
	return out, nil
}

func (t *fakeTracker) MarkFixed(branch string, f sonar.Finding) error {
	if t.fixed == nil {
		t.fixed = map[string]bool{}
	}
	t.fixed[f.Key] = true
	return nil
}

func findingSet() []sonar.Finding {
	return []sonar.Finding{
		{Key: "A", Rule: "java:S1125", FilePath: "a.java", Message: "boolean literal", EffortMinutes: 2},
		{Key: "B", Rule: "java:S3776", FilePath: "b.java", Message: "too complex", EffortMinutes: 15},
		{Key: "C", Rule: "java:S1481", FilePath: "c.java", Message: "unused local", EffortMinutes: 5},
	}
}

func baseOpts(src *fakeSource, fx *fakeFixer, h *fakeHost) Opts {
	return Opts{
		Source:     src,
		Fixer:      fx,
		Host:       h,
		ProjectKey: "demo",
		WorkBranch: "sonarfix/test",
	}
}

// --- Tests ---

func TestRunFailureIsolation(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	fx := &fakeFixer{
		fail:    map[string]error{"B": fmt.Errorf("open b.java: %w", repofs.ErrFileAccess)},
		noUsage: map[string]bool{"B": true},
	}
	h := &fakeHost{}

	o, err := New(baseOpts(src, fx, h))
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Fixed)
	assert.Equal(t, 1, report.Failed)
	// B's debt never counts: only resolved findings reduce debt.
	assert.Equal(t, 7, report.DebtMinutes)
	// Unreadable file means no model call, so only two ledger entries.
	assert.Equal(t, 2, report.Usage.Entries)
	assert.Len(t, o.UsageEntries(), 2)
}

func TestRunOrdersByEffortDescending(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	fx := &fakeFixer{}
	h := &fakeHost{}

	o, err := New(baseOpts(src, fx, h))
	require.NoError(t, err)
	_, err = o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "C", "A"}, fx.applied)
}

func TestRunBatchesCommits(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	fx := &fakeFixer{}
	h := &fakeHost{}

	opts := baseOpts(src, fx, h)
	opts.BatchSize = 2
	o, err := New(opts)
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Commits, 2)
	assert.Len(t, h.commits[0], 2)
	assert.Len(t, h.commits[1], 1)
	assert.Equal(t, 2, report.SuccessfulCommits())
}

func TestRunLazyBranchCreation(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	fx := &fakeFixer{fail: map[string]error{
		"A": fmt.Errorf("no fix"), "B": fmt.Errorf("no fix"), "C": fmt.Errorf("no fix"),
	}}
	h := &fakeHost{}

	o, err := New(baseOpts(src, fx, h))
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.branches, "branch must not exist when nothing was fixed")
	assert.Empty(t, report.WorkBranch)
	assert.Empty(t, report.Commits)
}

func TestRunBranchCreationFailureIsFatal(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	fx := &fakeFixer{}
	h := &fakeHost{branchErr: fmt.Errorf("409: %w", host.ErrHostAPI)}

	o, err := New(baseOpts(src, fx, h))
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.ErrorIs(t, err, host.ErrHostAPI)

	// The first fix consumed tokens before the branch failed; the partial
	// report must still carry that spend.
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Usage.Entries)
	assert.Positive(t, report.Usage.CostUSD)
	assert.Equal(t, 1, report.Attempted)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Fixed)
	assert.False(t, report.Results[0].Published)
	assert.Empty(t, report.Commits)
	assert.False(t, report.FinishedAt.IsZero())
}

func TestRunCommitFailureContinues(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	fx := &fakeFixer{}
	h := &fakeHost{commitErr: fmt.Errorf("500: %w", host.ErrHostAPI)}

	o, err := New(baseOpts(src, fx, h))
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Commits, 1)
	assert.False(t, report.Commits[0].OK)
	assert.NotEmpty(t, report.Commits[0].Error)
	assert.Equal(t, 0, report.SuccessfulCommits())
	// Fixes still count locally even though publishing failed.
	assert.Equal(t, 3, report.Fixed)
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	fx := &fakeFixer{}
	h := &fakeHost{}

	opts := baseOpts(src, fx, h)
	opts.DryRun = true
	opts.CreateMR = true
	o, err := New(opts)
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.branches)
	assert.Empty(t, h.commits)
	assert.Empty(t, report.MergeRequestURL)
	assert.Equal(t, 3, report.Fixed)
	for _, res := range report.Results {
		assert.False(t, res.Published)
	}
	// Token spend is real even in a dry run.
	assert.Equal(t, 3, report.Usage.Entries)
}

func TestRunEmptyFetchIsValid(t *testing.T) {
	src := &fakeSource{}
	fx := &fakeFixer{}
	h := &fakeHost{}

	o, err := New(baseOpts(src, fx, h))
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.FindingsFetched)
	assert.Zero(t, report.Attempted)
	assert.Empty(t, h.branches)
}

func TestRunStampsCheckoutCommit(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	opts := baseOpts(src, &fakeFixer{}, &fakeHost{})
	opts.Commit = "0123456789abcdef0123456789abcdef01234567"

	o, err := New(opts)
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, opts.Commit, report.Commit)
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("dial tcp: %w", sonar.ErrSourceUnavailable)}
	o, err := New(baseOpts(src, &fakeFixer{}, &fakeHost{}))
	require.NoError(t, err)
	_, err = o.Run(context.Background())
	require.ErrorIs(t, err, sonar.ErrSourceUnavailable)
}

func TestRunTrackerSkipsAndRecords(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	fx := &fakeFixer{}
	h := &fakeHost{}
	tr := &fakeTracker{fixed: map[string]bool{"B": true}}

	opts := baseOpts(src, fx, h)
	opts.Tracker = tr
	o, err := New(opts)
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.SkippedCached)
	assert.Equal(t, 2, report.Attempted)
	assert.True(t, tr.fixed["A"])
	assert.True(t, tr.fixed["C"])
}

func TestRunCreatesMergeRequest(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	fx := &fakeFixer{}
	h := &fakeHost{}

	opts := baseOpts(src, fx, h)
	opts.CreateMR = true
	o, err := New(opts)
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, h.mrURL, report.MergeRequestURL)
	assert.Contains(t, h.mrTitle, "resolve 3 code smells")
	assert.Contains(t, h.mrBody, "Technical debt resolved: 22 min")
	assert.Contains(t, h.mrBody, "java:S3776")
}

func TestRunMergeRequestFailureIsNotFatal(t *testing.T) {
	src := &fakeSource{findings: findingSet()}
	fx := &fakeFixer{}
	h := &fakeHost{mrErr: fmt.Errorf("403: %w", host.ErrHostAPI)}

	opts := baseOpts(src, fx, h)
	opts.CreateMR = true
	o, err := New(opts)
	require.NoError(t, err)
	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.MergeRequestURL)
}

func TestCostPerDebtMinute(t *testing.T) {
	r := &Report{DebtMinutes: 20, Usage: ledger.Totals{CostUSD: 0.05}}
	perMin, ok := r.CostPerDebtMinute()
	require.True(t, ok)
	assert.InDelta(t, 0.0025, perMin, 1e-9)

	empty := &Report{Usage: ledger.Totals{CostUSD: 0.05}}
	_, ok = empty.CostPerDebtMinute()
	assert.False(t, ok)
}

func TestNewValidatesOpts(t *testing.T) {
	_, err := New(Opts{})
	assert.Error(t, err)

	_, err = New(Opts{Source: &fakeSource{}, Fixer: &fakeFixer{}, ProjectKey: "demo"})
	assert.Error(t, err, "host required outside dry run")

	_, err = New(Opts{Source: &fakeSource{}, Fixer: &fakeFixer{}, ProjectKey: "demo", DryRun: true})
	assert.NoError(t, err)
}
