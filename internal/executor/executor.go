// Package executor applies one repair per finding: read, invoke the model,
// back up, write.
package executor

import (
	"context"
	"fmt"

	"github.com/jfenske/sonarfix/internal/ai"
	"github.com/jfenske/sonarfix/internal/ledger"
	"github.com/jfenske/sonarfix/internal/sonar"
)

// FileStore is the subset of repofs.Store the executor needs.
type FileStore interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Backup(path string) (string, error)
}

// PromptBuilder renders the repair prompt for a finding.
type PromptBuilder interface {
	Build(f sonar.Finding, code string) (string, error)
}

// FixOutcome is the result of attempting to remediate one finding.
// Usage is non-nil exactly when a model call reported token usage; cost is
// incurred by the model call, not by write success.
type FixOutcome struct {
	Finding      sonar.Finding
	Success      bool
	Usage        *ledger.TokenUsage
	Err          error
	FixedContent []byte
	BackupPath   string
}

// Executor performs single-attempt repairs. It never retries: retry policy
// belongs to the caller, which keeps each Apply side-effect-bounded.
type Executor struct {
	files   FileStore
	model   ai.Client
	prompts PromptBuilder
	dryRun  bool
}

// New creates an Executor. With dryRun set, no backup or write ever happens.
func New(files FileStore, model ai.Client, prompts PromptBuilder, dryRun bool) *Executor {
	return &Executor{files: files, model: model, prompts: prompts, dryRun: dryRun}
}

// Apply remediates one finding. Every call yields exactly one FixOutcome.
func (e *Executor) Apply(ctx context.Context, f sonar.Finding) FixOutcome {
	outcome := FixOutcome{Finding: f}

	// Read before any model call, so a missing file costs nothing.
	content, err := e.files.Read(f.FilePath)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	prompt, err := e.prompts.Build(f, string(content))
	if err != nil {
		outcome.Err = fmt.Errorf("build prompt: %w", err)
		return outcome
	}

	comp, err := e.model.Complete(ctx, prompt)
	if err != nil {
		// Charge only tokens the provider reported before failing.
		if comp != nil && comp.PromptTokens+comp.CompletionTokens > 0 {
			outcome.Usage = &ledger.TokenUsage{
				FindingKey:       f.Key,
				PromptTokens:     comp.PromptTokens,
				CompletionTokens: comp.CompletionTokens,
			}
		}
		outcome.Err = err
		return outcome
	}

	usage := &ledger.TokenUsage{
		FindingKey:       f.Key,
		PromptTokens:     comp.PromptTokens,
		CompletionTokens: comp.CompletionTokens,
	}
	outcome.Usage = usage

	cost, err := ai.Cost(e.model.Model(), comp.PromptTokens, comp.CompletionTokens)
	if err != nil {
		// Tokens were consumed; the entry stays with zero cost rather
		// than a guessed rate.
		outcome.Err = err
		return outcome
	}
	usage.CostUSD = cost

	fixed, ok := ai.ExtractCode(comp.Text)
	if !ok {
		outcome.Err = fmt.Errorf("no usable code in model response: %w", ai.ErrModelInvocation)
		return outcome
	}
	outcome.FixedContent = []byte(fixed)

	if e.dryRun {
		outcome.Success = true
		return outcome
	}

	backupPath, err := e.files.Backup(f.FilePath)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.BackupPath = backupPath

	if err := e.files.Write(f.FilePath, outcome.FixedContent); err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Success = true
	return outcome
}
