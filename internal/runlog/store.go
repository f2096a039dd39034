// Package runlog persists run reports on disk so past runs can be listed
// and inspected after the fact.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jfenske/sonarfix/internal/orchestrator"
)

// Store manages run reports on disk, one directory per run.
type Store struct {
	baseDir string // defaults to ~/.sonarfix/runs
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.sonarfix/runs, creating the directory
// if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".sonarfix", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) reportPath(id string) string {
	return filepath.Join(s.baseDir, id, "report.json")
}

// Save writes a run report and returns its id, derived from the run's
// start time.
func (s *Store) Save(report *orchestrator.Report) (string, error) {
	id := report.StartedAt.Format("20060102-150405")
	if err := writeJSON(s.reportPath(id), report); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return id, nil
}

// Get reads the report for a run id.
func (s *Store) Get(id string) (*orchestrator.Report, error) {
	var report orchestrator.Report
	if err := readJSON(s.reportPath(id), &report); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, err
	}
	return &report, nil
}

// Summary is one line of run history.
type Summary struct {
	ID          string  `json:"id"`
	ProjectKey  string  `json:"project_key"`
	DryRun      bool    `json:"dry_run"`
	Fixed       int     `json:"fixed"`
	Failed      int     `json:"failed"`
	DebtMinutes int     `json:"debt_minutes"`
	CostUSD     float64 `json:"cost_usd"`
}

// List returns summaries of all stored runs, newest first.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var runs []Summary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		report, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		runs = append(runs, Summary{
			ID:          entry.Name(),
			ProjectKey:  report.ProjectKey,
			DryRun:      report.DryRun,
			Fixed:       report.Fixed,
			Failed:      report.Failed,
			DebtMinutes: report.DebtMinutes,
			CostUSD:     report.Usage.CostUSD,
		})
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].ID > runs[j].ID
	})
	return runs, nil
}

// Latest returns the most recent run report.
func (s *Store) Latest() (*orchestrator.Report, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs recorded")
	}
	return s.Get(runs[0].ID)
}

// Delete removes all data for a run.
func (s *Store) Delete(id string) error {
	dir := filepath.Join(s.baseDir, id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("run %s not found", id)
	}
	return os.RemoveAll(dir)
}
