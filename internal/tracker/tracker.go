// Package tracker persists which findings were already fixed so repeated
// runs against the same branch do not burn tokens on them again. A cache
// entry is only trusted while the file it covers is unchanged.
package tracker

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/jfenske/sonarfix/internal/sonar"
)

// Tracker wraps the SQLite cache of fixed issues.
type Tracker struct {
	conn *sql.DB
	path string
	// root is the checkout the cached file hashes refer to.
	root string
}

// DefaultPath returns ~/.sonarfix/tracker.db, creating the directory if needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".sonarfix")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "tracker.db"), nil
}

// Open opens or creates the cache at path. root is the repository checkout
// file hashes are computed against.
func Open(path, root string) (*Tracker, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	return &Tracker{conn: conn, path: path, root: root}, nil
}

// Close closes the database connection.
func (t *Tracker) Close() error {
	return t.conn.Close()
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS fixed_issues (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    issue_key      TEXT NOT NULL,
    branch         TEXT NOT NULL,
    rule           TEXT NOT NULL,
    file_path      TEXT NOT NULL,
    file_hash      TEXT NOT NULL,
    effort_minutes INTEGER NOT NULL DEFAULT 0,
    fixed_at       TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE(issue_key, branch)
);
CREATE INDEX IF NOT EXISTS idx_fixed_branch ON fixed_issues(branch);
`

// Migrate applies the cache schema.
func (t *Tracker) Migrate() error {
	var count int
	err := t.conn.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := t.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaV1); err != nil {
		return fmt.Errorf("apply schema v1: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// fileHash returns the hex sha256 of the file at the repo-relative path, or
// "" when the file cannot be read.
func (t *Tracker) fileHash(relPath string) string {
	data, err := os.ReadFile(filepath.Join(t.root, relPath))
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MarkFixed records a finding as fixed on branch, hashing the file in its
// post-fix state. Re-marking an existing entry refreshes the hash.
func (t *Tracker) MarkFixed(branch string, f sonar.Finding) error {
	_, err := t.conn.Exec(`
		INSERT INTO fixed_issues (issue_key, branch, rule, file_path, file_hash, effort_minutes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(issue_key, branch) DO UPDATE SET
			file_hash = excluded.file_hash,
			fixed_at  = datetime('now')`,
		f.Key, branch, f.Rule, f.FilePath, t.fileHash(f.FilePath), f.EffortMinutes)
	if err != nil {
		return fmt.Errorf("record fixed issue %s: %w", f.Key, err)
	}
	return nil
}

// FilterUnfixed returns the findings not yet fixed on branch. A cached entry
// whose file has changed since the fix is stale: the entry is dropped and
// the finding passes through as fixable again.
func (t *Tracker) FilterUnfixed(branch string, findings []sonar.Finding) ([]sonar.Finding, error) {
	out := make([]sonar.Finding, 0, len(findings))
	for _, f := range findings {
		var storedHash string
		err := t.conn.QueryRow(
			"SELECT file_hash FROM fixed_issues WHERE issue_key = ? AND branch = ?",
			f.Key, branch).Scan(&storedHash)
		switch {
		case err == sql.ErrNoRows:
			out = append(out, f)
		case err != nil:
			return nil, fmt.Errorf("look up issue %s: %w", f.Key, err)
		case storedHash != t.fileHash(f.FilePath):
			if _, err := t.conn.Exec(
				"DELETE FROM fixed_issues WHERE issue_key = ? AND branch = ?",
				f.Key, branch); err != nil {
				return nil, fmt.Errorf("drop stale entry %s: %w", f.Key, err)
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// Stats summarises the cache for one branch, or all branches when branch
// is empty.
type Stats struct {
	Total       int            `json:"total"`
	DebtMinutes int            `json:"debt_minutes"`
	ByRule      map[string]int `json:"by_rule"`
}

// Stats reports how many issues the cache holds and the debt they carried.
func (t *Tracker) Stats(branch string) (*Stats, error) {
	query := "SELECT rule, effort_minutes FROM fixed_issues"
	args := []interface{}{}
	if branch != "" {
		query += " WHERE branch = ?"
		args = append(args, branch)
	}

	rows, err := t.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fixed issues: %w", err)
	}
	defer rows.Close()

	stats := &Stats{ByRule: map[string]int{}}
	for rows.Next() {
		var rule string
		var effort int
		if err := rows.Scan(&rule, &effort); err != nil {
			return nil, fmt.Errorf("scan fixed issue: %w", err)
		}
		stats.Total++
		stats.DebtMinutes += effort
		stats.ByRule[rule]++
	}
	return stats, rows.Err()
}

// CleanupOld removes entries older than the given number of days and
// returns how many were deleted.
func (t *Tracker) CleanupOld(days int) (int64, error) {
	res, err := t.conn.Exec(
		"DELETE FROM fixed_issues WHERE fixed_at < datetime('now', ?)",
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, fmt.Errorf("delete old entries: %w", err)
	}
	return res.RowsAffected()
}

// Reset drops all cache tables and re-applies the schema.
func (t *Tracker) Reset() error {
	for _, table := range []string{"fixed_issues", "schema_version"} {
		if _, err := t.conn.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return t.Migrate()
}
