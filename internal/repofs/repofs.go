// Package repofs reads, writes, and backs up files in a local checkout.
package repofs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrFileAccess indicates a file could not be read or written. Per-finding,
// recovered by the orchestrator.
var ErrFileAccess = errors.New("file access error")

// BackupDirName is where pre-fix copies are kept, under the repo root.
const BackupDirName = ".sonarfix-backups"

// Store performs file operations rooted at a repository checkout.
type Store struct {
	root      string
	backupDir string
}

// New creates a Store rooted at root. The root must already exist.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve repo root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("repo root %s is not a directory: %w", root, ErrFileAccess)
	}
	return &Store{root: abs, backupDir: filepath.Join(abs, BackupDirName)}, nil
}

// Root returns the absolute repository root.
func (s *Store) Root() string {
	return s.root
}

// Read returns the content of a repository-relative file.
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", path, err, ErrFileAccess)
	}
	return data, nil
}

// Write replaces the content of a repository-relative file, creating parent
// directories as needed.
func (s *Store) Write(path string, data []byte) error {
	full := filepath.Join(s.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %v: %w", path, err, ErrFileAccess)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %v: %w", path, err, ErrFileAccess)
	}
	return nil
}

// Backup copies the current content of path into the backup directory under
// a timestamped name and returns the backup path.
func (s *Store) Backup(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, path))
	if err != nil {
		return "", fmt.Errorf("read %s for backup: %v: %w", path, err, ErrFileAccess)
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir backups: %v: %w", err, ErrFileAccess)
	}

	now := time.Now()
	name := fmt.Sprintf("%s_%s_%d.backup",
		strings.ReplaceAll(path, string(os.PathSeparator), "_"),
		now.Format("20060102_150405"), now.Nanosecond())
	backupPath := filepath.Join(s.backupDir, name)
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup %s: %v: %w", name, err, ErrFileAccess)
	}
	return backupPath, nil
}

// BackupInfo describes one backup file.
type BackupInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Created time.Time `json:"created"`
}

// ListBackups returns all backups, newest first.
func (s *Store) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups dir: %w", err)
	}

	var backups []BackupInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".backup") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Name:    e.Name(),
			Path:    filepath.Join(s.backupDir, e.Name()),
			Created: info.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].Created.After(backups[j].Created) })
	return backups, nil
}

// CleanupOld removes backups older than the given number of days and returns
// how many were removed.
func (s *Store) CleanupOld(days int) (int, error) {
	backups, err := s.ListBackups()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	removed := 0
	for _, b := range backups {
		if b.Created.Before(cutoff) {
			if err := os.Remove(b.Path); err != nil {
				return removed, fmt.Errorf("remove backup %s: %w", b.Name, err)
			}
			removed++
		}
	}
	return removed, nil
}
