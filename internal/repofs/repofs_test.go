package repofs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "does-not-exist"))
	require.ErrorIs(t, err, ErrFileAccess)
}

func TestReadWriteRoundTrip(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Write("src/App.java", []byte("class App {}")))
	data, err := s.Read("src/App.java")
	require.NoError(t, err)
	assert.Equal(t, "class App {}", string(data))
}

func TestReadMissingFileIsFileAccessError(t *testing.T) {
	s := newStore(t)
	_, err := s.Read("nope.java")
	require.ErrorIs(t, err, ErrFileAccess)
}

func TestBackupCreatesTimestampedCopy(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Write("a.txt", []byte("original")))

	backupPath, err := s.Backup("a.txt")
	require.NoError(t, err)
	assert.Contains(t, backupPath, BackupDirName)

	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	backups, err := s.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, filepath.Base(backupPath), backups[0].Name)
}

func TestBackupOfMissingFileFails(t *testing.T) {
	s := newStore(t)
	_, err := s.Backup("missing.txt")
	require.ErrorIs(t, err, ErrFileAccess)
}

func TestCleanupOldRemovesStaleBackups(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Write("a.txt", []byte("v1")))

	old, err := s.Backup("a.txt")
	require.NoError(t, err)
	stale := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, stale, stale))

	fresh, err := s.Backup("a.txt")
	require.NoError(t, err)

	removed, err := s.CleanupOld(7)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	backups, err := s.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, filepath.Base(fresh), backups[0].Name)
}

func TestListBackupsEmptyWhenNoneTaken(t *testing.T) {
	s := newStore(t)
	backups, err := s.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}
