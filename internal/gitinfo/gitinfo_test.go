package gitinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com"},
	})
	require.NoError(t, err)
	return dir
}

func TestIsRepo(t *testing.T) {
	dir := initRepo(t)
	assert.True(t, IsRepo(dir))
	assert.False(t, IsRepo(t.TempDir()))
}

func TestCurrentBranch(t *testing.T) {
	dir := initRepo(t)
	branch, err := CurrentBranch(dir)
	require.NoError(t, err)
	// go-git initialises HEAD at master.
	assert.Equal(t, "master", branch)
}

func TestCurrentBranchDetectsDotGitFromSubdir(t *testing.T) {
	dir := initRepo(t)
	sub := filepath.Join(dir, "src", "main")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	branch, err := CurrentBranch(sub)
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}

func TestCommitHash(t *testing.T) {
	dir := initRepo(t)
	hash, err := CommitHash(dir)
	require.NoError(t, err)
	assert.Len(t, hash, 40)
}

func TestErrorsOutsideRepo(t *testing.T) {
	_, err := CurrentBranch(t.TempDir())
	assert.Error(t, err)
	_, err = CommitHash(t.TempDir())
	assert.Error(t, err)
}
