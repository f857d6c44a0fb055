package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, repo *git.Repository, dir string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# docs\n"), 0o600))
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	hash, err := wt.Commit("init", &git.CommitOptions{Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()}})
	require.NoError(t, err)
	return hash
}

func TestReadHead_Branch(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	hash := commitFile(t, repo, dir)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("docs/update-api"), Create: true}))

	sub := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	head, err := ReadHead(sub)
	require.NoError(t, err)
	require.Equal(t, "refs/heads/docs/update-api", head.Ref)
	require.Equal(t, "docs/update-api", head.Branch())
	require.Equal(t, hash.String(), head.Commit)
}

func TestReadHead_Detached(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	hash := commitFile(t, repo, dir)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: hash}))

	head, err := ReadHead(dir)
	require.ErrorIs(t, err, ErrDetachedHead)
	require.Equal(t, hash.String(), head.Commit)
}

func TestReadHead_NotARepository(t *testing.T) {
	_, err := ReadHead(t.TempDir())
	require.Error(t, err)
}
