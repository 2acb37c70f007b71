package gitref

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrel-dev/xrel/internal/release"
)

var signature = &object.Signature{Name: "Release Bot", Email: "bot@example.com", When: time.Unix(1700000000, 0)}

func testRepository(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func commit(t *testing.T, dir string, repo *git.Repository, content string) plumbing.Hash {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.rs"), []byte(content), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("main.rs")
	require.NoError(t, err)
	hash, err := wt.Commit("change "+content, &git.CommitOptions{Author: signature})
	require.NoError(t, err)
	return hash
}

func TestInspect(t *testing.T) {
	t.Parallel()

	t.Run("branch", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepository(t)
		hash := commit(t, dir, repo, "one")

		head, err := Inspect(dir)
		require.NoError(t, err)
		assert.Equal(t, hash.String(), head.Commit)
		assert.Equal(t, "master", head.Branch)
		assert.Empty(t, head.Tag)
		assert.Equal(t, "refs/heads/master", head.Ref())
	})

	t.Run("lightweight tag", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepository(t)
		hash := commit(t, dir, repo, "one")
		_, err := repo.CreateTag("v1.0.0", hash, nil)
		require.NoError(t, err)

		head, err := Inspect(dir)
		require.NoError(t, err)
		assert.Equal(t, "v1.0.0", head.Tag)
		assert.Equal(t, "refs/tags/v1.0.0", head.Ref())
	})

	t.Run("annotated tag", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepository(t)
		hash := commit(t, dir, repo, "one")
		_, err := repo.CreateTag("v2.0.0", hash, &git.CreateTagOptions{Tagger: signature, Message: "v2.0.0"})
		require.NoError(t, err)

		head, err := Inspect(dir)
		require.NoError(t, err)
		assert.Equal(t, "refs/tags/v2.0.0", head.Ref())
	})

	t.Run("tag on older commit", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepository(t)
		first := commit(t, dir, repo, "one")
		_, err := repo.CreateTag("v1.0.0", first, nil)
		require.NoError(t, err)
		commit(t, dir, repo, "two")

		head, err := Inspect(dir)
		require.NoError(t, err)
		assert.Empty(t, head.Tag)
		assert.Equal(t, "refs/heads/master", head.Ref())
	})

	t.Run("detached head", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepository(t)
		first := commit(t, dir, repo, "one")
		commit(t, dir, repo, "two")

		wt, err := repo.Worktree()
		require.NoError(t, err)
		require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: first}))

		head, err := Inspect(dir)
		require.NoError(t, err)
		assert.True(t, head.Detached())
		assert.Equal(t, "HEAD", head.Ref())
	})

	t.Run("nested directory", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepository(t)
		commit(t, dir, repo, "one")
		sub := filepath.Join(dir, "crates", "cli")
		require.NoError(t, os.MkdirAll(sub, 0o755))

		head, err := Inspect(sub)
		require.NoError(t, err)
		assert.Equal(t, "master", head.Branch)
	})
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	dir, repo := testRepository(t)
	hash := commit(t, dir, repo, "one")

	tc, err := Trigger(dir)
	require.NoError(t, err)
	_, ok := release.Authorize(tc)
	assert.False(t, ok, "branch push must not publish")

	_, err = repo.CreateTag("v0.1.0", hash, nil)
	require.NoError(t, err)

	tc, err = Trigger(dir)
	require.NoError(t, err)
	target, ok := release.Authorize(tc)
	require.True(t, ok)
	assert.Equal(t, "v0.1.0", target.Tag)
}

func TestHeadCommit(t *testing.T) {
	t.Parallel()

	got, err := HeadCommit(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)

	dir, repo := testRepository(t)
	got, err = HeadCommit(dir)
	require.NoError(t, err)
	assert.Empty(t, got, "repository without commits")

	hash := commit(t, dir, repo, "one")
	got, err = HeadCommit(dir)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), got)
}
