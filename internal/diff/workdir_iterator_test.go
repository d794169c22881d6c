package diff_test

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/stretchr/testify/require"

	"github.com/treelinehq/treeline/internal/diff"
	"github.com/treelinehq/treeline/internal/diff/difftest"
)

func seedWorkdir(t *testing.T, repo *difftest.Repo) {
	t.Helper()
	require.NoError(t, repo.WriteFile(".gitignore", "*.log\nbuild/\n"))
	require.NoError(t, repo.WriteFile("a.txt", "A"))
	require.NoError(t, repo.WriteFile("b.log", "LOG"))
	require.NoError(t, repo.WriteFile("build/out", "O"))
	require.NoError(t, repo.WriteFile("src/main.go", "package main\n"))
	require.NoError(t, repo.WriteFile("vendor/dep/.git/HEAD", "ref: refs/heads/main\n"))
	require.NoError(t, repo.WriteFile("vendor/dep/code.go", "package dep\n"))
}

func TestWorkdirIteratorTopLevel(t *testing.T) {
	repo := difftest.NewRepo()
	seedWorkdir(t, repo)

	it, err := diff.NewWorkdirIterator(repo, "")
	require.NoError(t, err)

	var pathsSeen []string
	var ignored []bool
	e, err := it.Current()
	require.NoError(t, err)
	for e != nil {
		pathsSeen = append(pathsSeen, e.Path)
		ignored = append(ignored, it.CurrentIsIgnored())
		e, err = it.Advance()
		require.NoError(t, err)
	}

	require.Equal(t,
		[]string{".gitignore", "a.txt", "b.log", "build/", "src/", "vendor/"},
		pathsSeen,
		"directories are delivered in place, unexpanded, with a trailing slash")
	require.Equal(t,
		[]bool{false, false, true, true, false, false},
		ignored)
}

func TestWorkdirIteratorDescends(t *testing.T) {
	repo := difftest.NewRepo()
	seedWorkdir(t, repo)

	it, err := diff.NewWorkdirIterator(repo, "")
	require.NoError(t, err)

	// Walk to src/ and descend.
	e, err := it.Current()
	require.NoError(t, err)
	for e != nil && e.Path != "src/" {
		e, err = it.Advance()
		require.NoError(t, err)
	}
	require.NotNil(t, e)

	e, err = it.AdvanceInto()
	require.NoError(t, err)
	require.NotNil(t, e)
	require.Equal(t, "src/main.go", e.Path)
	require.Equal(t, filemode.Regular, e.Mode)

	// Leaving the frame resumes with the parent's next sibling.
	e, err = it.Advance()
	require.NoError(t, err)
	require.NotNil(t, e)
	require.Equal(t, "vendor/", e.Path)
}

func TestWorkdirIteratorGitlink(t *testing.T) {
	repo := difftest.NewRepo()
	seedWorkdir(t, repo)

	it, err := diff.NewWorkdirIterator(repo, "")
	require.NoError(t, err)

	e, err := it.Current()
	require.NoError(t, err)
	for e != nil && e.Path != "vendor/" {
		e, err = it.Advance()
		require.NoError(t, err)
	}
	require.NotNil(t, e)

	e, err = it.AdvanceInto()
	require.NoError(t, err)
	require.NotNil(t, e)
	require.Equal(t, "vendor/dep", e.Path,
		"a directory with its own .git is a single gitlink leaf")
	require.Equal(t, filemode.Submodule, e.Mode)

	e, err = it.Advance()
	require.NoError(t, err)
	require.Nil(t, e, "nothing may be delivered from inside a gitlink")
}

func TestWorkdirToIndexEndToEnd(t *testing.T) {
	repo := difftest.NewRepo()
	require.NoError(t, repo.WriteFile("a.txt", "A"))
	require.NoError(t, repo.WriteFile("new.txt", "N"))

	repo.Idx = &index.Index{
		Version: 2,
		Entries: []*index.Entry{{
			Name: "a.txt",
			Hash: difftest.BlobOID("A"),
			Mode: filemode.Regular,
			Size: 1,
		}},
	}

	d, err := diff.WorkdirToIndex(repo, nil, diff.Options{
		Flags: diff.IncludeUntracked,
	})
	require.NoError(t, err)
	defer d.Free()

	require.Equal(t, []string{"new.txt"}, paths(d))
	require.Equal(t, []diff.Status{diff.Untracked}, statuses(d))
	require.Equal(t, diff.SourceIndex, d.OldSource())
	require.Equal(t, diff.SourceWorkdir, d.NewSource())
}
