package gitrepo

import (
	"io"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/treelinehq/treeline/internal/stash"
)

func newMemRepo(t *testing.T) *Repo {
	t.Helper()
	fs := memfs.New()
	gg, err := gogit.Init(memory.NewStorage(), fs)
	require.NoError(t, err)
	return &Repo{
		gg:     gg,
		fs:     fs,
		dir:    "/work",
		gitDir: t.TempDir(),
		log:    logrus.WithField("repo", "test"),
	}
}

var who = object.Signature{
	Name:  "tester",
	Email: "tester@treeline",
	When:  time.Unix(1700000000, 0),
}

func TestIndexStateWriteTree(t *testing.T) {
	repo := newMemRepo(t)
	require.NoError(t, util.WriteFile(repo.fs, "a.txt", []byte("A"), 0o644))
	require.NoError(t, util.WriteFile(repo.fs, "dir/b.txt", []byte("B"), 0o644))

	st, err := repo.newIndexState()
	require.NoError(t, err)
	require.NoError(t, st.AddFromWorkdir("a.txt"))
	require.NoError(t, st.AddFromWorkdir("dir/b.txt"))

	root, err := st.WriteTree()
	require.NoError(t, err)

	tree, err := repo.TreeOf(root)
	require.NoError(t, err)

	var names []string
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if entry.Mode != filemode.Dir {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	require.Equal(t, []string{"a.txt", "dir/b.txt"}, names)

	// Round trip: reading the tree back reproduces the same state.
	st2 := &indexState{repo: repo, entries: map[string]indexEntry{}}
	require.NoError(t, st2.ReadTree(root))
	root2, err := st2.WriteTree()
	require.NoError(t, err)
	require.Equal(t, root, root2)
}

func TestIndexStateRemove(t *testing.T) {
	repo := newMemRepo(t)
	require.NoError(t, util.WriteFile(repo.fs, "a.txt", []byte("A"), 0o644))
	require.NoError(t, util.WriteFile(repo.fs, "b.txt", []byte("B"), 0o644))

	st, err := repo.newIndexState()
	require.NoError(t, err)
	require.NoError(t, st.AddFromWorkdir("a.txt"))
	require.NoError(t, st.AddFromWorkdir("b.txt"))
	withBoth, err := st.WriteTree()
	require.NoError(t, err)

	require.NoError(t, st.Remove("b.txt"))
	withOne, err := st.WriteTree()
	require.NoError(t, err)
	require.NotEqual(t, withBoth, withOne)
}

func TestCommitGraphRoundTrip(t *testing.T) {
	repo := newMemRepo(t)

	st, err := repo.newIndexState()
	require.NoError(t, err)
	tree, err := st.WriteTree()
	require.NoError(t, err)

	graph := &commitGraph{repo}
	oid, err := graph.CreateCommit(who, "stash state\n", tree)
	require.NoError(t, err)

	commit, err := graph.LookupCommit(oid)
	require.NoError(t, err)
	require.Equal(t, oid, commit.ID())
	require.Equal(t, "stash state\n", commit.Message())
	require.Equal(t, tree, commit.TreeID())
}

func TestReflogAppendReadDrop(t *testing.T) {
	repo := newMemRepo(t)
	log := &reflog{repo}

	_, err := log.Read()
	require.ErrorIs(t, err, stash.ErrNotFound)

	first := plumbing.ComputeHash(plumbing.BlobObject, []byte("one"))
	second := plumbing.ComputeHash(plumbing.BlobObject, []byte("two"))

	require.NoError(t, log.Append(first, who, "WIP on main: first"))
	require.NoError(t, log.Append(second, who, "WIP on main: second"))

	entries, err := log.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "WIP on main: first", entries[0].Message)
	require.Equal(t, first, entries[0].New)
	require.Equal(t, second, entries[1].New)

	// Dropping the newest entry moves the ref back to the remaining one.
	require.NoError(t, log.Drop(1))
	entries, err = log.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, first, entries[0].New)

	require.NoError(t, log.DeleteRef())
	_, err = log.Read()
	require.ErrorIs(t, err, stash.ErrNotFound)
}

func TestParseReflogLine(t *testing.T) {
	line := "0000000000000000000000000000000000000000 " +
		"2b4f2b4f2b4f2b4f2b4f2b4f2b4f2b4f2b4f2b4f " +
		"tester <tester@treeline> 1700000000 +0000\tWIP on main: message"

	parsed, err := parseReflogLine(line)
	require.NoError(t, err)
	require.True(t, parsed.Old.IsZero())
	require.Equal(t, "2b4f2b4f2b4f2b4f2b4f2b4f2b4f2b4f2b4f2b4f", parsed.New.String())
	require.Equal(t, "WIP on main: message", parsed.Message)
	require.Equal(t, "tester <tester@treeline> 1700000000 +0000", parsed.Ident)
}
