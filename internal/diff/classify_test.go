package diff_test

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/stretchr/testify/require"

	"github.com/treelinehq/treeline/internal/diff"
	"github.com/treelinehq/treeline/internal/diff/difftest"
)

func TestSymlinkFallbackWithoutSymlinkSupport(t *testing.T) {
	repo := difftest.NewRepo()
	repo.Config["core.symlinks"] = false

	link := &diff.Entry{Path: "link", Mode: filemode.Symlink, OID: difftest.BlobOID("target")}
	require.NoError(t, repo.WriteFile("link", "target"))

	// The checkout wrote the link target as a plain file; with symlink
	// support off, the old mode is preserved and only content is compared.
	workdir := &diff.Entry{Path: "link", Mode: filemode.Regular, Size: 6}

	d := buildDiff(t, repo,
		difftest.NewIter(diff.SourceIndex, link),
		difftest.NewIter(diff.SourceWorkdir, workdir),
		diff.Options{},
	)
	require.Zero(t, d.NumDeltas(),
		"same content through the symlink fallback must be unmodified")
}

func TestModeBitsFallback(t *testing.T) {
	repo := difftest.NewRepo()
	repo.Config["core.filemode"] = false

	staged := difftest.File("script", "#!/bin/sh\n")
	workdir := &diff.Entry{
		Path: "script",
		Mode: filemode.Executable,
		Size: staged.Size,
		OID:  staged.OID,
	}

	d := buildDiff(t, repo,
		difftest.NewIter(diff.SourceIndex, staged),
		difftest.NewIter(diff.SourceWorkdir, workdir),
		diff.Options{},
	)
	require.Zero(t, d.NumDeltas(),
		"untrusted mode bits must not produce a modification on their own")
}

func TestIgnoreFilemodeOption(t *testing.T) {
	repo := difftest.NewRepo()

	staged := difftest.File("script", "#!/bin/sh\n")
	workdir := &diff.Entry{
		Path: "script",
		Mode: filemode.Executable,
		Size: staged.Size,
		OID:  staged.OID,
	}

	mkIters := func() (diff.Iterator, diff.Iterator) {
		return difftest.NewIter(diff.SourceIndex, staged),
			difftest.NewIter(diff.SourceWorkdir, workdir)
	}

	o, n := mkIters()
	d := buildDiff(t, repo, o, n, diff.Options{})
	require.Equal(t, []diff.Status{diff.Modified}, statuses(d),
		"mode flip alone is a modification when mode bits are trusted")

	o, n = mkIters()
	d = buildDiff(t, repo, o, n, diff.Options{Flags: diff.IgnoreFilemode})
	require.Zero(t, d.NumDeltas())
}

func TestSkipWorktreeIsUnmodified(t *testing.T) {
	repo := difftest.NewRepo()

	staged := difftest.File("sparse", "checked in")
	staged.Flags |= diff.FlagSkipWorktree

	workdir := &diff.Entry{Path: "sparse", Mode: filemode.Regular, Size: 99}

	d := buildDiff(t, repo,
		difftest.NewIter(diff.SourceIndex, staged),
		difftest.NewIter(diff.SourceWorkdir, workdir),
		diff.Options{},
	)
	require.Zero(t, d.NumDeltas())
}

func TestAssumeUnchangedHonorsIntentToAdd(t *testing.T) {
	repo := difftest.NewRepo()
	repo.Config["core.ignorestat"] = true
	require.NoError(t, repo.WriteFile("pending", "edited"))

	plain := difftest.File("plain", "stable")
	pending := difftest.File("pending", "content")
	pending.Flags |= diff.FlagIntentToAdd

	d := buildDiff(t, repo,
		difftest.NewIter(diff.SourceIndex, plain, pending),
		difftest.NewIter(diff.SourceWorkdir,
			&diff.Entry{Path: "plain", Mode: filemode.Regular, Size: 999},
			&diff.Entry{Path: "pending", Mode: filemode.Regular, Size: 7},
		),
		diff.Options{},
	)
	require.Equal(t, []string{"pending"}, paths(d))
	require.Equal(t, []diff.Status{diff.Modified}, statuses(d))
}

func TestSubmoduleClassification(t *testing.T) {
	gitlinkOID := difftest.BlobOID("submodule head")

	mkEntries := func() (*diff.Entry, *diff.Entry) {
		// The staged side carries stat data so the stat-cache fast path
		// cannot short-circuit the submodule lookup.
		old := &diff.Entry{
			Path:  "vendor/lib",
			Mode:  filemode.Submodule,
			OID:   gitlinkOID,
			MTime: time.Unix(5, 0),
			Ino:   42,
		}
		wd := &diff.Entry{Path: "vendor/lib", Mode: filemode.Submodule}
		return old, wd
	}

	t.Run("unmodified submodule", func(t *testing.T) {
		repo := difftest.NewRepo()
		repo.Submodules["vendor/lib"] = &difftest.Submodule{
			OID: gitlinkOID, HasOID: true,
		}

		old, wd := mkEntries()
		d := buildDiff(t, repo,
			difftest.NewIter(diff.SourceIndex, old),
			difftest.NewIter(diff.SourceWorkdir, wd),
			diff.Options{},
		)
		require.Zero(t, d.NumDeltas())
	})

	t.Run("dirty submodule", func(t *testing.T) {
		repo := difftest.NewRepo()
		repo.Submodules["vendor/lib"] = &difftest.Submodule{
			StatusBits: diff.SubmoduleStatusWdModified,
			OID:        difftest.BlobOID("new head"),
			HasOID:     true,
		}

		old, wd := mkEntries()
		d := buildDiff(t, repo,
			difftest.NewIter(diff.SourceIndex, old),
			difftest.NewIter(diff.SourceWorkdir, wd),
			diff.Options{},
		)
		require.Equal(t, []diff.Status{diff.Modified}, statuses(d))
		require.Equal(t, difftest.BlobOID("new head"), d.Delta(0).New.OID)
		require.True(t, d.Delta(0).New.ValidOID)
	})

	t.Run("ignore-all policy", func(t *testing.T) {
		repo := difftest.NewRepo()
		repo.Submodules["vendor/lib"] = &difftest.Submodule{
			IgnorePolicy: diff.SubmoduleIgnoreAll,
			StatusBits:   diff.SubmoduleStatusWdModified,
		}

		old, wd := mkEntries()
		d := buildDiff(t, repo,
			difftest.NewIter(diff.SourceIndex, old),
			difftest.NewIter(diff.SourceWorkdir, wd),
			diff.Options{},
		)
		require.Zero(t, d.NumDeltas())
	})

	t.Run("ignore-submodules option", func(t *testing.T) {
		repo := difftest.NewRepo()

		old, wd := mkEntries()
		d := buildDiff(t, repo,
			difftest.NewIter(diff.SourceIndex, old),
			difftest.NewIter(diff.SourceWorkdir, wd),
			diff.Options{Flags: diff.IgnoreSubmodules},
		)
		require.Zero(t, d.NumDeltas(),
			"submodule lookup must not even run when submodules are ignored")
	})

	t.Run("missing submodule is fatal in coincident classification", func(t *testing.T) {
		repo := difftest.NewRepo()

		old, wd := mkEntries()
		_, err := diff.FromIterators(repo,
			difftest.NewIter(diff.SourceIndex, old),
			difftest.NewIter(diff.SourceWorkdir, wd),
			diff.Options{},
		)
		require.ErrorIs(t, err, diff.ErrSubmodule)
	})
}

func TestMissingSubmoduleToleratedWhenUntracked(t *testing.T) {
	repo := difftest.NewRepo()

	// A workdir-only gitlink with no configured submodule: a one-sided
	// delta does no submodule lookup, so no error surfaces and the entry
	// has a zero oid.
	wd := &diff.Entry{Path: "vendor/new", Mode: filemode.Submodule}

	d := buildDiff(t, repo,
		difftest.NewIter(diff.SourceIndex),
		difftest.NewIter(diff.SourceWorkdir, wd),
		diff.Options{Flags: diff.IncludeUntracked},
	)
	require.Equal(t, []diff.Status{diff.Untracked}, statuses(d))
	require.False(t, d.Delta(0).New.ValidOID)
}
