package diff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/treelinehq/treeline/internal/diff"
	"github.com/treelinehq/treeline/internal/diff/difftest"
)

func TestMergeCombinesAndOverrides(t *testing.T) {
	// Base: index vs tree reports "staged" modified and "common" modified.
	base := buildDiff(t, nil,
		difftest.NewIter(diff.SourceTree,
			difftest.File("common", "v1"),
			difftest.File("staged", "v1"),
		),
		difftest.NewIter(diff.SourceIndex,
			difftest.File("common", "v2"),
			difftest.File("staged", "v2"),
		),
		diff.Options{},
	)

	// Overlay: index vs index (standing in for workdir vs index) reports
	// "common" deleted and "wild" added.
	overlay := buildDiff(t, nil,
		difftest.NewIter(diff.SourceIndex,
			difftest.File("common", "v2"),
		),
		difftest.NewIter(diff.SourceIndex,
			difftest.File("wild", "w"),
		),
		diff.Options{},
	)

	base.Merge(overlay)

	require.Equal(t, []string{"common", "staged", "wild"}, paths(base))
	require.Equal(t,
		[]diff.Status{diff.Deleted, diff.Modified, diff.Added},
		statuses(base),
		"the overlay delta must supersede the base delta on the same path")
}

func TestRetainFree(t *testing.T) {
	d := buildDiff(t, nil,
		difftest.NewIter(diff.SourceTree, difftest.File("a", "1")),
		difftest.NewIter(diff.SourceTree, difftest.File("a", "2")),
		diff.Options{},
	)

	d.Retain()
	d.Free()
	require.Equal(t, 1, d.NumDeltas(),
		"the list must survive while another holder retains it")
}

func TestSourceTags(t *testing.T) {
	d := buildDiff(t, nil,
		difftest.NewIter(diff.SourceTree),
		difftest.NewIter(diff.SourceIndex),
		diff.Options{},
	)
	require.Equal(t, diff.SourceTree, d.OldSource())
	require.Equal(t, diff.SourceIndex, d.NewSource())
}

func TestPrefixNormalization(t *testing.T) {
	d := buildDiff(t, nil,
		difftest.NewIter(diff.SourceTree),
		difftest.NewIter(diff.SourceTree),
		diff.Options{OldPrefix: "before", NewPrefix: "after/"},
	)
	opts := d.Options()
	require.Equal(t, "before/", opts.OldPrefix)
	require.Equal(t, "after/", opts.NewPrefix)
}
