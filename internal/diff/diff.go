// Package diff implements a version-controlled tree-diff engine: given two
// ordered sources of path-addressed entries (a committed tree, the staged
// index, or the live working directory) it produces a sorted list of deltas
// describing how the first source would have to change to become the second.
//
// One behavior differs deliberately from core git: when a directory is
// classified as ignored, everything inside it is skipped outright, even
// entries that would individually match an ignore rule and could therefore
// be reported as ignored files. Container-directory ignore takes precedence
// over per-file ignore rules.
package diff

import (
	"emperror.dev/errors"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/treelinehq/treeline/internal/utils/cleanup"
)

// TreeToTree diffs two committed trees.
func TreeToTree(repo Repo, oldTree, newTree *object.Tree, opts Options) (*DiffList, error) {
	d := newDiffList(repo, opts)
	var cu cleanup.Cleanup
	cu.Add(d.Free)
	defer cu.Cleanup()

	pfx := d.pathspec.Prefix()
	oldIter, err := NewTreeIterator(oldTree, pfx)
	if err != nil {
		return nil, markKind(ErrIterator, err)
	}
	newIter, err := NewTreeIterator(newTree, pfx)
	if err != nil {
		return nil, markKind(ErrIterator, err)
	}

	if err := d.buildFromIterators(oldIter, newIter); err != nil {
		return nil, err
	}
	cu.Cancel()
	return d, nil
}

// IndexToTree diffs the staged index against a committed tree (the tree is
// the old side). A nil index means the repository's current index.
func IndexToTree(repo Repo, oldTree *object.Tree, idx *index.Index, opts Options) (*DiffList, error) {
	idx, err := resolveIndex(repo, idx)
	if err != nil {
		return nil, err
	}

	d := newDiffList(repo, opts)
	var cu cleanup.Cleanup
	cu.Add(d.Free)
	defer cu.Cleanup()

	pfx := d.pathspec.Prefix()
	oldIter, err := NewTreeIterator(oldTree, pfx)
	if err != nil {
		return nil, markKind(ErrIterator, err)
	}
	newIter := NewIndexIterator(idx, pfx, repo.ConfigBool("core.ignorecase", false))

	if err := d.buildFromIterators(oldIter, newIter); err != nil {
		return nil, err
	}
	cu.Cancel()
	return d, nil
}

// WorkdirToIndex diffs the working directory against the staged index (the
// index is the old side). A nil index means the repository's current index.
func WorkdirToIndex(repo Repo, idx *index.Index, opts Options) (*DiffList, error) {
	idx, err := resolveIndex(repo, idx)
	if err != nil {
		return nil, err
	}

	d := newDiffList(repo, opts)
	var cu cleanup.Cleanup
	cu.Add(d.Free)
	defer cu.Cleanup()

	pfx := d.pathspec.Prefix()
	oldIter := NewIndexIterator(idx, pfx, repo.ConfigBool("core.ignorecase", false))
	newIter, err := NewWorkdirIterator(repo, pfx)
	if err != nil {
		return nil, markKind(ErrIterator, err)
	}

	if err := d.buildFromIterators(oldIter, newIter); err != nil {
		return nil, err
	}
	cu.Cancel()
	return d, nil
}

// WorkdirToTree diffs the working directory against a committed tree.
func WorkdirToTree(repo Repo, oldTree *object.Tree, opts Options) (*DiffList, error) {
	d := newDiffList(repo, opts)
	var cu cleanup.Cleanup
	cu.Add(d.Free)
	defer cu.Cleanup()

	pfx := d.pathspec.Prefix()
	oldIter, err := NewTreeIterator(oldTree, pfx)
	if err != nil {
		return nil, markKind(ErrIterator, err)
	}
	newIter, err := NewWorkdirIterator(repo, pfx)
	if err != nil {
		return nil, markKind(ErrIterator, err)
	}

	if err := d.buildFromIterators(oldIter, newIter); err != nil {
		return nil, err
	}
	cu.Cancel()
	return d, nil
}

// FromIterators runs the engine over two caller-supplied iterators. The
// top-level operations above run the same merge-join over iterators they
// build themselves.
func FromIterators(repo Repo, oldIter, newIter Iterator, opts Options) (*DiffList, error) {
	d := newDiffList(repo, opts)
	if err := d.buildFromIterators(oldIter, newIter); err != nil {
		d.Free()
		return nil, err
	}
	return d, nil
}

func resolveIndex(repo Repo, idx *index.Index) (*index.Index, error) {
	if idx != nil {
		return idx, nil
	}
	idx, err := repo.Index()
	if err != nil {
		return nil, errors.WrapIf(err, "reading repository index")
	}
	return idx, nil
}
