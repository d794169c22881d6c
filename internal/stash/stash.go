// Package stash composes stash states on top of the diff engine: a saved
// stash is a synthetic commit whose parents capture the base commit, the
// index state, and (optionally) the untracked files, recorded in the reflog
// of a dedicated reference. Commit-graph construction, the reflog, and the
// checkout engine are collaborators supplied by the caller.
package stash

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"

	"github.com/treelinehq/treeline/internal/diff"
	"github.com/treelinehq/treeline/internal/utils/stringutils"
)

// Flag bits for Save.
type Flag uint32

const (
	// IncludeUntracked stashes untracked files in a third parent commit.
	IncludeUntracked Flag = 1 << iota
	// IncludeIgnored also stashes ignored files.
	IncludeIgnored
	// KeepIndex leaves staged changes in place after saving.
	KeepIndex
)

const (
	ErrBareRepository = errors.Sentinel("stash: operation requires a working directory")
	ErrNoHead         = errors.Sentinel("stash: you do not have the initial commit yet")
	ErrNothingToStash = errors.Sentinel("stash: there is nothing to stash")
	ErrNotFound       = errors.Sentinel("stash: no stashed state at that position")
)

// Head describes the current HEAD: the short branch name ("" when detached)
// and the commit it points at.
type Head struct {
	BranchName string
	Commit     plumbing.Hash
}

// Commit is the slice of a commit the composer needs.
type Commit interface {
	ID() plumbing.Hash
	Message() string
	TreeID() plumbing.Hash
}

// Index manipulates an in-memory index used to assemble synthetic trees.
type Index interface {
	Clear()
	ReadTree(tree plumbing.Hash) error
	WriteTree() (plumbing.Hash, error)
	AddFromWorkdir(path string) error
	Remove(path string) error
}

// CommitGraph creates and resolves commits.
type CommitGraph interface {
	CreateCommit(
		author object.Signature,
		message string,
		tree plumbing.Hash,
		parents ...plumbing.Hash,
	) (plumbing.Hash, error)
	LookupCommit(oid plumbing.Hash) (Commit, error)
}

// ReflogEntry is one stash reflog record.
type ReflogEntry struct {
	Message string
	New     plumbing.Hash
}

// Reflog reads and mutates the stash reference's reflog. Read returns
// entries oldest-first; a missing reference reports ErrNotFound.
type Reflog interface {
	Read() ([]ReflogEntry, error)
	Append(oid plumbing.Hash, who object.Signature, message string) error
	Drop(position int) error
	DeleteRef() error
}

// Checkout resets the index and working directory to a commit.
type Checkout interface {
	ResetTo(commit plumbing.Hash, removeUntracked bool) error
}

// Differ runs the diff engine against the repository.
type Differ interface {
	IndexToTree(tree plumbing.Hash, opts diff.Options) (*diff.DiffList, error)
	WorkdirToIndex(opts diff.Options) (*diff.DiffList, error)
	WorkdirToTree(tree plumbing.Hash, opts diff.Options) (*diff.DiffList, error)
}

// Repository bundles the collaborators the composer needs.
type Repository interface {
	IsBare() bool
	Head() (*Head, error)
	Index() (Index, error)
	Commits() CommitGraph
	StashLog() Reflog
	Checkout() Checkout
	Differ() Differ
}

// Save records the current index and worktree state as a stash commit,
// appends it to the stash reflog, and resets the working directory.
func Save(repo Repository, stasher object.Signature, message string, flags Flag) (plumbing.Hash, error) {
	if repo.IsBare() {
		return plumbing.ZeroHash, ErrBareRepository
	}

	head, err := repo.Head()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	baseCommit, err := repo.Commits().LookupCommit(head.Commit)
	if err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "looking up HEAD commit")
	}

	baseMsg := describeBase(head, baseCommit)

	if err := ensureChangesToStash(repo, baseCommit, flags); err != nil {
		return plumbing.ZeroHash, err
	}

	idx, err := repo.Index()
	if err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "opening index")
	}

	iCommit, iTree, err := commitIndex(repo, idx, stasher, baseMsg, baseCommit)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	var uCommit plumbing.Hash
	hasUntracked := flags&(IncludeUntracked|IncludeIgnored) != 0
	if hasUntracked {
		if uCommit, err = commitUntracked(repo, idx, stasher, baseMsg, iTree, flags); err != nil {
			return plumbing.ZeroHash, err
		}
	}

	wMsg := worktreeMessage(baseMsg, message)

	wCommit, err := commitWorktree(
		repo, idx, stasher, wMsg, baseCommit, iCommit, iTree, uCommit, hasUntracked)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	logMsg := strings.TrimRight(wMsg, "\n")
	if err := repo.StashLog().Append(wCommit, stasher, logMsg); err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "updating stash reflog")
	}

	resetTarget := baseCommit.ID()
	if flags&KeepIndex != 0 {
		resetTarget = iCommit
	}
	removeUntracked := flags&IncludeUntracked != 0
	if err := repo.Checkout().ResetTo(resetTarget, removeUntracked); err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "resetting after stash")
	}

	logrus.WithFields(logrus.Fields{
		"stash":  wCommit.String()[:7],
		"branch": head.BranchName,
	}).Debug("saved stash")

	return wCommit, nil
}

// describeBase formats the "branch: abbrev title" description every stash
// message builds on.
func describeBase(head *Head, base Commit) string {
	prefix := "(no branch)"
	if head.BranchName != "" {
		prefix = head.BranchName
	}

	title, _ := stringutils.ParseSubjectBody(base.Message())

	return prefix + ": " + base.ID().String()[:7] + " " + title
}

// worktreeMessage formats the stash commit's own message: "WIP on <base>"
// without a user message, "On <branch>: <message>" with one.
func worktreeMessage(baseMsg, userMsg string) string {
	if userMsg == "" {
		return "WIP on " + baseMsg
	}
	branch := baseMsg
	if i := strings.IndexByte(baseMsg, ':'); i >= 0 {
		branch = baseMsg[:i]
	}
	return "On " + branch + ": " + userMsg
}

// ensureChangesToStash fails with ErrNothingToStash when the index and the
// worktree both match the base commit.
func ensureChangesToStash(repo Repository, base Commit, flags Flag) error {
	var opts diff.Options
	if flags&IncludeUntracked != 0 {
		opts.Flags |= diff.IncludeUntracked | diff.RecurseUntrackedDirs
	}
	if flags&IncludeIgnored != 0 {
		opts.Flags |= diff.IncludeIgnored
	}

	staged, err := repo.Differ().IndexToTree(base.TreeID(), diff.Options{})
	if err != nil {
		return err
	}
	defer staged.Free()
	if staged.NumDeltas() > 0 {
		return nil
	}

	unstaged, err := repo.Differ().WorkdirToIndex(opts)
	if err != nil {
		return err
	}
	defer unstaged.Free()
	if unstaged.NumDeltas() > 0 {
		return nil
	}

	return ErrNothingToStash
}

// commitIndex writes the current index as a tree and commits it on top of
// the base commit.
func commitIndex(
	repo Repository,
	idx Index,
	stasher object.Signature,
	baseMsg string,
	base Commit,
) (plumbing.Hash, plumbing.Hash, error) {
	tree, err := idx.WriteTree()
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, errors.WrapIf(err, "writing index tree")
	}

	commit, err := repo.Commits().CreateCommit(
		stasher, "index on "+baseMsg+"\n", tree, base.ID())
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, errors.WrapIf(err, "committing index state")
	}

	return commit, tree, nil
}

// commitUntracked builds a parentless commit holding only the untracked
// (and, if requested, ignored) files.
func commitUntracked(
	repo Repository,
	idx Index,
	stasher object.Signature,
	baseMsg string,
	iTree plumbing.Hash,
	flags Flag,
) (plumbing.Hash, error) {
	idx.Clear()

	var opts diff.Options
	includeUntracked := flags&IncludeUntracked != 0
	includeIgnored := flags&IncludeIgnored != 0
	if includeUntracked {
		opts.Flags |= diff.IncludeUntracked | diff.RecurseUntrackedDirs
	}
	if includeIgnored {
		opts.Flags |= diff.IncludeIgnored
	}

	d, err := repo.Differ().WorkdirToTree(iTree, opts)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	defer d.Free()

	err = d.Foreach(func(delta *diff.Delta) error {
		switch delta.Status {
		case diff.Untracked:
			if includeUntracked {
				return idx.AddFromWorkdir(delta.New.Path)
			}
		case diff.Ignored:
			if includeIgnored {
				return idx.AddFromWorkdir(delta.New.Path)
			}
		}
		return nil
	})
	if err != nil {
		return plumbing.ZeroHash, err
	}

	tree, err := idx.WriteTree()
	if err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "writing untracked tree")
	}

	return repo.Commits().CreateCommit(
		stasher, "untracked files on "+baseMsg+"\n", tree)
}

// commitWorktree builds the stash commit itself: the index tree overlaid
// with every worktree change, parented on the base, index, and (optionally)
// untracked commits.
func commitWorktree(
	repo Repository,
	idx Index,
	stasher object.Signature,
	message string,
	base Commit,
	iCommit plumbing.Hash,
	iTree plumbing.Hash,
	uCommit plumbing.Hash,
	hasUntracked bool,
) (plumbing.Hash, error) {
	if err := idx.ReadTree(iTree); err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "reading index tree")
	}

	staged, err := repo.Differ().IndexToTree(base.TreeID(), diff.Options{})
	if err != nil {
		return plumbing.ZeroHash, err
	}
	defer staged.Free()

	unstaged, err := repo.Differ().WorkdirToIndex(diff.Options{})
	if err != nil {
		return plumbing.ZeroHash, err
	}
	defer unstaged.Free()

	staged.Merge(unstaged)

	err = staged.Foreach(func(delta *diff.Delta) error {
		switch delta.Status {
		case diff.Added, diff.Modified, diff.Typechange:
			return idx.AddFromWorkdir(delta.New.Path)
		case diff.Deleted:
			return idx.Remove(delta.New.Path)
		}
		return nil
	})
	if err != nil {
		return plumbing.ZeroHash, err
	}

	tree, err := idx.WriteTree()
	if err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "writing worktree tree")
	}

	parents := []plumbing.Hash{base.ID(), iCommit}
	if hasUntracked {
		parents = append(parents, uCommit)
	}

	return repo.Commits().CreateCommit(stasher, message, tree, parents...)
}

// Foreach walks the stash newest-first, calling cb with the position, the
// reflog message, and the stash commit. A non-nil error from cb stops the
// walk and is returned wrapped in diff.ErrUserAbort; errors.Is matches both
// the sentinel and the callback's error. A repository with no stash is
// empty, not an error.
func Foreach(repo Repository, cb func(index int, message string, oid plumbing.Hash) error) error {
	entries, err := repo.StashLog().Read()
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.WrapIf(err, "reading stash reflog")
	}

	for i := range entries {
		entry := entries[len(entries)-i-1]
		if err := cb(i, entry.Message, entry.New); err != nil {
			return fmt.Errorf("%w: %w", diff.ErrUserAbort, err)
		}
	}
	return nil
}

// Drop removes the stash entry at the given position (0 is the most recent)
// and deletes the stash reference when the last entry goes away.
func Drop(repo Repository, index int) error {
	log := repo.StashLog()

	entries, err := log.Read()
	if err != nil {
		return err
	}

	max := len(entries)
	if index < 0 || index > max-1 {
		return errors.WithDetails(ErrNotFound, "position", index)
	}

	if err := log.Drop(max - index - 1); err != nil {
		return errors.WrapIf(err, "dropping reflog entry")
	}

	if max == 1 {
		return log.DeleteRef()
	}
	return nil
}
