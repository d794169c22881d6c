package gitrepo

import (
	"emperror.dev/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/treelinehq/treeline/internal/stash"
)

// StashRepository adapts the repository to the stash composer's
// collaborator surface.
func (r *Repo) StashRepository() stash.Repository {
	return &stashRepo{r}
}

type stashRepo struct {
	r *Repo
}

func (s *stashRepo) IsBare() bool { return s.r.IsBare() }

func (s *stashRepo) Head() (*stash.Head, error) {
	ref, err := s.r.gg.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, stash.ErrNoHead
	}
	if err != nil {
		return nil, errors.WrapIf(err, "resolving HEAD")
	}

	head := &stash.Head{Commit: ref.Hash()}
	if ref.Name().IsBranch() {
		head.BranchName = ref.Name().Short()
	}
	return head, nil
}

func (s *stashRepo) Index() (stash.Index, error) {
	return s.r.newIndexState()
}

func (s *stashRepo) Commits() stash.CommitGraph { return &commitGraph{s.r} }
func (s *stashRepo) StashLog() stash.Reflog     { return &reflog{s.r} }
func (s *stashRepo) Checkout() stash.Checkout   { return &checkout{s.r} }
func (s *stashRepo) Differ() stash.Differ       { return s.r }

type commitGraph struct {
	repo *Repo
}

func (g *commitGraph) CreateCommit(
	author object.Signature,
	message string,
	tree plumbing.Hash,
	parents ...plumbing.Hash,
) (plumbing.Hash, error) {
	commit := &object.Commit{
		Author:       author,
		Committer:    author,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	o := g.repo.gg.Storer.NewEncodedObject()
	if err := commit.Encode(o); err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "encoding commit")
	}
	return g.repo.gg.Storer.SetEncodedObject(o)
}

func (g *commitGraph) LookupCommit(oid plumbing.Hash) (stash.Commit, error) {
	c, err := g.repo.gg.CommitObject(oid)
	if err != nil {
		return nil, errors.WrapIff(err, "looking up commit %s", oid)
	}
	return &commitView{c}, nil
}

type commitView struct {
	c *object.Commit
}

func (v *commitView) ID() plumbing.Hash     { return v.c.Hash }
func (v *commitView) Message() string       { return v.c.Message }
func (v *commitView) TreeID() plumbing.Hash { return v.c.TreeHash }

type checkout struct {
	repo *Repo
}

// ResetTo hard-resets the index and working directory to commit,
// optionally sweeping untracked files and directories.
func (c *checkout) ResetTo(commit plumbing.Hash, removeUntracked bool) error {
	wt, err := c.repo.gg.Worktree()
	if err != nil {
		return errors.WrapIf(err, "opening worktree")
	}

	if err := wt.Reset(&gogit.ResetOptions{
		Commit: commit,
		Mode:   gogit.HardReset,
	}); err != nil {
		return errors.WrapIf(err, "resetting worktree")
	}

	if removeUntracked {
		if err := wt.Clean(&gogit.CleanOptions{Dir: true}); err != nil {
			return errors.WrapIf(err, "removing untracked files")
		}
	}
	return nil
}

var (
	_ stash.Repository  = (*stashRepo)(nil)
	_ stash.CommitGraph = (*commitGraph)(nil)
	_ stash.Checkout    = (*checkout)(nil)
	_ stash.Differ      = (*Repo)(nil)
)
