package gitrepo

import (
	"emperror.dev/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/treelinehq/treeline/internal/diff"
)

// Submodule looks up the submodule mounted at path.
func (r *Repo) Submodule(path string) (diff.Submodule, error) {
	if r.fs == nil {
		return nil, errors.New("bare repository has no submodules")
	}
	wt, err := r.gg.Worktree()
	if err != nil {
		return nil, errors.WrapIf(err, "opening worktree")
	}

	subs, err := wt.Submodules()
	if err != nil {
		return nil, errors.WrapIf(err, "listing submodules")
	}
	for _, sub := range subs {
		if sub.Config().Path == path {
			return &submodule{repo: r, sub: sub}, nil
		}
	}
	return nil, errors.Errorf("no submodule at %q", path)
}

type submodule struct {
	repo *Repo
	sub  *gogit.Submodule
}

// Ignore reads the submodule's configured ignore policy
// (submodule.<name>.ignore), defaulting to none.
func (s *submodule) Ignore() diff.SubmoduleIgnore {
	cfg, err := s.repo.gg.Config()
	if err != nil {
		return diff.SubmoduleIgnoreNone
	}
	raw := cfg.Raw.Section("submodule").Subsection(s.sub.Config().Name).Option("ignore")
	switch raw {
	case "untracked":
		return diff.SubmoduleIgnoreUntracked
	case "dirty":
		return diff.SubmoduleIgnoreDirty
	case "all":
		return diff.SubmoduleIgnoreAll
	}
	return diff.SubmoduleIgnoreNone
}

// Status reports whether the submodule's checked-out commit diverges from
// the one recorded in the superproject index.
func (s *submodule) Status() (diff.SubmoduleStatus, error) {
	st, err := s.sub.Status()
	if err != nil {
		return 0, errors.WrapIf(err, "reading submodule status")
	}
	if !st.Current.IsZero() && st.Current != st.Expected {
		return diff.SubmoduleStatusWdModified, nil
	}
	return 0, nil
}

func (s *submodule) WorkdirOID() (plumbing.Hash, bool) {
	st, err := s.sub.Status()
	if err != nil || st.Current.IsZero() {
		return plumbing.ZeroHash, false
	}
	return st.Current, true
}
