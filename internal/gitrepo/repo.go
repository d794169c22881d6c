// Package gitrepo binds the diff engine and the stash composer to a real
// repository through go-git: configuration lookup, blob hashing, submodule
// inspection, synthetic tree construction, the stash reflog, and checkout.
package gitrepo

import (
	"io"
	"path"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"

	"github.com/treelinehq/treeline/internal/diff"
)

// Repo is a repository opened for diffing and stashing.
type Repo struct {
	gg     *gogit.Repository
	fs     billy.Filesystem
	dir    string
	gitDir string
	log    logrus.FieldLogger
}

// Open opens the repository containing dir, walking up to find the .git
// directory the way the git CLI does.
func Open(dir string) (*Repo, error) {
	gg, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, errors.WrapIff(err, "opening repository at %q", dir)
	}

	r := &Repo{gg: gg, dir: dir}

	wt, err := gg.Worktree()
	if err == nil {
		r.fs = wt.Filesystem
		if rooted, ok := r.fs.(interface{ Root() string }); ok {
			r.dir = rooted.Root()
		}
	} else if !errors.Is(err, gogit.ErrIsBareRepository) {
		return nil, errors.WrapIf(err, "opening worktree")
	}

	r.gitDir = filepath.Join(r.dir, gogit.GitDirName)
	r.log = logrus.WithFields(logrus.Fields{"repo": path.Base(r.dir)})

	return r, nil
}

// GoGitRepo exposes the underlying go-git handle.
func (r *Repo) GoGitRepo() *gogit.Repository {
	return r.gg
}

// ConfigBool reads a boolean key like "core.filemode" from the repository
// configuration, falling back to defaultValue when unset or malformed.
func (r *Repo) ConfigBool(name string, defaultValue bool) bool {
	cfg, err := r.gg.Config()
	if err != nil {
		r.log.WithError(err).Debug("config unreadable, using default")
		return defaultValue
	}

	section, key, ok := strings.Cut(name, ".")
	if !ok {
		return defaultValue
	}

	for _, opt := range cfg.Raw.Section(section).Options {
		if opt.IsKey(key) {
			return parseBool(opt.Value, defaultValue)
		}
	}
	return defaultValue
}

func parseBool(raw string, defaultValue bool) bool {
	switch strings.ToLower(raw) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	}
	return defaultValue
}

func (r *Repo) Workdir() billy.Filesystem { return r.fs }
func (r *Repo) WorkdirRoot() string       { return r.dir }
func (r *Repo) IsBare() bool              { return r.fs == nil }

// Index returns the staged index.
func (r *Repo) Index() (*index.Index, error) {
	idx, err := r.gg.Storer.Index()
	if err != nil {
		return nil, errors.WrapIf(err, "reading index")
	}
	return idx, nil
}

// HashBlob computes the oid the object database would assign to the blob
// read from rd. The advisory size is ignored; filters may change the length.
func (r *Repo) HashBlob(rd io.Reader, size int64) (plumbing.Hash, error) {
	content, err := io.ReadAll(rd)
	if err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "reading blob content")
	}
	return plumbing.ComputeHash(plumbing.BlobObject, content), nil
}

// Filter returns the to-object-database filter chain for path. Content
// filters are not configured through this adapter; content is hashed as-is.
func (r *Repo) Filter(path string) (diff.Filter, error) {
	return nil, nil
}

// HeadTree resolves the tree of the commit HEAD points at.
func (r *Repo) HeadTree() (*object.Tree, error) {
	ref, err := r.gg.Head()
	if err != nil {
		return nil, errors.WrapIf(err, "resolving HEAD")
	}
	commit, err := r.gg.CommitObject(ref.Hash())
	if err != nil {
		return nil, errors.WrapIf(err, "reading HEAD commit")
	}
	return commit.Tree()
}

// TreeOf resolves a tree object by oid.
func (r *Repo) TreeOf(oid plumbing.Hash) (*object.Tree, error) {
	tree, err := r.gg.TreeObject(oid)
	if err != nil {
		return nil, errors.WrapIff(err, "reading tree %s", oid)
	}
	return tree, nil
}

// IndexToTree, WorkdirToIndex, and WorkdirToTree run the diff engine
// against this repository; together they satisfy the stash composer's
// Differ collaborator.

func (r *Repo) IndexToTree(tree plumbing.Hash, opts diff.Options) (*diff.DiffList, error) {
	t, err := r.TreeOf(tree)
	if err != nil {
		return nil, err
	}
	return diff.IndexToTree(r, t, nil, opts)
}

func (r *Repo) WorkdirToIndex(opts diff.Options) (*diff.DiffList, error) {
	return diff.WorkdirToIndex(r, nil, opts)
}

func (r *Repo) WorkdirToTree(tree plumbing.Hash, opts diff.Options) (*diff.DiffList, error) {
	t, err := r.TreeOf(tree)
	if err != nil {
		return nil, err
	}
	return diff.WorkdirToTree(r, t, opts)
}

var _ diff.Repo = (*Repo)(nil)
