package diff

import (
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// Repo is the slice of a repository the engine needs: configuration lookup,
// the working directory, submodule inspection, and blob hashing. Concrete
// implementations live outside the engine (see internal/gitrepo).
type Repo interface {
	// ConfigBool reads a boolean configuration key, returning defaultValue
	// if the key is unset or unreadable.
	ConfigBool(name string, defaultValue bool) bool

	// Workdir returns the working-directory filesystem, or nil for a bare
	// repository.
	Workdir() billy.Filesystem

	// WorkdirRoot returns the absolute path of the working directory, or ""
	// for a bare repository.
	WorkdirRoot() string

	// Index returns the repository's current staged index.
	Index() (*index.Index, error)

	// Submodule looks up the submodule rooted at path.
	Submodule(path string) (Submodule, error)

	// HashBlob computes the content identity of a blob read from r.
	HashBlob(r io.Reader, size int64) (plumbing.Hash, error)

	// Filter loads the to-object-database filter chain for path. A nil
	// filter means the content is hashed as-is.
	Filter(path string) (Filter, error)
}

// Filter transforms working-tree content into its object-database form
// (e.g. line-ending normalization) before hashing.
type Filter interface {
	Apply(r io.Reader) (io.Reader, error)
}

// SubmoduleIgnore is a submodule's configured ignore policy.
type SubmoduleIgnore int

const (
	SubmoduleIgnoreNone SubmoduleIgnore = iota
	SubmoduleIgnoreUntracked
	SubmoduleIgnoreDirty
	SubmoduleIgnoreAll
)

// SubmoduleStatus is a bitset of observed submodule changes.
type SubmoduleStatus uint32

const (
	SubmoduleStatusWdModified SubmoduleStatus = 1 << iota
	SubmoduleStatusWdIndexModified
	SubmoduleStatusWdWdModified
	SubmoduleStatusWdUntracked
)

// IsUnmodified reports whether the status carries no change bits.
func (s SubmoduleStatus) IsUnmodified() bool {
	return s == 0
}

// Submodule is the view of a submodule the classifier consults.
type Submodule interface {
	Ignore() SubmoduleIgnore
	Status() (SubmoduleStatus, error)

	// WorkdirOID returns the commit currently checked out in the
	// submodule's working directory, if it can be resolved.
	WorkdirOID() (plumbing.Hash, bool)
}
