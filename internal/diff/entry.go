package diff

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// EntryFlags carries the extended index bits that influence classification.
type EntryFlags uint16

const (
	// FlagIntentToAdd marks an entry staged with `add -N`; the blob content
	// is not in the index yet.
	FlagIntentToAdd EntryFlags = 1 << iota
	// FlagSkipWorktree marks an entry whose working-tree state must be
	// treated as unmodified (sparse checkout).
	FlagSkipWorktree
)

// Entry is a single name at one version of a tree: path plus mode, size,
// content identity, and (for index and workdir sources) stat metadata.
//
// Path always uses '/' as the separator. A zero OID means "not yet hashed";
// the classifier computes it on demand.
type Entry struct {
	Path string
	Mode filemode.FileMode
	Size int64
	OID  plumbing.Hash

	CTime time.Time
	MTime time.Time
	Dev   uint32
	Ino   uint32
	UID   uint32
	GID   uint32

	Flags EntryFlags
}

// modeTypeMask extracts the file-type bits of a git mode (S_IFMT).
const modeTypeMask = 0170000

// modePermMask extracts the low permission bits of a git mode.
const modePermMask = 0000777

func modeType(m filemode.FileMode) uint32 {
	return uint32(m) & modeTypeMask
}

func modeIsDir(m filemode.FileMode) bool {
	return m == filemode.Dir
}

func modeIsSubmodule(m filemode.FileMode) bool {
	return m == filemode.Submodule
}

func modeIsSymlink(m filemode.FileMode) bool {
	return m == filemode.Symlink
}

func modeIsRegular(m filemode.FileMode) bool {
	return modeType(m) == modeType(filemode.Regular)
}

// SourceType tags the origin of an iterator's entries.
type SourceType int

const (
	SourceTree SourceType = iota
	SourceIndex
	SourceWorkdir
)

func (t SourceType) String() string {
	switch t {
	case SourceTree:
		return "tree"
	case SourceIndex:
		return "index"
	case SourceWorkdir:
		return "workdir"
	}
	return "unknown"
}
