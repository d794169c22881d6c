package diff

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// Status classifies a single delta. The numeric order is significant: it
// breaks ties when deltas on the same path are sorted, and Deleted precedes
// Added so that a split typechange pair is emitted already in order.
type Status int

const (
	Unmodified Status = iota
	Deleted
	Added
	Modified
	Ignored
	Untracked
	Typechange
)

func (s Status) String() string {
	switch s {
	case Unmodified:
		return "unmodified"
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	case Ignored:
		return "ignored"
	case Untracked:
		return "untracked"
	case Typechange:
		return "typechange"
	}
	return "invalid"
}

// Letter returns the single-character code used by name-status output.
func (s Status) Letter() byte {
	switch s {
	case Added:
		return 'A'
	case Deleted:
		return 'D'
	case Modified:
		return 'M'
	case Ignored:
		return 'I'
	case Untracked:
		return '?'
	case Typechange:
		return 'T'
	}
	return ' '
}

// FileSide describes one side of a delta. ValidOID reports whether OID can
// be trusted: the old side of a two-sided delta always has it set, the new
// side only once an oid was supplied or computed.
type FileSide struct {
	Path     string
	Mode     filemode.FileMode
	Size     int64
	OID      plumbing.Hash
	ValidOID bool
}

// Delta is one record of the diff output. Old.Path and New.Path are always
// equal at construction; rename detection is out of scope for the engine.
type Delta struct {
	Status Status
	Old    FileSide
	New    FileSide
}

// Path returns the path the delta applies to.
func (d *Delta) Path() string {
	return d.Old.Path
}
