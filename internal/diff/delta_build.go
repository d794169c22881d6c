package diff

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// newDelta allocates a delta with both sides pointing at the interned path.
// Reverse is applied here: Added and Deleted swap, everything else is left
// alone.
func (d *DiffList) newDelta(status Status, path string) *Delta {
	interned := d.pool.intern(path)

	if d.opts.Flags&Reverse != 0 {
		switch status {
		case Added:
			status = Deleted
		case Deleted:
			status = Added
		}
	}

	return &Delta{
		Status: status,
		Old:    FileSide{Path: interned},
		New:    FileSide{Path: interned},
	}
}

// deltaFromOne emits a single-sided delta (Deleted, Added, Untracked, or
// Ignored) for an entry present on only one side.
func (d *DiffList) deltaFromOne(status Status, e *Entry) {
	if status == Ignored && d.opts.Flags&IncludeIgnored == 0 {
		return
	}
	if status == Untracked && d.opts.Flags&IncludeUntracked == 0 {
		return
	}

	if !d.matchPathspec(e.Path) {
		return
	}

	delta := d.newDelta(status, e.Path)

	if delta.Status == Deleted {
		delta.Old.Mode = e.Mode
		delta.Old.Size = e.Size
		delta.Old.OID = e.OID
	} else {
		delta.New.Mode = e.Mode
		delta.New.Size = e.Size
		delta.New.OID = e.OID
	}

	delta.Old.ValidOID = true
	if delta.Status == Deleted || !delta.New.OID.IsZero() {
		delta.New.ValidOID = true
	}

	d.deltas = append(d.deltas, delta)
}

// deltaFromTwo emits a two-sided delta for coincident entries. newOID, when
// non-nil, is the oid computed on demand for the new side; under Reverse it
// lands on the old side instead.
func (d *DiffList) deltaFromTwo(
	status Status,
	oitem *Entry, omode filemode.FileMode,
	nitem *Entry, nmode filemode.FileMode,
	newOID *plumbing.Hash,
) {
	if status == Unmodified && d.opts.Flags&IncludeUnmodified == 0 {
		return
	}

	reverse := d.opts.Flags&Reverse != 0
	if reverse {
		oitem, nitem = nitem, oitem
		omode, nmode = nmode, omode
	}

	delta := d.newDelta(status, oitem.Path)

	delta.Old.OID = oitem.OID
	delta.Old.Size = oitem.Size
	delta.Old.Mode = omode
	delta.Old.ValidOID = true

	delta.New.OID = nitem.OID
	delta.New.Size = nitem.Size
	delta.New.Mode = nmode

	if newOID != nil {
		if reverse {
			delta.Old.OID = *newOID
		} else {
			delta.New.OID = *newOID
		}
	}

	if newOID != nil || !nitem.OID.IsZero() {
		delta.New.ValidOID = true
	}

	d.deltas = append(d.deltas, delta)
}

func (d *DiffList) matchPathspec(path string) bool {
	return d.pathspec.Match(
		path,
		d.opts.Flags&DisablePathspecMatch != 0,
		d.opts.Flags&DeltasAreICase != 0,
	)
}
