package diff

import (
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// DiffList is the result of a diff: a sorted, append-only sequence of deltas
// plus everything needed to interpret them (options, capabilities, the
// comparator set, and the interning pool backing every path).
//
// A DiffList is built single-threaded and is read-only once published,
// except that Merge folds another list's deltas into it.
// Reference counting shares the built list across consumers; it does not
// permit concurrent mutation.
type DiffList struct {
	repo Repo
	opts Options
	caps capabilities

	pool     *stringPool
	deltas   []*Delta
	pathspec *Pathspec

	strcomp   strCompare
	strncomp  strNCompare
	pfxcomp   pfxCompare
	entrycomp entryCompare

	oldSrc SourceType
	newSrc SourceType

	refs int32
	log  logrus.FieldLogger
}

func newDiffList(repo Repo, opts Options) *DiffList {
	d := &DiffList{
		repo: repo,
		opts: opts,
		pool: newStringPool(),
		refs: 1,
		log:  logrus.WithField("component", "diff"),
	}

	d.caps = resolveCapabilities(repo, opts.Flags)

	// IncludeTypechangeTrees implies IncludeTypechange.
	if d.opts.Flags&IncludeTypechangeTrees != 0 {
		d.opts.Flags |= IncludeTypechange
	}

	d.opts.OldPrefix = d.internPrefix(opts.OldPrefix, DefaultOldPrefix)
	d.opts.NewPrefix = d.internPrefix(opts.NewPrefix, DefaultNewPrefix)
	if d.opts.Flags&Reverse != 0 {
		d.opts.OldPrefix, d.opts.NewPrefix = d.opts.NewPrefix, d.opts.OldPrefix
	}

	d.pathspec = NewPathspec(opts.Pathspec)

	return d
}

// internPrefix normalizes a display prefix: defaulted, '/'-terminated, and
// owned by the list's pool.
func (d *DiffList) internPrefix(prefix, fallback string) string {
	if prefix == "" {
		prefix = fallback
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return d.pool.intern(prefix)
}

// Options returns the normalized options the list was built with.
func (d *DiffList) Options() Options {
	return d.opts
}

// OldSource and NewSource report the origin of each side's entries.
func (d *DiffList) OldSource() SourceType { return d.oldSrc }
func (d *DiffList) NewSource() SourceType { return d.newSrc }

// NumDeltas returns the number of deltas in the list.
func (d *DiffList) NumDeltas() int {
	return len(d.deltas)
}

// Delta returns the i-th delta in sorted order.
func (d *DiffList) Delta(i int) *Delta {
	return d.deltas[i]
}

// Deltas returns the underlying delta slice. Callers must not mutate it.
func (d *DiffList) Deltas() []*Delta {
	return d.deltas
}

// Foreach invokes cb for every delta in order, honoring the include flags.
// A non-nil error from cb aborts the walk and is returned wrapped in
// ErrUserAbort.
func (d *DiffList) Foreach(cb func(*Delta) error) error {
	for _, delta := range d.deltas {
		if shouldSkip(&d.opts, delta) {
			continue
		}
		if err := cb(delta); err != nil {
			return markKind(ErrUserAbort, err)
		}
	}
	return nil
}

// Retain adds a reference to the list.
func (d *DiffList) Retain() *DiffList {
	atomic.AddInt32(&d.refs, 1)
	return d
}

// Free drops a reference; the last release discards the deltas, the pool,
// and the pathspec.
func (d *DiffList) Free() {
	if d == nil {
		return
	}
	if atomic.AddInt32(&d.refs, -1) > 0 {
		return
	}
	d.deltas = nil
	d.pathspec = nil
	if d.pool != nil {
		d.pool.clear()
		d.pool = nil
	}
}

// deltaCmp orders deltas by (old path, status) under the list's comparator.
func (d *DiffList) deltaCmp(a, b *Delta) int {
	if v := d.strcomp(a.Old.Path, b.Old.Path); v != 0 {
		return v
	}
	return int(a.Status) - int(b.Status)
}

// lastDeltaForItem returns the most recently appended delta iff its
// surviving-side oid matches the probed item. Appends happen in sorted path
// order and a subtree's root precedes its contents, which is what makes this
// lookup sound for the typechange rewrite.
func (d *DiffList) lastDeltaForItem(item *Entry) *Delta {
	if len(d.deltas) == 0 {
		return nil
	}
	last := d.deltas[len(d.deltas)-1]

	switch last.Status {
	case Unmodified, Deleted:
		if last.Old.OID == item.OID {
			return last
		}
	case Added:
		if last.New.OID == item.OID {
			return last
		}
	case Modified:
		if last.Old.OID == item.OID || last.New.OID == item.OID {
			return last
		}
	}
	return nil
}

// shouldSkip enforces the include flags for a delta's status kind.
func shouldSkip(opts *Options, delta *Delta) bool {
	switch delta.Status {
	case Unmodified:
		return opts.Flags&IncludeUnmodified == 0
	case Ignored:
		return opts.Flags&IncludeIgnored == 0
	case Untracked:
		return opts.Flags&IncludeUntracked == 0
	}
	return false
}

// Merge folds the deltas of other into d. On coincident paths the delta from
// other supersedes the one already present; the result remains sorted under
// d's comparator. It is used to compose a full worktree diff from an
// index-to-tree diff and a workdir-to-index diff.
func (d *DiffList) Merge(other *DiffList) {
	if other == nil || len(other.deltas) == 0 {
		return
	}

	merged := make([]*Delta, 0, len(d.deltas)+len(other.deltas))
	i, j := 0, 0
	for i < len(d.deltas) && j < len(other.deltas) {
		v := d.strcomp(d.deltas[i].Old.Path, other.deltas[j].Old.Path)
		switch {
		case v < 0:
			merged = append(merged, d.deltas[i])
			i++
		case v > 0:
			merged = append(merged, d.rewriteDelta(other.deltas[j]))
			j++
		default:
			merged = append(merged, d.rewriteDelta(other.deltas[j]))
			i++
			j++
		}
	}
	for ; i < len(d.deltas); i++ {
		merged = append(merged, d.deltas[i])
	}
	for ; j < len(other.deltas); j++ {
		merged = append(merged, d.rewriteDelta(other.deltas[j]))
	}
	d.deltas = merged
}

// rewriteDelta re-interns a foreign delta's paths into d's pool so the merged
// list keeps the aliasing invariant.
func (d *DiffList) rewriteDelta(src *Delta) *Delta {
	cp := *src
	cp.Old.Path = d.pool.intern(src.Old.Path)
	cp.New.Path = d.pool.intern(src.New.Path)
	return &cp
}
