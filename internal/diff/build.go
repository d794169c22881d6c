package diff

import (
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/sirupsen/logrus"

	"github.com/treelinehq/treeline/internal/utils/logutils"
)

// initComparators picks the case policy for the merge-join and the delta
// ordering. If either iterator folds case, everything folds case.
func (d *DiffList) initComparators(oldIter, newIter Iterator) {
	d.oldSrc = oldIter.Type()
	d.newSrc = newIter.Type()

	if !oldIter.IgnoreCase() && !newIter.IgnoreCase() {
		d.opts.Flags &^= DeltasAreICase

		d.strcomp = strCmp
		d.strncomp = strNCmp
		d.pfxcomp = prefixCmp
		d.entrycomp = entryCmp
	} else {
		d.opts.Flags |= DeltasAreICase

		d.strcomp = strCaseCmp
		d.strncomp = strNCaseCmp
		d.pfxcomp = prefixCaseCmp
		d.entrycomp = entryCaseCmp
	}
}

// entryIsPrefixed reports whether prefixItem sits inside the subtree rooted
// at item's path: prefixItem's path starts with item's path under the active
// comparator, and item's path ends in '/' or is followed in prefixItem's
// path by '/' or the end of the string.
func (d *DiffList) entryIsPrefixed(item, prefixItem *Entry) bool {
	if prefixItem == nil || d.pfxcomp(prefixItem.Path, item.Path) != 0 {
		return false
	}

	pathlen := len(item.Path)

	return item.Path[pathlen-1] == '/' ||
		len(prefixItem.Path) == pathlen ||
		prefixItem.Path[pathlen] == '/'
}

// dirContainsGitDir reports whether the workdir directory at path holds a
// .git entry, which stops recursion into untracked directories.
func (d *DiffList) dirContainsGitDir(path string) bool {
	if d.repo == nil {
		return false
	}
	fs := d.repo.Workdir()
	if fs == nil {
		return false
	}
	_, err := fs.Stat(fs.Join(path, ".git"))
	return err == nil
}

// buildFromIterators runs the merge-join over the two iterators, emitting
// deltas into the list. On error the caller discards the partially built
// list; no partially populated DiffList is ever published.
func (d *DiffList) buildFromIterators(oldIter, newIter Iterator) error {
	d.initComparators(oldIter, newIter)

	d.log.WithFields(logrus.Fields{
		"old":   d.oldSrc,
		"new":   d.newSrc,
		"flags": logutils.Format("%#x", uint32(d.opts.Flags)),
	}).Debug("starting merge-join")

	// If exactly one iterator is case-sensitive, it is spooled into memory
	// and re-sorted case-insensitively so the merge-join sees one ordering.
	if d.opts.Flags&DeltasAreICase != 0 {
		var err error
		if !oldIter.IgnoreCase() {
			d.log.Debug("spooling old iterator for case-insensitive join")
			if oldIter, err = SpoolAndSort(oldIter, d.entrycomp, true); err != nil {
				return markKind(ErrIterator, err)
			}
		}
		if !newIter.IgnoreCase() {
			d.log.Debug("spooling new iterator for case-insensitive join")
			if newIter, err = SpoolAndSort(newIter, d.entrycomp, true); err != nil {
				return markKind(ErrIterator, err)
			}
		}
	}

	oitem, err := oldIter.Current()
	if err != nil {
		return markKind(ErrIterator, err)
	}
	nitem, err := newIter.Current()
	if err != nil {
		return markKind(ErrIterator, err)
	}

	// Path of the deepest known-ignored ancestor directory, or "".
	ignorePrefix := ""

	for oitem != nil || nitem != nil {
		switch {
		// Old entries with no counterpart in new become deletions.
		case oitem != nil && (nitem == nil || d.entrycomp(oitem, nitem) < 0):
			d.deltaFromOne(Deleted, oitem)

			// If the new iterator is already inside the subtree rooted at
			// this path, the file became a tree.
			if d.opts.Flags&IncludeTypechangeTrees != 0 &&
				d.entryIsPrefixed(oitem, nitem) {
				if last := d.lastDeltaForItem(oitem); last != nil {
					last.Status = Typechange
					last.New.Mode = filemode.Dir
				}
			}

			if oitem, err = oldIter.Advance(); err != nil {
				return markKind(ErrIterator, err)
			}

		// New entries with no counterpart in old become additions,
		// untracked, or ignored records (and may require descending).
		case nitem != nil && (oitem == nil || d.entrycomp(oitem, nitem) > 0):
			deltaType := Untracked

			// Contained in an ignored parent directory?
			if ignorePrefix != "" && d.pfxcomp(nitem.Path, ignorePrefix) == 0 {
				deltaType = Ignored
			}

			if modeIsDir(nitem.Mode) {
				// Descend only if there are tracked items inside, or if the
				// caller asked for the contents of untracked directories and
				// the directory is not under an ignored one.
				containsTracked := d.entryIsPrefixed(nitem, oitem)
				recurseUntracked := deltaType == Untracked &&
					d.opts.Flags&RecurseUntrackedDirs != 0

				// Do not recurse into untracked directories that hold a .git
				// entry; directories with tracked contents are still entered.
				if !containsTracked && recurseUntracked &&
					d.dirContainsGitDir(nitem.Path) {
					recurseUntracked = false
				}

				if containsTracked || recurseUntracked {
					if deltaType == Untracked && newIter.CurrentIsIgnored() {
						ignorePrefix = nitem.Path
					}
					if nitem, err = newIter.AdvanceInto(); err != nil {
						return markKind(ErrIterator, err)
					}
					continue
				}
			} else if deltaType == Ignored {
				// Ignored parent directory: skip the entry completely. This
				// deliberately takes precedence over per-file ignore rules;
				// see the package documentation before changing it.
				if nitem, err = newIter.Advance(); err != nil {
					return markKind(ErrIterator, err)
				}
				continue
			} else if newIter.CurrentIsIgnored() {
				deltaType = Ignored
			} else if newIter.Type() != SourceWorkdir {
				deltaType = Added
			}

			d.deltaFromOne(deltaType, nitem)

			// If the old iterator is inside this subtree, the tree replaced
			// a file there.
			if deltaType != Ignored &&
				d.opts.Flags&IncludeTypechangeTrees != 0 &&
				d.entryIsPrefixed(nitem, oitem) {
				if last := d.lastDeltaForItem(oitem); last != nil {
					last.Status = Typechange
					last.Old.Mode = filemode.Dir
				}
			}

			if nitem, err = newIter.Advance(); err != nil {
				return markKind(ErrIterator, err)
			}

		// Coincident paths: classify.
		default:
			if err := d.maybeModified(oitem, newIter, nitem); err != nil {
				return err
			}
			if oitem, err = oldIter.Advance(); err != nil {
				return markKind(ErrIterator, err)
			}
			if nitem, err = newIter.Advance(); err != nil {
				return markKind(ErrIterator, err)
			}
		}
	}

	return nil
}
