package diff

import (
	"io"
	"strings"

	"emperror.dev/errors"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// maybeModified decides what delta (if any) a coincident pair of entries
// produces: Unmodified, Modified, Typechange, or a split Deleted+Added pair
// when type changed and Typechange records were not requested.
//
// The stat-tuple fast path runs before the new oid is known; with
// deliberately stale stat metadata (assume-unchanged workflows) it can mask
// genuine modifications. That matches the behavior of the original engine
// and is kept intentionally.
func (d *DiffList) maybeModified(oitem *Entry, newIter Iterator, nitem *Entry) error {
	if !d.matchPathspec(oitem.Path) {
		return nil
	}

	var (
		status       = Modified
		omode        = oitem.Mode
		nmode        = nitem.Mode
		newOID       *plumbing.Hash
		newIsWorkdir = newIter.Type() == SourceWorkdir
	)

	// On platforms with no symlinks, preserve the mode of existing symlinks.
	if modeIsSymlink(omode) && modeIsRegular(nmode) && newIsWorkdir &&
		!d.caps.has(capHasSymlinks) {
		nmode = omode
	}

	// On platforms with untrustworthy mode bits, preserve the old low bits.
	if !d.caps.has(capTrustModeBits) &&
		uint32(nmode)&modePermMask != uint32(omode)&modePermMask &&
		newIsWorkdir {
		nmode = filemode.FileMode(uint32(nmode)&^modePermMask | uint32(omode)&modePermMask)
	}

	switch {
	// "Assume unchanged": everything is unmodified except intent-to-add.
	case d.caps.has(capAssumeUnchanged):
		if oitem.Flags&FlagIntentToAdd != 0 {
			status = Modified
		} else {
			status = Unmodified
		}

	// "Skip worktree" index bit.
	case oitem.Flags&FlagSkipWorktree != 0:
		status = Unmodified

	// Basic file type changed: either a Typechange record or a split pair.
	case modeType(omode) != modeType(nmode):
		if d.opts.Flags&IncludeTypechange != 0 {
			status = Typechange
		} else {
			d.deltaFromOne(Deleted, oitem)
			d.deltaFromOne(Added, nitem)
			return nil
		}

	// Matching oids and modes: unmodified.
	case oitem.OID == nitem.OID && omode == nmode:
		status = Unmodified

	// Unknown new oid from a workdir iterator: try the stat tuple, then the
	// submodule subsystem.
	case nitem.OID.IsZero() && newIsWorkdir:
		if d.statTupleMatches(oitem, nitem, omode, nmode) {
			status = Unmodified
		} else if modeIsSubmodule(nmode) {
			var err error
			if status, newOID, err = d.classifySubmodule(nitem); err != nil {
				return err
			}
		}
	}

	// If the entries look modified but the new oid is still unknown,
	// compute it now and re-check for equality.
	if status != Unmodified && nitem.OID.IsZero() {
		if newOID == nil {
			oid, err := d.oidForFile(nitem.Path, nitem.Mode, nitem.Size)
			if err != nil {
				return err
			}
			newOID = &oid
		}
		if omode == nmode && oitem.OID == *newOID {
			status = Unmodified
		}
	}

	d.deltaFromTwo(status, oitem, omode, nitem, nmode, newOID)
	return nil
}

// statTupleMatches reports whether the cached stat data of the old entry
// exactly matches the new entry's. Which fields participate depends on the
// trust-ctime and use-dev capabilities.
func (d *DiffList) statTupleMatches(oitem, nitem *Entry, omode, nmode filemode.FileMode) bool {
	return omode == nmode &&
		oitem.Size == nitem.Size &&
		(!d.caps.has(capTrustCtime) || oitem.CTime.Unix() == nitem.CTime.Unix()) &&
		oitem.MTime.Unix() == nitem.MTime.Unix() &&
		(!d.caps.has(capUseDev) || oitem.Dev == nitem.Dev) &&
		oitem.Ino == nitem.Ino &&
		oitem.UID == nitem.UID &&
		oitem.GID == nitem.GID
}

// classifySubmodule consults the submodule subsystem for a gitlink whose
// workdir oid is unknown. Lookup failures here are fatal; during one-sided
// hashing they are tolerated instead (see oidForFile).
func (d *DiffList) classifySubmodule(nitem *Entry) (Status, *plumbing.Hash, error) {
	if d.opts.Flags&IgnoreSubmodules != 0 {
		return Unmodified, nil, nil
	}

	sub, err := d.repo.Submodule(nitem.Path)
	if err != nil {
		return Modified, nil, markKind(ErrSubmodule, errors.WrapIff(err, "looking up submodule %q", nitem.Path))
	}

	if sub.Ignore() == SubmoduleIgnoreAll {
		return Unmodified, nil, nil
	}

	smStatus, err := sub.Status()
	if err != nil {
		return Modified, nil, markKind(ErrSubmodule, errors.WrapIff(err, "status of submodule %q", nitem.Path))
	}

	status := Modified
	if smStatus.IsUnmodified() {
		status = Unmodified
	}

	// Grab the workdir oid while we are here.
	if oid, ok := sub.WorkdirOID(); ok {
		return status, &oid, nil
	}
	return status, nil, nil
}

// oidForFile computes the content identity of the working-tree entry at
// path: the submodule head for gitlinks, the hashed link target for
// symlinks, and the filtered blob hash for regular files.
func (d *DiffList) oidForFile(path string, mode filemode.FileMode, size int64) (plumbing.Hash, error) {
	fs := d.repo.Workdir()
	if fs == nil {
		return plumbing.ZeroHash, errors.New("diff: repository has no working directory")
	}

	if mode == 0 {
		fi, err := fs.Lstat(path)
		if err != nil {
			return plumbing.ZeroHash, errors.WrapIff(err, "could not stat %q", path)
		}
		mode = fileModeFromOS(fi)
		size = fi.Size()
	}

	switch {
	case modeIsSubmodule(mode):
		// A submodule that cannot be looked up is probably in a transient
		// init state; report a zero oid instead of failing.
		sub, err := d.repo.Submodule(path)
		if err != nil {
			d.log.WithField("path", path).WithError(err).
				Warn("submodule lookup failed, using zero oid")
			return plumbing.ZeroHash, nil
		}
		if oid, ok := sub.WorkdirOID(); ok {
			return oid, nil
		}
		return plumbing.ZeroHash, nil

	case modeIsSymlink(mode):
		target, err := fs.Readlink(path)
		if err != nil {
			return plumbing.ZeroHash, errors.WrapIff(err, "could not read link %q", path)
		}
		return d.repo.HashBlob(strings.NewReader(target), int64(len(target)))

	default:
		if int64(int(size)) != size {
			return plumbing.ZeroHash, markKind(ErrOverflow,
				errors.Errorf("file size overflow on %q", path))
		}

		filter, err := d.repo.Filter(path)
		if err != nil {
			return plumbing.ZeroHash, markKind(ErrFilter, err)
		}

		f, err := fs.Open(path)
		if err != nil {
			return plumbing.ZeroHash, errors.WrapIff(err, "could not open %q", path)
		}
		defer f.Close()

		content := io.Reader(f)
		if filter != nil {
			if content, err = filter.Apply(content); err != nil {
				return plumbing.ZeroHash, markKind(ErrFilter, err)
			}
		}
		return d.repo.HashBlob(content, size)
	}
}
