package diff

// Flag bits controlling diff generation.
type Flag uint32

const (
	// Reverse swaps the old and new sides at delta construction.
	Reverse Flag = 1 << iota
	// IncludeUnmodified emits Unmodified deltas instead of dropping them.
	IncludeUnmodified
	// IncludeIgnored emits Ignored deltas.
	IncludeIgnored
	// IncludeUntracked emits Untracked deltas.
	IncludeUntracked
	// IncludeTypechange emits a single Typechange delta where the file type
	// changed, instead of a Deleted+Added pair.
	IncludeTypechange
	// IncludeTypechangeTrees additionally emits Typechange when a blob is
	// replaced by (or replaces) a whole directory. Implies IncludeTypechange.
	IncludeTypechangeTrees
	// RecurseUntrackedDirs descends into untracked directories instead of
	// reporting the directory as a single entry.
	RecurseUntrackedDirs
	// IgnoreSubmodules treats all submodule changes as Unmodified.
	IgnoreSubmodules
	// IgnoreFilemode clears the trust-mode-bits capability.
	IgnoreFilemode
	// DisablePathspecMatch restricts pathspec handling to the literal prefix.
	DisablePathspecMatch
	// DeltasAreICase stores deltas in case-folded order. Set automatically
	// when either source iterator is case-insensitive.
	DeltasAreICase
)

// Default display prefixes for the old and new sides.
const (
	DefaultOldPrefix = "a/"
	DefaultNewPrefix = "b/"
)

// Options controls a single diff invocation. The zero value is a plain
// tree-to-tree diff with default prefixes and no pathspec.
type Options struct {
	Flags Flag

	// OldPrefix and NewPrefix are display prefixes. They default to "a/" and
	// "b/", are forced to end with '/', and are swapped under Reverse.
	OldPrefix string
	NewPrefix string

	// Pathspec restricts the diff to paths matching any of these glob
	// patterns. Empty means everything.
	Pathspec []string
}

// capabilities are derived from repository configuration and are immutable
// for the life of a DiffList.
type capabilities uint32

const (
	capHasSymlinks capabilities = 1 << iota
	capAssumeUnchanged
	capTrustModeBits
	capTrustCtime
	capUseDev
)

func (c capabilities) has(bit capabilities) bool {
	return c&bit != 0
}

// resolveCapabilities reads the configuration keys that affect diff behavior.
// UseDev is never set; it mirrors a compile-time choice of core git.
func resolveCapabilities(repo Repo, flags Flag) capabilities {
	var caps capabilities
	if repo != nil {
		if repo.ConfigBool("core.symlinks", true) {
			caps |= capHasSymlinks
		}
		if repo.ConfigBool("core.ignorestat", false) {
			caps |= capAssumeUnchanged
		}
		if repo.ConfigBool("core.filemode", true) {
			caps |= capTrustModeBits
		}
		if repo.ConfigBool("core.trustctime", true) {
			caps |= capTrustCtime
		}
	} else {
		caps = capHasSymlinks | capTrustModeBits | capTrustCtime
	}

	if flags&IgnoreFilemode != 0 {
		caps &^= capTrustModeBits
	}
	return caps
}
