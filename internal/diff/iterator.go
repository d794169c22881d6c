package diff

// Iterator is an ordered producer of entries from a tree, index, or working
// directory. Entries are delivered in ascending path order under the
// iterator's own case policy. Sources that can descend into directories on
// demand (the workdir) deliver a directory entry before its contents; leaf
// sources (tree, index) deliver a flat, already expanded sequence.
type Iterator interface {
	// Current returns the entry at the cursor, or nil at the end.
	Current() (*Entry, error)

	// Advance steps to the next entry in sorted order.
	Advance() (*Entry, error)

	// AdvanceInto descends into the current entry when it is a directory.
	// For sources that cannot descend it is equivalent to Advance.
	AdvanceInto() (*Entry, error)

	// CurrentWorkdirPath returns the absolute filesystem path of the current
	// entry for workdir sources, and "" otherwise.
	CurrentWorkdirPath() string

	// CurrentIsIgnored reports whether the current entry matches an ignore
	// pattern. Always false for non-workdir sources.
	CurrentIsIgnored() bool

	Type() SourceType
	IgnoreCase() bool
}
