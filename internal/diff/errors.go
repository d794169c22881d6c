package diff

import "emperror.dev/errors"

// Error kinds surfaced by the engine. Callers match them with errors.Is;
// wrapped messages carry the offending path.
const (
	// ErrOverflow is returned when a file size exceeds the platform's
	// addressable size during hash-on-demand.
	ErrOverflow = errors.Sentinel("diff: file size overflow")

	// ErrIterator wraps a failure from a backing tree/index/workdir iterator.
	ErrIterator = errors.Sentinel("diff: iterator failed")

	// ErrFilter wraps a failure from the content filter pipeline.
	ErrFilter = errors.Sentinel("diff: filter pipeline failed")

	// ErrSubmodule wraps a submodule lookup failure during coincident
	// classification. Single-sided deltas do no submodule lookup, and a
	// lookup failure while hashing a gitlink on demand is tolerated and
	// produces a zero oid instead.
	ErrSubmodule = errors.Sentinel("diff: submodule lookup failed")

	// ErrUserAbort is returned when a consumer callback requested stop.
	ErrUserAbort = errors.Sentinel("diff: aborted by caller")
)

// kindError tags a foreign error with one of the sentinel kinds above while
// keeping the original cause available for unwrapping; errors.Is matches
// both.
type kindError struct {
	kind error
	err  error
}

func markKind(kind, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&kindError{kind: kind, err: err})
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.err}
}
