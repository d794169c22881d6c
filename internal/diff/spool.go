package diff

import "golang.org/x/exp/slices"

// spoolIterator is a materialized, re-sorted copy of another iterator. It is
// the only non-streaming step in the engine and exists solely to bridge a
// case-sensitive source into a case-folded merge-join.
type spoolIterator struct {
	entries    []*Entry
	pos        int
	srcType    SourceType
	ignoreCase bool
}

// SpoolAndSort drains src into memory and re-sorts the entries with cmp.
// The returned iterator reports the given case policy as its own.
func SpoolAndSort(src Iterator, cmp entryCompare, ignoreCase bool) (Iterator, error) {
	var entries []*Entry

	e, err := src.Current()
	if err != nil {
		return nil, err
	}
	for e != nil {
		entries = append(entries, e)
		if e, err = src.Advance(); err != nil {
			return nil, err
		}
	}

	slices.SortStableFunc(entries, func(a, b *Entry) int {
		return cmp(a, b)
	})

	return &spoolIterator{
		entries:    entries,
		srcType:    src.Type(),
		ignoreCase: ignoreCase,
	}, nil
}

func (it *spoolIterator) Current() (*Entry, error) {
	if it.pos >= len(it.entries) {
		return nil, nil
	}
	return it.entries[it.pos], nil
}

func (it *spoolIterator) Advance() (*Entry, error) {
	it.pos++
	return it.Current()
}

func (it *spoolIterator) AdvanceInto() (*Entry, error) {
	return it.Advance()
}

func (it *spoolIterator) CurrentWorkdirPath() string { return "" }
func (it *spoolIterator) CurrentIsIgnored() bool     { return false }
func (it *spoolIterator) Type() SourceType           { return it.srcType }
func (it *spoolIterator) IgnoreCase() bool           { return it.ignoreCase }
