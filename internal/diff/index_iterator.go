package diff

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// indexIterator adapts the staged index, which is already flat and sorted.
type indexIterator struct {
	entries    []*Entry
	pos        int
	ignoreCase bool
}

// NewIndexIterator wraps the given index restricted to the literal prefix.
func NewIndexIterator(idx *index.Index, prefix string, ignoreCase bool) Iterator {
	it := &indexIterator{ignoreCase: ignoreCase}
	if idx == nil {
		return it
	}

	for _, src := range idx.Entries {
		if prefix != "" && !strings.HasPrefix(src.Name, prefix) {
			continue
		}

		e := &Entry{
			Path:  src.Name,
			Mode:  src.Mode,
			Size:  int64(src.Size),
			OID:   src.Hash,
			CTime: src.CreatedAt,
			MTime: src.ModifiedAt,
			Dev:   src.Dev,
			Ino:   src.Inode,
			UID:   src.UID,
			GID:   src.GID,
		}
		if src.IntentToAdd {
			e.Flags |= FlagIntentToAdd
		}
		if src.SkipWorktree {
			e.Flags |= FlagSkipWorktree
		}
		it.entries = append(it.entries, e)
	}

	return it
}

func (it *indexIterator) Current() (*Entry, error) {
	if it.pos >= len(it.entries) {
		return nil, nil
	}
	return it.entries[it.pos], nil
}

func (it *indexIterator) Advance() (*Entry, error) {
	it.pos++
	return it.Current()
}

func (it *indexIterator) AdvanceInto() (*Entry, error) {
	return it.Advance()
}

func (it *indexIterator) CurrentWorkdirPath() string { return "" }
func (it *indexIterator) CurrentIsIgnored() bool     { return false }
func (it *indexIterator) Type() SourceType           { return SourceIndex }
func (it *indexIterator) IgnoreCase() bool           { return it.ignoreCase }
