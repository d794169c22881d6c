package diff

import (
	"io"
	"strings"

	"emperror.dev/errors"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/exp/slices"
)

// treeIterator is a flat, pre-expanded walk over a committed tree. Tree
// objects do not record blob sizes, so Size is always zero; the classifier
// never consults it when the oid is known.
type treeIterator struct {
	entries []*Entry
	pos     int
}

// NewTreeIterator materializes the leaf entries of tree (blobs, symlinks,
// gitlinks) in ascending path order, restricted to the given literal prefix.
// A nil tree yields an empty iterator.
func NewTreeIterator(tree *object.Tree, prefix string) (Iterator, error) {
	it := &treeIterator{}
	if tree == nil {
		return it, nil
	}

	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapIf(err, "walking tree")
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		it.entries = append(it.entries, &Entry{
			Path: name,
			Mode: entry.Mode,
			OID:  entry.Hash,
		})
	}

	// Tree storage order and flattened byte order agree except for exotic
	// names; sort to guarantee the merge-join's ordering contract.
	slices.SortFunc(it.entries, entryCmp)

	return it, nil
}

func (it *treeIterator) Current() (*Entry, error) {
	if it.pos >= len(it.entries) {
		return nil, nil
	}
	return it.entries[it.pos], nil
}

func (it *treeIterator) Advance() (*Entry, error) {
	it.pos++
	return it.Current()
}

func (it *treeIterator) AdvanceInto() (*Entry, error) {
	return it.Advance()
}

func (it *treeIterator) CurrentWorkdirPath() string { return "" }
func (it *treeIterator) CurrentIsIgnored() bool     { return false }
func (it *treeIterator) Type() SourceType           { return SourceTree }
func (it *treeIterator) IgnoreCase() bool           { return false }
