package gitrepo

import (
	"io"
	"os"
	"sort"
	"strings"

	"emperror.dev/errors"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/treelinehq/treeline/internal/stash"
)

// indexState is the in-memory index the stash composer assembles synthetic
// trees with. It never touches the on-disk index; the post-save checkout
// reset rewrites that anyway.
type indexState struct {
	repo    *Repo
	entries map[string]indexEntry
}

type indexEntry struct {
	Mode filemode.FileMode
	Hash plumbing.Hash
}

func (r *Repo) newIndexState() (*indexState, error) {
	st := &indexState{repo: r, entries: map[string]indexEntry{}}

	idx, err := r.Index()
	if err != nil {
		return nil, err
	}
	if idx != nil {
		for _, e := range idx.Entries {
			st.entries[e.Name] = indexEntry{Mode: e.Mode, Hash: e.Hash}
		}
	}
	return st, nil
}

func (x *indexState) Clear() {
	x.entries = map[string]indexEntry{}
}

func (x *indexState) Remove(path string) error {
	delete(x.entries, path)
	return nil
}

// ReadTree replaces the state with the flattened contents of a tree.
func (x *indexState) ReadTree(oid plumbing.Hash) error {
	tree, err := x.repo.TreeOf(oid)
	if err != nil {
		return err
	}

	x.Clear()
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.WrapIf(err, "walking tree")
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		x.entries[name] = indexEntry{Mode: entry.Mode, Hash: entry.Hash}
	}
}

// AddFromWorkdir hashes the working-tree content at path into the object
// database and stages it.
func (x *indexState) AddFromWorkdir(path string) error {
	fs := x.repo.fs
	fi, err := fs.Lstat(path)
	if err != nil {
		return errors.WrapIff(err, "could not stat %q", path)
	}

	var content []byte
	var mode filemode.FileMode
	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := fs.Readlink(path)
		if err != nil {
			return errors.WrapIff(err, "could not read link %q", path)
		}
		content = []byte(target)
		mode = filemode.Symlink
	default:
		f, err := fs.Open(path)
		if err != nil {
			return errors.WrapIff(err, "could not open %q", path)
		}
		content, err = io.ReadAll(f)
		f.Close()
		if err != nil {
			return errors.WrapIff(err, "could not read %q", path)
		}
		mode = filemode.Regular
		if fi.Mode().Perm()&0111 != 0 {
			mode = filemode.Executable
		}
	}

	hash, err := x.repo.storeBlob(content)
	if err != nil {
		return err
	}
	x.entries[path] = indexEntry{Mode: mode, Hash: hash}
	return nil
}

// WriteTree builds the nested tree objects for the current state and
// returns the root tree's oid.
func (x *indexState) WriteTree() (plumbing.Hash, error) {
	return x.writeSubtree("")
}

// writeSubtree writes the tree for one directory prefix ("" or "a/b/").
func (x *indexState) writeSubtree(prefix string) (plumbing.Hash, error) {
	names := map[string]indexEntry{}
	dirs := map[string]bool{}

	for path, entry := range x.entries {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := path[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			dirs[rest[:i]] = true
		} else {
			names[rest] = entry
		}
	}

	treeEntries := make([]object.TreeEntry, 0, len(names)+len(dirs))
	for name, entry := range names {
		treeEntries = append(treeEntries, object.TreeEntry{
			Name: name,
			Mode: entry.Mode,
			Hash: entry.Hash,
		})
	}
	for dir := range dirs {
		sub, err := x.writeSubtree(prefix + dir + "/")
		if err != nil {
			return plumbing.ZeroHash, err
		}
		treeEntries = append(treeEntries, object.TreeEntry{
			Name: dir,
			Mode: filemode.Dir,
			Hash: sub,
		})
	}

	// Git tree order: directories sort as if their name ended with '/'.
	sort.Slice(treeEntries, func(i, j int) bool {
		return treeEntryName(treeEntries[i]) < treeEntryName(treeEntries[j])
	})

	return x.repo.storeTree(&object.Tree{Entries: treeEntries})
}

func treeEntryName(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

func (r *Repo) storeBlob(content []byte) (plumbing.Hash, error) {
	o := r.gg.Storer.NewEncodedObject()
	o.SetType(plumbing.BlobObject)
	o.SetSize(int64(len(content)))
	w, err := o.Writer()
	if err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "writing blob")
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return plumbing.ZeroHash, errors.WrapIf(err, "writing blob")
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "writing blob")
	}
	return r.gg.Storer.SetEncodedObject(o)
}

func (r *Repo) storeTree(tree *object.Tree) (plumbing.Hash, error) {
	o := r.gg.Storer.NewEncodedObject()
	if err := tree.Encode(o); err != nil {
		return plumbing.ZeroHash, errors.WrapIf(err, "encoding tree")
	}
	return r.gg.Storer.SetEncodedObject(o)
}

var _ stash.Index = (*indexState)(nil)
