// Package difftest provides in-memory fakes for exercising the diff engine
// without a real repository: a scripted iterator and a configurable repo.
package difftest

import (
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"

	"github.com/treelinehq/treeline/internal/diff"
)

// BlobOID derives a deterministic content identity from content, the same
// way a real object database would: same content, same oid.
func BlobOID(content string) plumbing.Hash {
	return plumbing.ComputeHash(plumbing.BlobObject, []byte(content))
}

// File is a shorthand entry constructor for a regular file with a known oid.
func File(path, content string) *diff.Entry {
	return &diff.Entry{
		Path: path,
		Mode: filemode.Regular,
		Size: int64(len(content)),
		OID:  BlobOID(content),
	}
}

// Iter is a scripted iterator over a fixed entry list.
type Iter struct {
	entries []*diff.Entry
	pos     int

	SourceType  diff.SourceType
	ICase       bool
	IgnoredFn   func(e *diff.Entry) bool
	WorkdirRoot string

	expanded map[string]bool
}

// NewIter builds an iterator over entries, sorted by path. Directory
// entries (paths ending in '/') are delivered before their contents and are
// only expanded through AdvanceInto, matching the workdir contract.
func NewIter(srcType diff.SourceType, entries ...*diff.Entry) *Iter {
	it := &Iter{SourceType: srcType}

	// Leaf sources are flat: drop directory markers and pre-expand.
	flat := srcType != diff.SourceWorkdir
	for _, e := range entries {
		if flat && strings.HasSuffix(e.Path, "/") {
			continue
		}
		it.entries = append(it.entries, e)
	}
	sort.Slice(it.entries, func(i, j int) bool {
		return it.entries[i].Path < it.entries[j].Path
	})

	return it
}

// visible hides entries below unexpanded directories: the engine sees a
// directory entry first and only its contents after AdvanceInto.
func (it *Iter) visible() []*diff.Entry {
	var out []*diff.Entry
	var skipPrefix string
	for _, e := range it.entries {
		if skipPrefix != "" && strings.HasPrefix(e.Path, skipPrefix) {
			continue
		}
		skipPrefix = ""
		if strings.HasSuffix(e.Path, "/") && !it.expanded[e.Path] {
			skipPrefix = e.Path
		}
		out = append(out, e)
	}
	return out
}

func (it *Iter) Current() (*diff.Entry, error) {
	vis := it.visible()
	if it.pos >= len(vis) {
		return nil, nil
	}
	return vis[it.pos], nil
}

func (it *Iter) Advance() (*diff.Entry, error) {
	it.pos++
	return it.Current()
}

func (it *Iter) AdvanceInto() (*diff.Entry, error) {
	cur, _ := it.Current()
	if cur == nil || !strings.HasSuffix(cur.Path, "/") {
		return it.Advance()
	}
	if it.expanded == nil {
		it.expanded = map[string]bool{}
	}
	it.expanded[cur.Path] = true
	return it.Advance()
}

func (it *Iter) CurrentWorkdirPath() string {
	cur, _ := it.Current()
	if cur == nil || it.SourceType != diff.SourceWorkdir {
		return ""
	}
	return it.WorkdirRoot + "/" + strings.TrimSuffix(cur.Path, "/")
}

func (it *Iter) CurrentIsIgnored() bool {
	cur, _ := it.Current()
	if cur == nil || it.IgnoredFn == nil {
		return false
	}
	return it.IgnoredFn(cur)
}

func (it *Iter) Type() diff.SourceType { return it.SourceType }
func (it *Iter) IgnoreCase() bool      { return it.ICase }

// Repo is a configurable in-memory diff.Repo.
type Repo struct {
	Config     map[string]bool
	FS         billy.Filesystem
	Root       string
	Idx        *index.Index
	Submodules map[string]*Submodule
	FilterFn   func(path string) (diff.Filter, error)
}

// NewRepo returns a fake repo with an empty memfs working directory and
// default configuration.
func NewRepo() *Repo {
	return &Repo{
		Config:     map[string]bool{},
		FS:         memfs.New(),
		Root:       "/work",
		Submodules: map[string]*Submodule{},
	}
}

func (r *Repo) ConfigBool(name string, defaultValue bool) bool {
	if v, ok := r.Config[name]; ok {
		return v
	}
	return defaultValue
}

func (r *Repo) Workdir() billy.Filesystem { return r.FS }
func (r *Repo) WorkdirRoot() string       { return r.Root }

func (r *Repo) Index() (*index.Index, error) {
	if r.Idx == nil {
		return &index.Index{Version: 2}, nil
	}
	return r.Idx, nil
}

func (r *Repo) Submodule(path string) (diff.Submodule, error) {
	sub, ok := r.Submodules[path]
	if !ok {
		return nil, errNotFound
	}
	return sub, nil
}

func (r *Repo) HashBlob(rd io.Reader, size int64) (plumbing.Hash, error) {
	content, err := io.ReadAll(rd)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return plumbing.ComputeHash(plumbing.BlobObject, content), nil
}

func (r *Repo) Filter(path string) (diff.Filter, error) {
	if r.FilterFn == nil {
		return nil, nil
	}
	return r.FilterFn(path)
}

// WriteFile creates path (and parents) in the fake working directory.
func (r *Repo) WriteFile(path, content string) error {
	f, err := r.FS.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(content)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Submodule is a scripted diff.Submodule.
type Submodule struct {
	IgnorePolicy diff.SubmoduleIgnore
	StatusBits   diff.SubmoduleStatus
	StatusErr    error
	OID          plumbing.Hash
	HasOID       bool
}

func (s *Submodule) Ignore() diff.SubmoduleIgnore { return s.IgnorePolicy }

func (s *Submodule) Status() (diff.SubmoduleStatus, error) {
	return s.StatusBits, s.StatusErr
}

func (s *Submodule) WorkdirOID() (plumbing.Hash, bool) {
	return s.OID, s.HasOID
}

// StatEntry builds an index-style entry with a full stat tuple so the
// stat-cache fast path can be exercised.
func StatEntry(path, content string, mtime time.Time, ino uint32) *diff.Entry {
	e := File(path, content)
	e.MTime = mtime
	e.CTime = mtime
	e.Ino = ino
	e.UID = 1000
	e.GID = 1000
	return e
}

var errNotFound = errSentinel("difftest: submodule not found")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }

var (
	_ diff.Iterator = (*Iter)(nil)
	_ diff.Repo     = (*Repo)(nil)
)
