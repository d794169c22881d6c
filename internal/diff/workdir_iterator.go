package diff

import (
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// workdirIterator walks the live filesystem one directory frame at a time.
// Directory entries carry a trailing '/' (which also gives them their
// correct sort position relative to siblings) and are delivered before
// their contents; the engine decides whether to descend via AdvanceInto.
type workdirIterator struct {
	repo       Repo
	fs         billy.Filesystem
	root       string
	prefix     string
	ignoreCase bool
	matcher    gitignore.Matcher
	stack      []*workdirFrame
	log        logrus.FieldLogger
}

type workdirFrame struct {
	entries []*Entry
	pos     int
}

// NewWorkdirIterator opens a walk over the repository's working directory,
// restricted to the literal prefix. Ignore rules are loaded from the
// repository's gitignore files; case policy follows core.ignorecase.
func NewWorkdirIterator(repo Repo, prefix string) (Iterator, error) {
	fs := repo.Workdir()
	if fs == nil {
		return nil, errors.New("repository has no working directory")
	}

	patterns, err := gitignore.ReadPatterns(fs, nil)
	if err != nil {
		return nil, errors.WrapIf(err, "reading ignore patterns")
	}

	it := &workdirIterator{
		repo:       repo,
		fs:         fs,
		root:       repo.WorkdirRoot(),
		prefix:     prefix,
		ignoreCase: repo.ConfigBool("core.ignorecase", false),
		matcher:    gitignore.NewMatcher(patterns),
		log:        logrus.WithField("component", "workdir-iterator"),
	}

	frame, err := it.readFrame("")
	if err != nil {
		return nil, err
	}
	it.stack = append(it.stack, frame)

	return it, nil
}

// readFrame lists one directory, converts its entries, and sorts them under
// the iterator's case policy. dir is "" for the root or a '/'-terminated
// relative path.
func (it *workdirIterator) readFrame(dir string) (*workdirFrame, error) {
	dirname := strings.TrimSuffix(dir, "/")
	if dirname == "" {
		dirname = "/"
	}
	infos, err := it.fs.ReadDir(dirname)
	if err != nil {
		return nil, errors.WrapIff(err, "reading directory %q", dir)
	}

	frame := &workdirFrame{}
	for _, fi := range infos {
		name := fi.Name()
		if name == ".git" {
			continue
		}

		full := dir + name
		var e *Entry

		switch {
		case fi.IsDir() && it.containsGitDir(full):
			// A directory with its own .git is another repository; surface
			// it as a gitlink leaf rather than descending.
			e = &Entry{Path: full, Mode: filemode.Submodule}
			statFromFileInfo(e, fi)
		case fi.IsDir():
			e = &Entry{Path: full + "/", Mode: filemode.Dir}
		default:
			e = &Entry{
				Path: full,
				Mode: fileModeFromOS(fi),
				Size: fi.Size(),
			}
			statFromFileInfo(e, fi)
		}

		if !it.inRange(e.Path) {
			continue
		}
		frame.entries = append(frame.entries, e)
	}

	cmp := entryCmp
	if it.ignoreCase {
		cmp = entryCaseCmp
	}
	slices.SortFunc(frame.entries, cmp)

	return frame, nil
}

// inRange keeps leaves under the prefix plus the ancestor directories needed
// to reach it; anything emitted outside the prefix is dropped later by the
// pathspec filter.
func (it *workdirIterator) inRange(p string) bool {
	if it.prefix == "" {
		return true
	}
	return strings.HasPrefix(p, it.prefix) || strings.HasPrefix(it.prefix, p)
}

func (it *workdirIterator) containsGitDir(dir string) bool {
	_, err := it.fs.Stat(it.fs.Join(dir, ".git"))
	return err == nil
}

func (it *workdirIterator) top() *workdirFrame {
	if len(it.stack) == 0 {
		return nil
	}
	return it.stack[len(it.stack)-1]
}

func (it *workdirIterator) Current() (*Entry, error) {
	for {
		frame := it.top()
		if frame == nil {
			return nil, nil
		}
		if frame.pos < len(frame.entries) {
			return frame.entries[frame.pos], nil
		}
		// Frame exhausted: pop and step past the directory entry we
		// descended through in the parent.
		it.stack = it.stack[:len(it.stack)-1]
		if parent := it.top(); parent != nil {
			parent.pos++
		}
	}
}

func (it *workdirIterator) Advance() (*Entry, error) {
	if frame := it.top(); frame != nil && frame.pos < len(frame.entries) {
		frame.pos++
	}
	return it.Current()
}

func (it *workdirIterator) AdvanceInto() (*Entry, error) {
	cur, err := it.Current()
	if err != nil {
		return nil, err
	}
	if cur == nil || !modeIsDir(cur.Mode) {
		return it.Advance()
	}

	frame, err := it.readFrame(cur.Path)
	if err != nil {
		return nil, err
	}
	if len(frame.entries) == 0 {
		// Empty directory: nothing to deliver, keep going.
		return it.Advance()
	}

	it.stack = append(it.stack, frame)
	return it.Current()
}

func (it *workdirIterator) CurrentWorkdirPath() string {
	cur, err := it.Current()
	if err != nil || cur == nil {
		return ""
	}
	return filepath.Join(it.root, filepath.FromSlash(strings.TrimSuffix(cur.Path, "/")))
}

func (it *workdirIterator) CurrentIsIgnored() bool {
	cur, err := it.Current()
	if err != nil || cur == nil {
		return false
	}
	isDir := modeIsDir(cur.Mode)
	path := strings.TrimSuffix(cur.Path, "/")
	return it.matcher.Match(strings.Split(path, "/"), isDir)
}

func (it *workdirIterator) Type() SourceType { return SourceWorkdir }
func (it *workdirIterator) IgnoreCase() bool { return it.ignoreCase }

// fileModeFromOS maps a filesystem mode onto the git mode vocabulary.
func fileModeFromOS(fi os.FileInfo) filemode.FileMode {
	m := fi.Mode()
	switch {
	case m&os.ModeSymlink != 0:
		return filemode.Symlink
	case m.IsDir():
		return filemode.Dir
	case m.Perm()&0111 != 0:
		return filemode.Executable
	default:
		return filemode.Regular
	}
}

// statFromFileInfo fills the portable stat fields; the platform-specific
// ones are added by statSys.
func statFromFileInfo(e *Entry, fi os.FileInfo) {
	e.MTime = fi.ModTime()
	e.CTime = fi.ModTime()
	statSys(e, fi)
}
