package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/treelinehq/treeline/internal/stash"
	"github.com/treelinehq/treeline/internal/utils/stringutils"
)

const stashRefName = "refs/stash"

// reflog reads and writes the stash reference's reflog in git's on-disk
// line format: "<old> <new> <ident> <ts> <tz>\t<message>".
type reflog struct {
	repo *Repo
}

type reflogLine struct {
	Old     plumbing.Hash
	New     plumbing.Hash
	Ident   string
	Message string
}

func (l *reflog) refPath() string {
	return filepath.Join(l.repo.gitDir, filepath.FromSlash(stashRefName))
}

func (l *reflog) logPath() string {
	return filepath.Join(l.repo.gitDir, "logs", filepath.FromSlash(stashRefName))
}

func (l *reflog) Read() ([]stash.ReflogEntry, error) {
	lines, err := l.readLines()
	if err != nil {
		return nil, err
	}
	entries := make([]stash.ReflogEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, stash.ReflogEntry{
			Message: line.Message,
			New:     line.New,
		})
	}
	return entries, nil
}

func (l *reflog) readLines() ([]reflogLine, error) {
	raw, err := os.ReadFile(l.logPath())
	if os.IsNotExist(err) {
		return nil, stash.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapIf(err, "reading stash reflog")
	}

	var lines []reflogLine
	for _, line := range stringutils.SplitLines(string(raw)) {
		if line == "" {
			continue
		}
		parsed, err := parseReflogLine(line)
		if err != nil {
			return nil, err
		}
		lines = append(lines, parsed)
	}
	return lines, nil
}

func parseReflogLine(line string) (reflogLine, error) {
	head, message, _ := strings.Cut(line, "\t")
	fields := strings.SplitN(head, " ", 3)
	if len(fields) < 3 {
		return reflogLine{}, errors.Errorf("malformed reflog line %q", line)
	}
	return reflogLine{
		Old:     plumbing.NewHash(fields[0]),
		New:     plumbing.NewHash(fields[1]),
		Ident:   fields[2],
		Message: message,
	}, nil
}

func (line reflogLine) format() string {
	return fmt.Sprintf("%s %s %s\t%s\n", line.Old, line.New, line.Ident, line.Message)
}

func identFor(who object.Signature) string {
	return fmt.Sprintf("%s <%s> %d %s",
		who.Name, who.Email, who.When.Unix(), who.When.Format("-0700"))
}

func (l *reflog) Append(oid plumbing.Hash, who object.Signature, message string) error {
	old := plumbing.ZeroHash
	if raw, err := os.ReadFile(l.refPath()); err == nil {
		old = plumbing.NewHash(strings.TrimSpace(string(raw)))
	}

	if err := os.MkdirAll(filepath.Dir(l.logPath()), 0o755); err != nil {
		return errors.WrapIf(err, "creating reflog directory")
	}

	f, err := os.OpenFile(l.logPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.WrapIf(err, "opening stash reflog")
	}
	line := reflogLine{Old: old, New: oid, Ident: identFor(who), Message: message}
	if _, err := f.WriteString(line.format()); err != nil {
		f.Close()
		return errors.WrapIf(err, "appending stash reflog")
	}
	if err := f.Close(); err != nil {
		return errors.WrapIf(err, "closing stash reflog")
	}

	return l.writeRef(oid)
}

func (l *reflog) writeRef(oid plumbing.Hash) error {
	if err := os.MkdirAll(filepath.Dir(l.refPath()), 0o755); err != nil {
		return errors.WrapIf(err, "creating ref directory")
	}
	return errors.WrapIf(
		os.WriteFile(l.refPath(), []byte(oid.String()+"\n"), 0o644),
		"writing stash ref")
}

// Drop removes the entry at position (oldest-first), re-chaining the next
// entry's old oid and moving the ref when the newest entry goes away.
func (l *reflog) Drop(position int) error {
	lines, err := l.readLines()
	if err != nil {
		return err
	}
	if position < 0 || position >= len(lines) {
		return stash.ErrNotFound
	}

	if position+1 < len(lines) {
		if position == 0 {
			lines[1].Old = plumbing.ZeroHash
		} else {
			lines[position+1].Old = lines[position-1].New
		}
	}
	lines = append(lines[:position], lines[position+1:]...)

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line.format())
	}
	if err := os.WriteFile(l.logPath(), []byte(b.String()), 0o644); err != nil {
		return errors.WrapIf(err, "rewriting stash reflog")
	}

	if len(lines) > 0 {
		return l.writeRef(lines[len(lines)-1].New)
	}
	return nil
}

func (l *reflog) DeleteRef() error {
	if err := os.Remove(l.logPath()); err != nil && !os.IsNotExist(err) {
		return errors.WrapIf(err, "removing stash reflog")
	}
	if err := os.Remove(l.refPath()); err != nil && !os.IsNotExist(err) {
		return errors.WrapIf(err, "removing stash ref")
	}
	return nil
}

var _ stash.Reflog = (*reflog)(nil)
