package diff

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Pathspec is a user-supplied set of glob patterns plus the common literal
// prefix shared by all of them. An empty pathspec matches every path.
type Pathspec struct {
	raw      []string
	patterns []gitignore.Pattern
	folded   []gitignore.Pattern
}

// NewPathspec compiles the given glob patterns. Patterns use gitignore-style
// glob semantics rooted at the repository top level.
func NewPathspec(globs []string) *Pathspec {
	ps := &Pathspec{}
	for _, g := range globs {
		if g == "" {
			continue
		}
		ps.raw = append(ps.raw, g)
		ps.patterns = append(ps.patterns, gitignore.ParsePattern(g, nil))
		ps.folded = append(ps.folded, gitignore.ParsePattern(strings.ToLower(g), nil))
	}
	return ps
}

// Empty reports whether the pathspec has no patterns.
func (ps *Pathspec) Empty() bool {
	return ps == nil || len(ps.raw) == 0
}

// Prefix returns the literal path prefix common to every pattern, up to the
// last '/' before the first glob metacharacter. It is used to restrict the
// source iterators before any matching happens.
func (ps *Pathspec) Prefix() string {
	if ps.Empty() {
		return ""
	}
	common := literalHead(ps.raw[0])
	for _, g := range ps.raw[1:] {
		head := literalHead(g)
		n := 0
		for n < len(common) && n < len(head) && common[n] == head[n] {
			n++
		}
		common = common[:n]
	}
	if i := strings.LastIndexByte(common, '/'); i >= 0 {
		return common[:i+1]
	}
	return ""
}

func literalHead(glob string) string {
	if i := strings.IndexAny(glob, "*?[\\"); i >= 0 {
		return glob[:i]
	}
	return glob
}

// Match reports whether path is selected by the pathspec. With noGlob set,
// patterns are treated as literal prefixes. With icase set, matching folds
// case on both sides.
func (ps *Pathspec) Match(path string, noGlob, icase bool) bool {
	if ps.Empty() {
		return true
	}

	if noGlob {
		probe := path
		raws := ps.raw
		if icase {
			probe = strings.ToLower(path)
		}
		for _, r := range raws {
			if icase {
				r = strings.ToLower(r)
			}
			if probe == r || strings.HasPrefix(probe, r) {
				return true
			}
		}
		return false
	}

	patterns := ps.patterns
	if icase {
		patterns = ps.folded
		path = strings.ToLower(path)
	}
	parts := strings.Split(path, "/")
	for _, p := range patterns {
		if p.Match(parts, false) == gitignore.Exclude {
			return true
		}
	}
	return false
}
