package diff

import "strings"

// Comparator slots carried on a DiffList. The merge-join and the delta
// ordering must use the same case policy, so the policy is never global.
type (
	strCompare   func(a, b string) int
	strNCompare  func(a, b string, n int) int
	pfxCompare   func(str, prefix string) int
	entryCompare func(a, b *Entry) int
)

func strCmp(a, b string) int {
	return strings.Compare(a, b)
}

func strCaseCmp(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func strNCmp(a, b string, n int) int {
	if len(a) > n {
		a = a[:n]
	}
	if len(b) > n {
		b = b[:n]
	}
	return strings.Compare(a, b)
}

func strNCaseCmp(a, b string, n int) int {
	if len(a) > n {
		a = a[:n]
	}
	if len(b) > n {
		b = b[:n]
	}
	return strCaseCmp(a, b)
}

// prefixCmp returns 0 if str starts with prefix, otherwise the sign of the
// first differing byte.
func prefixCmp(str, prefix string) int {
	if strings.HasPrefix(str, prefix) {
		return 0
	}
	return strings.Compare(str, prefix)
}

func prefixCaseCmp(str, prefix string) int {
	return prefixCmp(strings.ToLower(str), strings.ToLower(prefix))
}

func entryCmp(a, b *Entry) int {
	return strCmp(a.Path, b.Path)
}

func entryCaseCmp(a, b *Entry) int {
	return strCaseCmp(a.Path, b.Path)
}
