package stringutils

import "strings"

// SplitLines splits a string into lines, dropping the trailing newline (so
// "a\nb\n" becomes ["a", "b"], not ["a", "b", ""]). An empty string yields
// no lines.
func SplitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
