// Package shellquote renders commands as lines that can be pasted into a POSIX shell.
package shellquote

import (
	"strings"
)

// safe lists the characters that never need quoting.
const safe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_@%+=:,./-"

// Quote returns s unchanged when it only holds safe characters, otherwise wrapped in single
// quotes. An embedded single quote becomes '\''.
func Quote(s string) string {
	if s == "" {
		return "''"
	}

	if !strings.ContainsFunc(s, func(r rune) bool { return !strings.ContainsRune(safe, r) }) {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Join quotes bin and args and joins them with spaces.
func Join(bin string, args ...string) string {
	parts := make([]string, 0, 1+len(args))
	parts = append(parts, Quote(bin))

	for _, arg := range args {
		parts = append(parts, Quote(arg))
	}

	return strings.Join(parts, " ")
}
