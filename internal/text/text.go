// Package text implements the small set of string operations the filter
// parser needs while it normalizes rule text in place, before the result is
// interned: whitespace stripping, ASCII-only case folding with a
// host-supplied fallback for non-ASCII code points, and the split/trim
// helpers the domain- and selector-span bookkeeping in the parser relies on.
//
// Go strings are immutable, so the parser normalizes into fresh strings
// rather than mutating in place; substring offsets recorded against the
// normalized result stay valid because the canonical text never changes
// after interning.
package text

import "strings"

// MaxLength caps rule text at 2^30-1 bytes. Longer text is rejected
// rather than risk silently truncating in a way a caller wouldn't notice.
const MaxLength = 1<<30 - 1

// Folder lowercases a single non-ASCII code point. The parser applies it to
// the domain list of element-hiding filters; a nil Folder leaves non-ASCII
// runes there untouched. Network-filter domain options, request locations
// and document domains are lower-cased with strings.ToLower instead.
type Folder func(r rune) rune

// NormalizeWhitespace trims leading and trailing whitespace and removes
// any remaining ASCII control characters (bytes below ' '). It reports
// false if the result would exceed MaxLength.
func NormalizeWhitespace(s string) (out string, ok bool) {
	start := 0
	end := len(s)

	for start < end && s[start] <= ' ' {
		start++
	}
	for end > start && s[end-1] <= ' ' {
		end--
	}

	s = s[start:end]
	if strings.IndexFunc(s, func(r rune) bool { return r < ' ' }) < 0 {
		if len(s) > MaxLength {
			return "", false
		}

		return s, true
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= ' ' {
			b.WriteRune(r)
		}
	}

	out = strings.TrimRight(b.String(), " ")
	if len(out) > MaxLength {
		return "", false
	}

	return out, true
}

// LowerASCII returns s with its ASCII letters folded to lower case and
// every non-ASCII rune passed through fold, the host-provided casefold
// function. A nil fold leaves non-ASCII runes as-is.
func LowerASCII(s string, fold Folder) string {
	needsWork := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || c >= 0x80 {
			needsWork = true

			break
		}
	}
	if !needsWork {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= 0x80 && fold != nil:
			b.WriteRune(fold(r))
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// TrimSpaces returns s with leading and trailing ASCII spaces removed.
func TrimSpaces(s string) string {
	return strings.Trim(s, " ")
}

// SplitString returns the pair of views before and after index at. If at is
// at or past the end of s, the second view is empty.
func SplitString(s string, at int) (before, after string) {
	if at < 0 {
		at = 0
	}
	if at >= len(s) {
		return s, ""
	}

	return s[:at], s[at:]
}
