package agent

import "strings"

// stripRune reports whether r is removed from user input: zero-width and
// bidi marks, line/paragraph separators, the BOM and C0 controls other than
// tab, line feed and carriage return, plus DEL.
func stripRune(r rune) bool {
	switch {
	case r >= 0x200B && r <= 0x200F:
		return true
	case r >= 0x2028 && r <= 0x202F:
		return true
	case r == 0xFEFF:
		return true
	case r <= 0x08, r == 0x0B, r == 0x0C:
		return true
	case r >= 0x0E && r <= 0x1F:
		return true
	case r == 0x7F:
		return true
	}
	return false
}

// SanitizeResult says what SanitizeInput did with a message.
type SanitizeResult int

const (
	SanitizeUnchanged SanitizeResult = iota
	SanitizeChanged
	// SanitizeSkippedEmpty means the message held only stripped runes and
	// was left as is rather than emptied.
	SanitizeSkippedEmpty
)

// SanitizeInput removes invisible and control characters. The input comes
// back unchanged when nothing was stripped or when stripping would leave a
// non-empty message empty.
func SanitizeInput(s string) (string, SanitizeResult) {
	out := strings.Map(func(r rune) rune {
		if stripRune(r) {
			return -1
		}
		return r
	}, s)
	switch {
	case out == s:
		return s, SanitizeUnchanged
	case out == "":
		return s, SanitizeSkippedEmpty
	}
	return out, SanitizeChanged
}
