package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		res  SanitizeResult
	}{
		{"clean", "hello world", "hello world", SanitizeUnchanged},
		{"zero width space", "hel\u200blo", "hello", SanitizeChanged},
		{"bidi marks", "\u200eabc\u200f", "abc", SanitizeChanged},
		{"line separator", "a\u2028b\u2029c", "abc", SanitizeChanged},
		{"narrow nbsp range", "a\u202fb", "ab", SanitizeChanged},
		{"bom", "\ufeffhi", "hi", SanitizeChanged},
		{"nul and bell", "a\x00b\x07c", "abc", SanitizeChanged},
		{"vertical tab and form feed", "a\x0bb\x0cc", "abc", SanitizeChanged},
		{"escape and del", "a\x1bb\x7fc", "abc", SanitizeChanged},
		{"keeps whitespace", "a\tb\nc\r\n", "a\tb\nc\r\n", SanitizeUnchanged},
		{"keeps emoji and accents", "caf\u00e9 \U0001F534", "caf\u00e9 \U0001F534", SanitizeUnchanged},
		{"all invisible keeps original", "\u200b\u200c", "\u200b\u200c", SanitizeSkippedEmpty},
		{"invisible and control keeps original", "\u200b\u200b\x01", "\u200b\u200b\x01", SanitizeSkippedEmpty},
		{"empty", "", "", SanitizeUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := SanitizeInput(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.res, res)
		})
	}
}

func TestSanitizeInput_Idempotent(t *testing.T) {
	inputs := []string{
		"plain",
		"zero\u200bwidth\u200d joiner",
		"\x01\x02ctrl\x1f",
		"\u202alrm\u202e",
		"\u200b",
	}
	for _, in := range inputs {
		once, _ := SanitizeInput(in)
		twice, res := SanitizeInput(once)
		assert.Equal(t, once, twice, "input %q", in)
		assert.NotEqual(t, SanitizeChanged, res, "input %q", in)
	}
}

func TestSanitizeInput_Complete(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("x")
	for r := rune(0); r <= 0x7F; r++ {
		if stripRune(r) {
			sb.WriteRune(r)
		}
	}
	for r := rune(0x200B); r <= 0x200F; r++ {
		sb.WriteRune(r)
	}
	for r := rune(0x2028); r <= 0x202F; r++ {
		sb.WriteRune(r)
	}
	sb.WriteRune(0xFEFF)

	got, res := SanitizeInput(sb.String())
	assert.Equal(t, SanitizeChanged, res)
	assert.Equal(t, "x", got)
	for _, r := range got {
		assert.False(t, stripRune(r))
	}
}
