package markdown

import (
	"strings"
	"unicode/utf16"
)

// textBuffer accumulates plain text and tracks the current offset in the
// configured unit (runes or UTF-16 code units).
type textBuffer struct {
	b        strings.Builder
	offset   int
	utf16    bool
	newlines int // trailing '\n' count
}

func (tb *textBuffer) Write(text string) {
	if text == "" {
		return
	}
	tb.b.WriteString(text)
	for _, r := range text {
		if tb.utf16 {
			tb.offset += max(utf16.RuneLen(r), 1)
		} else {
			tb.offset++
		}
	}
	trimmed := strings.TrimRight(text, "\n")
	if trimmed == "" {
		tb.newlines += len(text)
	} else {
		tb.newlines = len(text) - len(trimmed)
	}
}

// Offset returns the offset of the next character to be written.
func (tb *textBuffer) Offset() int { return tb.offset }

func (tb *textBuffer) Len() int { return tb.b.Len() }

// EnsureBreak pads the buffer so it ends with at least n newlines. An empty buffer is left alone.
func (tb *textBuffer) EnsureBreak(n int) {
	if tb.b.Len() == 0 {
		return
	}
	if missing := n - tb.newlines; missing > 0 {
		tb.Write(strings.Repeat("\n", missing))
	}
}

func (tb *textBuffer) String() string { return tb.b.String() }
