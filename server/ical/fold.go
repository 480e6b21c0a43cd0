package ical

import (
	"strings"
	"unicode/utf8"
)

// foldWidth is the maximum number of octets per content line, excluding the
// line break. RFC 5545 allows up to 75; staying one short keeps folded
// output safe for clients that miscount the continuation space.
const foldWidth = 74

// Refold normalizes iCalendar text: lines are unfolded, line breaks become
// CRLF and every content line longer than the fold width is re-folded on a
// rune boundary with a single-space continuation.
func Refold(text string) string {
	var out strings.Builder
	for _, line := range Unfold(text) {
		writeFolded(&out, line)
	}
	return out.String()
}

// Unfold splits iCalendar text into logical content lines, joining folded
// continuations (lines starting with space or tab) onto their parent.
func Unfold(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var lines []string
	for _, l := range raw {
		if l == "" {
			continue
		}
		if (l[0] == ' ' || l[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += l[1:]
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func writeFolded(out *strings.Builder, line string) {
	width := foldWidth
	for len(line) > width {
		cut := width
		// Back off to a rune boundary so folding never splits a
		// multi-byte character.
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		out.WriteString(line[:cut])
		out.WriteString("\r\n ")
		line = line[cut:]
		// Continuation lines lose one octet to the leading space.
		width = foldWidth - 1
	}
	out.WriteString(line)
	out.WriteString("\r\n")
}
