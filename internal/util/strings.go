// Package util holds small display helpers shared by the CLI commands.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// ellipsis marks a truncated cell.
const ellipsis = "…"

// TruncateANSI cuts s to at most maxWidth terminal columns, ending it with an
// ellipsis when anything was dropped. Escape sequences and wide runes are
// measured the way the terminal draws them.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// Printable replaces control characters with caret notation (^A, ^[, ^?) so a
// recorded line cannot move the cursor or change colors when listed.
func Printable(s string) string {
	if strings.IndexFunc(s, isControl) < 0 {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if isControl(r) {
			b.WriteByte('^')
			b.WriteRune(r ^ 0x40)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
