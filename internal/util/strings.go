// Package util provides small text helpers for terminal output.
package util

import (
	"github.com/charmbracelet/lipgloss"
)

// ClampLine bounds a line of output to maxWidth visual columns, appending
// "..." when cut. Width is measured in terminal cells, so wide characters
// count double; styled text should be clamped before styling.
func ClampLine(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
