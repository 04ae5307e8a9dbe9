package components

import (
	"fmt"

	"github.com/theirongolddev/curstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar. state describes the
// polling engine ("next poll in 42s", "cooldown 9m 58s", "paused").
func RenderStatusBar(width int, updatedAt, state string, degraded bool) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(width)

	left := " [?]help  [r]efresh  [q]uit"

	right := ""
	if state != "" {
		if degraded {
			right = lipgloss.NewStyle().Foreground(t.Orange).Render(state)
		} else {
			right = state
		}
	}
	if updatedAt != "" {
		if right != "" {
			right += "  "
		}
		right += fmt.Sprintf("Updated: %s", updatedAt)
	}
	right += " "

	// Pad middle
	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	bar := left
	for i := 0; i < padding; i++ {
		bar += " "
	}
	bar += right

	return style.Render(bar)
}
