package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// clearActiveMsg clears the footer highlight.
type clearActiveMsg struct{}

// ShortcutEntry pairs a trigger key with the display label for footer highlighting.
type ShortcutEntry struct {
	Key   string // trigger key to match against the active key ("" = never highlighted)
	Label string
}

// highlightCmd clears the footer highlight after 500ms. Set the model's
// active key before returning it.
func highlightCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return clearActiveMsg{}
	})
}

var footerDim = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

// RenderFooterBar renders shortcut labels, highlighting the one whose key
// matches active.
func RenderFooterBar(shortcuts []ShortcutEntry, active string) string {
	parts := make([]string, len(shortcuts))
	for i, sc := range shortcuts {
		if active != "" && sc.Key == active {
			parts[i] = StyleHighlight.Render("[ " + sc.Label + " ]")
		} else {
			parts[i] = footerDim.Render(sc.Label)
		}
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(parts, footerDim.Render(" • ")))
}
