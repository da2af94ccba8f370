package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
	"github.com/robby/taskdeck/internal/domain"
)

var (
	// HelpOverlayStyle defines the style for the help overlay container.
	HelpOverlayStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		MarginTop(2)
)

// HelpModel wraps the bubbles help component.
type HelpModel struct {
	help   help.Model
	keymap KeyMap
}

// NewHelpModel creates a new help overlay model.
func NewHelpModel(keymap KeyMap) HelpModel {
	h := help.New()
	h.ShowAll = true

	return HelpModel{
		help:   h,
		keymap: keymap,
	}
}

// View renders the help overlay with the signed-in user underneath.
func (m HelpModel) View(width int, me domain.Principal) string {
	m.help.Width = width - 8 // Account for padding and border
	view := m.help.View(m.keymap)
	if me.ID != "" {
		view += "\n\n" + dimStyle.Render(fmt.Sprintf("Signed in as %s (%s)", me.Email, me.Role.Label()))
	}
	return HelpOverlayStyle.Render(view)
}
