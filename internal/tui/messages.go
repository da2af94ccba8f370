// Package tui provides Bubble Tea models for the interactive TUI.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/robby/taskdeck/internal/domain"
)

// NavigateMsg asks the router to show the screen for Path. The route guard
// decides whether it is shown, deferred or redirected to the login screen.
type NavigateMsg struct {
	Path string
}

// ProjectSelectedMsg is emitted when the user selects a project.
type ProjectSelectedMsg struct {
	Project domain.Project
}

// LoggedInMsg is emitted by the login screen once the session is authenticated.
type LoggedInMsg struct {
	Principal domain.Principal
}

// LogoutMsg is emitted when the user asks to log out.
type LogoutMsg struct{}

// ErrorMsg is emitted when an error occurs.
type ErrorMsg struct {
	Err error
}

// QuitMsg is emitted when the user requests to quit.
type QuitMsg struct{}

// navigate returns a command emitting NavigateMsg.
func navigate(path string) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Path: path} }
}
