package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the board view.
type KeyMap struct {
	// Navigation
	Left  key.Binding
	Right key.Binding
	Up    key.Binding
	Down  key.Binding

	// Actions
	Move         key.Binding
	ShiftLeft    key.Binding
	ShiftRight   key.Binding
	ShiftUp      key.Binding
	ShiftDown    key.Binding
	Open         key.Binding
	Detail       key.Binding
	Filter       key.Binding
	Mine         key.Binding
	Refresh      key.Binding
	Projects     key.Binding
	Users        key.Binding
	Logout       key.Binding
	Help         key.Binding
	Quit         key.Binding
	ConfirmQuit  key.Binding
	ApplyFilter  key.Binding
	CancelFilter key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous column"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next column"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous card"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next card"),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move card to column"),
		),
		ShiftLeft: key.NewBinding(
			key.WithKeys("H", "shift+left"),
			key.WithHelp("H", "move card left"),
		),
		ShiftRight: key.NewBinding(
			key.WithKeys("L", "shift+right"),
			key.WithHelp("L", "move card right"),
		),
		ShiftUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "move card up"),
		),
		ShiftDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "move card down"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open in browser"),
		),
		Detail: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "task details"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter cards"),
		),
		Mine: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "assigned to me"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Projects: key.NewBinding(
			key.WithKeys("p", "esc"),
			key.WithHelp("p", "projects"),
		),
		Users: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "users"),
		),
		Logout: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "log out"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ConfirmQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
		),
		ApplyFilter: key.NewBinding(
			key.WithKeys("enter"),
		),
		CancelFilter: key.NewBinding(
			key.WithKeys("esc"),
		),
	}
}

// ShortHelp returns key bindings to be shown in the mini help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Move, k.ShiftLeft, k.ShiftRight, k.ShiftUp, k.ShiftDown},
		{k.Detail, k.Open, k.Filter, k.Mine, k.Refresh},
		{k.Projects, k.Users, k.Logout, k.Help, k.Quit},
	}
}
