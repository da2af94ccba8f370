package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/robby/taskdeck/internal/domain"
)

// userItem represents a tenant user in the list.
type userItem struct {
	user domain.User
}

func (i userItem) FilterValue() string { return i.user.FullName + " " + i.user.Email }

// userItemDelegate handles rendering of user items.
type userItemDelegate struct{}

func (d userItemDelegate) Height() int                             { return 1 }
func (d userItemDelegate) Spacing() int                            { return 0 }
func (d userItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d userItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(userItem)
	if !ok {
		return
	}

	// Format: name <email> (role)
	str := fmt.Sprintf("%s <%s> (%s)", i.user.FullName, i.user.Email, i.user.Role.Label())
	if !i.user.IsActive {
		str += " inactive"
	}

	fn := NormalItemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return SelectedItemStyle.Render("> " + s[0])
		}
	}

	fmt.Fprint(w, fn(str))
}

// UsersModel lists the users of the current tenant. Members only get a
// hint; the server refuses the listing for them anyway.
type UsersModel struct {
	list list.Model
	hint string
	err  error
}

// NewUsersModel creates the users list.
func NewUsersModel(users []domain.User) UsersModel {
	items := make([]list.Item, len(users))
	for i, u := range users {
		items[i] = userItem{user: u}
	}

	// Start with a reasonable default - will be resized by WindowSizeMsg
	l := list.New(items, userItemDelegate{}, 80, 20)
	l.Title = fmt.Sprintf("Users (%d)", len(users))
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = TitleStyle
	l.Styles.PaginationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	l.Styles.HelpStyle = HelpStyle

	return UsersModel{list: l}
}

// NewUsersHintModel shows why the list is unavailable instead of a list.
func NewUsersHintModel(hint string) UsersModel {
	m := NewUsersModel(nil)
	m.hint = hint
	return m
}

// Init initializes the model.
func (m UsersModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages.
func (m UsersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			if !m.list.SettingFilter() {
				return m, navigate("/projects")
			}
		}

	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width - 2)
		m.list.SetHeight(msg.Height - 2)
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the model.
func (m UsersModel) View() string {
	if m.hint != "" {
		return PromptStyle.Render(m.hint) + "\n" + HelpStyle.Render("esc: back to projects")
	}
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return m.list.View()
}
