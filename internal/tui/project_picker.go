package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/robby/taskdeck/internal/domain"
)

// projectItem wraps a domain.Project for use in bubbles/list.
type projectItem struct {
	project domain.Project
}

func (i projectItem) FilterValue() string {
	return i.project.Name
}

func (i projectItem) Title() string {
	return i.project.Name
}

func (i projectItem) Description() string {
	desc := fmt.Sprintf("%d tasks", i.project.TaskCount)
	if i.project.Status != "" && i.project.Status != "active" {
		desc += " · " + i.project.Status
	}
	if i.project.Description != "" {
		desc += " · " + i.project.Description
	}
	return desc
}

// projectDelegate is a custom item delegate for project items.
type projectDelegate struct{}

func (d projectDelegate) Height() int                             { return 2 }
func (d projectDelegate) Spacing() int                            { return 1 }
func (d projectDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(projectItem)
	if !ok {
		return
	}

	str := fmt.Sprintf("%d. %s", index+1, i.Title())
	desc := i.Description()

	if index == m.Index() {
		fmt.Fprint(w, SelectedItemStyle.Render("> "+str))
		fmt.Fprint(w, "\n  "+NormalItemStyle.Render(desc))
	} else {
		fmt.Fprint(w, NormalItemStyle.Render("  "+str))
		fmt.Fprint(w, "\n  "+lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(desc))
	}
}

// ProjectPickerModel displays the tenant's projects for the user to select.
type ProjectPickerModel struct {
	list    list.Model
	me      domain.Principal
	myTasks int
	err     error
}

// NewProjectPickerModel creates a new ProjectPickerModel. myTasks is the
// number of open tasks assigned to me, shown above the list.
func NewProjectPickerModel(projects []domain.Project, me domain.Principal, myTasks int) ProjectPickerModel {
	items := make([]list.Item, len(projects))
	for i, p := range projects {
		items[i] = projectItem{project: p}
	}

	l := list.New(items, projectDelegate{}, 80, 20)
	l.Title = "Select a Project"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = TitleStyle

	return ProjectPickerModel{
		list:    l,
		me:      me,
		myTasks: myTasks,
	}
}

// Init initializes the model.
func (m ProjectPickerModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages and updates the model state.
func (m ProjectPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width - 2)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case tea.KeyMsg:
		if m.list.SettingFilter() {
			break
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, func() tea.Msg {
				return QuitMsg{}
			}
		case "u":
			return m, navigate("/users")
		case "X":
			return m, func() tea.Msg { return LogoutMsg{} }
		case "enter":
			if item, ok := m.list.SelectedItem().(projectItem); ok {
				return m, func() tea.Msg {
					return ProjectSelectedMsg{Project: item.project}
				}
			}
		}

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the model.
func (m ProjectPickerModel) View() string {
	greeting := fmt.Sprintf("Hi %s · %d open tasks assigned to you · u:users X:log out", m.me.FirstName(), m.myTasks)
	view := PromptStyle.Render(greeting) + "\n" + m.list.View()

	if m.err != nil {
		view += ErrorStyle.Render(fmt.Sprintf("\nError: %v", m.err))
	}

	return view
}
