package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/robby/taskdeck/internal/domain"
)

// Layout constants
const (
	leftPanelRatio = 0.35 // Left panel takes 35% of width
	minLeftWidth   = 30
	maxLeftWidth   = 50
	headerHeight   = 1
	footerHeight   = 1
	borderSize     = 2 // Top + bottom border
)

// Detail view styles
var (
	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	detailValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	focusedPanelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205"))

	scrollIndicatorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205"))
)

// DetailModel shows one task: metadata on the left, the wrapped
// description in a scrollable viewport on the right.
type DetailModel struct {
	task   domain.Task
	webURL string

	viewport viewport.Model
	errorMsg string

	width  int
	height int
}

// NewDetailModel creates a new detail view model
func NewDetailModel(task domain.Task, webURL string) DetailModel {
	vp := viewport.New(40, 10) // Resized on WindowSizeMsg
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	m := DetailModel{
		task:     task,
		webURL:   strings.TrimRight(webURL, "/"),
		viewport: vp,
	}
	m.updateViewportContent()
	return m
}

// Init initializes the detail model
func (m DetailModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages
func (m DetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeComponents()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// resizeComponents sizes the viewport to the right panel
func (m *DetailModel) resizeComponents() {
	leftWidth := m.leftWidth(m.width)

	// Right panel gets remaining width minus borders and gap
	rightWidth := m.width - leftWidth - 3
	if rightWidth < 30 {
		rightWidth = 30
	}

	contentHeight := m.height - headerHeight - footerHeight - borderSize
	if contentHeight < 10 {
		contentHeight = 10
	}

	m.viewport.Width = rightWidth - borderSize - 2 // -2 for padding
	m.viewport.Height = contentHeight - borderSize - 1
	m.updateViewportContent()
}

func (m DetailModel) leftWidth(width int) int {
	leftWidth := int(float64(width) * leftPanelRatio)
	if leftWidth < minLeftWidth {
		leftWidth = minLeftWidth
	}
	if leftWidth > maxLeftWidth {
		leftWidth = maxLeftWidth
	}
	return leftWidth
}

// handleKeyPress processes keyboard input
func (m DetailModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		return m, func() tea.Msg { return closeDetailMsg{} }
	case "o":
		if m.task.ProjectID == "" {
			break
		}
		if err := openURL(fmt.Sprintf("%s/projects/%s", m.webURL, m.task.ProjectID)); err != nil {
			m.errorMsg = fmt.Sprintf("Could not open browser: %v", err)
		}
	case "j", "down":
		m.viewport.LineDown(1)
	case "k", "up":
		m.viewport.LineUp(1)
	case "ctrl+d":
		m.viewport.HalfViewDown()
	case "ctrl+u":
		m.viewport.HalfViewUp()
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	}

	return m, nil
}

// View renders the split-screen detail view
func (m DetailModel) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 100
	}
	if height == 0 {
		height = 30
	}

	leftWidth := m.leftWidth(width)
	rightWidth := width - leftWidth - 1 // 1 char gap

	contentHeight := height - headerHeight - footerHeight
	if contentHeight < 10 {
		contentHeight = 10
	}

	header := dimStyle.Render("[q]back [o]open project [j/k]scroll [g/G]top/bottom")

	leftPanel := panelBorderStyle.
		Width(leftWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderLeftPanel(leftWidth - borderSize))

	rightPanel := focusedPanelBorderStyle.
		Width(rightWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderRightPanel())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, " ", rightPanel)

	return lipgloss.JoinVertical(lipgloss.Left, header, panels, m.renderFooter(width))
}

// renderFooter renders the bottom status bar
func (m DetailModel) renderFooter(width int) string {
	left := ""
	if m.errorMsg != "" {
		left = errorStyle.Render("✗ " + m.errorMsg)
	}

	right := ""
	if m.viewport.TotalLineCount() > m.viewport.Height {
		switch {
		case m.viewport.AtTop():
			right = "TOP"
		case m.viewport.AtBottom():
			right = "END"
		default:
			right = fmt.Sprintf("%d%%", int(m.viewport.ScrollPercent()*100))
		}
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return left + strings.Repeat(" ", padding) + dimStyle.Render(right)
}

// renderLeftPanel renders the task metadata
func (m DetailModel) renderLeftPanel(width int) string {
	var b strings.Builder

	b.WriteString(detailTitleStyle.Render(wordwrap.String(m.task.Title, width-2)))
	b.WriteString("\n\n")

	field := func(label, value string, style lipgloss.Style) {
		b.WriteString(detailLabelStyle.Render(label + ": "))
		b.WriteString(style.Render(value))
		b.WriteString("\n")
	}

	field("Status", m.task.Status.Label(), detailValueStyle)
	if m.task.Priority != "" {
		field("Priority", string(m.task.Priority), priorityStyle(m.task.Priority))
	}
	if m.task.Assignee != nil {
		assignee := m.task.Assignee.FullName
		if assignee == "" {
			assignee = m.task.Assignee.Email
		}
		field("Assigned", assignee, detailValueStyle)
	} else {
		field("Assigned", "nobody", dimStyle)
	}
	if m.task.DueDate != "" {
		field("Due", m.task.DueDate, detailValueStyle)
	}
	if !m.task.CreatedAt.IsZero() {
		field("Created", formatTimeAgo(m.task.CreatedAt), dimStyle)
	}

	return b.String()
}

// renderRightPanel renders the description viewport
func (m DetailModel) renderRightPanel() string {
	var b strings.Builder

	scrollHint := ""
	if m.viewport.TotalLineCount() > m.viewport.Height {
		switch {
		case m.viewport.AtTop():
			scrollHint = " ↓"
		case m.viewport.AtBottom():
			scrollHint = " ↑"
		default:
			scrollHint = " ↕"
		}
	}

	b.WriteString(detailLabelStyle.Render("Description"))
	b.WriteString(scrollIndicatorStyle.Render(scrollHint))
	b.WriteString("\n")

	if strings.TrimSpace(m.task.Description) == "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("No description"))
		return b.String()
	}

	b.WriteString(m.viewport.View())
	return b.String()
}

// updateViewportContent wraps the description to the viewport width
func (m *DetailModel) updateViewportContent() {
	wrapWidth := m.viewport.Width - 2
	if wrapWidth < 30 {
		wrapWidth = 30
	}
	m.viewport.SetContent(wordwrap.String(m.task.Description, wrapWidth))
}

// formatTimeAgo formats a timestamp as relative time
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

type closeDetailMsg struct{}
