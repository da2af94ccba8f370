package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/pkg/browser"
	"github.com/robby/taskdeck/internal/api"
	"github.com/robby/taskdeck/internal/board"
	"github.com/robby/taskdeck/internal/domain"
)

// Layout constants
const (
	minColumnWidth = 24
	maxColumnWidth = 48
	headerLines    = 2  // Title line + hints line
	pageJumpSize   = 10 // Number of items to jump with Ctrl+D/U
	numColumns     = 3
)

// Styles for the board view - base styles without width/height (set dynamically)
var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	moveModeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("205")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)
)

// openURL is swapped out in tests.
var openURL = browser.OpenURL

// boardLoader fetches a project together with its tasks.
type boardLoader interface {
	GetProjectBoard(ctx context.Context, projectID string) (api.ProjectBoard, error)
}

// BoardModel is the three-column task board of one project. Moves are
// applied to the synchronizer immediately and confirmed or rolled back
// when the server answers.
type BoardModel struct {
	// Dependencies
	sync   *board.Synchronizer
	loader boardLoader
	ctx    context.Context
	me     domain.Principal
	webURL string

	// UI components
	keymap      KeyMap
	help        HelpModel
	spinner     spinner.Model
	filterInput textinput.Model

	// Board state
	project        domain.Project
	filtered       [numColumns][]domain.Task
	selectedColumn int
	selectedCard   [numColumns]int
	scrollOffset   [numColumns]int

	// View state
	width        int
	height       int
	showHelp     bool
	filterMode   bool
	filterText   string
	filterMyOnly bool // Toggle to show only tasks assigned to me
	moveMode     bool
	loading      bool
	saving       int // Moves waiting for the server
	errorToast   string
	notice       string
}

// NewBoardModel creates a board for the synchronizer's project.
func NewBoardModel(sync *board.Synchronizer, loader boardLoader, me domain.Principal, webURL string, ctx context.Context) BoardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Prompt = "/ "

	return BoardModel{
		sync:        sync,
		loader:      loader,
		ctx:         ctx,
		me:          me,
		webURL:      strings.TrimRight(webURL, "/"),
		keymap:      DefaultKeyMap(),
		help:        NewHelpModel(DefaultKeyMap()),
		spinner:     sp,
		filterInput: ti,
		project:     domain.Project{ID: sync.ProjectID()},
		loading:     true,
	}
}

// Init starts loading the project and its tasks.
func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tea.WindowSize(),
		m.loadBoard(),
	)
}

// ProjectID returns the project the board shows.
func (m BoardModel) ProjectID() string {
	return m.sync.ProjectID()
}

// Close tears down the synchronizer. Answers still in flight are ignored.
func (m BoardModel) Close() {
	m.sync.Close()
}

// Update handles messages
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardLoadedMsg:
		m.loading = false
		m.project = msg.board.Project
		problems := m.sync.Load(msg.board.Tasks)
		m.notice = problemNotice(problems)
		(&m).applyFilter()
		return m, nil

	case refreshedMsg:
		m.loading = false
		if msg.err != nil {
			return m.loadFailed(msg.err)
		}
		m.notice = problemNotice(msg.problems)
		(&m).applyFilter()
		return m, nil

	case boardErrorMsg:
		m.loading = false
		return m.loadFailed(msg.err)

	case moveSuccessMsg:
		m.saving--
		_ = m.sync.Resolve(msg.pending, nil)
		(&m).applyFilter()
		return m, nil

	case moveErrorMsg:
		m.saving--
		if err := m.sync.Resolve(msg.pending, msg.err); err != nil {
			m.errorToast = err.Error()
		}
		(&m).applyFilter()
		if api.IsUnauthorized(msg.err) {
			err := msg.err
			return m, func() tea.Msg { return ErrorMsg{Err: err} }
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// loadFailed shows a load error. An expired session is handed to the app.
func (m BoardModel) loadFailed(err error) (tea.Model, tea.Cmd) {
	if api.IsUnauthorized(err) {
		return m, func() tea.Msg { return ErrorMsg{Err: err} }
	}
	m.errorToast = fmt.Sprintf("Load failed: %v", err)
	return m, nil
}

// handleKeyPress processes keyboard input
func (m BoardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit
	if key.Matches(msg, m.keymap.ConfirmQuit) {
		return m, tea.Quit
	}

	// Help overlay
	if m.showHelp {
		if msg.String() == "?" || msg.String() == "q" || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	// Filter mode
	if m.filterMode {
		switch {
		case key.Matches(msg, m.keymap.ApplyFilter):
			m.filterMode = false
			m.filterText = m.filterInput.Value()
			(&m).applyFilter()
			return m, nil
		case key.Matches(msg, m.keymap.CancelFilter):
			m.filterMode = false
			m.filterInput.SetValue(m.filterText)
			return m, nil
		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			return m, cmd
		}
	}

	// Move mode
	if m.moveMode {
		return m.handleMoveMode(msg)
	}

	m.errorToast = ""

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
	case key.Matches(msg, m.keymap.Filter):
		m.filterMode = true
		m.filterInput.Focus()
	case key.Matches(msg, m.keymap.Left):
		if m.selectedColumn > 0 {
			m.selectedColumn--
		}
	case key.Matches(msg, m.keymap.Right):
		if m.selectedColumn < numColumns-1 {
			m.selectedColumn++
		}
	case key.Matches(msg, m.keymap.Down):
		(&m).moveCardSelection(1)
	case key.Matches(msg, m.keymap.Up):
		(&m).moveCardSelection(-1)
	case msg.String() == "g":
		(&m).jumpToCard(0)
	case msg.String() == "G":
		(&m).jumpToCard(-1)
	case msg.String() == "ctrl+d":
		(&m).moveCardSelection(pageJumpSize)
	case msg.String() == "ctrl+u":
		(&m).moveCardSelection(-pageJumpSize)
	case key.Matches(msg, m.keymap.Move):
		if _, ok := m.getSelectedTask(); ok {
			m.moveMode = true
		}
	case key.Matches(msg, m.keymap.ShiftLeft):
		return m.shiftCard(-1, 0)
	case key.Matches(msg, m.keymap.ShiftRight):
		return m.shiftCard(1, 0)
	case key.Matches(msg, m.keymap.ShiftUp):
		return m.shiftCard(0, -1)
	case key.Matches(msg, m.keymap.ShiftDown):
		return m.shiftCard(0, 1)
	case key.Matches(msg, m.keymap.Open):
		if err := openURL(m.projectURL()); err != nil {
			m.errorToast = fmt.Sprintf("Could not open browser: %v", err)
		}
	case key.Matches(msg, m.keymap.Refresh):
		m.loading = true
		return m, m.refresh()
	case key.Matches(msg, m.keymap.Mine):
		m.filterMyOnly = !m.filterMyOnly
		(&m).applyFilter()
	case key.Matches(msg, m.keymap.Detail):
		if task, ok := m.getSelectedTask(); ok {
			return m, func() tea.Msg { return openDetailMsg{task: task} }
		}
	case key.Matches(msg, m.keymap.Projects):
		return m, navigate("/projects")
	case key.Matches(msg, m.keymap.Users):
		return m, navigate("/users")
	case key.Matches(msg, m.keymap.Logout):
		return m, func() tea.Msg { return LogoutMsg{} }
	}

	return m, nil
}

// handleMoveMode handles key presses in move mode
func (m BoardModel) handleMoveMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.moveMode = false
		return m, nil
	case "1", "2", "3":
		m.moveMode = false
		to := domain.Statuses[int(msg.Runes[0]-'1')]
		task, ok := m.getSelectedTask()
		if !ok || task.Status == to {
			return m, nil
		}
		// Cards moved with a column key land at the bottom.
		return m.moveCard(task, to, len(m.sync.Bucket(to)))
	}
	return m, nil
}

// shiftCard moves the selected card one column sideways (keeping its row)
// or one row up or down within its column.
func (m BoardModel) shiftCard(dCol, dRow int) (tea.Model, tea.Cmd) {
	task, ok := m.getSelectedTask()
	if !ok {
		return m, nil
	}
	_, index, ok := m.sync.Find(task.ID)
	if !ok {
		return m, nil
	}

	col := task.Status.Index() + dCol
	if col < 0 || col >= numColumns {
		return m, nil
	}
	target := index + dRow
	if target < 0 {
		return m, nil
	}
	return m.moveCard(task, domain.Statuses[col], target)
}

// moveCard applies a move optimistically and returns the command that
// persists it. Moves within a column never reach the server.
func (m BoardModel) moveCard(task domain.Task, to domain.Status, index int) (tea.Model, tea.Cmd) {
	pending, err := m.sync.Begin(task.ID, task.Status, to, index)
	if err != nil {
		if errors.Is(err, board.ErrMoveInFlight) {
			m.errorToast = fmt.Sprintf("%q is still being saved", task.Title)
		} else {
			m.errorToast = fmt.Sprintf("Move failed: %v", err)
		}
		return m, nil
	}

	(&m).applyFilter()
	(&m).selectTask(task.ID)
	if pending.Local() {
		return m, nil
	}

	m.saving++
	sync, ctx := m.sync, m.ctx
	return m, func() tea.Msg {
		if err := sync.Dispatch(ctx, pending); err != nil {
			return moveErrorMsg{pending: pending, err: err}
		}
		return moveSuccessMsg{pending: pending}
	}
}

// View renders the board - fills entire terminal exactly
func (m BoardModel) View() string {
	// Use sensible defaults if dimensions not yet set
	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	var sections []string
	sections = append(sections, m.renderHeader(width))
	sections = append(sections, m.renderSecondHeader(width))

	if m.filterMode {
		sections = append(sections, m.filterInput.View())
	}
	if m.moveMode {
		moveBar := moveModeStyle.Render("MOVE") + " Press 1-3 to select column, ESC to cancel"
		sections = append(sections, moveBar)
	}

	boardHeight := height - headerLines
	if m.filterMode {
		boardHeight--
	}
	if m.moveMode {
		boardHeight--
	}
	if boardHeight < 5 {
		boardHeight = 5
	}

	var mainContent string
	switch {
	case m.showHelp:
		helpLines := strings.Split(m.help.View(width, m.me), "\n")
		if len(helpLines) > boardHeight {
			helpLines = helpLines[:boardHeight]
		}
		mainContent = strings.Join(helpLines, "\n")
	case m.loading && m.total() == 0:
		loadingMsg := m.spinner.View() + " Loading..."
		mainContent = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center, loadingMsg)
	default:
		mainContent = m.renderBoard(width, boardHeight)
	}
	sections = append(sections, mainContent)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader renders the project title on the left and status on the right
func (m BoardModel) renderHeader(width int) string {
	title := m.project.Name
	if title == "" {
		title = "Board"
	}

	var statusParts []string
	if m.saving > 0 {
		statusParts = append(statusParts, m.spinner.View()+"saving")
	} else if m.loading {
		statusParts = append(statusParts, m.spinner.View()+"loading")
	}
	statusParts = append(statusParts, fmt.Sprintf("%d tasks", m.total()))
	if m.filterMyOnly {
		statusParts = append(statusParts, "@me")
	}
	if m.filterText != "" {
		statusParts = append(statusParts, fmt.Sprintf("/%s", m.filterText))
	}
	statusParts = append(statusParts, "[a]@me [?]help")
	status := strings.Join(statusParts, " | ")

	padding := width - lipgloss.Width(title) - lipgloss.Width(status) - 2
	if padding < 1 {
		padding = 1
	}
	return titleStyle.Render(title) + strings.Repeat(" ", padding) + dimStyle.Render(status)
}

// renderSecondHeader renders navigation hints and the toast or position
func (m BoardModel) renderSecondHeader(width int) string {
	left := "h/l:col j/k:card m:move H/L/J/K:shift o:open enter:view"

	right := ""
	switch {
	case m.errorToast != "":
		right = errorStyle.Render(m.errorToast)
	case m.notice != "":
		right = noticeStyle.Render(m.notice)
	default:
		colPos := fmt.Sprintf("col %d/%d", m.selectedColumn+1, numColumns)
		if cards := m.filtered[m.selectedColumn]; len(cards) > 0 {
			right = fmt.Sprintf("%s | card %d/%d", colPos, m.selectedCard[m.selectedColumn]+1, len(cards))
		} else {
			right = colPos
		}
	}

	padding := width - len(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return dimStyle.Render(left) + strings.Repeat(" ", padding) + right
}

// renderBoard renders the three columns side by side
func (m BoardModel) renderBoard(totalWidth, totalHeight int) string {
	// Border adds 2 lines to the content height
	colContentHeight := totalHeight - 2
	if colContentHeight < 3 {
		colContentHeight = 3
	}

	colWidth := totalWidth / numColumns
	if colWidth > maxColumnWidth {
		colWidth = maxColumnWidth
	}
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}

	// Border (2) + padding (2)
	innerWidth := colWidth - 4
	if innerWidth < 10 {
		innerWidth = 10
	}

	columnViews := make([]string, 0, numColumns)
	for i := 0; i < numColumns; i++ {
		columnViews = append(columnViews, m.renderColumn(i, i == m.selectedColumn, colWidth, colContentHeight, innerWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)
}

// renderColumn renders one bucket. innerHeight excludes the border.
func (m BoardModel) renderColumn(col int, selected bool, width, innerHeight, innerWidth int) string {
	cards := m.filtered[col]
	status := domain.Statuses[col]

	headerText := fmt.Sprintf("[%d] %s (%d)", col+1, status.Label(), len(cards))
	headerText = truncate.StringWithTail(headerText, uint(innerWidth), "…")

	scrollOffset := m.scrollOffset[col]
	selectedIdx := m.selectedCard[col]

	cardSlots := innerHeight - 1 // header line
	if cardSlots < 1 {
		cardSlots = 1
	}

	needUpIndicator := scrollOffset > 0
	availableSlots := cardSlots
	if needUpIndicator {
		availableSlots--
	}

	endIdx := scrollOffset + availableSlots
	if endIdx > len(cards) {
		endIdx = len(cards)
	}

	needDownIndicator := false
	if endIdx < len(cards) {
		needDownIndicator = true
		availableSlots--
		endIdx = scrollOffset + availableSlots
		if endIdx > len(cards) {
			endIdx = len(cards)
		}
	}

	lines := []string{columnHeaderStyle.Render(headerText)}

	if needUpIndicator {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↑ %d more", scrollOffset)))
	}

	for i := scrollOffset; i < endIdx; i++ {
		cardText := m.formatCardText(cards[i], innerWidth-2) // "> " or "  " prefix
		if selected && i == selectedIdx {
			lines = append(lines, selectedCardStyle.Render("> ")+cardText)
		} else {
			lines = append(lines, cardStyle.Render("  ")+cardText)
		}
	}

	if remaining := len(cards) - endIdx; needDownIndicator && remaining > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↓ %d more", remaining)))
	}

	if len(cards) == 0 {
		lines = append(lines, dimStyle.Render("(empty)"))
	}

	borderColor := lipgloss.Color("240")
	if selected {
		borderColor = lipgloss.Color("205")
	}

	// Height sets the content area; the border adds 2 lines.
	colStyle := lipgloss.NewStyle().
		Width(width - 2).
		Height(innerHeight).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor)

	return colStyle.Render(strings.Join(lines, "\n"))
}

// formatCardText renders a task title with its badges right-aligned:
// priority, assignee first name and due date. Tasks still being saved are
// marked.
func (m BoardModel) formatCardText(task domain.Task, maxWidth int) string {
	var badges []string
	if b := priorityBadge(task.Priority); b != "" {
		badges = append(badges, priorityStyle(task.Priority).Render(b))
	}
	if task.Assignee != nil {
		badges = append(badges, dimStyle.Render("@"+task.Assignee.FirstName()))
	}
	if due := dueLabel(task.DueDate); due != "" {
		badges = append(badges, dimStyle.Render(due))
	}
	suffix := strings.Join(badges, " ")

	title := task.Title
	if m.sync.InFlight(task.ID) {
		title = "~ " + title
	}

	suffixLen := lipgloss.Width(suffix)
	if suffixLen == 0 {
		return truncate.StringWithTail(title, uint(maxWidth), "…")
	}

	availableForTitle := maxWidth - suffixLen - 1
	if availableForTitle < 5 {
		availableForTitle = 5
	}
	title = truncate.StringWithTail(title, uint(availableForTitle), "…")

	padding := maxWidth - lipgloss.Width(title) - suffixLen
	if padding < 1 {
		padding = 1
	}
	return cardStyle.Render(title) + strings.Repeat(" ", padding) + suffix
}

// dueLabel shortens a YYYY-MM-DD due date for a card.
func dueLabel(date string) string {
	if date == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Jan 2")
}

// applyFilter copies the synchronizer's buckets through the active filters
func (m *BoardModel) applyFilter() {
	columns := m.sync.Columns()
	needle := strings.ToLower(m.filterText)

	for col, tasks := range columns {
		filtered := make([]domain.Task, 0, len(tasks))
		for _, task := range tasks {
			if needle != "" && !strings.Contains(strings.ToLower(task.Title), needle) {
				continue
			}
			if m.filterMyOnly && (task.Assignee == nil || task.Assignee.ID != m.me.ID) {
				continue
			}
			filtered = append(filtered, task)
		}
		m.filtered[col] = filtered

		// Clamp selection to the new contents
		if m.selectedCard[col] >= len(filtered) {
			m.selectedCard[col] = max(len(filtered)-1, 0)
		}
		if m.scrollOffset[col] > m.selectedCard[col] {
			m.scrollOffset[col] = m.selectedCard[col]
		}
	}
}

// selectTask moves the cursor to the task with id, wherever it is now.
func (m *BoardModel) selectTask(id string) {
	for col, tasks := range m.filtered {
		for i, task := range tasks {
			if task.ID == id {
				m.selectedColumn = col
				m.selectedCard[col] = i
				m.adjustScroll(col)
				return
			}
		}
	}
}

// moveCardSelection moves the card selection up or down by delta
func (m *BoardModel) moveCardSelection(delta int) {
	cards := m.filtered[m.selectedColumn]
	if len(cards) == 0 {
		return
	}

	newIdx := m.selectedCard[m.selectedColumn] + delta
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx >= len(cards) {
		newIdx = len(cards) - 1
	}

	m.selectedCard[m.selectedColumn] = newIdx
	m.adjustScroll(m.selectedColumn)
}

// jumpToCard jumps to a specific card index. Use -1 to jump to last card.
func (m *BoardModel) jumpToCard(idx int) {
	cards := m.filtered[m.selectedColumn]
	if len(cards) == 0 {
		return
	}

	if idx < 0 || idx >= len(cards) {
		idx = len(cards) - 1
	}

	m.selectedCard[m.selectedColumn] = idx
	m.adjustScroll(m.selectedColumn)
}

// adjustScroll ensures the selected card is visible
func (m *BoardModel) adjustScroll(col int) {
	selectedIdx := m.selectedCard[col]

	contentHeight := m.height - headerLines - 2 // 2 for column borders
	if m.moveMode {
		contentHeight--
	}
	if m.filterMode {
		contentHeight--
	}
	visibleCards := contentHeight - 3 // header + potential scroll indicators
	if visibleCards < 3 {
		visibleCards = 3
	}

	if selectedIdx < m.scrollOffset[col] {
		m.scrollOffset[col] = selectedIdx
	}
	if selectedIdx >= m.scrollOffset[col]+visibleCards {
		m.scrollOffset[col] = selectedIdx - visibleCards + 1
	}
}

// getSelectedTask returns the task under the cursor
func (m BoardModel) getSelectedTask() (domain.Task, bool) {
	cards := m.filtered[m.selectedColumn]
	if len(cards) == 0 {
		return domain.Task{}, false
	}

	idx := m.selectedCard[m.selectedColumn]
	if idx >= len(cards) {
		idx = 0
	}
	return cards[idx], true
}

// total counts the visible tasks
func (m BoardModel) total() int {
	n := 0
	for _, cards := range m.filtered {
		n += len(cards)
	}
	return n
}

// projectURL is the project's page in the web frontend.
func (m BoardModel) projectURL() string {
	return fmt.Sprintf("%s/projects/%s", m.webURL, m.sync.ProjectID())
}

// loadBoard fetches the project and its tasks
func (m BoardModel) loadBoard() tea.Cmd {
	loader, ctx, id := m.loader, m.ctx, m.sync.ProjectID()
	return func() tea.Msg {
		b, err := loader.GetProjectBoard(ctx, id)
		if err != nil {
			return boardErrorMsg{err: err}
		}
		return boardLoadedMsg{board: b}
	}
}

// refresh reloads the tasks, keeping moves that are still in flight
func (m BoardModel) refresh() tea.Cmd {
	sync, ctx := m.sync, m.ctx
	return func() tea.Msg {
		problems, err := sync.Refresh(ctx)
		return refreshedMsg{problems: problems, err: err}
	}
}

func problemNotice(problems []board.Inconsistency) string {
	if len(problems) == 0 {
		return ""
	}
	return fmt.Sprintf("%d task(s) hidden, see log", len(problems))
}

// Message types
type (
	boardLoadedMsg struct{ board api.ProjectBoard }
	boardErrorMsg  struct{ err error }
	refreshedMsg   struct {
		problems []board.Inconsistency
		err      error
	}
	moveSuccessMsg struct{ pending *board.Pending }
	moveErrorMsg   struct {
		pending *board.Pending
		err     error
	}
	openDetailMsg struct{ task domain.Task }
)
