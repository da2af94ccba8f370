package tui

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robby/taskdeck/internal/api"
	"github.com/robby/taskdeck/internal/board"
	"github.com/robby/taskdeck/internal/domain"
	"github.com/robby/taskdeck/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAPI implements API in memory
type mockAPI struct {
	mu sync.Mutex

	project  domain.Project
	tasks    []domain.Task
	projects []domain.Project
	myTasks  []domain.Task
	users    []domain.User

	moveErr  error
	loadErr  error
	moves    []string
	logouts  int
	loggedIn []api.LoginRequest
}

func (m *mockAPI) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves = append(m.moves, taskID+":"+string(status))
	return m.moveErr
}

func (m *mockAPI) ListProjectTasks(ctx context.Context, projectID string, filter api.TaskFilter) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Task(nil), m.tasks...), m.loadErr
}

func (m *mockAPI) GetProjectBoard(ctx context.Context, projectID string) (api.ProjectBoard, error) {
	tasks, err := m.ListProjectTasks(ctx, projectID, api.TaskFilter{})
	if err != nil {
		return api.ProjectBoard{}, err
	}
	return api.ProjectBoard{Project: m.project, Tasks: tasks}, nil
}

func (m *mockAPI) Login(ctx context.Context, req api.LoginRequest) (api.LoginResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loggedIn = append(m.loggedIn, req)
	return api.LoginResponse{}, &api.Error{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
}

func (m *mockAPI) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logouts++
	return nil
}

func (m *mockAPI) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return m.projects, nil
}

func (m *mockAPI) MyTasks(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	return m.myTasks, nil
}

func (m *mockAPI) ListTenantUsers(ctx context.Context, tenantID string) ([]domain.User, error) {
	return m.users, nil
}

func (m *mockAPI) recordedMoves() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.moves...)
}

var testMe = domain.Principal{
	ID:          "u-ada",
	Email:       "ada@acme.test",
	DisplayName: "Ada Admin",
	Role:        domain.RoleTenantAdmin,
	TenantID:    "tenant-1",
}

// newMockAPI creates an API with one project and four tasks
func newMockAPI() *mockAPI {
	ada := &domain.Assignee{ID: testMe.ID, FullName: "Ada Admin", Email: testMe.Email}
	maxm := &domain.Assignee{ID: "u-max", FullName: "Max Member", Email: "max@acme.test"}

	return &mockAPI{
		project: domain.Project{ID: "p1", Name: "Website relaunch", TaskCount: 4},
		tasks: []domain.Task{
			{ID: "t1", ProjectID: "p1", Title: "Draft sitemap", Status: domain.StatusTodo, Priority: domain.PriorityHigh, Assignee: ada, DueDate: "2026-03-14"},
			{ID: "t2", ProjectID: "p1", Title: "Pick typography", Status: domain.StatusTodo, Priority: domain.PriorityLow},
			{ID: "t3", ProjectID: "p1", Title: "Build landing page", Status: domain.StatusInProgress, Priority: domain.PriorityMedium, Assignee: maxm},
			{ID: "t4", ProjectID: "p1", Title: "Set up analytics", Status: domain.StatusCompleted, Priority: domain.PriorityMedium, Assignee: ada},
		},
		projects: []domain.Project{{ID: "p1", Name: "Website relaunch", TaskCount: 4}},
	}
}

// createTestBoard creates a loaded board over a mock API
func createTestBoard(t *testing.T) (BoardModel, *mockAPI) {
	t.Helper()
	remote := newMockAPI()
	synchronizer := board.NewSynchronizer(remote, "p1", logging.Discard())

	b := NewBoardModel(synchronizer, remote, testMe, "http://web.test/", context.Background())
	model, _ := b.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	b = model.(BoardModel)

	loaded, err := remote.GetProjectBoard(context.Background(), "p1")
	require.NoError(t, err)
	model, _ = b.Update(boardLoadedMsg{board: loaded})
	return model.(BoardModel), remote
}

func press(t *testing.T, m BoardModel, keys ...string) (BoardModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var model tea.Model
		model, cmd = m.Update(msg)
		m = model.(BoardModel)
	}
	return m, cmd
}

func ids(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestBoardModel_Load(t *testing.T) {
	b, _ := createTestBoard(t)

	assert.False(t, b.loading)
	assert.Equal(t, "Website relaunch", b.project.Name)
	assert.Equal(t, []string{"t1", "t2"}, ids(b.filtered[0]))
	assert.Equal(t, []string{"t3"}, ids(b.filtered[1]))
	assert.Equal(t, []string{"t4"}, ids(b.filtered[2]))
	assert.Empty(t, b.notice)
}

func TestBoardModel_LoadReportsHiddenTasks(t *testing.T) {
	remote := newMockAPI()
	remote.tasks = append(remote.tasks, domain.Task{ID: "t9", Title: "Weird", Status: "blocked"})
	b := NewBoardModel(board.NewSynchronizer(remote, "p1", logging.Discard()), remote, testMe, "", context.Background())

	loaded, _ := remote.GetProjectBoard(context.Background(), "p1")
	model, _ := b.Update(boardLoadedMsg{board: loaded})
	b = model.(BoardModel)

	assert.Equal(t, 4, b.total())
	assert.Contains(t, b.notice, "1 task(s) hidden")
}

func TestBoardModel_ColumnNavigation(t *testing.T) {
	b, _ := createTestBoard(t)
	assert.Equal(t, 0, b.selectedColumn)

	b, _ = press(t, b, "l")
	assert.Equal(t, 1, b.selectedColumn)

	b, _ = press(t, b, "l", "l", "l")
	assert.Equal(t, 2, b.selectedColumn, "stops at the last column")

	b, _ = press(t, b, "h")
	assert.Equal(t, 1, b.selectedColumn)
}

func TestBoardModel_CardNavigation(t *testing.T) {
	b, _ := createTestBoard(t)
	assert.Equal(t, 0, b.selectedCard[0])

	b, _ = press(t, b, "j")
	assert.Equal(t, 1, b.selectedCard[0])

	b, _ = press(t, b, "j")
	assert.Equal(t, 1, b.selectedCard[0], "stops at the last card")

	b, _ = press(t, b, "k", "k")
	assert.Equal(t, 0, b.selectedCard[0])

	b, _ = press(t, b, "G")
	assert.Equal(t, 1, b.selectedCard[0])
}

func TestBoardModel_TextFilter(t *testing.T) {
	b, _ := createTestBoard(t)

	b, _ = press(t, b, "/", "l", "a", "n", "d", "enter")
	assert.False(t, b.filterMode)
	assert.Equal(t, "land", b.filterText)
	assert.Empty(t, b.filtered[0])
	assert.Equal(t, []string{"t3"}, ids(b.filtered[1]))
	assert.Empty(t, b.filtered[2])
}

func TestBoardModel_AssignedToMeFilter(t *testing.T) {
	b, _ := createTestBoard(t)

	b, _ = press(t, b, "a")
	assert.True(t, b.filterMyOnly)
	assert.Equal(t, []string{"t1"}, ids(b.filtered[0]))
	assert.Empty(t, b.filtered[1])
	assert.Equal(t, []string{"t4"}, ids(b.filtered[2]))

	b, _ = press(t, b, "a")
	assert.Equal(t, 4, b.total())
}

func TestBoardModel_MoveIsOptimistic(t *testing.T) {
	b, remote := createTestBoard(t)

	b, cmd := press(t, b, "m")
	assert.True(t, b.moveMode)
	assert.Nil(t, cmd)

	b, cmd = press(t, b, "2")
	require.NotNil(t, cmd)
	assert.False(t, b.moveMode)

	// Visible before the server has been asked
	assert.Empty(t, remote.recordedMoves())
	assert.Equal(t, []string{"t2"}, ids(b.filtered[0]))
	assert.Equal(t, []string{"t3", "t1"}, ids(b.filtered[1]))
	assert.Equal(t, domain.StatusInProgress, b.filtered[1][1].Status)
	assert.Equal(t, 1, b.selectedColumn, "selection follows the moved card")
	assert.Equal(t, 1, b.selectedCard[1])
	assert.Equal(t, 1, b.saving)

	msg := cmd()
	require.IsType(t, moveSuccessMsg{}, msg)
	assert.Equal(t, []string{"t1:in_progress"}, remote.recordedMoves())

	model, _ := b.Update(msg)
	b = model.(BoardModel)
	assert.Equal(t, 0, b.saving)
	assert.False(t, b.sync.InFlight("t1"))
	assert.Equal(t, []string{"t3", "t1"}, ids(b.filtered[1]))
	assert.Empty(t, b.errorToast)
}

func TestBoardModel_FailedMoveRollsBack(t *testing.T) {
	b, remote := createTestBoard(t)
	remote.moveErr = &api.Error{Status: http.StatusForbidden, Message: "Forbidden"}

	b, cmd := press(t, b, "m", "3")
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"t4", "t1"}, ids(b.filtered[2]))

	msg := cmd()
	require.IsType(t, moveErrorMsg{}, msg)

	model, _ := b.Update(msg)
	b = model.(BoardModel)

	assert.Equal(t, []string{"t1", "t2"}, ids(b.filtered[0]))
	assert.Equal(t, []string{"t4"}, ids(b.filtered[2]))
	assert.Equal(t, domain.StatusTodo, b.filtered[0][0].Status)
	assert.Equal(t, "move not applied, you may lack permission or the server is unreachable", b.errorToast)
	assert.Equal(t, 0, b.saving)
}

func TestBoardModel_UnauthorizedMoveGoesToApp(t *testing.T) {
	b, remote := createTestBoard(t)
	remote.moveErr = &api.Error{Status: http.StatusUnauthorized, Message: "Token expired"}

	b, cmd := press(t, b, "m", "2")
	require.NotNil(t, cmd)

	model, next := b.Update(cmd())
	b = model.(BoardModel)

	assert.Equal(t, []string{"t1", "t2"}, ids(b.filtered[0]), "rolled back")
	require.NotNil(t, next)
	errMsg, ok := next().(ErrorMsg)
	require.True(t, ok)
	assert.True(t, api.IsUnauthorized(errMsg.Err))
}

func TestBoardModel_SecondMoveWhileSavingIsRejected(t *testing.T) {
	b, remote := createTestBoard(t)

	b, cmd := press(t, b, "m", "2")
	require.NotNil(t, cmd)

	// Cursor is on t1 in the In Progress column now
	b, second := press(t, b, "L")
	assert.Nil(t, second)
	assert.Contains(t, b.errorToast, "still being saved")
	assert.Equal(t, []string{"t3", "t1"}, ids(b.filtered[1]))
	assert.Empty(t, remote.recordedMoves())
}

func TestBoardModel_ShiftMovesKeepRow(t *testing.T) {
	b, remote := createTestBoard(t)

	b, _ = press(t, b, "j") // t2
	b, cmd := press(t, b, "L")
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"t3", "t2"}, ids(b.filtered[1]), "index 1 kept")

	model, _ := b.Update(cmd())
	b = model.(BoardModel)
	assert.Equal(t, []string{"t2:in_progress"}, remote.recordedMoves())

	b, cmd = press(t, b, "H")
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"t1", "t2"}, ids(b.filtered[0]))
	assert.Equal(t, 0, b.selectedColumn)

	model, _ = b.Update(cmd())
	b = model.(BoardModel)
	_, cmd = press(t, b, "H")
	assert.Nil(t, cmd, "nothing left of the first column")
}

func TestBoardModel_ReorderIsLocal(t *testing.T) {
	b, remote := createTestBoard(t)

	b, cmd := press(t, b, "J")
	assert.Nil(t, cmd)
	assert.Equal(t, []string{"t2", "t1"}, ids(b.filtered[0]))
	assert.Equal(t, 1, b.selectedCard[0])
	assert.Equal(t, 0, b.saving)

	_, cmd = press(t, b, "m", "1")
	assert.Nil(t, cmd, "moving to the same column does nothing")
	assert.Empty(t, remote.recordedMoves())
}

func TestBoardModel_AnswerAfterCloseIsIgnored(t *testing.T) {
	b, remote := createTestBoard(t)
	remote.moveErr = errors.New("connection reset")

	b, cmd := press(t, b, "m", "2")
	require.NotNil(t, cmd)
	msg := cmd()

	b.Close()
	model, _ := b.Update(msg)
	b = model.(BoardModel)

	assert.Empty(t, b.errorToast)
	assert.Equal(t, []string{"t3", "t1"}, ids(b.filtered[1]))
}

func TestBoardModel_Refresh(t *testing.T) {
	b, remote := createTestBoard(t)
	remote.tasks = remote.tasks[:2]

	b, cmd := press(t, b, "r")
	require.NotNil(t, cmd)
	assert.True(t, b.loading)

	model, _ := b.Update(cmd())
	b = model.(BoardModel)
	assert.False(t, b.loading)
	assert.Equal(t, 2, b.total())
}

func TestBoardModel_UnauthorizedLoadGoesToApp(t *testing.T) {
	b, _ := createTestBoard(t)

	_, cmd := b.Update(boardErrorMsg{err: &api.Error{Status: http.StatusUnauthorized, Message: "Token expired"}})
	require.NotNil(t, cmd)
	msg, ok := cmd().(ErrorMsg)
	require.True(t, ok)
	assert.True(t, api.IsUnauthorized(msg.Err))

	model, cmd := b.Update(boardErrorMsg{err: errors.New("boom")})
	assert.Nil(t, cmd)
	assert.Contains(t, model.(BoardModel).errorToast, "boom")
}

func TestBoardModel_KeysEmitNavigation(t *testing.T) {
	b, _ := createTestBoard(t)

	_, cmd := press(t, b, "enter")
	require.NotNil(t, cmd)
	detail, ok := cmd().(openDetailMsg)
	require.True(t, ok)
	assert.Equal(t, "t1", detail.task.ID)

	_, cmd = press(t, b, "p")
	assert.Equal(t, NavigateMsg{Path: "/projects"}, cmd())

	_, cmd = press(t, b, "u")
	assert.Equal(t, NavigateMsg{Path: "/users"}, cmd())

	_, cmd = press(t, b, "X")
	assert.Equal(t, LogoutMsg{}, cmd())
}

func TestBoardModel_OpenInBrowser(t *testing.T) {
	var opened string
	prev := openURL
	openURL = func(url string) error {
		opened = url
		return nil
	}
	t.Cleanup(func() { openURL = prev })

	b, _ := createTestBoard(t)
	press(t, b, "o")
	assert.Equal(t, "http://web.test/projects/p1", opened)
}

func TestBoardModel_View(t *testing.T) {
	b, _ := createTestBoard(t)

	view := b.View()
	assert.Contains(t, view, "Website relaunch")
	assert.Contains(t, view, "To Do")
	assert.Contains(t, view, "In Progress")
	assert.Contains(t, view, "Completed")
	assert.Contains(t, view, "Draft sitemap")

	lines := strings.Split(view, "\n")
	assert.Greater(t, len(lines), 3)
}

func TestBoardModel_View_NotPanic(t *testing.T) {
	remote := newMockAPI()
	b := NewBoardModel(board.NewSynchronizer(remote, "p1", logging.Discard()), remote, testMe, "", context.Background())

	require.NotPanics(t, func() {
		view := b.View()
		assert.Contains(t, view, "Loading")
	})
}

func TestFormatCardText(t *testing.T) {
	b, _ := createTestBoard(t)

	text := b.formatCardText(b.filtered[0][0], 40)
	assert.Contains(t, text, "Draft sitemap")
	assert.Contains(t, text, "!!")
	assert.Contains(t, text, "@Ada")
	assert.Contains(t, text, "Mar 14")

	long := domain.Task{ID: "x", Title: "This is a very long title that should be truncated to fit the column width"}
	assert.Contains(t, b.formatCardText(long, 30), "…")
}

func TestBoardModel_WindowResize(t *testing.T) {
	b, _ := createTestBoard(t)

	model, _ := b.Update(tea.WindowSizeMsg{Width: 90, Height: 20})
	b = model.(BoardModel)

	assert.Equal(t, 90, b.width)
	assert.Equal(t, 20, b.height)
}
