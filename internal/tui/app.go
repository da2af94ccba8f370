package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/robby/taskdeck/internal/api"
	"github.com/robby/taskdeck/internal/board"
	"github.com/robby/taskdeck/internal/domain"
	"github.com/robby/taskdeck/internal/guard"
	"github.com/robby/taskdeck/internal/session"
)

// API is the remote API as the TUI uses it. *api.Client implements it.
type API interface {
	board.Remote
	boardLoader
	loginClient
	Logout(ctx context.Context) error
	ListProjects(ctx context.Context) ([]domain.Project, error)
	MyTasks(ctx context.Context, status domain.Status) ([]domain.Task, error)
	ListTenantUsers(ctx context.Context, tenantID string) ([]domain.User, error)
}

// Options configures the app.
type Options struct {
	API     API
	Session *session.Manager
	Guard   guard.Guard
	WebURL  string
	Logger  *slog.Logger

	// StartPath is the first screen requested, "/" if empty.
	StartPath string
	// Email and Tenant pre-fill the login form.
	Email  string
	Tenant string
}

// AppModel is the root Bubble Tea model. It routes between screens by
// path and asks the route guard about every navigation and every session
// change, so protected screens are never shown to an anonymous user and
// nothing is decided while the session is still being restored.
type AppModel struct {
	// Dependencies
	api     API
	session *session.Manager
	guard   guard.Guard
	ctx     context.Context
	logger  *slog.Logger
	webURL  string

	// Login form pre-fill
	email  string
	tenant string

	// Routing
	target string // Path the user asked for
	resume string // Protected path to return to after login
	path   string // Path of the screen on display

	// Current state
	currentModel tea.Model
	err          error
	loadingMsg   string

	// Cached models to preserve state across screen transitions
	boardModel *BoardModel
	detailTask domain.Task

	changes chan struct{}
}

// NewAppModel creates the app and subscribes it to session changes. The
// subscription ends when the session manager is closed.
func NewAppModel(ctx context.Context, opts Options) AppModel {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := opts.StartPath
	if start == "" {
		start = "/"
	}

	// One pending signal is enough: the handler reads the latest snapshot.
	changes := make(chan struct{}, 1)
	opts.Session.Subscribe(func(session.State) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	return AppModel{
		api:        opts.API,
		session:    opts.Session,
		guard:      opts.Guard,
		ctx:        ctx,
		logger:     logger.With("component", "tui"),
		webURL:     strings.TrimRight(opts.WebURL, "/"),
		email:      opts.Email,
		tenant:     opts.Tenant,
		target:     start,
		loadingMsg: "Starting...",
		changes:    changes,
	}
}

// Init starts session restore and requests the first screen.
func (m AppModel) Init() tea.Cmd {
	sess, ctx := m.session, m.ctx
	return tea.Batch(
		waitForSession(m.changes),
		func() tea.Msg {
			sess.Initialize(ctx)
			return nil
		},
		navigate(m.target),
	)
}

// Update handles messages and transitions between screens.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.err != nil {
			if msg.String() == "esc" || msg.String() == "q" {
				m.err = nil
				m.path = ""
				return m, navigate("/projects")
			}
			return m, nil
		}

	case sessionChangedMsg:
		return m, tea.Batch(waitForSession(m.changes), m.reconcile())

	case NavigateMsg:
		m.target = msg.Path
		return m, m.reconcile()

	case LoggedInMsg:
		m.logger.Info("signed in", "user", msg.Principal.Email)
		return m, m.reconcile()

	case LogoutMsg:
		client, ctx := m.api, m.ctx
		return m, func() tea.Msg {
			// Server side logout only feeds the audit log.
			return loggedOutMsg{err: client.Logout(ctx)}
		}

	case loggedOutMsg:
		if msg.err != nil {
			m.logger.Debug("server logout failed", "error", msg.err)
		}
		m.endSession()
		return m, m.reconcile()

	case ErrorMsg:
		if api.IsUnauthorized(msg.Err) {
			m.logger.Info("session rejected by server", "error", msg.Err)
			m.endSession()
			return m, m.reconcile()
		}
		m.err = msg.Err
		return m, nil

	case QuitMsg:
		return m, tea.Quit

	case ProjectSelectedMsg:
		m.target = boardPath(msg.Project.ID)
		return m, m.reconcile()

	case openDetailMsg:
		m.detailTask = msg.task
		m.target = "/tasks/" + msg.task.ID
		return m, m.reconcile()

	case closeDetailMsg:
		m.target = "/projects"
		if m.boardModel != nil {
			m.target = boardPath(m.boardModel.ProjectID())
		}
		return m, tea.Batch(m.reconcile(), tea.WindowSize())

	case projectsLoadedMsg:
		if m.path != "/projects" {
			return m, nil
		}
		picker := NewProjectPickerModel(msg.projects, m.session.Snapshot().Principal, msg.openTasks)
		m.currentModel = picker
		return m, picker.Init()

	case usersLoadedMsg:
		if m.path != "/users" {
			return m, nil
		}
		users := NewUsersModel(msg.users)
		m.currentModel = users
		return m, users.Init()

	case boardLoadedMsg, boardErrorMsg, refreshedMsg, moveSuccessMsg, moveErrorMsg:
		// Board answers are delivered even while another screen is shown.
		return m, m.updateBoard(msg)
	}

	// Delegate to current screen's model
	if m.currentModel != nil {
		if _, ok := m.currentModel.(BoardModel); ok {
			return m, m.updateBoard(msg)
		}
		var cmd tea.Cmd
		m.currentModel, cmd = m.currentModel.Update(msg)
		return m, cmd
	}

	return m, nil
}

// updateBoard forwards msg to the cached board, keeping the screen in sync.
func (m *AppModel) updateBoard(msg tea.Msg) tea.Cmd {
	if m.boardModel == nil {
		return nil
	}
	model, cmd := m.boardModel.Update(msg)
	bm := model.(BoardModel)
	m.boardModel = &bm
	if _, onBoard := m.currentModel.(BoardModel); onBoard {
		m.currentModel = bm
	}
	return cmd
}

// reconcile shows the screen the guard allows for the current target.
func (m *AppModel) reconcile() tea.Cmd {
	state := m.session.Snapshot()
	target := m.target
	if state.Status.Resolved() {
		target = m.landing(state, target)
	}

	d := m.guard.Decide(state.Status, target)
	switch d.Kind {
	case guard.Defer:
		m.path = ""
		m.currentModel = nil
		m.loadingMsg = "Restoring session..."
		return nil
	case guard.Redirect:
		m.resume = d.From
		target = d.To
	}

	m.target = target
	return m.open(target, state)
}

// landing maps entry paths onto real screens for a resolved session.
func (m *AppModel) landing(state session.State, path string) string {
	switch strings.TrimSuffix(path, "/") {
	case "":
		if state.Authenticated() {
			return "/projects"
		}
		return m.loginPath()
	case m.loginPath():
		if state.Authenticated() {
			next := m.resume
			m.resume = ""
			if next == "" {
				next = "/projects"
			}
			return next
		}
	}
	return path
}

func (m *AppModel) loginPath() string {
	if m.guard.LoginPath == "" {
		return guard.DefaultLoginPath
	}
	return m.guard.LoginPath
}

// open builds the screen for path unless it is already displayed.
func (m *AppModel) open(path string, state session.State) tea.Cmd {
	if path == m.path && (m.currentModel != nil || m.err != nil) {
		return nil
	}
	m.err = nil
	m.path = path
	m.currentModel = nil

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case path == m.loginPath():
		login := NewLoginModel(m.api, m.session, m.email, m.tenant, m.ctx)
		m.currentModel = login
		return login.Init()

	case path == "/projects":
		m.loadingMsg = "Loading projects..."
		return m.loadProjects()

	case path == "/users":
		switch {
		case !state.Principal.Role.IsAdmin():
			m.currentModel = NewUsersHintModel("Only tenant admins can list users.")
			return nil
		case state.Principal.TenantID == "":
			m.currentModel = NewUsersHintModel("System administrators manage tenant users in the web app.")
			return nil
		}
		m.loadingMsg = "Loading users..."
		return m.loadUsers(state.Principal.TenantID)

	case len(parts) == 3 && parts[0] == "projects" && parts[2] == "board":
		return m.openBoard(parts[1], state.Principal)

	case len(parts) == 2 && parts[0] == "tasks":
		if m.detailTask.ID != parts[1] {
			// Nothing to show without the board's copy of the task.
			m.target = "/projects"
			m.path = ""
			return m.open("/projects", state)
		}
		detail := NewDetailModel(m.detailTask, m.webURL)
		m.currentModel = detail
		return detail.Init()

	case path == "/register":
		m.err = fmt.Errorf("tenant registration is available in the web app at %s/register", m.webURL)
		return nil
	}

	m.err = fmt.Errorf("nothing to show at %s", path)
	return nil
}

// openBoard shows the cached board for projectID or starts a new one.
func (m *AppModel) openBoard(projectID string, me domain.Principal) tea.Cmd {
	if m.boardModel != nil && m.boardModel.ProjectID() == projectID {
		m.currentModel = *m.boardModel
		return tea.WindowSize()
	}
	m.closeBoard()

	sync := board.NewSynchronizer(m.api, projectID, m.logger)
	bm := NewBoardModel(sync, m.api, me, m.webURL, m.ctx)
	m.boardModel = &bm
	m.currentModel = bm
	return bm.Init()
}

func (m *AppModel) closeBoard() {
	if m.boardModel != nil {
		m.boardModel.Close()
		m.boardModel = nil
	}
}

// endSession logs out locally and drops state that belonged to the user.
func (m *AppModel) endSession() {
	m.session.Logout()
	m.closeBoard()
	m.detailTask = domain.Task{}
}

// View renders the current screen.
func (m AppModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v\n\nPress Esc to go back, Ctrl+C to quit", m.err))
	}

	if m.currentModel != nil {
		return m.currentModel.View()
	}

	return m.loadingMsg + "\n\nPress Ctrl+C to quit"
}

// loadProjects fetches the project list and my open tasks in parallel.
// The task count is decoration; failing to get it is not an error.
func (m AppModel) loadProjects() tea.Cmd {
	client, ctx, logger := m.api, m.ctx, m.logger
	return func() tea.Msg {
		var msg projectsLoadedMsg

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			projects, err := client.ListProjects(gctx)
			msg.projects = projects
			return err
		})
		g.Go(func() error {
			tasks, err := client.MyTasks(gctx, "")
			if err != nil {
				logger.Debug("my tasks unavailable", "error", err)
				return nil
			}
			for _, t := range tasks {
				if t.Status != domain.StatusCompleted {
					msg.openTasks++
				}
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return ErrorMsg{Err: fmt.Errorf("failed to load projects: %w", err)}
		}
		return msg
	}
}

// loadUsers fetches the tenant's users.
func (m AppModel) loadUsers(tenantID string) tea.Cmd {
	client, ctx := m.api, m.ctx
	return func() tea.Msg {
		users, err := client.ListTenantUsers(ctx, tenantID)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return usersLoadedMsg{users: users}
	}
}

// waitForSession delivers the next session change as a message.
func waitForSession(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return sessionChangedMsg{}
	}
}

func boardPath(projectID string) string {
	return "/projects/" + projectID + "/board"
}

// Custom messages for app transitions.
type (
	sessionChangedMsg struct{}

	loggedOutMsg struct{ err error }

	projectsLoadedMsg struct {
		projects  []domain.Project
		openTasks int
	}

	usersLoadedMsg struct {
		users []domain.User
	}
)
