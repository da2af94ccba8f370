package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/robby/taskdeck/internal/api"
	"github.com/robby/taskdeck/internal/session"
)

// loginClient is the part of the API the login screen calls.
type loginClient interface {
	Login(ctx context.Context, req api.LoginRequest) (api.LoginResponse, error)
}

// LoginModel asks for credentials and turns a successful login into the
// current session. Failures stay on the form.
type LoginModel struct {
	client  loginClient
	session *session.Manager
	ctx     context.Context

	form    *huh.Form
	spinner spinner.Model

	// Form field values
	email    string
	password string
	tenant   string

	submitting bool
	err        error
	width      int
}

// NewLoginModel creates the login screen, pre-filling email and tenant.
func NewLoginModel(client loginClient, sess *session.Manager, email, tenant string, ctx context.Context) *LoginModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := &LoginModel{
		client:  client,
		session: sess,
		ctx:     ctx,
		spinner: sp,
		email:   email,
		tenant:  tenant,
	}
	m.form = m.createForm()
	return m
}

func (m *LoginModel) createForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@company.com").
				Value(&m.email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.password).
				Validate(required("password")),
			huh.NewInput().
				Title("Tenant").
				Description("Your organization's subdomain. Leave empty for a system login.").
				Placeholder("acme").
				Value(&m.tenant),
		).Title("Sign in to taskdeck"),
	).WithTheme(huh.ThemeCharm())
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// Init implements tea.Model
func (m *LoginModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update implements tea.Model
func (m *LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loginResultMsg:
		return m.finish(msg)
	}

	if m.submitting {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.submitting = true
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.submit())
	}

	return m, cmd
}

// submit sends the credentials. The transport is left alone; the session
// configures it once the response is accepted.
func (m *LoginModel) submit() tea.Cmd {
	client, ctx := m.client, m.ctx
	req := api.LoginRequest{
		Email:           strings.TrimSpace(m.email),
		Password:        m.password,
		TenantSubdomain: strings.TrimSpace(m.tenant),
	}
	return func() tea.Msg {
		resp, err := client.Login(ctx, req)
		return loginResultMsg{resp: resp, err: err}
	}
}

func (m *LoginModel) finish(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.submitting = false

	err := msg.err
	if err == nil {
		principal, loginErr := m.session.Login(msg.resp)
		if loginErr == nil {
			m.password = ""
			return m, func() tea.Msg { return LoggedInMsg{Principal: principal} }
		}
		err = loginErr
	}

	m.err = err
	m.password = ""
	m.form = m.createForm()
	return m, m.form.Init()
}

// View implements tea.Model
func (m *LoginModel) View() string {
	var b strings.Builder
	b.WriteString(m.form.View())

	if m.submitting {
		b.WriteString("\n" + m.spinner.View() + " Signing in...")
	}
	if m.err != nil {
		b.WriteString("\n" + ErrorStyle.Render(loginErrorText(m.err)))
	}
	b.WriteString("\n" + HelpStyle.Render("ctrl+c: quit"))
	return b.String()
}

// loginErrorText turns a login failure into a message for the form.
func loginErrorText(err error) string {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrUnreachable):
		return "Cannot reach the server. Check api_url in your config."
	case errors.Is(err, session.ErrMalformedLogin):
		return "The server sent an unusable login response."
	case errors.As(err, &apiErr):
		return apiErr.Message
	}
	return err.Error()
}

type loginResultMsg struct {
	resp api.LoginResponse
	err  error
}
