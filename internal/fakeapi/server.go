// Package fakeapi is an in-memory stand-in for the task manager API.
// It serves the same routes, envelopes and permission rules the client
// relies on, and backs both package tests and `taskdeck mock-server`.
package fakeapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robby/taskdeck/internal/domain"
)

// TokenTTL matches the server's access token lifetime.
const TokenTTL = 24 * time.Hour

// Tenant is a seeded tenant.
type Tenant struct {
	ID        string
	Name      string
	Subdomain string
}

// User is a seeded user. Password is stored in clear; this is a fake.
type User struct {
	ID       string
	TenantID string // empty for super admins
	Email    string
	Password string
	FullName string
	Role     domain.Role
	IsActive bool
}

// Project is a seeded project.
type Project struct {
	ID          string
	TenantID    string
	Name        string
	Description string
	Status      string
	CreatedAt   time.Time
}

// Task is a seeded task.
type Task struct {
	ID          string
	ProjectID   string
	TenantID    string
	Title       string
	Description string
	Status      domain.Status
	Priority    domain.Priority
	AssigneeID  string
	DueDate     string
	CreatedAt   time.Time
}

// Server holds the fake's state. All methods are safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	tenants  map[string]*Tenant
	users    map[string]*User
	projects []*Project
	tasks    []*Task
	tokens   map[string]string // token -> user id

	failStatus    int // when non-zero, PATCH /tasks/{id}/status answers with it
	statusUpdates int
	logouts       int

	now    func() time.Time
	logger *slog.Logger
}

// New creates an empty fake. logger may be nil.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		tenants: make(map[string]*Tenant),
		users:   make(map[string]*User),
		tokens:  make(map[string]string),
		now:     time.Now,
		logger:  logger,
	}
}

// AddTenant seeds a tenant.
func (s *Server) AddTenant(name, subdomain string) Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Tenant{ID: uuid.NewString(), Name: name, Subdomain: subdomain}
	s.tenants[t.ID] = t
	return *t
}

// AddUser seeds an active user. tenantID is empty for a super admin.
func (s *Server) AddUser(tenantID, email, password, fullName string, role domain.Role) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Email:    email,
		Password: password,
		FullName: fullName,
		Role:     role,
		IsActive: true,
	}
	s.users[u.ID] = u
	return *u
}

// AddProject seeds a project.
func (s *Server) AddProject(tenantID, name, description string) Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &Project{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Name:        name,
		Description: description,
		Status:      "active",
		CreatedAt:   s.now(),
	}
	s.projects = append(s.projects, p)
	return *p
}

// AddTask seeds a task in a project. assigneeID may be empty.
func (s *Server) AddTask(projectID, title string, status domain.Status, priority domain.Priority, assigneeID string) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Task{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Title:      title,
		Status:     status,
		Priority:   priority,
		AssigneeID: assigneeID,
		CreatedAt:  s.now(),
	}
	if p := s.project(projectID); p != nil {
		t.TenantID = p.TenantID
	}
	s.tasks = append(s.tasks, t)
	return *t
}

// Task returns the current server-side copy of a task.
func (s *Server) Task(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.task(id); t != nil {
		return *t, true
	}
	return Task{}, false
}

// IssueToken creates a valid token for a user, as a login would.
func (s *Server) IssueToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueToken(userID)
}

// RevokeToken makes a token unknown to the server.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// FailStatusUpdates makes every status update answer with code. Zero restores normal behavior.
func (s *Server) FailStatusUpdates(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = code
}

// StatusUpdates returns how many status update requests reached the server.
func (s *Server) StatusUpdates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusUpdates
}

// Logouts returns how many logout requests were recorded.
func (s *Server) Logouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts
}

// issueToken builds an unsigned JWT-shaped token carrying user_id and exp.
// Callers hold s.mu.
func (s *Server) issueToken(userID string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	claims, _ := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"exp":     s.now().Add(TokenTTL).Unix(),
		"jti":     uuid.NewString(),
	})
	token := header + "." + base64.RawURLEncoding.EncodeToString(claims) + ".fake"
	s.tokens[token] = userID
	return token
}

func (s *Server) project(id string) *Project {
	for _, p := range s.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Server) task(id string) *Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *Server) userByLogin(email string, tenantID string, role domain.Role) *User {
	for _, u := range s.users {
		if u.Email != email || !u.IsActive {
			continue
		}
		if role != "" && u.Role != role {
			continue
		}
		if tenantID != "" && u.TenantID != tenantID {
			continue
		}
		return u
	}
	return nil
}

func (s *Server) tenantBySubdomain(sub string) *Tenant {
	for _, t := range s.tenants {
		if t.Subdomain == sub {
			return t
		}
	}
	return nil
}

// Demo describes the data created by Seed.
type Demo struct {
	Tenant   Tenant
	Admin    User
	Member   User
	Project  Project
	Password string
}

// Seed fills the fake with a small demo tenant for `taskdeck mock-server`.
func (s *Server) Seed() Demo {
	const password = "password123"

	tenant := s.AddTenant("Acme Corp", "acme")
	admin := s.AddUser(tenant.ID, "admin@acme.test", password, "Ada Admin", domain.RoleTenantAdmin)
	member := s.AddUser(tenant.ID, "max@acme.test", password, "Max Member", domain.RoleMember)
	s.AddUser("", "root@system.test", password, "Sam Super", domain.RoleSuperAdmin)

	project := s.AddProject(tenant.ID, "Website relaunch", "New marketing site")
	s.AddTask(project.ID, "Draft sitemap", domain.StatusTodo, domain.PriorityHigh, member.ID)
	s.AddTask(project.ID, "Pick typography", domain.StatusTodo, domain.PriorityLow, "")
	s.AddTask(project.ID, "Build landing page", domain.StatusInProgress, domain.PriorityMedium, member.ID)
	s.AddTask(project.ID, "Set up analytics", domain.StatusCompleted, domain.PriorityMedium, admin.ID)

	other := s.AddProject(tenant.ID, "Billing migration", "")
	s.AddTask(other.ID, "Export invoices", domain.StatusTodo, domain.PriorityHigh, admin.ID)

	return Demo{Tenant: tenant, Admin: admin, Member: member, Project: project, Password: password}
}

// String implements fmt.Stringer for log output.
func (d Demo) String() string {
	return fmt.Sprintf("tenant=%s admin=%s member=%s password=%s", d.Tenant.Subdomain, d.Admin.Email, d.Member.Email, d.Password)
}

// statusWriter records the response code for request logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
