// Package domain defines the normalized domain types for the task manager.
// These types represent the core concepts independent of the REST API's JSON shapes.
package domain

import (
	"strings"
	"time"
)

// Role is the authorization role carried on a Principal.
// It is opaque to the client beyond display and navigation hints;
// enforcement is the server's job.
type Role string

const (
	RoleMember      Role = "user"
	RoleTenantAdmin Role = "tenant_admin"
	RoleSuperAdmin  Role = "super_admin"
)

// ParseRole maps a wire role string to a Role. The second return value is
// false for unknown roles.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.TrimSpace(s)) {
	case RoleMember:
		return RoleMember, true
	case RoleTenantAdmin:
		return RoleTenantAdmin, true
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	}
	return "", false
}

// Label returns a human-readable role name.
func (r Role) Label() string {
	switch r {
	case RoleTenantAdmin:
		return "Tenant Admin"
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleMember:
		return "Member"
	}
	return string(r)
}

// IsAdmin reports whether the role may manage projects, users and tasks.
func (r Role) IsAdmin() bool {
	return r == RoleTenantAdmin || r == RoleSuperAdmin
}

// Principal is the authenticated identity attached to a session.
// Principals are immutable: a new login replaces the value wholesale.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"fullName"`
	Role        Role   `json:"role"`
	TenantID    string `json:"tenantId"`
}

// Valid reports whether the principal carries the fields a session needs.
func (p Principal) Valid() bool {
	if p.ID == "" {
		return false
	}
	_, ok := ParseRole(string(p.Role))
	return ok
}

// FirstName returns the first word of the display name, falling back to the email.
func (p Principal) FirstName() string {
	if fields := strings.Fields(p.DisplayName); len(fields) > 0 {
		return fields[0]
	}
	return p.Email
}

// Status is the board bucket a task belongs to.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists the buckets in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	return s.Index() >= 0
}

// Index returns the bucket position of s, or -1 if s is unknown.
func (s Status) Index() int {
	for i, known := range Statuses {
		if s == known {
			return i
		}
	}
	return -1
}

// Label returns the column title for s.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// Priority is a task's priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Assignee is the user a task is assigned to.
type Assignee struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// FirstName returns the first word of the assignee's name, or "Assigned".
func (a Assignee) FirstName() string {
	if fields := strings.Fields(a.FullName); len(fields) > 0 {
		return fields[0]
	}
	return "Assigned"
}

// Task is a work item displayed on the board.
type Task struct {
	ID          string    // Task UUID
	ProjectID   string    // Owning project, may be empty for "my tasks" listings
	Title       string    // Task title
	Description string    // Optional free text
	Status      Status    // Current bucket
	Priority    Priority  // low, medium, high
	Assignee    *Assignee // nil if unassigned
	DueDate     string    // YYYY-MM-DD, empty if unset
	CreatedAt   time.Time // Creation timestamp
}

// WithStatus returns a copy of t with its status replaced.
func (t Task) WithStatus(s Status) Task {
	t.Status = s
	return t
}

// Project is a tenant-scoped project.
type Project struct {
	ID          string
	Name        string
	Description string
	Status      string // active, archived, completed
	TaskCount   int
}

// User is a tenant member as listed by the users endpoint.
type User struct {
	ID       string
	Email    string
	FullName string
	Role     Role
	IsActive bool
}
