package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/robby/taskdeck/internal/domain"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	TenantSubdomain string `json:"tenantSubdomain"`
}

// LoginResponse is the data of a successful login.
// Fields the client does not know about are kept in Extra so callers can
// see exactly what the server sent; nothing in Extra is ever persisted.
type LoginResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	Role      string `json:"role"`
	TenantID  string `json:"tenantId"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`

	Extra map[string]json.RawMessage `json:"-"`
}

var loginResponseFields = []string{"id", "email", "fullName", "role", "tenantId", "token", "expiresIn"}

// UnmarshalJSON decodes the known fields and collects the rest into Extra.
func (r *LoginResponse) UnmarshalJSON(data []byte) error {
	type plain LoginResponse
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range loginResponseFields {
		delete(all, k)
	}

	*r = LoginResponse(known)
	if len(all) > 0 {
		r.Extra = all
	}
	return nil
}

// RegisterTenantRequest is the body of POST /auth/register-tenant.
type RegisterTenantRequest struct {
	TenantName    string `json:"tenantName"`
	Subdomain     string `json:"subdomain"`
	AdminEmail    string `json:"adminEmail"`
	AdminPassword string `json:"adminPassword"`
	AdminFullName string `json:"adminFullName"`
}

// RegisterTenantResponse is the data of a successful tenant registration.
type RegisterTenantResponse struct {
	TenantID  string `json:"tenantId"`
	Subdomain string `json:"subdomain"`
	AdminUser struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"adminUser"`
}

// projectJSON mirrors the project list/detail serializers.
type projectJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	TaskCount   int    `json:"task_count"`
}

func (p projectJSON) toDomain() domain.Project {
	return domain.Project{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		TaskCount:   p.TaskCount,
	}
}

// taskJSON mirrors the task list serializer.
type taskJSON struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority"`
	AssignedTo  *domain.Assignee `json:"assigned_to"`
	DueDate     string           `json:"due_date"`
	CreatedAt   string           `json:"created_at"`
}

func (t taskJSON) toDomain(projectID string) domain.Task {
	return domain.Task{
		ID:          t.ID,
		ProjectID:   projectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      domain.Status(t.Status),
		Priority:    domain.Priority(t.Priority),
		Assignee:    t.AssignedTo,
		DueDate:     t.DueDate,
		CreatedAt:   parseTime(t.CreatedAt),
	}
}

// userJSON mirrors the user list serializer.
type userJSON struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func (u userJSON) toDomain() domain.User {
	return domain.User{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     domain.Role(u.Role),
		IsActive: u.IsActive,
	}
}

// parseTime accepts the RFC3339 variants the backend emits. Unparseable values yield the zero time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
