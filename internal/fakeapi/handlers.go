package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/robby/taskdeck/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

// Handler returns the router. Every route lives under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/register-tenant", s.registerTenant)

		r.Group(func(r chi.Router) {
			r.Use(s.bearerAuth)

			r.Post("/auth/logout", s.logout)
			r.Get("/auth/me", s.me)
			r.Get("/projects", s.listProjects)
			r.Get("/projects/{id}", s.getProject)
			r.Get("/projects/{id}/tasks", s.listProjectTasks)
			r.Get("/tasks", s.myTasks)
			r.Patch("/tasks/{id}/status", s.updateTaskStatus)
			r.Get("/tenants/{id}/users/list", s.listTenantUsers)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		var user *User
		if id, ok := s.tokens[token]; ok && token != "" {
			user = s.users[id]
		}
		var copied User
		if user != nil {
			copied = *user
		}
		s.mu.Unlock()

		if user == nil {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, copied)))
	})
}

func currentUser(r *http.Request) User {
	u, _ := r.Context().Value(userKey).(User)
	return u
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		TenantSubdomain string `json:"tenantSubdomain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var user *User
	var tenantID interface{}
	if req.TenantSubdomain == "" || req.TenantSubdomain == "system" {
		user = s.userByLogin(req.Email, "", domain.RoleSuperAdmin)
		if user == nil && req.TenantSubdomain == "system" {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
	}
	if user == nil {
		tenant := s.tenantBySubdomain(req.TenantSubdomain)
		if tenant == nil {
			writeError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		user = s.userByLogin(req.Email, tenant.ID, "")
		tenantID = tenant.ID
	}
	if user == nil || user.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	writeData(w, http.StatusOK, map[string]interface{}{
		"id":        user.ID,
		"email":     user.Email,
		"fullName":  user.FullName,
		"role":      user.Role,
		"tenantId":  tenantID,
		"token":     s.issueToken(user.ID),
		"expiresIn": int(TokenTTL.Seconds()),
	})
}

func (s *Server) registerTenant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantName    string `json:"tenantName"`
		Subdomain     string `json:"subdomain"`
		AdminEmail    string `json:"adminEmail"`
		AdminPassword string `json:"adminPassword"`
		AdminFullName string `json:"adminFullName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantName == "" || req.Subdomain == "" || req.AdminEmail == "" || req.AdminFullName == "" {
		writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}
	if len(req.AdminPassword) < 8 {
		writeError(w, http.StatusBadRequest, "adminPassword must be at least 8 characters")
		return
	}

	s.mu.Lock()
	taken := s.tenantBySubdomain(req.Subdomain) != nil
	s.mu.Unlock()
	if taken {
		writeError(w, http.StatusBadRequest, "Subdomain already exists")
		return
	}

	tenant := s.AddTenant(req.TenantName, req.Subdomain)
	admin := s.AddUser(tenant.ID, req.AdminEmail, req.AdminPassword, req.AdminFullName, domain.RoleTenantAdmin)

	writeData(w, http.StatusCreated, map[string]interface{}{
		"tenantId":  tenant.ID,
		"subdomain": tenant.Subdomain,
		"adminUser": map[string]interface{}{
			"id":    admin.ID,
			"email": admin.Email,
			"role":  admin.Role,
		},
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.logouts++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Logged out successfully"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	var tenantID interface{}
	if u.TenantID != "" {
		tenantID = u.TenantID
	}
	writeData(w, http.StatusOK, map[string]interface{}{
		"id":       u.ID,
		"email":    u.Email,
		"fullName": u.FullName,
		"role":     u.Role,
		"tenantId": tenantID,
	})
}

// visible reports whether u may see resources of tenantID.
func visible(u User, tenantID string) bool {
	return u.Role == domain.RoleSuperAdmin || u.TenantID == tenantID
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	s.mu.Lock()
	out := make([]map[string]interface{}, 0)
	for i := len(s.projects) - 1; i >= 0; i-- { // newest first
		p := s.projects[i]
		if !visible(u, p.TenantID) {
			continue
		}
		total, completed := 0, 0
		for _, t := range s.tasks {
			if t.ProjectID == p.ID {
				total++
				if t.Status == domain.StatusCompleted {
					completed++
				}
			}
		}
		out = append(out, map[string]interface{}{
			"id":                   p.ID,
			"name":                 p.Name,
			"description":          p.Description,
			"status":               p.Status,
			"task_count":           total,
			"completed_task_count": completed,
			"created_at":           p.CreatedAt.Format(time.RFC3339),
		})
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]interface{}{"projects": out, "total": len(out)})
}

// lookupProject resolves {id} and enforces tenant isolation. It writes the
// error response itself and returns false on failure.
func (s *Server) lookupProject(w http.ResponseWriter, r *http.Request) (Project, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "Not found.")
		return Project{}, false
	}

	s.mu.Lock()
	p := s.project(id)
	var copied Project
	if p != nil {
		copied = *p
	}
	s.mu.Unlock()

	if p == nil {
		writeError(w, http.StatusNotFound, "Not found.")
		return Project{}, false
	}
	if !visible(currentUser(r), copied.TenantID) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return Project{}, false
	}
	return copied, true
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProject(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"status":      p.Status,
		"createdAt":   p.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) listProjectTasks(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProject(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	s.mu.Lock()
	var matched []*Task
	for _, t := range s.tasks {
		if t.ProjectID != p.ID {
			continue
		}
		if v := q.Get("status"); v != "" && string(t.Status) != v {
			continue
		}
		if v := q.Get("assignedTo"); v != "" && t.AssigneeID != v {
			continue
		}
		if v := q.Get("priority"); v != "" && string(t.Priority) != v {
			continue
		}
		if v := q.Get("search"); v != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(v)) {
			continue
		}
		matched = append(matched, t)
	}
	out := s.renderTasks(matched)
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]interface{}{"tasks": out, "total": len(out)})
}

func (s *Server) myTasks(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	status := r.URL.Query().Get("status")

	s.mu.Lock()
	var matched []*Task
	for _, t := range s.tasks {
		if u.Role != domain.RoleSuperAdmin && (t.TenantID != u.TenantID || t.AssigneeID != u.ID) {
			continue
		}
		if status != "" && string(t.Status) != status {
			continue
		}
		matched = append(matched, t)
	}
	out := s.renderTasks(matched)
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

// renderTasks serializes tasks in list order. Callers hold s.mu.
func (s *Server) renderTasks(tasks []*Task) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(tasks))
	for _, t := range tasks {
		var assignee interface{}
		if u, ok := s.users[t.AssigneeID]; ok {
			assignee = map[string]interface{}{"id": u.ID, "full_name": u.FullName, "email": u.Email}
		}
		var due interface{}
		if t.DueDate != "" {
			due = t.DueDate
		}
		out = append(out, map[string]interface{}{
			"id":          t.ID,
			"title":       t.Title,
			"description": t.Description,
			"status":      t.Status,
			"priority":    t.Priority,
			"assigned_to": assignee,
			"due_date":    due,
			"created_at":  t.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func (s *Server) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusUpdates++

	if s.failStatus != 0 {
		writeError(w, s.failStatus, http.StatusText(s.failStatus))
		return
	}

	t := s.task(id)
	if t == nil {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if !visible(u, t.TenantID) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	if u.Role != domain.RoleTenantAdmin && t.AssigneeID != u.ID {
		writeError(w, http.StatusForbidden, "Only the assigned user or admin can update this task")
		return
	}
	if !domain.Status(req.Status).Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	t.Status = domain.Status(req.Status)
	writeData(w, http.StatusOK, map[string]interface{}{
		"id":        t.ID,
		"status":    t.Status,
		"updatedAt": s.now().Format(time.RFC3339),
	})
}

func (s *Server) listTenantUsers(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	tenantID := chi.URLParam(r, "id")
	if u.Role != domain.RoleSuperAdmin && u.TenantID != tenantID {
		writeError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	s.mu.Lock()
	if _, ok := s.tenants[tenantID]; !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Tenant not found")
		return
	}
	users := make([]*User, 0)
	for _, candidate := range s.users {
		if candidate.TenantID == tenantID {
			users = append(users, candidate)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	out := make([]map[string]interface{}, 0, len(users))
	for _, x := range users {
		out = append(out, map[string]interface{}{
			"id":        x.ID,
			"email":     x.Email,
			"full_name": x.FullName,
			"role":      x.Role,
			"is_active": x.IsActive,
		})
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
