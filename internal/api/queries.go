package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/robby/taskdeck/internal/domain"
)

// Me returns the principal the server associates with the current credential.
func (c *Client) Me(ctx context.Context) (domain.Principal, error) {
	var resp struct {
		ID       string  `json:"id"`
		Email    string  `json:"email"`
		FullName string  `json:"fullName"`
		Role     string  `json:"role"`
		TenantID *string `json:"tenantId"`
	}
	if err := c.makeRequest(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return domain.Principal{}, fmt.Errorf("failed to get current user: %w", err)
	}

	p := domain.Principal{
		ID:          resp.ID,
		Email:       resp.Email,
		DisplayName: resp.FullName,
		Role:        domain.Role(resp.Role),
	}
	if resp.TenantID != nil {
		p.TenantID = *resp.TenantID
	}
	return p, nil
}

// ListProjects returns all projects visible to the current principal.
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var resp struct {
		Projects []projectJSON `json:"projects"`
		Total    int           `json:"total"`
	}
	if err := c.makeRequest(ctx, http.MethodGet, "/projects", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]domain.Project, 0, len(resp.Projects))
	for _, p := range resp.Projects {
		projects = append(projects, p.toDomain())
	}
	return projects, nil
}

// GetProject returns a single project.
func (c *Client) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	if err := validateID(projectID); err != nil {
		return domain.Project{}, err
	}

	var resp projectJSON
	if err := c.makeRequest(ctx, http.MethodGet, "/projects/"+projectID, nil, &resp); err != nil {
		return domain.Project{}, fmt.Errorf("failed to get project: %w", err)
	}
	return resp.toDomain(), nil
}

// TaskFilter narrows a project task listing. Zero values are ignored.
type TaskFilter struct {
	Status     domain.Status
	AssignedTo string
	Priority   domain.Priority
	Search     string
}

func (f TaskFilter) query() string {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.AssignedTo != "" {
		v.Set("assignedTo", f.AssignedTo)
	}
	if f.Priority != "" {
		v.Set("priority", string(f.Priority))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListProjectTasks returns the tasks of a project in server order.
func (c *Client) ListProjectTasks(ctx context.Context, projectID string, filter TaskFilter) ([]domain.Task, error) {
	if err := validateID(projectID); err != nil {
		return nil, err
	}

	var resp struct {
		Tasks []taskJSON `json:"tasks"`
		Total int        `json:"total"`
	}
	path := "/projects/" + projectID + "/tasks" + filter.query()
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list project tasks: %w", err)
	}

	tasks := make([]domain.Task, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		tasks = append(tasks, t.toDomain(projectID))
	}
	return tasks, nil
}

// ProjectBoard is a project together with its tasks.
type ProjectBoard struct {
	Project domain.Project
	Tasks   []domain.Task
}

// GetProjectBoard fetches a project and its tasks concurrently.
func (c *Client) GetProjectBoard(ctx context.Context, projectID string) (ProjectBoard, error) {
	var board ProjectBoard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.GetProject(gctx, projectID)
		board.Project = p
		return err
	})
	g.Go(func() error {
		tasks, err := c.ListProjectTasks(gctx, projectID, TaskFilter{})
		board.Tasks = tasks
		return err
	})
	if err := g.Wait(); err != nil {
		return ProjectBoard{}, err
	}
	return board, nil
}

// MyTasks returns the tasks assigned to the current principal.
func (c *Client) MyTasks(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	path := "/tasks"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}

	var resp []taskJSON
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list my tasks: %w", err)
	}

	tasks := make([]domain.Task, 0, len(resp))
	for _, t := range resp {
		tasks = append(tasks, t.toDomain(""))
	}
	return tasks, nil
}

// ListTenantUsers returns the users of a tenant. Only admins are allowed by the server.
func (c *Client) ListTenantUsers(ctx context.Context, tenantID string) ([]domain.User, error) {
	if err := validateID(tenantID); err != nil {
		return nil, err
	}

	var resp []userJSON
	if err := c.makeRequest(ctx, http.MethodGet, "/tenants/"+tenantID+"/users/list", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]domain.User, 0, len(resp))
	for _, u := range resp {
		users = append(users, u.toDomain())
	}
	return users, nil
}

// validateID rejects ids that are not UUIDs before they are spliced into a path.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w %q", ErrInvalidID, id)
	}
	return nil
}
