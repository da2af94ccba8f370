package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/robby/taskdeck/internal/domain"
)

// ErrMissingCredentials is returned by Login when email or password is empty.
var ErrMissingCredentials = errors.New("email and password are required")

// Login exchanges credentials for a token. The client's transport is not
// touched; configuring it is the session's job.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return LoginResponse{}, ErrMissingCredentials
	}

	var resp LoginResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return LoginResponse{}, fmt.Errorf("failed to log in: %w", err)
	}
	return resp, nil
}

// Logout notifies the server so it can record the event. The token stays
// valid server-side until it expires.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.makeRequest(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

// RegisterTenant creates a tenant together with its first admin.
func (c *Client) RegisterTenant(ctx context.Context, req RegisterTenantRequest) (RegisterTenantResponse, error) {
	var resp RegisterTenantResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/auth/register-tenant", req, &resp); err != nil {
		return RegisterTenantResponse{}, fmt.Errorf("failed to register tenant: %w", err)
	}
	return resp, nil
}

// UpdateTaskStatus persists a task's bucket. This is the only mutation the
// board performs.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) error {
	if err := validateID(taskID); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	body := map[string]string{"status": string(status)}
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.makeRequest(ctx, http.MethodPatch, "/tasks/"+taskID+"/status", body, &resp); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return nil
}
