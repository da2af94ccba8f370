package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/robby/taskdeck/internal/api"
	"github.com/robby/taskdeck/internal/board"
	"github.com/robby/taskdeck/internal/domain"
	"github.com/robby/taskdeck/internal/fakeapi"
	"github.com/robby/taskdeck/internal/logging"
)

var errNotLoggedIn = errors.New("not logged in, run 'taskdeck login' first")

// requireLogin fails unless the restored session is authenticated.
func (a *app) requireLogin() error {
	if !a.session.Snapshot().Authenticated() {
		return errNotLoggedIn
	}
	return nil
}

// checkSession turns a 401 into a local logout so the stale credential is
// not retried.
func (a *app) checkSession(err error) error {
	if api.IsUnauthorized(err) {
		a.session.Logout()
		return fmt.Errorf("session expired, run 'taskdeck login': %w", err)
	}
	return err
}

func newLoginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupCLI(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			req := api.LoginRequest{
				Email:           strings.TrimSpace(emailFlag),
				Password:        password,
				TenantSubdomain: strings.TrimSpace(tenantFlag),
			}
			if err := promptCredentials(&req); err != nil {
				return err
			}

			resp, err := a.client.Login(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			p, err := a.session.Login(resp)
			if err != nil {
				return err
			}

			fmt.Printf("Signed in as %s (%s)\n", p.Email, p.Role.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password. Prompted for when empty.")
	return cmd
}

// promptCredentials asks for whatever is missing from req.
func promptCredentials(req *api.LoginRequest) error {
	var fields []huh.Field
	if req.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Value(&req.Email))
	}
	if req.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&req.Password))
	}
	if len(fields) == 0 {
		return nil
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return errors.New("email and password are required")
	}
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupCLI(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireLogin(); err != nil {
				fmt.Println("Not logged in")
				return nil
			}

			// Server side logout only feeds the audit log.
			if err := a.client.Logout(cmd.Context()); err != nil {
				a.logger.Debug("server logout failed", "error", err)
			}
			a.session.Logout()
			fmt.Println("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupCLI(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireLogin(); err != nil {
				return err
			}

			p := a.session.Snapshot().Principal
			if remote {
				p, err = a.client.Me(cmd.Context())
				if err != nil {
					return a.checkSession(err)
				}
			}

			tenant := p.TenantID
			if tenant == "" {
				tenant = "(system)"
			}
			fmt.Printf("%s <%s>\n  role:   %s\n  tenant: %s\n  id:     %s\n", p.DisplayName, p.Email, p.Role.Label(), tenant, p.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the server instead of reading the stored session.")
	return cmd
}

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupCLI(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireLogin(); err != nil {
				return err
			}

			projects, err := a.client.ListProjects(cmd.Context())
			if err != nil {
				return a.checkSession(err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTASKS\tSTATUS")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.Name, p.TaskCount, p.Status)
			}
			return w.Flush()
		},
	}
}

func newBoardCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "board <project-id>",
		Short: "Open a project's board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !printOnly {
				return startTUI(cmd.Context(), "/projects/"+args[0]+"/board")
			}

			a, err := setupCLI(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireLogin(); err != nil {
				return err
			}

			pb, err := a.client.GetProjectBoard(cmd.Context(), args[0])
			if err != nil {
				return a.checkSession(err)
			}

			b := board.New()
			for _, problem := range b.Load(pb.Tasks) {
				a.logger.Warn("task not shown", "problem", problem.String())
			}

			fmt.Printf("%s (%d tasks)\n", pb.Project.Name, b.Len())
			for i, col := range b.Columns() {
				status := domain.Statuses[i]
				fmt.Printf("\n%s (%d)\n", status.Label(), len(col))
				for _, t := range col {
					fmt.Printf("  %s  %s\n", t.ID, t.Title)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the board instead of opening the TUI.")
	return cmd
}

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <project-id> <task-id> <status>",
		Short: "Move a task to todo, in_progress or completed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, taskID, to := args[0], args[1], domain.Status(args[2])
			if !to.Valid() {
				return fmt.Errorf("unknown status %q (want todo, in_progress or completed)", args[2])
			}

			a, err := setupCLI(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireLogin(); err != nil {
				return err
			}

			pb, err := a.client.GetProjectBoard(cmd.Context(), projectID)
			if err != nil {
				return a.checkSession(err)
			}

			synchronizer := board.NewSynchronizer(a.client, projectID, a.logger)
			defer synchronizer.Close()
			synchronizer.Load(pb.Tasks)

			task, _, ok := synchronizer.Find(taskID)
			if !ok {
				return fmt.Errorf("task %s is not on project %s", taskID, projectID)
			}
			if task.Status == to {
				fmt.Printf("%q is already %s\n", task.Title, to.Label())
				return nil
			}

			if err := synchronizer.Move(cmd.Context(), taskID, task.Status, to, len(synchronizer.Bucket(to))); err != nil {
				return a.checkSession(err)
			}
			fmt.Printf("Moved %q: %s -> %s\n", task.Title, task.Status.Label(), to.Label())
			return nil
		},
	}
}

func newMockServerCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve an in-memory fake of the API with demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Init(logging.Options{Level: "debug"})

			fake := fakeapi.New(logger)
			demo := fake.Seed()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("mock server listening", "api_url", "http://"+ln.Addr().String()+"/api", "demo", demo.String())

			srv := &http.Server{
				Handler:           fake.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				<-cmd.Context().Done()
				srv.Close()
			}()
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5000", "Listen address.")
	return cmd
}
