package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/robby/taskdeck/internal/api"
	"github.com/robby/taskdeck/internal/auth"
	"github.com/robby/taskdeck/internal/config"
	"github.com/robby/taskdeck/internal/credstore"
	"github.com/robby/taskdeck/internal/guard"
	"github.com/robby/taskdeck/internal/logging"
	"github.com/robby/taskdeck/internal/session"
	"github.com/robby/taskdeck/internal/tui"
)

var (
	// CLI flags
	configFlag string
	apiURLFlag string
	emailFlag  string
	tenantFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskdeck",
		Short: "Terminal client for taskdeck projects and tasks",
		Long: `taskdeck is a terminal user interface for a multi-tenant task manager.

Interactive kanban board with keyboard navigation for moving tasks
between To Do, In Progress and Completed.

Authentication:
  Run 'taskdeck login' or sign in from the TUI. The session is kept in
  the config directory and restored on the next start.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default ~/.config/taskdeck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "API base URL. Overrides api_url from the config.")
	rootCmd.PersistentFlags().StringVar(&emailFlag, "email", "", "Login email. Skips the email prompt.")
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "", "Tenant subdomain. Empty for a system login.")

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newProjectsCmd(),
		newBoardCmd(),
		newMoveCmd(),
		newMockServerCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command needs once the config is loaded.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *api.Client
	session *session.Manager

	closeStore func() error
}

// Close releases session subscribers and the credential store.
func (a *app) Close() {
	a.session.Close()
	if a.closeStore == nil {
		return
	}
	if err := a.closeStore(); err != nil {
		a.logger.Debug("failed to close credential store", "error", err)
	}
}

// loadConfig applies --config and --api-url on top of config.Load.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if apiURLFlag != "" {
		cfg.APIURL = apiURLFlag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// openStore opens the configured credential backend. The close function
// may be nil.
func openStore(cfg *config.Config) (credstore.Store, func() error, error) {
	if cfg.Credentials.Backend == config.BackendSQLite {
		s, err := credstore.OpenSQLite(cfg.DatabasePath())
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return credstore.NewFileStore(cfg.CredentialsPath()), nil, nil
}

// newApp wires the credential store, transport, API client and session.
// The session is left Uninitialized.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	transport := auth.NewTransport(nil)
	return &app{
		cfg:        cfg,
		logger:     logger,
		client:     api.New(cfg.APIURL, transport, cfg.Timeout),
		session:    session.New(store, transport, logger),
		closeStore: closeStore,
	}, nil
}

// setupCLI wires an app that logs to stderr and restores the session.
func setupCLI(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.Init(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	a, err := newApp(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.session.Initialize(ctx)
	return a, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return startTUI(cmd.Context(), "/")
}

// startTUI runs the Bubble Tea program at path. Logs go to a file since
// the program owns the terminal. The app model restores the session itself
// so the loading screen shows while it runs.
func startTUI(ctx context.Context, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.InitFile(cfg.LogPath(), logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	model := tui.NewAppModel(ctx, tui.Options{
		API:       a.client,
		Session:   a.session,
		Guard:     guard.New(),
		WebURL:    cfg.WebURL,
		Logger:    logger,
		StartPath: path,
		Email:     emailFlag,
		Tenant:    tenantFlag,
	})

	// Run Bubble Tea program
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
