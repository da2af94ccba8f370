// Command smoke walks a live API through login, project listing, a board
// load and a move round trip. Credentials come from the environment or a
// .env file: TASKDECK_EMAIL, TASKDECK_PASSWORD and TASKDECK_TENANT.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/robby/taskdeck/internal/api"
	"github.com/robby/taskdeck/internal/auth"
	"github.com/robby/taskdeck/internal/board"
	"github.com/robby/taskdeck/internal/config"
	"github.com/robby/taskdeck/internal/credstore"
	"github.com/robby/taskdeck/internal/domain"
	"github.com/robby/taskdeck/internal/logging"
	"github.com/robby/taskdeck/internal/session"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fatal(err)
	}
	logger := logging.Init(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx := context.Background()

	transport := auth.NewTransport(nil)
	client := api.New(cfg.APIURL, transport, cfg.Timeout)
	sess := session.New(credstore.NewMemoryStore(), transport, logger)
	defer sess.Close()
	sess.Initialize(ctx)

	resp, err := client.Login(ctx, api.LoginRequest{
		Email:           os.Getenv("TASKDECK_EMAIL"),
		Password:        os.Getenv("TASKDECK_PASSWORD"),
		TenantSubdomain: os.Getenv("TASKDECK_TENANT"),
	})
	if err != nil {
		fatal(err)
	}
	me, err := sess.Login(resp)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Signed in: %s (%s) tenant=%s\n\n", me.Email, me.Role.Label(), me.TenantID)

	projects, err := client.ListProjects(ctx)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Projects (%d):\n", len(projects))
	for _, p := range projects {
		fmt.Printf("  %s: %s (%d tasks)\n", p.ID, p.Name, p.TaskCount)
	}
	if len(projects) == 0 {
		return
	}

	project := projects[0]
	fmt.Printf("\nUsing project: %s\n\n", project.Name)

	pb, err := client.GetProjectBoard(ctx, project.ID)
	if err != nil {
		fatal(err)
	}

	sync := board.NewSynchronizer(client, project.ID, logger)
	defer sync.Close()
	for _, problem := range sync.Load(pb.Tasks) {
		fmt.Printf("  skipped: %s\n", problem)
	}
	for i, col := range sync.Columns() {
		fmt.Printf("%s: %d tasks\n", domain.Statuses[i].Label(), len(col))
	}

	// Move the first open task forward and back again
	todo := sync.Bucket(domain.StatusTodo)
	if len(todo) == 0 {
		fmt.Println("\nNo To Do task to move")
		return
	}
	task := todo[0]
	fmt.Printf("\nMoving %q to In Progress and back\n", task.Title)

	to := domain.StatusInProgress
	if err := sync.Move(ctx, task.ID, task.Status, to, len(sync.Bucket(to))); err != nil {
		fatal(err)
	}
	if err := sync.Move(ctx, task.ID, to, task.Status, 0); err != nil {
		fatal(err)
	}

	problems, err := sync.Refresh(ctx)
	if err != nil {
		fatal(err)
	}
	moved, _, _ := sync.Find(task.ID)
	fmt.Printf("After refresh: %q is %s (%d problems)\n", moved.Title, moved.Status.Label(), len(problems))

	if err := client.Logout(ctx); err != nil {
		fmt.Printf("server logout failed: %v\n", err)
	}
	sess.Logout()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "smoke: %v\n", err)
	os.Exit(1)
}
