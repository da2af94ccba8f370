package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/robby/taskdeck/internal/api"
	"github.com/robby/taskdeck/internal/domain"
)

var (
	// ErrMoveInFlight is returned when a task's previous move is unresolved.
	ErrMoveInFlight = errors.New("task has a move in flight")
	// ErrClosed is returned by Begin after Close.
	ErrClosed = errors.New("board closed")
)

// MoveError reports a move the server did not apply. The board has already
// been rolled back when it is returned.
type MoveError struct {
	TaskID string
	From   domain.Status
	To     domain.Status
	Err    error
}

func (e *MoveError) Error() string {
	return "move not applied, you may lack permission or the server is unreachable"
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// Remote is the slice of the API the synchronizer needs.
type Remote interface {
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) error
	ListProjectTasks(ctx context.Context, projectID string, filter api.TaskFilter) ([]domain.Task, error)
}

// Pending is a move whose optimistic phase has been applied.
type Pending struct {
	TaskID string
	From   domain.Status
	To     domain.Status
	// Index is where the task landed in To.
	Index int

	original  domain.Task
	fromIndex int
	// local moves stay inside one bucket and never reach the server.
	local bool
	noop  bool

	snapFrom, snapTo []domain.Task
	verFrom, verTo   uint64
}

// Local reports whether the move needs no server call.
func (p *Pending) Local() bool {
	return p.local || p.noop
}

// Synchronizer applies moves optimistically and reconciles them with the
// server. Mutations happen in Begin and Resolve, which the owner calls
// from one goroutine; Dispatch only talks to the network.
type Synchronizer struct {
	remote    Remote
	projectID string
	logger    *slog.Logger

	mu       sync.Mutex
	board    *Board
	inflight map[string]*Pending
	closed   bool

	// departed keeps a bucket's order from before its oldest unresolved
	// outgoing move, so rollbacks can restore it.
	departed map[domain.Status]*departure
	// moveGen counts successful moves; settled remembers where they went
	// so an older refresh response cannot undo them.
	moveGen      uint64
	settled      map[string]settledMove
	refreshedGen uint64

	refresh singleflight.Group
}

type departure struct {
	base    []domain.Task
	pending int
}

type settledMove struct {
	to  domain.Status
	gen uint64
}

type refreshResult struct {
	tasks []domain.Task
	gen   uint64
}

// NewSynchronizer creates a synchronizer for a project's board. logger may be nil.
func NewSynchronizer(remote Remote, projectID string, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		remote:    remote,
		projectID: projectID,
		logger:    logger.With("component", "board", "project", projectID),
		board:     New(),
		inflight:  make(map[string]*Pending),
		departed:  make(map[domain.Status]*departure),
		settled:   make(map[string]settledMove),
	}
}

// ProjectID returns the project the board shows.
func (s *Synchronizer) ProjectID() string {
	return s.projectID
}

// Load replaces the board contents. Problems are logged and returned.
func (s *Synchronizer) Load(items []domain.Task) []Inconsistency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(items)
}

func (s *Synchronizer) load(items []domain.Task) []Inconsistency {
	problems := s.board.Load(items)
	for _, p := range problems {
		s.logger.Warn("task left off the board", "task", p.TaskID, "status", p.Status, "reason", p.Reason)
	}
	return problems
}

// Refresh reloads the project's tasks from the server. Concurrent calls
// share one request. Tasks with a move in flight keep their optimistic
// status, and moves that succeeded after the request went out keep their
// new status. A response older than one already applied is dropped.
func (s *Synchronizer) Refresh(ctx context.Context) ([]Inconsistency, error) {
	v, err, _ := s.refresh.Do("tasks", func() (interface{}, error) {
		s.mu.Lock()
		gen := s.moveGen
		s.mu.Unlock()

		tasks, err := s.remote.ListProjectTasks(ctx, s.projectID, api.TaskFilter{})
		return refreshResult{tasks: tasks, gen: gen}, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh board: %w", err)
	}
	res := v.(refreshResult)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil
	}
	if res.gen < s.refreshedGen {
		s.logger.Debug("stale refresh dropped", "gen", res.gen, "applied", s.refreshedGen)
		return nil, nil
	}
	s.refreshedGen = res.gen

	items := make([]domain.Task, len(res.tasks))
	for i, t := range res.tasks {
		if p, ok := s.inflight[t.ID]; ok {
			t = t.WithStatus(p.To)
		} else if m, ok := s.settled[t.ID]; ok && m.gen > res.gen {
			t = t.WithStatus(m.to)
		}
		items[i] = t
	}
	for id, m := range s.settled {
		if m.gen <= res.gen {
			delete(s.settled, id)
		}
	}
	return s.load(items), nil
}

// Columns returns a copy of the three buckets.
func (s *Synchronizer) Columns() [3][]domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Columns()
}

// Bucket returns a copy of one bucket.
func (s *Synchronizer) Bucket(status domain.Status) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Bucket(status)
}

// Find locates a task.
func (s *Synchronizer) Find(id string) (domain.Task, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Find(id)
}

// InFlight reports whether the task has an unresolved move.
func (s *Synchronizer) InFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[id]
	return ok
}

// Begin validates a move and applies it optimistically. The returned
// Pending is handed to Dispatch and then Resolve.
//
// Moving to the same bucket and position is a no-op. Moving within a
// bucket only reorders locally. index is clamped to the target bucket.
func (s *Synchronizer) Begin(taskID string, from, to domain.Status, index int) (*Pending, error) {
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("%w: %q -> %q", ErrUnknownStatus, from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if _, busy := s.inflight[taskID]; busy {
		return nil, fmt.Errorf("%w: %s", ErrMoveInFlight, taskID)
	}
	at := s.board.indexIn(from, taskID)
	if at < 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrTaskNotFound, taskID, from)
	}

	p := &Pending{TaskID: taskID, From: from, To: to, fromIndex: at}

	if from == to {
		last := len(s.board.buckets[from.Index()]) - 1
		target := clamp(index, 0, last)
		if target == at {
			p.noop = true
			p.Index = at
			return p, nil
		}
		task := s.board.remove(from, at)
		p.Index = s.board.insert(to, target, task)
		p.local = true
		return p, nil
	}

	p.snapFrom = s.board.Bucket(from)
	p.snapTo = s.board.Bucket(to)

	d := s.departed[from]
	if d == nil {
		d = &departure{base: p.snapFrom}
		s.departed[from] = d
	}
	d.pending++

	p.original = s.board.remove(from, at)
	p.Index = s.board.insert(to, index, p.original.WithStatus(to))

	p.verFrom = s.board.version(from)
	p.verTo = s.board.version(to)
	s.inflight[taskID] = p

	s.logger.Debug("move started", "task", taskID, "from", from, "to", to, "index", p.Index)
	return p, nil
}

// Dispatch persists the move. It does not touch the board and is safe to
// call from any goroutine.
func (s *Synchronizer) Dispatch(ctx context.Context, p *Pending) error {
	if p.Local() {
		return nil
	}
	return s.remote.UpdateTaskStatus(ctx, p.TaskID, p.To)
}

// Resolve reconciles a dispatched move. On success the optimistic state
// stands. On failure the move is rolled back and a *MoveError returned.
// After Close it does nothing.
func (s *Synchronizer) Resolve(p *Pending, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || p.Local() {
		return nil
	}
	if s.inflight[p.TaskID] != p {
		return nil
	}
	delete(s.inflight, p.TaskID)
	defer s.release(p)

	if err == nil {
		s.moveGen++
		s.settled[p.TaskID] = settledMove{to: p.To, gen: s.moveGen}
		s.logger.Debug("move applied", "task", p.TaskID, "to", p.To)
		return nil
	}

	s.rollback(p)
	s.logger.Warn("move rolled back", "task", p.TaskID, "from", p.From, "to", p.To, "error", err)
	return &MoveError{TaskID: p.TaskID, From: p.From, To: p.To, Err: err}
}

// rollback undoes p. If neither bucket changed since Begin the snapshots
// are restored verbatim; otherwise only p's task is put back, between the
// neighbours it had before the bucket's unresolved moves started.
func (s *Synchronizer) rollback(p *Pending) {
	if s.board.version(p.From) == p.verFrom && s.board.version(p.To) == p.verTo {
		s.board.replace(p.From, p.snapFrom)
		s.board.replace(p.To, p.snapTo)
		return
	}

	order := p.snapFrom
	if d := s.departed[p.From]; d != nil && indexOf(d.base, p.TaskID) >= 0 {
		order = d.base
	}

	for _, status := range domain.Statuses {
		if i := s.board.indexIn(status, p.TaskID); i >= 0 {
			s.board.remove(status, i)
			at := s.board.restoreIndex(p.From, p.TaskID, order, p.fromIndex)
			s.board.insert(p.From, at, p.original)
			return
		}
	}
	// The task vanished in a reload; the server copy is authoritative.
}

// release drops p's hold on its source bucket's saved order.
func (s *Synchronizer) release(p *Pending) {
	d := s.departed[p.From]
	if d == nil {
		return
	}
	if d.pending--; d.pending <= 0 {
		delete(s.departed, p.From)
	}
}

// Move runs Begin, Dispatch and Resolve in order.
func (s *Synchronizer) Move(ctx context.Context, taskID string, from, to domain.Status, index int) error {
	p, err := s.Begin(taskID, from, to, index)
	if err != nil {
		return err
	}
	return s.Resolve(p, s.Dispatch(ctx, p))
}

// Close tears the board down. Later Resolve calls are ignored and Begin fails.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.inflight = make(map[string]*Pending)
	s.departed = make(map[domain.Status]*departure)
	s.settled = make(map[string]settledMove)
}
