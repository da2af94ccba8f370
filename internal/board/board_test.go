package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robby/taskdeck/internal/api"
	"github.com/robby/taskdeck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixtures
func task(id string, status domain.Status) domain.Task {
	return domain.Task{ID: id, Title: "Task " + id, Status: status, Priority: domain.PriorityMedium}
}

func ids(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func columnIDs(cols [3][]domain.Task) [3][]string {
	return [3][]string{ids(cols[0]), ids(cols[1]), ids(cols[2])}
}

// fakeRemote records status updates and fails them on demand.
type fakeRemote struct {
	mu       sync.Mutex
	calls    []string
	fail     error
	tasks    []domain.Task
	lists    int32
	onUpdate func()
	release  chan struct{}
}

func (f *fakeRemote) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) error {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%s->%s", taskID, status))
	fail, hook := f.fail, f.onUpdate
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return fail
}

func (f *fakeRemote) ListProjectTasks(ctx context.Context, projectID string, filter api.TaskFilter) ([]domain.Task, error) {
	atomic.AddInt32(&f.lists, 1)
	if f.release != nil {
		<-f.release
	}
	return f.tasks, nil
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newSync(t *testing.T, remote *fakeRemote, items ...domain.Task) *Synchronizer {
	t.Helper()
	s := NewSynchronizer(remote, "proj-1", nil)
	require.Empty(t, s.Load(items))
	return s
}

func TestLoad_Partition(t *testing.T) {
	items := []domain.Task{
		task("a", domain.StatusTodo),
		task("b", domain.StatusCompleted),
		task("c", domain.StatusTodo),
		task("d", domain.StatusInProgress),
	}
	b := New()
	problems := b.Load(items)

	assert.Empty(t, problems)
	assert.Equal(t, [3][]string{{"a", "c"}, {"d"}, {"b"}}, columnIDs(b.Columns()))
	assert.Equal(t, len(items), b.Len())
}

func TestLoad_EveryItemExactlyOnce(t *testing.T) {
	for n := 0; n < 30; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			items := make([]domain.Task, n)
			for i := range items {
				items[i] = task(fmt.Sprintf("t%d", i), domain.Statuses[(i*7+n)%3])
			}

			b := New()
			require.Empty(t, b.Load(items))

			seen := map[string]int{}
			for i, col := range b.Columns() {
				for _, tk := range col {
					seen[tk.ID]++
					assert.Equal(t, domain.Statuses[i], tk.Status)
				}
			}
			assert.Len(t, seen, n)
			for id, count := range seen {
				assert.Equal(t, 1, count, id)
			}
		})
	}
}

func TestLoad_ReportsInconsistencies(t *testing.T) {
	items := []domain.Task{
		task("a", domain.StatusTodo),
		task("x", domain.Status("archived")),
		task("a", domain.StatusCompleted),
		task("b", domain.StatusInProgress),
	}
	b := New()
	problems := b.Load(items)

	require.Len(t, problems, 2)
	assert.Equal(t, "x", problems[0].TaskID)
	assert.Equal(t, reasonUnknownStatus, problems[0].Reason)
	assert.Equal(t, "a", problems[1].TaskID)
	assert.Equal(t, reasonDuplicate, problems[1].Reason)

	// First occurrence wins
	assert.Equal(t, [3][]string{{"a"}, {"b"}, {}}, columnIDs(b.Columns()))
}

func TestLoad_Idempotent(t *testing.T) {
	items := []domain.Task{task("a", domain.StatusTodo), task("b", domain.StatusCompleted)}
	b := New()
	b.Load(items)
	first := b.Columns()
	b.Load(items)
	assert.Equal(t, first, b.Columns())
}

func TestMove_Scenario(t *testing.T) {
	remote := &fakeRemote{fail: errors.New("connection refused")}
	s := newSync(t, remote, task("A", domain.StatusTodo), task("B", domain.StatusTodo))

	var during [3][]string
	remote.onUpdate = func() { during = columnIDs(s.Columns()) }

	err := s.Move(context.Background(), "A", domain.StatusTodo, domain.StatusInProgress, 0)

	assert.Equal(t, [3][]string{{"B"}, {"A"}, {}}, during, "optimistic state visible while the call is pending")
	assert.Equal(t, [3][]string{{"A", "B"}, {}, {}}, columnIDs(s.Columns()), "rolled back with order restored")

	var moveErr *MoveError
	require.ErrorAs(t, err, &moveErr)
	assert.Equal(t, "A", moveErr.TaskID)
	assert.Equal(t, "move not applied, you may lack permission or the server is unreachable", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "connection refused")

	moved, _, ok := s.Find("A")
	require.True(t, ok)
	assert.Equal(t, domain.StatusTodo, moved.Status)
}

func TestMove_Success(t *testing.T) {
	remote := &fakeRemote{}
	s := newSync(t, remote,
		task("A", domain.StatusTodo),
		task("B", domain.StatusTodo),
		task("C", domain.StatusInProgress),
	)

	require.NoError(t, s.Move(context.Background(), "A", domain.StatusTodo, domain.StatusInProgress, 1))

	assert.Equal(t, [3][]string{{"B"}, {"C", "A"}, {}}, columnIDs(s.Columns()))
	moved, idx, ok := s.Find("A")
	require.True(t, ok)
	assert.Equal(t, domain.StatusInProgress, moved.Status)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []string{"A->in_progress"}, remote.calls)
	assert.False(t, s.InFlight("A"))
}

func TestMove_IndexClamped(t *testing.T) {
	remote := &fakeRemote{}
	s := newSync(t, remote, task("A", domain.StatusTodo), task("C", domain.StatusCompleted))

	p, err := s.Begin("A", domain.StatusTodo, domain.StatusCompleted, 99)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Index)

	require.NoError(t, s.Resolve(p, s.Dispatch(context.Background(), p)))
	assert.Equal(t, []string{"C", "A"}, ids(s.Bucket(domain.StatusCompleted)))
}

func TestBegin_OptimisticVisibility(t *testing.T) {
	remote := &fakeRemote{}
	s := newSync(t, remote,
		task("A", domain.StatusTodo),
		task("X", domain.StatusCompleted),
		task("Y", domain.StatusCompleted),
	)

	p, err := s.Begin("A", domain.StatusTodo, domain.StatusCompleted, 1)
	require.NoError(t, err)

	// Nothing dispatched yet
	assert.Zero(t, remote.callCount())
	assert.Equal(t, []string{"X", "A", "Y"}, ids(s.Bucket(domain.StatusCompleted)))
	assert.Empty(t, s.Bucket(domain.StatusTodo))
	assert.True(t, s.InFlight("A"))

	require.NoError(t, s.Resolve(p, nil))
	assert.False(t, s.InFlight("A"))
}

func TestMove_SameBucketSameIndexIsNoop(t *testing.T) {
	remote := &fakeRemote{}
	s := newSync(t, remote, task("A", domain.StatusTodo), task("B", domain.StatusTodo))
	before := s.Columns()

	require.NoError(t, s.Move(context.Background(), "B", domain.StatusTodo, domain.StatusTodo, 1))
	// Out of range index clamps to the current last position
	require.NoError(t, s.Move(context.Background(), "B", domain.StatusTodo, domain.StatusTodo, 5))

	assert.Zero(t, remote.callCount())
	assert.Equal(t, before, s.Columns())
}

func TestMove_ReorderWithinBucketIsLocal(t *testing.T) {
	remote := &fakeRemote{fail: errors.New("should not be called")}
	s := newSync(t, remote, task("A", domain.StatusTodo), task("B", domain.StatusTodo), task("C", domain.StatusTodo))

	require.NoError(t, s.Move(context.Background(), "C", domain.StatusTodo, domain.StatusTodo, 0))

	assert.Zero(t, remote.callCount())
	assert.Equal(t, []string{"C", "A", "B"}, ids(s.Bucket(domain.StatusTodo)))
	assert.False(t, s.InFlight("C"))
}

func TestBegin_Preconditions(t *testing.T) {
	s := newSync(t, &fakeRemote{}, task("A", domain.StatusTodo))

	t.Run("wrong source bucket", func(t *testing.T) {
		_, err := s.Begin("A", domain.StatusInProgress, domain.StatusCompleted, 0)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("unknown task", func(t *testing.T) {
		_, err := s.Begin("Z", domain.StatusTodo, domain.StatusCompleted, 0)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := s.Begin("A", domain.StatusTodo, domain.Status("blocked"), 0)
		assert.ErrorIs(t, err, ErrUnknownStatus)
	})

	assert.Equal(t, [3][]string{{"A"}, {}, {}}, columnIDs(s.Columns()))
}

func TestBegin_RejectsSecondMoveOfSameTask(t *testing.T) {
	remote := &fakeRemote{}
	s := newSync(t, remote, task("A", domain.StatusTodo), task("B", domain.StatusTodo))

	p, err := s.Begin("A", domain.StatusTodo, domain.StatusInProgress, 0)
	require.NoError(t, err)

	_, err = s.Begin("A", domain.StatusInProgress, domain.StatusCompleted, 0)
	assert.ErrorIs(t, err, ErrMoveInFlight)

	// Naming the bucket it left gets the same answer
	_, err = s.Begin("A", domain.StatusTodo, domain.StatusCompleted, 0)
	assert.ErrorIs(t, err, ErrMoveInFlight)

	// Reordering the in-flight task is rejected too
	_, err = s.Begin("A", domain.StatusInProgress, domain.StatusInProgress, 0)
	assert.ErrorIs(t, err, ErrMoveInFlight)

	// Other tasks are unaffected
	q, err := s.Begin("B", domain.StatusTodo, domain.StatusCompleted, 0)
	require.NoError(t, err)

	require.NoError(t, s.Resolve(p, nil))
	require.NoError(t, s.Resolve(q, nil))

	_, err = s.Begin("A", domain.StatusInProgress, domain.StatusCompleted, 0)
	assert.NoError(t, err)
}

func TestResolve_RollbackKeepsOtherMoves(t *testing.T) {
	remote := &fakeRemote{}
	s := newSync(t, remote,
		task("A", domain.StatusTodo),
		task("B", domain.StatusTodo),
		task("C", domain.StatusTodo),
	)

	pa, err := s.Begin("A", domain.StatusTodo, domain.StatusInProgress, 0)
	require.NoError(t, err)
	pb, err := s.Begin("B", domain.StatusTodo, domain.StatusInProgress, 1)
	require.NoError(t, err)
	require.Equal(t, [3][]string{{"C"}, {"A", "B"}, {}}, columnIDs(s.Columns()))

	// A fails while B is still pending: only A goes back
	err = s.Resolve(pa, errors.New("forbidden"))
	var moveErr *MoveError
	require.ErrorAs(t, err, &moveErr)
	assert.Equal(t, [3][]string{{"A", "C"}, {"B"}, {}}, columnIDs(s.Columns()))

	require.NoError(t, s.Resolve(pb, nil))
	assert.Equal(t, [3][]string{{"A", "C"}, {"B"}, {}}, columnIDs(s.Columns()))
}

func TestResolve_FailuresRestoreSourceOrder(t *testing.T) {
	tests := []struct {
		name    string
		items   []string
		moves   []string
		resolve []int
	}{
		{name: "two in send order", items: []string{"A", "B"}, moves: []string{"A", "B"}, resolve: []int{0, 1}},
		{name: "two in reverse order", items: []string{"A", "B"}, moves: []string{"A", "B"}, resolve: []int{1, 0}},
		{name: "three out of order", items: []string{"A", "B", "C"}, moves: []string{"A", "C", "B"}, resolve: []int{0, 1, 2}},
		{name: "one of three stays", items: []string{"A", "B", "C"}, moves: []string{"C", "A"}, resolve: []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var items []domain.Task
			for _, id := range tt.items {
				items = append(items, task(id, domain.StatusTodo))
			}
			s := newSync(t, &fakeRemote{}, items...)

			pending := make([]*Pending, len(tt.moves))
			for i, id := range tt.moves {
				p, err := s.Begin(id, domain.StatusTodo, domain.StatusInProgress, i)
				require.NoError(t, err)
				pending[i] = p
			}

			for _, i := range tt.resolve {
				var moveErr *MoveError
				require.ErrorAs(t, s.Resolve(pending[i], errors.New("forbidden")), &moveErr)
			}

			assert.Equal(t, [3][]string{tt.items, {}, {}}, columnIDs(s.Columns()))
		})
	}
}

func TestResolve_RollbackIsExact(t *testing.T) {
	tests := []struct {
		name  string
		items []domain.Task
		id    string
		from  domain.Status
		to    domain.Status
		index int
	}{
		{
			name:  "first of many to empty",
			items: []domain.Task{task("A", domain.StatusTodo), task("B", domain.StatusTodo), task("C", domain.StatusTodo)},
			id:    "A", from: domain.StatusTodo, to: domain.StatusCompleted, index: 0,
		},
		{
			name:  "middle into middle",
			items: []domain.Task{task("A", domain.StatusTodo), task("B", domain.StatusTodo), task("X", domain.StatusInProgress), task("Y", domain.StatusInProgress)},
			id:    "B", from: domain.StatusTodo, to: domain.StatusInProgress, index: 1,
		},
		{
			name:  "last to clamped end",
			items: []domain.Task{task("A", domain.StatusCompleted), task("X", domain.StatusTodo)},
			id:    "A", from: domain.StatusCompleted, to: domain.StatusTodo, index: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakeRemote{fail: &api.Error{Status: 403, Message: "Forbidden"}}
			s := newSync(t, remote, tt.items...)
			before := s.Columns()

			err := s.Move(context.Background(), tt.id, tt.from, tt.to, tt.index)

			var moveErr *MoveError
			require.ErrorAs(t, err, &moveErr)
			assert.True(t, api.IsForbidden(err))
			assert.Equal(t, before, s.Columns())
		})
	}
}

func TestRefresh(t *testing.T) {
	remote := &fakeRemote{tasks: []domain.Task{
		task("A", domain.StatusTodo),
		task("B", domain.StatusCompleted),
		task("Q", domain.Status("blocked")),
	}}
	s := NewSynchronizer(remote, "proj-1", nil)

	problems, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "Q", problems[0].TaskID)
	assert.Equal(t, [3][]string{{"A"}, {}, {"B"}}, columnIDs(s.Columns()))
}

func TestRefresh_KeepsInFlightMoves(t *testing.T) {
	remote := &fakeRemote{tasks: []domain.Task{task("A", domain.StatusTodo)}}
	s := newSync(t, remote, task("A", domain.StatusTodo))

	p, err := s.Begin("A", domain.StatusTodo, domain.StatusCompleted, 0)
	require.NoError(t, err)

	_, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [3][]string{{}, {}, {"A"}}, columnIDs(s.Columns()))

	// A failure after the reload still puts the task back
	require.Error(t, s.Resolve(p, errors.New("boom")))
	assert.Equal(t, [3][]string{{"A"}, {}, {}}, columnIDs(s.Columns()))
}

func TestRefresh_OlderResponseKeepsSettledMove(t *testing.T) {
	// The server answers the list with the state from before the move
	remote := &fakeRemote{tasks: []domain.Task{task("A", domain.StatusTodo)}, release: make(chan struct{})}
	s := newSync(t, remote, task("A", domain.StatusTodo))

	done := make(chan error, 1)
	go func() {
		_, err := s.Refresh(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&remote.lists) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.Move(context.Background(), "A", domain.StatusTodo, domain.StatusCompleted, 0))

	close(remote.release)
	require.NoError(t, <-done)
	assert.Equal(t, [3][]string{{}, {}, {"A"}}, columnIDs(s.Columns()))

	// A refresh sent after the move trusts the server again
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [3][]string{{"A"}, {}, {}}, columnIDs(s.Columns()))
}

func TestRefresh_CollapsesConcurrentCalls(t *testing.T) {
	remote := &fakeRemote{tasks: []domain.Task{task("A", domain.StatusTodo)}, release: make(chan struct{})}
	s := NewSynchronizer(remote, "proj-1", nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Refresh(context.Background())
			assert.NoError(t, err)
		}()
	}

	// Give the callers time to pile up behind the first request
	time.Sleep(50 * time.Millisecond)
	close(remote.release)
	wg.Wait()

	assert.Less(t, atomic.LoadInt32(&remote.lists), int32(5))
	assert.Equal(t, [3][]string{{"A"}, {}, {}}, columnIDs(s.Columns()))
}

func TestClose(t *testing.T) {
	remote := &fakeRemote{}
	s := newSync(t, remote, task("A", domain.StatusTodo))

	p, err := s.Begin("A", domain.StatusTodo, domain.StatusInProgress, 0)
	require.NoError(t, err)
	optimistic := s.Columns()

	s.Close()

	// A late failure after teardown changes nothing and reports nothing
	assert.NoError(t, s.Resolve(p, errors.New("late")))
	assert.Equal(t, optimistic, s.Columns())

	_, err = s.Begin("A", domain.StatusInProgress, domain.StatusTodo, 0)
	assert.ErrorIs(t, err, ErrClosed)
}
