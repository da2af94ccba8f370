// Package board keeps the three-bucket partition of a project's tasks and
// synchronizes optimistic moves with the server.
//
// Board is the plain partition: every loaded task sits in exactly one
// bucket, the one matching its status, in display order. Synchronizer wraps
// a Board with the move protocol and is what the UI talks to.
package board

import (
	"errors"
	"fmt"

	"github.com/robby/taskdeck/internal/domain"
)

var (
	// ErrTaskNotFound indicates the task is not in the expected bucket.
	ErrTaskNotFound = errors.New("task not found")
	// ErrUnknownStatus indicates a status outside the three buckets.
	ErrUnknownStatus = errors.New("unknown status")
)

// Inconsistency describes a task Load refused to place.
type Inconsistency struct {
	TaskID string
	Status domain.Status
	Reason string
}

func (i Inconsistency) String() string {
	return fmt.Sprintf("task %s (%q): %s", i.TaskID, i.Status, i.Reason)
}

const (
	reasonUnknownStatus = "unknown status"
	reasonDuplicate     = "duplicate id"
)

// Board is the in-memory partition. It is not safe for concurrent use;
// Synchronizer provides the locking.
type Board struct {
	buckets [3][]domain.Task
	// versions count mutations per bucket so a rollback can tell whether
	// anything else touched the bucket since its snapshot.
	versions [3]uint64
}

// New creates an empty board.
func New() *Board {
	return &Board{}
}

// Load replaces the partition with items, keeping their relative order.
// Items with an unknown status, and repeated ids after the first, are left
// out and reported.
func (b *Board) Load(items []domain.Task) []Inconsistency {
	var buckets [3][]domain.Task
	var problems []Inconsistency
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		idx := item.Status.Index()
		if idx < 0 {
			problems = append(problems, Inconsistency{TaskID: item.ID, Status: item.Status, Reason: reasonUnknownStatus})
			continue
		}
		if seen[item.ID] {
			problems = append(problems, Inconsistency{TaskID: item.ID, Status: item.Status, Reason: reasonDuplicate})
			continue
		}
		seen[item.ID] = true
		buckets[idx] = append(buckets[idx], item)
	}

	b.buckets = buckets
	for i := range b.versions {
		b.versions[i]++
	}
	return problems
}

// Bucket returns a copy of the tasks with the given status.
func (b *Board) Bucket(status domain.Status) []domain.Task {
	idx := status.Index()
	if idx < 0 {
		return nil
	}
	return cloneTasks(b.buckets[idx])
}

// Columns returns copies of all three buckets in board order.
func (b *Board) Columns() [3][]domain.Task {
	var out [3][]domain.Task
	for i := range b.buckets {
		out[i] = cloneTasks(b.buckets[i])
	}
	return out
}

// Len returns the number of placed tasks.
func (b *Board) Len() int {
	n := 0
	for _, bucket := range b.buckets {
		n += len(bucket)
	}
	return n
}

// Find locates a task by id in any bucket.
func (b *Board) Find(id string) (task domain.Task, index int, ok bool) {
	for _, bucket := range b.buckets {
		if i := indexOf(bucket, id); i >= 0 {
			return bucket[i], i, true
		}
	}
	return domain.Task{}, -1, false
}

// Clear empties the board.
func (b *Board) Clear() {
	b.Load(nil)
}

// indexIn returns the position of id within the bucket for status, or -1.
func (b *Board) indexIn(status domain.Status, id string) int {
	idx := status.Index()
	if idx < 0 {
		return -1
	}
	return indexOf(b.buckets[idx], id)
}

// remove takes the task at position i out of the bucket for status.
func (b *Board) remove(status domain.Status, i int) domain.Task {
	idx := status.Index()
	bucket := b.buckets[idx]
	task := bucket[i]
	out := make([]domain.Task, 0, len(bucket)-1)
	out = append(out, bucket[:i]...)
	out = append(out, bucket[i+1:]...)
	b.buckets[idx] = out
	b.versions[idx]++
	return task
}

// insert places task into the bucket for status at i, clamped to the bucket bounds.
func (b *Board) insert(status domain.Status, i int, task domain.Task) int {
	idx := status.Index()
	bucket := b.buckets[idx]
	i = clamp(i, 0, len(bucket))
	out := make([]domain.Task, 0, len(bucket)+1)
	out = append(out, bucket[:i]...)
	out = append(out, task)
	out = append(out, bucket[i:]...)
	b.buckets[idx] = out
	b.versions[idx]++
	return i
}

// replace installs a bucket verbatim.
func (b *Board) replace(status domain.Status, tasks []domain.Task) {
	idx := status.Index()
	b.buckets[idx] = cloneTasks(tasks)
	b.versions[idx]++
}

// restoreIndex picks where id goes back into the bucket for status so
// that it keeps its place relative to order: before the first later task
// of order still in the bucket, else after the nearest earlier one. When
// no neighbour of order is present it falls back to fallback.
func (b *Board) restoreIndex(status domain.Status, id string, order []domain.Task, fallback int) int {
	bucket := b.buckets[status.Index()]
	at := indexOf(order, id)
	if at < 0 {
		return clamp(fallback, 0, len(bucket))
	}
	for _, next := range order[at+1:] {
		if i := indexOf(bucket, next.ID); i >= 0 {
			return i
		}
	}
	for j := at - 1; j >= 0; j-- {
		if i := indexOf(bucket, order[j].ID); i >= 0 {
			return i + 1
		}
	}
	return clamp(fallback, 0, len(bucket))
}

func (b *Board) version(status domain.Status) uint64 {
	return b.versions[status.Index()]
}

func indexOf(tasks []domain.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
