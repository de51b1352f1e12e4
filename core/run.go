package core

import (
	"sync"
	"time"
)

// Run is the top-level research run. It owns the flat task arena (tasks
// reference each other by integer id, never by pointer) and the
// run-wide audit/output identity.
type Run struct {
	ID              string
	OriginalQuestion string
	StartTime       time.Time
	OutputDir       string

	mu       sync.RWMutex
	tasks    []*Task
	nextID   int
}

// NewRun creates a Run identity. Tasks are added via AddTask once the
// Manager decomposes the question.
func NewRun(id, question, outputDir string, start time.Time) *Run {
	return &Run{
		ID:               id,
		OriginalQuestion: question,
		StartTime:        start,
		OutputDir:        outputDir,
	}
}

// AddTask allocates the next monotone task id, stores the task, and
// returns it.
func (r *Run) AddTask(query string, parentID int) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t := NewTask(r.nextID, query, parentID)
	r.tasks = append(r.tasks, t)
	return t
}

// Tasks returns a snapshot slice of all tasks created so far.
func (r *Run) Tasks() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// TaskByID looks up a task by its integer id.
func (r *Run) TaskByID(id int) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// TaskCount returns the number of tasks created so far (completed,
// in-progress, pending, and failed — used to enforce the max_tasks
// ceiling).
func (r *Run) TaskCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// FollowUpCount returns how many tasks have been created with the given
// parent id, used to enforce the per-parent follow-up ceiling.
func (r *Run) FollowUpCount(parentID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.tasks {
		if t.ParentID == parentID {
			n++
		}
	}
	return n
}
