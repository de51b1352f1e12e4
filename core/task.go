package core

import (
	"fmt"
	"sync"
	"time"
)

// TaskState is the closed set of lifecycle states a Task may occupy.
type TaskState string

const (
	TaskPending    TaskState = "pending"
	TaskInProgress TaskState = "in_progress"
	TaskCompleted  TaskState = "completed"
	TaskFailed     TaskState = "failed"
)

// Task is a single research task. Lifecycle transitions are only ever
// performed by the Task Runner and Manager, never by the Hypothesis
// Executor or Coverage Assessor.
type Task struct {
	mu sync.Mutex

	ID       int
	Query    string
	ParentID int // 0 means "seeded by decomposition", never a follow-up

	Priority          int
	PriorityReasoning string
	EstimatedValue     int // 0-100
	EstimatedRedundancy int // 0-100

	RetryCount int
	State      TaskState

	Results          []Result
	Entities         map[string]struct{}
	Hypotheses       []Hypothesis
	CoverageDecisions []CoverageDecision

	Metadata map[string]interface{}

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// NewTask creates a pending task.
func NewTask(id int, query string, parentID int) *Task {
	return &Task{
		ID:        id,
		Query:     query,
		ParentID:  parentID,
		State:     TaskPending,
		Entities:  make(map[string]struct{}),
		Metadata:  make(map[string]interface{}),
		CreatedAt: time.Now(),
	}
}

// IsFollowUp reports whether this task is a follow-up of another task
// (as opposed to a decomposition seed).
func (t *Task) IsFollowUp() bool {
	return t.ParentID != 0
}

// Dispatch transitions pending -> in_progress. Returns an error if the
// task is not pending.
func (t *Task) Dispatch() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State != TaskPending {
		return fmt.Errorf("task %d: cannot dispatch from state %q", t.ID, t.State)
	}
	t.State = TaskInProgress
	t.StartedAt = time.Now()
	return nil
}

// Complete transitions in_progress -> completed.
func (t *Task) Complete() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State != TaskInProgress {
		return fmt.Errorf("task %d: cannot complete from state %q", t.ID, t.State)
	}
	t.State = TaskCompleted
	t.CompletedAt = time.Now()
	return nil
}

// Fail transitions in_progress -> failed.
func (t *Task) Fail() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State != TaskInProgress {
		return fmt.Errorf("task %d: cannot fail from state %q", t.ID, t.State)
	}
	t.State = TaskFailed
	t.CompletedAt = time.Now()
	return nil
}

// RetryToPending transitions in_progress -> pending, bumping the retry
// counter. Only valid when the task body itself reported "no usable
// results" and the retry ceiling has not been reached.
func (t *Task) RetryToPending(maxRetries int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State != TaskInProgress {
		return fmt.Errorf("task %d: cannot retry from state %q", t.ID, t.State)
	}
	if t.RetryCount >= maxRetries {
		return fmt.Errorf("task %d: retry ceiling %d reached", t.ID, maxRetries)
	}
	t.RetryCount++
	t.State = TaskPending
	return nil
}

// AddHypothesis appends a hypothesis to the task, assigning it the next
// sequential id (unique within the task).
func (t *Task) AddHypothesis(h Hypothesis) Hypothesis {
	t.mu.Lock()
	defer t.mu.Unlock()
	h.ID = len(t.Hypotheses) + 1
	t.Hypotheses = append(t.Hypotheses, h)
	return h
}

// RecordCoverageDecision appends a coverage decision to task metadata.
func (t *Task) RecordCoverageDecision(d CoverageDecision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CoverageDecisions = append(t.CoverageDecisions, d)
}

// AppendResults records results (already deduplicated/attributed by the
// Result Store) as belonging to this task, for per-task summaries and
// entity extraction input.
func (t *Task) AppendResults(rs []Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Results = append(t.Results, rs...)
}

// ResultsSnapshot returns a defensive copy of the results recorded
// against this task so far.
func (t *Task) ResultsSnapshot() []Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Result, len(t.Results))
	copy(out, t.Results)
	return out
}

// HypothesesSnapshot returns a defensive copy of the hypotheses recorded
// for this task so far.
func (t *Task) HypothesesSnapshot() []Hypothesis {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Hypothesis, len(t.Hypotheses))
	copy(out, t.Hypotheses)
	return out
}

// CoverageDecisionsSnapshot returns a defensive copy of the coverage
// decisions recorded for this task so far.
func (t *Task) CoverageDecisionsSnapshot() []CoverageDecision {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]CoverageDecision, len(t.CoverageDecisions))
	copy(out, t.CoverageDecisions)
	return out
}

// Snapshot captures the fields safe to read without holding the task's
// lock for the caller's lifetime (priority, state, counts) — used by the
// Manager for prioritization and summaries.
type Snapshot struct {
	ID                  int
	Query               string
	ParentID            int
	Priority            int
	State               TaskState
	RetryCount          int
	EstimatedValue      int
	EstimatedRedundancy int
	ResultCount         int
	EntityCount         int
}

// ToSnapshot returns a point-in-time, lock-free-to-read Snapshot.
func (t *Task) ToSnapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ID:                  t.ID,
		Query:               t.Query,
		ParentID:            t.ParentID,
		Priority:            t.Priority,
		State:               t.State,
		RetryCount:          t.RetryCount,
		EstimatedValue:      t.EstimatedValue,
		EstimatedRedundancy: t.EstimatedRedundancy,
		ResultCount:         len(t.Results),
		EntityCount:         len(t.Entities),
	}
}

// SetPrioritization records the Manager's prioritization verdict.
func (t *Task) SetPrioritization(priority int, reasoning string, estimatedValue, estimatedRedundancy int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Priority = priority
	t.PriorityReasoning = reasoning
	t.EstimatedValue = estimatedValue
	t.EstimatedRedundancy = estimatedRedundancy
}

// MergeEntities adds newly extracted entity strings into the task's
// entity set, returning how many were actually new.
func (t *Task) MergeEntities(entities []string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	added := 0
	for _, e := range entities {
		if _, ok := t.Entities[e]; !ok {
			t.Entities[e] = struct{}{}
			added++
		}
	}
	return added
}

// LastCoverageDecision returns the most recent coverage decision
// recorded for this task, or false if none exists yet.
func (t *Task) LastCoverageDecision() (CoverageDecision, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.CoverageDecisions) == 0 {
		return CoverageDecision{}, false
	}
	return t.CoverageDecisions[len(t.CoverageDecisions)-1], true
}

// FinalCoverageStopsWithNoGaps reports whether the most recent coverage
// decision for this task satisfies Stops() — used by the Manager to
// decide whether follow-up generation is warranted at all.
func (t *Task) FinalCoverageStopsWithNoGaps() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.CoverageDecisions) == 0 {
		return false
	}
	return t.CoverageDecisions[len(t.CoverageDecisions)-1].Stops()
}
