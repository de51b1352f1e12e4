package core

import "time"

// Clock tracks wall-clock elapsed time since a fixed start instant. It is
// the sole source of "how long has this run/task been going" truth so
// deadline checks are consistent across components.
type Clock struct {
	start time.Time
}

// NewClock starts a clock at the current instant.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// Elapsed returns the time since the clock started.
func (c *Clock) Elapsed() time.Duration {
	return time.Since(c.start)
}

// StartedAt returns the instant the clock was created.
func (c *Clock) StartedAt() time.Time {
	return c.start
}

// Budget exposes two deadline predicates: RunExpired() and
// TaskExpired(taskClock). Deadlines here are advisory — they
// drive orderly abandonment of further scheduling, not forced
// interruption of in-flight external calls (those carry their own
// per-call context deadlines).
type Budget struct {
	runClock        *Clock
	maxRunTime      time.Duration
	taskSoftTimeout time.Duration
}

// NewBudget builds a Budget against a run clock with the configured
// per-run and per-task ceilings.
func NewBudget(runClock *Clock, maxRunTime, taskSoftTimeout time.Duration) *Budget {
	return &Budget{
		runClock:        runClock,
		maxRunTime:      maxRunTime,
		taskSoftTimeout: taskSoftTimeout,
	}
}

// RunExpired reports whether the configured run-level wall-clock ceiling
// has been exceeded.
func (b *Budget) RunExpired() bool {
	if b.maxRunTime <= 0 {
		return false
	}
	return b.runClock.Elapsed() >= b.maxRunTime
}

// RunRemaining returns the time left before the run deadline, or the
// maximum duration if the run has no ceiling configured.
func (b *Budget) RunRemaining() time.Duration {
	if b.maxRunTime <= 0 {
		return time.Duration(1<<63 - 1)
	}
	remaining := b.maxRunTime - b.runClock.Elapsed()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TaskExpired reports whether a task clock has exceeded the configured
// per-task soft deadline.
func (b *Budget) TaskExpired(taskClock *Clock) bool {
	if b.taskSoftTimeout <= 0 {
		return false
	}
	return taskClock.Elapsed() >= b.taskSoftTimeout
}

// TaskSoftTimeout returns the configured per-task deadline.
func (b *Budget) TaskSoftTimeout() time.Duration {
	return b.taskSoftTimeout
}
