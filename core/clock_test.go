package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBudgetRunExpired(t *testing.T) {
	clock := NewClock()
	budget := NewBudget(clock, 10*time.Millisecond, 0)

	assert.False(t, budget.RunExpired())
	time.Sleep(15 * time.Millisecond)
	assert.True(t, budget.RunExpired())
}

func TestBudgetZeroMaxRunTimeNeverExpires(t *testing.T) {
	clock := NewClock()
	budget := NewBudget(clock, 0, 0)
	time.Sleep(5 * time.Millisecond)
	assert.False(t, budget.RunExpired())
	assert.Greater(t, int64(budget.RunRemaining()), int64(0))
}

func TestBudgetTaskExpired(t *testing.T) {
	runClock := NewClock()
	budget := NewBudget(runClock, time.Hour, 10*time.Millisecond)

	taskClock := NewClock()
	assert.False(t, budget.TaskExpired(taskClock))
	time.Sleep(15 * time.Millisecond)
	assert.True(t, budget.TaskExpired(taskClock))
}
