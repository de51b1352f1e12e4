package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskLifecycleHappyPath(t *testing.T) {
	task := NewTask(1, "background on org X", 0)
	require.Equal(t, TaskPending, task.State)

	require.NoError(t, task.Dispatch())
	assert.Equal(t, TaskInProgress, task.State)
	assert.False(t, task.StartedAt.IsZero())

	require.NoError(t, task.Complete())
	assert.Equal(t, TaskCompleted, task.State)
	assert.False(t, task.CompletedAt.IsZero())
}

func TestTaskDispatchRejectsNonPending(t *testing.T) {
	task := NewTask(1, "q", 0)
	require.NoError(t, task.Dispatch())
	assert.Error(t, task.Dispatch())
}

func TestTaskCompleteRequiresInProgress(t *testing.T) {
	task := NewTask(1, "q", 0)
	assert.Error(t, task.Complete())
}

func TestTaskRetryToPendingRespectsCeiling(t *testing.T) {
	task := NewTask(1, "q", 0)
	require.NoError(t, task.Dispatch())

	require.NoError(t, task.RetryToPending(2))
	assert.Equal(t, TaskPending, task.State)
	assert.Equal(t, 1, task.RetryCount)

	require.NoError(t, task.Dispatch())
	require.NoError(t, task.RetryToPending(2))
	assert.Equal(t, 2, task.RetryCount)

	require.NoError(t, task.Dispatch())
	err := task.RetryToPending(2)
	assert.Error(t, err, "retry ceiling reached should refuse a third retry")
}

func TestTaskAddHypothesisAssignsSequentialIDs(t *testing.T) {
	task := NewTask(1, "q", 0)
	h1 := task.AddHypothesis(Hypothesis{Statement: "first"})
	h2 := task.AddHypothesis(Hypothesis{Statement: "second"})
	assert.Equal(t, 1, h1.ID)
	assert.Equal(t, 2, h2.ID)
}

func TestTaskMergeEntitiesCountsOnlyNew(t *testing.T) {
	task := NewTask(1, "q", 0)
	added := task.MergeEntities([]string{"Alice", "Bob"})
	assert.Equal(t, 2, added)

	added = task.MergeEntities([]string{"Alice", "Carol"})
	assert.Equal(t, 1, added, "Alice was already known; only Carol is new")
}

func TestTaskFinalCoverageStopsWithNoGaps(t *testing.T) {
	task := NewTask(1, "q", 0)
	assert.False(t, task.FinalCoverageStopsWithNoGaps(), "no decisions yet")

	task.RecordCoverageDecision(CoverageDecision{Decision: "continue", GapsIdentified: []string{"need more"}})
	assert.False(t, task.FinalCoverageStopsWithNoGaps())

	task.RecordCoverageDecision(CoverageDecision{Decision: "stop", GapsIdentified: nil})
	assert.True(t, task.FinalCoverageStopsWithNoGaps())
}

func TestTaskSnapshotIsDefensiveCopy(t *testing.T) {
	task := NewTask(1, "q", 0)
	task.AppendResults([]Result{{Title: "a"}, {Title: "b"}})

	results := task.ResultsSnapshot()
	results[0].Title = "mutated"

	fresh := task.ResultsSnapshot()
	assert.Equal(t, "a", fresh[0].Title, "mutating a snapshot must not affect task state")
}

func TestTaskIsFollowUp(t *testing.T) {
	seed := NewTask(1, "q", 0)
	followUp := NewTask(2, "q2", 1)
	assert.False(t, seed.IsFollowUp())
	assert.True(t, followUp.IsFollowUp())
}
