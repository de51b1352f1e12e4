package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrianMills2718/OSINT-sub007/core"
)

func TestStoreAddDeduplicatesByIdentityKey(t *testing.T) {
	s := New()

	isNew := s.Add(core.Result{Title: "A", URL: "https://example.org/a"}, 1, 1)
	assert.True(t, isNew)

	isNew = s.Add(core.Result{Title: "A (again)", URL: "https://example.org/a"}, 2, 1)
	assert.False(t, isNew, "same URL must dedupe regardless of title drift")

	require.Equal(t, 1, s.Count())
}

func TestStoreAddUnionsAttributionOnDuplicate(t *testing.T) {
	s := New()
	s.Add(core.Result{Title: "A", URL: "https://example.org/a"}, 1, 1)
	s.Add(core.Result{Title: "A", URL: "https://example.org/a"}, 2, 1)

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, []int{1, 2}, results[0].HypothesisIDs)
}

func TestStoreMergeEntitiesCountsNewOnly(t *testing.T) {
	s := New()
	assert.Equal(t, 2, s.MergeEntities([]string{"Alice", "Bob"}))
	assert.Equal(t, 1, s.MergeEntities([]string{"Alice", "Carol"}))
	assert.ElementsMatch(t, []string{"Alice", "Bob", "Carol"}, s.EntityNames())
}

func TestStoreDeltaComputesGainAndRounds(t *testing.T) {
	s := New()
	beforeCount, beforeEntities := s.Snapshot()

	s.Add(core.Result{Title: "A", URL: "https://example.org/a"}, 1, 1)
	s.Add(core.Result{Title: "B", URL: "https://example.org/b"}, 1, 1)
	s.Add(core.Result{Title: "A", URL: "https://example.org/a"}, 1, 1) // duplicate
	s.MergeEntities([]string{"Alice"})

	facts := s.Delta(beforeCount, beforeEntities, 3)
	assert.Equal(t, 2, facts.NewResults)
	assert.Equal(t, 1, facts.DuplicateResults)
	assert.Equal(t, 67, facts.IncrementalGainPercent, "2/3 rounds to 67")
	assert.Equal(t, 1, facts.NewEntities)
}

func TestStoreDeltaZeroAttemptedYieldsZeroGain(t *testing.T) {
	s := New()
	beforeCount, beforeEntities := s.Snapshot()
	facts := s.Delta(beforeCount, beforeEntities, 0)
	assert.Equal(t, 0, facts.NewResults)
	assert.Equal(t, 0, facts.IncrementalGainPercent)
}
