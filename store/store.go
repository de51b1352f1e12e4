// Package store implements the Result Store: in-run
// accumulation, dedup by identity key, attribution union, an entity
// index, and the delta computation the Coverage Assessor needs.
// Grounded on the teacher's core/memory_store.go in-process mutex-guarded
// map, generalized from a TTL'd key/value cache (no TTL needed here —
// results never expire mid-run) to an ordered, deduplicating list.
package store

import (
	"sync"

	"github.com/BrianMills2718/OSINT-sub007/core"
)

// Store is the Result Store. The Run owns one Store; all writers go
// through the single mutex.
type Store struct {
	mu      sync.RWMutex
	results []*core.Result
	index   map[string]*core.Result // identity key -> stored record
	entities map[string]struct{}
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		index:    make(map[string]*core.Result),
		entities: make(map[string]struct{}),
	}
}

// Add inserts result attributed to (hypothesisID, taskID), deduplicating
// by identity key. Returns true if this was a new record; for
// duplicates, the stored record's attribution sets are unioned with the
// new attribution.
func (s *Store) Add(result core.Result, hypothesisID, taskID int) (isNew bool) {
	key := result.IdentityKey()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.index[key]; ok {
		existing.AddAttribution(hypothesisID, taskID)
		return false
	}

	stored := result
	stored.AddAttribution(hypothesisID, taskID)
	s.index[key] = &stored
	s.results = append(s.results, &stored)
	return true
}

// MergeEntities unions entity names into the run-wide entity set,
// returning how many were genuinely new.
func (s *Store) MergeEntities(names []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, n := range names {
		if _, ok := s.entities[n]; !ok {
			s.entities[n] = struct{}{}
			added++
		}
	}
	return added
}

// EntityNames returns the run-wide entity set as a slice (for synthesis
// and metadata output).
func (s *Store) EntityNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entities))
	for e := range s.entities {
		out = append(out, e)
	}
	return out
}

// Snapshot returns (result count, entity count) for use as the "before"
// side of a Delta computation.
func (s *Store) Snapshot() (resultCount, entityCount int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results), len(s.entities)
}

// Delta computes (new, duplicate, incremental_gain_percent, new_entities)
// for a hypothesis execution given the counts captured before it ran and
// attempted, the number of results the hypothesis tried to add
// (including duplicates). incremental_gain_percent = new / max(1,
// new+duplicate) * 100, rounded to the nearest integer.
func (s *Store) Delta(beforeCount, beforeEntities, attempted int) core.CoverageFacts {
	s.mu.RLock()
	afterCount := len(s.results)
	afterEntities := len(s.entities)
	s.mu.RUnlock()

	newCount := afterCount - beforeCount
	if newCount < 0 {
		newCount = 0
	}
	duplicate := attempted - newCount
	if duplicate < 0 {
		duplicate = 0
	}
	denom := newCount + duplicate
	gain := 0
	if denom < 1 {
		denom = 1
	}
	if newCount > 0 {
		gain = (newCount*100 + denom/2) / denom // round to nearest integer
	}
	return core.CoverageFacts{
		NewResults:             newCount,
		DuplicateResults:       duplicate,
		IncrementalGainPercent: gain,
		NewEntities:            afterEntities - beforeEntities,
	}
}

// Results returns a defensive copy of the accumulated results, in
// first-seen order.
func (s *Store) Results() []core.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Result, len(s.results))
	for i, r := range s.results {
		out[i] = *r
	}
	return out
}

// Count returns the number of accumulated (deduplicated) results.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
