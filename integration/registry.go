package integration

import (
	"fmt"
	"strings"
	"sync"

	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/resilience"
)

// Factory lazily builds an Integration. Instantiation can fail (missing
// API key, import failure) without affecting the rest of the registry —
// mirroring the teacher's per-service failure isolation in
// core/discovery.go.
type Factory func() (Integration, error)

// Registry is the live, run-scoped set of resolvable sources: lazily
// instantiated, with a per-source circuit breaker, and a reverse
// display-name -> id index for hypothesis source-name resolution.
type Registry struct {
	mu         sync.RWMutex
	factories  map[string]Factory
	live       map[string]Integration
	breakers   map[string]*resilience.CircuitBreaker
	byDisplay  map[string]string // lowercased display name -> id
	unavailable map[string]error
	logger     core.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger core.Logger) *Registry {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Registry{
		factories:   make(map[string]Factory),
		live:        make(map[string]Integration),
		breakers:    make(map[string]*resilience.CircuitBreaker),
		byDisplay:   make(map[string]string),
		unavailable: make(map[string]error),
		logger:      logger,
	}
}

// Register adds a source under id, keyed additionally by its display
// name once resolved (resolution happens lazily, at first Get, since
// Metadata() requires building the adapter).
func (r *Registry) Register(id string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = factory
}

// Get lazily instantiates (once) and returns the adapter for id. A
// source that failed instantiation stays unavailable for the rest of
// the run (ErrIntegrationUnavailable) rather than being retried on
// every call.
func (r *Registry) Get(id string) (Integration, error) {
	r.mu.RLock()
	if in, ok := r.live[id]; ok {
		r.mu.RUnlock()
		return in, nil
	}
	if err, ok := r.unavailable[id]; ok {
		r.mu.RUnlock()
		return nil, err
	}
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("integration %q: %w", id, core.ErrIntegrationUnavailable)
	}

	in, err := factory()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		wrapped := fmt.Errorf("integration %q: %w: %v", id, core.ErrIntegrationUnavailable, err)
		r.unavailable[id] = wrapped
		r.logger.Warn("integration unavailable", map[string]interface{}{"id": id, "error": err.Error()})
		return nil, wrapped
	}
	r.live[id] = in
	r.breakers[id] = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(id))
	r.byDisplay[strings.ToLower(in.Metadata().DisplayName)] = id
	return in, nil
}

// ListIDs returns every registered (not necessarily live) source id.
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	return ids
}

// ResolveDisplayName maps a hypothesis's human-readable source name to a
// registry id. Resolution requires the adapter to have been Get() at
// least once (so its Metadata().DisplayName is known); unregistered
// names are reported via ok=false, letting the caller log-and-drop per
//  step 1.
func (r *Registry) ResolveDisplayName(name string) (id string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok = r.byDisplay[strings.ToLower(name)]
	return id, ok
}

// WarmUp instantiates every registered source up front so display-name
// resolution works without having searched yet. Instantiation failures
// are absorbed (the source simply stays unavailable); returns the ids
// that came up live.
func (r *Registry) WarmUp() []string {
	live := make([]string, 0, len(r.factories))
	for _, id := range r.ListIDs() {
		if _, err := r.Get(id); err == nil {
			live = append(live, id)
		}
	}
	return live
}

// DisplayNames returns the display names of every currently live
// source, lowercased as they are indexed for resolution, for prompts
// that need to tell the model what sources exist.
func (r *Registry) DisplayNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byDisplay))
	for name := range r.byDisplay {
		out = append(out, name)
	}
	return out
}

// Breaker returns the per-source circuit breaker, or nil if the source
// was never successfully instantiated.
func (r *Registry) Breaker(id string) *resilience.CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[id]
}
