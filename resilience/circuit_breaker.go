package resilience

import (
	"sync"
	"time"
)

// CircuitState is one of the three classic circuit breaker states.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the breaker. Simplified from the
// teacher's sliding-window-bucket design (resilience/circuit_breaker.go)
// down to a fixed consecutive-failure counter, which is all a single
// research run (minutes to hours, not a long-lived service) needs.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening
	RecoveryTimeout  time.Duration // time to wait before trying half-open
	HalfOpenMaxCalls int           // trial calls allowed while half-open
}

// DefaultCircuitBreakerConfig matches the teacher's production defaults,
// scaled to a per-source breaker.
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker is a minimal, goroutine-safe consecutive-failure breaker.
type CircuitBreaker struct {
	config *CircuitBreakerConfig

	mu              sync.Mutex
	state           CircuitState
	consecutiveFail int
	openedAt        time.Time
	halfOpenInFlight int
}

// NewCircuitBreaker builds a closed breaker.
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig("default")
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// CanExecute reports whether a call may proceed right now, transitioning
// open -> half-open once the recovery timeout has elapsed.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.config.RecoveryTimeout {
			cb.state = StateHalfOpen
			cb.halfOpenInFlight = 0
			return cb.admitHalfOpenLocked()
		}
		return false
	case StateHalfOpen:
		return cb.admitHalfOpenLocked()
	default:
		return true
	}
}

func (cb *CircuitBreaker) admitHalfOpenLocked() bool {
	if cb.halfOpenInFlight >= cb.config.HalfOpenMaxCalls {
		return false
	}
	cb.halfOpenInFlight++
	return true
}

// RecordSuccess closes the breaker from half-open, or resets the failure
// counter when already closed.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFail = 0
	if cb.state == StateHalfOpen {
		cb.state = StateClosed
		cb.halfOpenInFlight = 0
	}
}

// RecordFailure increments the failure counter, opening the breaker once
// the threshold is reached (or immediately re-opening from half-open).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen {
		cb.state = StateOpen
		cb.openedAt = time.Now()
		return
	}
	cb.consecutiveFail++
	if cb.consecutiveFail >= cb.config.FailureThreshold {
		cb.state = StateOpen
		cb.openedAt = time.Now()
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
