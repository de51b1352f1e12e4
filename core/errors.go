package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison via errors.Is(). These form the closed
// taxonomy of failure kinds the engine recognizes; every component-level
// error should ultimately wrap one of these.
var (
	// ErrConfigInvalid is fatal at startup: missing required options,
	// unknown keys, or out-of-range values.
	ErrConfigInvalid = errors.New("config invalid")

	// ErrIntegrationUnavailable means an adapter could not be instantiated
	// (missing key, import failure). The source is removed from the live
	// registry for the run; never fatal to the run itself.
	ErrIntegrationUnavailable = errors.New("integration unavailable")

	// ErrIntegrationCallFailed means executeSearch returned an error, timed
	// out, or yielded malformed results.
	ErrIntegrationCallFailed = errors.New("integration call failed")

	// ErrLLMTimeout, ErrLLMUnavailable, ErrLLMSchemaInvalid are the LLM
	// Gateway's three failure kinds.
	ErrLLMTimeout       = errors.New("llm call timed out")
	ErrLLMUnavailable   = errors.New("llm unavailable")
	ErrLLMSchemaInvalid = errors.New("llm response failed schema validation")

	// ErrNoResolvableSources means a hypothesis had no valid sources after
	// reverse-name resolution.
	ErrNoResolvableSources = errors.New("hypothesis has no resolvable sources")

	// ErrDeadlineExceeded means a per-task or per-run deadline fired.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrSinkUnavailable means the audit log could not be written.
	ErrSinkUnavailable = errors.New("audit sink unavailable")

	// ErrTemplateNotFound and ErrTemplateVariable are Prompt Renderer
	// failure kinds: a missing template name, or a variable
	// the template references that wasn't supplied.
	ErrTemplateNotFound  = errors.New("prompt template not found")
	ErrTemplateVariable  = errors.New("prompt template variable missing")
)

// EngineError provides structured error information with context. It
// implements error and supports wrapping via errors.Is/errors.As.
type EngineError struct {
	Op      string // operation that failed, e.g. "manager.decompose"
	TaskID  int    // 0 when not task-scoped
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	switch {
	case e.Op != "" && e.TaskID != 0:
		return fmt.Sprintf("%s [task %d]: %v", e.Op, e.TaskID, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError wraps err with operation context.
func NewEngineError(op string, taskID int, err error) *EngineError {
	return &EngineError{Op: op, TaskID: taskID, Err: err}
}

// IsRetryableIntegrationError reports whether a source's failure should
// count toward that source's circuit breaker (network/timeout-shaped
// failures do; config/not-found-shaped failures don't).
func IsRetryableIntegrationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConfigInvalid) || errors.Is(err, ErrNoResolvableSources) {
		return false
	}
	return true
}
