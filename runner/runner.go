// Package runner implements the Task Runner: dispatches one
// task end-to-end — hypothesis generation, the sequential
// hypothesis/coverage-assessment loop, entity extraction, and the
// retry-to-pending policy.
package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/BrianMills2718/OSINT-sub007/audit"
	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/coverage"
	"github.com/BrianMills2718/OSINT-sub007/hypothesis"
	"github.com/BrianMills2718/OSINT-sub007/llm"
	"github.com/BrianMills2718/OSINT-sub007/store"
)

// HypothesisMode selects how far a task's hypothesis subsystem runs:
// generation can be skipped entirely, run but not executed against live
// sources (planning), or run end-to-end (execution).
type HypothesisMode string

const (
	HypothesisModeOff       HypothesisMode = "off"
	HypothesisModePlanning  HypothesisMode = "planning"
	HypothesisModeExecution HypothesisMode = "execution"
)

// Config bounds one task's execution.
type Config struct {
	MaxHypotheses  int
	MaxRetries     int
	HypothesisMode HypothesisMode
}

// DefaultConfig matches the documented defaults.
func DefaultConfig() Config {
	return Config{MaxHypotheses: 5, MaxRetries: 2, HypothesisMode: HypothesisModeExecution}
}

// Runner executes tasks.
type Runner struct {
	gateway         *llm.Gateway
	executor        *hypothesis.Executor
	assessor        *coverage.Assessor
	store           *store.Store
	audit           *audit.Logger
	logger          core.Logger
	config          Config
	availableSources []string // display names, for the hypothesis_generation prompt
}

// New builds a Runner. availableSources names the live sources a
// hypothesis may request: the template is told what sources exist
// before it proposes a search strategy.
func New(gateway *llm.Gateway, executor *hypothesis.Executor, assessor *coverage.Assessor, st *store.Store, auditLogger *audit.Logger, logger core.Logger, config Config, availableSources []string) *Runner {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if config.MaxHypotheses <= 0 {
		config.MaxHypotheses = 5
	}
	if config.HypothesisMode == "" {
		config.HypothesisMode = HypothesisModeExecution
	}
	return &Runner{gateway: gateway, executor: executor, assessor: assessor, store: st, audit: auditLogger, logger: logger, config: config, availableSources: availableSources}
}

// hypothesisSpec mirrors the hypothesis_generation schema's per-item
// shape.
type hypothesisSpec struct {
	Statement           string   `json:"statement"`
	SourceNames         []string `json:"source_names"`
	ExpectedEntityTypes []string `json:"expected_entity_types"`
	SignalKeywords      []string `json:"signal_keywords"`
	Confidence          int      `json:"confidence"`
	Priority            int      `json:"priority"`
	Rationale           string   `json:"rationale"`
}

// Run executes task end-to-end. budget is consulted for the per-task
// soft deadline; taskClock should be a fresh core.Clock started by the
// caller right before Run is invoked.
func (r *Runner) Run(ctx context.Context, question string, task *core.Task, budget *core.Budget, taskClock *core.Clock) error {
	if err := task.Dispatch(); err != nil {
		return err
	}
	r.emit(task.ID, audit.ActionTaskStart, map[string]any{"query": task.Query})

	var specs []hypothesisSpec
	if r.config.HypothesisMode != HypothesisModeOff {
		var err error
		specs, err = r.generateHypotheses(ctx, question, task)
		if err != nil {
			r.logger.Warn("hypothesis generation failed, treating as empty", map[string]interface{}{
				"task_id": task.ID, "error": err.Error(),
			})
			specs = nil
		}
	}

	accumulated := 0
	for i, spec := range specs {
		if i >= r.config.MaxHypotheses {
			break
		}
		if budget.TaskExpired(taskClock) {
			break
		}

		if r.config.HypothesisMode == HypothesisModePlanning {
			task.AddHypothesis(core.Hypothesis{
				Statement: spec.Statement,
				Strategy: core.SearchStrategy{
					SourceNames:         spec.SourceNames,
					ExpectedEntityTypes: spec.ExpectedEntityTypes,
					SignalKeywords:      spec.SignalKeywords,
				},
				Confidence: spec.Confidence,
				Priority:   spec.Priority,
				Rationale:  spec.Rationale,
			})
			continue // planning mode proposes hypotheses but never executes them
		}

		h := task.AddHypothesis(core.Hypothesis{
			Statement: spec.Statement,
			Strategy: core.SearchStrategy{
				SourceNames:         spec.SourceNames,
				ExpectedEntityTypes: spec.ExpectedEntityTypes,
				SignalKeywords:      spec.SignalKeywords,
			},
			Confidence: spec.Confidence,
			Priority:   spec.Priority,
			Rationale:  spec.Rationale,
		})

		beforeCount, beforeEntities := r.store.Snapshot()

		outcome, err := r.executor.Run(ctx, question, task.Query, task.ID, h)
		if err != nil {
			r.emit(task.ID, audit.ActionHypothesisFailed, map[string]any{
				"hypothesis_id": h.ID, "error": err.Error(),
			})
			continue
		}

		newResults := make([]core.Result, 0, len(outcome.Accepted))
		duplicateCount := 0
		for _, res := range outcome.Accepted {
			if r.store.Add(res, h.ID, task.ID) {
				newResults = append(newResults, res)
			} else {
				duplicateCount++
			}
		}
		if duplicateCount > 0 {
			r.emit(task.ID, audit.ActionDedup, map[string]any{
				"hypothesis_id": h.ID, "duplicate_count": duplicateCount,
			})
		}
		task.AppendResults(newResults)
		accumulated += len(outcome.Accepted)

		facts := r.store.Delta(beforeCount, beforeEntities, outcome.Attempted)

		if i == 0 {
			continue // assessor is invoked after every hypothesis except the first
		}

		decision, err := r.assessor.Assess(ctx, question, task.Query, task.ID, h, facts, task.HypothesesSnapshot()[:i], task.CoverageDecisionsSnapshot())
		if err != nil {
			// A failed assessment call does not stop the task; fall back to
			// continuing.
			r.logger.Warn("coverage assessment failed, continuing", map[string]interface{}{
				"task_id": task.ID, "hypothesis_id": h.ID, "error": err.Error(),
			})
			continue
		}
		task.RecordCoverageDecision(decision)
		if decision.Stops() {
			break
		}
	}

	entityCount := r.extractEntities(ctx, question, task)

	if r.config.HypothesisMode == HypothesisModeExecution && len(specs) == 0 && accumulated == 0 {
		if retryErr := task.RetryToPending(r.config.MaxRetries); retryErr == nil {
			r.emit(task.ID, audit.ActionTaskFailed, map[string]any{"reason": "no_hypotheses_no_results_retry"})
			return nil
		}
	}

	if err := task.Complete(); err != nil {
		return err
	}
	r.emit(task.ID, audit.ActionTaskComplete, map[string]any{
		"hypothesis_count": len(task.HypothesesSnapshot()),
		"result_count":     accumulated,
		"entity_count":     entityCount,
	})
	return nil
}

func (r *Runner) generateHypotheses(ctx context.Context, question string, task *core.Task) ([]hypothesisSpec, error) {
	vars := map[string]interface{}{
		"Question":         question,
		"TaskQuery":         task.Query,
		"AvailableSources": strings.Join(r.availableSources, ", "),
	}
	raw, err := r.gateway.Call(ctx, task.ID, "hypothesis_generation", vars, hypothesisGenerationSchema(), "hypothesis_generation")
	if err != nil {
		return nil, err
	}

	items, _ := raw["hypotheses"].([]interface{})
	specs := make([]hypothesisSpec, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		specs = append(specs, hypothesisSpec{
			Statement:           stringOf(m["statement"]),
			SourceNames:         stringsOf(m["source_names"]),
			ExpectedEntityTypes: stringsOf(m["expected_entity_types"]),
			SignalKeywords:      stringsOf(m["signal_keywords"]),
			Confidence:          intOf(m["confidence"]),
			Priority:            intOf(m["priority"]),
			Rationale:           stringOf(m["rationale"]),
		})
	}
	r.emit(task.ID, audit.ActionHypothesesGenerated, map[string]any{"count": len(specs)})
	return specs, nil
}

func (r *Runner) extractEntities(ctx context.Context, question string, task *core.Task) int {
	results := task.ResultsSnapshot()
	if len(results) == 0 {
		return 0
	}
	vars := map[string]interface{}{
		"TaskQuery":   task.Query,
		"ResultsList": formatResults(results),
	}
	raw, err := r.gateway.Call(ctx, task.ID, "entity_extraction", vars, entityExtractionSchema(), "entity_extraction")
	if err != nil {
		r.logger.Warn("entity extraction failed", map[string]interface{}{"task_id": task.ID, "error": err.Error()})
		return 0
	}
	entities := stringsOf(raw["entities"])
	added := task.MergeEntities(entities)
	r.store.MergeEntities(entities)
	r.emit(task.ID, audit.ActionEntityExtraction, map[string]any{"extracted": len(entities), "new": added})
	return added
}

func formatResults(results []core.Result) string {
	var b strings.Builder
	for i, res := range results {
		fmt.Fprintf(&b, "%d. %s (%s) %s\n", i, res.Title, res.Source, res.URL)
	}
	if b.Len() == 0 {
		return "(none)"
	}
	return b.String()
}

func (r *Runner) emit(taskID int, action audit.ActionType, payload map[string]any) {
	if r.audit == nil {
		return
	}
	r.audit.Emit(taskID, action, payload)
}

func stringOf(v interface{}) string {
	s, _ := v.(string)
	return s
}

func intOf(v interface{}) int {
	f, _ := v.(float64)
	return int(f)
}

func stringsOf(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func hypothesisGenerationSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"hypotheses"},
		"properties": map[string]interface{}{
			"hypotheses": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"statement", "source_names"},
					"properties": map[string]interface{}{
						"statement":             map[string]interface{}{"type": "string"},
						"source_names":          map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"expected_entity_types": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"signal_keywords":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"confidence":            map[string]interface{}{"type": "integer"},
						"priority":              map[string]interface{}{"type": "integer"},
						"rationale":             map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	}
}

func entityExtractionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"entities"},
		"properties": map[string]interface{}{
			"entities": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
	}
}
