// Package manager implements the Manager/Scheduler: initial
// decomposition, prioritization, single-threaded dispatch, saturation
// detection, follow-up generation, and termination.
package manager

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/BrianMills2718/OSINT-sub007/audit"
	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/llm"
	"github.com/BrianMills2718/OSINT-sub007/runner"
)

// State names the Manager's own state machine. The machine runs
// strictly sequentially within a single run.
type State string

const (
	StateInitializing State = "initializing"
	StatePrioritizing State = "prioritizing"
	StateDispatching  State = "dispatching"
	StateRunningTask  State = "running_task"
	StatePostTask     State = "post_task"
	StateTerminating  State = "terminating"
)

// Config bounds one run's scheduling behavior.
type Config struct {
	MaxTasks                     int
	ReprioritizeAfterTask        bool
	SaturationDetectionEnabled   bool
	SaturationCheckInterval      int
	SaturationConfidenceThreshold int
	AllowSaturationStop          bool
	MaxFollowUpsPerTask          int // 0 means unbounded
	MinSeedTasks                 int
	MaxSeedTasks                 int
}

// DefaultConfig matches the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxTasks:                      25,
		ReprioritizeAfterTask:         true,
		SaturationDetectionEnabled:    true,
		SaturationCheckInterval:       3,
		SaturationConfidenceThreshold: 70,
		AllowSaturationStop:           true,
		MaxFollowUpsPerTask:           3,
		MinSeedTasks:                  3,
		MaxSeedTasks:                  7,
	}
}

// Manager orchestrates a single run.
type Manager struct {
	gateway *llm.Gateway
	runner  *runner.Runner
	audit   *audit.Logger
	logger  core.Logger
	config  Config

	state              State
	completedSinceCheck int
	saturationStopped  bool
}

// New builds a Manager.
func New(gateway *llm.Gateway, taskRunner *runner.Runner, auditLogger *audit.Logger, logger core.Logger, config Config) *Manager {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Manager{gateway: gateway, runner: taskRunner, audit: auditLogger, logger: logger, config: config, state: StateInitializing}
}

// State returns the Manager's current state machine value.
func (m *Manager) State() State { return m.state }

// Execute runs the full scheduling loop against run, returning only
// after termination.
func (m *Manager) Execute(ctx context.Context, question string, run *core.Run, budget *core.Budget) error {
	m.state = StateInitializing
	if err := m.decompose(ctx, question, run); err != nil {
		m.logger.Warn("decomposition failed, run proceeds with zero seed tasks", map[string]interface{}{"error": err.Error()})
	}

	firstPass := true
	for {
		if m.shouldTerminate(run, budget) {
			break
		}

		if firstPass || m.config.ReprioritizeAfterTask {
			m.state = StatePrioritizing
			m.prioritize(ctx, question, run)
		}
		firstPass = false

		next, ok := m.nextPending(run)
		if !ok {
			break
		}

		m.state = StateDispatching
		m.state = StateRunningTask
		taskClock := core.NewClock()
		if err := m.runner.Run(ctx, question, next, budget, taskClock); err != nil {
			m.logger.Warn("task runner returned an error", map[string]interface{}{"task_id": next.ID, "error": err.Error()})
		}

		m.state = StatePostTask
		m.completedSinceCheck++
		m.generateFollowUps(ctx, question, run, next, budget)
		if m.config.SaturationDetectionEnabled {
			m.maybeCheckSaturation(ctx, run)
		}
	}

	m.state = StateTerminating
	return nil
}

func (m *Manager) shouldTerminate(run *core.Run, budget *core.Budget) bool {
	if budget.RunExpired() {
		return true
	}
	if m.config.MaxTasks > 0 && run.TaskCount() >= m.config.MaxTasks {
		return true
	}
	if m.saturationStopped {
		return true
	}
	_, ok := m.nextPending(run)
	return !ok
}

// nextPending returns the lowest-priority-number pending task (ties
// break by lower id).
func (m *Manager) nextPending(run *core.Run) (*core.Task, bool) {
	var best *core.Task
	for _, t := range run.Tasks() {
		snap := t.ToSnapshot()
		if snap.State != core.TaskPending {
			continue
		}
		if best == nil {
			best = t
			continue
		}
		bestSnap := best.ToSnapshot()
		if snap.Priority < bestSnap.Priority || (snap.Priority == bestSnap.Priority && snap.ID < bestSnap.ID) {
			best = t
		}
	}
	return best, best != nil
}

func (m *Manager) decompose(ctx context.Context, question string, run *core.Run) error {
	vars := map[string]interface{}{
		"Question": question,
		"MinTasks": m.config.MinSeedTasks,
		"MaxTasks": m.config.MaxSeedTasks,
	}
	raw, err := m.gateway.Call(ctx, 0, "task_decomposition", vars, decompositionSchema(), "task_decomposition")
	if err != nil {
		return err
	}
	items, _ := raw["tasks"].([]interface{})
	created := 0
	for _, item := range items {
		m2, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		query, _ := m2["query"].(string)
		if query == "" {
			continue
		}
		run.AddTask(query, 0)
		created++
	}
	m.emit(0, audit.ActionDecomposition, map[string]any{"seed_count": created})
	return nil
}

func (m *Manager) prioritize(ctx context.Context, question string, run *core.Run) {
	pending := make([]*core.Task, 0)
	for _, t := range run.Tasks() {
		if t.ToSnapshot().State == core.TaskPending {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return
	}

	vars := map[string]interface{}{
		"Question":            question,
		"PendingTasksSummary": formatPendingTasks(pending),
		"CoverageSummary":     globalCoverageSummary(run),
	}
	raw, err := m.gateway.Call(ctx, 0, "task_prioritization", vars, prioritizationSchema(), "task_prioritization")
	if err != nil {
		m.logger.Warn("prioritization failed, retaining existing order", map[string]interface{}{"error": err.Error()})
		return
	}

	items, _ := raw["priorities"].([]interface{})
	byID := make(map[int]*core.Task, len(pending))
	for _, t := range pending {
		byID[t.ID] = t
	}
	for _, item := range items {
		mi, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id := intOf(mi["id"])
		t, ok := byID[id]
		if !ok {
			continue
		}
		t.SetPrioritization(intOf(mi["priority"]), stringOf(mi["reasoning"]), intOf(mi["estimated_value"]), intOf(mi["estimated_redundancy"]))
	}
	m.emit(0, audit.ActionPrioritization, map[string]any{"task_count": len(items)})
}

func (m *Manager) generateFollowUps(ctx context.Context, question string, run *core.Run, parent *core.Task, budget *core.Budget) {
	if parent.FinalCoverageStopsWithNoGaps() {
		return
	}
	if budget.RunExpired() {
		return
	}
	if m.config.MaxTasks > 0 && run.TaskCount() >= m.config.MaxTasks {
		return
	}
	if m.config.MaxFollowUpsPerTask > 0 && run.FollowUpCount(parent.ID) >= m.config.MaxFollowUpsPerTask {
		return
	}

	vars := map[string]interface{}{
		"Question":        question,
		"ParentTaskQuery": parent.Query,
		"ParentGaps":      formatGaps(parent.CoverageDecisionsSnapshot()),
		"CoverageSummary": globalCoverageSummary(run),
	}
	raw, err := m.gateway.Call(ctx, parent.ID, "follow_up_generation", vars, followUpSchema(), "follow_up_generation")
	if err != nil {
		m.logger.Warn("follow-up generation failed", map[string]interface{}{"task_id": parent.ID, "error": err.Error()})
		return
	}

	items, _ := raw["follow_ups"].([]interface{})
	for _, item := range items {
		mi, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		query, _ := mi["query"].(string)
		if query == "" {
			continue
		}
		if m.config.MaxFollowUpsPerTask > 0 && run.FollowUpCount(parent.ID) >= m.config.MaxFollowUpsPerTask {
			break
		}
		if m.config.MaxTasks > 0 && run.TaskCount() >= m.config.MaxTasks {
			break
		}
		run.AddTask(query, parent.ID)
		m.emit(parent.ID, audit.ActionFollowUpCreated, map[string]any{
			"query": query, "rationale": stringOf(mi["rationale"]), "gap_type": stringOf(mi["coverage_gap_type"]),
		})
	}
}

func (m *Manager) maybeCheckSaturation(ctx context.Context, run *core.Run) {
	if m.completedSinceCheck < m.config.SaturationCheckInterval {
		return
	}
	m.completedSinceCheck = 0

	vars := map[string]interface{}{"RecentTaskSummaries": formatTaskSummaries(taskSummaries(run))}
	raw, err := m.gateway.Call(ctx, 0, "saturation_detection", vars, saturationSchema(), "saturation_detection")
	if err != nil {
		m.logger.Warn("saturation detection failed, no stop this interval", map[string]interface{}{"error": err.Error()})
		return
	}

	saturated, _ := raw["saturated"].(bool)
	verdict := core.SaturationVerdict{
		Saturated:      saturated,
		Confidence:     intOf(raw["confidence"]),
		Reasoning:      stringOf(raw["reasoning"]),
		Recommendation: stringOf(raw["recommendation"]),
	}
	m.emit(0, audit.ActionSaturationAssessment, map[string]any{
		"saturated": verdict.Saturated, "confidence": verdict.Confidence,
		"reasoning": verdict.Reasoning, "recommendation": verdict.Recommendation,
	})

	if verdict.Saturated && verdict.Confidence >= m.config.SaturationConfidenceThreshold && m.config.AllowSaturationStop {
		m.saturationStopped = true
	}
}

func formatPendingTasks(pending []*core.Task) string {
	var b strings.Builder
	for _, t := range pending {
		fmt.Fprintf(&b, "- [id %d] %s\n", t.ID, t.Query)
	}
	return b.String()
}

func formatGaps(decisions []core.CoverageDecision) string {
	var b strings.Builder
	for _, d := range decisions {
		for _, gap := range d.GapsIdentified {
			fmt.Fprintf(&b, "- %s\n", gap)
		}
	}
	if b.Len() == 0 {
		return "(none recorded)"
	}
	return b.String()
}

// globalCoverageSummary aggregates gaps and assessment highlights across
// every completed task in the run.
func globalCoverageSummary(run *core.Run) string {
	var b strings.Builder
	for _, t := range run.Tasks() {
		snap := t.ToSnapshot()
		if snap.State != core.TaskCompleted {
			continue
		}
		for _, d := range t.CoverageDecisionsSnapshot() {
			fmt.Fprintf(&b, "- task %d: %s (%s)\n", snap.ID, d.Assessment, d.Decision)
		}
	}
	if b.Len() == 0 {
		return "(no completed tasks yet)"
	}
	return b.String()
}

func formatTaskSummaries(summaries []map[string]interface{}) string {
	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "- task %v: %v hypotheses, %v results\n", s["id"], s["hypothesis_count"], s["result_count"])
		decisions, _ := s["coverage_decisions"].([]core.CoverageDecision)
		for _, d := range decisions {
			fmt.Fprintf(&b, "  - %s (%s); new=%d duplicate=%d gain=%d%% new_entities=%d; gaps: %s\n",
				d.Assessment, d.Decision, d.Facts.NewResults, d.Facts.DuplicateResults,
				d.Facts.IncrementalGainPercent, d.Facts.NewEntities, strings.Join(d.GapsIdentified, "; "))
		}
	}
	if b.Len() == 0 {
		return "(no completed tasks yet)"
	}
	return b.String()
}

func taskSummaries(run *core.Run) []map[string]interface{} {
	tasks := run.Tasks()
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	out := make([]map[string]interface{}, 0, len(tasks))
	for _, t := range tasks {
		snap := t.ToSnapshot()
		if snap.State != core.TaskCompleted {
			continue
		}
		out = append(out, map[string]interface{}{
			"id":               snap.ID,
			"query":            snap.Query,
			"hypothesis_count": len(t.HypothesesSnapshot()),
			"result_count":     snap.ResultCount,
			"coverage_decisions": t.CoverageDecisionsSnapshot(),
		})
	}
	return out
}

func (m *Manager) emit(taskID int, action audit.ActionType, payload map[string]any) {
	if m.audit == nil {
		return
	}
	m.audit.Emit(taskID, action, payload)
}

func stringOf(v interface{}) string {
	s, _ := v.(string)
	return s
}

func intOf(v interface{}) int {
	f, _ := v.(float64)
	return int(f)
}

func decompositionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"tasks"},
		"properties": map[string]interface{}{
			"tasks": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":       "object",
					"required":   []interface{}{"query"},
					"properties": map[string]interface{}{"query": map[string]interface{}{"type": "string"}},
				},
			},
		},
	}
}

func prioritizationSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"priorities"},
		"properties": map[string]interface{}{
			"priorities": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"id", "priority"},
					"properties": map[string]interface{}{
						"id":                   map[string]interface{}{"type": "integer"},
						"priority":             map[string]interface{}{"type": "integer"},
						"reasoning":            map[string]interface{}{"type": "string"},
						"estimated_value":      map[string]interface{}{"type": "integer"},
						"estimated_redundancy": map[string]interface{}{"type": "integer"},
					},
				},
			},
		},
	}
}

func followUpSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"follow_ups"},
		"properties": map[string]interface{}{
			"follow_ups": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"query"},
					"properties": map[string]interface{}{
						"query":             map[string]interface{}{"type": "string"},
						"rationale":         map[string]interface{}{"type": "string"},
						"coverage_gap_type": map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	}
}

func saturationSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"saturated", "confidence", "reasoning", "recommendation"},
		"properties": map[string]interface{}{
			"saturated":      map[string]interface{}{"type": "boolean"},
			"confidence":     map[string]interface{}{"type": "integer"},
			"reasoning":      map[string]interface{}{"type": "string"},
			"recommendation": map[string]interface{}{"type": "string"},
		},
	}
}
