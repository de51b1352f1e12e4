// Package coverage implements the Coverage Assessor: an
// LLM-advisory stop/continue verdict, with the engine-computed facts
// block attached after the call returns (the LLM never invents the
// numeric scores).
package coverage

import (
	"context"
	"fmt"
	"strings"

	"github.com/BrianMills2718/OSINT-sub007/audit"
	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/llm"
)

// Assessor wraps the LLM Gateway call plus facts attachment.
type Assessor struct {
	gateway *llm.Gateway
	audit   *audit.Logger
}

// New builds an Assessor.
func New(gateway *llm.Gateway, auditLogger *audit.Logger) *Assessor {
	return &Assessor{gateway: gateway, audit: auditLogger}
}

// priorSummary is the compact shape passed to the template for each
// prior hypothesis in the task.
type priorSummary struct {
	Statement string             `json:"statement"`
	Facts     core.CoverageFacts `json:"facts"`
}

// Assess calls the coverage_assessment template and attaches facts to
// the returned decision. A failed call (timeout, schema invalid) does
// not stop the task — the caller should treat the error as an implicit
// "continue" and keep looping toward the hard ceilings, not propagate a
// task failure.
func (a *Assessor) Assess(ctx context.Context, question, taskQuery string, taskID int, justExecuted core.Hypothesis, facts core.CoverageFacts, priorHypotheses []core.Hypothesis, priorDecisions []core.CoverageDecision) (core.CoverageDecision, error) {
	factsByHypothesis := make(map[int]core.CoverageFacts, len(priorDecisions))
	for _, d := range priorDecisions {
		factsByHypothesis[d.HypothesisID] = d.Facts
	}
	priors := make([]priorSummary, 0, len(priorHypotheses))
	for _, h := range priorHypotheses {
		priors = append(priors, priorSummary{Statement: h.Statement, Facts: factsByHypothesis[h.ID]})
	}

	vars := map[string]interface{}{
		"Question":               question,
		"TaskQuery":              taskQuery,
		"HypothesisStatement":    justExecuted.Statement,
		"Facts":                  formatFacts(facts),
		"PriorHypothesesSummary": formatPriorHypotheses(priors),
	}

	raw, err := a.gateway.Call(ctx, taskID, "coverage_assessment", vars, assessmentSchema(), "coverage_assessment")
	if err != nil {
		return core.CoverageDecision{}, err
	}

	decision := core.CoverageDecision{
		HypothesisID:   justExecuted.ID,
		Decision:       stringField(raw, "decision"),
		Assessment:     stringField(raw, "assessment"),
		GapsIdentified: stringSlice(raw["gaps_identified"]),
		Facts:          facts,
	}

	if a.audit != nil {
		a.audit.Emit(taskID, audit.ActionCoverageAssessment, map[string]any{
			"hypothesis_id":   decision.HypothesisID,
			"decision":        decision.Decision,
			"gaps_identified": decision.GapsIdentified,
			"facts":           decision.Facts,
		})
	}

	return decision, nil
}

// formatFacts renders the engine-computed facts as plain key=value text
// so the prompt stays human-readable instead of Go's unlabeled %v struct
// dump (which drops field names entirely).
func formatFacts(f core.CoverageFacts) string {
	return fmt.Sprintf("new_results=%d duplicate_results=%d incremental_gain_percent=%d new_entities=%d",
		f.NewResults, f.DuplicateResults, f.IncrementalGainPercent, f.NewEntities)
}

// formatPriorHypotheses renders the compact "statements + facts" summary
// the coverage_assessment template expects.
func formatPriorHypotheses(priors []priorSummary) string {
	if len(priors) == 0 {
		return "(none yet)"
	}
	var b strings.Builder
	for i, p := range priors {
		fmt.Fprintf(&b, "%d. %s — new=%d duplicate=%d gain=%d%% new_entities=%d\n",
			i+1, p.Statement, p.Facts.NewResults, p.Facts.DuplicateResults, p.Facts.IncrementalGainPercent, p.Facts.NewEntities)
	}
	return b.String()
}

func stringField(raw map[string]interface{}, key string) string {
	s, _ := raw[key].(string)
	return s
}

func stringSlice(v interface{}) []string {
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

func assessmentSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"decision", "assessment", "gaps_identified"},
		"properties": map[string]interface{}{
			"decision":        map[string]interface{}{"type": "string", "enum": []interface{}{"continue", "stop"}},
			"assessment":      map[string]interface{}{"type": "string"},
			"gaps_identified": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
	}
}
