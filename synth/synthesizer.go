// Package synth implements the Synthesizer: the final
// report_synthesis LLM call over accumulated task summaries, coverage
// decisions, entities, and a bounded result sample. Stateless and
// side-effect-local — it returns artifacts for the caller (package
// engine) to write under the run's output directory.
package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/BrianMills2718/OSINT-sub007/audit"
	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/llm"
	"github.com/BrianMills2718/OSINT-sub007/store"
)

// Synthesizer builds the final report.
type Synthesizer struct {
	gateway *llm.Gateway
	audit   *audit.Logger

	// SampleSize bounds how many result snippets are passed to the
	// template.
	SampleSize int
}

// New builds a Synthesizer with a default result-snippet sample size of 50.
func New(gateway *llm.Gateway, auditLogger *audit.Logger) *Synthesizer {
	return &Synthesizer{gateway: gateway, audit: auditLogger, SampleSize: 50}
}

// Report is the synthesized artifact set.
type Report struct {
	Markdown string
	Degraded bool // true when synthesis fell back to a structured error block
}

// Synthesize builds the final report. A failed LLM call never fails the
// run: the report gets a structured error block instead and the run
// still exits 0.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, run *core.Run, resultStore *store.Store) Report {
	summaries := taskSummaries(run)
	entities := resultStore.EntityNames()
	results := resultStore.Results()
	sample := results
	if s.SampleSize > 0 && len(sample) > s.SampleSize {
		sample = sample[:s.SampleSize]
	}

	vars := map[string]interface{}{
		"Question":        question,
		"TaskSummaries":   summaries,
		"CoverageSummary": formatCoverageSummary(run),
		"Entities":        entities,
		"ResultSample":    sample,
		"TotalResults":    len(results),
	}

	raw, err := s.gateway.Call(ctx, 0, "report_synthesis", vars, synthesisSchema(), "report_synthesis")
	if err != nil {
		if s.audit != nil {
			s.audit.Emit(0, audit.ActionRunComplete, map[string]any{"synthesis_degraded": true, "error": err.Error()})
		}
		return Report{Degraded: true, Markdown: degradedReport(question, err, results)}
	}

	md, _ := raw["report_markdown"].(string)
	if md == "" {
		md = degradedReport(question, fmt.Errorf("synthesis returned empty report"), results)
		return Report{Degraded: true, Markdown: md}
	}
	return Report{Markdown: md}
}

func degradedReport(question string, err error, results []core.Result) string {
	return fmt.Sprintf("# Research Report (degraded)\n\n**Question:** %s\n\n"+
		"Synthesis could not complete: %v\n\n## Accumulated Results (%d)\n\n"+
		"See results.json for the full attributed result set.\n", question, err, len(results))
}

// formatCoverageSummary aggregates every completed task's coverage
// decisions into the prose block the report_synthesis template expects.
func formatCoverageSummary(run *core.Run) string {
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
		return "(no coverage decisions recorded)"
	}
	return b.String()
}

func taskSummaries(run *core.Run) []map[string]interface{} {
	out := make([]map[string]interface{}, 0)
	for _, t := range run.Tasks() {
		snap := t.ToSnapshot()
		out = append(out, map[string]interface{}{
			"id":                 snap.ID,
			"query":              snap.Query,
			"state":              string(snap.State),
			"result_count":       snap.ResultCount,
			"coverage_decisions": t.CoverageDecisionsSnapshot(),
		})
	}
	return out
}

func synthesisSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"report_markdown"},
		"properties": map[string]interface{}{
			"report_markdown": map[string]interface{}{"type": "string"},
		},
	}
}
