// Package hypothesis implements the Hypothesis Executor:
// resolve a hypothesis's named sources, generate a per-source query via
// the LLM Gateway, fan out concurrent searches bounded by a semaphore,
// merge, and relevance-filter the merged list via the LLM Gateway. The
// surviving results are returned in an Outcome; the caller (Task Runner)
// adds them to the Result Store with attribution.
//
// The fan-out uses a buffered-channel semaphore to bound concurrent
// per-source searches.
package hypothesis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/BrianMills2718/OSINT-sub007/audit"
	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/integration"
	"github.com/BrianMills2718/OSINT-sub007/llm"
	"github.com/BrianMills2718/OSINT-sub007/store"
)

// Executor runs one hypothesis against one task.
type Executor struct {
	gateway    *llm.Gateway
	registry   *integration.Registry
	store      *store.Store
	audit      *audit.Logger
	logger     core.Logger
	fanOutLimit int // default 5
}

// New builds an Executor. fanOutLimit <= 0 defaults to 5.
func New(gateway *llm.Gateway, registry *integration.Registry, st *store.Store, auditLogger *audit.Logger, logger core.Logger, fanOutLimit int) *Executor {
	if fanOutLimit <= 0 {
		fanOutLimit = 5
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Executor{gateway: gateway, registry: registry, store: st, audit: auditLogger, logger: logger, fanOutLimit: fanOutLimit}
}

// Outcome summarizes one Run call for the caller (Task Runner), which
// needs the raw counts to compute coverage facts via store.Delta.
type Outcome struct {
	Attempted int // results offered to the store (post relevance-filter)
	Accepted  []core.Result
}

type searchOutcome struct {
	sourceID string
	result   integration.QueryResult
	err      error
}

// Run executes hypothesis h for task (question, taskQuery, taskID).
// Failure cases: ErrNoResolvableSources when no source name resolves;
// the filtering call failing fails the whole hypothesis (nothing
// accumulated).
func (e *Executor) Run(ctx context.Context, question, taskQuery string, taskID int, h core.Hypothesis) (Outcome, error) {
	sourceIDs := e.resolveSources(h.Strategy.SourceNames, taskID, h.ID)
	if len(sourceIDs) == 0 {
		return Outcome{}, fmt.Errorf("hypothesis %d: %w", h.ID, core.ErrNoResolvableSources)
	}

	records := e.fanOutSearch(ctx, question, taskQuery, h.Statement, taskID, h.ID, sourceIDs)
	if len(records) == 0 {
		e.emit(taskID, audit.ActionHypothesisExecuted, map[string]any{
			"hypothesis_id": h.ID, "pre_count": 0, "post_count": 0,
		})
		return Outcome{}, nil
	}

	accepted, err := e.filterRelevance(ctx, question, h.Statement, taskID, h.ID, records)
	if err != nil {
		return Outcome{}, fmt.Errorf("hypothesis %d relevance filtering: %w", h.ID, err)
	}

	attempted := len(accepted)
	results := make([]core.Result, 0, attempted)
	for _, rec := range accepted {
		results = append(results, recordToResult(rec))
	}

	e.emit(taskID, audit.ActionHypothesisExecuted, map[string]any{
		"hypothesis_id": h.ID, "pre_count": len(records), "post_count": len(results),
	})

	return Outcome{Attempted: attempted, Accepted: results}, nil
}

// resolveSources maps human-readable source names to registry ids,
// logging and dropping unknown names.
func (e *Executor) resolveSources(names []string, taskID, hypothesisID int) []string {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := e.registry.ResolveDisplayName(name)
		if !ok {
			e.logger.Warn("unresolved source name dropped", map[string]interface{}{
				"name": name, "hypothesis_id": hypothesisID,
			})
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// fanOutSearch generates a per-source query then executes searches
// concurrently, bounded by e.fanOutLimit. Per-source failures (query
// generation "not applicable", or executeSearch error) are recorded and
// skipped; they never fail the hypothesis.
func (e *Executor) fanOutSearch(ctx context.Context, question, taskQuery, hypothesisStatement string, taskID, hypothesisID int, sourceIDs []string) []integration.Record {
	sem := make(chan struct{}, e.fanOutLimit)
	var wg sync.WaitGroup
	outcomes := make(chan searchOutcome, len(sourceIDs))

	for _, id := range sourceIDs {
		sourceID := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			in, err := e.registry.Get(sourceID)
			if err != nil {
				outcomes <- searchOutcome{sourceID: sourceID, err: err}
				return
			}
			breaker := e.registry.Breaker(sourceID)
			if breaker != nil && !breaker.CanExecute() {
				outcomes <- searchOutcome{sourceID: sourceID, err: fmt.Errorf("source %s: circuit open: %w", sourceID, core.ErrIntegrationCallFailed)}
				return
			}

			params, reasoning, err := in.GenerateQuery(ctx, question, taskQuery, hypothesisStatement)
			if err != nil {
				outcomes <- searchOutcome{sourceID: sourceID, err: err}
				return
			}
			if relevant, ok := params["relevant"].(bool); ok && !relevant {
				e.emit(taskID, audit.ActionHypothesisQueryGeneration, map[string]any{
					"source": sourceID, "hypothesis_id": hypothesisID, "applicable": false, "reasoning": reasoning,
				})
				outcomes <- searchOutcome{sourceID: sourceID}
				return
			}
			stripped := stripRejectionMetadata(params)
			e.emit(taskID, audit.ActionHypothesisQueryGeneration, map[string]any{
				"source": sourceID, "hypothesis_id": hypothesisID, "applicable": true, "reasoning": reasoning,
			})

			result, err := in.ExecuteSearch(ctx, stripped, 0)
			if err != nil {
				if breaker != nil && core.IsRetryableIntegrationError(err) {
					breaker.RecordFailure()
				}
				outcomes <- searchOutcome{sourceID: sourceID, err: fmt.Errorf("%w: %v", core.ErrIntegrationCallFailed, err)}
				return
			}
			if breaker != nil {
				breaker.RecordSuccess()
			}
			e.emit(taskID, audit.ActionIntegrationCall, map[string]any{
				"source": sourceID, "hypothesis_id": hypothesisID, "result_count": len(result.Results),
			})
			outcomes <- searchOutcome{sourceID: sourceID, result: result}
		}()
	}

	wg.Wait()
	close(outcomes)

	var records []integration.Record
	for oc := range outcomes {
		if oc.err != nil {
			e.emit(taskID, audit.ActionIntegrationError, map[string]any{
				"source": oc.sourceID, "hypothesis_id": hypothesisID, "error": oc.err.Error(),
			})
			continue
		}
		records = append(records, oc.result.Results...)
	}
	return records
}

func stripRejectionMetadata(params integration.QueryParams) integration.QueryParams {
	out := make(integration.QueryParams, len(params))
	for k, v := range params {
		if k == "relevant" || k == "reason" || k == "suggested_reformulation" {
			continue
		}
		out[k] = v
	}
	return out
}

func (e *Executor) filterRelevance(ctx context.Context, question, hypothesisStatement string, taskID, hypothesisID int, records []integration.Record) ([]integration.Record, error) {
	vars := map[string]interface{}{
		"Question":            question,
		"HypothesisStatement": hypothesisStatement,
		"ResultsList":         formatRecords(records),
	}
	schema := relevanceEvaluationSchema()
	raw, err := e.gateway.Call(ctx, taskID, "relevance_evaluation", vars, schema, "relevance_evaluation")
	if err != nil {
		return nil, err
	}

	decision, _ := raw["decision"].(string)
	e.emit(taskID, audit.ActionRelevanceScoring, map[string]any{
		"hypothesis_id": hypothesisID, "decision": decision, "reasoning_breakdown": raw["reasoning_breakdown"],
	})

	if decision != "ACCEPT" {
		return nil, nil
	}

	indices := indexList(raw["relevant_indices"])
	sort.Ints(indices)
	kept := make([]integration.Record, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(records) {
			kept = append(kept, records[idx])
		}
	}
	return kept, nil
}

func formatRecords(records []integration.Record) string {
	var b strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&b, "%d. %s (%s) %s — %s\n", i, rec.Title, rec.Source, rec.URL, rec.Description)
	}
	if b.Len() == 0 {
		return "(none)"
	}
	return b.String()
}

func indexList(v interface{}) []int {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(arr))
	for _, e := range arr {
		if f, ok := e.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}

func recordToResult(rec integration.Record) core.Result {
	return core.Result{
		Title:       rec.Title,
		URL:         rec.URL,
		Date:        rec.Date,
		Source:      rec.Source,
		Description: rec.Description,
		Extra:       rec.Extra,
	}
}

func (e *Executor) emit(taskID int, action audit.ActionType, payload map[string]any) {
	if e.audit == nil {
		return
	}
	e.audit.Emit(taskID, action, payload)
}

// relevanceEvaluationSchema is the JSON schema the relevance_evaluation
// template's response must satisfy.
func relevanceEvaluationSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"decision", "reasoning", "relevant_indices", "continue_searching"},
		"properties": map[string]interface{}{
			"decision":            map[string]interface{}{"type": "string", "enum": []interface{}{"ACCEPT", "REJECT"}},
			"reasoning":           map[string]interface{}{"type": "string"},
			"relevant_indices":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "integer"}},
			"continue_searching":  map[string]interface{}{"type": "boolean"},
			"continuation_reason": map[string]interface{}{"type": "string"},
		},
	}
}
