// Package audit implements the Audit Logger: a single-writer,
// append-only, line-delimited structured event stream. It is adapted
// from the teacher's telemetry.TelemetryLogger — same layered,
// rate-limited, never-blocks-the-caller-for-long discipline — retargeted
// from "log to stdout" to "append one JSON object per line to a file."
package audit

import "time"

// ActionType is the closed set of event kinds the engine ever emits.
type ActionType string

const (
	ActionRunStart                  ActionType = "run_start"
	ActionRunComplete                ActionType = "run_complete"
	ActionDecomposition               ActionType = "decomposition"
	ActionPrioritization               ActionType = "prioritization"
	ActionTaskStart                  ActionType = "task_start"
	ActionTaskComplete                ActionType = "task_complete"
	ActionTaskFailed                 ActionType = "task_failed"
	ActionHypothesesGenerated          ActionType = "hypotheses_generated"
	ActionHypothesisQueryGeneration     ActionType = "hypothesis_query_generation"
	ActionHypothesisExecuted           ActionType = "hypothesis_executed"
	ActionHypothesisFailed            ActionType = "hypothesis_failed"
	ActionRelevanceScoring            ActionType = "relevance_scoring"
	ActionCoverageAssessment           ActionType = "coverage_assessment"
	ActionSaturationAssessment          ActionType = "saturation_assessment"
	ActionFollowUpCreated              ActionType = "follow_up_created"
	ActionEntityExtraction            ActionType = "entity_extraction"
	ActionLLMCall                   ActionType = "llm_call"
	ActionIntegrationCall             ActionType = "integration_call"
	ActionIntegrationError            ActionType = "integration_error"
	ActionDedup                     ActionType = "dedup"
)

// Event is one audit record. TaskID is 0 for run-scoped events.
type Event struct {
	Timestamp  time.Time      `json:"timestamp"`
	RunID      string         `json:"run_id"`
	TaskID     int            `json:"task_id,omitempty"`
	ActionType ActionType     `json:"action_type"`
	Payload    map[string]any `json:"action_payload,omitempty"`
}
