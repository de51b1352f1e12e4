package core

// SearchStrategy names the sources, expected entity types and signal
// keywords a hypothesis wants searched.
type SearchStrategy struct {
	SourceNames         []string `json:"source_names"`
	ExpectedEntityTypes []string `json:"expected_entity_types,omitempty"`
	SignalKeywords      []string `json:"signal_keywords,omitempty"`
}

// Hypothesis is one investigative sub-question within a task.
type Hypothesis struct {
	ID        int            `json:"id"`
	Statement string         `json:"statement"`
	Strategy  SearchStrategy `json:"strategy"`
	Confidence int           `json:"confidence"` // 0-100
	Priority  int            `json:"priority"`
	Rationale string         `json:"rationale"`
}

// CoverageFacts are the objective, engine-computed numbers attached to
// every coverage decision.
type CoverageFacts struct {
	NewResults            int `json:"new_results"`
	DuplicateResults      int `json:"duplicate_results"`
	IncrementalGainPercent int `json:"incremental_gain_percent"`
	NewEntities           int `json:"new_entities"`
}

// CoverageDecision records the assessor's advisory verdict after a
// hypothesis execution, plus the facts the engine computed for it.
type CoverageDecision struct {
	HypothesisID   int           `json:"hypothesis_id"`
	Decision       string        `json:"decision"` // "continue" | "stop"
	Assessment     string        `json:"assessment"`
	GapsIdentified []string      `json:"gaps_identified"`
	Facts          CoverageFacts `json:"facts"`
}

// Stops reports whether this decision is a final stop: decision=stop
// AND no gaps identified.
func (d CoverageDecision) Stops() bool {
	return d.Decision == "stop" && len(d.GapsIdentified) == 0
}

// SaturationVerdict is the Manager's run-level saturation judgment.
type SaturationVerdict struct {
	Saturated      bool   `json:"saturated"`
	Confidence     int    `json:"confidence"`
	Reasoning      string `json:"reasoning"`
	Recommendation string `json:"recommendation"` // "continue" | "stop" | "continue_limited"
}
