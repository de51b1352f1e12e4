package llm

import (
	"sync"
	"time"

	"github.com/BrianMills2718/OSINT-sub007/core"
)

// UsageStat aggregates token usage and latency for one purpose tag (e.g.
// "hypothesis_generation", "coverage_assessment"). Grounded on the
// teacher's per-tag metrics pattern in orchestration/task_telemetry.go.
type UsageStat struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	TotalLatency     time.Duration
}

// CostAccumulator is a mutex-protected map of UsageStat by purpose tag,
// matching : "records cost and latency in an accumulator
// tagged by purpose_tag."
type CostAccumulator struct {
	mu    sync.Mutex
	stats map[string]*UsageStat
}

// NewCostAccumulator builds an empty accumulator.
func NewCostAccumulator() *CostAccumulator {
	return &CostAccumulator{stats: make(map[string]*UsageStat)}
}

// Record adds one call's usage/latency under purposeTag.
func (c *CostAccumulator) Record(purposeTag string, usage core.TokenUsage, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[purposeTag]
	if !ok {
		s = &UsageStat{}
		c.stats[purposeTag] = s
	}
	s.Calls++
	s.PromptTokens += usage.PromptTokens
	s.CompletionTokens += usage.CompletionTokens
	s.TotalTokens += usage.TotalTokens
	s.TotalLatency += latency
}

// Snapshot returns a copy of the accumulated stats, keyed by purpose tag.
func (c *CostAccumulator) Snapshot() map[string]UsageStat {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]UsageStat, len(c.stats))
	for k, v := range c.stats {
		out[k] = *v
	}
	return out
}
