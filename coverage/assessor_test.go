package coverage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/llm"
	"github.com/BrianMills2718/OSINT-sub007/llm/mock"
	"github.com/BrianMills2718/OSINT-sub007/prompt"
	"github.com/BrianMills2718/OSINT-sub007/resilience"
)

func newTestGateway(t *testing.T, client *mock.Client) *llm.Gateway {
	t.Helper()
	r := prompt.NewRenderer()
	require.NoError(t, r.Register("coverage_assessment",
		"Facts: {{.Facts}}\nPriors: {{.PriorHypothesesSummary}}\nQ: {{.Question}} T: {{.TaskQuery}} H: {{.HypothesisStatement}}"))
	return llm.New(r, "primary", client, &llm.Config{
		RequestTimeout: 5 * time.Second,
		Retry:          &resilience.RetryConfig{MaxAttempts: 1},
	}, nil, nil)
}

func TestAssessAttachesEngineComputedFacts(t *testing.T) {
	client := mock.NewClient(`{"decision":"continue","assessment":"more to find","gaps_identified":["names"]}`)
	gw := newTestGateway(t, client)
	assessor := New(gw, nil)

	facts := core.CoverageFacts{NewResults: 2, DuplicateResults: 1, IncrementalGainPercent: 67, NewEntities: 1}
	h := core.Hypothesis{ID: 1, Statement: "primary sources name the org"}

	decision, err := assessor.Assess(context.Background(), "question", "task query", 1, h, facts, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "continue", decision.Decision)
	assert.Equal(t, facts, decision.Facts, "facts must be the engine-computed value, never the model's own numbers")
	assert.Equal(t, 1, decision.HypothesisID)
}

func TestAssessStopsRequiresNoGaps(t *testing.T) {
	client := mock.NewClient(`{"decision":"stop","assessment":"done","gaps_identified":[]}`)
	gw := newTestGateway(t, client)
	assessor := New(gw, nil)

	decision, err := assessor.Assess(context.Background(), "q", "tq", 1, core.Hypothesis{ID: 1}, core.CoverageFacts{}, nil, nil)
	require.NoError(t, err)
	assert.True(t, decision.Stops())
}

func TestAssessStopWithGapsDoesNotSatisfyStops(t *testing.T) {
	client := mock.NewClient(`{"decision":"stop","assessment":"mostly done","gaps_identified":["one more source"]}`)
	gw := newTestGateway(t, client)
	assessor := New(gw, nil)

	decision, err := assessor.Assess(context.Background(), "q", "tq", 1, core.Hypothesis{ID: 1}, core.CoverageFacts{}, nil, nil)
	require.NoError(t, err)
	assert.False(t, decision.Stops(), "a stop decision with outstanding gaps must not count as satisfied")
}

func TestFormatFactsRendersReadableKeyValuePairs(t *testing.T) {
	out := formatFacts(core.CoverageFacts{NewResults: 3, DuplicateResults: 1, IncrementalGainPercent: 75, NewEntities: 2})
	assert.Contains(t, out, "new_results=3")
	assert.Contains(t, out, "incremental_gain_percent=75")
}

func TestFormatPriorHypothesesEmptyReturnsPlaceholder(t *testing.T) {
	assert.Equal(t, "(none yet)", formatPriorHypotheses(nil))
}
