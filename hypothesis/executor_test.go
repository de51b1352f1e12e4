package hypothesis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/integration"
	"github.com/BrianMills2718/OSINT-sub007/integration/mock"
	"github.com/BrianMills2718/OSINT-sub007/llm"
	llmmock "github.com/BrianMills2718/OSINT-sub007/llm/mock"
	"github.com/BrianMills2718/OSINT-sub007/prompt"
	"github.com/BrianMills2718/OSINT-sub007/resilience"
	"github.com/BrianMills2718/OSINT-sub007/store"
)

func buildGateway(t *testing.T, relevanceResponse string) *llm.Gateway {
	t.Helper()
	r := prompt.NewRenderer()
	require.NoError(t, r.Register("relevance_evaluation", "Q: {{.Question}} H: {{.HypothesisStatement}} Results: {{.ResultsList}}"))
	client := llmmock.NewClient(relevanceResponse)
	return llm.New(r, "primary", client, &llm.Config{
		RequestTimeout: 5 * time.Second,
		Retry:          &resilience.RetryConfig{MaxAttempts: 1},
	}, nil, nil)
}

func registryWithOneSource(t *testing.T, id, displayName string, records []integration.Record) *integration.Registry {
	t.Helper()
	reg := integration.NewRegistry(nil)
	provider := mock.New(id, displayName)
	provider.Seed(records)
	reg.Register(id, func() (integration.Integration, error) { return provider, nil })
	reg.WarmUp()
	return reg
}

func TestExecutorRunAcceptsRelevantResults(t *testing.T) {
	gw := buildGateway(t, `{"decision":"ACCEPT","reasoning":"both relevant","relevant_indices":[0,1],"continue_searching":false}`)
	reg := registryWithOneSource(t, "web_search", "Web Search", []integration.Record{
		{Title: "A", URL: "https://example.org/a", Source: "Web Search"},
		{Title: "B", URL: "https://example.org/b", Source: "Web Search"},
	})
	st := store.New()
	exec := New(gw, reg, st, nil, nil, 0)

	h := core.Hypothesis{ID: 1, Statement: "test", Strategy: core.SearchStrategy{SourceNames: []string{"Web Search"}}}
	outcome, err := exec.Run(context.Background(), "question", "task query", 1, h)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Attempted)
	assert.Len(t, outcome.Accepted, 2)
}

func TestExecutorRunRejectsAllOnREJECTDecision(t *testing.T) {
	gw := buildGateway(t, `{"decision":"REJECT","reasoning":"nothing useful","relevant_indices":[],"continue_searching":true}`)
	reg := registryWithOneSource(t, "web_search", "Web Search", []integration.Record{
		{Title: "A", URL: "https://example.org/a", Source: "Web Search"},
	})
	st := store.New()
	exec := New(gw, reg, st, nil, nil, 0)

	h := core.Hypothesis{ID: 1, Statement: "test", Strategy: core.SearchStrategy{SourceNames: []string{"Web Search"}}}
	outcome, err := exec.Run(context.Background(), "question", "task query", 1, h)
	require.NoError(t, err)
	assert.Empty(t, outcome.Accepted)
}

func TestExecutorRunNoResolvableSourcesErrors(t *testing.T) {
	gw := buildGateway(t, `{"decision":"ACCEPT","reasoning":"","relevant_indices":[],"continue_searching":false}`)
	reg := integration.NewRegistry(nil)
	st := store.New()
	exec := New(gw, reg, st, nil, nil, 0)

	h := core.Hypothesis{ID: 1, Statement: "test", Strategy: core.SearchStrategy{SourceNames: []string{"Unknown Source"}}}
	_, err := exec.Run(context.Background(), "question", "task query", 1, h)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoResolvableSources)
}

func TestExecutorRunSourceFailureIsSkippedNotFatal(t *testing.T) {
	gw := buildGateway(t, `{"decision":"ACCEPT","reasoning":"","relevant_indices":[0],"continue_searching":false}`)
	reg := integration.NewRegistry(nil)

	failing := mock.New("broken", "Broken Source")
	failing.FailWith(assert.AnError)
	reg.Register("broken", func() (integration.Integration, error) { return failing, nil })

	working := mock.New("web_search", "Web Search")
	working.Seed([]integration.Record{{Title: "A", URL: "https://example.org/a", Source: "Web Search"}})
	reg.Register("web_search", func() (integration.Integration, error) { return working, nil })
	reg.WarmUp()

	st := store.New()
	exec := New(gw, reg, st, nil, nil, 0)

	h := core.Hypothesis{ID: 1, Statement: "test", Strategy: core.SearchStrategy{SourceNames: []string{"Broken Source", "Web Search"}}}
	outcome, err := exec.Run(context.Background(), "question", "task query", 1, h)
	require.NoError(t, err)
	assert.Len(t, outcome.Accepted, 1, "the broken source must be skipped, not fail the whole hypothesis")
}

func TestStripRejectionMetadataRemovesControlKeys(t *testing.T) {
	params := integration.QueryParams{"q": "query", "relevant": false, "reason": "nope", "suggested_reformulation": "try x"}
	stripped := stripRejectionMetadata(params)
	assert.Equal(t, integration.QueryParams{"q": "query"}, stripped)
}
