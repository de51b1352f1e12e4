package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientReplaysResponsesInOrderThenRepeatsLast(t *testing.T) {
	c := NewClient("first", "second")

	resp1, err := c.GenerateResponse(context.Background(), "p1", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", resp1.Content)

	resp2, err := c.GenerateResponse(context.Background(), "p2", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", resp2.Content)

	resp3, err := c.GenerateResponse(context.Background(), "p3", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", resp3.Content, "once exhausted the last response repeats")

	assert.Equal(t, 3, c.CallCount)
	assert.Equal(t, "p3", c.LastPrompt)
}

func TestClientFailWithReturnsConfiguredError(t *testing.T) {
	c := NewClient("unused")
	c.FailWith(assert.AnError)

	_, err := c.GenerateResponse(context.Background(), "p", nil)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestClientRespectsContextCancellation(t *testing.T) {
	c := NewClient("unused")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GenerateResponse(ctx, "p", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAutopilotRecognizesEveryTemplatePhrase(t *testing.T) {
	c := NewAutopilot()

	prompts := []string{
		"Decompose the question into a handful of tasks",
		"Generate an ordered list of investigative hypotheses",
		"Produce a search query string tailored to this source",
		"Decide ACCEPT or REJECT for this batch of results",
		"Decide whether this task should continue searching, new_results=2",
		"Propose zero or more follow-up research tasks",
		"Judge whether the research run as a whole has reached saturation",
		"For each pending task, assign a priority from 1 to 10",
		"Extract the distinct named entities mentioned in these results",
		"Write a final research report synthesizing everything found",
	}

	for _, p := range prompts {
		resp, err := c.GenerateResponse(context.Background(), p, nil)
		require.NoError(t, err, "prompt: %s", p)
		assert.NotEmpty(t, resp.Content)
	}
}

func TestAutopilotUnrecognizedPromptErrors(t *testing.T) {
	c := NewAutopilot()
	_, err := c.GenerateResponse(context.Background(), "something no template would ever say", nil)
	assert.Error(t, err)
}

func TestAutopilotCoverageAssessmentStopsOnZeroNewResults(t *testing.T) {
	c := NewAutopilot()
	resp, err := c.GenerateResponse(context.Background(), "Decide whether this task should continue searching. new_results=0 duplicate_results=2 incremental_gain_percent=0 new_entities=0", nil)
	require.NoError(t, err)
	assert.Contains(t, resp.Content, `"decision":"stop"`)
}

func TestAutopilotRelevanceAcceptsAllNumberedCandidates(t *testing.T) {
	prompt := "Decide ACCEPT or REJECT for this batch of results\n1. first result\n2. second result\n3. third result\n"
	resp := autopilotRelevance(prompt)
	assert.Contains(t, resp, `"relevant_indices":[0,1,2]`)
}

func TestAutopilotPrioritiesCoversEveryIDLine(t *testing.T) {
	prompt := "assign a priority from 1 to 10\n- [id 3] task A\n- [id 7] task B\n"
	resp := autopilotPriorities(prompt)
	assert.Contains(t, resp, `"id":3`)
	assert.Contains(t, resp, `"id":7`)
}
