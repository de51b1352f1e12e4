// Package mock provides a deterministic core.AIClient used by tests and
// by cmd/research's no-credentials demo path. Grounded on the teacher's
// ai/providers/mock/provider.go: a scriptable client exposing
// CallCount/LastPrompt for assertions, extended here with an "autopilot"
// mode that recognizes which prompt template rendered a given prompt (by
// matching a stable phrase each .tmpl file always contains) and returns
// schema-valid canned JSON for it, so a whole research run can be driven
// end to end without a live model.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/BrianMills2718/OSINT-sub007/core"
)

// Client is a scriptable AIClient. Responses are consumed in order; once
// exhausted, the last response repeats. Err, when set, is returned
// instead of any response (simulating LLMUnavailable).
type Client struct {
	mu sync.Mutex

	Responses []string
	index     int
	Err       error
	CallCount int
	LastPrompt string

	// Responder, when non-nil, takes priority over Responses: it
	// receives the rendered prompt and returns the JSON body to hand
	// back. Used by Autopilot.
	Responder func(prompt string) (string, error)
}

// NewClient builds a Client that replays responses in order.
func NewClient(responses ...string) *Client {
	return &Client{Responses: responses}
}

// FailWith makes every call return err.
func (c *Client) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}

// GenerateResponse implements core.AIClient.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c.mu.Lock()
	c.CallCount++
	c.LastPrompt = prompt
	err := c.Err
	responder := c.Responder
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	var content string
	if responder != nil {
		content, err = responder(prompt)
		if err != nil {
			return nil, err
		}
	} else {
		c.mu.Lock()
		if len(c.Responses) == 0 {
			c.mu.Unlock()
			return nil, fmt.Errorf("mock: no responses configured")
		}
		idx := c.index
		if idx >= len(c.Responses) {
			idx = len(c.Responses) - 1
		} else {
			c.index++
		}
		content = c.Responses[idx]
		c.mu.Unlock()
	}

	model := "mock"
	if options != nil && options.Model != "" {
		model = options.Model
	}
	return &core.AIResponse{
		Content: content,
		Model:   model,
		Usage: core.TokenUsage{
			PromptTokens:     len(strings.Fields(prompt)),
			CompletionTokens: len(strings.Fields(content)),
			TotalTokens:      len(strings.Fields(prompt)) + len(strings.Fields(content)),
		},
	}, nil
}

var _ core.AIClient = (*Client)(nil)

// NewAutopilot builds a Client whose Responder recognizes which prompt
// template rendered the incoming prompt (by a phrase unique to each
// .tmpl file in package prompt/templates) and returns schema-valid JSON
// for it, so engine.Execute can run unattended end to end.
func NewAutopilot() *Client {
	c := &Client{}
	c.Responder = autopilotRespond
	return c
}

func autopilotRespond(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Decompose the question into"):
		return `{"tasks":[{"query":"background and definitions"},{"query":"key people and organizations involved"},{"query":"recent developments and sourcing"}]}`, nil

	case strings.Contains(prompt, "Generate an ordered list of investigative hypotheses"):
		return `{"hypotheses":[
			{"statement":"Primary sources name the organizations central to this question","source_names":["Web Search"],"expected_entity_types":["organization","person"],"signal_keywords":["official","announcement"],"confidence":70,"priority":1,"rationale":"broad first pass"},
			{"statement":"Recent coverage surfaces names not yet seen","source_names":["Web Search"],"expected_entity_types":["person"],"signal_keywords":["update","recent"],"confidence":55,"priority":2,"rationale":"incremental pass"}
		]}`, nil

	case strings.Contains(prompt, "Produce a search query string tailored"):
		return `{"query":"","applicable":true,"reasoning":"autopilot: reference adapter generates its own query"}`, nil

	case strings.Contains(prompt, "Decide ACCEPT or REJECT for this batch"):
		return autopilotRelevance(prompt), nil

	case strings.Contains(prompt, "Decide whether this task should continue"):
		if strings.Contains(prompt, "new_results=0") {
			return `{"decision":"stop","assessment":"no new evidence surfaced by the last hypothesis","gaps_identified":[]}`, nil
		}
		return `{"decision":"continue","assessment":"still surfacing new evidence","gaps_identified":["need corroborating sources"]}`, nil

	case strings.Contains(prompt, "Propose zero or more follow-up research tasks"):
		return `{"follow_ups":[]}`, nil

	case strings.Contains(prompt, "Judge whether the research run as a whole"):
		return `{"saturated":false,"confidence":40,"reasoning":"coverage still growing","recommendation":"continue"}`, nil

	case strings.Contains(prompt, "assign a priority from 1"):
		return autopilotPriorities(prompt), nil

	case strings.Contains(prompt, "Extract the distinct named entities"):
		return `{"entities":["Example Organization","Jane Researcher"]}`, nil

	case strings.Contains(prompt, "Write a final research report"):
		return `{"report_markdown":"# Research Report\n\nAutopilot-synthesized summary of accumulated findings."}`, nil

	default:
		return "", fmt.Errorf("mock autopilot: unrecognized prompt template")
	}
}

// autopilotRelevance accepts every candidate result in the rendered list
// by counting numbered lines and returning all their indices, keeping
// the demo path simple and deterministic.
func autopilotRelevance(prompt string) string {
	lines := strings.Split(prompt, "\n")
	indices := make([]string, 0, len(lines))
	i := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || !strings.Contains(trimmed, ".") {
			continue
		}
		prefix := trimmed[:strings.Index(trimmed, ".")]
		if _, err := fmt.Sscanf(prefix, "%d", new(int)); err == nil {
			indices = append(indices, fmt.Sprintf("%d", i))
			i++
		}
	}
	return fmt.Sprintf(`{"decision":"ACCEPT","reasoning":"autopilot accepts all candidates","relevant_indices":[%s],"continue_searching":false,"continuation_reason":"sufficient for demo","reasoning_breakdown":{"strategy":"accept-all","interesting_decisions":[],"patterns":[]}}`, strings.Join(indices, ","))
}

// autopilotPriorities assigns a flat priority/value/redundancy to every
// "- [id N] ..." line the task_prioritization template renders.
func autopilotPriorities(prompt string) string {
	var b strings.Builder
	b.WriteString(`{"priorities":[`)
	first := true
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- [id ") {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(line, "- [id %d]", &id); err != nil {
			continue
		}
		if !first {
			b.WriteString(",")
		}
		first = false
		fmt.Fprintf(&b, `{"id":%d,"priority":5,"reasoning":"autopilot default priority","estimated_value":50,"estimated_redundancy":10}`, id)
	}
	b.WriteString(`]}`)
	return b.String()
}
