// Package llm implements the LLM Gateway: a structured
// JSON-schema call with timeout, retries, a fallback model chain, and
// cost accounting. Grounded on the teacher's ai/chain_client.go
// (ordered-provider failover) and ai/client.go (prompt-in,
// AIResponse-out provider shape), with JSON-schema validation added via
// github.com/xeipuuv/gojsonschema — an ecosystem dependency; the teacher
// carries no schema validator of its own, so this is a "rest of the
// pack / ecosystem" addition per the domain-stack expansion rule.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/BrianMills2718/OSINT-sub007/audit"
	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/prompt"
	"github.com/BrianMills2718/OSINT-sub007/resilience"
)

// namedClient pairs a model alias with the client that serves it, so
// fallback attempts can be logged with a human-readable model name
// (mirroring ai/chain_client.go's providerAliases bookkeeping).
type namedClient struct {
	alias  string
	client core.AIClient
}

// Config configures a Gateway.
type Config struct {
	// RequestTimeout bounds a single underlying model call (spec default
	// 180s).
	RequestTimeout time.Duration
	// Retry controls in-process retry of the *same* model before moving
	// to the next one in the fallback chain.
	Retry *resilience.RetryConfig
}

// DefaultConfig matches the documented default of a 180s per-call timeout.
func DefaultConfig() *Config {
	return &Config{
		RequestTimeout: 180 * time.Second,
		Retry:          resilience.DefaultRetryConfig(),
	}
}

// Gateway is the LLM Gateway.
type Gateway struct {
	renderer *prompt.Renderer
	chain    []namedClient
	config   *Config
	costs    *CostAccumulator
	audit    *audit.Logger
	logger   core.Logger
}

// New builds a Gateway. primary is tried first; fallbacks added with
// WithFallback are tried in order if primary fails transiently.
// auditLogger and logger may be nil (NoOp behavior).
func New(renderer *prompt.Renderer, primaryAlias string, primary core.AIClient, config *Config, auditLogger *audit.Logger, logger core.Logger) *Gateway {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Gateway{
		renderer: renderer,
		chain:    []namedClient{{alias: primaryAlias, client: primary}},
		config:   config,
		costs:    NewCostAccumulator(),
		audit:    auditLogger,
		logger:   logger,
	}
}

// WithFallback appends a fallback model to the chain, tried in the order
// added when an earlier model fails transiently.
func (g *Gateway) WithFallback(alias string, client core.AIClient) *Gateway {
	g.chain = append(g.chain, namedClient{alias: alias, client: client})
	return g
}

// Costs exposes the accumulated per-purpose-tag usage.
func (g *Gateway) Costs() map[string]UsageStat {
	return g.costs.Snapshot()
}

// Call renders templateName against vars, invokes the model chain under
// a per-call timeout with retries, validates the JSON response against
// schema, and returns the parsed object. taskID is 0 for run-scoped
// calls (used only for audit attribution).
func (g *Gateway) Call(ctx context.Context, taskID int, templateName string, vars map[string]interface{}, schema map[string]interface{}, purposeTag string) (map[string]interface{}, error) {
	promptText, err := g.renderer.Render(templateName, vars)
	if err != nil {
		return nil, &CallError{Template: templateName, Purpose: purposeTag, Err: err}
	}

	var lastErr error
	attempts := 0
	// callID correlates every fallback attempt of this logical Call in
	// the audit log, the way the teacher tags a single logical unit of
	// work with one generated id across its retries.
	callID := uuid.New().String()

	for _, nc := range g.chain {
		attempts++
		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)

		var resp *core.AIResponse
		retryErr := resilience.Retry(callCtx, g.config.Retry, func() error {
			r, err := nc.client.GenerateResponse(callCtx, promptText, &core.AIOptions{Model: nc.alias})
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		cancel()
		latency := time.Since(start)

		if retryErr != nil {
			kind := classifyErr(callCtx, retryErr)
			lastErr = kind
			g.emitCallEvent(taskID, callID, nc.alias, purposeTag, false, latency, kind.Error())
			continue
		}

		parsed, validationErr := validateAgainstSchema(resp.Content, schema)
		g.costs.Record(purposeTag, resp.Usage, latency)
		if validationErr != nil {
			lastErr = fmt.Errorf("%w: %v", core.ErrLLMSchemaInvalid, validationErr)
			g.emitCallEvent(taskID, callID, nc.alias, purposeTag, false, latency, lastErr.Error())
			continue
		}

		g.emitCallEvent(taskID, callID, nc.alias, purposeTag, true, latency, "")
		return parsed, nil
	}

	return nil, &CallError{Template: templateName, Purpose: purposeTag, Attempts: attempts, Err: lastErr}
}

func classifyErr(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %v", core.ErrLLMTimeout, err)
	}
	return fmt.Errorf("%w: %v", core.ErrLLMUnavailable, err)
}

func (g *Gateway) emitCallEvent(taskID int, callID, model, purpose string, success bool, latency time.Duration, errMsg string) {
	if g.audit == nil {
		return
	}
	payload := map[string]any{
		"call_id":     callID,
		"model":       model,
		"purpose_tag": purpose,
		"success":     success,
		"latency_ms":  latency.Milliseconds(),
	}
	if errMsg != "" {
		payload["error"] = errMsg
	}
	g.audit.Emit(taskID, audit.ActionLLMCall, payload)
}

// validateAgainstSchema parses content as JSON and validates it against
// schema (when schema is non-nil). The parsed object is returned on
// success so callers never re-marshal.
func validateAgainstSchema(content string, schema map[string]interface{}) (map[string]interface{}, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	if schema == nil {
		return parsed, nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	docLoader := gojsonschema.NewStringLoader(content)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("schema violations: %v", result.Errors())
	}
	return parsed, nil
}
