package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BrianMills2718/OSINT-sub007/audit"
	"github.com/BrianMills2718/OSINT-sub007/core"
	"github.com/BrianMills2718/OSINT-sub007/coverage"
	"github.com/BrianMills2718/OSINT-sub007/hypothesis"
	"github.com/BrianMills2718/OSINT-sub007/integration"
	"github.com/BrianMills2718/OSINT-sub007/llm"
	"github.com/BrianMills2718/OSINT-sub007/manager"
	"github.com/BrianMills2718/OSINT-sub007/prompt"
	"github.com/BrianMills2718/OSINT-sub007/runner"
	"github.com/BrianMills2718/OSINT-sub007/store"
	"github.com/BrianMills2718/OSINT-sub007/synth"
)

// ModelChain names the AI clients a Run wires into the LLM Gateway: a
// primary and an ordered list of fallbacks, each tagged with the alias
// the `fallback_models` config names.
type ModelChain struct {
	PrimaryAlias string
	Primary      core.AIClient
	Fallbacks    []NamedClient
}

// NamedClient pairs a fallback alias with its client.
type NamedClient struct {
	Alias  string
	Client core.AIClient
}

// Artifacts is everything Execute writes under the run's output
// directory.
type Artifacts struct {
	RunID      string
	Dir        string
	ResultCount int
	Degraded   bool
}

// Execute runs one full research run end to end: decomposition through
// synthesis, writing metadata.json / results.json / report.md /
// execution_log.jsonl under cfg.OutputRoot/<run id>/.
func Execute(ctx context.Context, cfg *Config, question string, models ModelChain, registry *integration.Registry, logger core.Logger) (*Artifacts, error) {
	if logger == nil {
		logger = core.NoOpLogger{}
	}

	runID := core.RunID(time.Now(), question)
	outputDir := filepath.Join(cfg.OutputRoot, runID)
	if err := os.MkdirAll(filepath.Join(outputDir, "raw"), 0o755); err != nil {
		return nil, fmt.Errorf("engine: create output dir: %w", err)
	}

	auditLogger := audit.NewLogger(filepath.Join(outputDir, "execution_log.jsonl"), runID)
	defer auditLogger.Close()

	renderer := prompt.NewRenderer()
	if err := renderer.LoadEmbedded(); err != nil {
		return nil, fmt.Errorf("engine: load prompt templates: %w", err)
	}

	gateway := llm.New(renderer, models.PrimaryAlias, models.Primary, &llm.Config{
		RequestTimeout: cfg.LLMRequestTimeout(),
	}, auditLogger, logger)
	for _, fb := range orderedFallbacks(cfg.LLM.FallbackModels, models.Fallbacks) {
		gateway.WithFallback(fb.Alias, fb.Client)
	}

	resultStore := store.New()
	registry.WarmUp()

	hypothesisExecutor := hypothesis.New(gateway, registry, resultStore, auditLogger, logger, cfg.Hypothesis.MaxSourcesFanout)
	coverageAssessor := coverage.New(gateway, auditLogger)
	taskRunner := runner.New(gateway, hypothesisExecutor, coverageAssessor, resultStore, auditLogger, logger, runner.Config{
		MaxHypotheses:  cfg.Hypothesis.MaxHypothesesPerTask,
		MaxRetries:     cfg.Run.MaxRetriesPerTask,
		HypothesisMode: runner.HypothesisMode(cfg.Hypothesis.Mode),
	}, registry.DisplayNames())
	mgr := manager.New(gateway, taskRunner, auditLogger, logger, manager.Config{
		MaxTasks:                      cfg.Run.MaxTasks,
		ReprioritizeAfterTask:         cfg.Manager.ReprioritizeAfterTask,
		SaturationDetectionEnabled:    cfg.Manager.SaturationDetection,
		SaturationCheckInterval:       cfg.Manager.SaturationCheckInterval,
		SaturationConfidenceThreshold: cfg.Manager.SaturationConfidenceThreshold,
		AllowSaturationStop:           cfg.Manager.AllowSaturationStop,
		MaxFollowUpsPerTask:           cfg.FollowUp.MaxFollowUpsPerTask,
		MinSeedTasks:                  3,
		MaxSeedTasks:                  7,
	})
	synthesizer := synth.New(gateway, auditLogger)

	run := core.NewRun(runID, question, outputDir, time.Now())
	runClock := core.NewClock()
	budget := core.NewBudget(runClock, cfg.MaxRunTime(), cfg.TaskSoftTimeout())

	auditLogger.Emit(0, audit.ActionRunStart, map[string]any{"question": question, "run_id": runID})

	if err := mgr.Execute(ctx, question, run, budget); err != nil {
		logger.Error("manager execution returned an error", map[string]interface{}{"error": err.Error()})
	}

	report := synthesizer.Synthesize(ctx, question, run, resultStore)

	if err := writeArtifacts(outputDir, run, resultStore, report, gateway); err != nil {
		return nil, fmt.Errorf("engine: write artifacts: %w", err)
	}

	auditLogger.Emit(0, audit.ActionRunComplete, map[string]any{
		"result_count": resultStore.Count(),
		"task_count":   run.TaskCount(),
		"degraded":     report.Degraded,
	})

	return &Artifacts{RunID: runID, Dir: outputDir, ResultCount: resultStore.Count(), Degraded: report.Degraded}, nil
}

// orderedFallbacks applies cfg.llm.fallback_models: when the config names
// an ordered alias list, the wired fallback chain is filtered down to
// (and reordered to match) those aliases, so the config field actually
// governs which of the caller's clients the Gateway tries and in what
// order. An empty list leaves the caller's ModelChain untouched.
func orderedFallbacks(aliasOrder []string, available []NamedClient) []NamedClient {
	if len(aliasOrder) == 0 {
		return available
	}
	byAlias := make(map[string]NamedClient, len(available))
	for _, nc := range available {
		byAlias[nc.Alias] = nc
	}
	out := make([]NamedClient, 0, len(aliasOrder))
	for _, alias := range aliasOrder {
		if nc, ok := byAlias[alias]; ok {
			out = append(out, nc)
		}
	}
	return out
}

func writeArtifacts(outputDir string, run *core.Run, resultStore *store.Store, report synth.Report, gateway *llm.Gateway) error {
	if err := os.WriteFile(filepath.Join(outputDir, "report.md"), []byte(report.Markdown), 0o644); err != nil {
		return err
	}

	resultsPayload := resultStore.Results()
	resultsBytes, err := json.MarshalIndent(resultsPayload, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "results.json"), resultsBytes, 0o644); err != nil {
		return err
	}

	coverageByTask := make(map[int][]core.CoverageDecision)
	order := make([]int, 0)
	tasksExecuted := 0
	for _, t := range run.Tasks() {
		snap := t.ToSnapshot()
		coverageByTask[snap.ID] = t.CoverageDecisionsSnapshot()
		order = append(order, snap.ID)
		if snap.State == core.TaskCompleted || snap.State == core.TaskFailed {
			tasksExecuted++
		}
	}

	metadata := map[string]interface{}{
		"run_id":                  run.ID,
		"question":                run.OriginalQuestion,
		"start_time":              run.StartTime,
		"result_count":            resultStore.Count(),
		"entity_count":            len(resultStore.EntityNames()),
		"task_count":              run.TaskCount(),
		"tasks_executed":          tasksExecuted,
		"coverage_decisions_by_task": coverageByTask,
		"task_execution_order":   order,
		"cost_by_purpose":         gateway.Costs(),
		"report_degraded":         report.Degraded,
	}
	metaBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, "metadata.json"), metaBytes, 0o644)
}
