// Package engine ties the whole run together: typed configuration,
// wiring of every component, and the top-level Execute entrypoint that
// writes the persisted run artifacts.
//
// Config follows the teacher's core/config.go three-layer priority
// (defaults < environment variables < functional options) and
// fail-fast-on-bad-config principle, generalized from the teacher's
// HTTP/discovery/telemetry config groups to the run/llm/task/hypothesis/
// manager/follow_up/integration groups of
package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BrianMills2718/OSINT-sub007/core"
)

// Config is the fully resolved run configuration.
type Config struct {
	Run         RunConfig
	LLM         LLMConfig
	Task        TaskConfig
	Hypothesis  HypothesisConfig
	Manager     ManagerConfig
	FollowUp    FollowUpConfig
	Integration map[string]IntegrationSourceConfig

	OutputRoot string
	logger     core.Logger
}

type RunConfig struct {
	MaxTasks          int `env:"RESEARCH_MAX_TASKS" default:"25" yaml:"max_tasks"`
	MaxTimeMinutes    int `env:"RESEARCH_MAX_TIME_MINUTES" default:"60" yaml:"max_time_minutes"`
	MinResultsPerTask int `env:"RESEARCH_MIN_RESULTS_PER_TASK" default:"1" yaml:"min_results_per_task"`
	MaxRetriesPerTask int `env:"RESEARCH_MAX_RETRIES_PER_TASK" default:"2" yaml:"max_retries_per_task"`
}

type LLMConfig struct {
	RequestTimeoutSeconds int      `env:"RESEARCH_LLM_REQUEST_TIMEOUT_SECONDS" default:"180" yaml:"request_timeout_seconds"`
	FallbackModels        []string `env:"RESEARCH_LLM_FALLBACK_MODELS" yaml:"fallback_models"`
}

type TaskConfig struct {
	TimeoutSeconds int `env:"RESEARCH_TASK_TIMEOUT_SECONDS" default:"1800" yaml:"timeout_seconds"`
}

// HypothesisMode is the closed set of hypothesis-subsystem modes.
type HypothesisMode string

const (
	HypothesisModeOff       HypothesisMode = "off"
	HypothesisModePlanning  HypothesisMode = "planning"
	HypothesisModeExecution HypothesisMode = "execution"
)

type HypothesisConfig struct {
	Mode                 HypothesisMode `env:"RESEARCH_HYPOTHESIS_MODE" default:"execution" yaml:"mode"`
	CoverageMode         bool           `env:"RESEARCH_HYPOTHESIS_COVERAGE_MODE" default:"true" yaml:"coverage_mode"`
	MaxHypothesesPerTask int            `env:"RESEARCH_MAX_HYPOTHESES_PER_TASK" default:"5" yaml:"max_hypotheses_per_task"`
	MaxSourcesFanout     int            `env:"RESEARCH_MAX_SOURCES_FANOUT" default:"5" yaml:"max_sources_fanout"`
}

type ManagerConfig struct {
	Enabled                       bool `env:"RESEARCH_MANAGER_ENABLED" default:"true" yaml:"enabled"`
	ReprioritizeAfterTask         bool `env:"RESEARCH_REPRIORITIZE_AFTER_TASK" default:"true" yaml:"reprioritize_after_task"`
	SaturationDetection           bool `env:"RESEARCH_SATURATION_DETECTION" default:"true" yaml:"saturation_detection"`
	SaturationCheckInterval       int  `env:"RESEARCH_SATURATION_CHECK_INTERVAL" default:"3" yaml:"saturation_check_interval"`
	SaturationConfidenceThreshold int  `env:"RESEARCH_SATURATION_CONFIDENCE_THRESHOLD" default:"70" yaml:"saturation_confidence_threshold"`
	AllowSaturationStop           bool `env:"RESEARCH_ALLOW_SATURATION_STOP" default:"true" yaml:"allow_saturation_stop"`
}

type FollowUpConfig struct {
	// MaxFollowUpsPerTask <= 0 means "null" / unbounded
	MaxFollowUpsPerTask int `env:"RESEARCH_MAX_FOLLOW_UPS_PER_TASK" default:"3" yaml:"max_follow_ups_per_task"`
}

type IntegrationSourceConfig struct {
	Enabled        bool   `yaml:"enabled"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			MaxTasks:          25,
			MaxTimeMinutes:    60,
			MinResultsPerTask: 1,
			MaxRetriesPerTask: 2,
		},
		LLM: LLMConfig{
			RequestTimeoutSeconds: 180,
		},
		Task: TaskConfig{
			TimeoutSeconds: 1800,
		},
		Hypothesis: HypothesisConfig{
			Mode:                 HypothesisModeExecution,
			CoverageMode:         true, //  Open Question: hypothesis-only mode defaults to coverage_mode=true; the runner does not read it and always assesses coverage
			MaxHypothesesPerTask: 5,
			MaxSourcesFanout:     5,
		},
		Manager: ManagerConfig{
			Enabled:                       true,
			ReprioritizeAfterTask:         true,
			SaturationDetection:           true,
			SaturationCheckInterval:       3,
			SaturationConfidenceThreshold: 70,
			AllowSaturationStop:           true,
		},
		FollowUp: FollowUpConfig{
			MaxFollowUpsPerTask: 3,
		},
		Integration: make(map[string]IntegrationSourceConfig),
		OutputRoot:  "./runs",
	}
}

// Option mutates a Config during construction, matching the teacher's
// functional-options shape (core/config.go's Option type) — applied
// after environment resolution so options take final priority.
type Option func(*Config) error

func WithOutputRoot(path string) Option {
	return func(c *Config) error {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("%w: output root must not be empty", core.ErrConfigInvalid)
		}
		c.OutputRoot = path
		return nil
	}
}

func WithMaxTasks(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: max_tasks must be positive, got %d", core.ErrConfigInvalid, n)
		}
		c.Run.MaxTasks = n
		return nil
	}
}

func WithMaxTimeMinutes(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: max_time_minutes must be positive, got %d", core.ErrConfigInvalid, n)
		}
		c.Run.MaxTimeMinutes = n
		return nil
	}
}

func WithHypothesisMode(mode HypothesisMode) Option {
	return func(c *Config) error {
		switch mode {
		case HypothesisModeOff, HypothesisModePlanning, HypothesisModeExecution:
			c.Hypothesis.Mode = mode
			return nil
		default:
			return fmt.Errorf("%w: unknown hypothesis mode %q", core.ErrConfigInvalid, mode)
		}
	}
}

func WithFallbackModels(models []string) Option {
	return func(c *Config) error {
		c.LLM.FallbackModels = models
		return nil
	}
}

// fileOverlay mirrors Config's YAML shape. Only the fields a deployment
// actually wants to override belong in the file; yaml.Decoder's strict
// mode (below) rejects anything else at startup rather than silently
// ignoring a typo'd key.
type fileOverlay struct {
	Run         *RunConfig                         `yaml:"run"`
	LLM         *LLMConfig                         `yaml:"llm"`
	Task        *TaskConfig                        `yaml:"task"`
	Hypothesis  *HypothesisConfig                  `yaml:"hypothesis"`
	Manager     *ManagerConfig                     `yaml:"manager"`
	FollowUp    *FollowUpConfig                    `yaml:"follow_up"`
	OutputRoot  *string                            `yaml:"output_root"`
	Integration map[string]IntegrationSourceConfig `yaml:"integration"`
}

// WithConfigFile loads a YAML overlay: decoding uses strict
// known-fields checking, so a typo'd or renamed key fails NewConfig
// immediately with ErrConfigInvalid instead of being silently ignored.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("%w: open config file: %v", core.ErrConfigInvalid, err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)

		// Each section decodes on top of a copy of its current value, so a
		// key left out of a present section keeps its default/env value.
		run, llmCfg, task, hyp, mgr, followUp, outputRoot := c.Run, c.LLM, c.Task, c.Hypothesis, c.Manager, c.FollowUp, c.OutputRoot
		overlay := fileOverlay{Run: &run, LLM: &llmCfg, Task: &task, Hypothesis: &hyp, Manager: &mgr, FollowUp: &followUp, OutputRoot: &outputRoot}
		if err := dec.Decode(&overlay); err != nil {
			return fmt.Errorf("%w: parse config file %s: %v", core.ErrConfigInvalid, path, err)
		}

		if overlay.Run != nil {
			c.Run = *overlay.Run
		}
		if overlay.LLM != nil {
			c.LLM = *overlay.LLM
		}
		if overlay.Task != nil {
			c.Task = *overlay.Task
		}
		if overlay.Hypothesis != nil {
			c.Hypothesis = *overlay.Hypothesis
		}
		if overlay.Manager != nil {
			c.Manager = *overlay.Manager
		}
		if overlay.FollowUp != nil {
			c.FollowUp = *overlay.FollowUp
		}
		if overlay.OutputRoot != nil {
			c.OutputRoot = *overlay.OutputRoot
		}
		for id, sc := range overlay.Integration {
			c.Integration[id] = sc
		}
		return nil
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// NewConfig builds a Config from defaults, then environment variables,
// then opts (highest priority), then validates — exactly the teacher's
// three-layer precedence in core/config.go's NewConfig.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.logger == nil {
		cfg.logger = core.NoOpLogger{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv("RESEARCH_MAX_TASKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RESEARCH_MAX_TASKS: %v", core.ErrConfigInvalid, err)
		}
		c.Run.MaxTasks = n
	}
	if v := os.Getenv("RESEARCH_MAX_TIME_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RESEARCH_MAX_TIME_MINUTES: %v", core.ErrConfigInvalid, err)
		}
		c.Run.MaxTimeMinutes = n
	}
	if v := os.Getenv("RESEARCH_LLM_REQUEST_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RESEARCH_LLM_REQUEST_TIMEOUT_SECONDS: %v", core.ErrConfigInvalid, err)
		}
		c.LLM.RequestTimeoutSeconds = n
	}
	if v := os.Getenv("RESEARCH_LLM_FALLBACK_MODELS"); v != "" {
		c.LLM.FallbackModels = splitAndTrim(v)
	}
	if v := os.Getenv("RESEARCH_TASK_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RESEARCH_TASK_TIMEOUT_SECONDS: %v", core.ErrConfigInvalid, err)
		}
		c.Task.TimeoutSeconds = n
	}
	if v := os.Getenv("RESEARCH_HYPOTHESIS_MODE"); v != "" {
		c.Hypothesis.Mode = HypothesisMode(v)
	}
	if v := os.Getenv("RESEARCH_MAX_HYPOTHESES_PER_TASK"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RESEARCH_MAX_HYPOTHESES_PER_TASK: %v", core.ErrConfigInvalid, err)
		}
		c.Hypothesis.MaxHypothesesPerTask = n
	}
	if v := os.Getenv("RESEARCH_MAX_SOURCES_FANOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RESEARCH_MAX_SOURCES_FANOUT: %v", core.ErrConfigInvalid, err)
		}
		c.Hypothesis.MaxSourcesFanout = n
	}
	if v := os.Getenv("RESEARCH_OUTPUT_ROOT"); v != "" {
		c.OutputRoot = v
	}
	return nil
}

// Validate enforces the closed-set / range rules documented for each
// option, failing fast with ConfigInvalid on the first violation.
func (c *Config) Validate() error {
	if c.Run.MaxTasks <= 0 {
		return fmt.Errorf("%w: run.max_tasks must be positive", core.ErrConfigInvalid)
	}
	if c.Run.MaxTimeMinutes <= 0 {
		return fmt.Errorf("%w: run.max_time_minutes must be positive", core.ErrConfigInvalid)
	}
	if c.Run.MaxRetriesPerTask < 0 {
		return fmt.Errorf("%w: run.max_retries_per_task must be non-negative", core.ErrConfigInvalid)
	}
	switch c.Hypothesis.Mode {
	case HypothesisModeOff, HypothesisModePlanning, HypothesisModeExecution:
	default:
		return fmt.Errorf("%w: hypothesis.mode %q is not one of off|planning|execution", core.ErrConfigInvalid, c.Hypothesis.Mode)
	}
	if c.Hypothesis.MaxHypothesesPerTask <= 0 {
		return fmt.Errorf("%w: hypothesis.max_hypotheses_per_task must be positive", core.ErrConfigInvalid)
	}
	if c.Hypothesis.MaxSourcesFanout <= 0 {
		return fmt.Errorf("%w: hypothesis.max_sources_fanout must be positive", core.ErrConfigInvalid)
	}
	if c.Manager.SaturationConfidenceThreshold < 0 || c.Manager.SaturationConfidenceThreshold > 100 {
		return fmt.Errorf("%w: manager.saturation_confidence_threshold must be 0-100", core.ErrConfigInvalid)
	}
	if strings.TrimSpace(c.OutputRoot) == "" {
		return fmt.Errorf("%w: output root must not be empty", core.ErrConfigInvalid)
	}
	return nil
}

// LLMRequestTimeout is a convenience accessor returning the configured
// per-call timeout as a time.Duration.
func (c *Config) LLMRequestTimeout() time.Duration {
	return time.Duration(c.LLM.RequestTimeoutSeconds) * time.Second
}

// TaskSoftTimeout is a convenience accessor for the per-task deadline.
func (c *Config) TaskSoftTimeout() time.Duration {
	return time.Duration(c.Task.TimeoutSeconds) * time.Second
}

// MaxRunTime is a convenience accessor for the per-run deadline.
func (c *Config) MaxRunTime() time.Duration {
	return time.Duration(c.Run.MaxTimeMinutes) * time.Minute
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
