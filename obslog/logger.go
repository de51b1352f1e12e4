// Package obslog provides the engine's structured logger: JSON output in
// containerized environments, human-readable text locally, rate-limited
// error logging, and per-component tagging. It is a self-contained
// adaptation of the teacher's telemetry.TelemetryLogger, generalized from
// a single always-on service logger to one that any engine component can
// derive a component-scoped child from (core.ComponentAwareLogger).
package obslog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BrianMills2718/OSINT-sub007/core"
)

// Logger is the concrete structured logger. It implements
// core.ComponentAwareLogger.
type Logger struct {
	mu sync.RWMutex

	level     string
	format    string // "json" or "text"
	component string
	output    io.Writer

	errorLimiter *RateLimiter
}

var _ core.ComponentAwareLogger = (*Logger)(nil)

// Option configures a Logger at construction time.
type Option func(*Logger)

// WithFormat forces "json" or "text" output, overriding auto-detection.
func WithFormat(format string) Option {
	return func(l *Logger) { l.format = format }
}

// WithLevel sets the minimum level that will be emitted.
func WithLevel(level string) Option {
	return func(l *Logger) { l.level = strings.ToUpper(level) }
}

// WithOutput redirects log output (primarily for tests).
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.output = w }
}

// New builds a Logger. Format auto-detects JSON when
// KUBERNETES_SERVICE_HOST is set (matching the teacher's container
// auto-detection), otherwise defaults to text.
func New(component string, opts ...Option) *Logger {
	format := "text"
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		format = "json"
	}
	l := &Logger{
		level:        "INFO",
		format:       format,
		component:    component,
		output:       os.Stdout,
		errorLimiter: NewRateLimiter(time.Second),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithComponent returns a logger tagged with a different component name,
// sharing this logger's level/format/output configuration.
func (l *Logger) WithComponent(component string) core.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{
		level:        l.level,
		format:       l.format,
		component:    component,
		output:       l.output,
		errorLimiter: l.errorLimiter,
	}
}

func (l *Logger) Info(msg string, fields map[string]interface{})  { l.log("INFO", msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]interface{})  { l.log("WARN", msg, fields) }
func (l *Logger) Debug(msg string, fields map[string]interface{}) { l.log("DEBUG", msg, fields) }

func (l *Logger) Error(msg string, fields map[string]interface{}) {
	if !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, fields)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log("INFO", msg, withRequestID(ctx, fields))
}
func (l *Logger) WarnContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log("WARN", msg, withRequestID(ctx, fields))
}
func (l *Logger) DebugContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, withRequestID(ctx, fields))
}
func (l *Logger) ErrorContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, withRequestID(ctx, fields))
}

func (l *Logger) log(level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.shouldLog(level) {
		return
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	if l.format == "json" {
		l.logJSON(timestamp, level, msg, fields)
		return
	}
	l.logText(timestamp, level, msg, fields)
}

func (l *Logger) logJSON(timestamp, level, msg string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"component": l.component,
		"message":   msg,
	}
	for k, v := range fields {
		if _, reserved := entry[k]; !reserved {
			entry[k] = v
		}
	}
	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(l.output, string(data))
	}
}

func (l *Logger) logText(timestamp, level, msg string, fields map[string]interface{}) {
	var b strings.Builder
	for k, v := range fields {
		fmt.Fprintf(&b, "%s=%v ", k, v)
	}
	fmt.Fprintf(l.output, "%s [%s] [%s] %s %s\n", timestamp, level, l.component, msg, strings.TrimSpace(b.String()))
}

func (l *Logger) shouldLog(level string) bool {
	rank := map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}
	cur, ok1 := rank[l.level]
	msg, ok2 := rank[level]
	if !ok1 || !ok2 {
		return true
	}
	return msg >= cur
}

type requestIDKey struct{}

// WithRequestID attaches a request/run id to a context so loggers can
// correlate log lines across components without threading the id
// through every function signature.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func withRequestID(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	id, _ := ctx.Value(requestIDKey{}).(string)
	if id == "" {
		return fields
	}
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["request_id"] = id
	return out
}
