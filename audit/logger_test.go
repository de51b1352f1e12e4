package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesOneJSONLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger := NewLogger(path, "run-1")

	logger.Emit(1, ActionTaskStart, map[string]any{"query": "test"})
	logger.Emit(0, ActionRunComplete, map[string]any{"result_count": 3})
	require.NoError(t, logger.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, ActionTaskStart, first.ActionType)
	assert.Equal(t, 1, first.TaskID)
}

func TestLoggerDegradesGracefullyWhenSinkUnopenable(t *testing.T) {
	// A path inside a nonexistent directory cannot be opened.
	logger := NewLogger(filepath.Join(t.TempDir(), "missing-dir", "audit.jsonl"), "run-2")

	assert.NotPanics(t, func() {
		logger.Emit(1, ActionTaskStart, map[string]any{"query": "test"})
	})
	require.NoError(t, logger.Close())
}

func TestLoggerEmitDoesNotBlockWhenBufferFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger := NewLogger(path, "run-3")
	defer logger.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < bufferSize*2; i++ {
			logger.Emit(1, ActionDedup, map[string]any{"i": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked past the buffered channel, expected drop-on-full behavior")
	}
}
