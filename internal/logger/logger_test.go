package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false // disable colors for easier assertions
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
		SetLevel("INFO")
		SetFormat("text")
	}

	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("InfoLevelFiltersDebug", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")

		Debug("debug message")
		Info("info message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.Contains(t, out, "info message")
	})

	t.Run("ErrorLevelShowsOnlyErrors", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("ERROR")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.NotContains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("LOUD")

		Info("still info")
		assert.Contains(t, buf.String(), "still info")
	})
}

func TestStructuredFields(t *testing.T) {
	t.Run("TextFormatRendersKeyValuePairs", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetFormat("text")
		Info("lock acquired", KeyOperationID, "1f2e3a4b", KeyKind, "rename")

		out := buf.String()
		assert.Contains(t, out, "lock acquired")
		assert.Contains(t, out, "operation_id=1f2e3a4b")
		assert.Contains(t, out, "kind=rename")
	})

	t.Run("JSONFormatProducesValidJSON", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetFormat("json")
		Info("repair complete", KeyRepaired, 3, KeySkipped, 1)

		line := strings.TrimSpace(buf.String())
		require.NotEmpty(t, line)

		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		assert.Equal(t, "repair complete", record["msg"])
		assert.Equal(t, float64(3), record["repaired"])
		assert.Equal(t, float64(1), record["skipped"])
	})

	t.Run("AttrConstructors", func(t *testing.T) {
		attr := OperationID("abc")
		assert.Equal(t, KeyOperationID, attr.Key)
		assert.Equal(t, "abc", attr.Value.String())

		errAttr := Err(errors.New("boom"))
		assert.Equal(t, KeyError, errAttr.Key)
		assert.Equal(t, "boom", errAttr.Value.String())

		assert.True(t, Err(nil).Equal(slog.Attr{}))
	})
}

func TestWith(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	l := With(KeyMode, "rollForward")
	l.Info("classified", KeyKind, "delete")

	out := buf.String()
	assert.Contains(t, out, "mode=rollForward")
	assert.Contains(t, out, "kind=delete")
}
