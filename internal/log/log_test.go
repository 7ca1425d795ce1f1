package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo})

	logger.Info("hello", "key", "value")
	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "key=value")
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo, JSON: true})

	logger.Info("hello", "key", "value")
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"), "JSON handler should emit JSON lines, got %q", out)
	assert.Contains(t, out, `"key":"value"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})

	logger.Debug("quiet")
	logger.Info("also quiet")
	require.Empty(t, buf.String())

	logger.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestNewNopDiscardsEverything(t *testing.T) {
	logger := NewNop()
	// Must not panic and must accept any level.
	logger.Debug("a")
	logger.Info("b")
	logger.Error("c")
}
