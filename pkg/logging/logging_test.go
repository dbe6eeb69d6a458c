package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "WARN")

	logger.Info("hidden")
	logger.Warn("shown", "collection", "snippets")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "collection=snippets")
}

func TestOpen_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ops.log")

	logger, closer, err := Open(path, "INFO")
	require.NoError(t, err)
	logger.Info("first")
	require.NoError(t, closer.Close())

	logger, closer, err = Open(path, "INFO")
	require.NoError(t, err)
	logger.Info("second")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Less(t, strings.Index(out, "msg=first"), strings.Index(out, "msg=second"))
	assert.Equal(t, 2, strings.Count(out, "log opened"))
}

func TestOpen_CopiesToExtraWriters(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "ops.log")

	logger, closer, err := Open(path, "DEBUG", &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("probe")
	assert.Contains(t, buf.String(), "msg=probe")
}
