package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf)

	logger.Info("server_start", map[string]any{"addr": ":8080"})
	logger.Warn("login_locked", map[string]any{"username": "alice"})
	logger.Error("ping_database_failed", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "server_start", entries[0]["msg"])
	assert.Equal(t, ":8080", entries[0]["addr"])
	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, "ERROR", entries[2]["level"])
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() { logger.Info("ignored", nil) })
}

func TestInitSentry_EmptyDSN(t *testing.T) {
	require.NoError(t, InitSentry("", "test"))
	assert.NotPanics(t, func() { CaptureError(nil) })
}
