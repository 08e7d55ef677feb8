package logger

import (
	"bytes"
	"context"
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
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	traceID := func(context.Context) string { return "abc123" }
	log := New(&buf, LevelInfo, "whisper", traceID)

	log.Debug(context.Background(), "hidden")
	log.With("component", "scanner").Info(context.Background(), "scan started", "root", "/tmp")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)

	rec := lines[0]
	assert.Equal(t, "scan started", rec["msg"])
	assert.Equal(t, "whisper", rec["service"])
	assert.Equal(t, "scanner", rec["component"])
	assert.Equal(t, "/tmp", rec["root"])
	assert.Equal(t, "abc123", rec["trace_id"])
	assert.Contains(t, rec["file"], "logger_test.go")
}

func TestLogger_Events(t *testing.T) {
	var buf bytes.Buffer
	var got []Record
	events := Events{
		Error: func(_ context.Context, r Record) { got = append(got, r) },
	}
	log := NewWithEvents(&buf, LevelDebug, "test", nil, events)

	log.Info(context.Background(), "fine")
	log.Error(context.Background(), "broken", "path", "a.txt")

	require.Len(t, got, 1)
	assert.Equal(t, "broken", got[0].Message)
	assert.Equal(t, LevelError, got[0].Level)
	assert.Equal(t, "a.txt", got[0].Attributes["path"])
}

func TestLogger_Metadata(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithMetadata(&buf, LevelDebug, "test", nil, Events{}, map[string]string{"hostname": "box"})

	log.Warn(context.Background(), "careful")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "box", lines[0]["hostname"])
	assert.Equal(t, "WARN", lines[0]["level"])
}

func TestLoggerContext_Add(t *testing.T) {
	var buf bytes.Buffer
	lc := NewLoggerContext(New(&buf, LevelDebug, "test", nil))

	lc.Add("path", "a.go")
	lc.Info(context.Background(), "first")
	lc.Add("line", 3)
	lc.Debug(context.Background(), "second", "extra", true)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "a.go", lines[0]["path"])
	assert.NotContains(t, lines[0], "line")
	assert.Equal(t, float64(3), lines[1]["line"])
	assert.Equal(t, true, lines[1]["extra"])
}

func TestNoop(t *testing.T) {
	log := Noop().With("k", "v")
	assert.NotPanics(t, func() {
		log.Error(context.Background(), "dropped")
		NewLoggerContext(log).Info(context.Background(), "dropped")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"nonsense", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
