package progressreporter

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/whisper/internal/app/scanning"
	"github.com/ahrav/whisper/pkg/common/logger"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) progressPercents(t *testing.T) []int {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []int
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["msg"] == "Scan progress" {
			out = append(out, int(rec["percent"].(float64)))
		}
	}
	return out
}

func TestLogProgressReporter_Milestones(t *testing.T) {
	tests := []struct {
		name  string
		step  int
		total int64
		want  []int
	}{
		{"ten percent steps", 10, 20, []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}},
		{"quarter steps", 25, 8, []int{25, 50, 75, 100}},
		{"fewer files than steps", 10, 3, []int{30, 60, 100}},
		{"invalid step defaults to ten", 0, 10, []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf syncBuffer
			r := New(logger.New(&buf, logger.LevelInfo, "test", nil), tt.step)
			ctx := context.Background()

			r.ScanStarted(ctx, "scan-1", int(tt.total))
			for i := int64(1); i <= tt.total; i++ {
				r.FileScanned(ctx, scanning.Progress{ScanID: "scan-1", Path: "f", Completed: i, Total: tt.total})
			}

			assert.Equal(t, tt.want, buf.progressPercents(t))
		})
	}
}

func TestLogProgressReporter_Concurrent(t *testing.T) {
	var buf syncBuffer
	r := New(logger.New(&buf, logger.LevelInfo, "test", nil), 10)
	ctx := context.Background()

	const total = 100
	r.ScanStarted(ctx, "scan-1", total)

	var wg sync.WaitGroup
	for i := int64(1); i <= total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.FileScanned(ctx, scanning.Progress{ScanID: "scan-1", Completed: i, Total: total})
		}()
	}
	wg.Wait()

	got := buf.progressPercents(t)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 10)
	seen := map[int]bool{}
	for _, p := range got {
		assert.False(t, seen[p], "milestone %d logged twice", p)
		seen[p] = true
	}
}

func TestLogProgressReporter_ForgetsFinishedScans(t *testing.T) {
	var buf syncBuffer
	r := New(logger.New(&buf, logger.LevelInfo, "test", nil), 50)
	ctx := context.Background()

	for _, id := range []string{"scan-1", "scan-2", "scan-3"} {
		r.ScanStarted(ctx, id, 2)
		r.FileScanned(ctx, scanning.Progress{ScanID: id, Completed: 1, Total: 2})
		r.FileScanned(ctx, scanning.Progress{ScanID: id, Completed: 2, Total: 2})
	}
	r.ScanStarted(ctx, "empty", 0)

	// A late update for a finished scan is dropped.
	r.FileScanned(ctx, scanning.Progress{ScanID: "scan-1", Completed: 1, Total: 2})

	r.mu.Lock()
	assert.Empty(t, r.lastStep)
	r.mu.Unlock()
	assert.Equal(t, []int{50, 100, 50, 100, 50, 100}, buf.progressPercents(t))
}
