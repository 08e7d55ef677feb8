// Package progressreporter provides scanning.ProgressReporter implementations
// that surface scan progress through structured logs and trace events.
package progressreporter

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/whisper/internal/app/scanning"
	"github.com/ahrav/whisper/pkg/common/logger"
)

var _ scanning.ProgressReporter = (*LogProgressReporter)(nil)

// LogProgressReporter logs every completed file at debug level and a summary
// line each time another step percent of the scan completes.
type LogProgressReporter struct {
	step int

	mu       sync.Mutex
	lastStep map[string]int

	logger *logger.Logger
}

// New creates a LogProgressReporter that logs a summary every step percent.
// Values outside (0, 100] default to 10.
func New(log *logger.Logger, step int) *LogProgressReporter {
	if log == nil {
		log = logger.Noop()
	}
	if step <= 0 || step > 100 {
		step = 10
	}
	return &LogProgressReporter{
		step:     step,
		lastStep: make(map[string]int),
		logger:   log.With("component", "progress_reporter"),
	}
}

// ScanStarted implements scanning.ProgressReporter.
func (r *LogProgressReporter) ScanStarted(ctx context.Context, scanID string, total int) {
	if total > 0 {
		r.mu.Lock()
		r.lastStep[scanID] = 0
		r.mu.Unlock()
	}

	trace.SpanFromContext(ctx).AddEvent("scan_started", trace.WithAttributes(
		attribute.String("scan_id", scanID),
		attribute.Int("total_files", total),
	))
	r.logger.Debug(ctx, "Scan progress started", "scan_id", scanID, "total", total)
}

// FileScanned implements scanning.ProgressReporter.
func (r *LogProgressReporter) FileScanned(ctx context.Context, p scanning.Progress) {
	r.logger.Debug(ctx, "File scanned",
		"scan_id", p.ScanID,
		"path", p.Path,
		"findings", p.Findings,
		"completed", p.Completed,
		"total", p.Total,
	)

	if p.Total <= 0 {
		return
	}
	percent := int(p.Completed * 100 / p.Total)
	milestone := percent / r.step * r.step

	r.mu.Lock()
	last, ok := r.lastStep[p.ScanID]
	if !ok || milestone <= last {
		r.mu.Unlock()
		return
	}
	if p.Completed >= p.Total {
		// Later out-of-order updates for a finished scan find no entry.
		delete(r.lastStep, p.ScanID)
	} else {
		r.lastStep[p.ScanID] = milestone
	}
	r.mu.Unlock()

	r.logger.Info(ctx, "Scan progress",
		"scan_id", p.ScanID,
		"percent", milestone,
		"completed", p.Completed,
		"total", p.Total,
	)
}
