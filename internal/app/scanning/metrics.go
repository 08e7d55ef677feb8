package scanning

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ScanMetrics defines the metrics recorded while scanning.
type ScanMetrics interface {
	// File metrics
	IncFilesScanned(ctx context.Context)
	IncFilesSkipped(ctx context.Context, reason string)
	IncFileErrors(ctx context.Context)
	ObserveFileDuration(ctx context.Context, d time.Duration)

	// Detection metrics
	IncCandidates(ctx context.Context, detector string)
	IncCandidatesFiltered(ctx context.Context, detector string)
	IncClassifications(ctx context.Context, isSecret bool)
	AddFindings(ctx context.Context, n int)

	// Worker metrics
	AddActiveWorkers(ctx context.Context, delta int)
}

// scanMetrics implements ScanMetrics
type scanMetrics struct {
	filesScanned metric.Int64Counter
	filesSkipped metric.Int64Counter
	fileErrors   metric.Int64Counter
	fileDuration metric.Float64Histogram

	candidates         metric.Int64Counter
	candidatesFiltered metric.Int64Counter
	classifications    metric.Int64Counter
	findings           metric.Int64Counter

	activeWorkers metric.Int64UpDownCounter
}

const namespace = "whisper"

// NewScanMetrics creates the scan instruments on mp.
func NewScanMetrics(mp metric.MeterProvider) (ScanMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	s := new(scanMetrics)
	var err error

	if s.filesScanned, err = meter.Int64Counter(
		"files_scanned_total",
		metric.WithDescription("Total number of files run through the detectors"),
	); err != nil {
		return nil, err
	}

	if s.filesSkipped, err = meter.Int64Counter(
		"files_skipped_total",
		metric.WithDescription("Total number of discovered files skipped before detection"),
	); err != nil {
		return nil, err
	}

	if s.fileErrors, err = meter.Int64Counter(
		"file_errors_total",
		metric.WithDescription("Total number of files that could not be scanned"),
	); err != nil {
		return nil, err
	}

	if s.fileDuration, err = meter.Float64Histogram(
		"file_scan_duration_seconds",
		metric.WithDescription("Time spent scanning a single file, classification included"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if s.candidates, err = meter.Int64Counter(
		"candidates_total",
		metric.WithDescription("Total number of candidates produced by detectors"),
	); err != nil {
		return nil, err
	}

	if s.candidatesFiltered, err = meter.Int64Counter(
		"candidates_filtered_total",
		metric.WithDescription("Total number of candidates dropped by the confidence threshold"),
	); err != nil {
		return nil, err
	}

	if s.classifications, err = meter.Int64Counter(
		"classifications_total",
		metric.WithDescription("Total number of classifier verdicts"),
	); err != nil {
		return nil, err
	}

	if s.findings, err = meter.Int64Counter(
		"findings_total",
		metric.WithDescription("Total number of confirmed findings"),
	); err != nil {
		return nil, err
	}

	if s.activeWorkers, err = meter.Int64UpDownCounter(
		"active_workers",
		metric.WithDescription("Number of file tasks currently running"),
	); err != nil {
		return nil, err
	}

	return s, nil
}

func (m *scanMetrics) IncFilesScanned(ctx context.Context) { m.filesScanned.Add(ctx, 1) }

func (m *scanMetrics) IncFilesSkipped(ctx context.Context, reason string) {
	m.filesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *scanMetrics) IncFileErrors(ctx context.Context) { m.fileErrors.Add(ctx, 1) }

func (m *scanMetrics) ObserveFileDuration(ctx context.Context, d time.Duration) {
	m.fileDuration.Record(ctx, d.Seconds())
}

const detectorKey = "detector"

func (m *scanMetrics) IncCandidates(ctx context.Context, detector string) {
	m.candidates.Add(ctx, 1, metric.WithAttributes(attribute.String(detectorKey, detector)))
}

func (m *scanMetrics) IncCandidatesFiltered(ctx context.Context, detector string) {
	m.candidatesFiltered.Add(ctx, 1, metric.WithAttributes(attribute.String(detectorKey, detector)))
}

func (m *scanMetrics) IncClassifications(ctx context.Context, isSecret bool) {
	m.classifications.Add(ctx, 1, metric.WithAttributes(attribute.Bool("is_secret", isSecret)))
}

func (m *scanMetrics) AddFindings(ctx context.Context, n int) {
	if n > 0 {
		m.findings.Add(ctx, int64(n))
	}
}

func (m *scanMetrics) AddActiveWorkers(ctx context.Context, delta int) {
	m.activeWorkers.Add(ctx, int64(delta))
}

type noopMetrics struct{}

func (noopMetrics) IncFilesScanned(context.Context)                    {}
func (noopMetrics) IncFilesSkipped(context.Context, string)            {}
func (noopMetrics) IncFileErrors(context.Context)                      {}
func (noopMetrics) ObserveFileDuration(context.Context, time.Duration) {}
func (noopMetrics) IncCandidates(context.Context, string)              {}
func (noopMetrics) IncCandidatesFiltered(context.Context, string)      {}
func (noopMetrics) IncClassifications(context.Context, bool)           {}
func (noopMetrics) AddFindings(context.Context, int)                   {}
func (noopMetrics) AddActiveWorkers(context.Context, int)              {}
