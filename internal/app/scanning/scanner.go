// Package scanning coordinates a secret scan: it discovers files, runs the
// configured detectors over each one on a bounded worker pool, filters
// candidates by confidence, and asks a classifier to confirm the survivors.
package scanning

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/whisper/internal/config"
	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/internal/infra/detector"
	"github.com/ahrav/whisper/internal/infra/discovery"
	"github.com/ahrav/whisper/pkg/common/logger"
)

// Progress describes one completed file task.
type Progress struct {
	ScanID    string
	Path      string
	Completed int64
	Total     int64
	Findings  int
}

// ProgressReporter receives progress updates while a scan runs. FileScanned
// is called exactly once per discovered file, from the worker that processed
// it, so implementations must be safe for concurrent use.
type ProgressReporter interface {
	ScanStarted(ctx context.Context, scanID string, total int)
	FileScanned(ctx context.Context, p Progress)
}

type noopProgress struct{}

func (noopProgress) ScanStarted(context.Context, string, int) {}
func (noopProgress) FileScanned(context.Context, Progress)    {}

// Report is the outcome of a scan.
type Report struct {
	ScanID          string
	Root            string
	StartedAt       time.Time
	FinishedAt      time.Time
	FilesDiscovered int
	FilesScanned    int64
	Findings        []detection.Finding
}

// ScannerOption is a functional option for configuring the scanner.
type ScannerOption func(*Scanner)

// WithWorkers sets the worker pool size. Values below one are ignored.
func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithProgressReporter receives a progress update per completed file.
func WithProgressReporter(r ProgressReporter) ScannerOption {
	return func(s *Scanner) {
		if r != nil {
			s.progress = r
		}
	}
}

// WithRegistry builds detectors from r instead of the default registry.
func WithRegistry(r *detector.Registry) ScannerOption {
	return func(s *Scanner) { s.registry = r }
}

// WithMetrics records scan metrics.
func WithMetrics(m ScanMetrics) ScannerOption {
	return func(s *Scanner) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithDebug logs every classified candidate and its verdict.
func WithDebug(debug bool) ScannerOption {
	return func(s *Scanner) { s.debug = debug }
}

// Scanner runs scans against a fixed configuration. A Scanner may run
// several scans, sequentially or concurrently.
type Scanner struct {
	cfg        config.ScanConfig
	detectors  []detection.Detector
	discoverer *discovery.Discoverer
	classifier detection.Classifier

	registry *detector.Registry
	workers  int
	progress ProgressReporter
	debug    bool

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics ScanMetrics
}

// NewScanner builds the detectors and exclusion matchers described by cfg.
// Configuration problems are reported here, before any file is touched, and
// wrap config.ErrInvalidConfig.
func NewScanner(
	cfg config.ScanConfig,
	classifier detection.Classifier,
	log *logger.Logger,
	tracer trace.Tracer,
	opts ...ScannerOption,
) (*Scanner, error) {
	if log == nil {
		log = logger.Noop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("scanner")
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("%w: confidence threshold %v outside [0, 1]", config.ErrInvalidConfig, cfg.ConfidenceThreshold)
	}

	s := &Scanner{
		cfg:        cfg,
		classifier: classifier,
		registry:   detector.Default(),
		workers:    runtime.GOMAXPROCS(0),
		progress:   noopProgress{},
		logger:     log.With("component", "scanner"),
		tracer:     tracer,
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}

	detectors, err := s.registry.Build(cfg.Detectors, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build detectors: %w", err)
	}
	s.detectors = detectors

	s.discoverer, err = discovery.New(discovery.Options{
		ExcludedPaths:    cfg.ExcludedPaths,
		MaxFileSizeBytes: cfg.MaxFileSizeBytes,
		RespectGitignore: cfg.RespectGitignore,
	}, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	return s, nil
}

// Detectors returns the names of the detectors that will run, in order.
func (s *Scanner) Detectors() []string {
	names := make([]string, 0, len(s.detectors))
	for _, d := range s.detectors {
		names = append(names, d.Name())
	}
	return names
}

// Plan returns the files a scan of root would read.
func (s *Scanner) Plan(ctx context.Context, root string) ([]string, error) {
	seq, err := s.discoverer.Discover(ctx, root)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// Scan returns the confirmed findings under root. Findings from different
// files are in no particular order.
func (s *Scanner) Scan(ctx context.Context, root string) ([]detection.Finding, error) {
	report, err := s.Run(ctx, root)
	if report == nil {
		return nil, err
	}
	return report.Findings, err
}

// Run scans root and returns a report. When ctx is cancelled no further file
// tasks are started; the report holds what finished and ctx.Err() is
// returned alongside it.
func (s *Scanner) Run(ctx context.Context, root string) (*Report, error) {
	scanID := uuid.New().String()
	ctx, span := s.tracer.Start(ctx, "scanner.scan",
		trace.WithAttributes(
			attribute.String("scan_id", scanID),
			attribute.String("root", root),
			attribute.Int("workers", s.workers),
		))
	defer span.End()

	logr := logger.NewLoggerContext(s.logger.With("scan_id", scanID, "root", root))

	files, err := s.Plan(ctx, root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	report := &Report{
		ScanID:          scanID,
		Root:            root,
		StartedAt:       time.Now(),
		FilesDiscovered: len(files),
	}
	span.SetAttributes(attribute.Int("files_discovered", len(files)))
	logr.Add("files", len(files), "workers", s.workers)
	logr.Info(ctx, "Scan started")
	s.progress.ScanStarted(ctx, scanID, len(files))

	var (
		mu        sync.Mutex
		findings  []detection.Finding
		completed atomic.Int64
		total     = int64(len(files))
	)

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.metrics.AddActiveWorkers(ctx, 1)
			defer s.metrics.AddActiveWorkers(ctx, -1)

			found := s.scanFile(ctx, path)
			if len(found) > 0 {
				mu.Lock()
				findings = append(findings, found...)
				mu.Unlock()
			}

			s.progress.FileScanned(ctx, Progress{
				ScanID:    scanID,
				Path:      path,
				Completed: completed.Add(1),
				Total:     total,
				Findings:  len(found),
			})
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now()
	report.FilesScanned = completed.Load()
	report.Findings = findings

	span.SetAttributes(
		attribute.Int64("files_scanned", report.FilesScanned),
		attribute.Int("findings", len(findings)),
	)

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan cancelled")
		logr.Warn(ctx, "Scan cancelled", "files_scanned", report.FilesScanned, "findings", len(findings))
		return report, err
	}

	logr.Info(ctx, "Scan completed",
		"files_scanned", report.FilesScanned,
		"findings", len(findings),
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)
	return report, nil
}
