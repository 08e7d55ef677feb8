package scanning

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common/logger"
)

// sniffLen is the number of leading bytes inspected for a binary signature.
const sniffLen = 262

var errBinaryFile = errors.New("binary file")

// scanFile runs the detection pipeline over one file. Read failures and
// panics are logged and yield no findings.
func (s *Scanner) scanFile(ctx context.Context, path string) (findings []detection.Finding) {
	ctx, span := s.tracer.Start(ctx, "scanner.scan_file",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	logr := logger.NewLoggerContext(s.logger.With("path", path))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("file task panic: %v", r)
			logr.Error(ctx, "Recovered from panic while scanning file", "panic", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "file task panic")
			s.metrics.IncFileErrors(ctx)
			findings = nil
		}
		s.metrics.ObserveFileDuration(ctx, time.Since(start))
	}()

	content, err := s.readFile(path)
	if errors.Is(err, errBinaryFile) {
		logr.Debug(ctx, "Skipping binary file")
		s.metrics.IncFilesSkipped(ctx, "binary")
		return nil
	}
	if err != nil {
		logr.Warn(ctx, "Failed to read file", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read file")
		s.metrics.IncFileErrors(ctx)
		return nil
	}
	s.metrics.IncFilesScanned(ctx)

	var candidates, submitted int
detect:
	for _, d := range s.detectors {
		for c := range d.Detect(content) {
			candidates++
			s.metrics.IncCandidates(ctx, c.DetectorName())

			if c.Confidence() < s.cfg.ConfidenceThreshold {
				s.metrics.IncCandidatesFiltered(ctx, c.DetectorName())
				continue
			}
			if ctx.Err() != nil {
				break detect
			}

			submitted++
			verdict := s.classifier.Classify(ctx, c.Value(), c.Context())
			s.metrics.IncClassifications(ctx, verdict.IsSecret)
			if s.debug {
				logr.Info(ctx, "Candidate classified",
					"detector", c.DetectorName(),
					"category", c.Category(),
					"line", c.Line(),
					"confidence", c.Confidence(),
					"is_secret", verdict.IsSecret,
					"reason", verdict.Reason,
				)
			}
			if !verdict.IsSecret {
				continue
			}
			findings = append(findings, detection.NewFinding(path, c, verdict.Reason))
		}
	}

	span.SetAttributes(
		attribute.Int("candidates", candidates),
		attribute.Int("classified", submitted),
		attribute.Int("findings", len(findings)),
	)
	s.metrics.AddFindings(ctx, len(findings))
	return findings
}

// readFile returns the decoded content of path. Content that is not valid
// UTF-8 is decoded best effort; a leading byte order mark selects UTF-16.
func (s *Scanner) readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if s.cfg.SkipBinary && isBinary(data) {
		return "", errBinaryFile
	}
	return decode(data), nil
}

func isBinary(data []byte) bool {
	kind, err := filetype.Match(data[:min(len(data), sniffLen)])
	return err == nil && kind != filetype.Unknown
}

func decode(data []byte) string {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(out)
}
