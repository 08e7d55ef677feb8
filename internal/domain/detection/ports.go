package detection

import (
	"context"
	"iter"
)

// Detector scans raw text and yields candidate secrets.
//
// Detect must be a pure function of its input and the detector's construction
// parameters: it performs no I/O, never panics on malformed input, and yields
// the same sequence for the same content. The sequence is single-pass; calling
// Detect again rescans.
type Detector interface {
	Name() string
	Detect(content string) iter.Seq[Candidate]
}

// Classifier adjudicates whether a candidate is a genuine secret.
// Implementations must be safe for concurrent use and must not return errors:
// transport and parse failures are reported as a negative verdict.
type Classifier interface {
	Classify(ctx context.Context, value, snippet string) ClassificationResult
}
