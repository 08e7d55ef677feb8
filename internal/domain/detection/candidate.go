// Package detection holds the domain model shared by detectors, the classifier
// and the scan orchestrator: candidates produced by heuristics, verdicts
// returned by the classifier, and the findings that survive both.
package detection

import "math"

// Candidate is a heuristically flagged substring that might be a secret.
// Candidates are produced by a Detector and never modified afterwards.
type Candidate struct {
	value        string
	confidence   float64
	detectorName string
	category     string
	context      string
	line         int
}

// NewCandidate creates a Candidate. Confidence is clamped to [0,1] and a
// non-positive line number is recorded as 1.
func NewCandidate(value string, confidence float64, detectorName, category, context string, line int) Candidate {
	return Candidate{
		value:        value,
		confidence:   clampConfidence(confidence),
		detectorName: detectorName,
		category:     category,
		context:      context,
		line:         max(line, 1),
	}
}

// Value returns the flagged substring.
func (c Candidate) Value() string { return c.value }

// Confidence returns the detector-assigned score in [0,1].
func (c Candidate) Confidence() float64 { return c.confidence }

// DetectorName returns the name of the detector that produced the candidate.
func (c Candidate) DetectorName() string { return c.detectorName }

// Category returns a human readable classification such as "URL with Credentials".
func (c Candidate) Category() string { return c.category }

// Context returns the surrounding text (the trimmed source line).
func (c Candidate) Context() string { return c.context }

// Line returns the 1-indexed line the candidate was found on.
func (c Candidate) Line() int { return c.line }

func clampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
