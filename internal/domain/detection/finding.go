package detection

import "encoding/json"

// Finding is a Candidate confirmed as a secret by the classifier.
// Findings are created once and never mutated.
type Finding struct {
	file        string
	line        int
	secretValue string
	reason      string
	detector    string
	confidence  float64
}

// NewFinding promotes a Candidate found in file to a Finding using the
// classifier's reason.
func NewFinding(file string, c Candidate, reason string) Finding {
	return Finding{
		file:        file,
		line:        c.Line(),
		secretValue: c.Value(),
		reason:      reason,
		detector:    c.DetectorName(),
		confidence:  c.Confidence(),
	}
}

// File returns the absolute path of the file containing the secret.
func (f Finding) File() string { return f.file }

// Line returns the best-effort 1-indexed line number.
func (f Finding) Line() int { return f.line }

// SecretValue returns the confirmed secret.
func (f Finding) SecretValue() string { return f.secretValue }

// Reason returns the classifier's explanation.
func (f Finding) Reason() string { return f.reason }

// Detector returns the name of the detector that flagged the secret.
func (f Finding) Detector() string { return f.detector }

// Confidence returns the detector confidence the candidate carried.
func (f Finding) Confidence() float64 { return f.confidence }

// findingJSON is the wire shape consumed by presentation and sinks.
type findingJSON struct {
	File        string  `json:"file"`
	Line        int     `json:"line"`
	SecretValue string  `json:"secret_value"`
	Reason      string  `json:"reason"`
	Detector    string  `json:"detector"`
	Confidence  float64 `json:"confidence"`
}

// MarshalJSON implements json.Marshaler.
func (f Finding) MarshalJSON() ([]byte, error) {
	return json.Marshal(findingJSON{
		File:        f.file,
		Line:        f.line,
		SecretValue: f.secretValue,
		Reason:      f.reason,
		Detector:    f.detector,
		Confidence:  f.confidence,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Finding) UnmarshalJSON(data []byte) error {
	var raw findingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Finding{
		file:        raw.File,
		line:        raw.Line,
		secretValue: raw.SecretValue,
		reason:      raw.Reason,
		detector:    raw.Detector,
		confidence:  raw.Confidence,
	}
	return nil
}
