package detector

import (
	"fmt"
	"iter"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common/logger"
)

// maxRepeat is the largest counted repetition RE2 accepts.
const maxRepeat = 1000

func init() {
	Register("entropy", func(p Params, _ *logger.Logger) (detection.Detector, error) {
		threshold, err := p.Float("threshold", 4.5)
		if err != nil {
			return nil, err
		}
		minLength, err := p.Int("min_length", 20)
		if err != nil {
			return nil, err
		}
		conf, err := p.Confidence(0.85)
		if err != nil {
			return nil, err
		}
		return NewEntropyDetector(threshold, minLength, conf)
	})
}

// EntropyDetector flags key-like tokens whose Shannon entropy reaches a
// threshold.
type EntropyDetector struct {
	threshold  float64
	minLength  int
	token      *regexp.Regexp
	confidence float64
}

var _ detection.Detector = (*EntropyDetector)(nil)

// NewEntropyDetector returns a detector for tokens of at least minLength
// characters drawn from letters, digits and -_.+/=.
func NewEntropyDetector(threshold float64, minLength int, confidence float64) (*EntropyDetector, error) {
	if minLength < 1 || minLength > maxRepeat {
		return nil, fmt.Errorf("%w: min_length must be within [1, %d], got %d", ErrInvalidParam, maxRepeat, minLength)
	}

	return &EntropyDetector{
		threshold:  threshold,
		minLength:  minLength,
		token:      regexp.MustCompile(fmt.Sprintf(`['"]?([A-Za-z0-9_.+/=-]{%d,})['"]?`, minLength)),
		confidence: confidence,
	}, nil
}

// Name implements detection.Detector.
func (d *EntropyDetector) Name() string { return "Entropy" }

// Detect implements detection.Detector.
func (d *EntropyDetector) Detect(content string) iter.Seq[detection.Candidate] {
	return func(yield func(detection.Candidate) bool) {
		for n, line := range lines(content) {
			for _, m := range d.token.FindAllStringSubmatch(line, -1) {
				tok := m[1]
				if shannonEntropy(tok) < d.threshold {
					continue
				}
				c := detection.NewCandidate(tok, d.confidence, d.Name(), "High Entropy String", strings.TrimSpace(line), n)
				if !yield(c) {
					return
				}
			}
		}
	}
}
