package detector

import (
	"encoding/base64"
	"fmt"
	"iter"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common/logger"
)

func init() {
	Register("base64", func(p Params, _ *logger.Logger) (detection.Detector, error) {
		minLength, err := p.Int("min_length", 32)
		if err != nil {
			return nil, err
		}
		threshold, err := p.Float("entropy_threshold", 4.5)
		if err != nil {
			return nil, err
		}
		conf, err := p.Confidence(0.85)
		if err != nil {
			return nil, err
		}
		return NewBase64Detector(minLength, threshold, conf)
	})
}

// Base64Detector flags quoted base64 strings whose decoded bytes have high
// entropy.
type Base64Detector struct {
	threshold  float64
	token      *regexp.Regexp
	confidence float64
}

var _ detection.Detector = (*Base64Detector)(nil)

// NewBase64Detector returns a detector for quoted base64 tokens of at least
// minLength characters.
func NewBase64Detector(minLength int, entropyThreshold, confidence float64) (*Base64Detector, error) {
	if minLength < 1 || minLength > maxRepeat {
		return nil, fmt.Errorf("%w: min_length must be within [1, %d], got %d", ErrInvalidParam, maxRepeat, minLength)
	}

	return &Base64Detector{
		threshold:  entropyThreshold,
		token:      regexp.MustCompile(fmt.Sprintf(`['"]([A-Za-z0-9+/=]{%d,})['"]`, minLength)),
		confidence: confidence,
	}, nil
}

// Name implements detection.Detector.
func (d *Base64Detector) Name() string { return "Base64" }

// Detect implements detection.Detector.
func (d *Base64Detector) Detect(content string) iter.Seq[detection.Candidate] {
	return func(yield func(detection.Candidate) bool) {
		for n, line := range lines(content) {
			for _, m := range d.token.FindAllStringSubmatch(line, -1) {
				tok := m[1]
				if len(tok)%4 != 0 {
					continue
				}
				decoded, err := base64.StdEncoding.DecodeString(tok)
				if err != nil {
					continue
				}
				if shannonEntropy(decoded) < d.threshold {
					continue
				}
				c := detection.NewCandidate(tok, d.confidence, d.Name(), "High Entropy Base64", strings.TrimSpace(line), n)
				if !yield(c) {
					return
				}
			}
		}
	}
}
