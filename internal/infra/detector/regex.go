package detector

import (
	"context"
	"iter"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common/logger"
)

func init() {
	Register("regex", func(p Params, log *logger.Logger) (detection.Detector, error) {
		rules, err := p.Strings("rules", nil)
		if err != nil {
			return nil, err
		}
		conf, err := p.Confidence(0.9)
		if err != nil {
			return nil, err
		}
		return NewRegexDetector(rules, conf, log), nil
	})
}

// RegexDetector matches user supplied patterns line by line. The value of a
// candidate is the last capturing group of the match, or the whole match when
// the pattern has no groups.
type RegexDetector struct {
	patterns   []*regexp.Regexp
	confidence float64
}

var _ detection.Detector = (*RegexDetector)(nil)

// NewRegexDetector compiles rules. Patterns that fail to compile are logged
// and skipped.
func NewRegexDetector(rules []string, confidence float64, log *logger.Logger) *RegexDetector {
	if log == nil {
		log = logger.Noop()
	}

	patterns := make([]*regexp.Regexp, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile(rule)
		if err != nil {
			log.Warn(context.Background(), "skipping invalid regex pattern", "pattern", rule, "error", err)
			continue
		}
		patterns = append(patterns, re)
	}

	return &RegexDetector{patterns: patterns, confidence: confidence}
}

// Name implements detection.Detector.
func (d *RegexDetector) Name() string { return "Regex" }

// Detect implements detection.Detector.
func (d *RegexDetector) Detect(content string) iter.Seq[detection.Candidate] {
	return func(yield func(detection.Candidate) bool) {
		for n, line := range lines(content) {
			for _, re := range d.patterns {
				for _, m := range re.FindAllStringSubmatch(line, -1) {
					value := m[len(m)-1]
					if value == "" {
						continue
					}
					c := detection.NewCandidate(value, d.confidence, d.Name(), "Regex Match", strings.TrimSpace(line), n)
					if !yield(c) {
						return
					}
				}
			}
		}
	}
}
