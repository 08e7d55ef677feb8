package detector

import (
	"iter"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common/logger"
)

func init() {
	Register("keyword", func(p Params, _ *logger.Logger) (detection.Detector, error) {
		keywords, err := p.Strings("keywords", nil)
		if err != nil {
			return nil, err
		}
		conf, err := p.Confidence(0.8)
		if err != nil {
			return nil, err
		}
		return NewKeywordDetector(keywords, conf), nil
	})
}

// KeywordDetector flags case-insensitive occurrences of literal keywords.
type KeywordDetector struct {
	pattern    *regexp.Regexp
	confidence float64
}

var _ detection.Detector = (*KeywordDetector)(nil)

// NewKeywordDetector compiles keywords into one alternation. Empty keywords
// are ignored; with none left the detector never yields.
func NewKeywordDetector(keywords []string, confidence float64) *KeywordDetector {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(k))
	}

	d := &KeywordDetector{confidence: confidence}
	if len(quoted) > 0 {
		d.pattern = regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
	}
	return d
}

// Name implements detection.Detector.
func (d *KeywordDetector) Name() string { return "Keyword" }

// Detect implements detection.Detector.
func (d *KeywordDetector) Detect(content string) iter.Seq[detection.Candidate] {
	return func(yield func(detection.Candidate) bool) {
		if d.pattern == nil {
			return
		}
		for n, line := range lines(content) {
			for _, m := range d.pattern.FindAllString(line, -1) {
				if !yield(detection.NewCandidate(m, d.confidence, d.Name(), "Keyword", strings.TrimSpace(line), n)) {
					return
				}
			}
		}
	}
}
