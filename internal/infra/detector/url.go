package detector

import (
	"iter"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common/logger"
)

// DefaultURLProtocols are the schemes checked when none are configured.
var DefaultURLProtocols = []string{
	"http", "https", "ftp", "sftp", "ws", "wss",
	"postgres", "postgresql", "mysql", "redis", "mongodb",
}

func init() {
	Register("url", func(p Params, _ *logger.Logger) (detection.Detector, error) {
		protocols, err := p.Strings("protocols", nil)
		if err != nil {
			return nil, err
		}
		conf, err := p.Confidence(0.95)
		if err != nil {
			return nil, err
		}
		return NewURLDetector(protocols, conf), nil
	})
}

// URLDetector flags URLs that embed user:password credentials.
type URLDetector struct {
	pattern    *regexp.Regexp
	confidence float64
}

var _ detection.Detector = (*URLDetector)(nil)

// NewURLDetector builds a detector for the given schemes, falling back to
// DefaultURLProtocols when protocols is empty.
func NewURLDetector(protocols []string, confidence float64) *URLDetector {
	quoted := make([]string, 0, len(protocols))
	for _, p := range protocols {
		if p != "" {
			quoted = append(quoted, regexp.QuoteMeta(p))
		}
	}
	if len(quoted) == 0 {
		for _, p := range DefaultURLProtocols {
			quoted = append(quoted, regexp.QuoteMeta(p))
		}
	}

	expr := `(?i)(?:` + strings.Join(quoted, "|") + `)://[^:@/\s]+:[^:@/\s]+@[^\s'"` + "`" + `,;]+`
	return &URLDetector{pattern: regexp.MustCompile(expr), confidence: confidence}
}

// Name implements detection.Detector.
func (d *URLDetector) Name() string { return "URL" }

// Detect implements detection.Detector.
func (d *URLDetector) Detect(content string) iter.Seq[detection.Candidate] {
	return func(yield func(detection.Candidate) bool) {
		for n, line := range lines(content) {
			for _, m := range d.pattern.FindAllString(line, -1) {
				if !yield(detection.NewCandidate(m, d.confidence, d.Name(), "URL with Credentials", strings.TrimSpace(line), n)) {
					return
				}
			}
		}
	}
}
