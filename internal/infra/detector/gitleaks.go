package detector

import (
	"bytes"
	"fmt"
	"iter"
	"strings"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common/logger"
)

func init() {
	Register("gitleaks", func(p Params, _ *logger.Logger) (detection.Detector, error) {
		conf, err := p.Confidence(0.9)
		if err != nil {
			return nil, err
		}
		return NewGitleaksDetector(conf)
	})
}

// GitleaksDetector runs the gitleaks default rule set over file content. The
// rule description becomes the candidate category.
type GitleaksDetector struct {
	detector   *detect.Detector
	confidence float64
}

var _ detection.Detector = (*GitleaksDetector)(nil)

// NewGitleaksDetector loads the embedded gitleaks rule set.
func NewGitleaksDetector(confidence float64) (*GitleaksDetector, error) {
	d, err := setupGitleaksDetector()
	if err != nil {
		return nil, err
	}
	return &GitleaksDetector{detector: d, confidence: confidence}, nil
}

// setupGitleaksDetector initializes the Gitleaks detector using the embedded default configuration.
func setupGitleaksDetector() (*detect.Detector, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewBufferString(config.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("failed to read embedded config: %w", err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedded config: %w", err)
	}

	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("failed to translate ViperConfig to Config: %w", err)
	}

	return detect.NewDetector(cfg), nil
}

// Name implements detection.Detector.
func (d *GitleaksDetector) Name() string { return "Gitleaks" }

// Detect implements detection.Detector.
func (d *GitleaksDetector) Detect(content string) iter.Seq[detection.Candidate] {
	return func(yield func(detection.Candidate) bool) {
		if content == "" {
			return
		}
		for _, f := range d.detector.DetectString(content) {
			value := f.Secret
			if value == "" {
				value = f.Match
			}
			if value == "" {
				continue
			}

			// StartLine is zero-based; Line holds the matching line with its
			// leading newline.
			line, context := f.StartLine+1, strings.TrimSpace(f.Line)
			category := f.Description
			if category == "" {
				category = f.RuleID
			}
			if !yield(detection.NewCandidate(value, d.confidence, d.Name(), category, context, line)) {
				return
			}
		}
	}
}
