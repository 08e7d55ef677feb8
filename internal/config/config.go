// Package config defines the configuration consumed by the scanner: which
// detectors run and with what parameters, which paths are skipped, and how the
// classification service is reached.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig marks configuration problems that must abort a scan before
// any file is read.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the top-level configuration.
type Config struct {
	AI     AIConfig     `yaml:"ai"`
	Rules  RulesConfig  `yaml:"rules"`
	Output OutputConfig `yaml:"output"`
}

// AIConfig describes the classification service.
type AIConfig struct {
	// Primary names the inference backend. Only "ollama" is supported.
	Primary string `yaml:"primary" validate:"required,oneof=ollama"`
	Model   string `yaml:"model" validate:"required"`
	// Host is the base URL of the inference service. Empty falls back to
	// OLLAMA_HOST and then to http://localhost:11434.
	Host string `yaml:"host" validate:"omitempty,url"`

	// ConfidenceThreshold is the minimum detector confidence a candidate needs
	// before it is sent for classification.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" validate:"gte=0,lte=1"`

	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
	RateLimit    float64       `yaml:"rate_limit" validate:"gte=0"`
	CacheResults bool          `yaml:"cache_results"`
}

// RulesConfig controls discovery and detection.
type RulesConfig struct {
	ExcludedPaths []string `yaml:"excluded_paths"`
	// MaxFileSize is a human readable size such as "5MB". Unparsable values
	// disable the limit.
	MaxFileSize      string    `yaml:"max_file_size"`
	SkipBinary       bool      `yaml:"skip_binary"`
	RespectGitignore bool      `yaml:"respect_gitignore"`
	Detectors        Detectors `yaml:"detectors" validate:"dive"`
}

// OutputConfig configures optional sinks for confirmed findings.
type OutputConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig enables publishing findings to a Kafka topic when Brokers is set.
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic" validate:"required_with=Brokers"`
	ClientID string   `yaml:"client_id"`
}

// Enabled reports whether the Kafka sink is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// ScanConfig is the immutable view of the configuration handed to the scanner
// for the duration of a single scan.
type ScanConfig struct {
	ExcludedPaths       []string
	MaxFileSizeBytes    int64
	Detectors           Detectors
	ConfidenceThreshold float64
	SkipBinary          bool
	RespectGitignore    bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for values that would make a scan
// meaningless. Every failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	seen := make(map[string]struct{}, len(c.Rules.Detectors))
	for _, d := range c.Rules.Detectors {
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("%w: detector %q declared more than once", ErrInvalidConfig, d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// ScanConfig derives the scanner's view of the configuration. The returned
// value shares no mutable state with c.
func (c *Config) ScanConfig() ScanConfig {
	return ScanConfig{
		ExcludedPaths:       append([]string(nil), c.Rules.ExcludedPaths...),
		MaxFileSizeBytes:    ParseSize(c.Rules.MaxFileSize),
		Detectors:           c.Rules.Detectors.Clone(),
		ConfidenceThreshold: c.AI.ConfidenceThreshold,
		SkipBinary:          c.Rules.SkipBinary,
		RespectGitignore:    c.Rules.RespectGitignore,
	}
}

// ParseSize converts a human readable size ("5MB", "512k", "1GiB") to bytes
// using binary multiples. Empty, negative, or unparsable input yields 0,
// which disables the size cutoff.
func ParseSize(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := units.RAMInBytes(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
