// Package detector contains the heuristic detectors that flag candidate
// secrets in file content, together with the registry that turns configured
// detector blocks into detector instances.
//
// Each detector file registers its constructor with the default registry from
// an init function, so adding a detector only requires a new file in this
// package.
package detector

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ahrav/whisper/internal/config"
	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common/logger"
)

var (
	// ErrUnknownDetector is returned when an enabled detector has no
	// registered constructor.
	ErrUnknownDetector = errors.New("unknown detector")
	// ErrInvalidParam is returned when a detector parameter has the wrong type
	// or an out of range value.
	ErrInvalidParam = errors.New("invalid detector parameter")
)

// ConfigError describes a detector block that could not be turned into a
// detector. It matches config.ErrInvalidConfig with errors.Is.
type ConfigError struct {
	Detector string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("detector %q: %v", e.Detector, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is reports whether target is config.ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool { return target == config.ErrInvalidConfig }

// Factory constructs a detector from the parameters of its configuration
// block.
type Factory func(p Params, log *logger.Logger) (detection.Detector, error)

// Registry maps configuration names to detector constructors.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var defaultRegistry = NewRegistry()

// Default returns the registry populated by the detectors in this package.
func Default() *Registry { return defaultRegistry }

// Register adds f to the default registry under key.
func Register(key string, f Factory) { defaultRegistry.Register(key, f) }

// Register adds f under key. Registering the same key twice panics since it
// can only happen through a programming error.
func (r *Registry) Register(key string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f == nil {
		panic("detector: Register factory is nil for " + key)
	}
	if _, dup := r.factories[key]; dup {
		panic("detector: Register called twice for " + key)
	}
	r.factories[key] = f
}

// Keys returns the registered names in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (r *Registry) lookup(key string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[key]
	return f, ok
}

// Build instantiates the enabled detectors in declaration order. Disabled
// blocks are skipped. An enabled block without a registered constructor, or
// whose parameters are rejected by the constructor, fails the whole build with
// a *ConfigError.
func (r *Registry) Build(specs config.Detectors, log *logger.Logger) ([]detection.Detector, error) {
	if log == nil {
		log = logger.Noop()
	}

	detectors := make([]detection.Detector, 0, len(specs))
	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}

		factory, ok := r.lookup(spec.Name)
		if !ok {
			return nil, &ConfigError{Detector: spec.Name, Err: ErrUnknownDetector}
		}

		d, err := factory(Params(spec.Params), log.With("detector", spec.Name))
		if err != nil {
			return nil, &ConfigError{Detector: spec.Name, Err: err}
		}
		detectors = append(detectors, d)
	}

	return detectors, nil
}
