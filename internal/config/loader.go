package config

import (
	"context"
)

// Loader provides configuration loading capabilities. It abstracts the source
// of configuration so the CLI can load from a file, from defaults only, or
// from an in-memory value in tests.
type Loader interface {
	// Load retrieves, merges over defaults, and validates the configuration.
	// Failures wrap ErrInvalidConfig.
	Load(ctx context.Context) (*Config, error)
}
