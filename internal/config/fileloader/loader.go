package fileloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/whisper/internal/config"
)

// FileName is the configuration file name searched for by Find.
const FileName = "whisper.config.yaml"

// FileLoader loads configuration from a file on disk and merges it over the
// built-in defaults. It implements config.Loader.
type FileLoader struct {
	// path is the filesystem path to the configuration file. An empty path
	// yields the defaults.
	path string
}

// NewFileLoader creates a new FileLoader that will load configuration from the
// specified file path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Path returns the file the loader reads from.
func (l *FileLoader) Path() string { return l.path }

// Load reads and parses the configuration file, merges it over
// config.Default, and validates the result. Every failure wraps
// config.ErrInvalidConfig.
func (l *FileLoader) Load(ctx context.Context) (*config.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %v", config.ErrInvalidConfig, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config %s: %v", config.ErrInvalidConfig, l.path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find walks from start towards the filesystem root looking for FileName and
// returns the first match.
func Find(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", false
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
