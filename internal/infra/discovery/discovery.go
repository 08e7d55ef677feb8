// Package discovery enumerates the files a scan should read.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/ahrav/whisper/pkg/common/logger"
)

// ErrInvalidPattern is returned when an exclusion glob does not compile.
var ErrInvalidPattern = errors.New("invalid exclusion pattern")

// Options controls which files are yielded.
type Options struct {
	// ExcludedPaths are glob patterns using '/' as separator. A pattern is
	// matched against the absolute path and the path relative to the scan
	// root. Patterns not starting with '/' or '**' also match any trailing
	// part of the relative path, so "config/*.yaml" excludes
	// "svc/config/prod.yaml".
	ExcludedPaths []string
	// MaxFileSizeBytes skips larger files. Zero disables the cutoff.
	MaxFileSizeBytes int64
	// RespectGitignore also skips files matched by the root's .gitignore.
	RespectGitignore bool
}

type pattern struct {
	raw      string
	matcher  glob.Glob
	anchored bool
}

// Discoverer walks a root path and yields the regular files that survive
// exclusion and size filtering.
type Discoverer struct {
	patterns         []pattern
	maxSize          int64
	respectGitignore bool
	logger           *logger.Logger
}

// New compiles the exclusion patterns. Any pattern that fails to compile is
// reported before discovery starts.
func New(opts Options, log *logger.Logger) (*Discoverer, error) {
	if log == nil {
		log = logger.Noop()
	}

	patterns := make([]pattern, 0, len(opts.ExcludedPaths))
	for _, raw := range opts.ExcludedPaths {
		if raw == "" {
			continue
		}
		g, err := glob.Compile(raw, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, raw, err)
		}
		patterns = append(patterns, pattern{
			raw:      raw,
			matcher:  g,
			anchored: strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "**"),
		})
	}

	return &Discoverer{
		patterns:         patterns,
		maxSize:          max(opts.MaxFileSizeBytes, 0),
		respectGitignore: opts.RespectGitignore,
		logger:           log.With("component", "discovery"),
	}, nil
}

// Excluded reports whether a file is matched by any exclusion pattern. abs is
// the absolute path and rel the path relative to the scan root.
func (d *Discoverer) Excluded(abs, rel string) bool {
	abs, rel = filepath.ToSlash(abs), filepath.ToSlash(rel)
	for _, p := range d.patterns {
		if p.matcher.Match(abs) || p.matcher.Match(rel) {
			return true
		}
		if !p.anchored && matchSuffix(p.matcher, rel) {
			return true
		}
	}
	return false
}

// matchSuffix reports whether g matches rel with one or more leading
// directories removed. The base name is the last suffix tried.
func matchSuffix(g glob.Glob, rel string) bool {
	for {
		i := strings.IndexByte(rel, '/')
		if i < 0 {
			return false
		}
		rel = rel[i+1:]
		if g.Match(rel) {
			return true
		}
	}
}

func (d *Discoverer) tooLarge(size int64) bool {
	return d.maxSize > 0 && size > d.maxSize
}

// Discover yields the absolute paths of the files under root that should be
// scanned. Order is unspecified. Entries that cannot be read during the walk
// are logged and skipped; only a missing or unreadable root is an error.
// A symlinked root is followed, and symlinks to regular files inside the tree
// are yielded under their link path. Symlinked directories are not descended.
func (d *Discoverer) Discover(ctx context.Context, root string) (iter.Seq[string], error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", root, err)
	}

	if !info.IsDir() {
		return func(yield func(string) bool) {
			if !info.Mode().IsRegular() {
				return
			}
			if d.Excluded(absRoot, filepath.Base(absRoot)) || d.tooLarge(info.Size()) {
				return
			}
			yield(absRoot)
		}, nil
	}

	// WalkDir does not follow a symlinked root.
	walkRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	gitignore := d.loadGitignore(ctx, walkRoot)

	return func(yield func(string) bool) {
		stop := errors.New("stop")
		walkErr := filepath.WalkDir(walkRoot, func(walked string, entry fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				d.logger.Warn(ctx, "skipping unreadable path", "path", walked, "error", err)
				if entry != nil && entry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if entry.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(walkRoot, walked)
			if err != nil {
				return nil
			}
			path := filepath.Join(absRoot, rel)

			if d.Excluded(path, rel) {
				return nil
			}
			if gitignore != nil && gitignore.MatchesPath(filepath.ToSlash(rel)) {
				return nil
			}
			fi, ok := d.regularFile(ctx, walked, entry)
			if !ok {
				return nil
			}
			if d.tooLarge(fi.Size()) {
				d.logger.Debug(ctx, "skipping large file", "path", path, "size", fi.Size(), "max_size", d.maxSize)
				return nil
			}

			if !yield(path) {
				return stop
			}
			return nil
		})
		if walkErr != nil && !errors.Is(walkErr, stop) && ctx.Err() == nil {
			d.logger.Warn(ctx, "directory walk ended early", "root", absRoot, "error", walkErr)
		}
	}, nil
}

// regularFile returns the metadata of entry when it is a regular file or a
// symlink to one.
func (d *Discoverer) regularFile(ctx context.Context, path string, entry fs.DirEntry) (fs.FileInfo, bool) {
	switch mode := entry.Type(); {
	case mode.IsRegular():
		fi, err := entry.Info()
		if err != nil {
			d.logger.Warn(ctx, "skipping file without metadata", "path", path, "error", err)
			return nil, false
		}
		return fi, true
	case mode&fs.ModeSymlink != 0:
		fi, err := os.Stat(path)
		if err != nil {
			d.logger.Debug(ctx, "skipping broken symlink", "path", path, "error", err)
			return nil, false
		}
		return fi, fi.Mode().IsRegular()
	default:
		return nil, false
	}
}

func (d *Discoverer) loadGitignore(ctx context.Context, root string) *ignore.GitIgnore {
	if !d.respectGitignore {
		return nil
	}
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			d.logger.Warn(ctx, "failed to read .gitignore", "path", path, "error", err)
		}
		return nil
	}
	return gi
}
