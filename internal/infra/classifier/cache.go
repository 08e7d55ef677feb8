// Package classifier holds decorators around detection.Classifier
// implementations.
package classifier

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ahrav/whisper/internal/domain/detection"
)

// Verdicter is implemented by classifiers that can tell a negative verdict
// apart from a failed call.
type Verdicter interface {
	Verdict(ctx context.Context, value, snippet string) (detection.ClassificationResult, error)
}

// CachingClassifier remembers verdicts for identical (value, snippet) pairs
// for the lifetime of the instance. Concurrent requests for the same pair
// share one call to the wrapped classifier. Failed calls are not cached when
// the wrapped classifier implements Verdicter.
type CachingClassifier struct {
	next  detection.Classifier
	group singleflight.Group

	mu      sync.RWMutex
	results map[string]detection.ClassificationResult
}

var _ detection.Classifier = (*CachingClassifier)(nil)

// NewCachingClassifier wraps next.
func NewCachingClassifier(next detection.Classifier) *CachingClassifier {
	return &CachingClassifier{next: next, results: make(map[string]detection.ClassificationResult)}
}

func cacheKey(value, snippet string) string { return value + "\x00" + snippet }

// Classify implements detection.Classifier. The shared call is detached from
// the cancellation of whichever caller started it and is bounded by the wrapped
// classifier's own timeout; a caller whose ctx ends first gets a negative
// verdict while the others keep waiting.
func (c *CachingClassifier) Classify(ctx context.Context, value, snippet string) detection.ClassificationResult {
	key := cacheKey(value, snippet)
	if res, ok := c.lookup(key); ok {
		return res
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if res, ok := c.lookup(key); ok {
			return res, nil
		}

		res, cacheable := c.classify(shared, value, snippet)
		if cacheable {
			c.mu.Lock()
			c.results[key] = res
			c.mu.Unlock()
		}
		return res, nil
	})

	select {
	case r := <-ch:
		return r.Val.(detection.ClassificationResult)
	case <-ctx.Done():
		return detection.NotSecret(ctx.Err().Error())
	}
}

func (c *CachingClassifier) classify(ctx context.Context, value, snippet string) (detection.ClassificationResult, bool) {
	v, ok := c.next.(Verdicter)
	if !ok {
		return c.next.Classify(ctx, value, snippet), ctx.Err() == nil
	}

	res, err := v.Verdict(ctx, value, snippet)
	if err != nil {
		return detection.NotSecret(err.Error()), false
	}
	return res, true
}

func (c *CachingClassifier) lookup(key string) (detection.ClassificationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.results[key]
	return res, ok
}

// Len returns the number of cached verdicts.
func (c *CachingClassifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}
