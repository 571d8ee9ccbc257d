package ml

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ModelCache keeps recently loaded predictors keyed by artifact path, so the
// serving path does not reread and decode the artifact on every request.
type ModelCache struct {
	device Device
	cache  *lru.Cache[string, *Predictor]
	mu     sync.Mutex
}

// NewModelCache creates a cache holding up to size predictors.
func NewModelCache(size int, device Device) (*ModelCache, error) {
	cache, err := lru.New[string, *Predictor](size)
	if err != nil {
		return nil, err
	}
	return &ModelCache{device: device, cache: cache}, nil
}

// Get returns the cached predictor for path, loading the artifact on a miss.
func (c *ModelCache) Get(path string) (*Predictor, error) {
	if predictor, ok := c.cache.Get(path); ok {
		return predictor, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if predictor, ok := c.cache.Get(path); ok {
		return predictor, nil
	}

	predictor, err := NewPredictor(path, c.device)
	if err != nil {
		return nil, err
	}
	c.cache.Add(path, predictor)
	return predictor, nil
}

// Invalidate drops the cached predictor for path, forcing a reload on next use.
func (c *ModelCache) Invalidate(path string) {
	c.cache.Remove(path)
}

// CachedPredictor serves predictions from whatever model the cache currently
// holds for a fixed artifact path.
type CachedPredictor struct {
	cache *ModelCache
	path  string
}

// NewCachedPredictor binds a cache to an artifact path.
func NewCachedPredictor(cache *ModelCache, path string) *CachedPredictor {
	return &CachedPredictor{cache: cache, path: path}
}

// Predict resolves the current predictor and forwards the feature vector.
func (p *CachedPredictor) Predict(features []float64) (float64, error) {
	predictor, err := p.cache.Get(p.path)
	if err != nil {
		return 0, err
	}
	return predictor.Predict(features)
}
