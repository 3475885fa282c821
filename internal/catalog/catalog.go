package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"switchboard/internal/logging"
)

// Loader supplies a descriptor set. Implementations: embedded defaults,
// YAML files, test fixtures.
type Loader interface {
	Load(ctx context.Context) ([]Platform, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) ([]Platform, error)

func (f LoaderFunc) Load(ctx context.Context) ([]Platform, error) { return f(ctx) }

// Cache is the explicit, read-only cached view over the descriptor set.
// Descriptors load once and stay until Invalidate or Refresh; there is no
// TTL and no implicit reload. Returned descriptors are shared and must not
// be mutated by callers.
type Cache struct {
	loader Loader
	logger logging.Logger
	clock  func() time.Time

	mu        sync.RWMutex
	platforms []Platform
	byID      map[string]int
	loaded    bool
	version   int64
	loadedAt  time.Time
}

// NewCache wraps loader in a cache. logger may be nil.
func NewCache(loader Loader, logger logging.Logger) *Cache {
	return &Cache{
		loader: loader,
		logger: logging.OrNop(logger),
		clock:  time.Now,
	}
}

// Platforms returns every platform descriptor, loading on first use.
func (c *Cache) Platforms(ctx context.Context) ([]Platform, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Platform, len(c.platforms))
	copy(out, c.platforms)
	return out, nil
}

// Platform returns the descriptor for id. ok is false when the id is not in
// the catalog; error reports load failures only.
func (c *Cache) Platform(ctx context.Context, id string) (Platform, bool, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return Platform{}, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byID[id]
	if !ok {
		return Platform{}, false, nil
	}
	return c.platforms[idx], true, nil
}

// Model returns the descriptor for modelID under platformID.
func (c *Cache) Model(ctx context.Context, platformID, modelID string) (Model, bool, error) {
	platform, ok, err := c.Platform(ctx, platformID)
	if err != nil || !ok {
		return Model{}, false, err
	}
	for _, model := range platform.Models {
		if model.ID == modelID {
			return model, true, nil
		}
	}
	return Model{}, false, nil
}

// Invalidate drops the cached descriptors; the next read reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.platforms = nil
	c.byID = nil
	c.logger.Debug("catalog cache invalidated (version %d)", c.version)
}

// Refresh reloads the descriptors immediately.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

// Version counts completed loads; it increments on every Refresh and on the
// reload after an Invalidate.
func (c *Cache) Version() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Cache) ensureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}
	return c.loadLocked(ctx)
}

func (c *Cache) loadLocked(ctx context.Context) error {
	if c.loader == nil {
		return fmt.Errorf("catalog loader not configured")
	}
	platforms, err := c.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	normalized, byID, err := normalize(platforms)
	if err != nil {
		return fmt.Errorf("validate catalog: %w", err)
	}
	c.platforms = normalized
	c.byID = byID
	c.loaded = true
	c.version++
	c.loadedAt = c.clock()
	c.logger.Info("catalog loaded: %d platforms (version %d)", len(normalized), c.version)
	return nil
}

func normalize(platforms []Platform) ([]Platform, map[string]int, error) {
	out := make([]Platform, 0, len(platforms))
	byID := make(map[string]int, len(platforms))
	for _, platform := range platforms {
		platform.ID = strings.TrimSpace(platform.ID)
		if platform.ID == "" {
			return nil, nil, fmt.Errorf("platform with empty id")
		}
		if _, dup := byID[platform.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate platform id %q", platform.ID)
		}
		if platform.Name == "" {
			platform.Name = platform.ID
		}
		seen := make(map[string]struct{}, len(platform.Models))
		for i, model := range platform.Models {
			id := strings.TrimSpace(model.ID)
			if id == "" {
				return nil, nil, fmt.Errorf("platform %q: model with empty id", platform.ID)
			}
			if _, dup := seen[id]; dup {
				return nil, nil, fmt.Errorf("platform %q: duplicate model id %q", platform.ID, id)
			}
			seen[id] = struct{}{}
			platform.Models[i].ID = id
		}
		byID[platform.ID] = len(out)
		out = append(out, platform)
	}
	return out, byID, nil
}
