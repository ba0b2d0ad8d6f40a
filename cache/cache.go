// Package cache stores finished analyses keyed by subject with time-based expiry.
//
// The in-memory map is the source of truth for the life of the process. It is
// seeded once from durable storage and every mutation rewrites the whole map back
// under a single storage key before the mutating call returns.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-tonescope/db"
	"go-tonescope/types"
)

// StorageKey is where the serialized map lives in the durable store.
const StorageKey = "analysisCache"

const day = 24 * time.Hour

// DefaultDuration applies when Set is given none.
const DefaultDuration = 30 * day

type Cache struct {
	mu      sync.Mutex
	entries map[string]types.CacheEntry

	kv              db.Store
	now             func() time.Time
	defaultDuration time.Duration
	logger          *zap.Logger
}

type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithDefaultDuration(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.defaultDuration = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a cache and seeds it from kv.
func New(ctx context.Context, kv db.Store, opts ...Option) (*Cache, error) {
	c := &Cache{
		entries:         make(map[string]types.CacheEntry),
		kv:              kv,
		now:             time.Now,
		defaultDuration: DefaultDuration,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	stored, err := kv.Get(ctx, []string{StorageKey})
	if err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	if raw, ok := stored[StorageKey]; ok {
		if err := json.Unmarshal(raw, &c.entries); err != nil {
			// A corrupt snapshot only costs us re-analysis.
			c.logger.Warn("discarding unreadable cache snapshot", zap.Error(err))
			c.entries = make(map[string]types.CacheEntry)
		}
	}

	c.logger.Info("cache loaded", zap.Int("entries", len(c.entries)))
	return c, nil
}

// Get returns the cached result for key. An expired entry is removed and reported
// as a miss.
func (c *Cache) Get(ctx context.Context, key string) (types.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return types.AnalysisResult{}, false
	}
	if !entry.Expired(c.now()) {
		return entry.Data, true
	}

	delete(c.entries, key)
	if err := c.persist(ctx); err != nil {
		c.logger.Warn("failed to persist eviction", zap.String("key", key), zap.Error(err))
	}
	return types.AnalysisResult{}, false
}

// Set stores value under key, replacing any existing entry. A zero duration means
// DefaultDuration (or the configured default).
func (c *Cache) Set(ctx context.Context, key string, value types.AnalysisResult, duration time.Duration) error {
	if duration <= 0 {
		duration = c.defaultDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = types.CacheEntry{
		Data:      value,
		Timestamp: c.now(),
		Duration:  duration,
	}
	return c.persist(ctx)
}

// Invalidate drops key. Absent keys are a no-op and do not touch storage.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return nil
	}
	delete(c.entries, key)
	return c.persist(ctx)
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]types.CacheEntry)
	return c.persist(ctx)
}

// Prune removes every expired entry in one pass and returns how many went.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.Expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, c.persist(ctx)
}

// Len is the number of entries held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// persist must be called with mu held.
func (c *Cache) persist(ctx context.Context) error {
	raw, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := c.kv.Set(ctx, map[string][]byte{StorageKey: raw}); err != nil {
		return fmt.Errorf("failed to persist cache: %w", err)
	}
	return nil
}
