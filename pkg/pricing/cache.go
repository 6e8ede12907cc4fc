package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cloudquote/cloudquote/pkg/storage"
)

const (
	// DefaultTTL bounds how long a live quote is served without a refresh.
	DefaultTTL = 15 * time.Minute
	// DefaultStaleCeiling bounds how long an expired quote may still be
	// served when the provider is unreachable.
	DefaultStaleCeiling = 24 * time.Hour

	defaultSnapshotKey = "snapshots/pricing-cache.json"
	snapshotVersion    = 1
)

// CacheOptions tune the cache. Zero values fall back to defaults.
type CacheOptions struct {
	TTL          time.Duration
	StaleCeiling time.Duration

	// Store persists snapshots across restarts. Optional.
	Store       storage.BlobStore
	SnapshotKey string
}

// Cache front-ends the provider adapters. GetPrice degrades through
// stale entries and the static reference table instead of failing, so
// an estimate always completes unless the catalog itself has a gap.
type Cache struct {
	logger   *slog.Logger
	catalog  *Catalog
	adapters AdapterSet

	ttl         time.Duration
	ceiling     time.Duration
	store       storage.BlobStore
	snapshotKey string

	mu      sync.RWMutex
	entries map[string]CacheEntry
	group   singleflight.Group

	now func() time.Time
}

func NewCache(logger *slog.Logger, catalog *Catalog, adapters AdapterSet, opts CacheOptions) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.StaleCeiling <= 0 {
		opts.StaleCeiling = DefaultStaleCeiling
	}
	if opts.SnapshotKey == "" {
		opts.SnapshotKey = defaultSnapshotKey
	}
	return &Cache{
		logger:      logger,
		catalog:     catalog,
		adapters:    adapters,
		ttl:         opts.TTL,
		ceiling:     opts.StaleCeiling,
		store:       opts.Store,
		snapshotKey: opts.SnapshotKey,
		entries:     make(map[string]CacheEntry),
		now:         time.Now,
	}
}

func cacheKey(p Provider, skuKey string) string {
	return string(p) + "/" + skuKey
}

// GetPrice returns a unit price for the SKU, consulting in order: a
// fresh cache entry, a live adapter fetch, a stale entry younger than
// the ceiling, and finally the static reference table. Concurrent
// misses on the same key collapse into a single upstream call. The
// only error returned is *UnresolvableSkuError, raised when even the
// static table has no row for the SKU.
func (c *Cache) GetPrice(ctx context.Context, p Provider, kind ResourceKind, skuKey string) (UnitPrice, error) {
	key := cacheKey(p, skuKey)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && entry.Fresh(c.now()) {
		return entry.Price, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// A concurrent flight may have refreshed the entry while this
		// caller waited on the group lock.
		c.mu.RLock()
		entry, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && entry.Fresh(c.now()) {
			return entry.Price, nil
		}
		return c.refresh(ctx, p, kind, skuKey, entry, ok)
	})
	if err != nil {
		return UnitPrice{}, err
	}
	if shared {
		c.logger.Debug("coalesced price fetch", "provider", p, "sku", skuKey)
	}
	return v.(UnitPrice), nil
}

// GetPriceOffline resolves from cached and static data only, never
// touching an adapter. Comparison uses it after its deadline has
// passed, when waiting on providers is no longer acceptable.
func (c *Cache) GetPriceOffline(p Provider, kind ResourceKind, skuKey string) (UnitPrice, error) {
	key := cacheKey(p, skuKey)
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		if entry.Fresh(now) {
			return entry.Price, nil
		}
		if entry.Age(now) < c.ceiling {
			return staleCopy(entry.Price), nil
		}
	}
	return c.staticPrice(p, kind, skuKey, now)
}

// refresh runs inside the single flight for key.
func (c *Cache) refresh(ctx context.Context, p Provider, kind ResourceKind, skuKey string, stale CacheEntry, haveStale bool) (UnitPrice, error) {
	adapter, registered := c.adapters.For(p)

	var price UnitPrice
	var err error
	if registered {
		price, err = adapter.FetchUnitPrice(ctx, kind, skuKey)
	} else {
		err = &UpstreamError{Provider: p, Reason: "no adapter registered"}
	}

	now := c.now()
	if err == nil {
		c.mu.Lock()
		c.entries[cacheKey(p, skuKey)] = CacheEntry{Price: price, ExpiresAt: now.Add(c.ttl)}
		c.mu.Unlock()
		return price, nil
	}

	if haveStale && stale.Age(now) < c.ceiling {
		c.logger.Warn("serving stale price",
			"provider", p,
			"sku", skuKey,
			"age", stale.Age(now).Round(time.Second).String(),
			"error", err)
		return staleCopy(stale.Price), nil
	}

	c.logger.Warn("falling back to static pricing", "provider", p, "sku", skuKey, "error", err)
	return c.staticPrice(p, kind, skuKey, now)
}

func (c *Cache) staticPrice(p Provider, kind ResourceKind, skuKey string, now time.Time) (UnitPrice, error) {
	rate, ok := c.catalog.StaticPrice(p, skuKey)
	if !ok {
		alert := &UnresolvableSkuError{Provider: p, ResourceKind: kind, SKUKey: skuKey}
		c.logger.Error("static reference table has no row for sku",
			"provider", p,
			"sku", skuKey,
			"kind", kind)
		return UnitPrice{}, alert
	}
	return UnitPrice{
		Provider:     p,
		ResourceKind: kind,
		SKUKey:       skuKey,
		UnitCost:     rate,
		Currency:     c.catalog.Currency(),
		SourceLabel:  c.catalog.StaticSource(p) + " (static fallback)",
		FetchedAt:    now,
		IsLive:       false,
	}, nil
}

// staleCopy relabels a previously live price that is being served past
// its TTL.
func staleCopy(p UnitPrice) UnitPrice {
	p.IsLive = false
	if !strings.HasSuffix(p.SourceLabel, " (cached)") {
		p.SourceLabel += " (cached)"
	}
	return p
}

// Prime inserts an entry directly, bypassing the adapters. Warm-up and
// tests use it.
func (c *Cache) Prime(price UnitPrice, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	c.entries[cacheKey(price.Provider, price.SKUKey)] = CacheEntry{
		Price:     price,
		ExpiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

// CacheStats summarizes cache health for the health endpoint.
type CacheStats struct {
	Entries int       `json:"entries"`
	Fresh   int       `json:"fresh"`
	Stale   int       `json:"stale"`
	Oldest  time.Time `json:"oldest_fetch,omitzero"`
}

func (c *Cache) Stats() CacheStats {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{Entries: len(c.entries)}
	for _, entry := range c.entries {
		if entry.Fresh(now) {
			stats.Fresh++
		} else {
			stats.Stale++
		}
		if stats.Oldest.IsZero() || entry.Price.FetchedAt.Before(stats.Oldest) {
			stats.Oldest = entry.Price.FetchedAt
		}
	}
	return stats
}

type snapshotFile struct {
	Version int                   `json:"version"`
	SavedAt time.Time             `json:"saved_at"`
	Entries map[string]CacheEntry `json:"entries"`
}

// SaveSnapshot persists the current entries through the blob store so
// a restart does not begin with an empty cache. Entries already past
// the stale ceiling are dropped rather than written.
func (c *Cache) SaveSnapshot(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	now := c.now()

	c.mu.RLock()
	snap := snapshotFile{
		Version: snapshotVersion,
		SavedAt: now,
		Entries: make(map[string]CacheEntry, len(c.entries)),
	}
	for key, entry := range c.entries {
		if entry.Age(now) >= c.ceiling {
			continue
		}
		snap.Entries[key] = entry
	}
	c.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cache snapshot: %w", err)
	}
	if err := c.store.Put(ctx, c.snapshotKey, data); err != nil {
		return fmt.Errorf("persist cache snapshot: %w", err)
	}
	c.logger.Info("cache snapshot saved", "key", c.snapshotKey, "entries", len(snap.Entries))
	return nil
}

// LoadSnapshot restores entries persisted by SaveSnapshot. A missing
// snapshot is a cold start, not an error. Entries past the stale
// ceiling are discarded on load.
func (c *Cache) LoadSnapshot(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	data, err := c.store.Get(ctx, c.snapshotKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			c.logger.Debug("no cache snapshot found", "key", c.snapshotKey)
			return nil
		}
		return fmt.Errorf("read cache snapshot: %w", err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode cache snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		c.logger.Warn("ignoring cache snapshot with unknown version", "version", snap.Version)
		return nil
	}

	now := c.now()
	loaded := 0
	c.mu.Lock()
	for key, entry := range snap.Entries {
		if entry.Age(now) >= c.ceiling {
			continue
		}
		c.entries[key] = entry
		loaded++
	}
	c.mu.Unlock()

	c.logger.Info("cache snapshot loaded", "key", c.snapshotKey, "entries", loaded)
	return nil
}
