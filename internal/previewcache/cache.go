// Package previewcache keeps indexed dataset tables in memory so that
// dashboard interactions do not rescan the dataset root on every request.
package previewcache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/dataset"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
	"github.com/tphakala/labelgrid/internal/observability/metrics"
)

// cacheName labels lookups in the cache metrics.
const cacheName = "tables"

// Invalidation reasons.
const (
	ReasonWatch  = "watch"
	ReasonManual = "manual"
	ReasonFlush  = "flush"
)

// Query selects one indexed view of a dataset.
type Query struct {
	Version        conf.DatasetVersion `json:"version"`
	SamplePerLabel int                 `json:"sample_per_label"`
	Labelspace     conf.Labelspace     `json:"labelspace"`
	Shuffle        bool                `json:"shuffle"`
}

// key identifies the tables a query produces. Shuffle does not change them.
func (q Query) key() string {
	return fmt.Sprintf("%s/%d/%s", q.Version, q.SamplePerLabel, q.Labelspace)
}

// Snapshot is an indexed view. Callers must not modify its tables.
type Snapshot struct {
	Query     Query                `json:"query"`
	Items     dataset.ItemTable    `json:"-"`
	Labels    dataset.LabelTable   `json:"-"`
	Counts    []dataset.LabelCount `json:"-"`
	IndexedAt time.Time            `json:"indexed_at"`
	Duration  time.Duration        `json:"duration"`
}

// Root returns the dataset root the snapshot was indexed from.
func (s *Snapshot) Root(roots conf.RootDirs) (string, error) {
	return roots.Root(s.Query.Version)
}

// Stats reports cache activity since creation.
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Scans   uint64 `json:"scans"`
}

// Cache indexes datasets on demand and keeps the result for a TTL.
// It is safe for concurrent use.
type Cache struct {
	fs       afero.Fs
	roots    conf.RootDirs
	settings conf.CacheSettings
	store    *cache.Cache
	group    singleflight.Group

	// generations counts invalidations per version; a scan that started
	// under an older generation is not stored
	genMu       sync.Mutex
	generations map[conf.DatasetVersion]uint64

	datasetMetrics *metrics.DatasetMetrics
	cacheMetrics   *metrics.CacheMetrics

	hits   atomic.Uint64
	misses atomic.Uint64
	scans  atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics records scans and lookups.
func WithMetrics(d *metrics.DatasetMetrics, c *metrics.CacheMetrics) Option {
	return func(pc *Cache) {
		pc.datasetMetrics = d
		pc.cacheMetrics = c
	}
}

// New returns a cache over roots. fs is only read.
func New(fs afero.Fs, roots conf.RootDirs, settings *conf.CacheSettings, opts ...Option) *Cache {
	c := &Cache{
		fs:          fs,
		roots:       roots,
		settings:    *settings,
		store:       cache.New(settings.TTL, settings.Cleanup),
		generations: make(map[conf.DatasetVersion]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store.OnEvicted(func(string, any) {
		c.cacheMetrics.SetEntries(c.store.ItemCount())
	})
	return c
}

// Roots returns the configured dataset roots.
func (c *Cache) Roots() conf.RootDirs {
	return c.roots
}

// Get returns the snapshot for q, indexing the dataset on a miss. Concurrent
// misses for the same tables share one scan. ctx only bounds the wait.
func (c *Cache) Get(ctx context.Context, q Query) (*Snapshot, error) {
	if _, err := dataset.LayoutFor(q.Version); err != nil {
		return nil, err
	}
	if q.SamplePerLabel < 0 {
		return nil, errors.ConfigError(fmt.Errorf("sample per label must not be negative, got %d", q.SamplePerLabel)).
			Context("sample_per_label", q.SamplePerLabel).
			Build()
	}
	if q.Labelspace == "" {
		q.Labelspace = conf.LabelspaceObserved
	}

	key := q.key()
	if v, ok := c.store.Get(key); ok {
		c.hits.Add(1)
		c.cacheMetrics.RecordLookup(cacheName, true)
		return withShuffle(v.(*Snapshot), q.Shuffle), nil
	}
	c.misses.Add(1)
	c.cacheMetrics.RecordLookup(cacheName, false)

	gen := c.generation(q.Version)
	flight := fmt.Sprintf("%s#%d", key, gen)
	ch := c.group.DoChan(flight, func() (any, error) {
		return c.index(q, gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return withShuffle(res.Val.(*Snapshot), q.Shuffle), nil
	}
}

func (c *Cache) generation(version conf.DatasetVersion) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.generations[version]
}

// bump starts a new generation for each version.
func (c *Cache) bump(versions ...conf.DatasetVersion) {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	for _, v := range versions {
		c.generations[v]++
	}
}

// storeIfCurrent caches snap unless version was invalidated after gen.
func (c *Cache) storeIfCurrent(key string, snap *Snapshot, gen uint64) bool {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if c.generations[snap.Query.Version] != gen {
		return false
	}
	c.store.Set(key, snap, cache.DefaultExpiration)
	return true
}

func (c *Cache) index(q Query, gen uint64) (*Snapshot, error) {
	c.scans.Add(1)
	start := time.Now()

	items, labels, err := dataset.IndexVersion(c.fs, c.roots, q.Version, q.SamplePerLabel, q.Labelspace, false)
	elapsed := time.Since(start)
	c.datasetMetrics.RecordIndexScan(q.Version.String(), q.Labelspace.String(), elapsed.Seconds(), len(items), len(labels), err)
	if err != nil {
		GetLogger().Warn("index scan failed",
			logger.String("version", q.Version.String()),
			logger.Error(err))
		return nil, err
	}

	q.Shuffle = false
	snap := &Snapshot{
		Query:     q,
		Items:     items,
		Labels:    labels,
		Counts:    dataset.CountsForLabels(items, labels),
		IndexedAt: start,
		Duration:  elapsed,
	}
	if !c.storeIfCurrent(q.key(), snap, gen) {
		GetLogger().Debug("dataset changed during scan, result not cached",
			logger.String("key", q.key()))
		return snap, nil
	}
	c.cacheMetrics.SetEntries(c.store.ItemCount())

	GetLogger().Info("indexed dataset",
		logger.String("key", q.key()),
		logger.Int("items", len(items)),
		logger.Int("labels", len(labels)),
		logger.Duration("elapsed", elapsed))

	return snap, nil
}

// withShuffle returns snap with the caller's shuffle flag. Tables are shared.
func withShuffle(snap *Snapshot, shuffle bool) *Snapshot {
	if snap.Query.Shuffle == shuffle {
		return snap
	}
	cp := *snap
	cp.Query.Shuffle = shuffle
	return &cp
}

// Invalidate drops every snapshot of version and returns how many were dropped.
func (c *Cache) Invalidate(version conf.DatasetVersion, reason string) int {
	c.bump(version)
	prefix := version.String() + "/"
	dropped := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			dropped++
		}
	}
	if dropped > 0 {
		c.cacheMetrics.RecordInvalidation(reason)
	}
	c.cacheMetrics.SetEntries(c.store.ItemCount())

	GetLogger().Debug("cache invalidated",
		logger.String("version", version.String()),
		logger.String("reason", reason),
		logger.Int("dropped", dropped))
	return dropped
}

// Flush drops every snapshot.
func (c *Cache) Flush() {
	c.bump(conf.SupportedVersions...)
	c.store.Flush()
	c.cacheMetrics.RecordInvalidation(ReasonFlush)
	c.cacheMetrics.SetEntries(0)
}

// Stats returns cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.store.ItemCount(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Scans:   c.scans.Load(),
	}
}
