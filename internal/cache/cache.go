// Package cache holds analysis and projection results keyed by image
// content hash, with per-type TTLs, capacity-bounded eviction, and a
// persistent snapshot. Cache failures never propagate to request flows.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mohammed-shakir/gridsight/internal/cache/snapshot"
	"github.com/mohammed-shakir/gridsight/internal/core/observability"
)

type Op string

const (
	OpAnalyze     Op = "analyze"
	OpFuture      Op = "future"
	OpFutureImage Op = "futureImage"
)

var ops = []Op{OpAnalyze, OpFuture, OpFutureImage}

type Source string

const (
	SourceAPI      Source = "api"
	SourceDemo     Source = "demo"
	SourceFallback Source = "fallback"
)

// canned sources outlive their nominal TTL so a presentation never goes
// empty-handed.
func (s Source) canned() bool { return s == SourceDemo || s == SourceFallback }

type Status string

const (
	StatusHit     Status = "hit"
	StatusMiss    Status = "miss"
	StatusExpired Status = "expired"
	StatusStale   Status = "stale"
)

type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	Hits      int             `json:"hits"`
	Source    Source          `json:"source"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type TTLTable struct {
	Analyze     time.Duration
	Future      time.Duration
	FutureImage time.Duration
	Canned      time.Duration
}

func (t TTLTable) For(op Op, src Source) time.Duration {
	if src.canned() {
		return t.Canned
	}
	switch op {
	case OpFuture:
		return t.Future
	case OpFutureImage:
		return t.FutureImage
	default:
		return t.Analyze
	}
}

type Caps struct {
	Analyze     int
	Future      int
	FutureImage int
}

func (c Caps) For(op Op) int {
	switch op {
	case OpFuture:
		return c.Future
	case OpFutureImage:
		return c.FutureImage
	default:
		return c.Analyze
	}
}

// snapshotVersion tags the persisted blob; a mismatch on load discards the
// stored cache entirely. Bump on any Entry layout change.
const snapshotVersion = "2"

type persisted struct {
	Version   string              `json:"version"`
	Timestamp time.Time           `json:"timestamp"`
	Data      map[Op]map[string]Entry `json:"data"`
}

type Config struct {
	TTL   TTLTable
	Caps  Caps
	Store snapshot.Store
	Log   *slog.Logger
	Now   func() time.Time
}

type Cache struct {
	mu    sync.Mutex
	data  map[Op]map[string]Entry
	ttl   TTLTable
	caps  Caps
	store snapshot.Store
	log   *slog.Logger
	now   func() time.Time
}

func New(cfg Config) *Cache {
	if cfg.Store == nil {
		cfg.Store = snapshot.Noop{}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	data := make(map[Op]map[string]Entry, len(ops))
	for _, op := range ops {
		data[op] = map[string]Entry{}
	}
	return &Cache{
		data:  data,
		ttl:   cfg.TTL,
		caps:  cfg.Caps,
		store: cfg.Store,
		log:   cfg.Log,
		now:   cfg.Now,
	}
}

// Load restores the persisted snapshot. A missing snapshot, a decode error,
// or a version mismatch all start the cache empty; none are fatal.
func (c *Cache) Load(ctx context.Context) {
	blob, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			c.log.Warn("cache snapshot load failed", "err", err)
		}
		return
	}
	var p persisted
	if err := json.Unmarshal(blob, &p); err != nil {
		c.log.Warn("cache snapshot corrupt, starting empty", "err", err)
		return
	}
	if p.Version != snapshotVersion {
		c.log.Info("cache snapshot version mismatch, discarded",
			"stored", p.Version, "running", snapshotVersion)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, op := range ops {
		if m, ok := p.Data[op]; ok && m != nil {
			c.data[op] = m
			n += len(m)
		}
	}
	c.log.Info("cache snapshot restored", "entries", n)
}

// Get looks up a prior result. demoActive relaxes expiry for every entry;
// demo/fallback sourced entries are relaxed unconditionally.
func (c *Cache) Get(op Op, hash string, demoActive bool) (Status, json.RawMessage) {
	c.mu.Lock()
	e, ok := c.data[op][hash]
	if !ok {
		c.mu.Unlock()
		observability.IncCacheResult(string(op), string(StatusMiss))
		return StatusMiss, nil
	}
	now := c.now()
	if now.Before(e.ExpiresAt) {
		e.Hits++
		c.data[op][hash] = e
		c.mu.Unlock()
		observability.IncCacheResult(string(op), string(StatusHit))
		c.persist(context.Background())
		return StatusHit, e.Data
	}
	if e.Source.canned() || demoActive {
		e.Hits++
		c.data[op][hash] = e
		c.mu.Unlock()
		observability.IncCacheResult(string(op), string(StatusStale))
		return StatusStale, e.Data
	}
	delete(c.data[op], hash)
	c.mu.Unlock()
	observability.IncCacheResult(string(op), string(StatusExpired))
	c.persist(context.Background())
	return StatusExpired, nil
}

// Put replaces any existing entry wholesale and persists the snapshot.
func (c *Cache) Put(ctx context.Context, op Op, hash string, data json.RawMessage, src Source) {
	now := c.now()
	e := Entry{
		Data:      data,
		Timestamp: now,
		Hits:      0,
		Source:    src,
		ExpiresAt: now.Add(c.ttl.For(op, src)),
	}
	c.mu.Lock()
	c.data[op][hash] = e
	c.evictLocked(false)
	c.mu.Unlock()
	c.persist(ctx)
}

// Evict runs the two-phase sweep: expired entries first, then per-type
// capacity. Returns the number of entries dropped.
func (c *Cache) Evict(ctx context.Context, aggressive bool) int {
	c.mu.Lock()
	n := c.evictLocked(aggressive)
	c.mu.Unlock()
	if n > 0 {
		c.persist(ctx)
	}
	return n
}

func (c *Cache) evictLocked(aggressive bool) int {
	now := c.now()
	dropped := 0

	// phase 1: expiry. canned entries are protected unless aggressive.
	for _, op := range ops {
		for k, e := range c.data[op] {
			if now.Before(e.ExpiresAt) {
				continue
			}
			if e.Source.canned() && !aggressive {
				continue
			}
			delete(c.data[op], k)
			dropped++
		}
	}

	// phase 2: capacity. api entries are evicted before canned ones,
	// lowest hit count first, oldest first among ties.
	for _, op := range ops {
		limit := c.caps.For(op)
		if aggressive {
			limit /= 2
		}
		if limit < 1 {
			limit = 1
		}
		m := c.data[op]
		if len(m) <= limit {
			continue
		}
		type kv struct {
			key string
			e   Entry
		}
		victims := make([]kv, 0, len(m))
		for k, e := range m {
			victims = append(victims, kv{k, e})
		}
		sort.Slice(victims, func(i, j int) bool {
			a, b := victims[i].e, victims[j].e
			if a.Source.canned() != b.Source.canned() {
				return !a.Source.canned()
			}
			if a.Hits != b.Hits {
				return a.Hits < b.Hits
			}
			return a.Timestamp.Before(b.Timestamp)
		})
		for _, v := range victims[:len(m)-limit] {
			delete(m, v.key)
			dropped++
		}
	}
	return dropped
}

// Len reports the entry count for one operation type.
func (c *Cache) Len(op Op) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data[op])
}

// Flush persists the current state immediately.
func (c *Cache) Flush(ctx context.Context) {
	c.persist(ctx)
}

// persist serializes the whole map to the snapshot store. Quota failures
// trigger an aggressive eviction and one retry, then a prune as last
// resort. Errors are logged, never returned.
func (c *Cache) persist(ctx context.Context) {
	blob := c.encode()
	err := c.store.Save(ctx, blob)
	if err == nil {
		return
	}
	if !errors.Is(err, snapshot.ErrQuota) {
		c.log.Warn("cache snapshot save failed", "err", err)
		return
	}

	c.mu.Lock()
	n := c.evictLocked(true)
	c.mu.Unlock()
	c.log.Warn("cache snapshot over quota, evicted aggressively", "dropped", n)

	if err := c.store.Save(ctx, c.encode()); err == nil {
		return
	} else if !errors.Is(err, snapshot.ErrQuota) {
		c.log.Warn("cache snapshot retry failed", "err", err)
		return
	}

	if err := c.store.Prune(ctx); err != nil {
		c.log.Warn("cache snapshot prune failed", "err", err)
	}
	if err := c.store.Save(ctx, c.encode()); err != nil {
		c.log.Warn("cache snapshot save failed after prune", "err", err)
	}
}

func (c *Cache) encode() []byte {
	c.mu.Lock()
	p := persisted{
		Version:   snapshotVersion,
		Timestamp: c.now(),
		Data:      make(map[Op]map[string]Entry, len(ops)),
	}
	for _, op := range ops {
		m := make(map[string]Entry, len(c.data[op]))
		for k, v := range c.data[op] {
			m[k] = v
		}
		p.Data[op] = m
	}
	c.mu.Unlock()
	blob, err := json.Marshal(p)
	if err != nil {
		c.log.Error("cache snapshot encode failed", "err", err)
		return []byte(`{}`)
	}
	return blob
}

// StartSweeper runs periodic eviction until ctx is done.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := c.Evict(ctx, false); n > 0 {
					c.log.Debug("cache sweep", "dropped", n)
				}
			}
		}
	}()
}

// Close flushes and releases the snapshot store.
func (c *Cache) Close(ctx context.Context) error {
	c.persist(ctx)
	return c.store.Close()
}
