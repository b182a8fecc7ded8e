package core

// Multi-level cache (spec.md §4.6): L1 in-process LRU, L2 disk LRU, L3
// persistent JSON key-value store with TTL, L4 falls through to the
// remote transport. Grounded on storage.go's diskLRU (newDiskLRU/put/get
// with eviction) in the teacher repo for L2; L1 uses
// hashicorp/golang-lru/v2 directly rather than hand-rolling, matching how
// the rest of the pack reaches for a maintained LRU instead of
// reimplementing one (see DESIGN.md).

import (
	"container/list"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics are the counters exposed for the cache (spec.md §4.6).
type CacheMetrics struct {
	Hits   *prometheus.CounterVec // label "level": l1|l2|l3
	Misses prometheus.Counter
}

// NewCacheMetrics registers cache counters with reg. Safe to call with a
// fresh prometheus.NewRegistry() in tests.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walgit_cache_hits_total",
			Help: "Cache hits by level.",
		}, []string{"level"}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walgit_cache_misses_total",
			Help: "Cache misses that fell through every level.",
		}),
	}
	reg.MustRegister(m.Hits, m.Misses)
	return m
}

// diskLRUCache is the L2 tier: a bounded-size directory of cached blobs
// with LRU eviction, mirroring storage.go's diskLRU in the teacher repo.
type diskLRUCache struct {
	mu       sync.Mutex
	dir      string
	maxBytes int64
	curBytes int64
	order    *list.List
	index    map[string]*list.Element
}

type diskLRUEntry struct {
	key  string
	size int64
}

func newDiskLRUCache(dir string, maxBytes int64) (*diskLRUCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, IOError("create L2 cache directory", err)
	}
	return &diskLRUCache{
		dir:      dir,
		maxBytes: maxBytes,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}, nil
}

func (c *diskLRUCache) path(key string) string {
	return filepath.Join(c.dir, key)
}

func (c *diskLRUCache) put(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return IOError("write L2 cache entry", err)
	}
	if el, ok := c.index[key]; ok {
		c.order.MoveToFront(el)
		c.curBytes -= el.Value.(*diskLRUEntry).size
		el.Value.(*diskLRUEntry).size = int64(len(data))
		c.curBytes += int64(len(data))
	} else {
		el := c.order.PushFront(&diskLRUEntry{key: key, size: int64(len(data))})
		c.index[key] = el
		c.curBytes += int64(len(data))
	}
	c.evict()
	return nil
}

func (c *diskLRUCache) evict() {
	for c.curBytes > c.maxBytes && c.order.Len() > 0 {
		back := c.order.Back()
		entry := back.Value.(*diskLRUEntry)
		os.Remove(c.path(entry.key))
		c.curBytes -= entry.size
		c.order.Remove(back)
		delete(c.index, entry.key)
	}
}

func (c *diskLRUCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	c.order.MoveToFront(el)
	return data, true
}

// persistentEntry is one row of the L3 JSON KV store.
type persistentEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// persistentCache is the L3 tier: durable across process restarts, with
// per-entry TTL (spec.md §4.6).
type persistentCache struct {
	mu   sync.Mutex
	path string
	ttl  time.Duration
	data map[string]persistentEntry
}

func newPersistentCache(path string, ttl time.Duration) (*persistentCache, error) {
	p := &persistentCache{path: path, ttl: ttl, data: make(map[string]persistentEntry)}
	if b, err := os.ReadFile(path); err == nil {
		json.Unmarshal(b, &p.data)
	}
	return p, nil
}

func (p *persistentCache) get(key string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.data[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.ExpiresAt) {
		delete(p.data, key)
		return nil, false
	}
	return e.Data, true
}

func (p *persistentCache) put(key string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = persistentEntry{Data: data, ExpiresAt: time.Now().Add(p.ttl)}
	b, err := json.Marshal(p.data)
	if err != nil {
		return CodecError("marshal L3 cache", err)
	}
	if err := os.WriteFile(p.path, b, 0o644); err != nil {
		return IOError("write L3 cache file", err)
	}
	return nil
}

// Cache composes L1-L4 behind a single Get/Put contract, populating
// faster levels on a slow-level hit (spec.md §4.6 "cache coherence":
// reads always see the most recently put value).
type Cache struct {
	l1      *lru.Cache[Hash, []byte]
	l2      *diskLRUCache
	l3      *persistentCache
	remote  *RemoteTransport
	metrics *CacheMetrics
}

// CacheConfig sizes each tier (spec.md §4.6).
type CacheConfig struct {
	L1Entries  int
	L2Bytes    int64
	L3TTL      time.Duration
	CacheDir   string
}

// NewCache wires all four tiers; remote may be nil if L4 is unused (e.g.
// a purely local clone).
func NewCache(cfg CacheConfig, remote *RemoteTransport, metrics *CacheMetrics) (*Cache, error) {
	l1, err := lru.New[Hash, []byte](cfg.L1Entries)
	if err != nil {
		return nil, IOError("construct L1 cache", err)
	}
	l2, err := newDiskLRUCache(filepath.Join(cfg.CacheDir, "l2"), cfg.L2Bytes)
	if err != nil {
		return nil, err
	}
	l3, err := newPersistentCache(filepath.Join(cfg.CacheDir, "l3.json"), cfg.L3TTL)
	if err != nil {
		return nil, err
	}
	return &Cache{l1: l1, l2: l2, l3: l3, remote: remote, metrics: metrics}, nil
}

// Get returns a blob's bytes from L1-L3, promoting hits from slower
// tiers to faster ones. A miss here means the caller should fall
// through to L4 (prefetch.go's FetchWithPrefetch) against the remote
// transport.
func (c *Cache) Get(h Hash) ([]byte, error) {
	if b, ok := c.l1.Get(h); ok {
		c.hit("l1")
		return b, nil
	}
	key := h.String()
	if b, ok := c.l2.get(key); ok {
		c.hit("l2")
		c.l1.Add(h, b)
		return b, nil
	}
	if b, ok := c.l3.get(key); ok {
		c.hit("l3")
		c.l1.Add(h, b)
		c.l2.put(key, b)
		return b, nil
	}
	c.miss()
	return nil, NotFoundError("cache entry", key)
}

// Put inserts a value into every tier (spec.md §4.6's write-through
// policy), keeping all levels coherent on the next read.
func (c *Cache) Put(h Hash, data []byte) error {
	c.l1.Add(h, data)
	key := h.String()
	if err := c.l2.put(key, data); err != nil {
		return err
	}
	return c.l3.put(key, data)
}

func (c *Cache) hit(level string) {
	if c.metrics != nil {
		c.metrics.Hits.WithLabelValues(level).Inc()
	}
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.Misses.Inc()
	}
}
