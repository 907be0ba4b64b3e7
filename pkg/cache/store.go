// Package cache is a disk-backed LRU cache for fetched comment feeds.
//
// Entries outlive their TTL: an expired entry is no longer served by Get
// but stays available through Lookup until it is evicted or passes
// MaxStale, so a caller can fall back to the last good feed when the
// upstream is down.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// StoreConfig holds configuration for a cache Store.
type StoreConfig struct {
	// Dir is the directory path where cache files are stored.
	Dir string

	// MaxSizeMB is the maximum total cache size in megabytes. Default: 50.
	MaxSizeMB int

	// DefaultTTL is how long an entry is fresh. Zero means entries never
	// go stale by time.
	DefaultTTL time.Duration

	// MaxStale is how long an expired entry is kept for stale reads. Zero
	// keeps it until it is evicted by size.
	MaxStale time.Duration

	// CleanupInterval is how often the background goroutine drops entries
	// past MaxStale. Default: 5 minutes.
	CleanupInterval time.Duration

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}

// CacheStats holds runtime statistics for a cache Store.
type CacheStats struct {
	Hits      int64
	StaleHits int64
	Misses    int64
	Evictions int64
	Size      int64
	Entries   int
}

// Entry is a cached value and its freshness.
type Entry struct {
	Key     string
	Data    []byte
	Created time.Time
	TTL     time.Duration
	Stale   bool
}

// entryMeta is persisted next to each data file.
type entryMeta struct {
	Key     string `json:"key"`
	Created int64  `json:"created"` // UnixNano
	TTLNS   int64  `json:"ttl_ns"`  // 0 = no TTL
	Size    int64  `json:"size"`
}

type lruEntry struct {
	name string
	meta entryMeta
}

// Store is a disk-backed key-value cache with LRU eviction. Each entry is
// two files, {name}.feed and {name}.meta, written atomically.
type Store struct {
	cfg StoreConfig

	mu        sync.Mutex
	lru       *list.List               // front = most recently used
	items     map[string]*list.Element // name -> element holding *lruEntry
	curSize   int64
	hits      int64
	staleHits int64
	misses    int64
	evictions int64

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewStore opens the cache in cfg.Dir, creating it if needed, and rebuilds
// the index from the entries already on disk.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 50
	}
	if cfg.DefaultTTL < 0 {
		cfg.DefaultTTL = 0
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("cache: create directory %s: %w", cfg.Dir, err)
	}

	s := &Store{
		cfg:   cfg,
		lru:   list.New(),
		items: make(map[string]*list.Element),
		done:  make(chan struct{}),
	}
	if err := s.scanDir(); err != nil {
		return nil, fmt.Errorf("cache: scan directory: %w", err)
	}

	s.wg.Add(1)
	go s.cleanupLoop()
	return s, nil
}

// Get returns the value for key while it is fresh.
func (s *Store) Get(key string) ([]byte, bool) {
	e, ok := s.lookup(key, false)
	if !ok {
		return nil, false
	}
	return e.Data, true
}

// Lookup returns the entry for key, fresh or stale. Entries past MaxStale
// are gone.
func (s *Store) Lookup(key string) (Entry, bool) {
	return s.lookup(key, true)
}

func (s *Store) lookup(key string, allowStale bool) (Entry, bool) {
	name := entryName(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[name]
	if !ok {
		s.misses++
		return Entry{}, false
	}
	le := elem.Value.(*lruEntry)
	if s.pastMaxStale(le.meta) {
		s.removeLocked(name, elem)
		s.misses++
		return Entry{}, false
	}
	stale := s.isStale(le.meta)
	if stale && !allowStale {
		s.misses++
		return Entry{}, false
	}

	data, err := os.ReadFile(s.dataPath(name))
	if err != nil {
		s.removeLocked(name, elem)
		s.misses++
		return Entry{}, false
	}

	s.lru.MoveToFront(elem)
	if stale {
		s.staleHits++
	} else {
		s.hits++
	}
	return Entry{
		Key:     le.meta.Key,
		Data:    data,
		Created: time.Unix(0, le.meta.Created),
		TTL:     time.Duration(le.meta.TTLNS),
		Stale:   stale,
	}, true
}

// Put stores value under key with the default TTL.
func (s *Store) Put(key string, value []byte) error {
	return s.PutWithTTL(key, value, s.cfg.DefaultTTL)
}

// PutWithTTL stores value under key with a custom TTL. A TTL of 0 means
// the entry is always fresh.
func (s *Store) PutWithTTL(key string, value []byte, ttl time.Duration) error {
	name := entryName(key)
	meta := entryMeta{
		Key:     key,
		Created: s.cfg.Now().UnixNano(),
		TTLNS:   int64(ttl),
		Size:    int64(len(value)),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("cache: marshal meta for %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicWrite(s.dataPath(name), value, s.cfg.Dir); err != nil {
		return fmt.Errorf("cache: write data for %q: %w", key, err)
	}
	if err := atomicWrite(s.metaPath(name), metaBytes, s.cfg.Dir); err != nil {
		_ = os.Remove(s.dataPath(name))
		return fmt.Errorf("cache: write meta for %q: %w", key, err)
	}

	if elem, ok := s.items[name]; ok {
		le := elem.Value.(*lruEntry)
		s.curSize += meta.Size - le.meta.Size
		le.meta = meta
		s.lru.MoveToFront(elem)
	} else {
		s.items[name] = s.lru.PushFront(&lruEntry{name: name, meta: meta})
		s.curSize += meta.Size
	}
	s.evictLocked()
	return nil
}

// Delete removes key from the cache.
func (s *Store) Delete(key string) {
	name := entryName(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.items[name]; ok {
		s.removeLocked(name, elem)
	}
}

// Keys returns every key still available to Lookup, most recent first.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		le := elem.Value.(*lruEntry)
		if !s.pastMaxStale(le.meta) {
			keys = append(keys, le.meta.Key)
		}
	}
	return keys
}

// Clear removes every entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache: clear read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isCacheFile(e.Name()) {
			continue
		}
		_ = os.Remove(filepath.Join(s.cfg.Dir, e.Name()))
	}
	s.lru.Init()
	s.items = make(map[string]*list.Element)
	s.curSize = 0
	return nil
}

// Stats returns a snapshot of cache statistics.
func (s *Store) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CacheStats{
		Hits:      s.hits,
		StaleHits: s.staleHits,
		Misses:    s.misses,
		Evictions: s.evictions,
		Size:      s.curSize,
		Entries:   s.lru.Len(),
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}

// entryName maps a key to a filesystem-safe name: the first 16 hex
// characters of its SHA-256.
func entryName(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:8])
}

func isCacheFile(name string) bool {
	return strings.HasSuffix(name, ".feed") ||
		strings.HasSuffix(name, ".meta") ||
		strings.HasPrefix(name, ".tmp-")
}

func (s *Store) dataPath(name string) string {
	return filepath.Join(s.cfg.Dir, name+".feed")
}

func (s *Store) metaPath(name string) string {
	return filepath.Join(s.cfg.Dir, name+".meta")
}

func (s *Store) expiresAt(m entryMeta) (time.Time, bool) {
	if m.TTLNS <= 0 {
		return time.Time{}, false
	}
	return time.Unix(0, m.Created).Add(time.Duration(m.TTLNS)), true
}

func (s *Store) isStale(m entryMeta) bool {
	exp, ok := s.expiresAt(m)
	return ok && s.cfg.Now().After(exp)
}

func (s *Store) pastMaxStale(m entryMeta) bool {
	if s.cfg.MaxStale <= 0 {
		return false
	}
	exp, ok := s.expiresAt(m)
	return ok && s.cfg.Now().After(exp.Add(s.cfg.MaxStale))
}

// removeLocked drops an entry and its files. Caller holds s.mu.
func (s *Store) removeLocked(name string, elem *list.Element) {
	le := elem.Value.(*lruEntry)
	s.curSize -= le.meta.Size
	s.lru.Remove(elem)
	delete(s.items, name)
	_ = os.Remove(s.dataPath(name))
	_ = os.Remove(s.metaPath(name))
}

// evictLocked trims the cache to MaxSizeMB, stale entries first and then
// least recently used. Caller holds s.mu.
func (s *Store) evictLocked() {
	maxBytes := int64(s.cfg.MaxSizeMB) * 1024 * 1024
	if s.curSize <= maxBytes {
		return
	}
	for elem := s.lru.Back(); elem != nil && s.curSize > maxBytes; {
		prev := elem.Prev()
		le := elem.Value.(*lruEntry)
		if s.isStale(le.meta) {
			s.removeLocked(le.name, elem)
			s.evictions++
		}
		elem = prev
	}
	for s.curSize > maxBytes && s.lru.Len() > 0 {
		back := s.lru.Back()
		s.removeLocked(back.Value.(*lruEntry).name, back)
		s.evictions++
	}
}

// scanDir rebuilds the index from the .meta files on disk, dropping
// orphans, corrupt metadata and entries past MaxStale.
func (s *Store) scanDir() error {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		fname := e.Name()
		if e.IsDir() || !strings.HasSuffix(fname, ".meta") {
			continue
		}
		name := strings.TrimSuffix(fname, ".meta")

		if _, err := os.Stat(s.dataPath(name)); err != nil {
			_ = os.Remove(s.metaPath(name))
			continue
		}
		var meta entryMeta
		raw, err := os.ReadFile(s.metaPath(name))
		if err == nil {
			err = json.Unmarshal(raw, &meta)
		}
		if err != nil || s.pastMaxStale(meta) {
			_ = os.Remove(s.metaPath(name))
			_ = os.Remove(s.dataPath(name))
			continue
		}

		s.items[name] = s.lru.PushBack(&lruEntry{name: name, meta: meta})
		s.curSize += meta.Size
	}
	return nil
}

func (s *Store) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep removes entries past MaxStale.
func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for elem := s.lru.Front(); elem != nil; {
		next := elem.Next()
		le := elem.Value.(*lruEntry)
		if s.pastMaxStale(le.meta) {
			s.removeLocked(le.name, elem)
			s.evictions++
		}
		elem = next
	}
}

// atomicWrite writes data to path via a temporary file and rename.
func atomicWrite(path string, data []byte, tmpDir string) error {
	tmp, err := os.CreateTemp(tmpDir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	success = true
	return nil
}
