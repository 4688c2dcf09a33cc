package internal

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/gnolang/asymptote/internal/types"
)

const (
	cacheFileName = "analysis_cache.gob"

	// DefaultCacheMaxAge applies when no max age is configured.
	DefaultCacheMaxAge = 24 * time.Hour
)

type CacheEntry struct {
	// Results holds the JSON encoding of the analysis results.
	Results      []byte
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Cache stores analysis results keyed by the hash of the analyzed source
// and every option that changes the outcome. It is safe for concurrent
// use.
type Cache struct {
	CacheDir string
	entries  map[uint64]CacheEntry
	mutex    sync.RWMutex
	maxAge   time.Duration
}

func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &Cache{
		CacheDir: cacheDir,
		entries:  make(map[uint64]CacheEntry),
		maxAge:   DefaultCacheMaxAge,
	}

	if err := cache.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	return cache, nil
}

// CacheKey hashes the source with the options that produced its results.
func CacheKey(source []byte, variant ...string) uint64 {
	d := xxhash.New()
	_, _ = d.Write(source)
	for _, v := range variant {
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(v)
	}
	return d.Sum64()
}

func (c *Cache) path() string {
	return filepath.Join(c.CacheDir, cacheFileName)
}

func (c *Cache) load() error {
	file, err := os.Open(c.path())
	if os.IsNotExist(err) {
		return nil // cache file doesn't exist yet. This is fine.
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}

	return nil
}

func (c *Cache) save() error {
	file, err := os.Create(c.path())
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}

	return nil
}

func (c *Cache) Set(key uint64, results []*types.AnalysisResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	c.entries[key] = CacheEntry{
		Results:      data,
		CreatedAt:    now,
		LastAccessed: now,
	}

	return c.save()
}

// Get returns the cached results for key. Expressions in the returned
// results are opaque; they render like the originals.
func (c *Cache) Get(key uint64) ([]*types.AnalysisResult, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if time.Since(entry.CreatedAt) > c.maxAge {
		delete(c.entries, key)
		return nil, false
	}

	results, err := types.DecodeResults(entry.Results)
	if err != nil {
		delete(c.entries, key)
		return nil, false
	}

	entry.LastAccessed = time.Now()
	c.entries[key] = entry

	return results, true
}

func (c *Cache) SetMaxAge(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if duration <= 0 {
		duration = DefaultCacheMaxAge
	}
	c.maxAge = duration
}

// Prune drops expired entries and returns how many were removed.
func (c *Cache) Prune() (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if time.Since(entry.CreatedAt) > c.maxAge {
			delete(c.entries, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, c.save()
}

func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

func (c *Cache) InvalidateAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[uint64]CacheEntry)
	_ = c.save() // ignore error as this is a manual operation
}
