package core

// Bounded on-disk LRU cache for aggregator blobs. The index map is guarded
// by a single mutex that is never held across file or network I/O: readers
// snapshot the path, release, then read; writers download and persist first
// and only reacquire to insert. Files are written to a temp name and renamed
// so a reader can never observe truncated bytes; a missing file is treated
// as a cache miss.

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type blobEntry struct {
	blobID     string
	path       string
	size       int64
	lastAccess uint64
}

// BlobCache caches large aggregator blobs on disk, evicting least-recently
// used entries to keep the total under maxBytes. A maxBytes of zero disables
// caching entirely: every fetch goes to the aggregator.
type BlobCache struct {
	dir      string
	maxBytes int64
	log      *logrus.Logger
	metrics  *Metrics

	mu      sync.Mutex
	entries map[string]*blobEntry
	tick    uint64
}

// NewBlobCache creates the cache directory if needed and rehydrates the
// index from any *.bin files already present.
func NewBlobCache(dir string, maxBytes int64, log *logrus.Logger, metrics *Metrics) (*BlobCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	c := &BlobCache{
		dir:      dir,
		maxBytes: maxBytes,
		log:      log,
		metrics:  metrics,
		entries:  make(map[string]*blobEntry),
	}
	if err := c.rehydrate(); err != nil {
		return nil, err
	}
	return c, nil
}

// rehydrate scans the cache directory and rebuilds the index. Corrupt or
// unreadable files are skipped with a warning.
func (c *BlobCache) rehydrate() error {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read cache directory %s: %w", c.dir, err)
	}
	var loaded int
	var total int64
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".bin") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			c.log.WithField("file", name).WithError(err).Warn("skipping unreadable cache file")
			continue
		}
		blobID := strings.TrimSuffix(name, ".bin")
		c.tick++
		c.entries[blobID] = &blobEntry{
			blobID:     blobID,
			path:       filepath.Join(c.dir, name),
			size:       info.Size(),
			lastAccess: c.tick,
		}
		loaded++
		total += info.Size()
	}
	if loaded > 0 {
		c.log.WithFields(logrus.Fields{
			"blobs": loaded, "bytes": total, "dir": c.dir,
		}).Info("rehydrated blob cache")
	}
	c.publishSize()
	return nil
}

// Disabled reports whether the cache passes everything through.
func (c *BlobCache) Disabled() bool { return c.maxBytes <= 0 }

// SizeBytes returns the sum of cached entry sizes.
func (c *BlobCache) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sizeLocked()
}

// Len returns the number of cached entries.
func (c *BlobCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Has reports whether blobID is currently indexed.
func (c *BlobCache) Has(blobID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[blobID]
	return ok
}

func (c *BlobCache) sizeLocked() int64 {
	var total int64
	for _, e := range c.entries {
		total += e.size
	}
	return total
}

// Fetch returns the blob's bytes, downloading and caching on a miss.
// Concurrent fetches of the same blob may download twice; the last write
// wins and both callers get correct bytes.
func (c *BlobCache) Fetch(blobID string, expectedSize int64, download func() ([]byte, error)) ([]byte, error) {
	if c.Disabled() {
		return download()
	}

	// Fast path: indexed and readable.
	c.mu.Lock()
	if e, ok := c.entries[blobID]; ok {
		c.tick++
		e.lastAccess = c.tick
		path := e.path
		c.mu.Unlock()

		data, err := os.ReadFile(path)
		if err == nil {
			if c.metrics != nil {
				c.metrics.BlobCacheHits.Inc()
			}
			return data, nil
		}
		// The file vanished underneath us: drop the entry and fall through
		// to a normal miss.
		c.log.WithField("blob", blobID).WithError(err).Warn("cached blob unreadable, refetching")
		c.mu.Lock()
		delete(c.entries, blobID)
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.BlobCacheMisses.Inc()
	}
	data, err := download()
	if err != nil {
		return nil, err
	}

	size := int64(len(data))
	c.evictFor(size)

	path := filepath.Join(c.dir, blobID+".bin")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("write blob %s: %w", blobID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("persist blob %s: %w", blobID, err)
	}

	c.mu.Lock()
	c.tick++
	c.entries[blobID] = &blobEntry{blobID: blobID, path: path, size: size, lastAccess: c.tick}
	c.mu.Unlock()
	c.publishSize()

	return data, nil
}

// evictFor makes room for an incoming entry of the given size. When the
// insert would exceed the bound, oldest-access entries are evicted until the
// cache is at most half full, amortizing eviction cost across many inserts.
// A file that cannot be deleted keeps its entry.
func (c *BlobCache) evictFor(incoming int64) {
	c.mu.Lock()
	current := c.sizeLocked()
	if current+incoming <= c.maxBytes {
		c.mu.Unlock()
		return
	}
	victims := make([]*blobEntry, 0, len(c.entries))
	for _, e := range c.entries {
		victims = append(victims, e)
	}
	sort.Slice(victims, func(i, j int) bool { return victims[i].lastAccess < victims[j].lastAccess })
	target := c.maxBytes / 2

	var planned []*blobEntry
	remaining := current
	for _, e := range victims {
		if remaining <= target {
			break
		}
		planned = append(planned, e)
		remaining -= e.size
	}
	c.mu.Unlock()

	var evicted int
	for _, e := range planned {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			c.log.WithField("blob", e.blobID).WithError(err).Warn("failed to evict blob")
			continue
		}
		c.mu.Lock()
		delete(c.entries, e.blobID)
		c.mu.Unlock()
		evicted++
		if c.metrics != nil {
			c.metrics.BlobCacheEvictions.Inc()
		}
	}
	if evicted > 0 {
		c.log.WithFields(logrus.Fields{"evicted": evicted, "incoming": incoming}).Info("evicted cached blobs")
	}
	c.publishSize()
}

func (c *BlobCache) publishSize() {
	if c.metrics == nil {
		return
	}
	c.metrics.BlobCacheSizeBytes.Set(float64(c.SizeBytes()))
}
