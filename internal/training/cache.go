package training

import (
	"encoding/binary"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
)

// DefaultCacheSize bounds the feature cache.
const DefaultCacheSize = 256

// Digest identifies a pixel buffer by content.
type Digest [blake2b.Size256]byte

// DigestBuffer hashes the dimensions and samples of buf.
func DigestBuffer(buf *analyzer.PixelBuffer) Digest {
	h, _ := blake2b.New256(nil)
	var dims [16]byte
	binary.BigEndian.PutUint64(dims[:8], uint64(buf.Width))
	binary.BigEndian.PutUint64(dims[8:], uint64(buf.Height))
	h.Write(dims[:])
	h.Write(buf.Pix)

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// FeatureCache is a bounded LRU of extracted feature sets keyed by buffer
// digest. Feature sets do not depend on thresholds, so entries stay valid
// across calibrations.
type FeatureCache struct {
	entries *lru.Cache[Digest, analyzer.FeatureSet]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewFeatureCache creates a cache holding at most size feature sets.
func NewFeatureCache(size int) *FeatureCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[Digest, analyzer.FeatureSet](size)
	return &FeatureCache{entries: entries}
}

// Get returns a cached feature set.
func (c *FeatureCache) Get(key Digest) (analyzer.FeatureSet, bool) {
	fs, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return analyzer.FeatureSet{}, false
	}
	c.hits.Add(1)
	return fs, true
}

// Put stores a feature set, evicting the least recently used one when full.
func (c *FeatureCache) Put(key Digest, features analyzer.FeatureSet) {
	c.entries.Add(key, features)
}

// Clear drops every entry and resets counters.
func (c *FeatureCache) Clear() {
	c.entries.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Len returns the number of cached entries.
func (c *FeatureCache) Len() int {
	return c.entries.Len()
}

// Stats returns hit and miss counts since the last Clear.
func (c *FeatureCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
