package service

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"sync"
	"time"
)

// Fingerprint computes the key-qualified cache key for a plaintext. The key
// id and version are part of the hash so an entry written under one key can
// never be served after a rotation or a policy re-registration onto another
// key, even if the accompanying cache clear were delayed. Variable-length
// inputs are length-prefixed to keep their boundaries unambiguous.
func Fingerprint(fieldID, keyID string, keyVersion uint32, plaintext []byte) string {
	hash := sha256.New()

	var lengths [16]byte
	binary.BigEndian.PutUint32(lengths[0:4], uint32(len(fieldID)))
	binary.BigEndian.PutUint32(lengths[4:8], uint32(len(keyID)))
	binary.BigEndian.PutUint32(lengths[8:12], keyVersion)
	binary.BigEndian.PutUint32(lengths[12:16], uint32(len(plaintext)))

	hash.Write(lengths[0:4])
	hash.Write([]byte(fieldID))
	hash.Write(lengths[4:8])
	hash.Write([]byte(keyID))
	hash.Write(lengths[8:12])
	hash.Write(lengths[12:16])
	hash.Write(plaintext)

	return hex.EncodeToString(hash.Sum(nil))
}

// cacheEntry is one cached ciphertext with usage metadata for eviction.
type cacheEntry struct {
	ciphertext []byte
	lastUsed   time.Time
	hits       uint32
}

// EncryptionCache maps plaintext fingerprints to ciphertext so repeated
// encryptions of identical values skip the AEAD work. Entries live only in
// memory and are never persisted.
//
// When the cache is full the oldest fifth of the entries by last use is
// evicted in one pass. Rotation clears the whole cache synchronously through
// Clear; the version-qualified fingerprint is the backstop.
type EncryptionCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	maxEntries int

	hitCount      uint64
	missCount     uint64
	evictionCount uint64
}

// evictFraction is the share of entries removed when the cache fills up.
const evictFraction = 5

// NewEncryptionCache creates a cache bounded to maxEntries. A bound below one
// disables caching entirely; Lookup always misses and Store is a no-op.
func NewEncryptionCache(maxEntries int) *EncryptionCache {
	return &EncryptionCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
	}
}

// Lookup returns the cached ciphertext for the fingerprint and bumps its
// usage metadata. A copy is returned so callers cannot mutate the entry.
func (c *EncryptionCache) Lookup(fingerprint string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		c.missCount++
		return nil, false
	}

	entry.lastUsed = time.Now().UTC()
	entry.hits++
	c.hitCount++

	ciphertext := make([]byte, len(entry.ciphertext))
	copy(ciphertext, entry.ciphertext)
	return ciphertext, true
}

// Store caches ciphertext under the fingerprint, evicting the least recently
// used entries first when the bound is exceeded.
func (c *EncryptionCache) Store(fingerprint string, ciphertext []byte) {
	if c.maxEntries < 1 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[fingerprint]; !ok && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	buf := make([]byte, len(ciphertext))
	copy(buf, ciphertext)
	c.entries[fingerprint] = &cacheEntry{
		ciphertext: buf,
		lastUsed:   time.Now().UTC(),
	}
}

// evictOldest removes the least recently used fifth of the entries. Must be
// called with the lock held.
func (c *EncryptionCache) evictOldest() {
	type aged struct {
		fingerprint string
		lastUsed    time.Time
	}

	candidates := make([]aged, 0, len(c.entries))
	for fingerprint, entry := range c.entries {
		candidates = append(candidates, aged{fingerprint: fingerprint, lastUsed: entry.lastUsed})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastUsed.Before(candidates[j].lastUsed)
	})

	evictCount := len(candidates) / evictFraction
	if evictCount < 1 {
		evictCount = 1
	}
	for _, candidate := range candidates[:evictCount] {
		delete(c.entries, candidate.fingerprint)
		c.evictionCount++
	}
}

// Clear synchronously drops every entry. Key rotation calls this before it
// returns so no ciphertext encrypted under the retired version can be served
// afterwards.
func (c *EncryptionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Len returns the current number of entries.
func (c *EncryptionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the lifetime hit, miss and eviction counters.
func (c *EncryptionCache) Stats() (hits, misses, evictions uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitCount, c.missCount, c.evictionCount
}
