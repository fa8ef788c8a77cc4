package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process KV backend. It is the default for tests and
// single-process deployments that accept losing state on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemoryStore creates a memory backend with every known bucket provisioned.
func NewMemoryStore() *MemoryStore {
	buckets := make(map[string]map[string][]byte, len(Buckets))
	for _, name := range Buckets {
		buckets[name] = make(map[string][]byte)
	}
	return &MemoryStore{buckets: buckets}
}

// Put stores a copy of value under bucket/key, overwriting any previous entry.
func (m *MemoryStore) Put(ctx context.Context, bucket, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, ok := m.buckets[bucket]
	if !ok {
		entries = make(map[string][]byte)
		m.buckets[bucket] = entries
	}

	buf := make([]byte, len(value))
	copy(buf, value)
	entries[key] = buf
	return nil
}

// Get returns a copy of the entry stored under bucket/key.
func (m *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, ok := m.buckets[bucket]
	if !ok {
		return nil, ErrKeyNotFound
	}

	value, ok := entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	buf := make([]byte, len(value))
	copy(buf, value)
	return buf, nil
}

// Delete removes the entry stored under bucket/key.
func (m *MemoryStore) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, ok := m.buckets[bucket]
	if !ok {
		return ErrKeyNotFound
	}

	if _, ok := entries[key]; !ok {
		return ErrKeyNotFound
	}

	delete(entries, key)
	return nil
}

// ForEach visits every entry in a bucket in ascending key order. The callback
// receives copies, so it may retain them. Iteration stops at the first
// callback error or when ctx is canceled.
func (m *MemoryStore) ForEach(
	ctx context.Context,
	bucket string,
	fn func(key string, value []byte) error,
) error {
	m.mu.RLock()
	entries := m.buckets[bucket]
	keys := make([]string, 0, len(entries))
	snapshot := make(map[string][]byte, len(entries))
	for key, value := range entries {
		buf := make([]byte, len(value))
		copy(buf, value)
		keys = append(keys, key)
		snapshot[key] = buf
	}
	m.mu.RUnlock()

	sort.Strings(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(key, snapshot[key]); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the backend. Memory stores have nothing to release.
func (m *MemoryStore) Close() error {
	return nil
}
