package domain

import (
	"sync"
)

// KeyRing is the in-memory view of unwrapped field keys shared by every
// encryption path. Reads take the read lock; rotation installs the new version
// and flips the active pointer under the write lock, so concurrent readers see
// either the old or the new key, never a partial state.
type KeyRing struct {
	mu       sync.RWMutex
	active   map[string]*SymmetricKey
	versions map[string]map[uint32]*SymmetricKey
}

// NewKeyRing creates an empty key ring.
func NewKeyRing() *KeyRing {
	return &KeyRing{
		active:   make(map[string]*SymmetricKey),
		versions: make(map[string]map[uint32]*SymmetricKey),
	}
}

// Active returns the active version of the named key.
func (r *KeyRing) Active(keyID string) (*SymmetricKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.active[keyID]
	return key, ok
}

// Version returns a specific version of the named key, active or retired.
func (r *KeyRing) Version(keyID string, version uint32) (*SymmetricKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byVersion, ok := r.versions[keyID]
	if !ok {
		return nil, false
	}
	key, ok := byVersion[version]
	return key, ok
}

// Install adds a key version to the ring. When the key is marked active it
// atomically replaces the previous active version, which stays resident for
// decryption of existing ciphertext.
func (r *KeyRing) Install(key *SymmetricKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byVersion, ok := r.versions[key.KeyID]
	if !ok {
		byVersion = make(map[uint32]*SymmetricKey)
		r.versions[key.KeyID] = byVersion
	}
	byVersion[key.Version] = key

	if key.Active {
		if previous, ok := r.active[key.KeyID]; ok && previous.Version != key.Version {
			previous.Active = false
		}
		r.active[key.KeyID] = key
	}
}

// Remove drops a retired key version from the ring and zeroes its material.
// The active version is never removed.
func (r *KeyRing) Remove(keyID string, version uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if active, ok := r.active[keyID]; ok && active.Version == version {
		return
	}

	byVersion, ok := r.versions[keyID]
	if !ok {
		return
	}
	if key, ok := byVersion[version]; ok {
		Zero(key.Key)
		delete(byVersion, version)
	}
}

// KeyIDs returns the logical key names present in the ring.
func (r *KeyRing) KeyIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.versions))
	for id := range r.versions {
		ids = append(ids, id)
	}
	return ids
}

// VersionsOf returns every resident version of the named key.
func (r *KeyRing) VersionsOf(keyID string) []*SymmetricKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byVersion, ok := r.versions[keyID]
	if !ok {
		return nil
	}
	keys := make([]*SymmetricKey, 0, len(byVersion))
	for _, key := range byVersion {
		keys = append(keys, key)
	}
	return keys
}

// Close zeroes all resident key material and empties the ring.
func (r *KeyRing) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, byVersion := range r.versions {
		for _, key := range byVersion {
			Zero(key.Key)
		}
	}
	r.active = make(map[string]*SymmetricKey)
	r.versions = make(map[string]map[uint32]*SymmetricKey)
}
