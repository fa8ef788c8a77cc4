// Package usecase defines the business logic interfaces for key management.
//
// This package contains the key lifecycle operations (generate, rotate, purge)
// and the repository contract they persist through. Implementations coordinate
// the key wrapper service, the wrapped key repository and the in-memory key
// ring, enforcing the single-active-version invariant.
package usecase

import (
	"context"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// KeyRepository defines the interface for wrapped field key persistence.
//
// Implementations store keys only in their master-key-wrapped form. The
// repository is the durable record; the KeyRing holds the unwrapped working
// set in memory.
type KeyRepository interface {
	// Save stores a wrapped key version, overwriting any previous record for
	// the same key id and version.
	Save(ctx context.Context, wrapped *cryptoDomain.WrappedKey) error

	// Get retrieves a single wrapped key version. Returns
	// ErrKeyVersionNotFound when absent.
	Get(ctx context.Context, keyID string, version uint32) (*cryptoDomain.WrappedKey, error)

	// ListVersions retrieves all versions of one key id ordered by version
	// descending, newest first. An unknown key id yields an empty slice.
	ListVersions(ctx context.Context, keyID string) ([]*cryptoDomain.WrappedKey, error)

	// ListAll retrieves every wrapped key version across all key ids.
	ListAll(ctx context.Context) ([]*cryptoDomain.WrappedKey, error)

	// Delete removes a single wrapped key version. Returns
	// ErrKeyVersionNotFound when absent.
	Delete(ctx context.Context, keyID string, version uint32) error
}

// KeyUseCase defines the key management operations of the service.
//
// All operations that change key state (Generate, Rotate, PurgeVersion) are
// serialized; reads go through the key ring and never block behind writes
// longer than the ring's pointer swap.
type KeyUseCase interface {
	// Generate creates version 1 of a new field key and installs it as the
	// active version. Returns ErrKeyAlreadyExists when any version of the key
	// id is already registered; generation never replaces an existing key.
	Generate(ctx context.Context, keyID string, alg cryptoDomain.Algorithm) (*cryptoDomain.SymmetricKey, error)

	// GetActive returns the active version of the named key. Returns
	// ErrKeyNotFound when the key id is unknown.
	GetActive(ctx context.Context, keyID string) (*cryptoDomain.SymmetricKey, error)

	// GetVersion returns a specific key version, active or retired. Returns
	// ErrKeyNotFound for an unknown key id and ErrKeyVersionNotFound for an
	// unknown version of a known key.
	GetVersion(ctx context.Context, keyID string, version uint32) (*cryptoDomain.SymmetricKey, error)

	// Rotate creates the next version of an existing key and atomically makes
	// it the active one. The retired version stays available for decryption.
	// An empty algorithm keeps the current one. Any failure leaves the old
	// version active. Returns ErrKeyNotFound for an unknown key id.
	Rotate(ctx context.Context, keyID string, alg cryptoDomain.Algorithm) (*cryptoDomain.SymmetricKey, error)

	// PurgeVersion permanently removes a retired key version from the store
	// and the ring. Ciphertext written under the purged version becomes
	// undecryptable, so this is an explicit, audited operation. Refuses the
	// active version with ErrKeyVersionActive.
	PurgeVersion(ctx context.Context, keyID string, version uint32) error

	// List returns metadata for every key version, without key material,
	// ordered by key id and version descending.
	List(ctx context.Context) ([]*cryptoDomain.SymmetricKey, error)

	// LoadKeyRing unwraps every stored key version into the key ring. Called
	// once at startup before the encryption paths accept traffic.
	LoadKeyRing(ctx context.Context) error
}
