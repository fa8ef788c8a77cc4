// Package repository implements persistence for wrapped field keys.
//
// Field keys are stored in their master-key-wrapped form only. Records are
// JSON documents in the keys bucket, keyed by "<key id>/<version>" with the
// version zero padded so lexicographic store order matches numeric version
// order. Plaintext key material never reaches this package.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	"github.com/fieldvault/fieldvault/internal/store"
)

// KVKeyRepository persists wrapped field keys in any store.KV backend.
type KVKeyRepository struct {
	kv store.KV
}

// NewKVKeyRepository creates a wrapped key repository on top of the given
// store backend.
func NewKVKeyRepository(kv store.KV) *KVKeyRepository {
	return &KVKeyRepository{kv: kv}
}

// recordKey builds the store key for one wrapped key version. The version is
// zero padded to ten digits so iteration order follows version order.
func recordKey(keyID string, version uint32) string {
	return fmt.Sprintf("%s/%010d", keyID, version)
}

// Save stores a wrapped key version, overwriting any previous record for the
// same key id and version.
func (r *KVKeyRepository) Save(ctx context.Context, wrapped *cryptoDomain.WrappedKey) error {
	value, err := json.Marshal(wrapped)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal wrapped key")
	}

	if err := r.kv.Put(ctx, store.BucketKeys, recordKey(wrapped.KeyID, wrapped.Version), value); err != nil {
		return apperrors.Wrap(err, "failed to save wrapped key")
	}
	return nil
}

// Get retrieves a single wrapped key version. Returns ErrKeyVersionNotFound
// when no record exists for the key id and version.
func (r *KVKeyRepository) Get(
	ctx context.Context,
	keyID string,
	version uint32,
) (*cryptoDomain.WrappedKey, error) {
	value, err := r.kv.Get(ctx, store.BucketKeys, recordKey(keyID, version))
	if err != nil {
		if apperrors.Is(err, store.ErrKeyNotFound) {
			return nil, cryptoDomain.ErrKeyVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load wrapped key")
	}

	var wrapped cryptoDomain.WrappedKey
	if err := json.Unmarshal(value, &wrapped); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal wrapped key")
	}
	return &wrapped, nil
}

// ListVersions retrieves all versions of one key id ordered by version
// descending, newest first. Returns an empty slice when the key id is unknown.
func (r *KVKeyRepository) ListVersions(
	ctx context.Context,
	keyID string,
) ([]*cryptoDomain.WrappedKey, error) {
	var versions []*cryptoDomain.WrappedKey

	err := r.kv.ForEach(ctx, store.BucketKeys, func(key string, value []byte) error {
		var wrapped cryptoDomain.WrappedKey
		if err := json.Unmarshal(value, &wrapped); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal wrapped key")
		}
		if wrapped.KeyID != keyID {
			return nil
		}
		versions = append(versions, &wrapped)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version > versions[j].Version
	})
	return versions, nil
}

// ListAll retrieves every wrapped key version across all key ids. Used to
// hydrate the in-memory key ring at startup.
func (r *KVKeyRepository) ListAll(ctx context.Context) ([]*cryptoDomain.WrappedKey, error) {
	var all []*cryptoDomain.WrappedKey

	err := r.kv.ForEach(ctx, store.BucketKeys, func(key string, value []byte) error {
		var wrapped cryptoDomain.WrappedKey
		if err := json.Unmarshal(value, &wrapped); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal wrapped key")
		}
		all = append(all, &wrapped)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// Delete removes a single wrapped key version. Returns ErrKeyVersionNotFound
// when no record exists for the key id and version.
func (r *KVKeyRepository) Delete(ctx context.Context, keyID string, version uint32) error {
	if err := r.kv.Delete(ctx, store.BucketKeys, recordKey(keyID, version)); err != nil {
		if apperrors.Is(err, store.ErrKeyNotFound) {
			return cryptoDomain.ErrKeyVersionNotFound
		}
		return apperrors.Wrap(err, "failed to delete wrapped key")
	}
	return nil
}
