// Package repository implements persistence for vault token records.
//
// Records live as JSON in the tokens bucket keyed by token value, with a
// reverse index in the token_index bucket mapping a value fingerprint back to
// its token. The KV contract has no transactions, so the usecase serializes
// writers; this package keeps the two buckets consistent on the happy path
// and compensates on partial failure.
package repository

import (
	"context"
	"encoding/json"

	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	"github.com/fieldvault/fieldvault/internal/store"
	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
)

// KVTokenRepository persists token records in any store.KV backend.
type KVTokenRepository struct {
	kv store.KV
}

// NewKVTokenRepository creates a token repository on top of the given store
// backend.
func NewKVTokenRepository(kv store.KV) *KVTokenRepository {
	return &KVTokenRepository{kv: kv}
}

// Create stores a new record and its reverse index entry. Returns
// ErrTokenCollision when a record already exists under the token value. If
// writing the reverse index fails the forward record is removed again so the
// two buckets never disagree.
func (r *KVTokenRepository) Create(ctx context.Context, record *vaultDomain.TokenRecord) error {
	if _, err := r.kv.Get(ctx, store.BucketTokens, record.TokenValue); err == nil {
		return vaultDomain.ErrTokenCollision
	} else if !apperrors.Is(err, store.ErrKeyNotFound) {
		return apperrors.Wrap(err, "failed to check for existing token")
	}

	value, err := json.Marshal(record)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token record")
	}

	if err := r.kv.Put(ctx, store.BucketTokens, record.TokenValue, value); err != nil {
		return apperrors.Wrap(err, "failed to save token record")
	}

	indexValue := []byte(record.TokenValue)
	if err := r.kv.Put(ctx, store.BucketTokenIndex, record.ValueHash, indexValue); err != nil {
		// Roll the forward record back so a retry starts clean.
		_ = r.kv.Delete(ctx, store.BucketTokens, record.TokenValue)
		return apperrors.Wrap(err, "failed to save token index entry")
	}
	return nil
}

// GetByToken retrieves the record stored under a token value. Returns
// ErrTokenNotFound when no record exists.
func (r *KVTokenRepository) GetByToken(
	ctx context.Context,
	tokenValue string,
) (*vaultDomain.TokenRecord, error) {
	value, err := r.kv.Get(ctx, store.BucketTokens, tokenValue)
	if err != nil {
		if apperrors.Is(err, store.ErrKeyNotFound) {
			return nil, vaultDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load token record")
	}

	var record vaultDomain.TokenRecord
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal token record")
	}
	return &record, nil
}

// GetByValueHash resolves a value fingerprint through the reverse index to
// its record. Returns ErrTokenNotFound when no active mapping exists for the
// fingerprint.
func (r *KVTokenRepository) GetByValueHash(
	ctx context.Context,
	valueHash string,
) (*vaultDomain.TokenRecord, error) {
	tokenValue, err := r.kv.Get(ctx, store.BucketTokenIndex, valueHash)
	if err != nil {
		if apperrors.Is(err, store.ErrKeyNotFound) {
			return nil, vaultDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load token index entry")
	}
	return r.GetByToken(ctx, string(tokenValue))
}

// Update overwrites an existing record in place. The token value and value
// hash are immutable; only metadata such as access counters and the active
// flag change after creation.
func (r *KVTokenRepository) Update(ctx context.Context, record *vaultDomain.TokenRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token record")
	}

	if err := r.kv.Put(ctx, store.BucketTokens, record.TokenValue, value); err != nil {
		return apperrors.Wrap(err, "failed to update token record")
	}
	return nil
}

// RemoveIndex deletes the reverse index entry for a value fingerprint. Used
// on revocation: the record stays for audit while the fingerprint becomes
// free to tokenize again under a fresh token. A missing entry is not an
// error.
func (r *KVTokenRepository) RemoveIndex(ctx context.Context, valueHash string) error {
	if err := r.kv.Delete(ctx, store.BucketTokenIndex, valueHash); err != nil {
		if apperrors.Is(err, store.ErrKeyNotFound) {
			return nil
		}
		return apperrors.Wrap(err, "failed to remove token index entry")
	}
	return nil
}

// Delete hard-removes a record and, when it still points at this record, its
// reverse index entry. After revoke the same value hash may have been
// re-tokenized under a fresh token, in which case the index entry belongs to
// the newer record and must survive the purge.
func (r *KVTokenRepository) Delete(ctx context.Context, record *vaultDomain.TokenRecord) error {
	if err := r.kv.Delete(ctx, store.BucketTokens, record.TokenValue); err != nil {
		if apperrors.Is(err, store.ErrKeyNotFound) {
			return vaultDomain.ErrTokenNotFound
		}
		return apperrors.Wrap(err, "failed to delete token record")
	}

	indexValue, err := r.kv.Get(ctx, store.BucketTokenIndex, record.ValueHash)
	if err != nil {
		if apperrors.Is(err, store.ErrKeyNotFound) {
			return nil
		}
		return apperrors.Wrap(err, "failed to load token index entry")
	}
	if string(indexValue) != record.TokenValue {
		return nil
	}
	return r.RemoveIndex(ctx, record.ValueHash)
}

// ForEach visits every token record in ascending token value order and stops
// at the first callback error.
func (r *KVTokenRepository) ForEach(
	ctx context.Context,
	fn func(record *vaultDomain.TokenRecord) error,
) error {
	return r.kv.ForEach(ctx, store.BucketTokens, func(key string, value []byte) error {
		var record vaultDomain.TokenRecord
		if err := json.Unmarshal(value, &record); err != nil {
			return apperrors.Wrapf(err, "failed to unmarshal token record %q", key)
		}
		return fn(&record)
	})
}
