// Package repository implements persistence for field encryption policies.
//
// Policies are JSON documents in the policies bucket keyed by field id. They
// carry configuration only; nothing in this package ever sees plaintext
// values or key material.
package repository

import (
	"context"
	"encoding/json"
	"sort"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	"github.com/fieldvault/fieldvault/internal/store"
)

// KVPolicyRepository persists field policies in any store.KV backend.
type KVPolicyRepository struct {
	kv store.KV
}

// NewKVPolicyRepository creates a policy repository on top of the given store
// backend.
func NewKVPolicyRepository(kv store.KV) *KVPolicyRepository {
	return &KVPolicyRepository{kv: kv}
}

// Save stores a policy, overwriting any previous record for the field id.
func (r *KVPolicyRepository) Save(ctx context.Context, policy *columnsDomain.FieldPolicy) error {
	value, err := json.Marshal(policy)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal field policy")
	}

	if err := r.kv.Put(ctx, store.BucketPolicies, policy.FieldID, value); err != nil {
		return apperrors.Wrap(err, "failed to save field policy")
	}
	return nil
}

// Get retrieves the policy for one field id. Returns ErrUnknownField when no
// policy is registered.
func (r *KVPolicyRepository) Get(
	ctx context.Context,
	fieldID string,
) (*columnsDomain.FieldPolicy, error) {
	value, err := r.kv.Get(ctx, store.BucketPolicies, fieldID)
	if err != nil {
		if apperrors.Is(err, store.ErrKeyNotFound) {
			return nil, columnsDomain.ErrUnknownField
		}
		return nil, apperrors.Wrap(err, "failed to load field policy")
	}

	var policy columnsDomain.FieldPolicy
	if err := json.Unmarshal(value, &policy); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal field policy")
	}
	return &policy, nil
}

// List retrieves every registered policy ordered by field id.
func (r *KVPolicyRepository) List(ctx context.Context) ([]*columnsDomain.FieldPolicy, error) {
	var policies []*columnsDomain.FieldPolicy

	err := r.kv.ForEach(ctx, store.BucketPolicies, func(key string, value []byte) error {
		var policy columnsDomain.FieldPolicy
		if err := json.Unmarshal(value, &policy); err != nil {
			return apperrors.Wrapf(err, "failed to unmarshal field policy %q", key)
		}
		policies = append(policies, &policy)
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list field policies")
	}

	sort.Slice(policies, func(i, j int) bool {
		return policies[i].FieldID < policies[j].FieldID
	})
	return policies, nil
}
