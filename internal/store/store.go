// Package store provides the pluggable key/value persistence layer used by all
// bounded contexts. Records are opaque bytes grouped into fixed buckets; the
// engines never depend on which backend is configured.
package store

import (
	"context"

	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// Bucket names used across the service. Backends must accept exactly these.
const (
	// BucketKeys holds wrapped field key versions.
	BucketKeys = "keys"

	// BucketPolicies holds field encryption policies.
	BucketPolicies = "policies"

	// BucketTokens holds token records keyed by token value.
	BucketTokens = "tokens"

	// BucketTokenIndex holds the reverse index from value fingerprint to token value.
	BucketTokenIndex = "token_index"
)

// Buckets lists every bucket a backend must provision at open time.
var Buckets = []string{BucketKeys, BucketPolicies, BucketTokens, BucketTokenIndex}

// ErrKeyNotFound indicates the requested entry does not exist in the bucket.
var ErrKeyNotFound = apperrors.Wrap(apperrors.ErrNotFound, "store entry not found")

// KV is the persistence contract shared by all backends. Put overwrites
// existing entries; Get and Delete return ErrKeyNotFound when the entry is
// absent. ForEach visits every entry in a bucket in ascending key order and
// stops at the first callback error.
type KV interface {
	Put(ctx context.Context, bucket, key string, value []byte) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	ForEach(ctx context.Context, bucket string, fn func(key string, value []byte) error) error
	Close() error
}
