package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// testKVConformance runs the behavior every backend must share.
func testKVConformance(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing entry returns ErrKeyNotFound", func(t *testing.T) {
		_, err := kv.Get(ctx, BucketTokens, "missing")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, ErrKeyNotFound))
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("put then get round trips", func(t *testing.T) {
		err := kv.Put(ctx, BucketTokens, "tok-1", []byte("payload"))
		require.NoError(t, err)

		value, err := kv.Get(ctx, BucketTokens, "tok-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), value)
	})

	t.Run("put overwrites existing entry", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, BucketTokens, "tok-2", []byte("old")))
		require.NoError(t, kv.Put(ctx, BucketTokens, "tok-2", []byte("new")))

		value, err := kv.Get(ctx, BucketTokens, "tok-2")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), value)
	})

	t.Run("buckets are isolated", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, BucketKeys, "shared", []byte("keys")))
		require.NoError(t, kv.Put(ctx, BucketPolicies, "shared", []byte("policies")))

		value, err := kv.Get(ctx, BucketKeys, "shared")
		require.NoError(t, err)
		assert.Equal(t, []byte("keys"), value)

		value, err = kv.Get(ctx, BucketPolicies, "shared")
		require.NoError(t, err)
		assert.Equal(t, []byte("policies"), value)
	})

	t.Run("delete removes entry", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, BucketTokens, "tok-3", []byte("gone soon")))
		require.NoError(t, kv.Delete(ctx, BucketTokens, "tok-3"))

		_, err := kv.Get(ctx, BucketTokens, "tok-3")
		assert.True(t, apperrors.Is(err, ErrKeyNotFound))
	})

	t.Run("delete missing entry returns ErrKeyNotFound", func(t *testing.T) {
		err := kv.Delete(ctx, BucketTokens, "never-existed")
		assert.True(t, apperrors.Is(err, ErrKeyNotFound))
	})

	t.Run("foreach visits all entries in ascending key order", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, BucketTokenIndex, "fp-b", []byte("b")))
		require.NoError(t, kv.Put(ctx, BucketTokenIndex, "fp-a", []byte("a")))
		require.NoError(t, kv.Put(ctx, BucketTokenIndex, "fp-c", []byte("c")))

		var keys []string
		err := kv.ForEach(ctx, BucketTokenIndex, func(key string, value []byte) error {
			keys = append(keys, key)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"fp-a", "fp-b", "fp-c"}, keys)
	})

	t.Run("foreach stops on callback error", func(t *testing.T) {
		sentinel := apperrors.New("stop")
		err := kv.ForEach(ctx, BucketTokenIndex, func(key string, value []byte) error {
			return sentinel
		})
		assert.True(t, apperrors.Is(err, sentinel))
	})

	t.Run("foreach honors canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(context.Background())
		cancel()

		err := kv.ForEach(canceled, BucketTokenIndex, func(key string, value []byte) error {
			return nil
		})
		assert.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	kv := NewMemoryStore()
	defer func() {
		_ = kv.Close()
	}()

	testKVConformance(t, kv)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	kv := NewMemoryStore()
	ctx := context.Background()

	original := []byte("immutable")
	require.NoError(t, kv.Put(ctx, BucketTokens, "tok", original))
	original[0] = 'X'

	value, err := kv.Get(ctx, BucketTokens, "tok")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), value)

	value[0] = 'Y'
	again, err := kv.Get(ctx, BucketTokens, "tok")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), again)
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldvault.db")
	kv, err := NewBoltStore(path)
	require.NoError(t, err)
	defer func() {
		_ = kv.Close()
	}()

	testKVConformance(t, kv)
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldvault.db")
	ctx := context.Background()

	kv, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, BucketKeys, "key-1", []byte("wrapped")))
	require.NoError(t, kv.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer func() {
		_ = reopened.Close()
	}()

	value, err := reopened.Get(ctx, BucketKeys, "key-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("wrapped"), value)
}
