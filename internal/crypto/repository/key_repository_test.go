package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/store"
)

func newWrappedKey(keyID string, version uint32, active bool) *cryptoDomain.WrappedKey {
	return &cryptoDomain.WrappedKey{
		KeyID:        keyID,
		Version:      version,
		Algorithm:    cryptoDomain.AESGCM,
		MasterKeyID:  "master-key-1",
		EncryptedKey: []byte{0x01, 0x02, 0x03},
		Nonce:        []byte{0x04, 0x05, 0x06},
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		Active:       active,
	}
}

func TestKVKeyRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewKVKeyRepository(store.NewMemoryStore())

	t.Run("save then get round trips", func(t *testing.T) {
		wrapped := newWrappedKey("users-pii", 1, true)
		require.NoError(t, repo.Save(ctx, wrapped))

		got, err := repo.Get(ctx, "users-pii", 1)
		require.NoError(t, err)
		assert.Equal(t, wrapped, got)
	})

	t.Run("get unknown key id returns ErrKeyVersionNotFound", func(t *testing.T) {
		_, err := repo.Get(ctx, "unknown", 1)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)
	})

	t.Run("get unknown version returns ErrKeyVersionNotFound", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, newWrappedKey("payments-card", 1, true)))

		_, err := repo.Get(ctx, "payments-card", 2)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)
	})

	t.Run("save overwrites the same version", func(t *testing.T) {
		first := newWrappedKey("audit-log", 1, true)
		require.NoError(t, repo.Save(ctx, first))

		second := newWrappedKey("audit-log", 1, false)
		require.NoError(t, repo.Save(ctx, second))

		got, err := repo.Get(ctx, "audit-log", 1)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})
}

func TestKVKeyRepository_ListVersions(t *testing.T) {
	ctx := context.Background()
	repo := NewKVKeyRepository(store.NewMemoryStore())

	require.NoError(t, repo.Save(ctx, newWrappedKey("users-pii", 1, false)))
	require.NoError(t, repo.Save(ctx, newWrappedKey("users-pii", 2, false)))
	require.NoError(t, repo.Save(ctx, newWrappedKey("users-pii", 3, true)))
	require.NoError(t, repo.Save(ctx, newWrappedKey("payments-card", 1, true)))

	t.Run("returns versions newest first", func(t *testing.T) {
		versions, err := repo.ListVersions(ctx, "users-pii")
		require.NoError(t, err)
		require.Len(t, versions, 3)

		assert.Equal(t, uint32(3), versions[0].Version)
		assert.Equal(t, uint32(2), versions[1].Version)
		assert.Equal(t, uint32(1), versions[2].Version)
		assert.True(t, versions[0].Active)
	})

	t.Run("does not leak other key ids", func(t *testing.T) {
		versions, err := repo.ListVersions(ctx, "payments-card")
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, "payments-card", versions[0].KeyID)
	})

	t.Run("unknown key id yields empty slice", func(t *testing.T) {
		versions, err := repo.ListVersions(ctx, "unknown")
		require.NoError(t, err)
		assert.Empty(t, versions)
	})
}

func TestKVKeyRepository_ListAll(t *testing.T) {
	ctx := context.Background()
	repo := NewKVKeyRepository(store.NewMemoryStore())

	t.Run("empty store yields empty slice", func(t *testing.T) {
		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("returns every stored version", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, newWrappedKey("users-pii", 1, false)))
		require.NoError(t, repo.Save(ctx, newWrappedKey("users-pii", 2, true)))
		require.NoError(t, repo.Save(ctx, newWrappedKey("payments-card", 1, true)))

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestKVKeyRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewKVKeyRepository(store.NewMemoryStore())

	t.Run("delete removes only the named version", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, newWrappedKey("users-pii", 1, false)))
		require.NoError(t, repo.Save(ctx, newWrappedKey("users-pii", 2, true)))

		require.NoError(t, repo.Delete(ctx, "users-pii", 1))

		_, err := repo.Get(ctx, "users-pii", 1)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)

		got, err := repo.Get(ctx, "users-pii", 2)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), got.Version)
	})

	t.Run("delete unknown version returns ErrKeyVersionNotFound", func(t *testing.T) {
		err := repo.Delete(ctx, "users-pii", 99)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)
	})
}
