package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvault/fieldvault/internal/store"
	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
)

func newTestRecord(tokenValue, valueHash string) *vaultDomain.TokenRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &vaultDomain.TokenRecord{
		TokenID:      uuid.New(),
		FieldID:      "customer.ssn",
		TokenValue:   tokenValue,
		Sensitivity:  vaultDomain.SensitivityHigh,
		Protected:    []byte("sealed-bytes"),
		ValueHash:    valueHash,
		KeyVersion:   1,
		CreatedAt:    now,
		LastAccessed: now,
		AccessCount:  0,
		Active:       true,
	}
}

func TestKVTokenRepositoryCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTokenRepository(store.NewMemoryStore())

	t.Run("creates record and reverse index", func(t *testing.T) {
		record := newTestRecord("tok-abc", "hash-abc")
		require.NoError(t, repo.Create(ctx, record))

		byToken, err := repo.GetByToken(ctx, "tok-abc")
		require.NoError(t, err)
		assert.Equal(t, record.TokenID, byToken.TokenID)
		assert.Equal(t, record.Protected, byToken.Protected)

		byHash, err := repo.GetByValueHash(ctx, "hash-abc")
		require.NoError(t, err)
		assert.Equal(t, record.TokenID, byHash.TokenID)
	})

	t.Run("rejects duplicate token value", func(t *testing.T) {
		record := newTestRecord("tok-abc", "hash-other")
		err := repo.Create(ctx, record)
		assert.ErrorIs(t, err, vaultDomain.ErrTokenCollision)
	})
}

func TestKVTokenRepositoryGet(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTokenRepository(store.NewMemoryStore())

	t.Run("missing token returns ErrTokenNotFound", func(t *testing.T) {
		_, err := repo.GetByToken(ctx, "ghost")
		assert.ErrorIs(t, err, vaultDomain.ErrTokenNotFound)
	})

	t.Run("missing value hash returns ErrTokenNotFound", func(t *testing.T) {
		_, err := repo.GetByValueHash(ctx, "ghost-hash")
		assert.ErrorIs(t, err, vaultDomain.ErrTokenNotFound)
	})
}

func TestKVTokenRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTokenRepository(store.NewMemoryStore())

	record := newTestRecord("tok-upd", "hash-upd")
	require.NoError(t, repo.Create(ctx, record))

	record.Touch()
	record.Active = false
	require.NoError(t, repo.Update(ctx, record))

	loaded, err := repo.GetByToken(ctx, "tok-upd")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), loaded.AccessCount)
	assert.False(t, loaded.Active)
}

func TestKVTokenRepositoryRemoveIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTokenRepository(store.NewMemoryStore())

	record := newTestRecord("tok-idx", "hash-idx")
	require.NoError(t, repo.Create(ctx, record))

	require.NoError(t, repo.RemoveIndex(ctx, "hash-idx"))

	t.Run("reverse lookup misses after removal", func(t *testing.T) {
		_, err := repo.GetByValueHash(ctx, "hash-idx")
		assert.ErrorIs(t, err, vaultDomain.ErrTokenNotFound)
	})

	t.Run("forward lookup still works", func(t *testing.T) {
		loaded, err := repo.GetByToken(ctx, "tok-idx")
		require.NoError(t, err)
		assert.Equal(t, record.TokenID, loaded.TokenID)
	})

	t.Run("removing a missing entry is not an error", func(t *testing.T) {
		assert.NoError(t, repo.RemoveIndex(ctx, "hash-idx"))
	})
}

func TestKVTokenRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTokenRepository(store.NewMemoryStore())

	record := newTestRecord("tok-del", "hash-del")
	require.NoError(t, repo.Create(ctx, record))
	require.NoError(t, repo.Delete(ctx, record))

	_, err := repo.GetByToken(ctx, "tok-del")
	assert.ErrorIs(t, err, vaultDomain.ErrTokenNotFound)

	_, err = repo.GetByValueHash(ctx, "hash-del")
	assert.ErrorIs(t, err, vaultDomain.ErrTokenNotFound)

	t.Run("deleting a missing record returns ErrTokenNotFound", func(t *testing.T) {
		assert.ErrorIs(t, repo.Delete(ctx, record), vaultDomain.ErrTokenNotFound)
	})

	t.Run("keeps an index entry owned by a newer record", func(t *testing.T) {
		// Revoked path: the old record lost its index entry and the same
		// value hash was re-tokenized under a fresh token.
		old := newTestRecord("tok-old", "hash-shared")
		old.Active = false
		require.NoError(t, repo.Create(ctx, old))
		require.NoError(t, repo.RemoveIndex(ctx, "hash-shared"))

		successor := newTestRecord("tok-new", "hash-shared")
		require.NoError(t, repo.Create(ctx, successor))

		// Purging the old record must not sever the successor's mapping.
		require.NoError(t, repo.Delete(ctx, old))

		byHash, err := repo.GetByValueHash(ctx, "hash-shared")
		require.NoError(t, err)
		assert.Equal(t, "tok-new", byHash.TokenValue)
	})
}

func TestKVTokenRepositoryForEach(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTokenRepository(store.NewMemoryStore())

	require.NoError(t, repo.Create(ctx, newTestRecord("tok-b", "hash-b")))
	require.NoError(t, repo.Create(ctx, newTestRecord("tok-a", "hash-a")))
	require.NoError(t, repo.Create(ctx, newTestRecord("tok-c", "hash-c")))

	var visited []string
	err := repo.ForEach(ctx, func(record *vaultDomain.TokenRecord) error {
		visited = append(visited, record.TokenValue)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-a", "tok-b", "tok-c"}, visited)
}
