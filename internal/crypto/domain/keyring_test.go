package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(keyID string, version uint32, active bool) *SymmetricKey {
	key := make([]byte, KeySize)
	key[0] = byte(version)
	return &SymmetricKey{
		KeyID:     keyID,
		Version:   version,
		Algorithm: AESGCM,
		Key:       key,
		CreatedAt: time.Now().UTC(),
		Active:    active,
	}
}

func TestKeyRing_Install(t *testing.T) {
	t.Run("installs active key", func(t *testing.T) {
		ring := NewKeyRing()
		ring.Install(newTestKey("pii", 1, true))

		active, ok := ring.Active("pii")
		require.True(t, ok)
		assert.Equal(t, uint32(1), active.Version)
		assert.True(t, active.Active)
	})

	t.Run("active swap retires the previous version", func(t *testing.T) {
		ring := NewKeyRing()
		ring.Install(newTestKey("pii", 1, true))
		ring.Install(newTestKey("pii", 2, true))

		active, ok := ring.Active("pii")
		require.True(t, ok)
		assert.Equal(t, uint32(2), active.Version)

		old, ok := ring.Version("pii", 1)
		require.True(t, ok)
		assert.False(t, old.Active)
		assert.NotNil(t, old.Key)
	})

	t.Run("inactive install does not change the active version", func(t *testing.T) {
		ring := NewKeyRing()
		ring.Install(newTestKey("pii", 2, true))
		ring.Install(newTestKey("pii", 1, false))

		active, ok := ring.Active("pii")
		require.True(t, ok)
		assert.Equal(t, uint32(2), active.Version)
	})

	t.Run("missing key id reports not found", func(t *testing.T) {
		ring := NewKeyRing()

		_, ok := ring.Active("missing")
		assert.False(t, ok)

		_, ok = ring.Version("missing", 1)
		assert.False(t, ok)
	})
}

func TestKeyRing_Remove(t *testing.T) {
	t.Run("removes retired version and zeroes material", func(t *testing.T) {
		ring := NewKeyRing()
		old := newTestKey("pii", 1, true)
		ring.Install(old)
		ring.Install(newTestKey("pii", 2, true))

		ring.Remove("pii", 1)

		_, ok := ring.Version("pii", 1)
		assert.False(t, ok)
		assert.Equal(t, make([]byte, KeySize), old.Key)
	})

	t.Run("never removes the active version", func(t *testing.T) {
		ring := NewKeyRing()
		ring.Install(newTestKey("pii", 1, true))

		ring.Remove("pii", 1)

		active, ok := ring.Active("pii")
		require.True(t, ok)
		assert.Equal(t, uint32(1), active.Version)
	})
}

func TestKeyRing_Close(t *testing.T) {
	ring := NewKeyRing()
	key1 := newTestKey("pii", 1, true)
	key2 := newTestKey("billing", 1, true)
	ring.Install(key1)
	ring.Install(key2)

	ring.Close()

	_, ok := ring.Active("pii")
	assert.False(t, ok)
	assert.Equal(t, make([]byte, KeySize), key1.Key)
	assert.Equal(t, make([]byte, KeySize), key2.Key)
}

func TestKeyRing_ConcurrentReadsDuringRotation(t *testing.T) {
	ring := NewKeyRing()
	ring.Install(newTestKey("pii", 1, true))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				active, ok := ring.Active("pii")
				if assert.True(t, ok) {
					// Readers must always observe a fully installed version.
					assert.NotEmpty(t, active.Key)
					assert.True(t, active.Version >= 1)
				}
			}
		}()
	}

	for version := uint32(2); version <= 50; version++ {
		ring.Install(newTestKey("pii", version, true))
	}
	close(stop)
	wg.Wait()

	active, ok := ring.Active("pii")
	require.True(t, ok)
	assert.Equal(t, uint32(50), active.Version)
	assert.Len(t, ring.VersionsOf("pii"), 50)
}
