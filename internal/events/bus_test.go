package events

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNew(t *testing.T) {
	event := New(TypeKeyRotated)

	assert.NotEqual(t, "", event.ID.String())
	assert.Equal(t, TypeKeyRotated, event.Type)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to subscribed handler", func(t *testing.T) {
		bus := newTestBus()

		var received []Event
		bus.Subscribe(func(ctx context.Context, event Event) {
			received = append(received, event)
		}, TypeKeyRotated)

		event := New(TypeKeyRotated)
		event.KeyID = "users-pii"
		bus.Publish(ctx, event)

		require.Len(t, received, 1)
		assert.Equal(t, "users-pii", received[0].KeyID)
	})

	t.Run("does not deliver other event types", func(t *testing.T) {
		bus := newTestBus()

		var received []Event
		bus.Subscribe(func(ctx context.Context, event Event) {
			received = append(received, event)
		}, TypeKeyRotated)

		bus.Publish(ctx, New(TypeTokenIssued))

		assert.Empty(t, received)
	})

	t.Run("subscribe without types receives every type", func(t *testing.T) {
		bus := newTestBus()

		var received []Type
		bus.Subscribe(func(ctx context.Context, event Event) {
			received = append(received, event.Type)
		})

		bus.Publish(ctx, New(TypeKeyRotated))
		bus.Publish(ctx, New(TypeTokenIssued))
		bus.Publish(ctx, New(TypeVaultCleaned))

		assert.Equal(t, []Type{TypeKeyRotated, TypeTokenIssued, TypeVaultCleaned}, received)
	})

	t.Run("delivery is synchronous", func(t *testing.T) {
		bus := newTestBus()

		cleared := false
		bus.Subscribe(func(ctx context.Context, event Event) {
			cleared = true
		}, TypeKeyRotated)

		bus.Publish(ctx, New(TypeKeyRotated))

		// No waiting: the handler ran on the publishing goroutine.
		assert.True(t, cleared)
	})

	t.Run("handlers run in subscription order", func(t *testing.T) {
		bus := newTestBus()

		var order []int
		bus.Subscribe(func(ctx context.Context, event Event) {
			order = append(order, 1)
		}, TypeKeyRotated)
		bus.Subscribe(func(ctx context.Context, event Event) {
			order = append(order, 2)
		}, TypeKeyRotated)

		bus.Publish(ctx, New(TypeKeyRotated))

		assert.Equal(t, []int{1, 2}, order)
	})

	t.Run("panicking handler does not stop delivery", func(t *testing.T) {
		bus := newTestBus()

		var received []Event
		bus.Subscribe(func(ctx context.Context, event Event) {
			panic("subscriber bug")
		}, TypeKeyRotated)
		bus.Subscribe(func(ctx context.Context, event Event) {
			received = append(received, event)
		}, TypeKeyRotated)

		assert.NotPanics(t, func() {
			bus.Publish(ctx, New(TypeKeyRotated))
		})
		assert.Len(t, received, 1)
	})

	t.Run("publish with no subscribers is a no-op", func(t *testing.T) {
		bus := newTestBus()
		assert.NotPanics(t, func() {
			bus.Publish(ctx, New(TypePolicyUpdated))
		})
	})

	t.Run("concurrent publish and subscribe are safe", func(t *testing.T) {
		bus := newTestBus()

		var mu sync.Mutex
		count := 0
		bus.Subscribe(func(ctx context.Context, event Event) {
			mu.Lock()
			count++
			mu.Unlock()
		}, TypeValueEncrypted)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				bus.Publish(ctx, New(TypeValueEncrypted))
			}()
		}
		wg.Wait()

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 50, count)
	})
}

func TestNopPublisher(t *testing.T) {
	var pub NopPublisher
	assert.NotPanics(t, func() {
		pub.Publish(context.Background(), New(TypeKeyRotated))
	})
}
