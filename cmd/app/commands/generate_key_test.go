package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunGenerateKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("success", func(t *testing.T) {
		keys, _ := setupTestKeyUseCase(t)

		var out bytes.Buffer
		err := RunGenerateKey(ctx, keys, logger, &out, "pii", "aes-gcm")
		require.NoError(t, err)
		require.Contains(t, out.String(), `Key "pii" version 1 created`)

		key, err := keys.GetActive(ctx, "pii")
		require.NoError(t, err)
		require.Equal(t, uint32(1), key.Version)
	})

	t.Run("missing key id", func(t *testing.T) {
		keys, _ := setupTestKeyUseCase(t)

		err := RunGenerateKey(ctx, keys, logger, &bytes.Buffer{}, "", "aes-gcm")
		require.Error(t, err)
		require.Contains(t, err.Error(), "--id is required")
	})

	t.Run("invalid algorithm", func(t *testing.T) {
		keys, _ := setupTestKeyUseCase(t)

		err := RunGenerateKey(ctx, keys, logger, &bytes.Buffer{}, "pii", "des")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid algorithm")
	})

	t.Run("duplicate key id", func(t *testing.T) {
		keys, _ := setupTestKeyUseCase(t)

		require.NoError(t, RunGenerateKey(ctx, keys, logger, &bytes.Buffer{}, "pii", "aes-gcm"))
		err := RunGenerateKey(ctx, keys, logger, &bytes.Buffer{}, "pii", "aes-gcm")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to generate key")
	})
}
