package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
)

func TestRunCleanTokens(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("removes expired revoked tokens", func(t *testing.T) {
		vault := setupTestVaultUseCase(t)

		record, err := vault.Tokenize(ctx, "customer.email", "alice@example.com", vaultDomain.SensitivityHigh)
		require.NoError(t, err)
		require.NoError(t, vault.Revoke(ctx, record.TokenValue))

		var out bytes.Buffer
		err = RunCleanTokens(ctx, vault, logger, &out, 0, false, "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "removed 1 expired revoked records")

		// The record is gone, so detokenization reports not found rather
		// than revoked.
		_, err = vault.Detokenize(ctx, record.TokenValue)
		require.ErrorIs(t, err, vaultDomain.ErrTokenNotFound)
	})

	t.Run("keeps active tokens", func(t *testing.T) {
		vault := setupTestVaultUseCase(t)

		record, err := vault.Tokenize(ctx, "customer.email", "alice@example.com", vaultDomain.SensitivityHigh)
		require.NoError(t, err)

		var out bytes.Buffer
		err = RunCleanTokens(ctx, vault, logger, &out, 0, false, "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "removed 0 expired revoked records")

		value, err := vault.Detokenize(ctx, record.TokenValue)
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", value)
	})

	t.Run("dry run deletes nothing", func(t *testing.T) {
		vault := setupTestVaultUseCase(t)

		record, err := vault.Tokenize(ctx, "customer.email", "alice@example.com", vaultDomain.SensitivityHigh)
		require.NoError(t, err)
		require.NoError(t, vault.Revoke(ctx, record.TokenValue))

		var out bytes.Buffer
		err = RunCleanTokens(ctx, vault, logger, &out, 0, true, "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "would remove 1 expired revoked records")

		// Still present, still revoked.
		_, err = vault.Detokenize(ctx, record.TokenValue)
		require.ErrorIs(t, err, vaultDomain.ErrTokenRevoked)
	})

	t.Run("json output", func(t *testing.T) {
		vault := setupTestVaultUseCase(t)

		record, err := vault.Tokenize(ctx, "customer.email", "alice@example.com", vaultDomain.SensitivityHigh)
		require.NoError(t, err)
		require.NoError(t, vault.Revoke(ctx, record.TokenValue))

		var out bytes.Buffer
		err = RunCleanTokens(ctx, vault, logger, &out, 0, false, "json")
		require.NoError(t, err)

		var report map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		require.Equal(t, float64(1), report["scanned"])
		require.Equal(t, float64(1), report["removed"])
		require.Equal(t, false, report["dry_run"])
	})

	t.Run("rejects negative days", func(t *testing.T) {
		vault := setupTestVaultUseCase(t)

		err := RunCleanTokens(ctx, vault, logger, &bytes.Buffer{}, -1, false, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "days must be a positive number")
	})
}
