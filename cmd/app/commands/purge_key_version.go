package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoUseCase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
)

// RunPurgeKeyVersion permanently removes a retired key version. Ciphertext
// written under the purged version becomes undecryptable, so the command
// refuses the active version.
func RunPurgeKeyVersion(
	ctx context.Context,
	keys cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	out io.Writer,
	keyID string,
	version uint32,
) error {
	if keyID == "" {
		return fmt.Errorf("--id is required")
	}
	if version == 0 {
		return fmt.Errorf("--version must be a positive number")
	}

	logger.Info("purging key version",
		slog.String("key_id", keyID),
		slog.Uint64("version", uint64(version)),
	)

	if err := keys.PurgeVersion(ctx, keyID, version); err != nil {
		return fmt.Errorf("failed to purge key version: %w", err)
	}

	fmt.Fprintf(out, "Key %q version %d purged\n", keyID, version)
	return nil
}
