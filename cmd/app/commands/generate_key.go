package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoUseCase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
)

// RunGenerateKey creates version 1 of a new field key under the active master
// key. Fails if any version of the key id already exists.
//
// Requirements: MASTER_KEYS and ACTIVE_MASTER_KEY_ID must be set, and the
// store must be reachable.
func RunGenerateKey(
	ctx context.Context,
	keys cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	out io.Writer,
	keyID, algorithmStr string,
) error {
	if keyID == "" {
		return fmt.Errorf("--id is required")
	}

	algorithm, err := parseAlgorithm(algorithmStr)
	if err != nil {
		return err
	}

	logger.Info("generating field key",
		slog.String("key_id", keyID),
		slog.String("algorithm", algorithmStr),
	)

	key, err := keys.Generate(ctx, keyID, algorithm)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	fmt.Fprintf(out, "Key %q version %d created (%s)\n", key.KeyID, key.Version, key.Algorithm)
	return nil
}
