package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoUseCase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
)

// RunRotateKey creates the next version of an existing field key and makes it
// the active one. The retired version stays available for decryption, so
// existing envelopes remain readable. An empty algorithm keeps the current
// one.
func RunRotateKey(
	ctx context.Context,
	keys cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	out io.Writer,
	keyID, algorithmStr string,
) error {
	if keyID == "" {
		return fmt.Errorf("--id is required")
	}

	var algorithm cryptoDomain.Algorithm
	if algorithmStr != "" {
		var err error
		algorithm, err = parseAlgorithm(algorithmStr)
		if err != nil {
			return err
		}
	}

	logger.Info("rotating field key", slog.String("key_id", keyID))

	key, err := keys.Rotate(ctx, keyID, algorithm)
	if err != nil {
		return fmt.Errorf("failed to rotate key: %w", err)
	}

	fmt.Fprintf(out, "Key %q rotated to version %d (%s)\n", key.KeyID, key.Version, key.Algorithm)
	return nil
}
