package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	columnsUseCase "github.com/fieldvault/fieldvault/internal/columns/usecase"
	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// RunRegisterField registers (or re-registers) the encryption policy for one
// field. Re-registering is an administrative change flagged by a
// policy.updated event; data written under the old policy needs a
// re-encryption plan.
func RunRegisterField(
	ctx context.Context,
	columns columnsUseCase.ColumnUseCase,
	logger *slog.Logger,
	out io.Writer,
	fieldID, keyID, modeStr, shapeStr string,
	compress, cacheRandomized bool,
) error {
	if fieldID == "" {
		return fmt.Errorf("--field is required")
	}
	if keyID == "" {
		return fmt.Errorf("--key is required")
	}

	mode, err := parseMode(modeStr)
	if err != nil {
		return err
	}

	logger.Info("registering field policy",
		slog.String("field_id", fieldID),
		slog.String("key_id", keyID),
		slog.String("mode", modeStr),
		slog.String("shape", shapeStr),
	)

	policy := &columnsDomain.FieldPolicy{
		FieldID:         fieldID,
		KeyID:           keyID,
		Mode:            mode,
		Shape:           columnsDomain.Shape(shapeStr),
		Compress:        compress,
		CacheRandomized: cacheRandomized,
	}

	if err := columns.RegisterField(ctx, policy); err != nil {
		return fmt.Errorf("failed to register field policy: %w", err)
	}

	fmt.Fprintf(out, "Field %q registered under key %q (%s, %s)\n", fieldID, keyID, modeStr, shapeStr)
	return nil
}

// parseMode converts mode string to cryptoDomain.Mode type.
// Returns an error if the mode string is invalid.
func parseMode(modeStr string) (cryptoDomain.Mode, error) {
	switch modeStr {
	case "deterministic":
		return cryptoDomain.Deterministic, nil
	case "randomized":
		return cryptoDomain.Randomized, nil
	default:
		return "", fmt.Errorf(
			"invalid mode: %s (valid options: deterministic, randomized)",
			modeStr,
		)
	}
}
