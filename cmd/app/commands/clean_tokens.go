package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	vaultUseCase "github.com/fieldvault/fieldvault/internal/vault/usecase"
)

// RunCleanTokens hard-deletes revoked token records that have been inactive
// longer than the specified number of days. Supports dry-run mode to preview
// the deletion count and both text/JSON output formats. Active tokens are
// never touched.
func RunCleanTokens(
	ctx context.Context,
	vault vaultUseCase.VaultUseCase,
	logger *slog.Logger,
	out io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	// Validate days parameter
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("cleaning expired revoked tokens",
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	report, err := vault.Cleanup(ctx, time.Duration(days)*24*time.Hour, dryRun)
	if err != nil {
		return fmt.Errorf("failed to clean tokens: %w", err)
	}

	if format == "json" {
		payload := map[string]any{
			"scanned": report.Scanned,
			"removed": report.Removed,
			"days":    days,
			"dry_run": dryRun,
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(payload); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		action := "removed"
		if dryRun {
			action = "would remove"
		}
		fmt.Fprintf(out, "Scanned %d token records, %s %d expired revoked records (older than %d days)\n",
			report.Scanned, action, report.Removed, days)
	}

	logger.Info("cleanup completed",
		slog.Int("scanned", report.Scanned),
		slog.Int("removed", report.Removed),
	)
	return nil
}
