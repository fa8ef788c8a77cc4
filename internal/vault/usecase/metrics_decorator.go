package usecase

import (
	"context"
	"time"

	"github.com/fieldvault/fieldvault/internal/metrics"
	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
)

// vaultUseCaseWithMetrics decorates VaultUseCase with metrics instrumentation.
type vaultUseCaseWithMetrics struct {
	next    VaultUseCase
	metrics metrics.BusinessMetrics
}

// NewVaultUseCaseWithMetrics wraps a VaultUseCase with metrics recording.
func NewVaultUseCaseWithMetrics(useCase VaultUseCase, m metrics.BusinessMetrics) VaultUseCase {
	return &vaultUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// record captures the operation count and duration with a success/error status.
func (v *vaultUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "vault", operation, status)
	v.metrics.RecordDuration(ctx, "vault", operation, time.Since(start), status)
}

// Tokenize records metrics for token issuance.
func (v *vaultUseCaseWithMetrics) Tokenize(
	ctx context.Context,
	fieldID string,
	value string,
	sensitivity vaultDomain.Sensitivity,
) (*vaultDomain.TokenRecord, error) {
	start := time.Now()
	record, err := v.next.Tokenize(ctx, fieldID, value, sensitivity)
	v.record(ctx, "tokenize", start, err)
	return record, err
}

// Detokenize records metrics for value reveals.
func (v *vaultUseCaseWithMetrics) Detokenize(
	ctx context.Context,
	tokenValue string,
) (string, error) {
	start := time.Now()
	value, err := v.next.Detokenize(ctx, tokenValue)
	v.record(ctx, "detokenize", start, err)
	return value, err
}

// Revoke records metrics for token revocation.
func (v *vaultUseCaseWithMetrics) Revoke(ctx context.Context, tokenValue string) error {
	start := time.Now()
	err := v.next.Revoke(ctx, tokenValue)
	v.record(ctx, "revoke", start, err)
	return err
}

// Cleanup records metrics for retention sweeps.
func (v *vaultUseCaseWithMetrics) Cleanup(
	ctx context.Context,
	maxAge time.Duration,
	dryRun bool,
) (*CleanupReport, error) {
	start := time.Now()
	report, err := v.next.Cleanup(ctx, maxAge, dryRun)
	v.record(ctx, "cleanup", start, err)
	return report, err
}

// BatchTokenize records metrics for batch tokenization. The batch itself
// always completes; status reflects whether any input failed.
func (v *vaultUseCaseWithMetrics) BatchTokenize(
	ctx context.Context,
	inputs []TokenizeInput,
) []TokenizeResult {
	start := time.Now()
	results := v.next.BatchTokenize(ctx, inputs)

	var firstErr error
	for _, result := range results {
		if result.Err != nil {
			firstErr = result.Err
			break
		}
	}
	v.record(ctx, "batch_tokenize", start, firstErr)
	return results
}
