package usecase

import (
	"context"
	"time"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/metrics"
)

// columnUseCaseWithMetrics decorates ColumnUseCase with metrics instrumentation.
type columnUseCaseWithMetrics struct {
	next    ColumnUseCase
	metrics metrics.BusinessMetrics
}

// NewColumnUseCaseWithMetrics wraps a ColumnUseCase with metrics recording.
func NewColumnUseCaseWithMetrics(useCase ColumnUseCase, m metrics.BusinessMetrics) ColumnUseCase {
	return &columnUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// record captures the operation count and duration with a success/error status.
func (c *columnUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "columns", operation, status)
	c.metrics.RecordDuration(ctx, "columns", operation, time.Since(start), status)
}

// RegisterField records metrics for policy registration.
func (c *columnUseCaseWithMetrics) RegisterField(
	ctx context.Context,
	policy *columnsDomain.FieldPolicy,
) error {
	start := time.Now()
	err := c.next.RegisterField(ctx, policy)
	c.record(ctx, "field_register", start, err)
	return err
}

// GetField passes through without instrumentation; registry reads are not
// interesting operations.
func (c *columnUseCaseWithMetrics) GetField(
	ctx context.Context,
	fieldID string,
) (*columnsDomain.FieldPolicy, error) {
	return c.next.GetField(ctx, fieldID)
}

// ListFields passes through without instrumentation.
func (c *columnUseCaseWithMetrics) ListFields(
	ctx context.Context,
) ([]*columnsDomain.FieldPolicy, error) {
	return c.next.ListFields(ctx)
}

// LoadPolicies passes through without instrumentation.
func (c *columnUseCaseWithMetrics) LoadPolicies(ctx context.Context) error {
	return c.next.LoadPolicies(ctx)
}

// EncryptField records metrics for single-value encryption.
func (c *columnUseCaseWithMetrics) EncryptField(
	ctx context.Context,
	fieldID string,
	value any,
) ([]byte, error) {
	start := time.Now()
	ciphertext, err := c.next.EncryptField(ctx, fieldID, value)
	c.record(ctx, "field_encrypt", start, err)
	return ciphertext, err
}

// DecryptField records metrics for single-value decryption.
func (c *columnUseCaseWithMetrics) DecryptField(
	ctx context.Context,
	fieldID string,
	ciphertext []byte,
) (any, error) {
	start := time.Now()
	value, err := c.next.DecryptField(ctx, fieldID, ciphertext)
	c.record(ctx, "field_decrypt", start, err)
	return value, err
}

// BatchEncrypt records metrics for batch encryption. The batch itself always
// completes; status reflects whether any record failed.
func (c *columnUseCaseWithMetrics) BatchEncrypt(
	ctx context.Context,
	records []FieldValues,
) []EncryptResult {
	start := time.Now()
	results := c.next.BatchEncrypt(ctx, records)

	var firstErr error
	for _, result := range results {
		if result.Err != nil {
			firstErr = result.Err
			break
		}
	}
	c.record(ctx, "batch_encrypt", start, firstErr)
	return results
}

// BatchDecrypt records metrics for batch decryption.
func (c *columnUseCaseWithMetrics) BatchDecrypt(
	ctx context.Context,
	records []EncryptedFields,
) []DecryptResult {
	start := time.Now()
	results := c.next.BatchDecrypt(ctx, records)

	var firstErr error
	for _, result := range results {
		if result.Err != nil {
			firstErr = result.Err
			break
		}
	}
	c.record(ctx, "batch_decrypt", start, firstErr)
	return results
}

// RotateKeys records metrics for key rotation.
func (c *columnUseCaseWithMetrics) RotateKeys(
	ctx context.Context,
	keyID string,
) (*cryptoDomain.SymmetricKey, error) {
	start := time.Now()
	key, err := c.next.RotateKeys(ctx, keyID)
	c.record(ctx, "keys_rotate", start, err)
	return key, err
}
