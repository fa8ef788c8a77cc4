package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/metrics"
)

// keyUseCaseWithMetrics decorates KeyUseCase with metrics instrumentation.
type keyUseCaseWithMetrics struct {
	next    KeyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseCaseWithMetrics wraps a KeyUseCase with metrics recording.
func NewKeyUseCaseWithMetrics(useCase KeyUseCase, m metrics.BusinessMetrics) KeyUseCase {
	return &keyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// record captures the operation count and duration with a success/error status.
func (k *keyUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}

	k.metrics.RecordOperation(ctx, "crypto", operation, status)
	k.metrics.RecordDuration(ctx, "crypto", operation, time.Since(start), status)
}

// Generate records metrics for key generation.
func (k *keyUseCaseWithMetrics) Generate(
	ctx context.Context,
	keyID string,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.SymmetricKey, error) {
	start := time.Now()
	key, err := k.next.Generate(ctx, keyID, alg)
	k.record(ctx, "key_generate", start, err)
	return key, err
}

// GetActive passes through without instrumentation; ring reads are on the hot
// path of every encryption.
func (k *keyUseCaseWithMetrics) GetActive(
	ctx context.Context,
	keyID string,
) (*cryptoDomain.SymmetricKey, error) {
	return k.next.GetActive(ctx, keyID)
}

// GetVersion passes through without instrumentation.
func (k *keyUseCaseWithMetrics) GetVersion(
	ctx context.Context,
	keyID string,
	version uint32,
) (*cryptoDomain.SymmetricKey, error) {
	return k.next.GetVersion(ctx, keyID, version)
}

// Rotate records metrics for key rotation.
func (k *keyUseCaseWithMetrics) Rotate(
	ctx context.Context,
	keyID string,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.SymmetricKey, error) {
	start := time.Now()
	key, err := k.next.Rotate(ctx, keyID, alg)
	k.record(ctx, "key_rotate", start, err)
	return key, err
}

// PurgeVersion records metrics for key version purging.
func (k *keyUseCaseWithMetrics) PurgeVersion(
	ctx context.Context,
	keyID string,
	version uint32,
) error {
	start := time.Now()
	err := k.next.PurgeVersion(ctx, keyID, version)
	k.record(ctx, "key_purge_version", start, err)
	return err
}

// List passes through without instrumentation.
func (k *keyUseCaseWithMetrics) List(ctx context.Context) ([]*cryptoDomain.SymmetricKey, error) {
	return k.next.List(ctx)
}

// LoadKeyRing passes through without instrumentation; it runs once at startup.
func (k *keyUseCaseWithMetrics) LoadKeyRing(ctx context.Context) error {
	return k.next.LoadKeyRing(ctx)
}
