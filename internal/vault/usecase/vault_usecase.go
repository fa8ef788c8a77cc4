package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	"github.com/fieldvault/fieldvault/internal/events"
	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
	vaultService "github.com/fieldvault/fieldvault/internal/vault/service"
)

// maxCollisionRetries bounds the fresh-token attempts before giving up with
// ErrTokenCollision. With 32-character alphanumeric tokens a single collision
// is already astronomically unlikely; short format-preserving patterns on a
// crowded vault are the only realistic way to exhaust this.
const maxCollisionRetries = 5

// Options carries the vault configuration.
type Options struct {
	// ProtectionFieldID is the field policy used to encrypt original values
	// at rest. It must be registered before the vault accepts traffic.
	ProtectionFieldID string
	// DetokenizationEnabled toggles whether stored values may be revealed.
	// When false the vault is a one-way function and Detokenize always fails.
	DetokenizationEnabled bool
}

type vaultUseCase struct {
	tokenRepo TokenRepository
	protector ValueProtector
	factory   *vaultService.TokenGeneratorFactory
	publisher events.Publisher
	options   Options

	// writeMu serializes the lookup-then-create section of Tokenize and the
	// revocation path. The KV contract has no transactions, so this is what
	// keeps "one active token per (field, value)" true under concurrency.
	writeMu sync.Mutex
}

// NewVaultUseCase creates the tokenization vault use case.
//
// Parameters:
//   - tokenRepo: token record persistence
//   - protector: encrypts original values at rest, normally the column
//     encryption use case
//   - factory: selects per-field token generators
//   - publisher: event publisher for the token lifecycle stream
//   - options: vault configuration
//
// Returns:
//   - VaultUseCase: the vault implementation
func NewVaultUseCase(
	tokenRepo TokenRepository,
	protector ValueProtector,
	factory *vaultService.TokenGeneratorFactory,
	publisher events.Publisher,
	options Options,
) VaultUseCase {
	return &vaultUseCase{
		tokenRepo: tokenRepo,
		protector: protector,
		factory:   factory,
		publisher: publisher,
		options:   options,
	}
}

// Tokenize exchanges a value for a token, reusing the existing active token
// for a repeated (field, value) pair.
func (v *vaultUseCase) Tokenize(
	ctx context.Context,
	fieldID string,
	value string,
	sensitivity vaultDomain.Sensitivity,
) (*vaultDomain.TokenRecord, error) {
	if fieldID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "field id cannot be empty")
	}
	if value == "" {
		return nil, vaultDomain.ErrEmptyValue
	}
	if len(value) > vaultDomain.MaxValueSize {
		return nil, vaultDomain.ErrValueTooLong
	}
	if err := sensitivity.Validate(); err != nil {
		return nil, err
	}

	valueHash := Fingerprint(fieldID, value)

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	existing, err := v.tokenRepo.GetByValueHash(ctx, valueHash)
	if err == nil && existing.Active {
		existing.Touch()
		if err := v.tokenRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err != nil && !apperrors.Is(err, vaultDomain.ErrTokenNotFound) {
		return nil, err
	}
	if err == nil && !existing.Active {
		// An index entry pointing at a revoked record means an earlier revoke
		// or purge lost its index write. Repair the mapping before minting so
		// the fresh record starts clean.
		if err := v.tokenRepo.RemoveIndex(ctx, valueHash); err != nil {
			return nil, err
		}
	}

	protected, err := v.protector.EncryptField(ctx, v.options.ProtectionFieldID, value)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to protect value")
	}

	envelope, err := cryptoDomain.ParseEnvelope(protected)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse protection envelope")
	}

	record, err := v.mintToken(ctx, fieldID, value, valueHash, sensitivity, protected, envelope.KeyVersion)
	if err != nil {
		return nil, err
	}

	event := events.New(events.TypeTokenIssued)
	event.FieldID = fieldID
	event.Token = record.TokenValue
	event.Sensitivity = sensitivity.String()
	event.KeyVersion = record.KeyVersion
	v.publisher.Publish(ctx, event)

	return record, nil
}

// mintToken generates a fresh token and stores the record, retrying on the
// off chance the generator produced a value already in use.
func (v *vaultUseCase) mintToken(
	ctx context.Context,
	fieldID string,
	value string,
	valueHash string,
	sensitivity vaultDomain.Sensitivity,
	protected []byte,
	keyVersion uint32,
) (*vaultDomain.TokenRecord, error) {
	generator, err := v.factory.GeneratorFor(fieldID)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxCollisionRetries; attempt++ {
		tokenValue, err := generator.Generate(value)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		record := &vaultDomain.TokenRecord{
			TokenID:      newTokenID(),
			FieldID:      fieldID,
			TokenValue:   tokenValue,
			Sensitivity:  sensitivity,
			Protected:    protected,
			ValueHash:    valueHash,
			KeyVersion:   keyVersion,
			CreatedAt:    now,
			LastAccessed: now,
			Active:       true,
		}

		if err := v.tokenRepo.Create(ctx, record); err != nil {
			if apperrors.Is(err, vaultDomain.ErrTokenCollision) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return record, nil
	}
	return nil, apperrors.Wrapf(lastErr, "gave up after %d attempts", maxCollisionRetries)
}

// Detokenize returns the original value for an active token.
func (v *vaultUseCase) Detokenize(ctx context.Context, tokenValue string) (string, error) {
	if !v.options.DetokenizationEnabled {
		v.publishRevealDenied(ctx, tokenValue, "detokenization_disabled")
		return "", vaultDomain.ErrDetokenizationDisabled
	}

	record, err := v.tokenRepo.GetByToken(ctx, tokenValue)
	if err != nil {
		if apperrors.Is(err, vaultDomain.ErrTokenNotFound) {
			v.publishRevealDenied(ctx, tokenValue, "unknown_token")
		}
		return "", err
	}

	if !record.Active {
		v.publishRevealDenied(ctx, tokenValue, "revoked")
		return "", vaultDomain.ErrTokenRevoked
	}

	decrypted, err := v.protector.DecryptField(ctx, v.options.ProtectionFieldID, record.Protected)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to recover protected value")
	}
	value, ok := decrypted.(string)
	if !ok {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "protected value is not a string")
	}

	record, err = v.touchActive(ctx, tokenValue)
	if err != nil {
		if apperrors.Is(err, vaultDomain.ErrTokenRevoked) {
			v.publishRevealDenied(ctx, tokenValue, "revoked")
		}
		return "", err
	}

	event := events.New(events.TypeTokenRevealed)
	event.FieldID = record.FieldID
	event.Token = record.TokenValue
	event.Sensitivity = record.Sensitivity.String()
	v.publisher.Publish(ctx, event)

	return value, nil
}

// touchActive records an access on a token under the write lock. The slow
// decrypt in Detokenize runs unlocked, so a revocation may have landed since
// the record was first loaded; writing back that stale copy would flip the
// token active again. Re-reading under writeMu closes the window.
func (v *vaultUseCase) touchActive(
	ctx context.Context,
	tokenValue string,
) (*vaultDomain.TokenRecord, error) {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	record, err := v.tokenRepo.GetByToken(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if !record.Active {
		return nil, vaultDomain.ErrTokenRevoked
	}

	record.Touch()
	if err := v.tokenRepo.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Revoke deactivates a token and removes its reverse index entry so the
// value can be tokenized again under a fresh token.
func (v *vaultUseCase) Revoke(ctx context.Context, tokenValue string) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	record, err := v.tokenRepo.GetByToken(ctx, tokenValue)
	if err != nil {
		return err
	}
	if !record.Active {
		return nil
	}

	record.Active = false
	record.LastAccessed = time.Now().UTC()
	if err := v.tokenRepo.Update(ctx, record); err != nil {
		return err
	}
	if err := v.tokenRepo.RemoveIndex(ctx, record.ValueHash); err != nil {
		return err
	}

	event := events.New(events.TypeTokenRevoked)
	event.FieldID = record.FieldID
	event.Token = record.TokenValue
	event.Sensitivity = record.Sensitivity.String()
	v.publisher.Publish(ctx, event)

	return nil
}

// Cleanup sweeps revoked records past the retention window. Deletion happens
// one record at a time and checks the context between records, so a long
// sweep can be interrupted.
func (v *vaultUseCase) Cleanup(
	ctx context.Context,
	maxAge time.Duration,
	dryRun bool,
) (*CleanupReport, error) {
	report := &CleanupReport{DryRun: dryRun}
	now := time.Now().UTC()

	var expired []*vaultDomain.TokenRecord
	err := v.tokenRepo.ForEach(ctx, func(record *vaultDomain.TokenRecord) error {
		report.Scanned++
		if record.Expired(maxAge, now) {
			expired = append(expired, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, record := range expired {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !dryRun {
			if err := v.tokenRepo.Delete(ctx, record); err != nil {
				return nil, err
			}
		}
		report.Removed++
	}

	if !dryRun && report.Removed > 0 {
		event := events.New(events.TypeVaultCleaned)
		event.Metadata = map[string]string{
			"removed": formatInt(report.Removed),
			"scanned": formatInt(report.Scanned),
		}
		v.publisher.Publish(ctx, event)
	}

	return report, nil
}

func (v *vaultUseCase) publishRevealDenied(ctx context.Context, tokenValue, reason string) {
	event := events.New(events.TypeTokenRevealDenied)
	event.Token = tokenValue
	event.Metadata = map[string]string{"reason": reason}
	v.publisher.Publish(ctx, event)
}

func newTokenID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}
