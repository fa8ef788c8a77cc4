// Package usecase implements the tokenization vault.
//
// The vault swaps sensitive values for opaque tokens and keeps the reversible
// mapping in the store, with the original value encrypted through the column
// encryption service. Tokenization is idempotent per (field, value) while the
// mapping is active; revocation breaks the mapping without destroying the
// audit trail.
package usecase

import (
	"context"
	"time"

	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
)

// TokenRepository defines the interface for token record persistence.
type TokenRepository interface {
	// Create stores a new record and its reverse index entry. Returns
	// ErrTokenCollision when a record already exists under the token value.
	Create(ctx context.Context, record *vaultDomain.TokenRecord) error

	// GetByToken retrieves the record stored under a token value. Returns
	// ErrTokenNotFound when no record exists.
	GetByToken(ctx context.Context, tokenValue string) (*vaultDomain.TokenRecord, error)

	// GetByValueHash resolves a value fingerprint through the reverse index.
	// Returns ErrTokenNotFound when no mapping exists for the fingerprint.
	GetByValueHash(ctx context.Context, valueHash string) (*vaultDomain.TokenRecord, error)

	// Update overwrites an existing record in place.
	Update(ctx context.Context, record *vaultDomain.TokenRecord) error

	// RemoveIndex deletes the reverse index entry for a value fingerprint.
	RemoveIndex(ctx context.Context, valueHash string) error

	// Delete hard-removes a record and its reverse index entry.
	Delete(ctx context.Context, record *vaultDomain.TokenRecord) error

	// ForEach visits every token record and stops at the first callback error.
	ForEach(ctx context.Context, fn func(record *vaultDomain.TokenRecord) error) error
}

// ValueProtector encrypts and decrypts the original values the vault stores.
// The column encryption service satisfies it; the vault routes every value
// through one dedicated field policy.
type ValueProtector interface {
	EncryptField(ctx context.Context, fieldID string, value any) ([]byte, error)
	DecryptField(ctx context.Context, fieldID string, ciphertext []byte) (any, error)
}

// TokenizeInput is one batch tokenization request.
type TokenizeInput struct {
	FieldID     string
	Value       string
	Sensitivity vaultDomain.Sensitivity
}

// TokenizeResult is the outcome of tokenizing one batch input. Either Record
// or Err is set, never both. Index refers to the input's position in the
// request slice; results are always returned in input order.
type TokenizeResult struct {
	Index  int
	Record *vaultDomain.TokenRecord
	Err    error
}

// CleanupReport summarizes one retention sweep.
type CleanupReport struct {
	// Scanned is the number of records examined.
	Scanned int
	// Removed is the number of expired revoked records deleted, or that
	// would be deleted on a dry run.
	Removed int
	// DryRun indicates the sweep only counted and deleted nothing.
	DryRun bool
}

// VaultUseCase defines the tokenization operations of the service.
type VaultUseCase interface {
	// Tokenize exchanges a value for a token. Repeated calls with the same
	// field and value return the existing active token; a fresh token is
	// minted only when no active mapping exists.
	Tokenize(
		ctx context.Context,
		fieldID string,
		value string,
		sensitivity vaultDomain.Sensitivity,
	) (*vaultDomain.TokenRecord, error)

	// Detokenize returns the original value for an active token. Fails with
	// ErrDetokenizationDisabled when the vault is configured irreversible and
	// ErrTokenRevoked when the token has been revoked.
	Detokenize(ctx context.Context, tokenValue string) (string, error)

	// Revoke deactivates a token and frees its value for re-tokenization
	// under a fresh token. The record stays in the store for audit.
	// Revoking an already revoked token is a no-op.
	Revoke(ctx context.Context, tokenValue string) error

	// Cleanup hard-deletes revoked records whose last access is older than
	// maxAge. Active records are never touched. With dryRun the sweep only
	// reports what it would delete.
	Cleanup(ctx context.Context, maxAge time.Duration, dryRun bool) (*CleanupReport, error)

	// BatchTokenize tokenizes a slice of inputs in order. A failing input
	// captures its error without aborting the rest.
	BatchTokenize(ctx context.Context, inputs []TokenizeInput) []TokenizeResult
}
