// Package usecase implements the column encryption service.
//
// This is the public façade for field-level protection: it resolves field
// policies, drives the serializer, compressor, encryption cache and cipher
// engine, and delegates key resolution to the key management use case. Batch
// variants fan records out across a bounded worker pool while keeping results
// in input order.
package usecase

import (
	"context"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// PolicyRepository defines the interface for field policy persistence.
type PolicyRepository interface {
	// Save stores a policy, overwriting any previous record for the field id.
	Save(ctx context.Context, policy *columnsDomain.FieldPolicy) error

	// Get retrieves the policy for one field id. Returns ErrUnknownField when
	// no policy is registered.
	Get(ctx context.Context, fieldID string) (*columnsDomain.FieldPolicy, error)

	// List retrieves every registered policy ordered by field id.
	List(ctx context.Context) ([]*columnsDomain.FieldPolicy, error)
}

// FieldValues maps field ids to plaintext values for batch encryption.
type FieldValues map[string]any

// EncryptedFields maps field ids to ciphertext envelopes for batch decryption.
type EncryptedFields map[string][]byte

// EncryptResult is the outcome of encrypting one batch record. Either Fields
// or Err is set, never both. Index refers to the record's position in the
// input slice; results are always returned in input order.
type EncryptResult struct {
	Index  int
	Fields EncryptedFields
	Err    error
}

// DecryptResult is the outcome of decrypting one batch record.
type DecryptResult struct {
	Index  int
	Fields FieldValues
	Err    error
}

// ColumnUseCase defines the column encryption operations of the service.
type ColumnUseCase interface {
	// RegisterField validates and persists a field policy and installs it in
	// the in-memory registry. Re-registering an existing field is allowed but
	// treated as an administrative change that requires a re-encryption plan;
	// a policy.updated event flags it.
	RegisterField(ctx context.Context, policy *columnsDomain.FieldPolicy) error

	// GetField returns the registered policy for one field id. Returns
	// ErrUnknownField when no policy is registered.
	GetField(ctx context.Context, fieldID string) (*columnsDomain.FieldPolicy, error)

	// ListFields returns every registered policy ordered by field id.
	ListFields(ctx context.Context) ([]*columnsDomain.FieldPolicy, error)

	// LoadPolicies fills the in-memory policy registry from the store. Called
	// once at startup before the encryption paths accept traffic.
	LoadPolicies(ctx context.Context) error

	// EncryptField protects a single value under the field's policy and
	// returns the marshaled ciphertext envelope. Returns ErrUnknownField when
	// no policy is registered for the field id.
	EncryptField(ctx context.Context, fieldID string, value any) ([]byte, error)

	// DecryptField reverses EncryptField. The envelope names the exact key
	// version to use, so values encrypted before a rotation stay readable.
	// Returns ErrAuthenticationFailed when the ciphertext fails its integrity
	// check; no partial plaintext is ever returned.
	DecryptField(ctx context.Context, fieldID string, ciphertext []byte) (any, error)

	// BatchEncrypt encrypts a slice of records. Records are processed in
	// fixed-size chunks, sequentially or concurrently per configuration.
	// A failing record captures its error without aborting the rest.
	BatchEncrypt(ctx context.Context, records []FieldValues) []EncryptResult

	// BatchDecrypt decrypts a slice of records with the same chunking,
	// concurrency and failure isolation as BatchEncrypt.
	BatchDecrypt(ctx context.Context, records []EncryptedFields) []DecryptResult

	// RotateKeys rotates the named key and synchronously clears the
	// encryption cache before returning. Existing envelopes stay decryptable
	// because they embed their key version.
	RotateKeys(ctx context.Context, keyID string) (*cryptoDomain.SymmetricKey, error)
}
