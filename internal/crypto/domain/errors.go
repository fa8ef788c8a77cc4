package domain

import (
	"github.com/fieldvault/fieldvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. All errors are mapped to
// appropriate HTTP status codes by the error handling layer.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	//
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305)
	// This error is returned when an invalid or unknown algorithm is specified
	// during key generation or rotation.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrUnsupportedMode indicates the requested encryption mode is not supported.
	//
	// Supported modes: Deterministic, Randomized.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrUnsupportedMode = errors.Wrap(errors.ErrInvalidInput, "unsupported encryption mode")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	//
	// All keys (master keys and field keys) must be exactly 32 bytes (256 bits)
	// for both AES-256-GCM and ChaCha20-Poly1305 algorithms. This error is returned
	// when a key of incorrect length is provided.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrAuthenticationFailed indicates an authenticated decryption failed.
	//
	// This error can occur due to:
	//   - Wrong decryption key used
	//   - Ciphertext has been tampered with (tag mismatch)
	//   - Nonce or associated data altered after encryption
	//
	// For security reasons, the specific cause is not disclosed to prevent
	// information leakage that could aid attackers. No partial plaintext is
	// ever returned alongside this error.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrAuthenticationFailed = errors.Wrap(errors.ErrInvalidInput, "authentication failed")

	// ErrInvalidEnvelope indicates ciphertext bytes do not form a valid envelope.
	//
	// Returned when the input is truncated, carries an unknown layout, or
	// declares lengths that do not match the data.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidEnvelope = errors.Wrap(errors.ErrInvalidInput, "invalid envelope")

	// ErrKeyNotFound indicates no key exists for the requested key id.
	//
	// HTTP Status: 404 Not Found
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "key not found")

	// ErrKeyVersionNotFound indicates the key exists but the requested version does not.
	//
	// Version-bearing ciphertext referencing a purged or never-issued version
	// fails with this error rather than falling back to another version.
	//
	// HTTP Status: 404 Not Found
	ErrKeyVersionNotFound = errors.Wrap(errors.ErrNotFound, "key version not found")

	// ErrKeyAlreadyExists indicates a key with the requested id already has an active version.
	//
	// Use rotation to advance an existing key instead of generating it again.
	//
	// HTTP Status: 409 Conflict
	ErrKeyAlreadyExists = errors.Wrap(errors.ErrConflict, "key already exists")

	// ErrKeyVersionActive indicates an attempt to purge the active key version.
	//
	// Rotate the key first so a newer version takes over before purging.
	//
	// HTTP Status: 409 Conflict
	ErrKeyVersionActive = errors.Wrap(errors.ErrConflict, "key version is active")
)

// Master key loading error definitions.
var (
	// ErrMasterKeyNotFound indicates a wrapped key references a master key id
	// that is not present in the configured keychain. Usually means the
	// MASTER_KEYS configuration dropped a key that older wrapped keys still need.
	ErrMasterKeyNotFound = errors.Wrap(errors.ErrNotFound, "master key not found")

	// ErrMasterKeysNotSet indicates the MASTER_KEYS environment variable is missing.
	ErrMasterKeysNotSet = errors.Wrap(errors.ErrInvalidInput, "MASTER_KEYS not set")

	// ErrActiveMasterKeyIDNotSet indicates the ACTIVE_MASTER_KEY_ID environment variable is missing.
	ErrActiveMasterKeyIDNotSet = errors.Wrap(errors.ErrInvalidInput, "ACTIVE_MASTER_KEY_ID not set")

	// ErrInvalidMasterKeysFormat indicates MASTER_KEYS entries are not in "id:base64key" form.
	ErrInvalidMasterKeysFormat = errors.Wrap(errors.ErrInvalidInput, "invalid MASTER_KEYS format")

	// ErrInvalidMasterKeyBase64 indicates a master key is not valid standard base64.
	ErrInvalidMasterKeyBase64 = errors.Wrap(errors.ErrInvalidInput, "invalid master key base64")

	// ErrActiveMasterKeyNotFound indicates ACTIVE_MASTER_KEY_ID names a key absent from MASTER_KEYS.
	ErrActiveMasterKeyNotFound = errors.Wrap(errors.ErrInvalidInput, "active master key not found")
)
