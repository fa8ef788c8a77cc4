// Package service provides the cryptographic services for field encryption.
// Implements AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305), key wrapping under
// master keys, deterministic nonce derivation and the envelope cipher engine.
package service

import (
	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with a fresh random nonce and optional AAD,
	// returning ciphertext and the nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// EncryptWithNonce encrypts plaintext using the caller-provided nonce.
	// The caller is responsible for nonce uniqueness guarantees.
	EncryptWithNonce(plaintext, nonce, aad []byte) ([]byte, error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyWrapper defines the interface for generating field keys and moving them
// between their plaintext and master-key-wrapped forms.
type KeyWrapper interface {
	// GenerateKey creates a new field key version wrapped with the master key.
	// Returns both the in-memory key and its at-rest form.
	GenerateKey(
		masterKey *cryptoDomain.MasterKey,
		keyID string,
		version uint32,
		alg cryptoDomain.Algorithm,
	) (*cryptoDomain.SymmetricKey, *cryptoDomain.WrappedKey, error)

	// UnwrapKey decrypts a wrapped field key using the master key that wrapped it.
	UnwrapKey(
		wrapped *cryptoDomain.WrappedKey,
		masterKey *cryptoDomain.MasterKey,
	) (*cryptoDomain.SymmetricKey, error)
}

// NonceDeriver derives deterministic nonces from key material and plaintext.
type NonceDeriver interface {
	// Derive computes the nonce for deterministic encryption of plaintext
	// under the given key and field id.
	Derive(key *cryptoDomain.SymmetricKey, fieldID string, plaintext []byte) ([]byte, error)
}

// CipherEngine encrypts and decrypts field values as self-describing envelopes.
type CipherEngine interface {
	// Encrypt seals plaintext under the given key and mode, binding the field
	// id as associated data.
	Encrypt(
		key *cryptoDomain.SymmetricKey,
		mode cryptoDomain.Mode,
		fieldID string,
		plaintext []byte,
	) (*cryptoDomain.Envelope, error)

	// Decrypt opens an envelope with the key version it names. Fails closed:
	// any authentication mismatch returns ErrAuthenticationFailed and no
	// plaintext.
	Decrypt(
		key *cryptoDomain.SymmetricKey,
		fieldID string,
		envelope *cryptoDomain.Envelope,
	) ([]byte, error)
}
