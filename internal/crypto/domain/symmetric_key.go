// Package domain defines the core cryptographic domain models for field encryption.
//
// It implements a two-tier key hierarchy: Master Key → Field Key → Data.
// Field keys are versioned per logical key id so ciphertext written under old
// versions stays readable after rotation. Supports AESGCM and ChaCha20
// algorithms with 256-bit keys.
package domain

import (
	"time"
)

// KeySize is the required key length in bytes for every supported algorithm.
const KeySize = 32

// MaxKeyIDLength is the maximum allowed length for key ids. Key ids are
// embedded in envelopes behind a single length byte, so they cannot exceed it.
const MaxKeyIDLength = 255

// SymmetricKey represents one version of a named field encryption key.
// The plaintext material is populated only inside the crypto context after
// unwrapping and is never persisted or serialized.
type SymmetricKey struct {
	KeyID     string    `json:"key_id"`     // Logical key name chosen by the caller
	Version   uint32    `json:"version"`    // Monotonically increasing, starts at 1
	Algorithm Algorithm `json:"algorithm"`  // Encryption algorithm (AESGCM or ChaCha20)
	Key       []byte    `json:"-"`          // Plaintext key material, never persisted
	CreatedAt time.Time `json:"created_at"` // UTC creation timestamp
	Active    bool      `json:"active"`     // Whether this version encrypts new data
}

// Metadata returns a copy of the key with the plaintext material stripped.
// Safe to hand to listings, events and API responses.
func (k *SymmetricKey) Metadata() *SymmetricKey {
	return &SymmetricKey{
		KeyID:     k.KeyID,
		Version:   k.Version,
		Algorithm: k.Algorithm,
		CreatedAt: k.CreatedAt,
		Active:    k.Active,
	}
}
