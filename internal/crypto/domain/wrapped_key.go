package domain

import (
	"time"
)

// WrappedKey is the at-rest form of a SymmetricKey. The field key material is
// encrypted (wrapped) with a master key before it reaches the store, so a
// leaked store never exposes usable keys. The master key id records which
// chain entry can unwrap it.
type WrappedKey struct {
	KeyID        string    `json:"key_id"`
	Version      uint32    `json:"version"`
	Algorithm    Algorithm `json:"algorithm"`
	MasterKeyID  string    `json:"master_key_id"`
	EncryptedKey []byte    `json:"encrypted_key"`
	Nonce        []byte    `json:"nonce"`
	CreatedAt    time.Time `json:"created_at"`
	Active       bool      `json:"active"`
}
