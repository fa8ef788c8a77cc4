package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// nonceDerivationInfo versions the derivation so the scheme can change without
// breaking existing ciphertext.
var nonceDerivationInfo = []byte("field-nonce-derivation-v1")

type nonceDeriver struct{}

// NewNonceDeriver creates the deterministic nonce deriver. It uses
// HKDF-SHA256 to derive a dedicated subkey from the field key, then
// HMAC-SHA256 over the field id and plaintext truncated to the AEAD nonce
// size. The same plaintext under the same key version and field id always
// yields the same nonce, which is what makes deterministic ciphertext
// equality work.
func NewNonceDeriver() NonceDeriver {
	return &nonceDeriver{}
}

// deriveSubkey uses HKDF-SHA256 to derive a 32-byte nonce derivation key.
// Separates encryption key usage from nonce derivation usage.
func (n *nonceDeriver) deriveSubkey(keyMaterial []byte) ([]byte, error) {
	hash := sha256.New
	hkdf := hkdf.New(hash, keyMaterial, nil, nonceDerivationInfo)

	subkey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf, subkey); err != nil {
		return nil, err
	}

	return subkey, nil
}

// Derive computes the deterministic nonce for plaintext under the given key
// and field id.
//
// Format: HMAC-SHA256(subkey, len(fieldID) || fieldID || len(plaintext) || plaintext)
// truncated to 12 bytes. Length-prefixed encoding prevents ambiguity between
// field id and plaintext boundaries.
func (n *nonceDeriver) Derive(
	key *cryptoDomain.SymmetricKey,
	fieldID string,
	plaintext []byte,
) ([]byte, error) {
	subkey, err := n.deriveSubkey(key.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to derive nonce subkey: %w", err)
	}
	defer cryptoDomain.Zero(subkey)

	mac := hmac.New(sha256.New, subkey)

	buf := make([]byte, 0, 8+len(fieldID)+len(plaintext))
	buf = appendLengthPrefixed(buf, []byte(fieldID))
	buf = appendLengthPrefixed(buf, plaintext)
	mac.Write(buf)

	digest := mac.Sum(nil)
	return digest[:cryptoDomain.NonceSize], nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}
