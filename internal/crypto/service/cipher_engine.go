package service

import (
	"fmt"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// CipherEngineService implements the CipherEngine interface for field-level
// encryption.
//
// The engine turns plaintext field values into self-describing envelopes that
// carry the key id, key version, nonce and authentication tag alongside the
// ciphertext. Decryption only needs the envelope and the key version it names,
// so key rotation never requires re-encrypting data eagerly.
//
// Two encryption modes are supported:
//   - Randomized: a fresh random nonce per call, so identical plaintexts
//     produce different ciphertexts. This is the default and the safest mode.
//   - Deterministic: the nonce is derived from the key, field id and
//     plaintext, so identical plaintexts produce identical ciphertexts under
//     the same key version. Required for equality lookups over encrypted
//     columns.
//
// The field id is bound as associated data in both modes, so a ciphertext
// moved to a different field fails authentication.
type CipherEngineService struct {
	aeadManager  AEADManager
	nonceDeriver NonceDeriver
}

// NewCipherEngine creates a new CipherEngineService instance.
//
// Parameters:
//   - aeadManager: The AEADManager used to create cipher instances
//   - nonceDeriver: The NonceDeriver used for deterministic mode nonces
//
// Returns:
//   - A new CipherEngineService instance
func NewCipherEngine(aeadManager AEADManager, nonceDeriver NonceDeriver) *CipherEngineService {
	return &CipherEngineService{
		aeadManager:  aeadManager,
		nonceDeriver: nonceDeriver,
	}
}

// Encrypt seals plaintext under the given key and mode into an envelope.
//
// The field id is used as associated data, binding the ciphertext to the
// field it was produced for. In Deterministic mode the nonce is derived from
// the key material, field id and plaintext; in Randomized mode a fresh random
// nonce is generated per call.
//
// Parameters:
//   - key: The field key to encrypt with (must have Key material populated)
//   - mode: The encryption mode (Deterministic or Randomized)
//   - fieldID: The field identifier bound as associated data
//   - plaintext: The value to encrypt
//
// Returns:
//   - An Envelope carrying key id, key version, nonce, tag and ciphertext
//   - An error if the mode or algorithm is unsupported or encryption fails
func (ce *CipherEngineService) Encrypt(
	key *cryptoDomain.SymmetricKey,
	mode cryptoDomain.Mode,
	fieldID string,
	plaintext []byte,
) (*cryptoDomain.Envelope, error) {
	aead, err := ce.aeadManager.CreateCipher(key.Key, key.Algorithm)
	if err != nil {
		return nil, err
	}

	aad := []byte(fieldID)

	var ciphertext, nonce []byte
	switch mode {
	case cryptoDomain.Randomized:
		ciphertext, nonce, err = aead.Encrypt(plaintext, aad)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt field: %w", err)
		}
	case cryptoDomain.Deterministic:
		nonce, err = ce.nonceDeriver.Derive(key, fieldID, plaintext)
		if err != nil {
			return nil, fmt.Errorf("failed to derive nonce: %w", err)
		}
		ciphertext, err = aead.EncryptWithNonce(plaintext, nonce, aad)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt field: %w", err)
		}
	default:
		return nil, cryptoDomain.ErrUnsupportedMode
	}

	// AEAD Seal appends the authentication tag to the ciphertext. The
	// envelope stores the tag separately, so split it off the end.
	if len(ciphertext) < cryptoDomain.TagSize {
		return nil, cryptoDomain.ErrInvalidEnvelope
	}
	tagOffset := len(ciphertext) - cryptoDomain.TagSize

	envelope := &cryptoDomain.Envelope{
		KeyID:      key.KeyID,
		KeyVersion: key.Version,
		Nonce:      nonce,
		Tag:        ciphertext[tagOffset:],
		Payload:    ciphertext[:tagOffset],
	}

	return envelope, nil
}

// Decrypt opens an envelope using the key version it names.
//
// The caller must resolve the envelope's KeyID and KeyVersion to the matching
// field key before calling. The field id must match the one used during
// encryption, otherwise authentication fails.
//
// Fails closed: any mismatch in key, field id, nonce, tag or payload returns
// ErrAuthenticationFailed and no plaintext.
//
// Parameters:
//   - key: The field key named by the envelope (must have Key material populated)
//   - fieldID: The field identifier bound as associated data during encryption
//   - envelope: The envelope to open
//
// Returns:
//   - The decrypted plaintext
//   - ErrAuthenticationFailed if the ciphertext fails authentication
func (ce *CipherEngineService) Decrypt(
	key *cryptoDomain.SymmetricKey,
	fieldID string,
	envelope *cryptoDomain.Envelope,
) ([]byte, error) {
	aead, err := ce.aeadManager.CreateCipher(key.Key, key.Algorithm)
	if err != nil {
		return nil, err
	}

	// Recombine payload and tag into the form AEAD Open expects.
	ciphertext := make([]byte, 0, len(envelope.Payload)+len(envelope.Tag))
	ciphertext = append(ciphertext, envelope.Payload...)
	ciphertext = append(ciphertext, envelope.Tag...)

	plaintext, err := aead.Decrypt(ciphertext, envelope.Nonce, []byte(fieldID))
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	return plaintext, nil
}
