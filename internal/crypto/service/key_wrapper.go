package service

import (
	"crypto/rand"
	"fmt"
	"time"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// KeyWrapperService implements the KeyWrapper interface for the key hierarchy.
//
// Field keys are generated as random 32-byte (256-bit) keys and wrapped with
// the active master key before they reach the store:
//   - Master keys wrap field keys
//   - Field keys encrypt field values
//
// The master key's ID travels with the wrapped form so rotation can keep old
// master keys around until every field key has been rewrapped. The service
// uses AEADManager to create cipher instances, following dependency injection
// principles and separating concerns.
type KeyWrapperService struct {
	aeadManager AEADManager
}

// NewKeyWrapper creates a new KeyWrapperService instance with the provided AEADManager.
func NewKeyWrapper(aeadManager AEADManager) *KeyWrapperService {
	return &KeyWrapperService{
		aeadManager: aeadManager,
	}
}

// GenerateKey creates a new field key version wrapped with the provided master key.
//
// The key material is generated from crypto/rand and immediately wrapped with
// the master key using the master key's own AES-256-GCM cipher, so the at-rest
// form never contains usable key bytes. The returned SymmetricKey carries the
// plaintext material for installation into the key ring; the returned
// WrappedKey is what the repository persists.
//
// Parameters:
//   - masterKey: The MasterKey used to wrap the field key
//   - keyID: Logical key name chosen by the caller
//   - version: The version this key takes within its key id
//   - alg: The encryption algorithm the field key will be used with
//
// Returns:
//   - The in-memory SymmetricKey (marked active) and its at-rest WrappedKey
//   - An error if the algorithm is unsupported or wrapping fails
func (kw *KeyWrapperService) GenerateKey(
	masterKey *cryptoDomain.MasterKey,
	keyID string,
	version uint32,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.SymmetricKey, *cryptoDomain.WrappedKey, error) {
	// Generate random 32-byte field key material
	material := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(material); err != nil {
		return nil, nil, fmt.Errorf("failed to generate field key: %w", err)
	}

	// Validate the requested algorithm before wrapping
	if alg != cryptoDomain.AESGCM && alg != cryptoDomain.ChaCha20 {
		return nil, nil, cryptoDomain.ErrUnsupportedAlgorithm
	}

	// Wrap the field key with the master key
	aead, err := kw.aeadManager.CreateCipher(masterKey.Key, cryptoDomain.AESGCM)
	if err != nil {
		return nil, nil, err
	}

	encryptedKey, nonce, err := aead.Encrypt(material, []byte(keyID))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to wrap field key: %w", err)
	}

	createdAt := time.Now().UTC()

	key := &cryptoDomain.SymmetricKey{
		KeyID:     keyID,
		Version:   version,
		Algorithm: alg,
		Key:       material,
		CreatedAt: createdAt,
		Active:    true,
	}

	wrapped := &cryptoDomain.WrappedKey{
		KeyID:        keyID,
		Version:      version,
		Algorithm:    alg,
		MasterKeyID:  masterKey.ID,
		EncryptedKey: encryptedKey,
		Nonce:        nonce,
		CreatedAt:    createdAt,
		Active:       true,
	}

	return key, wrapped, nil
}

// UnwrapKey decrypts a wrapped field key using the master key that wrapped it.
//
// The unwrapped key is returned as an in-memory SymmetricKey ready for the
// key ring. The plaintext material must be zeroed when it leaves use.
//
// Returns ErrAuthenticationFailed if the wrapped form was tampered with or the
// wrong master key is supplied.
func (kw *KeyWrapperService) UnwrapKey(
	wrapped *cryptoDomain.WrappedKey,
	masterKey *cryptoDomain.MasterKey,
) (*cryptoDomain.SymmetricKey, error) {
	aead, err := kw.aeadManager.CreateCipher(masterKey.Key, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}

	material, err := aead.Decrypt(wrapped.EncryptedKey, wrapped.Nonce, []byte(wrapped.KeyID))
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	return &cryptoDomain.SymmetricKey{
		KeyID:     wrapped.KeyID,
		Version:   wrapped.Version,
		Algorithm: wrapped.Algorithm,
		Key:       material,
		CreatedAt: wrapped.CreatedAt,
		Active:    wrapped.Active,
	}, nil
}
