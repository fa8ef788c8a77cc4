// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"fmt"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	customValidation "github.com/fieldvault/fieldvault/internal/validation"
)

// CreateKeyRequest contains the parameters for creating a new field key.
type CreateKeyRequest struct {
	KeyID     string `json:"key_id"`
	Algorithm string `json:"algorithm"` // "aes-gcm" or "chacha20-poly1305"
}

// Validate checks if the create key request is valid.
func (r *CreateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.KeyID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(1, 255),
		),
		validation.Field(&r.Algorithm,
			validation.Required,
			customValidation.NotBlank,
			validation.By(validateAlgorithm),
		),
	)
}

// RotateKeyRequest contains the parameters for rotating a key. The algorithm
// is optional: when empty the new version keeps the current algorithm.
type RotateKeyRequest struct {
	Algorithm string `json:"algorithm,omitempty"`
}

// Validate checks if the rotate key request is valid.
func (r *RotateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Algorithm,
			validation.By(validateOptionalAlgorithm),
		),
	)
}

// validateAlgorithm validates that the algorithm is supported.
func validateAlgorithm(value interface{}) error {
	alg, ok := value.(string)
	if !ok {
		return validation.NewError("validation_algorithm_type", "must be a string")
	}

	_, err := ParseAlgorithm(alg)
	return err
}

// validateOptionalAlgorithm accepts an empty algorithm.
func validateOptionalAlgorithm(value interface{}) error {
	alg, ok := value.(string)
	if !ok {
		return validation.NewError("validation_algorithm_type", "must be a string")
	}
	if alg == "" {
		return nil
	}

	_, err := ParseAlgorithm(alg)
	return err
}

// ParseAlgorithm converts a string to a cryptoDomain.Algorithm.
// Returns an error if the algorithm is not supported.
func ParseAlgorithm(alg string) (cryptoDomain.Algorithm, error) {
	switch alg {
	case "aes-gcm":
		return cryptoDomain.AESGCM, nil
	case "chacha20-poly1305":
		return cryptoDomain.ChaCha20, nil
	default:
		return "", fmt.Errorf("invalid algorithm: must be 'aes-gcm' or 'chacha20-poly1305'")
	}
}
