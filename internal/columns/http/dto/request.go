// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"fmt"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	customValidation "github.com/fieldvault/fieldvault/internal/validation"
)

// RegisterFieldRequest contains the parameters for registering a field
// encryption policy.
type RegisterFieldRequest struct {
	FieldID         string `json:"field_id"`
	KeyID           string `json:"key_id"`
	Mode            string `json:"mode"`  // "deterministic" or "randomized"
	Shape           string `json:"shape"` // "string", "text", "json" or "number"
	Compress        bool   `json:"compress"`
	CacheRandomized bool   `json:"cache_randomized"`
}

// Validate checks if the register field request is valid.
func (r *RegisterFieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FieldID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(1, 255),
		),
		validation.Field(&r.KeyID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(1, 255),
		),
		validation.Field(&r.Mode,
			validation.Required,
			validation.By(validateMode),
		),
		validation.Field(&r.Shape,
			validation.Required,
			validation.In("string", "text", "json", "number"),
		),
	)
}

// EncryptFieldRequest contains a single value to protect.
type EncryptFieldRequest struct {
	Value any `json:"value"`
}

// Validate checks if the encrypt field request is valid.
func (r *EncryptFieldRequest) Validate() error {
	if r.Value == nil {
		return validation.NewError("validation_value_required", "value is required")
	}
	return nil
}

// DecryptFieldRequest contains a single ciphertext envelope to reverse.
type DecryptFieldRequest struct {
	Ciphertext string `json:"ciphertext"` // Base64-encoded envelope
}

// Validate checks if the decrypt field request is valid.
func (r *DecryptFieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Ciphertext,
			validation.Required,
			customValidation.NotBlank,
			customValidation.Base64,
		),
	)
}

// BatchEncryptRequest contains records of plaintext field values.
type BatchEncryptRequest struct {
	Records []map[string]any `json:"records"`
}

// Validate checks if the batch encrypt request is valid.
func (r *BatchEncryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Records, validation.Required),
	)
}

// BatchDecryptRequest contains records of base64-encoded envelopes.
type BatchDecryptRequest struct {
	Records []map[string]string `json:"records"`
}

// Validate checks if the batch decrypt request is valid.
func (r *BatchDecryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Records, validation.Required),
	)
}

// validateMode validates that the encryption mode is supported.
func validateMode(value interface{}) error {
	mode, ok := value.(string)
	if !ok {
		return validation.NewError("validation_mode_type", "must be a string")
	}

	_, err := ParseMode(mode)
	return err
}

// ParseMode converts a string to a cryptoDomain.Mode.
// Returns an error if the mode is not supported.
func ParseMode(mode string) (cryptoDomain.Mode, error) {
	switch mode {
	case "deterministic":
		return cryptoDomain.Deterministic, nil
	case "randomized":
		return cryptoDomain.Randomized, nil
	default:
		return "", fmt.Errorf("invalid mode: must be 'deterministic' or 'randomized'")
	}
}
