// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/fieldvault/fieldvault/internal/validation"
)

// TokenizeRequest contains the parameters for issuing a token.
type TokenizeRequest struct {
	FieldID     string `json:"field_id"`
	Value       string `json:"value"`
	Sensitivity string `json:"sensitivity"`
}

// Validate checks if the tokenize request is valid.
//
// Value length and sensitivity levels are enforced by the vault itself; the
// DTO only rejects structurally empty requests.
func (r *TokenizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FieldID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(1, 255),
		),
		validation.Field(&r.Value, validation.Required),
		validation.Field(&r.Sensitivity,
			validation.Required,
			validation.In("low", "medium", "high", "critical"),
		),
	)
}

// BatchTokenizeRequest contains a slice of tokenize requests processed with
// per-item failure isolation.
type BatchTokenizeRequest struct {
	Items []TokenizeRequest `json:"items"`
}

// Validate checks if the batch tokenize request is valid.
//
// Per-item validation happens inside the vault so one bad item does not fail
// the whole batch.
func (r *BatchTokenizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Items, validation.Required),
	)
}

// DetokenizeRequest contains the token whose original value is requested.
type DetokenizeRequest struct {
	Token string `json:"token"`
}

// Validate checks if the detokenize request is valid.
func (r *DetokenizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}

// RevokeTokenRequest contains the token to revoke.
type RevokeTokenRequest struct {
	Token string `json:"token"`
}

// Validate checks if the revoke token request is valid.
func (r *RevokeTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}
