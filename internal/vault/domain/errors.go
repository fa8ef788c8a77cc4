package domain

import (
	"github.com/fieldvault/fieldvault/internal/errors"
)

// Tokenization vault error definitions.
var (
	// ErrTokenNotFound indicates no record exists for the token value.
	//
	// HTTP Status: 404 Not Found
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrTokenRevoked indicates the token exists but has been revoked.
	// Detokenization fails from this state; the record is retained for audit
	// only.
	//
	// HTTP Status: 423 Locked
	ErrTokenRevoked = errors.Wrap(errors.ErrLocked, "token has been revoked")

	// ErrDetokenizationDisabled indicates the vault is configured
	// irreversible; stored values can never be revealed again.
	//
	// HTTP Status: 403 Forbidden
	ErrDetokenizationDisabled = errors.Wrap(
		errors.ErrForbidden,
		"detokenization is disabled",
	)

	// ErrInvalidSensitivity indicates an unknown sensitivity level.
	//
	// Supported levels: low, medium, high, critical.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidSensitivity = errors.Wrap(errors.ErrInvalidInput, "invalid sensitivity")

	// ErrValueTooLong indicates the original value exceeds MaxValueSize.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrValueTooLong = errors.Wrap(errors.ErrInvalidInput, "value exceeds maximum length")

	// ErrEmptyValue indicates an empty original value was submitted.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrEmptyValue = errors.Wrap(errors.ErrInvalidInput, "value cannot be empty")

	// ErrInvalidTokenLength indicates the configured token length is outside
	// the supported bounds.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidTokenLength = errors.Wrap(errors.ErrInvalidInput, "invalid token length")

	// ErrInvalidPattern indicates a format-preserving pattern is malformed.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidPattern = errors.Wrap(errors.ErrInvalidInput, "invalid token pattern")

	// ErrPatternMismatch indicates a source value does not match the
	// format-preserving pattern registered for its field.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrPatternMismatch = errors.Wrap(
		errors.ErrInvalidInput,
		"value does not match the registered pattern",
	)

	// ErrTokenCollision indicates token generation kept producing values
	// that already exist in the vault. Practically unreachable with sane
	// token lengths; surfaced instead of looping forever.
	ErrTokenCollision = errors.Wrap(errors.ErrConflict, "token generation collided")
)
