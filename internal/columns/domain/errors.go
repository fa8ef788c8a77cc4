package domain

import (
	"github.com/fieldvault/fieldvault/internal/errors"
)

// Column encryption error definitions.
//
// These wrap the standard errors from internal/errors so the HTTP layer can
// map them to status codes without knowing about column encryption.
var (
	// ErrUnknownField indicates no policy is registered for the field id.
	//
	// Every encrypt and decrypt call resolves a FieldPolicy first; a missing
	// policy is a configuration error, not a reason to fall back to some
	// default protection.
	//
	// HTTP Status: 404 Not Found
	ErrUnknownField = errors.Wrap(errors.ErrNotFound, "unknown field")

	// ErrEmptyFieldID indicates a policy was registered without a field id.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrEmptyFieldID = errors.Wrap(errors.ErrInvalidInput, "field id cannot be empty")

	// ErrEmptyKeyID indicates a policy was registered without a key id.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrEmptyKeyID = errors.Wrap(errors.ErrInvalidInput, "key id cannot be empty")

	// ErrUnsupportedShape indicates the policy declares an unknown data shape.
	//
	// Supported shapes: string, text, json, number.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrUnsupportedShape = errors.Wrap(errors.ErrInvalidInput, "unsupported data shape")

	// ErrDeterministicText indicates a deterministic policy over free text.
	//
	// Deterministic ciphertext leaks equality between values; for
	// high-cardinality free text that amounts to a frequency oracle, so the
	// combination is rejected outright.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrDeterministicText = errors.Wrap(
		errors.ErrInvalidInput,
		"deterministic mode is not allowed for text fields",
	)

	// ErrSerializationFailed indicates a value could not be serialized for
	// its declared shape (e.g., a string submitted for a number field).
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrSerializationFailed = errors.Wrap(errors.ErrInvalidInput, "serialization failed")

	// ErrDeserializationFailed indicates decrypted bytes could not be turned
	// back into a value of the declared shape. Usually means the policy shape
	// changed after data was written.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrDeserializationFailed = errors.Wrap(errors.ErrInvalidInput, "deserialization failed")

	// ErrDecompressionFailed indicates the compressed payload is corrupt or
	// would inflate beyond the configured bound.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrDecompressionFailed = errors.Wrap(errors.ErrInvalidInput, "decompression failed")
)
