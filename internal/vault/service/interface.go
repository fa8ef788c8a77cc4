// Package service provides token generation for the tokenization vault.
//
// Two generator families exist: random alphanumeric tokens of configurable
// length, and format-preserving tokens that mirror the shape of the source
// value (digits for digits, letters for letters, punctuation untouched).
// Neither is cryptographically derived from the source; reversibility lives
// only in the vault's stored mapping.
package service

// TokenGenerator produces substitute token values.
type TokenGenerator interface {
	// Generate produces a new token for the source value. Implementations
	// that do not preserve format ignore the source content entirely.
	Generate(source string) (string, error)

	// Validate checks that a token could have been produced by this
	// generator.
	Validate(token string) error
}
