package service

import (
	"crypto/rand"
	"math/big"

	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
)

const alphanumericChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// alphanumericGenerator produces cryptographically secure random tokens over
// [A-Za-z0-9] with a fixed length. It is the default generator for fields
// without a registered format-preserving pattern.
type alphanumericGenerator struct {
	length int
}

// NewAlphanumericGenerator creates an alphanumeric token generator producing
// tokens of the given length. Returns ErrInvalidTokenLength when the length
// is outside the supported bounds.
func NewAlphanumericGenerator(length int) (TokenGenerator, error) {
	if length < vaultDomain.MinTokenLength || length > vaultDomain.MaxTokenLength {
		return nil, apperrors.Wrapf(
			vaultDomain.ErrInvalidTokenLength,
			"length must be between %d and %d, got %d",
			vaultDomain.MinTokenLength,
			vaultDomain.MaxTokenLength,
			length,
		)
	}
	return &alphanumericGenerator{length: length}, nil
}

// Generate creates a random alphanumeric token. The source value is ignored.
func (g *alphanumericGenerator) Generate(source string) (string, error) {
	token := make([]byte, g.length)
	charsLen := big.NewInt(int64(len(alphanumericChars)))

	for i := 0; i < g.length; i++ {
		n, err := rand.Int(rand.Reader, charsLen)
		if err != nil {
			return "", apperrors.Wrap(err, "failed to generate random character")
		}
		token[i] = alphanumericChars[n.Int64()]
	}

	return string(token), nil
}

// Validate checks that the token has the configured length and contains only
// alphanumeric characters.
func (g *alphanumericGenerator) Validate(token string) error {
	if len(token) != g.length {
		return apperrors.Wrapf(
			vaultDomain.ErrInvalidTokenLength,
			"expected %d characters, got %d",
			g.length,
			len(token),
		)
	}
	for _, c := range token {
		if !isAlphanumeric(c) {
			return apperrors.Wrap(
				vaultDomain.ErrInvalidPattern,
				"token must contain only alphanumeric characters",
			)
		}
	}
	return nil
}

// isAlphanumeric checks if a character is in [A-Za-z0-9].
func isAlphanumeric(c rune) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
