package service

import (
	"crypto/rand"
	"math/big"
	"unicode"

	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
)

// Pattern placeholder characters. Any other rune in a pattern is a literal
// that is preserved verbatim in generated tokens (dashes, parentheses, dots,
// at-signs and the like).
const (
	placeholderDigit       = '#'
	placeholderUpperLetter = 'A'
	placeholderLowerLetter = 'a'
	placeholderAnyLetter   = '?'
)

const (
	digits       = "0123456789"
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerLetters = "abcdefghijklmnopqrstuvwxyz"
)

// formatPreservingGenerator produces tokens with the exact shape of a
// registered pattern: digits replace digits, letters replace letters of the
// same case, and literal separators stay where they are. An SSN-shaped field
// with pattern "###-##-####" always tokenizes to eleven characters with
// dashes in positions 3 and 6.
//
// The output is drawn from a secure random source but is intentionally not
// derived from the input; shape preservation provides format compatibility
// for downstream systems, never security.
type formatPreservingGenerator struct {
	pattern []rune
}

// NewFormatPreservingGenerator creates a generator for the given pattern.
// Returns ErrInvalidPattern when the pattern is empty, too long, or contains
// no placeholder at all (a literal-only pattern would emit one constant
// token).
func NewFormatPreservingGenerator(pattern string) (TokenGenerator, error) {
	runes := []rune(pattern)
	if len(runes) == 0 {
		return nil, apperrors.Wrap(vaultDomain.ErrInvalidPattern, "pattern cannot be empty")
	}
	if len(runes) > vaultDomain.MaxTokenLength {
		return nil, apperrors.Wrapf(
			vaultDomain.ErrInvalidPattern,
			"pattern exceeds %d characters",
			vaultDomain.MaxTokenLength,
		)
	}

	placeholders := 0
	for _, r := range runes {
		if isPlaceholder(r) {
			placeholders++
		}
	}
	if placeholders == 0 {
		return nil, apperrors.Wrap(
			vaultDomain.ErrInvalidPattern,
			"pattern must contain at least one placeholder",
		)
	}

	return &formatPreservingGenerator{pattern: runes}, nil
}

// Generate produces a random token shaped by the pattern. The source value
// must match the pattern; a mismatch means the field's data does not have
// the shape the configuration claims, which is surfaced rather than papered
// over.
func (g *formatPreservingGenerator) Generate(source string) (string, error) {
	sourceRunes := []rune(source)
	if err := g.match(sourceRunes); err != nil {
		return "", err
	}

	token := make([]rune, len(g.pattern))
	for i, p := range g.pattern {
		switch p {
		case placeholderDigit:
			r, err := randomRune(digits)
			if err != nil {
				return "", err
			}
			token[i] = r
		case placeholderUpperLetter:
			r, err := randomRune(upperLetters)
			if err != nil {
				return "", err
			}
			token[i] = r
		case placeholderLowerLetter:
			r, err := randomRune(lowerLetters)
			if err != nil {
				return "", err
			}
			token[i] = r
		case placeholderAnyLetter:
			// Keep the case of the source character.
			alphabet := lowerLetters
			if unicode.IsUpper(sourceRunes[i]) {
				alphabet = upperLetters
			}
			r, err := randomRune(alphabet)
			if err != nil {
				return "", err
			}
			token[i] = r
		default:
			token[i] = p
		}
	}

	return string(token), nil
}

// Validate checks that a token has the pattern's shape.
func (g *formatPreservingGenerator) Validate(token string) error {
	return g.match([]rune(token))
}

// match verifies that value conforms to the pattern position by position.
func (g *formatPreservingGenerator) match(value []rune) error {
	if len(value) != len(g.pattern) {
		return apperrors.Wrapf(
			vaultDomain.ErrPatternMismatch,
			"expected %d characters, got %d",
			len(g.pattern),
			len(value),
		)
	}

	for i, p := range g.pattern {
		c := value[i]
		switch p {
		case placeholderDigit:
			if c < '0' || c > '9' {
				return apperrors.Wrapf(
					vaultDomain.ErrPatternMismatch,
					"position %d must be a digit",
					i,
				)
			}
		case placeholderUpperLetter:
			if c < 'A' || c > 'Z' {
				return apperrors.Wrapf(
					vaultDomain.ErrPatternMismatch,
					"position %d must be an uppercase letter",
					i,
				)
			}
		case placeholderLowerLetter:
			if c < 'a' || c > 'z' {
				return apperrors.Wrapf(
					vaultDomain.ErrPatternMismatch,
					"position %d must be a lowercase letter",
					i,
				)
			}
		case placeholderAnyLetter:
			if !unicode.IsLetter(c) {
				return apperrors.Wrapf(
					vaultDomain.ErrPatternMismatch,
					"position %d must be a letter",
					i,
				)
			}
		default:
			if c != p {
				return apperrors.Wrapf(
					vaultDomain.ErrPatternMismatch,
					"position %d must be %q",
					i,
					string(p),
				)
			}
		}
	}
	return nil
}

// isPlaceholder reports whether a pattern rune substitutes rather than
// preserves.
func isPlaceholder(r rune) bool {
	switch r {
	case placeholderDigit, placeholderUpperLetter, placeholderLowerLetter, placeholderAnyLetter:
		return true
	default:
		return false
	}
}

// randomRune draws one rune from the alphabet using a secure random source.
func randomRune(alphabet string) (rune, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to generate random character")
	}
	return rune(alphabet[n.Int64()]), nil
}
