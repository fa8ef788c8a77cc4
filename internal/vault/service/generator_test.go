package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
)

func TestAlphanumericGenerator(t *testing.T) {
	t.Run("generates token of the configured length", func(t *testing.T) {
		generator, err := NewAlphanumericGenerator(24)
		require.NoError(t, err)

		token, err := generator.Generate("whatever")
		require.NoError(t, err)
		assert.Len(t, token, 24)

		for _, c := range token {
			isDigit := c >= '0' && c <= '9'
			isLower := c >= 'a' && c <= 'z'
			isUpper := c >= 'A' && c <= 'Z'
			assert.True(t, isDigit || isLower || isUpper, "unexpected character %q", string(c))
		}
	})

	t.Run("generated tokens differ", func(t *testing.T) {
		generator, err := NewAlphanumericGenerator(32)
		require.NoError(t, err)

		first, err := generator.Generate("value")
		require.NoError(t, err)
		second, err := generator.Generate("value")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("rejects length below the minimum", func(t *testing.T) {
		_, err := NewAlphanumericGenerator(vaultDomain.MinTokenLength - 1)
		assert.ErrorIs(t, err, vaultDomain.ErrInvalidTokenLength)
	})

	t.Run("rejects length above the maximum", func(t *testing.T) {
		_, err := NewAlphanumericGenerator(vaultDomain.MaxTokenLength + 1)
		assert.ErrorIs(t, err, vaultDomain.ErrInvalidTokenLength)
	})

	t.Run("validate accepts generated tokens", func(t *testing.T) {
		generator, err := NewAlphanumericGenerator(16)
		require.NoError(t, err)

		token, err := generator.Generate("")
		require.NoError(t, err)
		assert.NoError(t, generator.Validate(token))
	})
}

func TestFormatPreservingGenerator(t *testing.T) {
	t.Run("preserves ssn shape", func(t *testing.T) {
		generator, err := NewFormatPreservingGenerator("###-##-####")
		require.NoError(t, err)

		token, err := generator.Generate("123-45-6789")
		require.NoError(t, err)

		require.Len(t, token, 11)
		assert.Equal(t, byte('-'), token[3])
		assert.Equal(t, byte('-'), token[6])
		for i, c := range token {
			if i == 3 || i == 6 {
				continue
			}
			assert.True(t, c >= '0' && c <= '9', "position %d should be a digit, got %q", i, string(c))
		}
	})

	t.Run("preserves phone shape with literal parentheses", func(t *testing.T) {
		generator, err := NewFormatPreservingGenerator("(###) ###-####")
		require.NoError(t, err)

		token, err := generator.Generate("(555) 867-5309")
		require.NoError(t, err)

		require.Len(t, token, 14)
		assert.Equal(t, byte('('), token[0])
		assert.Equal(t, byte(')'), token[4])
		assert.Equal(t, byte(' '), token[5])
		assert.Equal(t, byte('-'), token[9])
	})

	t.Run("letter placeholders respect case", func(t *testing.T) {
		generator, err := NewFormatPreservingGenerator("AA-aa")
		require.NoError(t, err)

		token, err := generator.Generate("XY-zw")
		require.NoError(t, err)

		require.Len(t, token, 5)
		assert.True(t, token[0] >= 'A' && token[0] <= 'Z')
		assert.True(t, token[1] >= 'A' && token[1] <= 'Z')
		assert.Equal(t, byte('-'), token[2])
		assert.True(t, token[3] >= 'a' && token[3] <= 'z')
		assert.True(t, token[4] >= 'a' && token[4] <= 'z')
	})

	t.Run("any-case placeholder keeps source case", func(t *testing.T) {
		generator, err := NewFormatPreservingGenerator("????")
		require.NoError(t, err)

		token, err := generator.Generate("AbCd")
		require.NoError(t, err)

		require.Len(t, token, 4)
		assert.True(t, token[0] >= 'A' && token[0] <= 'Z')
		assert.True(t, token[1] >= 'a' && token[1] <= 'z')
		assert.True(t, token[2] >= 'A' && token[2] <= 'Z')
		assert.True(t, token[3] >= 'a' && token[3] <= 'z')
	})

	t.Run("rejects source that does not match the pattern", func(t *testing.T) {
		generator, err := NewFormatPreservingGenerator("###-##-####")
		require.NoError(t, err)

		_, err = generator.Generate("not an ssn")
		assert.ErrorIs(t, err, vaultDomain.ErrPatternMismatch)

		_, err = generator.Generate("123-45-678")
		assert.ErrorIs(t, err, vaultDomain.ErrPatternMismatch)

		_, err = generator.Generate("123.45.6789")
		assert.ErrorIs(t, err, vaultDomain.ErrPatternMismatch)
	})

	t.Run("validate checks token shape", func(t *testing.T) {
		generator, err := NewFormatPreservingGenerator("###-##-####")
		require.NoError(t, err)

		assert.NoError(t, generator.Validate("987-65-4321"))
		assert.ErrorIs(t, generator.Validate("987654321"), vaultDomain.ErrPatternMismatch)
		assert.ErrorIs(t, generator.Validate("abc-de-fghi"), vaultDomain.ErrPatternMismatch)
	})

	t.Run("rejects empty pattern", func(t *testing.T) {
		_, err := NewFormatPreservingGenerator("")
		assert.ErrorIs(t, err, vaultDomain.ErrInvalidPattern)
	})

	t.Run("rejects literal-only pattern", func(t *testing.T) {
		_, err := NewFormatPreservingGenerator("---")
		assert.ErrorIs(t, err, vaultDomain.ErrInvalidPattern)
	})
}

func TestPatternRegistry(t *testing.T) {
	t.Run("parses multiple entries", func(t *testing.T) {
		registry, err := NewPatternRegistry("customer.ssn:###-##-####,customer.phone:(###) ###-####")
		require.NoError(t, err)

		assert.Equal(t, 2, registry.Len())

		pattern, ok := registry.Lookup("customer.ssn")
		require.True(t, ok)
		assert.Equal(t, "###-##-####", pattern)

		pattern, ok = registry.Lookup("customer.phone")
		require.True(t, ok)
		assert.Equal(t, "(###) ###-####", pattern)
	})

	t.Run("empty spec yields empty registry", func(t *testing.T) {
		registry, err := NewPatternRegistry("")
		require.NoError(t, err)
		assert.Equal(t, 0, registry.Len())
	})

	t.Run("tolerates whitespace around entries", func(t *testing.T) {
		registry, err := NewPatternRegistry(" customer.ssn : ###-##-#### ")
		require.NoError(t, err)

		pattern, ok := registry.Lookup("customer.ssn")
		require.True(t, ok)
		assert.Equal(t, "###-##-####", pattern)
	})

	t.Run("rejects entry without a pattern", func(t *testing.T) {
		_, err := NewPatternRegistry("customer.ssn")
		assert.ErrorIs(t, err, vaultDomain.ErrInvalidPattern)
	})

	t.Run("rejects invalid pattern at parse time", func(t *testing.T) {
		_, err := NewPatternRegistry("customer.ssn:---")
		assert.ErrorIs(t, err, vaultDomain.ErrInvalidPattern)
	})

	t.Run("lookup misses unregistered field", func(t *testing.T) {
		registry, err := NewPatternRegistry("customer.ssn:###-##-####")
		require.NoError(t, err)

		_, ok := registry.Lookup("customer.email")
		assert.False(t, ok)
	})
}

func TestTokenGeneratorFactory(t *testing.T) {
	t.Run("returns format preserving generator for registered field", func(t *testing.T) {
		registry, err := NewPatternRegistry("customer.ssn:###-##-####")
		require.NoError(t, err)
		factory := NewTokenGeneratorFactory(registry, 32)

		generator, err := factory.GeneratorFor("customer.ssn")
		require.NoError(t, err)

		token, err := generator.Generate("123-45-6789")
		require.NoError(t, err)
		assert.Len(t, token, 11)
	})

	t.Run("falls back to alphanumeric generator", func(t *testing.T) {
		registry, err := NewPatternRegistry("")
		require.NoError(t, err)
		factory := NewTokenGeneratorFactory(registry, 32)

		generator, err := factory.GeneratorFor("customer.email")
		require.NoError(t, err)

		token, err := generator.Generate("user@example.com")
		require.NoError(t, err)
		assert.Len(t, token, 32)
	})
}
