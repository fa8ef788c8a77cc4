package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

func TestShapeValidate(t *testing.T) {
	t.Run("accepts supported shapes", func(t *testing.T) {
		for _, shape := range []Shape{ShapeString, ShapeText, ShapeJSON, ShapeNumber} {
			assert.NoError(t, shape.Validate())
		}
	})

	t.Run("rejects unknown shape", func(t *testing.T) {
		err := Shape("binary").Validate()
		assert.ErrorIs(t, err, ErrUnsupportedShape)
	})
}

func TestFieldPolicyValidate(t *testing.T) {
	valid := func() *FieldPolicy {
		return &FieldPolicy{
			FieldID: "users.email",
			KeyID:   "pii",
			Mode:    cryptoDomain.Deterministic,
			Shape:   ShapeString,
		}
	}

	t.Run("accepts a valid policy", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects empty field id", func(t *testing.T) {
		policy := valid()
		policy.FieldID = ""
		assert.ErrorIs(t, policy.Validate(), ErrEmptyFieldID)
	})

	t.Run("rejects empty key id", func(t *testing.T) {
		policy := valid()
		policy.KeyID = ""
		assert.ErrorIs(t, policy.Validate(), ErrEmptyKeyID)
	})

	t.Run("rejects unknown mode instead of defaulting", func(t *testing.T) {
		policy := valid()
		policy.Mode = "synthetic"
		assert.ErrorIs(t, policy.Validate(), cryptoDomain.ErrUnsupportedMode)
	})

	t.Run("rejects unknown shape", func(t *testing.T) {
		policy := valid()
		policy.Shape = "blob"
		assert.ErrorIs(t, policy.Validate(), ErrUnsupportedShape)
	})

	t.Run("rejects deterministic text", func(t *testing.T) {
		policy := valid()
		policy.Shape = ShapeText
		err := policy.Validate()
		assert.ErrorIs(t, err, ErrDeterministicText)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("allows randomized text", func(t *testing.T) {
		policy := valid()
		policy.Mode = cryptoDomain.Randomized
		policy.Shape = ShapeText
		assert.NoError(t, policy.Validate())
	})
}

func TestFieldPolicyCacheable(t *testing.T) {
	t.Run("deterministic fields cache by default", func(t *testing.T) {
		policy := &FieldPolicy{Mode: cryptoDomain.Deterministic}
		assert.True(t, policy.Cacheable())
	})

	t.Run("randomized fields do not cache by default", func(t *testing.T) {
		policy := &FieldPolicy{Mode: cryptoDomain.Randomized}
		assert.False(t, policy.Cacheable())
	})

	t.Run("randomized fields cache only when opted in", func(t *testing.T) {
		policy := &FieldPolicy{Mode: cryptoDomain.Randomized, CacheRandomized: true}
		assert.True(t, policy.Cacheable())
	})
}
