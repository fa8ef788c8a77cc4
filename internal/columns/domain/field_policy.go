// Package domain defines the column encryption domain models.
//
// A FieldPolicy describes how one logical column or field is protected: which
// key encrypts it, whether ciphertext is deterministic or randomized, how the
// value serializes and whether it is compressed before encryption. Policies
// are registered once at configuration time and consulted on every encrypt
// and decrypt call.
package domain

import (
	"time"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// Shape declares the wire type of a field value. The serializer uses it to
// turn values into bytes before encryption and back after decryption.
type Shape string

const (
	// ShapeString holds short UTF-8 text such as emails or names.
	ShapeString Shape = "string"

	// ShapeText holds long free-form UTF-8 text.
	ShapeText Shape = "text"

	// ShapeJSON holds any JSON-serializable document.
	ShapeJSON Shape = "json"

	// ShapeNumber holds a 64-bit floating point number.
	ShapeNumber Shape = "number"
)

// Validate checks that the shape is one of the supported values.
func (s Shape) Validate() error {
	switch s {
	case ShapeString, ShapeText, ShapeJSON, ShapeNumber:
		return nil
	default:
		return ErrUnsupportedShape
	}
}

// String returns the string representation of the shape.
func (s Shape) String() string {
	return string(s)
}

// FieldPolicy configures the protection of one field.
//
// Deterministic mode makes identical plaintext encrypt to identical
// ciphertext under the same key version, which enables equality lookups on
// encrypted columns but leaks repetition patterns. It must never be used for
// high-cardinality free text; ShapeText fields are therefore rejected in
// deterministic mode at registration time.
type FieldPolicy struct {
	FieldID  string            `json:"field_id"`
	KeyID    string            `json:"key_id"`
	Mode     cryptoDomain.Mode `json:"mode"`
	Shape    Shape             `json:"shape"`
	Compress bool              `json:"compress"`
	// CacheRandomized opts a randomized field into the encryption cache.
	// Cached randomized ciphertext is idempotent per plaintext, which defeats
	// the purpose of randomization, so this is an explicit choice, never a
	// default.
	CacheRandomized bool      `json:"cache_randomized"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Validate checks the policy for structural problems. Unknown modes and
// shapes are rejected at the registration boundary rather than silently
// defaulted.
func (p *FieldPolicy) Validate() error {
	if p.FieldID == "" {
		return ErrEmptyFieldID
	}
	if p.KeyID == "" {
		return ErrEmptyKeyID
	}
	switch p.Mode {
	case cryptoDomain.Deterministic, cryptoDomain.Randomized:
	default:
		return cryptoDomain.ErrUnsupportedMode
	}
	if err := p.Shape.Validate(); err != nil {
		return err
	}
	if p.Mode == cryptoDomain.Deterministic && p.Shape == ShapeText {
		return ErrDeterministicText
	}
	return nil
}

// Cacheable reports whether ciphertext for this field may be served from the
// encryption cache. Deterministic fields always are; randomized fields only
// when the policy opts in.
func (p *FieldPolicy) Cacheable() bool {
	if p.Mode == cryptoDomain.Deterministic {
		return true
	}
	return p.CacheRandomized
}
