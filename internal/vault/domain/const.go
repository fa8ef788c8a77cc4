// Package domain defines the tokenization vault domain models.
//
// The vault stores bidirectional mappings between sensitive original values
// and opaque substitute tokens. Tokens themselves carry no information about
// the value they replace; reversibility lives entirely in the stored mapping,
// whose original value is encrypted at rest.
package domain

// Sensitivity classifies how sensitive the tokenized value is. It is audit
// metadata carried on records and events, not an access control mechanism.
type Sensitivity string

const (
	SensitivityLow      Sensitivity = "low"
	SensitivityMedium   Sensitivity = "medium"
	SensitivityHigh     Sensitivity = "high"
	SensitivityCritical Sensitivity = "critical"
)

// Validate checks that the sensitivity is one of the supported levels.
func (s Sensitivity) Validate() error {
	switch s {
	case SensitivityLow, SensitivityMedium, SensitivityHigh, SensitivityCritical:
		return nil
	default:
		return ErrInvalidSensitivity
	}
}

// String returns the string representation of the sensitivity.
func (s Sensitivity) String() string {
	return string(s)
}

// Token size constraints.
const (
	// MaxValueSize is the maximum allowed original value size (64 KiB).
	// Bounds encryption work and keeps a single crafted request from
	// ballooning the vault store.
	MaxValueSize = 65536

	// MaxTokenLength is the maximum allowed generated token length.
	MaxTokenLength = 255

	// MinTokenLength is the minimum allowed generated token length. Anything
	// shorter is trivially guessable.
	MinTokenLength = 8
)
