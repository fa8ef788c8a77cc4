package service

import (
	"strings"

	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
)

// PatternRegistry maps field identifiers to their format-preserving token
// patterns. Fields without a registered pattern fall back to opaque
// alphanumeric tokens.
type PatternRegistry struct {
	patterns map[string]string
}

// NewPatternRegistry parses a registry from its configuration form: a
// comma-separated list of field:pattern pairs, e.g.
// "customer.ssn:###-##-####,customer.phone:(###) ###-####".
// Only the first colon separates field from pattern, so patterns may
// themselves contain colons. Each pattern is validated at parse time so a
// malformed configuration fails at startup rather than on the first
// tokenize call.
func NewPatternRegistry(spec string) (*PatternRegistry, error) {
	registry := &PatternRegistry{patterns: make(map[string]string)}

	spec = strings.TrimSpace(spec)
	if spec == "" {
		return registry, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		fieldID, pattern, found := strings.Cut(entry, ":")
		fieldID = strings.TrimSpace(fieldID)
		pattern = strings.TrimSpace(pattern)
		if !found || fieldID == "" || pattern == "" {
			return nil, apperrors.Wrapf(
				vaultDomain.ErrInvalidPattern,
				"malformed pattern entry %q, expected field:pattern",
				entry,
			)
		}

		if _, err := NewFormatPreservingGenerator(pattern); err != nil {
			return nil, apperrors.Wrapf(err, "invalid pattern for field %q", fieldID)
		}

		registry.patterns[fieldID] = pattern
	}

	return registry, nil
}

// Lookup returns the pattern registered for a field, if any.
func (r *PatternRegistry) Lookup(fieldID string) (string, bool) {
	pattern, ok := r.patterns[fieldID]
	return pattern, ok
}

// Len returns the number of registered patterns.
func (r *PatternRegistry) Len() int {
	return len(r.patterns)
}
