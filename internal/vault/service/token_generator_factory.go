package service

// TokenGeneratorFactory selects the token generator for a field: a
// format-preserving generator when the field has a registered pattern, an
// alphanumeric generator of the configured default length otherwise.
type TokenGeneratorFactory struct {
	registry      *PatternRegistry
	defaultLength int
}

// NewTokenGeneratorFactory creates a factory over the given pattern registry.
// defaultLength is validated lazily when the first patternless field asks for
// a generator, matching where the invalid configuration actually bites.
func NewTokenGeneratorFactory(registry *PatternRegistry, defaultLength int) *TokenGeneratorFactory {
	return &TokenGeneratorFactory{
		registry:      registry,
		defaultLength: defaultLength,
	}
}

// GeneratorFor returns the token generator to use for fieldID.
func (f *TokenGeneratorFactory) GeneratorFor(fieldID string) (TokenGenerator, error) {
	if pattern, ok := f.registry.Lookup(fieldID); ok {
		return NewFormatPreservingGenerator(pattern)
	}
	return NewAlphanumericGenerator(f.defaultLength)
}
