package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	vaultRepository "github.com/fieldvault/fieldvault/internal/vault/repository"
	vaultService "github.com/fieldvault/fieldvault/internal/vault/service"
	vaultUseCase "github.com/fieldvault/fieldvault/internal/vault/usecase"
)

// vaultComponents holds the tokenization vault module of the container.
type vaultComponents struct {
	patternRegistry *vaultService.PatternRegistry
	tokenFactory    *vaultService.TokenGeneratorFactory
	tokenRepository vaultUseCase.TokenRepository
	vaultUseCase    vaultUseCase.VaultUseCase

	patternRegistryInit sync.Once
	tokenFactoryInit    sync.Once
	tokenRepositoryInit sync.Once
	vaultUseCaseInit    sync.Once
}

// PatternRegistry returns the format-preserving pattern registry parsed from
// the TOKEN_PATTERNS configuration.
func (c *Container) PatternRegistry() (*vaultService.PatternRegistry, error) {
	var err error
	c.patternRegistryInit.Do(func() {
		c.patternRegistry, err = vaultService.NewPatternRegistry(c.config.TokenPatterns)
		if err != nil {
			c.initErrors["patternRegistry"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["patternRegistry"]; exists {
		return nil, storedErr
	}
	return c.patternRegistry, nil
}

// TokenGeneratorFactory returns the per-field token generator factory.
func (c *Container) TokenGeneratorFactory() (*vaultService.TokenGeneratorFactory, error) {
	var err error
	c.tokenFactoryInit.Do(func() {
		var registry *vaultService.PatternRegistry
		registry, err = c.PatternRegistry()
		if err != nil {
			c.initErrors["tokenFactory"] = err
			return
		}
		c.tokenFactory = vaultService.NewTokenGeneratorFactory(registry, c.config.TokenDefaultLength)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenFactory"]; exists {
		return nil, storedErr
	}
	return c.tokenFactory, nil
}

// TokenRepository returns the token record repository.
func (c *Container) TokenRepository() (vaultUseCase.TokenRepository, error) {
	var err error
	c.tokenRepositoryInit.Do(func() {
		c.tokenRepository, err = c.initTokenRepository()
		if err != nil {
			c.initErrors["tokenRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenRepository"]; exists {
		return nil, storedErr
	}
	return c.tokenRepository, nil
}

// VaultUseCase returns the tokenization vault use case, instrumented when
// metrics are enabled.
func (c *Container) VaultUseCase() (vaultUseCase.VaultUseCase, error) {
	var err error
	c.vaultUseCaseInit.Do(func() {
		c.vaultUseCase, err = c.initVaultUseCase()
		if err != nil {
			c.initErrors["vaultUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultUseCase"]; exists {
		return nil, storedErr
	}
	return c.vaultUseCase, nil
}

// EnsureVaultStorage makes sure the key and field policy the vault protects
// values with exist, creating them on first startup. Idempotent.
func (c *Container) EnsureVaultStorage(ctx context.Context) error {
	keys, err := c.KeyUseCase()
	if err != nil {
		return fmt.Errorf("failed to get key use case: %w", err)
	}

	if _, err := keys.GetActive(ctx, c.config.VaultKeyID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to look up vault key: %w", err)
		}
		if _, err := keys.Generate(ctx, c.config.VaultKeyID, cryptoDomain.AESGCM); err != nil {
			return fmt.Errorf("failed to generate vault key: %w", err)
		}
		c.Logger().Info("generated vault storage key")
	}

	columns, err := c.ColumnUseCase()
	if err != nil {
		return fmt.Errorf("failed to get column use case: %w", err)
	}

	if _, err := columns.GetField(ctx, c.config.VaultFieldID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to look up vault field policy: %w", err)
		}
		policy := &columnsDomain.FieldPolicy{
			FieldID: c.config.VaultFieldID,
			KeyID:   c.config.VaultKeyID,
			Mode:    cryptoDomain.Randomized,
			Shape:   columnsDomain.ShapeString,
		}
		if err := columns.RegisterField(ctx, policy); err != nil {
			return fmt.Errorf("failed to register vault field policy: %w", err)
		}
		c.Logger().Info("registered vault storage field policy")
	}

	return nil
}

// initTokenRepository creates the token repository over the store.
func (c *Container) initTokenRepository() (vaultUseCase.TokenRepository, error) {
	kv, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for token repository: %w", err)
	}
	return vaultRepository.NewKVTokenRepository(kv), nil
}

// initVaultUseCase creates the vault use case with all its dependencies.
func (c *Container) initVaultUseCase() (vaultUseCase.VaultUseCase, error) {
	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for vault use case: %w", err)
	}

	columns, err := c.ColumnUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get column use case for vault use case: %w", err)
	}

	factory, err := c.TokenGeneratorFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to get token generator factory for vault use case: %w", err)
	}

	bus, err := c.EventBus()
	if err != nil {
		return nil, fmt.Errorf("failed to get event bus for vault use case: %w", err)
	}

	useCase := vaultUseCase.NewVaultUseCase(
		tokenRepo,
		columns,
		factory,
		bus,
		vaultUseCase.Options{
			ProtectionFieldID:     c.config.VaultFieldID,
			DetokenizationEnabled: c.config.DetokenizationEnabled,
		},
	)

	if c.config.MetricsEnabled {
		business, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for vault use case: %w", err)
		}
		useCase = vaultUseCase.NewVaultUseCaseWithMetrics(useCase, business)
	}

	return useCase, nil
}
