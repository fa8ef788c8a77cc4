package app

import (
	"fmt"
	"sync"

	columnsRepository "github.com/fieldvault/fieldvault/internal/columns/repository"
	columnsService "github.com/fieldvault/fieldvault/internal/columns/service"
	columnsUseCase "github.com/fieldvault/fieldvault/internal/columns/usecase"
)

// columnsComponents holds the column encryption module of the container.
type columnsComponents struct {
	policyRepository columnsUseCase.PolicyRepository
	serializer       columnsService.Serializer
	compressor       columnsService.Compressor
	encryptionCache  *columnsService.EncryptionCache
	columnUseCase    columnsUseCase.ColumnUseCase

	policyRepositoryInit sync.Once
	serializerInit       sync.Once
	compressorInit       sync.Once
	encryptionCacheInit  sync.Once
	columnUseCaseInit    sync.Once
}

// PolicyRepository returns the field policy repository.
func (c *Container) PolicyRepository() (columnsUseCase.PolicyRepository, error) {
	var err error
	c.policyRepositoryInit.Do(func() {
		c.policyRepository, err = c.initPolicyRepository()
		if err != nil {
			c.initErrors["policyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyRepository"]; exists {
		return nil, storedErr
	}
	return c.policyRepository, nil
}

// Serializer returns the field value serializer.
func (c *Container) Serializer() columnsService.Serializer {
	c.serializerInit.Do(func() {
		c.serializer = columnsService.NewSerializer()
	})
	return c.serializer
}

// Compressor returns the payload compressor.
func (c *Container) Compressor() columnsService.Compressor {
	c.compressorInit.Do(func() {
		c.compressor = columnsService.NewCompressor()
	})
	return c.compressor
}

// EncryptionCache returns the deterministic encryption cache.
func (c *Container) EncryptionCache() *columnsService.EncryptionCache {
	c.encryptionCacheInit.Do(func() {
		c.encryptionCache = columnsService.NewEncryptionCache(c.config.CacheMaxEntries)
	})
	return c.encryptionCache
}

// ColumnUseCase returns the column encryption use case, instrumented when
// metrics are enabled.
func (c *Container) ColumnUseCase() (columnsUseCase.ColumnUseCase, error) {
	var err error
	c.columnUseCaseInit.Do(func() {
		c.columnUseCase, err = c.initColumnUseCase()
		if err != nil {
			c.initErrors["columnUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["columnUseCase"]; exists {
		return nil, storedErr
	}
	return c.columnUseCase, nil
}

// initPolicyRepository creates the field policy repository over the store.
func (c *Container) initPolicyRepository() (columnsUseCase.PolicyRepository, error) {
	kv, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for policy repository: %w", err)
	}
	return columnsRepository.NewKVPolicyRepository(kv), nil
}

// initColumnUseCase creates the column encryption use case with all its dependencies.
func (c *Container) initColumnUseCase() (columnsUseCase.ColumnUseCase, error) {
	policyRepo, err := c.PolicyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy repository for column use case: %w", err)
	}

	keys, err := c.KeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use case for column use case: %w", err)
	}

	bus, err := c.EventBus()
	if err != nil {
		return nil, fmt.Errorf("failed to get event bus for column use case: %w", err)
	}

	useCase := columnsUseCase.NewColumnUseCase(
		policyRepo,
		keys,
		c.CipherEngine(),
		c.Serializer(),
		c.Compressor(),
		c.EncryptionCache(),
		bus,
		columnsUseCase.BatchConfig{
			ChunkSize:   c.config.BatchChunkSize,
			Concurrency: c.config.BatchConcurrency,
			ItemTimeout: c.config.BatchItemTimeout,
		},
	)

	if c.config.MetricsEnabled {
		business, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for column use case: %w", err)
		}
		useCase = columnsUseCase.NewColumnUseCaseWithMetrics(useCase, business)
	}

	return useCase, nil
}
