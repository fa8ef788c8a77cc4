package app

import (
	"context"
	"fmt"
	"sync"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoRepository "github.com/fieldvault/fieldvault/internal/crypto/repository"
	cryptoService "github.com/fieldvault/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
)

// cryptoComponents holds the key management module of the container.
type cryptoComponents struct {
	masterKeyChain *cryptoDomain.MasterKeyChain
	kmsService     cryptoService.KMSService
	aeadManager    cryptoService.AEADManager
	keyWrapper     cryptoService.KeyWrapper
	nonceDeriver   cryptoService.NonceDeriver
	cipherEngine   cryptoService.CipherEngine
	keyRing        *cryptoDomain.KeyRing
	keyRepository  cryptoUseCase.KeyRepository
	keyUseCase     cryptoUseCase.KeyUseCase

	masterKeyChainInit sync.Once
	kmsServiceInit     sync.Once
	aeadManagerInit    sync.Once
	keyWrapperInit     sync.Once
	nonceDeriverInit   sync.Once
	cipherEngineInit   sync.Once
	keyRingInit        sync.Once
	keyRepositoryInit  sync.Once
	keyUseCaseInit     sync.Once
}

// MasterKeyChain returns the master key chain. Keys are loaded from the
// environment, decrypted through the configured KMS when KMS_KEY_URI is set.
func (c *Container) MasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	var err error
	c.masterKeyChainInit.Do(func() {
		c.masterKeyChain, err = cryptoDomain.LoadMasterKeyChain(
			context.Background(),
			c.config,
			c.KMSService(),
			c.Logger(),
		)
		if err != nil {
			c.initErrors["masterKeyChain"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKeyChain"]; exists {
		return nil, storedErr
	}
	return c.masterKeyChain, nil
}

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KeyWrapper returns the key wrapper service.
func (c *Container) KeyWrapper() cryptoService.KeyWrapper {
	c.keyWrapperInit.Do(func() {
		c.keyWrapper = cryptoService.NewKeyWrapper(c.AEADManager())
	})
	return c.keyWrapper
}

// NonceDeriver returns the nonce deriver service.
func (c *Container) NonceDeriver() cryptoService.NonceDeriver {
	c.nonceDeriverInit.Do(func() {
		c.nonceDeriver = cryptoService.NewNonceDeriver()
	})
	return c.nonceDeriver
}

// CipherEngine returns the cipher engine service.
func (c *Container) CipherEngine() cryptoService.CipherEngine {
	c.cipherEngineInit.Do(func() {
		c.cipherEngine = cryptoService.NewCipherEngine(c.AEADManager(), c.NonceDeriver())
	})
	return c.cipherEngine
}

// KeyRing returns the in-memory key ring the encryption paths read from.
func (c *Container) KeyRing() *cryptoDomain.KeyRing {
	c.keyRingInit.Do(func() {
		c.keyRing = cryptoDomain.NewKeyRing()
	})
	return c.keyRing
}

// KeyRepository returns the wrapped key repository.
func (c *Container) KeyRepository() (cryptoUseCase.KeyRepository, error) {
	var err error
	c.keyRepositoryInit.Do(func() {
		c.keyRepository, err = c.initKeyRepository()
		if err != nil {
			c.initErrors["keyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRepository"]; exists {
		return nil, storedErr
	}
	return c.keyRepository, nil
}

// KeyUseCase returns the key management use case, instrumented when metrics
// are enabled.
func (c *Container) KeyUseCase() (cryptoUseCase.KeyUseCase, error) {
	var err error
	c.keyUseCaseInit.Do(func() {
		c.keyUseCase, err = c.initKeyUseCase()
		if err != nil {
			c.initErrors["keyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyUseCase, nil
}

// initKeyRepository creates the wrapped key repository over the store.
func (c *Container) initKeyRepository() (cryptoUseCase.KeyRepository, error) {
	kv, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for key repository: %w", err)
	}
	return cryptoRepository.NewKVKeyRepository(kv), nil
}

// initKeyUseCase creates the key use case with all its dependencies.
func (c *Container) initKeyUseCase() (cryptoUseCase.KeyUseCase, error) {
	masterKeyChain, err := c.MasterKeyChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key chain for key use case: %w", err)
	}

	keyRepo, err := c.KeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key repository for key use case: %w", err)
	}

	bus, err := c.EventBus()
	if err != nil {
		return nil, fmt.Errorf("failed to get event bus for key use case: %w", err)
	}

	useCase := cryptoUseCase.NewKeyUseCase(
		masterKeyChain,
		c.KeyWrapper(),
		keyRepo,
		c.KeyRing(),
		bus,
	)

	if c.config.MetricsEnabled {
		business, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key use case: %w", err)
		}
		useCase = cryptoUseCase.NewKeyUseCaseWithMetrics(useCase, business)
	}

	return useCase, nil
}
