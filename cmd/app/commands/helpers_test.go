package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	columnsRepository "github.com/fieldvault/fieldvault/internal/columns/repository"
	columnsService "github.com/fieldvault/fieldvault/internal/columns/service"
	columnsUseCase "github.com/fieldvault/fieldvault/internal/columns/usecase"
	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoRepository "github.com/fieldvault/fieldvault/internal/crypto/repository"
	cryptoService "github.com/fieldvault/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
	"github.com/fieldvault/fieldvault/internal/events"
	"github.com/fieldvault/fieldvault/internal/store"
	vaultRepository "github.com/fieldvault/fieldvault/internal/vault/repository"
	vaultService "github.com/fieldvault/fieldvault/internal/vault/service"
	vaultUseCase "github.com/fieldvault/fieldvault/internal/vault/usecase"
)

// setupTestKeyUseCase wires a key use case over a memory store with a fresh
// master key chain loaded from the process environment.
func setupTestKeyUseCase(t *testing.T) (cryptoUseCase.KeyUseCase, store.KV) {
	t.Helper()

	material := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(material)
	require.NoError(t, err)
	t.Setenv("MASTER_KEYS", "master-1:"+base64.StdEncoding.EncodeToString(material))
	t.Setenv("ACTIVE_MASTER_KEY_ID", "master-1")

	chain, err := cryptoDomain.LoadMasterKeyChainFromEnv()
	require.NoError(t, err)
	t.Cleanup(chain.Close)

	kv := store.NewMemoryStore()
	aeadManager := cryptoService.NewAEADManager()
	keys := cryptoUseCase.NewKeyUseCase(
		chain,
		cryptoService.NewKeyWrapper(aeadManager),
		cryptoRepository.NewKVKeyRepository(kv),
		cryptoDomain.NewKeyRing(),
		events.NopPublisher{},
	)
	return keys, kv
}

// setupTestColumnUseCase wires a column encryption service on top of the key
// use case, sharing its store.
func setupTestColumnUseCase(
	t *testing.T,
	keys cryptoUseCase.KeyUseCase,
	kv store.KV,
) columnsUseCase.ColumnUseCase {
	t.Helper()

	aeadManager := cryptoService.NewAEADManager()
	return columnsUseCase.NewColumnUseCase(
		columnsRepository.NewKVPolicyRepository(kv),
		keys,
		cryptoService.NewCipherEngine(aeadManager, cryptoService.NewNonceDeriver()),
		columnsService.NewSerializer(),
		columnsService.NewCompressor(),
		columnsService.NewEncryptionCache(100),
		events.NopPublisher{},
		columnsUseCase.BatchConfig{ChunkSize: 10, Concurrency: 1},
	)
}

// setupTestVaultUseCase wires the full tokenization stack over a memory store
// with the protection field already registered.
func setupTestVaultUseCase(t *testing.T) vaultUseCase.VaultUseCase {
	t.Helper()
	ctx := context.Background()

	keys, kv := setupTestKeyUseCase(t)
	columns := setupTestColumnUseCase(t, keys, kv)

	_, err := keys.Generate(ctx, "vault-storage", cryptoDomain.AESGCM)
	require.NoError(t, err)
	require.NoError(t, columns.RegisterField(ctx, &columnsDomain.FieldPolicy{
		FieldID: "vault.protected_value",
		KeyID:   "vault-storage",
		Mode:    cryptoDomain.Randomized,
		Shape:   columnsDomain.ShapeString,
	}))

	registry, err := vaultService.NewPatternRegistry("")
	require.NoError(t, err)

	return vaultUseCase.NewVaultUseCase(
		vaultRepository.NewKVTokenRepository(kv),
		columns,
		vaultService.NewTokenGeneratorFactory(registry, 32),
		events.NopPublisher{},
		vaultUseCase.Options{
			ProtectionFieldID:     "vault.protected_value",
			DetokenizationEnabled: true,
		},
	)
}

func TestParseAlgorithm(t *testing.T) {
	t.Run("valid algorithms", func(t *testing.T) {
		algorithm, err := parseAlgorithm("aes-gcm")
		require.NoError(t, err)
		require.Equal(t, cryptoDomain.AESGCM, algorithm)

		algorithm, err = parseAlgorithm("chacha20-poly1305")
		require.NoError(t, err)
		require.Equal(t, cryptoDomain.ChaCha20, algorithm)
	})

	t.Run("invalid algorithm", func(t *testing.T) {
		_, err := parseAlgorithm("des")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid algorithm")
	})
}

func TestParseMode(t *testing.T) {
	t.Run("valid modes", func(t *testing.T) {
		mode, err := parseMode("deterministic")
		require.NoError(t, err)
		require.Equal(t, cryptoDomain.Deterministic, mode)

		mode, err = parseMode("randomized")
		require.NoError(t, err)
		require.Equal(t, cryptoDomain.Randomized, mode)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := parseMode("convergent")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid mode")
	})
}
