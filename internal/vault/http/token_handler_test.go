package http

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
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
	"github.com/fieldvault/fieldvault/internal/vault/http/dto"
	vaultRepository "github.com/fieldvault/fieldvault/internal/vault/repository"
	vaultService "github.com/fieldvault/fieldvault/internal/vault/service"
	vaultUseCase "github.com/fieldvault/fieldvault/internal/vault/usecase"
)

const testProtectionField = "vault.protected_value"

// setupTestTokenHandler wires a handler over the real vault stack: a memory
// store, a working key hierarchy and the column encryption service protecting
// stored values.
func setupTestTokenHandler(t *testing.T, detokenizationEnabled bool) *TokenHandler {
	t.Helper()

	gin.SetMode(gin.TestMode)
	ctx := context.Background()

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

	columns := columnsUseCase.NewColumnUseCase(
		columnsRepository.NewKVPolicyRepository(kv),
		keys,
		cryptoService.NewCipherEngine(aeadManager, cryptoService.NewNonceDeriver()),
		columnsService.NewSerializer(),
		columnsService.NewCompressor(),
		columnsService.NewEncryptionCache(100),
		events.NopPublisher{},
		columnsUseCase.BatchConfig{ChunkSize: 10, Concurrency: 1},
	)

	_, err = keys.Generate(ctx, "vault-storage", cryptoDomain.AESGCM)
	require.NoError(t, err)
	require.NoError(t, columns.RegisterField(ctx, &columnsDomain.FieldPolicy{
		FieldID: testProtectionField,
		KeyID:   "vault-storage",
		Mode:    cryptoDomain.Randomized,
		Shape:   columnsDomain.ShapeString,
	}))

	registry, err := vaultService.NewPatternRegistry("")
	require.NoError(t, err)

	vault := vaultUseCase.NewVaultUseCase(
		vaultRepository.NewKVTokenRepository(kv),
		columns,
		vaultService.NewTokenGeneratorFactory(registry, 32),
		events.NopPublisher{},
		vaultUseCase.Options{
			ProtectionFieldID:     testProtectionField,
			DetokenizationEnabled: detokenizationEnabled,
		},
	)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTokenHandler(vault, logger)
}

// issueToken tokenizes a value through the handler and returns the response.
func issueToken(t *testing.T, handler *TokenHandler, fieldID, value string) dto.TokenResponse {
	t.Helper()

	c, w := createTestContext(http.MethodPost, "/v1/tokens", dto.TokenizeRequest{
		FieldID:     fieldID,
		Value:       value,
		Sensitivity: "high",
	})
	handler.TokenizeHandler(c)
	require.Contains(t, []int{http.StatusCreated, http.StatusOK}, w.Code)

	var response dto.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestTokenHandler_TokenizeHandler(t *testing.T) {
	t.Run("issues a token", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)

		c, w := createTestContext(http.MethodPost, "/v1/tokens", dto.TokenizeRequest{
			FieldID:     "customer.email",
			Value:       "alice@example.com",
			Sensitivity: "high",
		})
		handler.TokenizeHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Token, 32)
		assert.NotContains(t, response.Token, "alice")
		assert.Equal(t, "customer.email", response.FieldID)
		assert.Equal(t, "high", response.Sensitivity)
		assert.True(t, response.Active)
		assert.NotContains(t, w.Body.String(), "protected")
	})

	t.Run("returns the existing token for a repeated value", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)

		first := issueToken(t, handler, "customer.email", "alice@example.com")

		c, w := createTestContext(http.MethodPost, "/v1/tokens", dto.TokenizeRequest{
			FieldID:     "customer.email",
			Value:       "alice@example.com",
			Sensitivity: "high",
		})
		handler.TokenizeHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var second dto.TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
		assert.Equal(t, first.Token, second.Token)
	})

	t.Run("rejects an unknown sensitivity", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)

		c, w := createTestContext(http.MethodPost, "/v1/tokens", dto.TokenizeRequest{
			FieldID:     "customer.email",
			Value:       "alice@example.com",
			Sensitivity: "radioactive",
		})
		handler.TokenizeHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("rejects a blank field id", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)

		c, w := createTestContext(http.MethodPost, "/v1/tokens", dto.TokenizeRequest{
			FieldID:     "   ",
			Value:       "alice@example.com",
			Sensitivity: "high",
		})
		handler.TokenizeHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)

		c, w := createTestContext(http.MethodPost, "/v1/tokens", "not an object")
		handler.TokenizeHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTokenHandler_BatchTokenizeHandler(t *testing.T) {
	t.Run("tokenizes items with failure isolation", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)

		c, w := createTestContext(http.MethodPost, "/v1/tokens/batch", dto.BatchTokenizeRequest{
			Items: []dto.TokenizeRequest{
				{FieldID: "customer.email", Value: "alice@example.com", Sensitivity: "high"},
				{FieldID: "", Value: "no field", Sensitivity: "low"},
				{FieldID: "customer.phone", Value: "555-0100", Sensitivity: "medium"},
			},
		})
		handler.BatchTokenizeHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.BatchTokenizeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Results, 3)

		assert.Empty(t, response.Results[0].Error)
		require.NotNil(t, response.Results[0].Token)
		assert.Equal(t, "customer.email", response.Results[0].Token.FieldID)

		assert.Nil(t, response.Results[1].Token)
		assert.NotEmpty(t, response.Results[1].Error)

		assert.Empty(t, response.Results[2].Error)
		require.NotNil(t, response.Results[2].Token)
	})

	t.Run("rejects an empty batch", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)

		c, w := createTestContext(http.MethodPost, "/v1/tokens/batch", dto.BatchTokenizeRequest{})
		handler.BatchTokenizeHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTokenHandler_DetokenizeHandler(t *testing.T) {
	t.Run("reveals the original value", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)
		issued := issueToken(t, handler, "customer.email", "alice@example.com")

		c, w := createTestContext(http.MethodPost, "/v1/tokens/detokenize", dto.DetokenizeRequest{
			Token: issued.Token,
		})
		handler.DetokenizeHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.DetokenizeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, issued.Token, response.Token)
		assert.Equal(t, "alice@example.com", response.Value)
	})

	t.Run("returns 404 for an unknown token", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)

		c, w := createTestContext(http.MethodPost, "/v1/tokens/detokenize", dto.DetokenizeRequest{
			Token: "no-such-token",
		})
		handler.DetokenizeHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 423 for a revoked token", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)
		issued := issueToken(t, handler, "customer.email", "alice@example.com")

		c, w := createTestContext(http.MethodPost, "/v1/tokens/revoke", dto.RevokeTokenRequest{
			Token: issued.Token,
		})
		handler.RevokeHandler(c)
		require.Equal(t, http.StatusNoContent, w.Code)

		c, w = createTestContext(http.MethodPost, "/v1/tokens/detokenize", dto.DetokenizeRequest{
			Token: issued.Token,
		})
		handler.DetokenizeHandler(c)

		assert.Equal(t, http.StatusLocked, w.Code)
	})

	t.Run("returns 403 when the vault is irreversible", func(t *testing.T) {
		handler := setupTestTokenHandler(t, false)
		issued := issueToken(t, handler, "customer.email", "alice@example.com")

		c, w := createTestContext(http.MethodPost, "/v1/tokens/detokenize", dto.DetokenizeRequest{
			Token: issued.Token,
		})
		handler.DetokenizeHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestTokenHandler_RevokeHandler(t *testing.T) {
	t.Run("revokes a token idempotently", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)
		issued := issueToken(t, handler, "customer.email", "alice@example.com")

		c, w := createTestContext(http.MethodPost, "/v1/tokens/revoke", dto.RevokeTokenRequest{
			Token: issued.Token,
		})
		handler.RevokeHandler(c)
		assert.Equal(t, http.StatusNoContent, w.Code)

		c, w = createTestContext(http.MethodPost, "/v1/tokens/revoke", dto.RevokeTokenRequest{
			Token: issued.Token,
		})
		handler.RevokeHandler(c)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("returns 404 for an unknown token", func(t *testing.T) {
		handler := setupTestTokenHandler(t, true)

		c, w := createTestContext(http.MethodPost, "/v1/tokens/revoke", dto.RevokeTokenRequest{
			Token: "no-such-token",
		})
		handler.RevokeHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
