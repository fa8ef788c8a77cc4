// Package integration provides end-to-end tests for the field encryption and
// tokenization API, exercising the full container over the memory store.
package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvault/fieldvault/internal/app"
	columnsDTO "github.com/fieldvault/fieldvault/internal/columns/http/dto"
	"github.com/fieldvault/fieldvault/internal/config"
	cryptoDTO "github.com/fieldvault/fieldvault/internal/crypto/http/dto"
	vaultDTO "github.com/fieldvault/fieldvault/internal/vault/http/dto"
)

// integrationTestContext holds the container and test server for one run.
type integrationTestContext struct {
	container *app.Container
	server    *httptest.Server
}

// makeRequest performs an HTTP request and returns the response and body.
func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body interface{},
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	require.NoError(t, resp.Body.Close())

	return resp, respBody
}

// setupIntegrationTest boots a full container over the memory store and
// exposes its router through a test server.
func setupIntegrationTest(t *testing.T) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	material := make([]byte, 32)
	_, err := rand.Read(material)
	require.NoError(t, err)
	t.Setenv("MASTER_KEYS", "master-1:"+base64.StdEncoding.EncodeToString(material))
	t.Setenv("ACTIVE_MASTER_KEY_ID", "master-1")

	cfg := &config.Config{
		LogLevel:              "error",
		ServerHost:            "localhost",
		ServerPort:            8080,
		StoreDriver:           "memory",
		CacheMaxEntries:       100,
		BatchChunkSize:        10,
		BatchConcurrency:      2,
		TokenDefaultLength:    32,
		DetokenizationEnabled: true,
		VaultFieldID:          "vault.protected_value",
		VaultKeyID:            "vault-storage",
		MetricsNamespace:      "fieldvault",
	}

	container := app.NewContainer(cfg)

	httpSrv, err := container.HTTPServer()
	require.NoError(t, err, "failed to build HTTP server")
	require.NoError(t, container.LoadState(context.Background()), "failed to load state")

	testServer := httptest.NewServer(httpSrv.Router())

	t.Cleanup(func() {
		testServer.Close()
		if err := container.Shutdown(context.Background()); err != nil {
			t.Logf("container shutdown error: %v", err)
		}
	})

	return &integrationTestContext{container: container, server: testServer}
}

func TestIntegration_Health(t *testing.T) {
	ctx := setupIntegrationTest(t)

	t.Run("health check", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response map[string]string
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, "healthy", response["status"])
	})

	t.Run("readiness check", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, "ready", response["status"])
	})
}

// TestIntegration_KeyLifecycle walks a field key through generation, rotation
// and retiring an old version.
func TestIntegration_KeyLifecycle(t *testing.T) {
	ctx := setupIntegrationTest(t)

	t.Run("01_CreateKey", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/keys", cryptoDTO.CreateKeyRequest{
			KeyID:     "pii",
			Algorithm: "aes-gcm",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var response cryptoDTO.KeyResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, "pii", response.KeyID)
		assert.Equal(t, uint32(1), response.Version)
		assert.True(t, response.Active)
	})

	t.Run("02_DuplicateKeyConflicts", func(t *testing.T) {
		resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/keys", cryptoDTO.CreateKeyRequest{
			KeyID:     "pii",
			Algorithm: "aes-gcm",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("03_GetKey", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/keys/pii", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response cryptoDTO.KeyResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, uint32(1), response.Version)
	})

	t.Run("04_RotateKey", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/keys/pii/rotate",
			cryptoDTO.RotateKeyRequest{})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response cryptoDTO.KeyResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, uint32(2), response.Version)
		assert.True(t, response.Active)
	})

	t.Run("05_PurgeActiveVersionRefused", func(t *testing.T) {
		resp, _ := ctx.makeRequest(t, http.MethodDelete, "/v1/keys/pii/versions/2", nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("06_PurgeRetiredVersion", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodDelete, "/v1/keys/pii/versions/1", nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Empty(t, body)
	})

	t.Run("07_ListKeys", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/keys?offset=0&limit=50", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response cryptoDTO.ListKeysResponse
		require.NoError(t, json.Unmarshal(body, &response))
		// The vault bootstrap key plus the remaining pii version.
		assert.GreaterOrEqual(t, response.Total, 2)
	})
}

// TestIntegration_FieldEncryption covers policy registration and the encrypt,
// decrypt and batch paths.
func TestIntegration_FieldEncryption(t *testing.T) {
	ctx := setupIntegrationTest(t)

	resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/keys", cryptoDTO.CreateKeyRequest{
		KeyID:     "pii",
		Algorithm: "aes-gcm",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ciphertext string

	t.Run("01_RegisterField", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/fields", columnsDTO.RegisterFieldRequest{
			FieldID: "customer.email",
			KeyID:   "pii",
			Mode:    "deterministic",
			Shape:   "string",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var response columnsDTO.FieldPolicyResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, "customer.email", response.FieldID)
		assert.Equal(t, "deterministic", response.Mode)
	})

	t.Run("02_DeterministicTextRejected", func(t *testing.T) {
		resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/fields", columnsDTO.RegisterFieldRequest{
			FieldID: "customer.notes",
			KeyID:   "pii",
			Mode:    "deterministic",
			Shape:   "text",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("03_EncryptField", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/fields/customer.email/encrypt",
			columnsDTO.EncryptFieldRequest{Value: "alice@example.com"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response columnsDTO.EncryptFieldResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.NotEmpty(t, response.Ciphertext)
		ciphertext = response.Ciphertext
	})

	t.Run("04_DeterministicEncryptIsStable", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/fields/customer.email/encrypt",
			columnsDTO.EncryptFieldRequest{Value: "alice@example.com"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response columnsDTO.EncryptFieldResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, ciphertext, response.Ciphertext)
	})

	t.Run("05_DecryptField", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/fields/customer.email/decrypt",
			columnsDTO.DecryptFieldRequest{Ciphertext: ciphertext})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response columnsDTO.DecryptFieldResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, "alice@example.com", response.Value)
	})

	t.Run("06_DecryptAfterRotation", func(t *testing.T) {
		resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/keys/pii/rotate",
			cryptoDTO.RotateKeyRequest{})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/fields/customer.email/decrypt",
			columnsDTO.DecryptFieldRequest{Ciphertext: ciphertext})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response columnsDTO.DecryptFieldResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, "alice@example.com", response.Value)
	})

	t.Run("07_BatchEncryptDecryptRoundTrip", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/encrypt-batch",
			columnsDTO.BatchEncryptRequest{Records: []map[string]any{
				{"customer.email": "alice@example.com"},
				{"customer.email": "bob@example.com"},
				{"ghost.field": "nobody"},
			}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var encrypted columnsDTO.BatchEncryptResponse
		require.NoError(t, json.Unmarshal(body, &encrypted))
		require.Len(t, encrypted.Results, 3)
		assert.Empty(t, encrypted.Results[0].Error)
		assert.Empty(t, encrypted.Results[1].Error)
		assert.Contains(t, encrypted.Results[2].Error, "unknown field")

		resp, body = ctx.makeRequest(t, http.MethodPost, "/v1/decrypt-batch",
			columnsDTO.BatchDecryptRequest{Records: []map[string]string{
				encrypted.Results[0].Fields,
				encrypted.Results[1].Fields,
			}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var decrypted columnsDTO.BatchDecryptResponse
		require.NoError(t, json.Unmarshal(body, &decrypted))
		require.Len(t, decrypted.Results, 2)
		assert.Equal(t, "alice@example.com", decrypted.Results[0].Fields["customer.email"])
		assert.Equal(t, "bob@example.com", decrypted.Results[1].Fields["customer.email"])
	})

	t.Run("08_UnregisteredFieldNotFound", func(t *testing.T) {
		resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/fields/ghost.field/encrypt",
			columnsDTO.EncryptFieldRequest{Value: "nobody"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

// TestIntegration_TokenLifecycle covers tokenization, idempotent reissue,
// detokenization and revocation.
func TestIntegration_TokenLifecycle(t *testing.T) {
	ctx := setupIntegrationTest(t)

	var token string

	t.Run("01_Tokenize", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens", vaultDTO.TokenizeRequest{
			FieldID:     "customer.ssn",
			Value:       "078-05-1120",
			Sensitivity: "critical",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var response vaultDTO.TokenResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Len(t, response.Token, 32)
		assert.NotContains(t, response.Token, "078")
		token = response.Token
	})

	t.Run("02_TokenizeSameValueReturnsSameToken", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens", vaultDTO.TokenizeRequest{
			FieldID:     "customer.ssn",
			Value:       "078-05-1120",
			Sensitivity: "critical",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response vaultDTO.TokenResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, token, response.Token)
	})

	t.Run("03_Detokenize", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens/detokenize",
			vaultDTO.DetokenizeRequest{Token: token})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response vaultDTO.DetokenizeResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, "078-05-1120", response.Value)
	})

	t.Run("04_BatchTokenize", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens/batch",
			vaultDTO.BatchTokenizeRequest{Items: []vaultDTO.TokenizeRequest{
				{FieldID: "customer.ssn", Value: "219-09-9999", Sensitivity: "critical"},
				{FieldID: "customer.ssn", Value: "457-55-5462", Sensitivity: "unknown"},
			}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var response vaultDTO.BatchTokenizeResponse
		require.NoError(t, json.Unmarshal(body, &response))
		require.Len(t, response.Results, 2)
		assert.NotNil(t, response.Results[0].Token)
		assert.Contains(t, response.Results[1].Error, "sensitivity")
	})

	t.Run("05_Revoke", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens/revoke",
			vaultDTO.RevokeTokenRequest{Token: token})
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Empty(t, body)
	})

	t.Run("06_DetokenizeRevokedLocked", func(t *testing.T) {
		resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/tokens/detokenize",
			vaultDTO.DetokenizeRequest{Token: token})
		assert.Equal(t, http.StatusLocked, resp.StatusCode)
	})

	t.Run("07_RetokenizeAfterRevokeMintsFreshToken", func(t *testing.T) {
		resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens", vaultDTO.TokenizeRequest{
			FieldID:     "customer.ssn",
			Value:       "078-05-1120",
			Sensitivity: "critical",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var response vaultDTO.TokenResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.NotEqual(t, token, response.Token)
	})

	t.Run("08_DetokenizeUnknownTokenNotFound", func(t *testing.T) {
		resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/tokens/detokenize",
			vaultDTO.DetokenizeRequest{Token: "no-such-token-value-1234567890ab"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

// TestIntegration_IrreversibleVault verifies the detokenization kill switch.
func TestIntegration_IrreversibleVault(t *testing.T) {
	gin.SetMode(gin.TestMode)

	material := make([]byte, 32)
	_, err := rand.Read(material)
	require.NoError(t, err)
	t.Setenv("MASTER_KEYS", "master-1:"+base64.StdEncoding.EncodeToString(material))
	t.Setenv("ACTIVE_MASTER_KEY_ID", "master-1")

	cfg := &config.Config{
		LogLevel:              "error",
		ServerHost:            "localhost",
		ServerPort:            8080,
		StoreDriver:           "memory",
		CacheMaxEntries:       100,
		BatchChunkSize:        10,
		BatchConcurrency:      1,
		TokenDefaultLength:    32,
		DetokenizationEnabled: false,
		VaultFieldID:          "vault.protected_value",
		VaultKeyID:            "vault-storage",
		MetricsNamespace:      "fieldvault",
	}

	container := app.NewContainer(cfg)
	httpSrv, err := container.HTTPServer()
	require.NoError(t, err)
	require.NoError(t, container.LoadState(context.Background()))

	testServer := httptest.NewServer(httpSrv.Router())
	t.Cleanup(func() {
		testServer.Close()
		if err := container.Shutdown(context.Background()); err != nil {
			t.Logf("container shutdown error: %v", err)
		}
	})
	ctx := &integrationTestContext{container: container, server: testServer}

	resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens", vaultDTO.TokenizeRequest{
		FieldID:     "customer.email",
		Value:       "alice@example.com",
		Sensitivity: "high",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var response vaultDTO.TokenResponse
	require.NoError(t, json.Unmarshal(body, &response))

	resp, _ = ctx.makeRequest(t, http.MethodPost, "/v1/tokens/detokenize",
		vaultDTO.DetokenizeRequest{Token: response.Token})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
