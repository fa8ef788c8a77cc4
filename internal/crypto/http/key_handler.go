// Package http provides HTTP handlers for field key management operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/crypto/http/dto"
	cryptoUseCase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
	"github.com/fieldvault/fieldvault/internal/httputil"
	customValidation "github.com/fieldvault/fieldvault/internal/validation"
)

// KeyHandler handles HTTP requests for key lifecycle operations. Responses
// carry key metadata only; plaintext key material never crosses this
// boundary.
type KeyHandler struct {
	keyUseCase cryptoUseCase.KeyUseCase
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(keyUseCase cryptoUseCase.KeyUseCase, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		keyUseCase: keyUseCase,
		logger:     logger,
	}
}

// CreateHandler creates version 1 of a new field key.
// POST /v1/keys
// Returns 201 Created with key metadata, 409 when the key id already exists.
func (h *KeyHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateKeyRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	alg, err := dto.ParseAlgorithm(req.Algorithm)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	key, err := h.keyUseCase.Generate(c.Request.Context(), req.KeyID, alg)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapKeyToResponse(key))
}

// GetHandler returns the active version of one key.
// GET /v1/keys/:id
// Returns 200 OK with key metadata, 404 for an unknown key id.
func (h *KeyHandler) GetHandler(c *gin.Context) {
	keyID := c.Param("id")
	if keyID == "" {
		httputil.HandleBadRequestGin(c, fmt.Errorf("key id cannot be empty"), h.logger)
		return
	}

	key, err := h.keyUseCase.GetActive(c.Request.Context(), keyID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key))
}

// RotateHandler creates the next version of an existing key and makes it the
// active one. The retired version stays available for decryption.
// POST /v1/keys/:id/rotate
// Returns 200 OK with the new version's metadata.
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	keyID := c.Param("id")
	if keyID == "" {
		httputil.HandleBadRequestGin(c, fmt.Errorf("key id cannot be empty"), h.logger)
		return
	}

	// An empty body is a plain rotation keeping the current algorithm.
	var req dto.RotateKeyRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	var alg cryptoDomain.Algorithm
	if req.Algorithm != "" {
		parsed, err := dto.ParseAlgorithm(req.Algorithm)
		if err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
		alg = parsed
	}

	key, err := h.keyUseCase.Rotate(c.Request.Context(), keyID, alg)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key))
}

// PurgeVersionHandler permanently removes a retired key version. Ciphertext
// written under the purged version becomes undecryptable.
// DELETE /v1/keys/:id/versions/:version
// Returns 204 No Content, 409 when the version is still active.
func (h *KeyHandler) PurgeVersionHandler(c *gin.Context) {
	keyID := c.Param("id")
	if keyID == "" {
		httputil.HandleBadRequestGin(c, fmt.Errorf("key id cannot be empty"), h.logger)
		return
	}

	version, err := strconv.ParseUint(c.Param("version"), 10, 32)
	if err != nil || version == 0 {
		httputil.HandleBadRequestGin(
			c,
			fmt.Errorf("invalid version parameter: must be a positive integer"),
			h.logger,
		)
		return
	}

	if err := h.keyUseCase.PurgeVersion(c.Request.Context(), keyID, uint32(version)); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListHandler returns metadata for every key version with offset/limit
// pagination.
// GET /v1/keys?offset=0&limit=50
// Returns 200 OK with the page and totals.
func (h *KeyHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	keys, err := h.keyUseCase.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	total := len(keys)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, dto.MapKeysToListResponse(keys[start:end], offset, limit, total))
}
