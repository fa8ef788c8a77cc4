// Package http provides HTTP handlers for tokenization vault operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldvault/fieldvault/internal/httputil"
	customValidation "github.com/fieldvault/fieldvault/internal/validation"
	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
	"github.com/fieldvault/fieldvault/internal/vault/http/dto"
	vaultUseCase "github.com/fieldvault/fieldvault/internal/vault/usecase"
)

// TokenHandler handles HTTP requests for token issuance, reveal and
// revocation.
type TokenHandler struct {
	vaultUseCase vaultUseCase.VaultUseCase
	logger       *slog.Logger
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(vaultUseCase vaultUseCase.VaultUseCase, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{vaultUseCase: vaultUseCase, logger: logger}
}

// TokenizeHandler handles POST /v1/tokens requests.
//
// Issuance is idempotent per field and value: repeating a request returns the
// existing active token with a 200 instead of minting a new one, so only a
// genuinely new token answers 201.
func (h *TokenHandler) TokenizeHandler(c *gin.Context) {
	var request dto.TokenizeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid request body"), h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	record, err := h.vaultUseCase.Tokenize(
		c.Request.Context(),
		request.FieldID,
		request.Value,
		vaultDomain.Sensitivity(request.Sensitivity),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	status := http.StatusCreated
	if record.AccessCount > 0 {
		status = http.StatusOK
	}
	c.JSON(status, dto.MapRecordToResponse(record))
}

// BatchTokenizeHandler handles POST /v1/tokens/batch requests.
//
// Per-item failures are reported in place without aborting the batch, so the
// response is always 200 with a results slice in input order.
func (h *TokenHandler) BatchTokenizeHandler(c *gin.Context) {
	var request dto.BatchTokenizeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid request body"), h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	inputs := make([]vaultUseCase.TokenizeInput, len(request.Items))
	for i, item := range request.Items {
		inputs[i] = vaultUseCase.TokenizeInput{
			FieldID:     item.FieldID,
			Value:       item.Value,
			Sensitivity: vaultDomain.Sensitivity(item.Sensitivity),
		}
	}

	results := h.vaultUseCase.BatchTokenize(c.Request.Context(), inputs)
	c.JSON(http.StatusOK, dto.MapTokenizeResultsToResponse(results))
}

// DetokenizeHandler handles POST /v1/tokens/detokenize requests.
//
// Returns 404 for unknown tokens, 423 for revoked ones and 403 when the vault
// is configured irreversible. This endpoint sits behind the reveal rate
// limiter.
func (h *TokenHandler) DetokenizeHandler(c *gin.Context) {
	var request dto.DetokenizeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid request body"), h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	value, err := h.vaultUseCase.Detokenize(c.Request.Context(), request.Token)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.DetokenizeResponse{Token: request.Token, Value: value})
}

// RevokeHandler handles POST /v1/tokens/revoke requests.
//
// Revocation is idempotent; revoking an already revoked token answers 204
// like the first call did.
func (h *TokenHandler) RevokeHandler(c *gin.Context) {
	var request dto.RevokeTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid request body"), h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.vaultUseCase.Revoke(c.Request.Context(), request.Token); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
