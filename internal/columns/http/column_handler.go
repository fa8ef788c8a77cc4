// Package http provides HTTP handlers for column encryption operations.
package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	"github.com/fieldvault/fieldvault/internal/columns/http/dto"
	columnsUseCase "github.com/fieldvault/fieldvault/internal/columns/usecase"
	"github.com/fieldvault/fieldvault/internal/httputil"
	customValidation "github.com/fieldvault/fieldvault/internal/validation"
)

// ColumnHandler handles HTTP requests for field policies and field-level
// encryption.
type ColumnHandler struct {
	columnUseCase columnsUseCase.ColumnUseCase
	logger        *slog.Logger
}

// NewColumnHandler creates a new column handler.
func NewColumnHandler(
	columnUseCase columnsUseCase.ColumnUseCase,
	logger *slog.Logger,
) *ColumnHandler {
	return &ColumnHandler{columnUseCase: columnUseCase, logger: logger}
}

// RegisterFieldHandler handles POST /v1/fields requests.
//
// Registers (or re-registers) the encryption policy for one field and returns
// it with a 201 status.
func (h *ColumnHandler) RegisterFieldHandler(c *gin.Context) {
	var request dto.RegisterFieldRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid request body"), h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	mode, err := dto.ParseMode(request.Mode)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	policy := &columnsDomain.FieldPolicy{
		FieldID:         request.FieldID,
		KeyID:           request.KeyID,
		Mode:            mode,
		Shape:           columnsDomain.Shape(request.Shape),
		Compress:        request.Compress,
		CacheRandomized: request.CacheRandomized,
	}

	if err := h.columnUseCase.RegisterField(c.Request.Context(), policy); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	registered, err := h.columnUseCase.GetField(c.Request.Context(), policy.FieldID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapPolicyToResponse(registered))
}

// GetFieldHandler handles GET /v1/fields/:field requests.
func (h *ColumnHandler) GetFieldHandler(c *gin.Context) {
	policy, err := h.columnUseCase.GetField(c.Request.Context(), c.Param("field"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPolicyToResponse(policy))
}

// ListFieldsHandler handles GET /v1/fields requests with pagination.
func (h *ColumnHandler) ListFieldsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	policies, err := h.columnUseCase.ListFields(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	total := len(policies)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, dto.MapPoliciesToListResponse(policies[start:end], offset, limit, total))
}

// EncryptFieldHandler handles POST /v1/fields/:field/encrypt requests.
//
// Protects a single value under the field's registered policy and returns the
// ciphertext envelope base64 encoded.
func (h *ColumnHandler) EncryptFieldHandler(c *gin.Context) {
	var request dto.EncryptFieldRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid request body"), h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	fieldID := c.Param("field")
	ciphertext, err := h.columnUseCase.EncryptField(c.Request.Context(), fieldID, request.Value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.EncryptFieldResponse{
		FieldID:    fieldID,
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	})
}

// DecryptFieldHandler handles POST /v1/fields/:field/decrypt requests.
func (h *ColumnHandler) DecryptFieldHandler(c *gin.Context) {
	var request dto.DecryptFieldRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid request body"), h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ciphertext, err := base64.StdEncoding.DecodeString(request.Ciphertext)
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("ciphertext must be base64 encoded"), h.logger)
		return
	}

	fieldID := c.Param("field")
	value, err := h.columnUseCase.DecryptField(c.Request.Context(), fieldID, ciphertext)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.DecryptFieldResponse{FieldID: fieldID, Value: value})
}

// BatchEncryptHandler handles POST /v1/encrypt-batch requests.
//
// Each record maps field ids to plaintext values. Per-record failures are
// reported in place without aborting the batch, so the response is always 200
// with a results slice in input order.
func (h *ColumnHandler) BatchEncryptHandler(c *gin.Context) {
	var request dto.BatchEncryptRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid request body"), h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	records := make([]columnsUseCase.FieldValues, len(request.Records))
	for i, record := range request.Records {
		records[i] = columnsUseCase.FieldValues(record)
	}

	results := h.columnUseCase.BatchEncrypt(c.Request.Context(), records)
	c.JSON(http.StatusOK, dto.MapEncryptResultsToResponse(results))
}

// BatchDecryptHandler handles POST /v1/decrypt-batch requests.
//
// Each record maps field ids to base64-encoded ciphertext envelopes.
func (h *ColumnHandler) BatchDecryptHandler(c *gin.Context) {
	var request dto.BatchDecryptRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid request body"), h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	records := make([]columnsUseCase.EncryptedFields, len(request.Records))
	for i, record := range request.Records {
		fields := make(columnsUseCase.EncryptedFields, len(record))
		for fieldID, encoded := range record {
			ciphertext, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				httputil.HandleBadRequestGin(c, fmt.Errorf(
					"record %d field %q: ciphertext must be base64 encoded", i, fieldID,
				), h.logger)
				return
			}
			fields[fieldID] = ciphertext
		}
		records[i] = fields
	}

	results := h.columnUseCase.BatchDecrypt(c.Request.Context(), records)
	c.JSON(http.StatusOK, dto.MapDecryptResultsToResponse(results))
}
