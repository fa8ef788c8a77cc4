package dto

import (
	"time"

	vaultDomain "github.com/fieldvault/fieldvault/internal/vault/domain"
	vaultUseCase "github.com/fieldvault/fieldvault/internal/vault/usecase"
)

// TokenResponse represents an issued token in API responses.
//
// The protected value and its hash never leave the vault; only token metadata
// is exposed.
type TokenResponse struct {
	TokenID      string    `json:"token_id"`
	FieldID      string    `json:"field_id"`
	Token        string    `json:"token"`
	Sensitivity  string    `json:"sensitivity"`
	KeyVersion   uint32    `json:"key_version"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  uint32    `json:"access_count"`
	Active       bool      `json:"active"`
}

// MapRecordToResponse converts a domain token record to a response DTO.
func MapRecordToResponse(record *vaultDomain.TokenRecord) TokenResponse {
	return TokenResponse{
		TokenID:      record.TokenID.String(),
		FieldID:      record.FieldID,
		Token:        record.TokenValue,
		Sensitivity:  record.Sensitivity.String(),
		KeyVersion:   record.KeyVersion,
		CreatedAt:    record.CreatedAt,
		LastAccessed: record.LastAccessed,
		AccessCount:  record.AccessCount,
		Active:       record.Active,
	}
}

// BatchTokenizeRecord is the outcome of tokenizing one batch item. Either
// Token or Error is set, never both.
type BatchTokenizeRecord struct {
	Index int            `json:"index"`
	Token *TokenResponse `json:"token,omitempty"`
	Error string         `json:"error,omitempty"`
}

// BatchTokenizeResponse carries per-item batch outcomes in input order.
type BatchTokenizeResponse struct {
	Results []BatchTokenizeRecord `json:"results"`
}

// MapTokenizeResultsToResponse converts batch tokenization results.
func MapTokenizeResultsToResponse(results []vaultUseCase.TokenizeResult) BatchTokenizeResponse {
	records := make([]BatchTokenizeRecord, len(results))
	for i, result := range results {
		record := BatchTokenizeRecord{Index: result.Index}
		if result.Err != nil {
			record.Error = result.Err.Error()
		} else {
			token := MapRecordToResponse(result.Record)
			record.Token = &token
		}
		records[i] = record
	}
	return BatchTokenizeResponse{Results: records}
}

// DetokenizeResponse carries the recovered original value.
type DetokenizeResponse struct {
	Token string `json:"token"`
	Value string `json:"value"`
}
