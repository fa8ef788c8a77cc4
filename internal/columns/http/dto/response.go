package dto

import (
	"encoding/base64"
	"time"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	columnsUseCase "github.com/fieldvault/fieldvault/internal/columns/usecase"
)

// FieldPolicyResponse represents a field policy in API responses.
type FieldPolicyResponse struct {
	FieldID         string    `json:"field_id"`
	KeyID           string    `json:"key_id"`
	Mode            string    `json:"mode"`
	Shape           string    `json:"shape"`
	Compress        bool      `json:"compress"`
	CacheRandomized bool      `json:"cache_randomized"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MapPolicyToResponse converts a domain field policy to a response DTO.
func MapPolicyToResponse(policy *columnsDomain.FieldPolicy) FieldPolicyResponse {
	return FieldPolicyResponse{
		FieldID:         policy.FieldID,
		KeyID:           policy.KeyID,
		Mode:            string(policy.Mode),
		Shape:           policy.Shape.String(),
		Compress:        policy.Compress,
		CacheRandomized: policy.CacheRandomized,
		CreatedAt:       policy.CreatedAt,
		UpdatedAt:       policy.UpdatedAt,
	}
}

// ListFieldsResponse represents a paginated list of field policies.
type ListFieldsResponse struct {
	Data   []FieldPolicyResponse `json:"data"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
	Total  int                   `json:"total"`
}

// MapPoliciesToListResponse converts a page of domain policies to a list DTO.
func MapPoliciesToListResponse(
	policies []*columnsDomain.FieldPolicy,
	offset, limit, total int,
) ListFieldsResponse {
	data := make([]FieldPolicyResponse, len(policies))
	for i, policy := range policies {
		data[i] = MapPolicyToResponse(policy)
	}
	return ListFieldsResponse{Data: data, Offset: offset, Limit: limit, Total: total}
}

// EncryptFieldResponse carries a single base64-encoded ciphertext envelope.
type EncryptFieldResponse struct {
	FieldID    string `json:"field_id"`
	Ciphertext string `json:"ciphertext"`
}

// DecryptFieldResponse carries a single recovered plaintext value.
type DecryptFieldResponse struct {
	FieldID string `json:"field_id"`
	Value   any    `json:"value"`
}

// BatchEncryptRecord is the outcome of encrypting one batch record. Either
// Fields or Error is set, never both.
type BatchEncryptRecord struct {
	Index  int               `json:"index"`
	Fields map[string]string `json:"fields,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// BatchEncryptResponse carries per-record batch encryption outcomes in input
// order.
type BatchEncryptResponse struct {
	Results []BatchEncryptRecord `json:"results"`
}

// MapEncryptResultsToResponse converts batch encryption results, base64
// encoding each envelope for JSON transport.
func MapEncryptResultsToResponse(results []columnsUseCase.EncryptResult) BatchEncryptResponse {
	records := make([]BatchEncryptRecord, len(results))
	for i, result := range results {
		record := BatchEncryptRecord{Index: result.Index}
		if result.Err != nil {
			record.Error = result.Err.Error()
		} else {
			record.Fields = make(map[string]string, len(result.Fields))
			for fieldID, ciphertext := range result.Fields {
				record.Fields[fieldID] = base64.StdEncoding.EncodeToString(ciphertext)
			}
		}
		records[i] = record
	}
	return BatchEncryptResponse{Results: records}
}

// BatchDecryptRecord is the outcome of decrypting one batch record.
type BatchDecryptRecord struct {
	Index  int            `json:"index"`
	Fields map[string]any `json:"fields,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// BatchDecryptResponse carries per-record batch decryption outcomes in input
// order.
type BatchDecryptResponse struct {
	Results []BatchDecryptRecord `json:"results"`
}

// MapDecryptResultsToResponse converts batch decryption results.
func MapDecryptResultsToResponse(results []columnsUseCase.DecryptResult) BatchDecryptResponse {
	records := make([]BatchDecryptRecord, len(results))
	for i, result := range results {
		record := BatchDecryptRecord{Index: result.Index}
		if result.Err != nil {
			record.Error = result.Err.Error()
		} else {
			record.Fields = result.Fields
		}
		records[i] = record
	}
	return BatchDecryptResponse{Results: records}
}
