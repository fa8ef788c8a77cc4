package dto

import (
	"time"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// KeyResponse represents a field key version in API responses. It carries
// metadata only; key material never leaves the service.
type KeyResponse struct {
	KeyID     string    `json:"key_id"`
	Version   uint32    `json:"version"`
	Algorithm string    `json:"algorithm"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// MapKeyToResponse converts a domain key to an API response.
func MapKeyToResponse(key *cryptoDomain.SymmetricKey) KeyResponse {
	return KeyResponse{
		KeyID:     key.KeyID,
		Version:   key.Version,
		Algorithm: string(key.Algorithm),
		CreatedAt: key.CreatedAt,
		Active:    key.Active,
	}
}

// ListKeysResponse represents a paginated list of key versions.
type ListKeysResponse struct {
	Data   []KeyResponse `json:"data"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
	Total  int           `json:"total"`
}

// MapKeysToListResponse converts a page of domain keys to a list response.
func MapKeysToListResponse(keys []*cryptoDomain.SymmetricKey, offset, limit, total int) ListKeysResponse {
	data := make([]KeyResponse, 0, len(keys))
	for _, key := range keys {
		data = append(data, MapKeyToResponse(key))
	}

	return ListKeysResponse{
		Data:   data,
		Offset: offset,
		Limit:  limit,
		Total:  total,
	}
}
