package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenRecord is one vault mapping between an original value and its token.
//
// The original value never appears in the record: Protected holds it
// encrypted through the column encryption service, and ValueHash is the
// fingerprint the reverse index uses for idempotent lookups. A record stays
// in the store after revocation (Active=false) for audit until cleanup
// hard-deletes it.
type TokenRecord struct {
	TokenID      uuid.UUID   `json:"token_id"`
	FieldID      string      `json:"field_id"`
	TokenValue   string      `json:"token_value"`
	Sensitivity  Sensitivity `json:"sensitivity"`
	Protected    []byte      `json:"protected"`
	ValueHash    string      `json:"value_hash"`
	KeyVersion   uint32      `json:"key_version"`
	CreatedAt    time.Time   `json:"created_at"`
	LastAccessed time.Time   `json:"last_accessed"`
	AccessCount  uint32      `json:"access_count"`
	Active       bool        `json:"active"`
}

// Touch bumps the access metadata for a successful use of the record.
func (r *TokenRecord) Touch() {
	r.LastAccessed = time.Now().UTC()
	r.AccessCount++
}

// Expired reports whether an inactive record has been inactive longer than
// maxAge and is eligible for hard deletion. Active records never expire.
func (r *TokenRecord) Expired(maxAge time.Duration, now time.Time) bool {
	if r.Active {
		return false
	}
	return now.Sub(r.LastAccessed) > maxAge
}
