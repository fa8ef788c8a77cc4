// Package events provides the in-process lifecycle event stream.
//
// Key rotations, field encryptions, token operations and their failures all
// publish events describing what happened. Event payloads carry identifiers
// and coarse metadata only; plaintext values and key material never appear in
// an event.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of lifecycle event.
type Type string

const (
	TypeKeyGenerated       Type = "key.generated"
	TypeKeyRotated         Type = "key.rotated"
	TypeKeyVersionPurged   Type = "key.version_purged"
	TypeValueEncrypted     Type = "value.encrypted"
	TypeValueDecrypted     Type = "value.decrypted"
	TypeValueDecryptFailed Type = "value.decrypt_failed"
	TypeTokenIssued        Type = "token.issued"
	TypeTokenRevealed      Type = "token.revealed"
	TypeTokenRevoked       Type = "token.revoked"
	TypeTokenRevealDenied  Type = "token.reveal_denied"
	TypeVaultCleaned       Type = "vault.cleaned"
	TypePolicyUpdated      Type = "policy.updated"
)

// AllTypes lists every event type the service emits.
var AllTypes = []Type{
	TypeKeyGenerated,
	TypeKeyRotated,
	TypeKeyVersionPurged,
	TypeValueEncrypted,
	TypeValueDecrypted,
	TypeValueDecryptFailed,
	TypeTokenIssued,
	TypeTokenRevealed,
	TypeTokenRevoked,
	TypeTokenRevealDenied,
	TypeVaultCleaned,
	TypePolicyUpdated,
}

// Event describes one lifecycle occurrence. The subject fields identify what
// the event is about; unset fields are omitted from logs. Tokens are opaque
// surrogates and safe to carry; plaintext and key bytes never are.
type Event struct {
	ID          uuid.UUID
	Type        Type
	KeyID       string
	KeyVersion  uint32
	FieldID     string
	Token       string
	Sensitivity string
	OccurredAt  time.Time
	Metadata    map[string]string
}

// New creates an event of the given type with a fresh UUIDv7 id and the
// current UTC timestamp. Callers fill in the subject fields before publishing.
func New(eventType Type) Event {
	return Event{
		ID:         uuid.Must(uuid.NewV7()),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}
