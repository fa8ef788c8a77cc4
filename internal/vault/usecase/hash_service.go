package usecase

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the reverse-index key for a (field, value) pair: the
// hex SHA-256 over the field id and value with a zero-byte separator. Binding
// the field id means identical values in different fields map to different
// tokens, and the separator keeps ("ab","c") and ("a","bc") from colliding.
//
// The fingerprint is a lookup key, not a protection mechanism; the value
// itself is stored encrypted.
func Fingerprint(fieldID, value string) string {
	h := sha256.New()
	h.Write([]byte(fieldID))
	h.Write([]byte{0x00})
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}
