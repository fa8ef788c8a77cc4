package domain

import (
	"encoding/binary"
	"fmt"
)

// Envelope layout sizes. The layout is part of the stored data format and must
// stay stable across releases.
const (
	// NonceSize is the AEAD nonce length in bytes for all supported algorithms.
	NonceSize = 12

	// TagSize is the AEAD authentication tag length in bytes.
	TagSize = 16

	// envelopeHeaderSize is the minimum marshaled size: 1 length byte, a
	// 4-byte version, nonce and tag. The key id and payload come on top.
	envelopeHeaderSize = 1 + 4 + NonceSize + TagSize
)

// Envelope is the self-describing wire form of an encrypted field value.
//
// Marshaled layout, in fixed order:
//
//	[key id length (1 byte)] [key id] [key version (4 bytes, big-endian)]
//	[nonce (12 bytes)] [tag (16 bytes)] [payload]
//
// The embedded key id and version let any retained key version decrypt the
// value long after the key has rotated. The tag is stored detached from the
// payload; both are fed back to the AEAD on decryption.
type Envelope struct {
	KeyID      string
	KeyVersion uint32
	Nonce      []byte
	Tag        []byte
	Payload    []byte
}

// Marshal serializes the envelope to its binary representation.
//
// Returns ErrInvalidEnvelope if the key id is empty or too long, or if the
// nonce or tag have unexpected sizes.
func (e *Envelope) Marshal() ([]byte, error) {
	if e.KeyID == "" {
		return nil, fmt.Errorf("%w: empty key id", ErrInvalidEnvelope)
	}
	if len(e.KeyID) > MaxKeyIDLength {
		return nil, fmt.Errorf(
			"%w: key id exceeds %d bytes",
			ErrInvalidEnvelope,
			MaxKeyIDLength,
		)
	}
	if len(e.Nonce) != NonceSize {
		return nil, fmt.Errorf(
			"%w: nonce must be %d bytes, got %d",
			ErrInvalidEnvelope,
			NonceSize,
			len(e.Nonce),
		)
	}
	if len(e.Tag) != TagSize {
		return nil, fmt.Errorf(
			"%w: tag must be %d bytes, got %d",
			ErrInvalidEnvelope,
			TagSize,
			len(e.Tag),
		)
	}

	buf := make([]byte, 0, envelopeHeaderSize+len(e.KeyID)+len(e.Payload))
	buf = append(buf, byte(len(e.KeyID)))
	buf = append(buf, e.KeyID...)
	buf = binary.BigEndian.AppendUint32(buf, e.KeyVersion)
	buf = append(buf, e.Nonce...)
	buf = append(buf, e.Tag...)
	buf = append(buf, e.Payload...)
	return buf, nil
}

// ParseEnvelope deserializes the binary representation produced by Marshal.
//
// Returns ErrInvalidEnvelope if the input is truncated or malformed.
// Parsing never authenticates the payload; that happens during decryption.
func ParseEnvelope(data []byte) (*Envelope, error) {
	if len(data) < envelopeHeaderSize+1 {
		return nil, fmt.Errorf("%w: too short", ErrInvalidEnvelope)
	}

	keyIDLen := int(data[0])
	if keyIDLen == 0 {
		return nil, fmt.Errorf("%w: empty key id", ErrInvalidEnvelope)
	}
	if len(data) < envelopeHeaderSize+keyIDLen {
		return nil, fmt.Errorf("%w: truncated key id", ErrInvalidEnvelope)
	}

	offset := 1
	keyID := string(data[offset : offset+keyIDLen])
	offset += keyIDLen

	version := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4

	nonce := make([]byte, NonceSize)
	copy(nonce, data[offset:offset+NonceSize])
	offset += NonceSize

	tag := make([]byte, TagSize)
	copy(tag, data[offset:offset+TagSize])
	offset += TagSize

	payload := make([]byte, len(data)-offset)
	copy(payload, data[offset:])

	return &Envelope{
		KeyID:      keyID,
		KeyVersion: version,
		Nonce:      nonce,
		Tag:        tag,
		Payload:    payload,
	}, nil
}
