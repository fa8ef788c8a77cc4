// Package service provides the value transformation services for column
// encryption: shape-aware serialization, transparent compression and the
// ciphertext lookup cache.
package service

import (
	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
)

// Serializer converts field values between their in-memory form and the byte
// form that gets encrypted.
type Serializer interface {
	// Serialize turns a value into bytes according to the declared shape.
	// Returns ErrSerializationFailed when the value does not match the shape.
	Serialize(shape columnsDomain.Shape, value any) ([]byte, error)

	// Deserialize turns decrypted bytes back into a value of the declared
	// shape. Returns ErrDeserializationFailed on malformed payloads.
	Deserialize(shape columnsDomain.Shape, data []byte) (any, error)
}

// Compressor shrinks serialized values before encryption. Implementations
// must be self-describing so decompression never needs the policy to know
// whether compression actually happened.
type Compressor interface {
	// Compress returns a framed representation of data that Decompress can
	// reverse. Implementations may return the input uncompressed (framed as
	// such) when compression would not help.
	Compress(data []byte) ([]byte, error)

	// Decompress reverses Compress. Returns ErrDecompressionFailed on corrupt
	// frames or payloads that would inflate beyond the safety bound.
	Decompress(data []byte) ([]byte, error)
}

// Cache is the ciphertext lookup cache consulted before encryption. It is a
// pure performance layer: a miss always falls through to full encryption and
// correctness never depends on an entry being present.
type Cache interface {
	// Lookup returns the cached ciphertext for the fingerprint, or false.
	Lookup(fingerprint string) ([]byte, bool)

	// Store caches ciphertext under the fingerprint.
	Store(fingerprint string, ciphertext []byte)

	// Clear synchronously drops every entry. Called during key rotation
	// before the rotation returns to its caller.
	Clear()

	// Len returns the current number of entries.
	Len() int
}
