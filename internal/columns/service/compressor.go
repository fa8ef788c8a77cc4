package service

import (
	"github.com/klauspost/compress/s2"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// Frame headers distinguishing raw from compressed payloads. The header byte
// is part of the encrypted payload format and must stay stable.
const (
	frameRaw        byte = 0x00
	frameCompressed byte = 0x01
)

// maxDecodedSize bounds decompression output so a crafted payload cannot
// inflate into an allocation bomb. Matches the vault's 64 KiB value limit
// with generous headroom for json fields.
const maxDecodedSize = 16 << 20 // 16 MiB

// s2Compressor implements Compressor using the S2 block format.
//
// Every output starts with a one-byte frame header. Short or incompressible
// values are framed raw, so compression never grows a payload by more than
// one byte and decompression never needs the policy to know what happened.
type s2Compressor struct{}

// NewCompressor creates the S2 block compressor.
func NewCompressor() Compressor {
	return &s2Compressor{}
}

// Compress frames data, compressing it when that actually saves space.
func (c *s2Compressor) Compress(data []byte) ([]byte, error) {
	compressed := s2.Encode(nil, data)
	if len(compressed) >= len(data) {
		framed := make([]byte, 0, 1+len(data))
		framed = append(framed, frameRaw)
		return append(framed, data...), nil
	}

	framed := make([]byte, 0, 1+len(compressed))
	framed = append(framed, frameCompressed)
	return append(framed, compressed...), nil
}

// Decompress reverses Compress.
func (c *s2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, apperrors.Wrap(columnsDomain.ErrDecompressionFailed, "empty frame")
	}

	payload := data[1:]
	switch data[0] {
	case frameRaw:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil

	case frameCompressed:
		decodedLen, err := s2.DecodedLen(payload)
		if err != nil {
			return nil, apperrors.Wrap(columnsDomain.ErrDecompressionFailed, err.Error())
		}
		if decodedLen > maxDecodedSize {
			return nil, apperrors.Wrapf(
				columnsDomain.ErrDecompressionFailed,
				"decoded size %d exceeds limit",
				decodedLen,
			)
		}
		decoded, err := s2.Decode(nil, payload)
		if err != nil {
			return nil, apperrors.Wrap(columnsDomain.ErrDecompressionFailed, err.Error())
		}
		return decoded, nil

	default:
		return nil, apperrors.Wrapf(
			columnsDomain.ErrDecompressionFailed,
			"unknown frame header 0x%02x",
			data[0],
		)
	}
}
