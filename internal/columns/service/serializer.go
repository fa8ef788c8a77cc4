package service

import (
	"encoding/json"
	"strconv"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// shapeSerializer implements Serializer for the supported data shapes.
//
// String and text values pass through as UTF-8 bytes; json values round-trip
// through encoding/json; numbers are formatted with the shortest
// representation that parses back to the same float64.
type shapeSerializer struct{}

// NewSerializer creates the shape-aware serializer.
func NewSerializer() Serializer {
	return &shapeSerializer{}
}

// Serialize turns a value into bytes according to the declared shape.
func (s *shapeSerializer) Serialize(shape columnsDomain.Shape, value any) ([]byte, error) {
	switch shape {
	case columnsDomain.ShapeString, columnsDomain.ShapeText:
		text, ok := value.(string)
		if !ok {
			return nil, apperrors.Wrapf(
				columnsDomain.ErrSerializationFailed,
				"%s field requires a string value, got %T",
				shape,
				value,
			)
		}
		return []byte(text), nil

	case columnsDomain.ShapeJSON:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, apperrors.Wrap(columnsDomain.ErrSerializationFailed, err.Error())
		}
		return data, nil

	case columnsDomain.ShapeNumber:
		number, ok := toFloat64(value)
		if !ok {
			return nil, apperrors.Wrapf(
				columnsDomain.ErrSerializationFailed,
				"number field requires a numeric value, got %T",
				value,
			)
		}
		return strconv.AppendFloat(nil, number, 'g', -1, 64), nil

	default:
		return nil, columnsDomain.ErrUnsupportedShape
	}
}

// Deserialize turns decrypted bytes back into a value of the declared shape.
func (s *shapeSerializer) Deserialize(shape columnsDomain.Shape, data []byte) (any, error) {
	switch shape {
	case columnsDomain.ShapeString, columnsDomain.ShapeText:
		return string(data), nil

	case columnsDomain.ShapeJSON:
		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, apperrors.Wrap(columnsDomain.ErrDeserializationFailed, err.Error())
		}
		return value, nil

	case columnsDomain.ShapeNumber:
		number, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil, apperrors.Wrap(columnsDomain.ErrDeserializationFailed, err.Error())
		}
		return number, nil

	default:
		return nil, columnsDomain.ErrUnsupportedShape
	}
}

// toFloat64 widens the numeric types JSON decoding and Go callers commonly
// produce. JSON numbers always arrive as float64.
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
