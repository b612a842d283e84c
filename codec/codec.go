// Package codec implements Binary Canonical Serialization (BCS), the value
// encoding used for Move transaction arguments and harness inputs.
package codec

import (
	"bytes"
	"errors"
	"fmt"
)

// MaxSequenceLength bounds every length prefix.
const MaxSequenceLength = (1 << 31) - 1

// MaxContainerDepth bounds nesting of slices, arrays, structs and options.
const MaxContainerDepth = 500

var (
	ErrUnsupportedType        = errors.New("unsupported type")
	ErrUnsupportedDestination = errors.New("unsupported destination type")
	ErrInvalidBool            = errors.New("invalid bool byte")
	ErrInvalidOption          = errors.New("invalid option tag")
	ErrNonCanonicalULEB       = errors.New("non-canonical uleb128 encoding")
	ErrULEBOverflow           = errors.New("uleb128 value exceeds u32")
	ErrLengthTooLarge         = errors.New("sequence length exceeds maximum")
	ErrTrailingBytes          = errors.New("trailing bytes after value")
	ErrDepthExceeded          = errors.New("container depth exceeded")
	ErrNilValue               = errors.New("nil value")
)

// Encode serializes the given object using the BCS rules.
func Encode(obj interface{}) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	encoder := NewEncoder(buffer)

	err := encoder.Encode(obj)
	if err != nil {
		return nil, fmt.Errorf("encoding failed: %w", err)
	}

	return buffer.Bytes(), nil
}

// Decode deserializes inp into typ, which must be a pointer. All of inp
// must be consumed.
func Decode(inp []byte, typ interface{}) (interface{}, error) {
	if err := Unmarshal(inp, typ); err != nil {
		return nil, fmt.Errorf("decoding failed: %w", err)
	}
	return typ, nil
}
