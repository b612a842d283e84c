package types

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/colorfulnotion/move0/codec"
	"github.com/holiman/uint256"
)

var (
	ErrValueOutOfRange   = errors.New("value out of range for its type")
	ErrValueTypeMismatch = errors.New("value does not match layout")
)

// maxU128 is 2^128 - 1.
var maxU128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// MoveValue is a transaction argument value. Only the argument-safe shapes
// are modelled: integers, bool, address, signer and vectors of those.
type MoveValue struct {
	tag   TypeTag
	b     bool
	u     uint64
	big   *uint256.Int
	addr  AccountAddress
	elems []MoveValue
}

func MoveBool(b bool) MoveValue { return MoveValue{tag: BoolTag, b: b} }
func MoveU8(v uint8) MoveValue { return MoveValue{tag: U8Tag, u: uint64(v)} }
func MoveU16(v uint16) MoveValue { return MoveValue{tag: U16Tag, u: uint64(v)} }
func MoveU32(v uint32) MoveValue { return MoveValue{tag: U32Tag, u: uint64(v)} }
func MoveU64(v uint64) MoveValue { return MoveValue{tag: U64Tag, u: v} }

// MoveU128 wraps v, which must fit in 128 bits when serialized.
func MoveU128(v *uint256.Int) MoveValue {
	return MoveValue{tag: U128Tag, big: new(uint256.Int).Set(v)}
}

func MoveU256(v *uint256.Int) MoveValue {
	return MoveValue{tag: U256Tag, big: new(uint256.Int).Set(v)}
}

func MoveAddress(a AccountAddress) MoveValue { return MoveValue{tag: AddressTag, addr: a} }
func MoveSigner(a AccountAddress) MoveValue { return MoveValue{tag: SignerTag, addr: a} }

// MoveVector builds a vector value. The element type is taken from the first
// element; an empty vector has element type u8 until placed under a layout.
func MoveVector(elems ...MoveValue) MoveValue {
	elem := U8Tag
	if len(elems) > 0 {
		elem = elems[0].tag
	}
	return MoveValue{tag: VectorTag(elem), elems: elems}
}

// VectorU8 is vector<u8> built from raw bytes.
func VectorU8(b []byte) MoveValue {
	elems := make([]MoveValue, len(b))
	for i, c := range b {
		elems[i] = MoveU8(c)
	}
	return MoveValue{tag: VectorTag(U8Tag), elems: elems}
}

func (v MoveValue) Type() TypeTag { return v.tag }
func (v MoveValue) Bool() bool { return v.b }
func (v MoveValue) Uint64() uint64 { return v.u }
func (v MoveValue) Address() AccountAddress { return v.addr }
func (v MoveValue) Elements() []MoveValue { return v.elems }

// Big returns the 128/256-bit payload.
func (v MoveValue) Big() *uint256.Int {
	if v.big == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v.big)
}

// SimpleSerialize returns the BCS encoding of v.
func (v MoveValue) SimpleSerialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v MoveValue) MarshalBCS() ([]byte, error) {
	return v.SimpleSerialize()
}

func (v MoveValue) encode(w *bytes.Buffer) error {
	switch v.tag.Kind {
	case TypeTagBool:
		if v.b {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
	case TypeTagU8:
		w.WriteByte(byte(v.u))
	case TypeTagU16, TypeTagU32, TypeTagU64:
		size := map[TypeTagKind]int{TypeTagU16: 2, TypeTagU32: 4, TypeTagU64: 8}[v.tag.Kind]
		for i := 0; i < size; i++ {
			w.WriteByte(byte(v.u >> (8 * i)))
		}
	case TypeTagU128:
		if v.big != nil && v.big.Gt(maxU128) {
			return fmt.Errorf("%w: u128 %s", ErrValueOutOfRange, v.big.Dec())
		}
		le := codec.MustMarshal(v.Big())
		w.Write(le[:16])
	case TypeTagU256:
		w.Write(codec.MustMarshal(v.Big()))
	case TypeTagAddress, TypeTagSigner:
		w.Write(v.addr[:])
	case TypeTagVector:
		w.Write(codec.EncodeULEB128(uint64(len(v.elems))))
		for _, e := range v.elems {
			if err := e.encode(w); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cannot serialize %s value", v.tag)
	}
	return nil
}

// SerializeValues encodes each value independently, in order.
func SerializeValues(values []MoveValue) ([][]byte, error) {
	out := make([][]byte, 0, len(values))
	for i, v := range values {
		b, err := v.SimpleSerialize()
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// DeserializeValue decodes blob under layout. The whole blob must be
// consumed.
func DeserializeValue(blob []byte, layout TypeTag) (MoveValue, error) {
	r := bytes.NewReader(blob)
	v, err := decodeValue(r, layout, 0)
	if err != nil {
		return MoveValue{}, err
	}
	if r.Len() != 0 {
		return MoveValue{}, fmt.Errorf("%w: %d", codec.ErrTrailingBytes, r.Len())
	}
	return v, nil
}

func decodeValue(r *bytes.Reader, layout TypeTag, depth int) (MoveValue, error) {
	if depth > codec.MaxContainerDepth {
		return MoveValue{}, codec.ErrDepthExceeded
	}
	readN := func(n int) ([]byte, error) {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	switch layout.Kind {
	case TypeTagBool:
		b, err := r.ReadByte()
		if err != nil {
			return MoveValue{}, err
		}
		if b > 1 {
			return MoveValue{}, fmt.Errorf("%w: %#x", codec.ErrInvalidBool, b)
		}
		return MoveBool(b == 1), nil
	case TypeTagU8, TypeTagU16, TypeTagU32, TypeTagU64:
		size := map[TypeTagKind]int{TypeTagU8: 1, TypeTagU16: 2, TypeTagU32: 4, TypeTagU64: 8}[layout.Kind]
		buf, err := readN(size)
		if err != nil {
			return MoveValue{}, err
		}
		var u uint64
		for i := size - 1; i >= 0; i-- {
			u = u<<8 | uint64(buf[i])
		}
		return MoveValue{tag: layout, u: u}, nil
	case TypeTagU128, TypeTagU256:
		size := 16
		if layout.Kind == TypeTagU256 {
			size = 32
		}
		buf, err := readN(size)
		if err != nil {
			return MoveValue{}, err
		}
		le := make([]byte, 32)
		copy(le, buf)
		var n uint256.Int
		if err := codec.Unmarshal(le, &n); err != nil {
			return MoveValue{}, err
		}
		return MoveValue{tag: layout, big: &n}, nil
	case TypeTagAddress, TypeTagSigner:
		buf, err := readN(AccountAddressLength)
		if err != nil {
			return MoveValue{}, err
		}
		var a AccountAddress
		copy(a[:], buf)
		return MoveValue{tag: layout, addr: a}, nil
	case TypeTagVector:
		if layout.Elem == nil {
			return MoveValue{}, ErrValueTypeMismatch
		}
		n, err := codec.ReadULEB128(r)
		if err != nil {
			return MoveValue{}, err
		}
		if int(n) > r.Len() && layout.Elem.Kind != TypeTagVector {
			// every element takes at least one byte
			return MoveValue{}, io.ErrUnexpectedEOF
		}
		elems := make([]MoveValue, 0, min(int(n), r.Len()))
		for i := uint32(0); i < n; i++ {
			e, err := decodeValue(r, *layout.Elem, depth+1)
			if err != nil {
				return MoveValue{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, e)
		}
		return MoveValue{tag: layout, elems: elems}, nil
	}
	return MoveValue{}, fmt.Errorf("%w: %s", ErrValueTypeMismatch, layout)
}

// Equal reports structural equality of type and payload.
func (v MoveValue) Equal(o MoveValue) bool {
	if !v.tag.Equal(o.tag) {
		return false
	}
	switch v.tag.Kind {
	case TypeTagBool:
		return v.b == o.b
	case TypeTagU128, TypeTagU256:
		return v.Big().Eq(o.Big())
	case TypeTagAddress, TypeTagSigner:
		return v.addr == o.addr
	case TypeTagVector:
		if len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	}
	return v.u == o.u
}

func (v MoveValue) String() string {
	switch v.tag.Kind {
	case TypeTagBool:
		return fmt.Sprintf("%t", v.b)
	case TypeTagU128, TypeTagU256:
		return v.Big().Dec() + v.tag.String()
	case TypeTagAddress:
		return "@" + v.addr.ShortString()
	case TypeTagSigner:
		return "signer(" + v.addr.ShortString() + ")"
	case TypeTagVector:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%d%s", v.u, v.tag)
}
