package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
	"sort"

	"github.com/holiman/uint256"
)

// Encoder BCS encodes to a given io.Writer.
type Encoder struct {
	encodeState
}

// NewEncoder creates a new encoder with the given writer.
func NewEncoder(writer io.Writer) (encoder *Encoder) {
	return &Encoder{
		encodeState: encodeState{Writer: writer},
	}
}

// Encode BCS encodes value to the encoder writer.
func (e *Encoder) Encode(value interface{}) (err error) {
	return e.marshal(value)
}

// Marshal takes in an interface{} and attempts to marshal into []byte
func Marshal(v interface{}) (b []byte, err error) {
	buffer := bytes.NewBuffer(nil)
	es := encodeState{Writer: buffer}
	err = es.marshal(v)
	if err != nil {
		return
	}
	b = buffer.Bytes()
	return
}

// Marshaler is the interface for custom BCS marshalling for a given type
type Marshaler interface {
	MarshalBCS() ([]byte, error)
}

// MustMarshal runs Marshal and panics on error.
func MustMarshal(v interface{}) (b []byte) {
	b, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

type encodeState struct {
	io.Writer
	depth int
}

func (es *encodeState) marshal(in interface{}) (err error) {
	if in == nil {
		return ErrNilValue
	}
	if marshaler, ok := in.(Marshaler); ok {
		var bytes []byte
		bytes, err = marshaler.MarshalBCS()
		if err != nil {
			return
		}
		_, err = es.Write(bytes)
		return
	}

	switch in := in.(type) {
	case *uint256.Int:
		if in == nil {
			return fmt.Errorf("%w: *uint256.Int", ErrNilValue)
		}
		err = es.encodeUint256(in)
	case uint256.Int:
		err = es.encodeUint256(&in)
	case int8, uint8, int16, uint16, int32, uint32, int64, uint64:
		err = binary.Write(es, binary.LittleEndian, in)
	case []byte:
		err = es.encodeBytes(in)
	case string:
		err = es.encodeBytes([]byte(in))
	case bool:
		err = es.encodeBool(in)
	default:
		v := reflect.ValueOf(in)
		switch v.Kind() {
		case reflect.Bool:
			err = es.encodeBool(v.Bool())
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.String:
			err = es.encodeCustomPrimitive(v)
		case reflect.Ptr:
			// a pointer is an Option: nil is None.
			if v.IsNil() {
				_, err = es.Write([]byte{0})
				return
			}
			if _, err = es.Write([]byte{1}); err != nil {
				return
			}
			err = es.nested(func() error { return es.marshal(v.Elem().Interface()) })
		case reflect.Struct:
			err = es.nested(func() error { return es.encodeStruct(v) })
		case reflect.Array:
			err = es.nested(func() error { return es.encodeArray(v) })
		case reflect.Slice:
			err = es.nested(func() error { return es.encodeSlice(v) })
		case reflect.Map:
			err = es.nested(func() error { return es.encodeMap(v) })
		default:
			err = fmt.Errorf("%w: %T", ErrUnsupportedType, in)
		}
	}
	return
}

func (es *encodeState) nested(fn func() error) error {
	es.depth++
	defer func() { es.depth-- }()
	if es.depth > MaxContainerDepth {
		return ErrDepthExceeded
	}
	return fn()
}

// encodeCustomPrimitive encodes named types whose underlying kind is a primitive.
func (es *encodeState) encodeCustomPrimitive(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Uint8:
		return es.marshal(uint8(v.Uint()))
	case reflect.Uint16:
		return es.marshal(uint16(v.Uint()))
	case reflect.Uint32:
		return es.marshal(uint32(v.Uint()))
	case reflect.Uint64:
		return es.marshal(v.Uint())
	case reflect.Int8:
		return es.marshal(int8(v.Int()))
	case reflect.Int16:
		return es.marshal(int16(v.Int()))
	case reflect.Int32:
		return es.marshal(int32(v.Int()))
	case reflect.Int64:
		return es.marshal(v.Int())
	case reflect.String:
		return es.marshal(v.String())
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, v.Type())
}

func (es *encodeState) encodeUint256(i *uint256.Int) error {
	le := i.Bytes32()
	for l, r := 0, len(le)-1; l < r; l, r = l+1, r-1 {
		le[l], le[r] = le[r], le[l]
	}
	_, err := es.Write(le[:])
	return err
}

// encodeSlice encodes a slice with length prefix
func (es *encodeState) encodeSlice(v reflect.Value) (err error) {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		return es.encodeBytes(v.Bytes())
	}
	if err = es.encodeLength(v.Len()); err != nil {
		return
	}
	for i := 0; i < v.Len(); i++ {
		if err = es.marshal(v.Index(i).Interface()); err != nil {
			return
		}
	}
	return
}

// encodeArray encodes an array without length prefix
func (es *encodeState) encodeArray(v reflect.Value) (err error) {
	for i := 0; i < v.Len(); i++ {
		if err = es.marshal(v.Index(i).Interface()); err != nil {
			return
		}
	}
	return
}

// encodeMap writes entries ordered by the lexicographic order of their
// encoded keys.
func (es *encodeState) encodeMap(v reflect.Value) error {
	type entry struct{ key, value []byte }
	entries := make([]entry, 0, v.Len())
	iterator := v.MapRange()
	for iterator.Next() {
		k, err := Marshal(iterator.Key().Interface())
		if err != nil {
			return fmt.Errorf("encoding map key: %w", err)
		}
		val, err := Marshal(iterator.Value().Interface())
		if err != nil {
			return fmt.Errorf("encoding map value: %w", err)
		}
		entries = append(entries, entry{k, val})
	}
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].key, entries[j].key) < 0 })

	if err := es.encodeLength(len(entries)); err != nil {
		return fmt.Errorf("encoding length: %w", err)
	}
	for _, e := range entries {
		if _, err := es.Write(e.key); err != nil {
			return err
		}
		if _, err := es.Write(e.value); err != nil {
			return err
		}
	}
	return nil
}

// encodeBool encodes a boolean value
func (es *encodeState) encodeBool(l bool) (err error) {
	if l {
		_, err = es.Write([]byte{0x01})
	} else {
		_, err = es.Write([]byte{0x00})
	}
	return
}

// encodeBytes encodes a byte slice with length prefix
func (es *encodeState) encodeBytes(b []byte) (err error) {
	if err = es.encodeLength(len(b)); err != nil {
		return
	}
	_, err = es.Write(b)
	return
}

// encodeStruct encodes exported struct fields in declaration order.
func (es *encodeState) encodeStruct(v reflect.Value) (err error) {
	for _, i := range structFields(v.Type()) {
		if err = es.marshal(v.Field(i).Interface()); err != nil {
			return fmt.Errorf("field %s: %w", v.Type().Field(i).Name, err)
		}
	}
	return
}

// encodeLength encodes the length of a collection
func (es *encodeState) encodeLength(l int) (err error) {
	if l > MaxSequenceLength {
		return fmt.Errorf("%w: %d", ErrLengthTooLarge, l)
	}
	_, err = es.Write(EncodeULEB128(uint64(l)))
	return
}

// structFields lists the serialized field indices of t. Unexported fields
// and fields tagged `bcs:"-"` are skipped.
func structFields(t reflect.Type) []int {
	indices := make([]int, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("bcs") == "-" {
			continue
		}
		indices = append(indices, i)
	}
	return indices
}
