package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"

	"github.com/holiman/uint256"
)

// Unmarshaler is the interface for custom BCS decoding for a given type.
// Implementations read exactly their own encoding from r.
type Unmarshaler interface {
	UnmarshalBCS(r Reader) error
}

// Reader is the byte source handed to Unmarshaler implementations.
type Reader interface {
	io.Reader
	io.ByteReader
}

var (
	unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
	uint256Type     = reflect.TypeOf(uint256.Int{})
)

// Unmarshal takes data and a destination pointer to unmarshal the data to.
// It fails if data holds bytes past the end of the value.
func Unmarshal(data []byte, dst interface{}) (err error) {
	dstv := reflect.ValueOf(dst)
	if dstv.Kind() != reflect.Ptr || dstv.IsNil() {
		return fmt.Errorf("%w: %T", ErrUnsupportedDestination, dst)
	}
	r := bytes.NewReader(data)
	ds := decodeState{Reader: r}
	if err = ds.unmarshal(dstv.Elem()); err != nil {
		return
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, r.Len())
	}
	return nil
}

// Decoder is used to decode from an io.Reader
type Decoder struct {
	decodeState
}

// NewDecoder is constructor for Decoder
func NewDecoder(r io.Reader) *Decoder {
	br, ok := r.(Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{decodeState{Reader: br}}
}

// Decode accepts a pointer to a destination and decodes into the supplied destination
func (d *Decoder) Decode(dst interface{}) (err error) {
	dstv := reflect.ValueOf(dst)
	if dstv.Kind() != reflect.Ptr || dstv.IsNil() {
		return fmt.Errorf("%w: %T", ErrUnsupportedDestination, dst)
	}
	return d.unmarshal(dstv.Elem())
}

type decodeState struct {
	Reader
	depth int
}

func (ds *decodeState) unmarshal(dstv reflect.Value) (err error) {
	if dstv.CanAddr() && dstv.Addr().Type().Implements(unmarshalerType) {
		return dstv.Addr().Interface().(Unmarshaler).UnmarshalBCS(ds.Reader)
	}
	if dstv.Type() == uint256Type {
		return ds.decodeUint256(dstv)
	}
	if dstv.Kind() == reflect.Ptr && dstv.Type().Elem() == uint256Type {
		n := new(uint256.Int)
		if err = ds.decodeUint256(reflect.ValueOf(n).Elem()); err != nil {
			return
		}
		dstv.Set(reflect.ValueOf(n))
		return
	}

	switch dstv.Kind() {
	case reflect.Bool:
		var b byte
		if b, err = ds.ReadByte(); err != nil {
			return
		}
		switch b {
		case 0:
			dstv.SetBool(false)
		case 1:
			dstv.SetBool(true)
		default:
			return fmt.Errorf("%w: %#x", ErrInvalidBool, b)
		}
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var v uint64
		if v, err = ds.readFixed(int(dstv.Type().Size())); err != nil {
			return
		}
		dstv.SetUint(v)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		size := int(dstv.Type().Size())
		var v uint64
		if v, err = ds.readFixed(size); err != nil {
			return
		}
		shift := uint(64 - 8*size)
		dstv.SetInt(int64(v<<shift) >> shift)
	case reflect.String:
		var b []byte
		if b, err = ds.readBytes(); err != nil {
			return
		}
		dstv.SetString(string(b))
	case reflect.Ptr:
		err = ds.nested(func() error { return ds.decodeOption(dstv) })
	case reflect.Struct:
		err = ds.nested(func() error { return ds.decodeStruct(dstv) })
	case reflect.Array:
		err = ds.nested(func() error { return ds.decodeArray(dstv) })
	case reflect.Slice:
		err = ds.nested(func() error { return ds.decodeSlice(dstv) })
	case reflect.Map:
		err = ds.nested(func() error { return ds.decodeMap(dstv) })
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, dstv.Type())
	}
	return
}

func (ds *decodeState) nested(fn func() error) error {
	ds.depth++
	defer func() { ds.depth-- }()
	if ds.depth > MaxContainerDepth {
		return ErrDepthExceeded
	}
	return fn()
}

func (ds *decodeState) readFixed(size int) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(ds.Reader, buf[:size]); err != nil {
		return 0, fmt.Errorf("reading %d bytes: %w", size, err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (ds *decodeState) decodeLength() (int, error) {
	l, err := ReadULEB128(ds.Reader)
	if err != nil {
		return 0, fmt.Errorf("decoding length: %w", err)
	}
	if l > MaxSequenceLength {
		return 0, fmt.Errorf("%w: %d", ErrLengthTooLarge, l)
	}
	return int(l), nil
}

func (ds *decodeState) readBytes() ([]byte, error) {
	length, err := ds.decodeLength()
	if err != nil {
		return nil, err
	}
	b := make([]byte, length)
	if _, err = io.ReadFull(ds.Reader, b); err != nil {
		return nil, fmt.Errorf("reading %d bytes: %w", length, err)
	}
	return b, nil
}

func (ds *decodeState) decodeUint256(dstv reflect.Value) error {
	var le [32]byte
	if _, err := io.ReadFull(ds.Reader, le[:]); err != nil {
		return fmt.Errorf("reading u256: %w", err)
	}
	for l, r := 0, len(le)-1; l < r; l, r = l+1, r-1 {
		le[l], le[r] = le[r], le[l]
	}
	n := new(uint256.Int).SetBytes32(le[:])
	dstv.Set(reflect.ValueOf(*n))
	return nil
}

func (ds *decodeState) decodeOption(dstv reflect.Value) (err error) {
	var tag byte
	if tag, err = ds.ReadByte(); err != nil {
		return
	}
	switch tag {
	case 0:
		dstv.Set(reflect.Zero(dstv.Type()))
	case 1:
		elem := reflect.New(dstv.Type().Elem())
		if err = ds.unmarshal(elem.Elem()); err != nil {
			return
		}
		dstv.Set(elem)
	default:
		err = fmt.Errorf("%w: %#x", ErrInvalidOption, tag)
	}
	return
}

func (ds *decodeState) decodeSlice(dstv reflect.Value) (err error) {
	if dstv.Type().Elem().Kind() == reflect.Uint8 {
		var b []byte
		if b, err = ds.readBytes(); err != nil {
			return
		}
		dstv.SetBytes(b)
		return
	}
	length, err := ds.decodeLength()
	if err != nil {
		return
	}
	out := reflect.MakeSlice(dstv.Type(), 0, 0)
	for i := 0; i < length; i++ {
		elem := reflect.New(dstv.Type().Elem()).Elem()
		if err = ds.unmarshal(elem); err != nil {
			return fmt.Errorf("element %d of %d: %w", i, length, err)
		}
		out = reflect.Append(out, elem)
	}
	dstv.Set(out)
	return
}

func (ds *decodeState) decodeArray(dstv reflect.Value) (err error) {
	for i := 0; i < dstv.Len(); i++ {
		if err = ds.unmarshal(dstv.Index(i)); err != nil {
			return
		}
	}
	return
}

func (ds *decodeState) decodeMap(dstv reflect.Value) (err error) {
	numberOfTuples, err := ds.decodeLength()
	if err != nil {
		return
	}
	m := reflect.MakeMapWithSize(dstv.Type(), numberOfTuples)
	for i := 0; i < numberOfTuples; i++ {
		key := reflect.New(dstv.Type().Key()).Elem()
		if err = ds.unmarshal(key); err != nil {
			return fmt.Errorf("decoding key %d of %d: %w", i+1, numberOfTuples, err)
		}
		value := reflect.New(dstv.Type().Elem()).Elem()
		if err = ds.unmarshal(value); err != nil {
			return fmt.Errorf("decoding value %d of %d: %w", i+1, numberOfTuples, err)
		}
		m.SetMapIndex(key, value)
	}
	dstv.Set(m)
	return
}

func (ds *decodeState) decodeStruct(dstv reflect.Value) (err error) {
	for _, i := range structFields(dstv.Type()) {
		if err = ds.unmarshal(dstv.Field(i)); err != nil {
			return fmt.Errorf("field %s: %w", dstv.Type().Field(i).Name, err)
		}
	}
	return
}
