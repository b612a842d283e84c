package codec

import (
	"fmt"
	"io"
)

// AppendULEB128 appends the unsigned LEB128 encoding of v to dst.
func AppendULEB128(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// EncodeULEB128 returns the unsigned LEB128 encoding of v.
func EncodeULEB128(v uint64) []byte {
	return AppendULEB128(nil, v)
}

// ReadULEB128 reads a canonical ULEB128 value that fits in a u32.
func ReadULEB128(r io.ByteReader) (uint32, error) {
	var value uint64
	for shift := uint(0); shift < 32; shift += 7 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		digit := uint64(b & 0x7f)
		value |= digit << shift
		if value > 0xffffffff {
			return 0, ErrULEBOverflow
		}
		if b&0x80 == 0 {
			if shift > 0 && digit == 0 {
				return 0, ErrNonCanonicalULEB
			}
			return uint32(value), nil
		}
	}
	return 0, ErrULEBOverflow
}

// DecodeULEB128 decodes a ULEB128 prefix of buf, returning the value and
// the number of bytes consumed.
func DecodeULEB128(buf []byte) (uint32, int, error) {
	br := &sliceReader{buf: buf}
	v, err := ReadULEB128(br)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, 0, fmt.Errorf("uleb128: %w", err)
	}
	return v, br.pos, nil
}

type sliceReader struct {
	buf []byte
	pos int
}

func (s *sliceReader) ReadByte() (byte, error) {
	if s.pos >= len(s.buf) {
		return 0, io.EOF
	}
	b := s.buf[s.pos]
	s.pos++
	return b, nil
}
