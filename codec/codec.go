// Package codec implements the fixed-endian primitive encodings shared by
// every on-disk container in corpusdex: partials, bucket/seek files, the
// document table, the doclinks file and the merge-info header.
//
// All integers are little-endian and unsigned. Strings are a u32 LE byte
// length prefix followed by the raw UTF-8 bytes (the length counts bytes,
// not code points). Every decoder returns the number of bytes it consumed
// so callers can advance a cursor without re-deriving record sizes.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrCorruptRecord is returned whenever a decoder is handed fewer bytes
// than its fixed or declared length requires.
var ErrCorruptRecord = errors.New("codec: corrupt record")

func EncodeU8(v uint8) []byte {
	return []byte{v}
}

func DecodeU8(buf []byte) (uint8, int, error) {
	if len(buf) < 1 {
		return 0, 0, ErrCorruptRecord
	}
	return buf[0], 1, nil
}

func EncodeU32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func DecodeU32(buf []byte) (uint32, int, error) {
	if len(buf) < 4 {
		return 0, 0, ErrCorruptRecord
	}
	return binary.LittleEndian.Uint32(buf), 4, nil
}

func EncodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func DecodeU64(buf []byte) (uint64, int, error) {
	if len(buf) < 8 {
		return 0, 0, ErrCorruptRecord
	}
	return binary.LittleEndian.Uint64(buf), 8, nil
}

func EncodeF32(v float32) []byte {
	return EncodeU32(math.Float32bits(v))
}

func DecodeF32(buf []byte) (float32, int, error) {
	bits, n, err := DecodeU32(buf)
	if err != nil {
		return 0, 0, err
	}
	return math.Float32frombits(bits), n, nil
}

// EncodeStr encodes a string as a u32 LE byte-length prefix followed by the
// raw UTF-8 bytes.
func EncodeStr(s string) []byte {
	buf := make([]byte, 4+len(s))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(s)))
	copy(buf[4:], s)
	return buf
}

// DecodeStr decodes a length-prefixed string and returns the number of
// bytes consumed (4 + byte length of the string).
func DecodeStr(buf []byte) (string, int, error) {
	if len(buf) < 4 {
		return "", 0, ErrCorruptRecord
	}
	n := binary.LittleEndian.Uint32(buf[:4])
	end := 4 + int(n)
	if end < 4 || len(buf) < end {
		return "", 0, ErrCorruptRecord
	}
	return string(buf[4:end]), end, nil
}
