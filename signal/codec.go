package signal

import (
	"fmt"
)

// Values cross the engine boundary as little-endian byte strings of
// exactly ByteWidth(width) bytes, independent of host byte order. Bits
// above the width in the top byte are always zero on the wire.

// EncodeScalar writes v, truncated to bits, into dst.
func EncodeScalar(dst []byte, v uint64, bits uint32) error {
	if bits > MaxScalarBits {
		return fmt.Errorf("scalar encode: width %d exceeds %d bits", bits, MaxScalarBits)
	}
	if want := ByteWidth(bits); len(dst) != want {
		return fmt.Errorf("scalar encode: buffer length %d, want %d", len(dst), want)
	}
	v = Truncate(v, bits)
	for i := range dst {
		dst[i] = byte(v)
		v >>= 8
	}
	return nil
}

// DecodeScalar reads a zero-extended value of bits width from src.
func DecodeScalar(src []byte, bits uint32) (uint64, error) {
	if bits > MaxScalarBits {
		return 0, fmt.Errorf("scalar decode: width %d exceeds %d bits", bits, MaxScalarBits)
	}
	if want := ByteWidth(bits); len(src) != want {
		return 0, fmt.Errorf("scalar decode: buffer length %d, want %d", len(src), want)
	}
	var v uint64
	for i := len(src) - 1; i >= 0; i-- {
		v = v<<8 | uint64(src[i])
	}
	return Truncate(v, bits), nil
}

// Normalize clears the bits above width in the most significant byte of a
// wire value. buf must be exactly ByteWidth(bits) long.
func Normalize(buf []byte, bits uint32) {
	if len(buf) == 0 {
		return
	}
	if rem := bits % 8; rem != 0 {
		buf[len(buf)-1] &= byte(1)<<rem - 1
	}
}

// CheckVectorWrite validates the length of a buffer written to a signal:
// it must match the byte width exactly.
func CheckVectorWrite(n int, bits uint32) error {
	if want := ByteWidth(bits); n != want {
		return fmt.Errorf("vector write: length %d, signal byte width %d", n, want)
	}
	return nil
}

// CheckVectorRead validates the capacity of a buffer a signal is read
// into: it must hold at least the byte width.
func CheckVectorRead(n int, bits uint32) error {
	if want := ByteWidth(bits); n < want {
		return fmt.Errorf("vector read: buffer length %d, signal byte width %d", n, want)
	}
	return nil
}

// WordOffset returns the byte offset of word index inside a signal whose
// storage starts at base.
func WordOffset(base uint32, info Info, index uint32) (uint32, bool) {
	off := uint64(base) + uint64(index)*uint64(info.Bytes())
	if off+uint64(info.Bytes()) > 1<<32 {
		return 0, false
	}
	return uint32(off), true
}
