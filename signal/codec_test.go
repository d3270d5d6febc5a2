package signal

import (
	"bytes"
	"testing"
)

func TestByteWidth(t *testing.T) {
	tests := []struct {
		bits uint32
		want int
	}{
		{1, 1}, {7, 1}, {8, 1}, {9, 2}, {64, 8}, {65, 9}, {96, 12}, {128, 16}, {129, 17},
	}
	for _, tt := range tests {
		if got := ByteWidth(tt.bits); got != tt.want {
			t.Errorf("ByteWidth(%d) = %d, want %d", tt.bits, got, tt.want)
		}
	}
}

func TestMaskTruncate(t *testing.T) {
	if Mask(0) != 0 {
		t.Errorf("Mask(0) = %x", Mask(0))
	}
	if Mask(4) != 0xF {
		t.Errorf("Mask(4) = %x", Mask(4))
	}
	if Mask(64) != ^uint64(0) {
		t.Errorf("Mask(64) = %x", Mask(64))
	}
	if Truncate(0x1FF, 8) != 0xFF {
		t.Errorf("Truncate(0x1FF, 8) = %x", Truncate(0x1FF, 8))
	}
}

func TestEncodeScalar_LittleEndian(t *testing.T) {
	tests := []struct {
		name  string
		bits  uint32
		value uint64
		want  []byte
	}{
		{"12 bit", 12, 0xABC, []byte{0xBC, 0x0A}},
		{"truncated", 12, 0xFABC, []byte{0xBC, 0x0A}},
		{"one bit", 1, 3, []byte{0x01}},
		{"64 bit", 64, 0x0102030405060708, []byte{8, 7, 6, 5, 4, 3, 2, 1}},
		{"24 bit", 24, 0x123456, []byte{0x56, 0x34, 0x12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, ByteWidth(tt.bits))
			if err := EncodeScalar(dst, tt.value, tt.bits); err != nil {
				t.Fatalf("EncodeScalar: %v", err)
			}
			if !bytes.Equal(dst, tt.want) {
				t.Fatalf("EncodeScalar = % x, want % x", dst, tt.want)
			}

			got, err := DecodeScalar(dst, tt.bits)
			if err != nil {
				t.Fatalf("DecodeScalar: %v", err)
			}
			if got != Truncate(tt.value, tt.bits) {
				t.Fatalf("DecodeScalar = %#x, want %#x", got, Truncate(tt.value, tt.bits))
			}
		})
	}
}

func TestDecodeScalar_MasksDirtyHighBits(t *testing.T) {
	got, err := DecodeScalar([]byte{0xFF, 0xFF}, 12)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xFFF {
		t.Fatalf("DecodeScalar = %#x, want 0xfff", got)
	}
}

func TestScalarCodec_Rejects(t *testing.T) {
	if err := EncodeScalar(make([]byte, 9), 1, 72); err == nil {
		t.Error("EncodeScalar should reject widths above 64")
	}
	if err := EncodeScalar(make([]byte, 1), 1, 12); err == nil {
		t.Error("EncodeScalar should reject short buffers")
	}
	if _, err := DecodeScalar(make([]byte, 3), 12); err == nil {
		t.Error("DecodeScalar should reject long buffers")
	}
	if _, err := DecodeScalar(make([]byte, 9), 72); err == nil {
		t.Error("DecodeScalar should reject widths above 64")
	}
}

func TestNormalize(t *testing.T) {
	buf := []byte{0xFF, 0xFF}
	Normalize(buf, 12)
	if !bytes.Equal(buf, []byte{0xFF, 0x0F}) {
		t.Fatalf("Normalize = % x", buf)
	}

	full := []byte{0xFF, 0xFF}
	Normalize(full, 16)
	if !bytes.Equal(full, []byte{0xFF, 0xFF}) {
		t.Fatalf("Normalize must not touch byte-aligned widths, got % x", full)
	}

	Normalize(nil, 3)
}

func TestCheckVector(t *testing.T) {
	// 72 bits -> 9 bytes
	for _, n := range []int{0, 8, 10} {
		if err := CheckVectorWrite(n, 72); err == nil {
			t.Errorf("CheckVectorWrite(%d, 72) should fail", n)
		}
	}
	if err := CheckVectorWrite(9, 72); err != nil {
		t.Errorf("CheckVectorWrite(9, 72): %v", err)
	}

	if err := CheckVectorRead(8, 72); err == nil {
		t.Error("CheckVectorRead should reject short buffers")
	}
	for _, n := range []int{9, 16} {
		if err := CheckVectorRead(n, 72); err != nil {
			t.Errorf("CheckVectorRead(%d, 72): %v", n, err)
		}
	}
}

func TestWordOffset(t *testing.T) {
	info := Info{Width: 32, Depth: 4}
	off, ok := WordOffset(100, info, 3)
	if !ok || off != 112 {
		t.Fatalf("WordOffset = %d, %v", off, ok)
	}
	if _, ok := WordOffset(0xFFFFFFF0, info, 4); ok {
		t.Fatal("WordOffset should detect address overflow")
	}
}
