// Package wasmtest assembles small simulation ABI v1 artifacts for tests.
//
// The artifacts are encoded directly in the WebAssembly binary format so
// tests need no external toolchain.
package wasmtest

import (
	"encoding/binary"
)

// Entry is one row of the layout table.
type Entry struct {
	Offset uint32
	Width  uint32
	Depth  uint32
}

// Spec parameterizes Build.
type Spec struct {
	Layout []Entry
	// Omit drops the named function export.
	Omit string
	// Version is returned by sim_abi_version; must be in [0, 63].
	Version byte
}

// Signal addresses of the accumulator design.
const (
	InAddr   = 256
	AccAddr  = 264
	WideAddr = 272
	MemAddr  = 288
	SeedAddr = 304
)

// Accumulator signal ids.
const (
	SigIn   = 0 // 8 bits, input
	SigAcc  = 1 // 16 bits, acc += in on every eval; sim_randomize stores seed
	SigWide = 2 // 96 bits, storage only
	SigMem  = 3 // 4 words of 32 bits
	SigSeed = 4 // 64 bits, set by sim_init
)

// FinishValue written to SigIn makes sim_eval request termination.
const FinishValue = 0xEE

// Precision is the time precision of the accumulator (nanoseconds).
const Precision = -9

// AccumulatorSpec describes the accumulator design.
func AccumulatorSpec() Spec {
	return Spec{
		Version: 1,
		Layout: []Entry{
			{Offset: InAddr, Width: 8},
			{Offset: AccAddr, Width: 16},
			{Offset: WideAddr, Width: 96},
			{Offset: MemAddr, Width: 32, Depth: 4},
			{Offset: SeedAddr, Width: 64},
		},
	}
}

// Accumulator returns the accumulator artifact.
func Accumulator() []byte {
	return Build(AccumulatorSpec())
}

const layoutAddr = 16

// Build encodes a module implementing the accumulator logic with the
// given layout table.
func Build(s Spec) []byte {
	var out []byte
	out = append(out, 0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00)

	// type section: () -> i32, (i64) -> (), () -> i64
	out = append(out, section(1, vec(
		[]byte{0x60, 0x00, 0x01, 0x7F},
		[]byte{0x60, 0x01, 0x7E, 0x00},
		[]byte{0x60, 0x00, 0x01, 0x7E},
	))...)

	type fn struct {
		name string
		typ  byte
		code []byte
	}
	funcs := []fn{
		{"sim_abi_version", 0, []byte{0x41, s.Version}},
		{"sim_layout", 0, []byte{0x41, layoutAddr}},
		{"sim_precision", 0, []byte{0x41, 0x77}}, // -9
		{"sim_init", 1, []byte{
			0x41, 0xB0, 0x02, // i32.const 304
			0x20, 0x00, // local.get 0
			0x37, 0x03, 0x00, // i64.store
		}},
		{"sim_eval", 0, []byte{
			0x41, 0x88, 0x02, // i32.const 264
			0x41, 0x88, 0x02, // i32.const 264
			0x2F, 0x01, 0x00, // i32.load16_u
			0x41, 0x80, 0x02, // i32.const 256
			0x2D, 0x00, 0x00, // i32.load8_u
			0x6A,             // i32.add
			0x3B, 0x01, 0x00, // i32.store16
			0x41, 0x80, 0x02, // i32.const 256
			0x2D, 0x00, 0x00, // i32.load8_u
			0x41, 0xEE, 0x01, // i32.const 0xEE
			0x46, // i32.eq
		}},
		{"sim_sleep", 1, []byte{
			0x23, 0x00, // global.get 0
			0x20, 0x00, // local.get 0
			0x7C,       // i64.add
			0x24, 0x00, // global.set 0
		}},
		{"sim_time", 2, []byte{0x23, 0x00}},
		{"sim_randomize", 1, []byte{
			0x41, 0x88, 0x02, // i32.const 264
			0x20, 0x00, // local.get 0
			0x3D, 0x01, 0x00, // i64.store16
		}},
	}

	var typeIdx, bodies [][]byte
	exports := [][]byte{append(name("memory"), 0x02, 0x00)}
	for i, f := range funcs {
		typeIdx = append(typeIdx, []byte{f.typ})
		code := append([]byte{0x00}, f.code...) // no locals
		code = append(code, 0x0B)
		bodies = append(bodies, append(uleb(uint32(len(code))), code...))
		if f.name != s.Omit {
			exports = append(exports, append(name(f.name), 0x00, byte(i)))
		}
	}

	out = append(out, section(3, vec(typeIdx...))...)
	out = append(out, section(5, vec([]byte{0x00, 0x01}))...)                   // one page
	out = append(out, section(6, vec([]byte{0x7E, 0x01, 0x42, 0x00, 0x0B}))...) // mut i64 time = 0
	out = append(out, section(7, vec(exports...))...)
	out = append(out, section(10, vec(bodies...))...)

	table := make([]byte, 4+len(s.Layout)*12)
	binary.LittleEndian.PutUint32(table, uint32(len(s.Layout)))
	for i, e := range s.Layout {
		at := 4 + i*12
		binary.LittleEndian.PutUint32(table[at:], e.Offset)
		binary.LittleEndian.PutUint32(table[at+4:], e.Width)
		binary.LittleEndian.PutUint32(table[at+8:], e.Depth)
	}
	seg := []byte{0x00, 0x41, layoutAddr, 0x0B}
	seg = append(seg, uleb(uint32(len(table)))...)
	seg = append(seg, table...)
	out = append(out, section(11, vec(seg))...)

	return out
}

func uleb(v uint32) []byte {
	var b []byte
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b = append(b, c|0x80)
			continue
		}
		return append(b, c)
	}
}

func vec(items ...[]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func section(id byte, payload []byte) []byte {
	out := append([]byte{id}, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}
