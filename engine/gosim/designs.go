package gosim

import (
	"github.com/wippyai/sim-bridge/signal"
)

func init() {
	Register(Counter())
	Register(LFSR())
	Register(RAM())
}

// Counter signal ids.
const (
	CounterClk signal.ID = iota
	CounterReset
	CounterEnable
	CounterCount
)

// Counter returns a 4-bit synchronous up counter.
//
//	Inputs: clk, reset, enable
//	Outputs: count[4]
//	Function: on a rising clk edge, count = 0 if reset, else count+1 if enable.
func Counter() *Design {
	return &Design{
		Name:      "counter",
		Precision: -12,
		Signals: signal.Layout{
			{ID: CounterClk, Name: "clk", Width: 1},
			{ID: CounterReset, Name: "reset", Width: 1},
			{ID: CounterEnable, Name: "enable", Width: 1},
			{ID: CounterCount, Name: "count", Width: 4},
		},
		Mount: func(st *State) Component {
			clk := st.Edge(CounterClk)
			return func(st *State) bool {
				if clk.Rising(st) {
					switch {
					case st.Get(CounterReset)&1 == 1:
						st.Set(CounterCount, 0)
					case st.Get(CounterEnable)&1 == 1:
						st.Set(CounterCount, st.Get(CounterCount)+1)
					}
				}
				return false
			}
		},
	}
}

// LFSR signal ids.
const (
	LFSRClk signal.ID = iota
	LFSROut
)

// lfsrTaps is a maximal-length Galois polynomial (x^16+x^14+x^13+x^11+1).
const lfsrTaps = 0xB400

// LFSRPeriod is the number of clock edges before the sequence repeats.
const LFSRPeriod = 1<<16 - 1

// LFSR returns a 16-bit Galois LFSR seeded from the instance seed.
//
//	Inputs: clk
//	Outputs: out[16]
//	Function: out steps once per rising clk edge. Eval requests termination
//	when out returns to its seeded value.
func LFSR() *Design {
	return &Design{
		Name:      "lfsr",
		Precision: -9,
		Signals: signal.Layout{
			{ID: LFSRClk, Name: "clk", Width: 1},
			{ID: LFSROut, Name: "out", Width: 16},
		},
		Mount: func(st *State) Component {
			start := LFSRStart(st.Seed())
			st.Set(LFSROut, start)
			clk := st.Edge(LFSRClk)
			return func(st *State) bool {
				if !clk.Rising(st) {
					return false
				}
				v := st.Get(LFSROut)
				if v&1 == 1 {
					v = v>>1 ^ lfsrTaps
				} else {
					v >>= 1
				}
				st.Set(LFSROut, v)
				return v == start
			}
		},
	}
}

// LFSRStart returns the initial LFSR state for seed. The all-zero state is
// a fixed point, so it is replaced.
func LFSRStart(seed uint64) uint64 {
	if s := seed & 0xFFFF; s != 0 {
		return s
	}
	return 0xACE1
}

// RAM signal ids.
const (
	RAMClk signal.ID = iota
	RAMWe
	RAMAddr
	RAMWData
	RAMRData
	RAMMem
	RAMWideIn
	RAMWideOut
)

// RAMDepth is the number of words of the RAM array.
const RAMDepth = 16

// RAM returns a 16x32 synchronous RAM with a 128-bit inverter on the side.
//
//	Inputs: clk, we, addr[4], wdata[32], wide_in[128]
//	Outputs: rdata[32], wide_out[128]
//	Memory: mem[16][32], filled from the seed at instantiation
//	Function: on a rising clk edge mem[addr] = wdata if we, then
//	rdata = mem[addr]. wide_out = ^wide_in on every eval.
func RAM() *Design {
	return &Design{
		Name:      "ram",
		Precision: -12,
		Signals: signal.Layout{
			{ID: RAMClk, Name: "clk", Width: 1},
			{ID: RAMWe, Name: "we", Width: 1},
			{ID: RAMAddr, Name: "addr", Width: 4},
			{ID: RAMWData, Name: "wdata", Width: 32},
			{ID: RAMRData, Name: "rdata", Width: 32},
			{ID: RAMMem, Name: "mem", Width: 32, Depth: RAMDepth},
			{ID: RAMWideIn, Name: "wide_in", Width: 128},
			{ID: RAMWideOut, Name: "wide_out", Width: 128},
		},
		Mount: func(st *State) Component {
			rng := splitmix64(st.Seed())
			for i := uint32(0); i < RAMDepth; i++ {
				st.SetMem(RAMMem, i, rng.next())
			}
			out := st.Word(RAMWideOut, 0)
			for i := range out {
				out[i] = 0xFF
			}

			clk := st.Edge(RAMClk)
			return func(st *State) bool {
				if clk.Rising(st) {
					addr := uint32(st.Get(RAMAddr))
					if st.Get(RAMWe)&1 == 1 {
						st.SetMem(RAMMem, addr, st.Get(RAMWData))
					}
					st.Set(RAMRData, st.GetMem(RAMMem, addr))
				}

				in, out := st.Word(RAMWideIn, 0), st.Word(RAMWideOut, 0)
				for i := range out {
					out[i] = ^in[i]
				}
				return false
			}
		},
	}
}
