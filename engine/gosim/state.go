package gosim

import (
	"math"

	"github.com/wippyai/sim-bridge/signal"
)

// Component settles a design at the current time. It returns true when
// the design requests termination.
type Component func(st *State) bool

// State is the signal storage of one instance. Every signal word is kept
// in its little-endian wire form. A word is undetermined until it is
// first written, by the design or by the host.
type State struct {
	layout  signal.Layout
	words   [][]byte
	defined [][]bool
	seed    uint64
	time    uint64
}

func newState(layout signal.Layout, seed uint64) *State {
	st := &State{
		layout:  layout,
		words:   make([][]byte, len(layout)),
		defined: make([][]bool, len(layout)),
		seed:    seed,
	}
	for i, info := range layout {
		n := uint64(info.Depth)
		if n == 0 {
			n = 1
		}
		st.words[i] = make([]byte, n*uint64(info.Bytes()))
		st.defined[i] = make([]bool, n)
	}
	return st
}

// randomize fills every undetermined word from seed and marks it
// determined. Words are visited in id then index order.
func (st *State) randomize(seed uint64) int {
	rng := splitmix64(seed)
	filled := 0
	for id, info := range st.layout {
		for index, ok := range st.defined[id] {
			if ok {
				continue
			}
			word := st.Word(signal.ID(id), uint32(index))
			for at := 0; at < len(word); at += 8 {
				v := rng.next()
				for j := at; j < len(word) && j < at+8; j++ {
					word[j] = byte(v)
					v >>= 8
				}
			}
			signal.Normalize(word, info.Width)
			st.defined[id][index] = true
			filled++
		}
	}
	return filled
}

// Defined reports whether word index of id has been written.
func (st *State) Defined(id signal.ID, index uint32) bool {
	return st.defined[id][index]
}

// Seed returns the seed the instance was created with.
func (st *State) Seed() uint64 { return st.seed }

// Time returns the current simulated time.
func (st *State) Time() uint64 { return st.time }

func (st *State) advance(cycles uint64) bool {
	if cycles > math.MaxUint64-st.time {
		return false
	}
	st.time += cycles
	return true
}

// Word returns the storage of word index of id. It panics on a bad id or
// index; designs only address their own signals.
func (st *State) Word(id signal.ID, index uint32) []byte {
	w := st.layout[id].Bytes()
	at := int(index) * w
	return st.words[id][at : at+w]
}

// Get returns the low 64 bits of id.
func (st *State) Get(id signal.ID) uint64 {
	return st.GetMem(id, 0)
}

// Set stores v truncated to the width of id. Bytes of wider signals above
// the low 64 bits are cleared.
func (st *State) Set(id signal.ID, v uint64) {
	st.SetMem(id, 0, v)
}

// GetMem returns the low 64 bits of word index of id.
func (st *State) GetMem(id signal.ID, index uint32) uint64 {
	var v uint64
	word := st.Word(id, index)
	for i := min(len(word), 8) - 1; i >= 0; i-- {
		v = v<<8 | uint64(word[i])
	}
	return v
}

// SetMem stores v into word index of id.
func (st *State) SetMem(id signal.ID, index uint32, v uint64) {
	word := st.Word(id, index)
	for i := range word {
		word[i] = byte(v)
		v >>= 8
	}
	signal.Normalize(word, st.layout[id].Width)
	st.defined[id][index] = true
}

// Edge tracks transitions of a one-bit signal between evaluations.
type Edge struct {
	id   signal.ID
	last bool
}

// Edge starts tracking id from its current value.
func (st *State) Edge(id signal.ID) *Edge {
	return &Edge{id: id, last: st.Get(id)&1 == 1}
}

// Rising reports a 0 to 1 transition since the previous call.
func (e *Edge) Rising(st *State) bool {
	cur := st.Get(e.id)&1 == 1
	rising := cur && !e.last
	e.last = cur
	return rising
}

// splitmix64 derives deterministic pseudo-random words from a seed.
type splitmix64 uint64

func (s *splitmix64) next() uint64 {
	*s += 0x9E3779B97F4A7C15
	z := uint64(*s)
	z = (z ^ z>>30) * 0xBF58476D1CE4E5B9
	z = (z ^ z>>27) * 0x94D049BB133111EB
	return z ^ z>>31
}
