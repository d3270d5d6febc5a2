package signal

import (
	"fmt"
)

// ID identifies one net, port or memory array of a compiled model.
// IDs are indexes into the model's Layout.
type ID uint32

// MaxScalarBits is the widest signal reachable through scalar access.
const MaxScalarBits = 64

// Info describes one signal of a compiled model.
type Info struct {
	// Name is informational only; the bridge addresses signals by ID.
	Name string
	// Width is the signal width in bits.
	Width uint32
	// Depth is the number of words of a memory array, 0 for plain signals.
	Depth uint32
	ID    ID
}

// Bytes returns the byte width of one word of the signal.
func (i Info) Bytes() int { return ByteWidth(i.Width) }

// IsVector reports whether the signal is too wide for scalar access.
func (i Info) IsVector() bool { return i.Width > MaxScalarBits }

// IsMemory reports whether the signal is a memory array.
func (i Info) IsMemory() bool { return i.Depth > 0 }

// Label returns Name, or a synthetic name when the model provides none.
func (i Info) Label() string {
	if i.Name != "" {
		return i.Name
	}
	return fmt.Sprintf("s%d", i.ID)
}

// Layout is the ordered signal table of a model; Layout[i].ID == i.
type Layout []Info

// Lookup returns the descriptor of id.
func (l Layout) Lookup(id ID) (Info, bool) {
	if uint64(id) >= uint64(len(l)) {
		return Info{}, false
	}
	return l[id], true
}

// Validate checks that IDs are dense and widths non-zero.
func (l Layout) Validate() error {
	for i, s := range l {
		if s.ID != ID(i) {
			return fmt.Errorf("signal %d: id %d out of order", i, s.ID)
		}
		if s.Width == 0 {
			return fmt.Errorf("signal %d (%s): zero width", i, s.Label())
		}
	}
	return nil
}

// ByteWidth returns ceil(bits/8).
func ByteWidth(bits uint32) int {
	return int((uint64(bits) + 7) / 8)
}

// Mask returns a mask of the low bits bits.
func Mask(bits uint32) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<bits - 1
}

// Truncate drops every bit of v at or above bits.
func Truncate(v uint64, bits uint32) uint64 {
	return v & Mask(bits)
}
