package engine

import (
	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/signal"
)

// CheckAccess validates a raw word access of n bytes against layout and
// returns the signal descriptor. Plain signals only accept index 0.
func CheckAccess(layout signal.Layout, id signal.ID, index uint32, n int) (signal.Info, error) {
	info, ok := layout.Lookup(id)
	if !ok {
		return signal.Info{}, simerrors.UnknownSignal(simerrors.PhaseAccess, uint32(id), len(layout))
	}
	if info.IsMemory() {
		if index >= info.Depth {
			return info, simerrors.OutOfBounds(simerrors.PhaseAccess, uint32(id), index, info.Depth)
		}
	} else if index != 0 {
		return info, simerrors.OutOfBounds(simerrors.PhaseAccess, uint32(id), index, 1)
	}
	if n != info.Bytes() {
		return info, simerrors.LengthMismatch(simerrors.PhaseAccess, uint32(id), n, info.Bytes())
	}
	return info, nil
}
