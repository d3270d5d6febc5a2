package bridge

import (
	"context"

	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/handle"
	"github.com/wippyai/sim-bridge/signal"
)

// GetU64 reads a plain signal of at most 64 bits, zero-extended.
func (b *Bridge) GetU64(ctx context.Context, h handle.Handle, id signal.ID) (uint64, error) {
	return b.getScalar(ctx, h, id, 0, false)
}

// SetU64 writes a plain signal of at most 64 bits. Bits of v above the
// signal width are dropped.
func (b *Bridge) SetU64(ctx context.Context, h handle.Handle, id signal.ID, v uint64) error {
	return b.setScalar(ctx, h, id, 0, false, v)
}

// GetAU8 reads a plain signal of any width into buf and returns its byte
// width W. buf must hold at least W bytes; only buf[:W] is written.
func (b *Bridge) GetAU8(ctx context.Context, h handle.Handle, id signal.ID, buf []byte) (int, error) {
	return b.getVector(ctx, h, id, 0, false, buf)
}

// SetAU8 writes a plain signal of any width from exactly W little-endian
// bytes. Bits above the width in the last byte are ignored.
func (b *Bridge) SetAU8(ctx context.Context, h handle.Handle, id signal.ID, buf []byte) error {
	return b.setVector(ctx, h, id, 0, false, buf)
}

// GetU64Mem reads word index of a memory array of at most 64 bits width.
func (b *Bridge) GetU64Mem(ctx context.Context, h handle.Handle, id signal.ID, index uint32) (uint64, error) {
	return b.getScalar(ctx, h, id, index, true)
}

// SetU64Mem writes word index of a memory array of at most 64 bits width.
func (b *Bridge) SetU64Mem(ctx context.Context, h handle.Handle, id signal.ID, v uint64, index uint32) error {
	return b.setScalar(ctx, h, id, index, true, v)
}

// GetAU8Mem reads word index of a memory array into buf.
func (b *Bridge) GetAU8Mem(ctx context.Context, h handle.Handle, id signal.ID, buf []byte, index uint32) (int, error) {
	return b.getVector(ctx, h, id, index, true, buf)
}

// SetAU8Mem writes word index of a memory array from exactly W bytes.
func (b *Bridge) SetAU8Mem(ctx context.Context, h handle.Handle, id signal.ID, buf []byte, index uint32) error {
	return b.setVector(ctx, h, id, index, true, buf)
}

func (b *Bridge) getScalar(ctx context.Context, h handle.Handle, id signal.ID, index uint32, mem bool) (uint64, error) {
	s, err := b.acquire(h, simerrors.PhaseAccess)
	if err != nil {
		return 0, err
	}
	defer b.release(s)

	info, err := s.resolve(id, index, mem, true)
	if err != nil {
		return 0, annotate(err, h)
	}
	buf := s.scratch(info.Bytes())
	if err := s.inst.Read(ctx, id, index, buf); err != nil {
		return 0, annotate(err, h)
	}
	v, err := signal.DecodeScalar(buf, info.Width)
	if err != nil {
		return 0, annotate(simerrors.Wrap(simerrors.PhaseAccess, simerrors.KindInvalidData, err, "decode"), h)
	}
	return v, nil
}

func (b *Bridge) setScalar(ctx context.Context, h handle.Handle, id signal.ID, index uint32, mem bool, v uint64) error {
	s, err := b.acquire(h, simerrors.PhaseAccess)
	if err != nil {
		return err
	}
	defer b.release(s)

	info, err := s.resolve(id, index, mem, true)
	if err != nil {
		return annotate(err, h)
	}
	buf := s.scratch(info.Bytes())
	if err := signal.EncodeScalar(buf, v, info.Width); err != nil {
		return annotate(simerrors.Wrap(simerrors.PhaseAccess, simerrors.KindInvalidData, err, "encode"), h)
	}
	return annotate(s.inst.Write(ctx, id, index, buf), h)
}

func (b *Bridge) getVector(ctx context.Context, h handle.Handle, id signal.ID, index uint32, mem bool, buf []byte) (int, error) {
	s, err := b.acquire(h, simerrors.PhaseAccess)
	if err != nil {
		return 0, err
	}
	defer b.release(s)

	info, err := s.resolve(id, index, mem, false)
	if err != nil {
		return 0, annotate(err, h)
	}
	if err := signal.CheckVectorRead(len(buf), info.Width); err != nil {
		return 0, simerrors.New(simerrors.PhaseAccess, simerrors.KindLengthMismatch).
			Handle(h).
			Signal(uint32(id)).
			Value(len(buf)).
			Detail("%v", err).
			Build()
	}
	w := info.Bytes()
	if err := s.inst.Read(ctx, id, index, buf[:w]); err != nil {
		return 0, annotate(err, h)
	}
	return w, nil
}

func (b *Bridge) setVector(ctx context.Context, h handle.Handle, id signal.ID, index uint32, mem bool, buf []byte) error {
	s, err := b.acquire(h, simerrors.PhaseAccess)
	if err != nil {
		return err
	}
	defer b.release(s)

	info, err := s.resolve(id, index, mem, false)
	if err != nil {
		return annotate(err, h)
	}
	if err := signal.CheckVectorWrite(len(buf), info.Width); err != nil {
		return simerrors.New(simerrors.PhaseAccess, simerrors.KindLengthMismatch).
			Handle(h).
			Signal(uint32(id)).
			Value(len(buf)).
			Detail("%v", err).
			Build()
	}
	word := s.scratch(len(buf))
	copy(word, buf)
	signal.Normalize(word, info.Width)
	return annotate(s.inst.Write(ctx, id, index, word), h)
}

// resolve validates id against the layout of the session and checks that
// the accessor family matches the signal kind.
func (s *session) resolve(id signal.ID, index uint32, mem, scalar bool) (signal.Info, error) {
	info, ok := s.layout.Lookup(id)
	if !ok {
		return info, simerrors.UnknownSignal(simerrors.PhaseAccess, uint32(id), len(s.layout))
	}
	switch {
	case mem && !info.IsMemory():
		return info, simerrors.New(simerrors.PhaseAccess, simerrors.KindInvalidInput).
			Signal(uint32(id)).
			Detail("signal is not a memory array").
			Build()
	case !mem && info.IsMemory():
		return info, simerrors.New(simerrors.PhaseAccess, simerrors.KindInvalidInput).
			Signal(uint32(id)).
			Detail("signal is a memory array of depth %d; use the indexed accessors", info.Depth).
			Build()
	case mem && index >= info.Depth:
		return info, simerrors.OutOfBounds(simerrors.PhaseAccess, uint32(id), index, info.Depth)
	case scalar && info.IsVector():
		return info, simerrors.WidthMismatch(simerrors.PhaseAccess, uint32(id), info.Width)
	}
	return info, nil
}
