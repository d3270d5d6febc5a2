package wasmsim

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/sim-bridge/engine"
	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/signal"
)

// Extension is the artifact suffix used by Store.
const Extension = ".wasm"

var (
	_ engine.Compiler = (*Driver)(nil)
	_ engine.Model    = (*Model)(nil)
	_ engine.Instance = (*Instance)(nil)

	_ engine.Randomizer = (*Instance)(nil)
)

// Config holds configuration for driver creation
type Config struct {
	// MemoryLimitPages caps the linear memory of every instance in pages
	// (64KB each). 0 means the wazero default.
	MemoryLimitPages uint32
}

// Driver compiles simulation artifacts with a single wazero runtime.
// It is safe for concurrent use.
type Driver struct {
	runtime wazero.Runtime
}

// NewDriver creates a driver. cfg may be nil.
func NewDriver(ctx context.Context, cfg *Config) *Driver {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Driver{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}
}

// Store returns an artifact store reading "<dir>/<name>.wasm".
func (d *Driver) Store(dir string) *engine.DirStore {
	return engine.NewDirStore(dir, Extension, d)
}

// Close releases the runtime and every model compiled by it.
func (d *Driver) Close(ctx context.Context) error {
	return d.runtime.Close(ctx)
}

// Compile validates an artifact against the simulation ABI and reads its
// static layout through a throwaway instance.
func (d *Driver) Compile(ctx context.Context, name string, artifact []byte) (engine.Model, error) {
	compiled, err := d.runtime.CompileModule(ctx, artifact)
	if err != nil {
		return nil, simerrors.Load("compile "+name, err)
	}

	if err := checkExports(compiled); err != nil {
		compiled.Close(ctx)
		return nil, simerrors.Load("check exports of "+name, err)
	}

	m := &Model{
		driver:   d,
		compiled: compiled,
		name:     name,
	}

	meta, err := d.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		compiled.Close(ctx)
		return nil, simerrors.Load("instantiate "+name, err)
	}
	defer meta.Close(ctx)

	if err := m.describe(ctx, meta); err != nil {
		compiled.Close(ctx)
		return nil, err
	}

	engine.Logger().Debug("compiled wasm model",
		zap.String("model", name),
		zap.Int("signals", len(m.layout)),
		zap.Int("precision", m.precision))

	return m, nil
}

// Model is a compiled simulation artifact.
type Model struct {
	driver    *Driver
	compiled  wazero.CompiledModule
	name      string
	layout    signal.Layout
	offsets   []uint32
	precision int
}

func (m *Model) Name() string          { return m.name }
func (m *Model) Layout() signal.Layout { return m.layout }
func (m *Model) Precision() int        { return m.precision }

// Close releases the compiled code.
func (m *Model) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instantiate creates an instance with its own linear memory and seeds it.
func (m *Model) Instantiate(ctx context.Context, seed uint64) (engine.Instance, error) {
	mod, err := m.driver.runtime.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, simerrors.New(simerrors.PhaseLifecycle, simerrors.KindAllocation).
			Detail("instantiate %s", m.name).
			Cause(err).
			Build()
	}

	inst := &Instance{
		mod:     mod,
		mem:     mod.Memory(),
		eval:    mod.ExportedFunction(ExportEval),
		sleep:   mod.ExportedFunction(ExportSleep),
		time:    mod.ExportedFunction(ExportTime),
		rand:    mod.ExportedFunction(ExportRandomize),
		layout:  m.layout,
		offsets: m.offsets,
	}

	if _, err := mod.ExportedFunction(ExportInit).Call(ctx, seed); err != nil {
		mod.Close(ctx)
		return nil, simerrors.Native(simerrors.PhaseLifecycle, ExportInit, err)
	}
	return inst, nil
}

func (m *Model) describe(ctx context.Context, mod api.Module) error {
	res, err := mod.ExportedFunction(ExportVersion).Call(ctx)
	if err != nil {
		return simerrors.Native(simerrors.PhaseLoad, ExportVersion, err)
	}
	if v := int32(res[0]); v != ABIVersion {
		return simerrors.New(simerrors.PhaseLoad, simerrors.KindUnsupported).
			Detail("model %s speaks simulation ABI %d, driver supports %d", m.name, v, ABIVersion).
			Value(v).
			Build()
	}

	res, err = mod.ExportedFunction(ExportPrecision).Call(ctx)
	if err != nil {
		return simerrors.Native(simerrors.PhaseLoad, ExportPrecision, err)
	}
	m.precision = int(int32(res[0]))

	m.layout, m.offsets, err = readLayout(ctx, mod)
	if err != nil {
		return err
	}
	return nil
}

func readLayout(ctx context.Context, mod api.Module) (signal.Layout, []uint32, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, nil, simerrors.InvalidData(simerrors.PhaseLoad, "model has no memory")
	}

	res, err := mod.ExportedFunction(ExportLayout).Call(ctx)
	if err != nil {
		return nil, nil, simerrors.Native(simerrors.PhaseLoad, ExportLayout, err)
	}
	ptr := uint32(res[0])

	count, ok := mem.ReadUint32Le(ptr)
	if !ok {
		return nil, nil, simerrors.InvalidData(simerrors.PhaseLoad, fmt.Sprintf("layout pointer %#x outside memory", ptr))
	}
	if count > maxSignals {
		return nil, nil, simerrors.InvalidData(simerrors.PhaseLoad, fmt.Sprintf("layout declares %d signals", count))
	}

	memSize := uint64(mem.Size())
	layout := make(signal.Layout, count)
	offsets := make([]uint32, count)

	for i := uint32(0); i < count; i++ {
		at := uint64(ptr) + 4 + uint64(i)*layoutEntrySize
		if at+layoutEntrySize > memSize {
			return nil, nil, simerrors.InvalidData(simerrors.PhaseLoad, "layout table truncated")
		}
		raw, _ := mem.Read(uint32(at), layoutEntrySize)

		info := signal.Info{
			ID:    signal.ID(i),
			Width: binary.LittleEndian.Uint32(raw[4:]),
			Depth: binary.LittleEndian.Uint32(raw[8:]),
		}
		off := binary.LittleEndian.Uint32(raw[0:])

		words := uint64(info.Depth)
		if words == 0 {
			words = 1
		}
		if info.Width == 0 {
			return nil, nil, simerrors.InvalidData(simerrors.PhaseLoad, fmt.Sprintf("signal %d has zero width", i))
		}
		if end := uint64(off) + words*uint64(info.Bytes()); end > memSize {
			return nil, nil, simerrors.InvalidData(simerrors.PhaseLoad,
				fmt.Sprintf("signal %d storage [%#x, %#x) outside memory of %d bytes", i, off, end, memSize))
		}

		layout[i] = info
		offsets[i] = off
	}

	if fn := mod.ExportedFunction(ExportNames); fn != nil {
		if err := readNames(ctx, fn, mem, layout); err != nil {
			return nil, nil, err
		}
	}
	return layout, offsets, nil
}

func readNames(ctx context.Context, fn api.Function, mem api.Memory, layout signal.Layout) error {
	res, err := fn.Call(ctx)
	if err != nil {
		return simerrors.Native(simerrors.PhaseLoad, ExportNames, err)
	}
	ptr := uint32(res[0])
	n, ok := mem.ReadUint32Le(ptr)
	if !ok {
		return simerrors.InvalidData(simerrors.PhaseLoad, "names pointer outside memory")
	}
	data, ok := mem.Read(ptr+4, n)
	if !ok {
		return simerrors.InvalidData(simerrors.PhaseLoad, "names table truncated")
	}
	for i, name := range strings.Split(string(data), "\n") {
		if i >= len(layout) {
			break
		}
		layout[i].Name = name
	}
	return nil
}
