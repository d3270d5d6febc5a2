package simbridge

import (
	"context"
	"errors"
	"os"

	"github.com/wippyai/sim-bridge/bridge"
	"github.com/wippyai/sim-bridge/config"
	"github.com/wippyai/sim-bridge/engine"
	"github.com/wippyai/sim-bridge/engine/gosim"
	"github.com/wippyai/sim-bridge/engine/wasmsim"
	simerrors "github.com/wippyai/sim-bridge/errors"
)

// Simulator is a bridge wired to the default loader chain: registered Go
// designs first, then "<ModelDir>/<name>.wasm" artifacts.
type Simulator struct {
	*bridge.Bridge
	driver *wasmsim.Driver
}

// Open creates a Simulator from cfg. A nil cfg uses config.Default().
func Open(ctx context.Context, cfg *config.Config) (*Simulator, error) {
	if cfg == nil {
		c := config.Default()
		cfg = &c
	}

	if cfg.ModelDir != "" {
		if fi, err := os.Stat(cfg.ModelDir); err == nil && !fi.IsDir() {
			return nil, simerrors.InvalidInput(simerrors.PhaseConfig, "model dir "+cfg.ModelDir+" is not a directory")
		}
	}

	driver := wasmsim.NewDriver(ctx, &wasmsim.Config{
		MemoryLimitPages: cfg.MemoryLimitPages,
	})
	loader := engine.Chain(gosim.Default(), driver.Store(cfg.ModelDir))

	return &Simulator{
		Bridge: bridge.New(loader, &bridge.Config{WaveDir: cfg.WaveDir}),
		driver: driver,
	}, nil
}

// Close releases every handle, every model and the wasm runtime.
func (s *Simulator) Close(ctx context.Context) error {
	return errors.Join(s.Bridge.Close(ctx), s.driver.Close(ctx))
}
