// Package simbridge drives compiled hardware simulations from Go.
//
// The bridge does not evaluate logic itself. It creates simulation
// instances from compiled models, advances simulated time, reads and
// writes signals and memories by integer id, and records waveforms:
//
//	sim, err := simbridge.Open(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer sim.Close(ctx)
//
//	h, err := sim.NewHandle(ctx, "counter", "counter.vcd", 42)
//	sim.SetU64(ctx, h, gosim.CounterEnable, 1)
//	sim.SetU64(ctx, h, gosim.CounterClk, 1)
//	sim.Eval(ctx, h)
//	count, err := sim.GetU64(ctx, h, gosim.CounterCount)
//
// # Package Layout
//
//	simbridge/          Open wires the default loader chain
//	├── bridge/         Handle lifecycle, stepping, signal access, waveforms
//	├── handle/         Generation-checked opaque handles
//	├── signal/         Signal descriptors and the little-endian codec
//	├── engine/         Loader, Model and Instance contracts, artifact store
//	│   ├── wasmsim/    WebAssembly models on wazero
//	│   └── gosim/      Behavioral models written in Go
//	├── wave/           VCD waveform writer
//	├── config/         YAML, flag and environment configuration
//	├── errors/         Structured error types
//	└── cmd/simctl/     Scriptable and interactive console
//
// # Models
//
// Models are found by name. Go designs registered with gosim.Register
// take precedence; otherwise "<model_dir>/<name>.wasm" is compiled once
// and cached for the life of the bridge. See package wasmsim for the
// WebAssembly simulation ABI.
//
// # Determinism
//
// An instance's initial randomized state depends only on its seed, so the
// same model driven through the same calls with the same seed produces
// the same signal values and the same waveform.
package simbridge
