// Package engine defines the boundary between the bridge and the engines
// that actually evaluate a design.
//
// # Architecture
//
// The package provides three contracts:
//
//	Loader   - Resolves a model name to a compiled Model
//	Model    - A compiled design; holds the signal layout and time precision
//	Instance - One running simulation created from a Model
//
// Two drivers implement them:
//
//	engine/wasmsim - Models are WebAssembly artifacts executed by wazero
//	engine/gosim   - Models are Go behavioral designs registered by name
//
// # Artifact Store
//
// DirStore maps a model name to "<dir>/<name><ext>" and hands the bytes to
// a Compiler. Chain composes loaders so a bridge can look in several
// places:
//
//	loader := engine.Chain(
//	    gosim.Default(),
//	    engine.NewDirStore("build/models", ".wasm", wasmsim.NewDriver(ctx, nil)),
//	)
//
// # Value Encoding
//
// Instance.Read and Instance.Write exchange little-endian byte strings of
// exactly the signal's byte width. Scalar packing lives in the signal
// package, so engines only ever see bytes.
//
// # Thread Safety
//
// Loaders and Models are safe for concurrent use. An Instance is NOT
// thread-safe and must be driven by one goroutine at a time.
package engine
