// Package signal describes model signals and owns the byte-level encoding
// of their values.
//
// A signal is addressed by an ID that indexes the model's Layout. Values up
// to 64 bits wide travel as uint64 scalars; wider values travel as vectors
// of ceil(width/8) bytes. Both are carried little-endian on the engine
// side:
//
//	width 12, value 0xABC      -> bc 0a
//	width 72, value 1<<64 | 1  -> 01 00 00 00 00 00 00 00 01
//
// The codec functions here are pure, so width and length contracts can be
// tested without a running engine.
package signal
