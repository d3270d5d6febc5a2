// Package wasmsim runs compiled simulation models as core WebAssembly
// modules on wazero.
//
// A model artifact exports its linear memory plus the simulation ABI v1
// entry points:
//
//	sim_abi_version() -> i32   must return 1
//	sim_layout()      -> i32   pointer to the signal table
//	sim_precision()   -> i32   time precision as a power of ten seconds
//	sim_init(seed i64)
//	sim_eval()        -> i32   non-zero requests termination
//	sim_sleep(cycles i64)
//	sim_time()        -> i64
//	sim_names()       -> i32   optional, newline separated signal names
//	sim_randomize(seed i64)    optional, fills undetermined state
//
// The signal table is a little-endian u32 count followed by one
// {offset, width, depth} triple of u32 per signal. Signal storage lives at
// the given offset in linear memory in the little-endian wire format of
// package signal, depth words back to back for memory arrays.
//
// Every instance gets its own linear memory, so handles created from the
// same model never share state.
package wasmsim
