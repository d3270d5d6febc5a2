// Package wave writes waveform traces in Value Change Dump format.
//
// A Writer owns one trace file and holds an exclusive advisory lock on
// "<path>.lock" for its whole lifetime, so two simulations can never
// interleave records in the same file. Every memory-free signal of the
// model is declared once in the header; each Record call then dumps the
// full set of values under a "#<time>" marker.
//
// Tracing can be paused with Disable, which flushes buffered records, and
// resumed with Enable, which appends to the same file.
package wave
