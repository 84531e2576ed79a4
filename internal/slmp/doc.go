// Package slmp encodes and decodes the SLMP (Seamless Message Protocol)
// frames used to check reachability of Mitsubishi PLCs.
//
// Only the loopback exchange is implemented: a 3E binary request with
// command 0x0619 carrying two bytes of test data, and the 15-byte response
// that echoes them back. All multi-byte fields are little-endian.
//
// Decoding is split in two steps. ParseLoopbackResponse checks structure
// only (the frame must be exactly 15 bytes). LoopbackResponse.Validate then
// checks the end code, the echoed length, and the echoed bytes, in that
// order, so the caller learns the first thing that went wrong.
//
// The package is pure: no I/O, no state.
package slmp
