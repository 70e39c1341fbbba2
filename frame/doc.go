// Package frame implements the wire framings of the bench instruments.
//
// Three families are supported:
//
//   - Chamber: length-prefixed packets with an additive complement checksum.
//   - Gauge: preamble packets with an XOR checksum.
//   - ASCII: space separated command lines with a hex status reply.
//
// All functions are stateless and safe for concurrent use. Validation
// failures wrap instr.ErrFrame; device status codes surface as
// *instr.StatusError.
package frame
