package wire

// Package wire implements the value-level codec shared by both faces of
// the tiller command protocol. It is pure: no state, no IO, no engine
// types. The engine package layers buffers and sequencing on top of it.
//
// A tiller endpoint speaks one of two encodings over a single byte
// stream.
//
// === Binary packets
//
// A packet is a length-prefixed, checksummed run of bytes:
//
//   [LEN][BODY...][CKSUM]
//
// - LEN counts every byte of the packet, including itself and CKSUM,
//   so 2 <= LEN <= 255.
// - For packets addressed to an engine, the first body byte is the
//   command code. Replies start their payload directly after LEN.
// - CKSUM is the two's complement of the sum of all preceding bytes:
//   a valid packet's bytes sum to 0 mod 256.
// - Multi-byte values inside the body are little-endian. Strings carry
//   a terminating NUL.
//
// === Text lines
//
// A command is a line terminated by CR or LF. Tokens are separated by
// whitespace; `#` starts a comment that runs to the end of the line.
//
// - Characters may be single-quoted, strings double-quoted; inside
//   quotes a backslash escape denotes one byte. The table covers the
//   two quote characters, the backslash itself, the C control escapes
//   a b f n r t v, and two non-standard letters: e for ESC and d for
//   DEL.
// - On output a value is quoted only when leaving it bare would be
//   ambiguous (it contains whitespace or a quote character, or it is
//   empty).
//
// === Numbers
//
// Integer tokens are decimal, or hex with a 0x/0X prefix. The decimal
// codec for 64-bit widths works in base 10000: digits are grouped
// least-significant-first into four-digit chunks that each fit a
// 16-bit intermediate, range-checked chunk-by-chunk against the
// decomposed limit for the target width, and only then assembled.
// Small CPUs without a native 64-bit divide can run the same algorithm
// unchanged; formatting mirrors it by extracting four-digit remainder
// groups. Floats accept decimal or exponent form and format as fixed
// point or scientific with optional precision.
