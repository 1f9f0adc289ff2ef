package engine

import (
	"math"

	"github.com/luma/tiller/wire"
)

// gated reports whether codec operations are suppressed. Once the fault
// register is set every further protocol call becomes a failing no-op,
// except inside the fault override, which needs the codec to report.
func (e *Engine) gated() bool {
	return e.fault != FaultNone && !e.inFaultHandler
}

// take consumes the next n raw payload bytes (binary mode).
func (e *Engine) take(n int) ([]byte, bool) {
	if e.readPos+n > e.tokEnd {
		e.setFault(FaultRecvUnderflow)
		return nil, false
	}
	p := e.recvBuf[e.readPos : e.readPos+n]
	e.readPos += n
	return p, true
}

// arg consumes the next text token.
func (e *Engine) arg() ([]byte, bool) {
	tok, ok := e.nextToken()
	if !ok {
		e.setFault(FaultRecvUnderflow)
		return nil, false
	}
	return tok, true
}

func leUint(p []byte) uint64 {
	var v uint64
	for i := len(p) - 1; i >= 0; i-- {
		v = v<<8 | uint64(p[i])
	}
	return v
}

func signExtend(v uint64, bits int) int64 {
	if bits >= 64 {
		return int64(v)
	}
	shift := uint(64 - bits)
	return int64(v<<shift) >> shift
}

// UintArg reads one unsigned integer argument of the given width in
// bits (8, 16, 32 or 64). In text mode hex forces base 16 for tokens
// without a 0x prefix. Failure latches underflow (out of input) or
// bad-argument (malformed token).
func (e *Engine) UintArg(bits int, hex bool) (uint64, bool) {
	if e.gated() {
		return 0, false
	}

	if e.mode == ModeBinary {
		p, ok := e.take(bits / 8)
		if !ok {
			return 0, false
		}
		return leUint(p), true
	}

	tok, ok := e.arg()
	if !ok {
		return 0, false
	}
	v, err := wire.ParseUint(tok, bits, hex)
	if err != nil {
		e.setFault(FaultBadArg)
		return 0, false
	}
	return v, true
}

// IntArg is UintArg for signed widths.
func (e *Engine) IntArg(bits int, hex bool) (int64, bool) {
	if e.gated() {
		return 0, false
	}

	if e.mode == ModeBinary {
		p, ok := e.take(bits / 8)
		if !ok {
			return 0, false
		}
		return signExtend(leUint(p), bits), true
	}

	tok, ok := e.arg()
	if !ok {
		return 0, false
	}
	v, err := wire.ParseInt(tok, bits, hex)
	if err != nil {
		e.setFault(FaultBadArg)
		return 0, false
	}
	return v, true
}

func (e *Engine) Uint8() (uint8, bool) {
	v, ok := e.UintArg(8, false)
	return uint8(v), ok
}

func (e *Engine) Uint16() (uint16, bool) {
	v, ok := e.UintArg(16, false)
	return uint16(v), ok
}

func (e *Engine) Uint32() (uint32, bool) {
	v, ok := e.UintArg(32, false)
	return uint32(v), ok
}

func (e *Engine) Uint64() (uint64, bool) {
	return e.UintArg(64, false)
}

func (e *Engine) Int8() (int8, bool) {
	v, ok := e.IntArg(8, false)
	return int8(v), ok
}

func (e *Engine) Int16() (int16, bool) {
	v, ok := e.IntArg(16, false)
	return int16(v), ok
}

func (e *Engine) Int32() (int32, bool) {
	v, ok := e.IntArg(32, false)
	return int32(v), ok
}

func (e *Engine) Int64() (int64, bool) {
	return e.IntArg(64, false)
}

// Char reads one character argument: a single byte in binary mode, a
// one-byte token (quotes and escapes already resolved) in text mode.
func (e *Engine) Char() (byte, bool) {
	if e.gated() {
		return 0, false
	}

	if e.mode == ModeBinary {
		p, ok := e.take(1)
		if !ok {
			return 0, false
		}
		return p[0], true
	}

	tok, ok := e.arg()
	if !ok {
		return 0, false
	}
	if len(tok) != 1 {
		e.setFault(FaultBadArg)
		return 0, false
	}
	return tok[0], true
}

// Str reads one string argument. The result is a borrowed view into
// the receive buffer: valid only until the command cycle resets, never
// to be retained by a handler.
func (e *Engine) Str() ([]byte, bool) {
	if e.gated() {
		return nil, false
	}

	if e.mode == ModeText {
		return e.arg()
	}

	for i := e.readPos; i < e.tokEnd; i++ {
		if e.recvBuf[i] == 0 {
			s := e.recvBuf[e.readPos:i]
			e.readPos = i + 1
			return s, true
		}
	}

	e.setFault(FaultRecvUnderflow)
	return nil, false
}

// Bool reads one boolean argument: a zero/nonzero byte in binary mode,
// any accepted spelling in text mode.
func (e *Engine) Bool() (bool, bool) {
	if e.gated() {
		return false, false
	}

	if e.mode == ModeBinary {
		p, ok := e.take(1)
		if !ok {
			return false, false
		}
		return p[0] != 0, true
	}

	tok, ok := e.arg()
	if !ok {
		return false, false
	}
	v, err := wire.ParseBool(tok)
	if err != nil {
		e.setFault(FaultBadArg)
		return false, false
	}
	return v, true
}

func (e *Engine) Float32() (float32, bool) {
	if e.gated() {
		return 0, false
	}

	if e.mode == ModeBinary {
		p, ok := e.take(4)
		if !ok {
			return 0, false
		}
		return math.Float32frombits(uint32(leUint(p))), true
	}

	tok, ok := e.arg()
	if !ok {
		return 0, false
	}
	v, err := wire.ParseFloat(tok, 32)
	if err != nil {
		e.setFault(FaultBadArg)
		return 0, false
	}
	return float32(v), true
}

func (e *Engine) Float64() (float64, bool) {
	if e.gated() {
		return 0, false
	}

	if e.mode == ModeBinary {
		p, ok := e.take(8)
		if !ok {
			return 0, false
		}
		return math.Float64frombits(leUint(p)), true
	}

	tok, ok := e.arg()
	if !ok {
		return 0, false
	}
	v, err := wire.ParseFloat(tok, 64)
	if err != nil {
		e.setFault(FaultBadArg)
		return 0, false
	}
	return v, true
}
