package engine

import (
	"math"
	"runtime"

	"github.com/luma/tiller/wire"
)

// writeByteBlocking pushes one byte to the stream, yielding until the
// transport accepts it. Text-mode output is unbuffered by design.
func (e *Engine) writeByteBlocking(b byte) {
	for !e.stream.WriteByte(b) {
		runtime.Gosched()
	}
}

func (e *Engine) writeText(p []byte) {
	for _, b := range p {
		e.writeByteBlocking(b)
	}
}

// preValue emits the pending separator before a text-mode value. The
// first value on a line gets none; Break clears it.
func (e *Engine) preValue() {
	if e.sep {
		e.writeByteBlocking(' ')
	}
	e.sep = true
}

// scratch exposes the send buffer as transient formatting space. In
// text mode the buffer carries no packet, so formatted values borrow it
// between writes.
func (e *Engine) scratch() []byte {
	return e.sendBuf[:0]
}

// SendUintN emits one unsigned integer reply value: little-endian raw
// bytes in binary mode, formatted decimal or hex text otherwise.
func (e *Engine) SendUintN(v uint64, bits int, f wire.Format) bool {
	if e.gated() {
		return false
	}

	if e.mode == ModeBinary {
		return e.appendLE(v, bits/8)
	}

	e.preValue()
	e.writeText(wire.AppendUint(e.scratch(), v, f))
	return true
}

// SendIntN is SendUintN for signed values (two's complement on the
// binary face).
func (e *Engine) SendIntN(v int64, bits int, f wire.Format) bool {
	if e.gated() {
		return false
	}

	if e.mode == ModeBinary {
		return e.appendLE(uint64(v), bits/8)
	}

	e.preValue()
	e.writeText(wire.AppendInt(e.scratch(), v, f))
	return true
}

func (e *Engine) SendUint8(v uint8) bool   { return e.SendUintN(uint64(v), 8, wire.Format{}) }
func (e *Engine) SendUint16(v uint16) bool { return e.SendUintN(uint64(v), 16, wire.Format{}) }
func (e *Engine) SendUint32(v uint32) bool { return e.SendUintN(uint64(v), 32, wire.Format{}) }
func (e *Engine) SendUint64(v uint64) bool { return e.SendUintN(v, 64, wire.Format{}) }

func (e *Engine) SendInt8(v int8) bool   { return e.SendIntN(int64(v), 8, wire.Format{}) }
func (e *Engine) SendInt16(v int16) bool { return e.SendIntN(int64(v), 16, wire.Format{}) }
func (e *Engine) SendInt32(v int32) bool { return e.SendIntN(int64(v), 32, wire.Format{}) }
func (e *Engine) SendInt64(v int64) bool { return e.SendIntN(v, 64, wire.Format{}) }

// SendFloatN emits one float reply value; bits picks the IEEE width.
func (e *Engine) SendFloatN(v float64, bits int, f wire.FloatFormat) bool {
	if e.gated() {
		return false
	}

	if e.mode == ModeBinary {
		if bits == 32 {
			return e.appendLE(uint64(math.Float32bits(float32(v))), 4)
		}
		return e.appendLE(math.Float64bits(v), 8)
	}

	e.preValue()
	e.writeText(wire.AppendFloat(e.scratch(), v, bits, f))
	return true
}

func (e *Engine) SendFloat32(v float32) bool {
	return e.SendFloatN(float64(v), 32, wire.FloatFormat{})
}

func (e *Engine) SendFloat64(v float64) bool {
	return e.SendFloatN(v, 64, wire.FloatFormat{})
}

// SendBool emits one boolean reply value in the engine's configured
// spelling (text) or as a single 0/1 byte (binary).
func (e *Engine) SendBool(v bool) bool {
	if e.gated() {
		return false
	}

	if e.mode == ModeBinary {
		b := byte(0)
		if v {
			b = 1
		}
		return e.appendSend([]byte{b})
	}

	e.preValue()
	e.writeText(wire.AppendBool(e.scratch(), v, e.boolStyle, e.boolUpper))
	return true
}

// SendChar emits one character value, quoting it on the text face when
// it would not survive re-tokenization.
func (e *Engine) SendChar(c byte) bool {
	if e.gated() {
		return false
	}

	if e.mode == ModeBinary {
		return e.appendSend([]byte{c})
	}

	e.preValue()
	one := [1]byte{c}
	if wire.NeedsQuoting(one[:]) {
		e.writeText(wire.AppendQuoted(e.scratch(), one[:], '\''))
	} else {
		e.writeByteBlocking(c)
	}
	return true
}

// SendCharRaw emits one byte with no separator, quoting or escaping.
// In binary mode it is a raw payload byte.
func (e *Engine) SendCharRaw(c byte) bool {
	if e.gated() {
		return false
	}

	if e.mode == ModeBinary {
		return e.appendSend([]byte{c})
	}

	e.writeByteBlocking(c)
	return true
}

// SendStr emits one string value: NUL-terminated in the packet payload,
// quoted on the text face when needed.
func (e *Engine) SendStr(s []byte) bool {
	if e.gated() {
		return false
	}

	if e.mode == ModeBinary {
		if !e.appendSend(s) {
			return false
		}
		return e.appendSend([]byte{0})
	}

	e.preValue()
	if wire.NeedsQuoting(s) {
		e.writeText(wire.AppendQuoted(e.scratch(), s, '"'))
	} else {
		e.writeText(s)
	}
	return true
}

// SendString is SendStr for string-typed values. The convenience copy
// is fine off the hot path.
func (e *Engine) SendString(s string) bool {
	return e.SendStr([]byte(s))
}

// SendStrRaw emits bytes verbatim: raw payload in binary mode, raw
// console output (no separator, no quoting) in text mode.
func (e *Engine) SendStrRaw(s []byte) bool {
	if e.gated() {
		return false
	}

	if e.mode == ModeBinary {
		return e.appendSend(s)
	}

	e.writeText(s)
	return true
}

// Break ends the current reply unit: a line break on the text face, a
// packet boundary on the binary face (the packet under construction is
// sealed and drained within the send budget).
func (e *Engine) Break() bool {
	if e.gated() {
		return false
	}

	if e.mode == ModeText {
		e.sep = false
		e.writeText(crlf)
		return true
	}

	e.sealPacket()
	e.drainSend(e.sendWait)
	return true
}
