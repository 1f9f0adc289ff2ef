package engine

import "github.com/luma/tiller/wire"

var (
	crlf      = []byte("\r\n")
	eraseSeq  = []byte("\b \b")
	errPrefix = []byte("ERROR: ")
)

// feed pushes one stream byte through the framing state machine and
// reports whether a complete command now sits in the buffer.
func (e *Engine) feed(b byte) bool {
	if e.mode == ModeBinary {
		return e.feedBinary(b)
	}
	return e.feedText(b)
}

// feedBinary: byte 0 fixes the total packet length; the command is
// complete when that many bytes have arrived.
func (e *Engine) feedBinary(b byte) bool {
	if e.st == stateIdle {
		if int(b) < wire.MinPacket {
			e.setFault(FaultBadPacket)
			return false
		}
		if int(b) > len(e.recvBuf) {
			e.setFault(FaultRecvOverflow)
			return false
		}
		e.begin()
		e.recvBuf[0] = b
		e.recvLen = 1
		e.pktLen = int(b)
		return false
	}

	e.recvBuf[e.recvLen] = b
	e.recvLen++
	return e.recvLen == e.pktLen
}

// feedText accumulates a line, honouring backspace editing and the one
// recognized escape sequence (up-arrow recall of the previous line).
func (e *Engine) feedText(b byte) bool {
	if b == '\r' || b == '\n' {
		e.escSeq = 0
		if e.echo {
			e.writeText(crlf)
		}
		return true
	}

	if e.st == stateIdle {
		e.begin()
	}

	switch e.escSeq {
	case 1:
		// The byte after ESC belongs to the sequence either way.
		if b == '[' {
			e.escSeq = 2
		} else {
			e.escSeq = 0
		}
		return false
	case 2:
		e.escSeq = 0
		if b == 'A' {
			e.recall()
		}
		// unrecognized sequences are swallowed
		return false
	}

	if b == 0x1B {
		e.escSeq = 1
		return false
	}

	if b == 0x08 || b == 0x7F {
		if e.recvLen > 0 {
			e.recvLen--
			if e.echo {
				e.writeText(eraseSeq)
			}
		}
		return false
	}

	// Line plus terminator must fit strictly inside the buffer; a line
	// that would fill it exactly is already an overflow.
	if e.recvLen >= len(e.recvBuf)-2 {
		e.setFault(FaultRecvOverflow)
		return false
	}

	if e.recvLen >= len(e.recvBuf)/2 {
		// The line has grown into the recall stash.
		e.lastLen = 0
	}

	e.recvBuf[e.recvLen] = b
	e.recvLen++

	if e.echo {
		e.writeByteBlocking(b)
	}

	return false
}

// begin marks the first byte of a new command and arms the deadline.
func (e *Engine) begin() {
	e.st = stateReceiving
	if e.recvTimeout > 0 {
		e.deadline = e.now().Add(e.recvTimeout)
	}
}

// recall restores the stashed previous line into an empty line buffer.
func (e *Engine) recall() {
	if e.lastLen == 0 || e.recvLen != 0 {
		return
	}

	half := len(e.recvBuf) / 2
	copy(e.recvBuf, e.recvBuf[half:half+e.lastLen])
	e.recvLen = e.lastLen

	if e.echo {
		e.writeText(e.recvBuf[:e.recvLen])
	}
}

// stashRecall copies the completed line into the upper half of the
// buffer, before the tokenizer rewrites it in place.
func (e *Engine) stashRecall() {
	half := len(e.recvBuf) / 2

	switch {
	case e.recvLen == 0:
		// The LF of a CRLF terminator arrives as an empty line; the
		// stash keeps the real previous line.
	case e.recvLen <= half:
		copy(e.recvBuf[half:], e.recvBuf[:e.recvLen])
		e.lastLen = e.recvLen
	default:
		e.lastLen = 0
	}
}

// dispatch resolves the completed command and invokes its handler.
func (e *Engine) dispatch() {
	if e.mode == ModeBinary {
		if e.recvLen < 3 {
			// A packet without a command code frames nothing.
			e.setFault(FaultBadPacket)
			e.finish()
			return
		}
		if err := wire.ValidatePacket(e.recvBuf[:e.recvLen]); err != nil {
			e.setFault(FaultBadPacket)
			e.finish()
			return
		}

		e.cmdCode = e.recvBuf[1]
		e.readPos = 2
		e.tokEnd = e.recvLen - 1 // payload ends before the checksum

		e.invoke(e.resolveBinary())
		return
	}

	e.stashRecall()

	if !e.tokenize() {
		e.finish()
		return
	}
	if e.argc == 0 {
		// An empty line is not an error; just reprint the prompt.
		e.writePrompt()
		e.resetCycle()
		return
	}

	name, _ := e.nextToken()
	e.cmdName = name

	e.invoke(e.resolveText(name))
}

func (e *Engine) resolveBinary() Handler {
	if e.universal != nil {
		return e.universal
	}
	if rec := e.LookupCode(e.cmdCode); rec != nil {
		return rec.Handler
	}
	return e.fallback
}

func (e *Engine) resolveText(name []byte) Handler {
	if e.universal != nil {
		return e.universal
	}
	if rec := e.lookupName(name); rec != nil {
		return rec.Handler
	}
	return e.fallback
}

func (e *Engine) invoke(h Handler) {
	if h == nil {
		e.setFault(FaultUnknownCommand)
		e.finish()
		return
	}

	e.st = stateHandling
	e.inFlight = h

	if !h.ServeCommand(e) {
		e.setFault(FaultHandler)
		if e.st == stateHandling {
			e.finish()
		}
	}
}
