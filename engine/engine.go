// Package engine implements the tiller command protocol engine: a
// single set of command handlers driven either by an interactive text
// console or by a compact binary packet protocol over one byte stream,
// with fixed buffers allocated once at construction.
//
// The embedding application owns the scheduling loop and calls Service
// repeatedly; everything else happens through the engine instance.
package engine

import (
	"errors"
	"time"

	"github.com/luma/tiller/wire"
)

var ErrNilStream = errors.New("engine: stream must not be nil")

type state uint8

const (
	stateIdle state = iota
	stateReceiving
	stateHandling
)

// Engine owns one port: the receive and send buffers, the command
// registry, the sticky fault register and the framing state machine.
// It is not safe for concurrent use; the driver tick and all handlers
// run on one logical thread of control.
type Engine struct {
	stream Stream

	mode  Mode
	st    state
	fault Fault

	prompt []byte
	echo   bool

	recvTimeout time.Duration
	sendWait    time.Duration
	now         func() time.Time
	deadline    time.Time

	// Receive side. recvBuf accumulates via recvLen, then is
	// reinterpreted in place: readPos walks tokens (text) or the packet
	// payload (binary) up to tokEnd. The upper half stashes the previous
	// text line for single-level recall.
	recvBuf []byte
	recvLen int
	pktLen  int
	readPos int
	tokEnd  int
	argc    int
	lastLen int
	escSeq  uint8

	cmdName []byte
	cmdCode byte

	// Send side. Building (sendLen advancing) and draining (drainPos
	// advancing) are mutually exclusive phases of sendBuf.
	sendBuf  []byte
	sendLen  int
	building bool
	drainPos int
	drainLen int
	sep      bool

	boolStyle wire.BoolStyle
	boolUpper bool

	commands     []Command
	universal    Handler
	fallback     Handler
	faultHandler Handler

	inFlight       Handler
	inFaultHandler bool
}

// New builds an engine over the given stream. Buffer capacities and the
// registry size are fixed here and never grow.
func New(s Stream, cfg Config) (*Engine, error) {
	if s == nil {
		return nil, ErrNilStream
	}

	full := cfg.withDefaults()
	if err := full.validate(); err != nil {
		return nil, err
	}

	return &Engine{
		stream:      s,
		mode:        full.Mode,
		prompt:      []byte(full.Prompt),
		echo:        full.Echo,
		recvTimeout: full.RecvTimeout,
		sendWait:    full.SendWait,
		now:         full.Now,
		recvBuf:     make([]byte, full.RecvSize),
		sendBuf:     make([]byte, full.SendSize),
		commands:    make([]Command, 0, full.MaxCommands),
		drainPos:    -1,
	}, nil
}

// Service runs one driver tick: drain leftover packet bytes, give an
// in-flight handler its turn, enforce the receive deadline, then pump
// available input. At most one command is decoded and dispatched per
// tick; while a command is in flight no input is consumed at all.
func (e *Engine) Service() {
	if e.drainPos >= 0 {
		e.drainSend(0)
		if e.drainPos >= 0 {
			return
		}
	}

	if e.st == stateHandling {
		h := e.inFlight
		if h == nil {
			e.finish()
			return
		}
		if !h.ServeCommand(e) {
			e.setFault(FaultHandler)
			if e.st == stateHandling {
				e.finish()
			}
		}
		return
	}

	if e.st == stateReceiving && e.recvTimeout > 0 && e.now().After(e.deadline) {
		e.setFault(FaultRecvTimeout)
		e.finish()
		return
	}

	// A fault left over from an earlier cycle blocks the pump: bytes
	// stay in the transport until the register is cleared.
	for e.fault == FaultNone && e.stream.Available() > 0 {
		b, ok := e.stream.ReadByte()
		if !ok {
			break
		}

		complete := e.feed(b)
		if e.fault != FaultNone {
			e.finish()
			return
		}
		if complete {
			e.dispatch()
			return
		}
	}
}

// Done completes the command in flight: the fault override gets its
// say, binary replies are sealed and drained, text renders any
// unrecovered fault and reprints the prompt, and the buffers reset.
// Reports whether the cycle ended clean.
func (e *Engine) Done() bool {
	if e.st != stateHandling {
		return false
	}
	e.finish()
	return e.fault == FaultNone
}

func (e *Engine) finish() {
	if e.fault != FaultNone && e.faultHandler != nil {
		e.inFaultHandler = true
		cleared := e.faultHandler.ServeCommand(e)
		e.inFaultHandler = false
		if cleared {
			e.fault = FaultNone
		}
	}

	if e.mode == ModeBinary {
		e.sealPacket()
		e.drainSend(e.sendWait)
	} else {
		if e.fault != FaultNone {
			e.writeText(errPrefix)
			e.writeText([]byte(e.fault.String()))
		}
		e.writeText(crlf)
		e.writePrompt()
	}

	e.resetCycle()
}

// resetCycle clears per-command state. Drain progress survives: sealed
// packet bytes keep flowing on later ticks.
func (e *Engine) resetCycle() {
	e.st = stateIdle
	e.inFlight = nil
	e.recvLen = 0
	e.pktLen = 0
	e.readPos = 0
	e.tokEnd = 0
	e.argc = 0
	e.cmdName = nil
	e.cmdCode = 0
	e.sep = false
	e.building = false
	e.sendLen = 0
	e.deadline = time.Time{}
	e.escSeq = 0
}

func (e *Engine) setFault(f Fault) {
	if e.fault == FaultNone {
		e.fault = f
	}
}

// Fault returns the sticky fault register.
func (e *Engine) Fault() Fault { return e.fault }

// ClearFault resets the register to none.
func (e *Engine) ClearFault() { e.fault = FaultNone }

// Mode reports the current protocol face.
func (e *Engine) Mode() Mode { return e.mode }

// SetMode switches faces, discarding any transient buffer contents.
func (e *Engine) SetMode(m Mode) {
	if m != ModeText && m != ModeBinary {
		e.setFault(FaultUnsupported)
		return
	}
	e.mode = m
	e.lastLen = 0
	e.drainPos = -1
	e.drainLen = 0
	e.resetCycle()
}

// Receiving reports whether a partial command sits in the buffer.
func (e *Engine) Receiving() bool { return e.st == stateReceiving }

// Handling reports whether a command is in flight.
func (e *Engine) Handling() bool { return e.st == stateHandling }

// RecvUsed / RecvFree report receive buffer occupancy in bytes.
func (e *Engine) RecvUsed() int { return e.recvLen }
func (e *Engine) RecvFree() int { return len(e.recvBuf) - e.recvLen }

// SendUsed / SendFree report send buffer occupancy in bytes.
func (e *Engine) SendUsed() int { return e.sendLen }
func (e *Engine) SendFree() int { return len(e.sendBuf) - e.sendLen }

// CommandName is the name token of the command in flight (text mode).
// It is a borrowed view into the receive buffer, valid until reset.
func (e *Engine) CommandName() []byte { return e.cmdName }

// CommandCode is the code of the command in flight (binary mode).
func (e *Engine) CommandCode() byte { return e.cmdCode }

// ArgCount is the number of tokens on the command line, the command
// name included.
func (e *Engine) ArgCount() int { return e.argc }

// LastLine returns the previous completed console line (the recall
// stash), or nil. Borrowed view, valid until the next completed line.
func (e *Engine) LastLine() []byte {
	if e.lastLen == 0 {
		return nil
	}
	half := len(e.recvBuf) / 2
	return e.recvBuf[half : half+e.lastLen]
}

// SetEcho switches input echoing (text mode).
func (e *Engine) SetEcho(on bool) { e.echo = on }

// Echo reports whether input echoing is on.
func (e *Engine) Echo() bool { return e.echo }

// SetPrompt replaces the prompt string; empty disables it.
func (e *Engine) SetPrompt(p string) { e.prompt = []byte(p) }

// SetRecvTimeout adjusts the partial-command deadline; 0 disables.
func (e *Engine) SetRecvTimeout(d time.Duration) {
	if d >= 0 {
		e.recvTimeout = d
	}
}

// SetSendWait adjusts the packet drain budget (0 or WaitForever
// allowed).
func (e *Engine) SetSendWait(d time.Duration) {
	if d >= 0 || d == WaitForever {
		e.sendWait = d
	}
}

// SetBoolStyle picks the output spelling for booleans in text mode.
func (e *Engine) SetBoolStyle(style wire.BoolStyle, upper bool) {
	e.boolStyle = style
	e.boolUpper = upper
}

// Greet prints the prompt at the start of a text session.
func (e *Engine) Greet() {
	if e.mode == ModeText {
		e.writePrompt()
	}
}

func (e *Engine) writePrompt() {
	if e.mode == ModeText && len(e.prompt) > 0 {
		e.writeText(e.prompt)
	}
}
