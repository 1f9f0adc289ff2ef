package engine

import (
	"runtime"
	"time"

	"github.com/luma/tiller/wire"
)

// appendSend appends raw payload bytes to the packet under
// construction. The buffer cannot build and drain at once: leftover
// bytes from a previous packet get one drain attempt within the send
// budget, and if any remain the write latches a send overflow.
func (e *Engine) appendSend(p []byte) bool {
	if e.drainPos >= 0 {
		e.drainSend(e.sendWait)
		if e.drainPos >= 0 {
			e.setFault(FaultSendOverflow)
			return false
		}
	}

	if !e.building {
		e.building = true
		e.sendLen = 1 // slot 0 carries the length once sealed
	}

	// The trailing byte stays reserved for the checksum.
	if e.sendLen+len(p) > len(e.sendBuf)-1 {
		e.setFault(FaultSendOverflow)
		return false
	}

	copy(e.sendBuf[e.sendLen:], p)
	e.sendLen += len(p)
	return true
}

// appendLE appends v as n little-endian bytes.
func (e *Engine) appendLE(v uint64, n int) bool {
	var tmp [8]byte
	for i := 0; i < n; i++ {
		tmp[i] = byte(v >> (8 * uint(i)))
	}
	return e.appendSend(tmp[:n])
}

// sealPacket stamps the length and checksum onto the packet under
// construction and flips the buffer from building to draining. A packet
// with no payload is dropped, not sent.
func (e *Engine) sealPacket() {
	if !e.building || e.sendLen <= 1 {
		e.building = false
		e.sendLen = 0
		return
	}

	total := wire.Seal(e.sendBuf, e.sendLen)
	e.building = false
	e.sendLen = 0
	e.drainPos = 0
	e.drainLen = total
}

// drainSend pushes sealed packet bytes to the transport within the
// given budget: 0 takes only what the transport accepts immediately,
// WaitForever blocks until done. Progress is kept across calls.
func (e *Engine) drainSend(budget time.Duration) {
	if e.drainPos < 0 {
		return
	}

	var deadline time.Time
	if budget > 0 {
		deadline = e.now().Add(budget)
	}

	for e.drainPos < e.drainLen {
		if e.stream.WriteByte(e.sendBuf[e.drainPos]) {
			e.drainPos++
			continue
		}
		if budget == 0 {
			return
		}
		if budget != WaitForever && e.now().After(deadline) {
			return
		}
		runtime.Gosched()
	}

	e.drainPos = -1
	e.drainLen = 0
}

// Draining reports whether sealed packet bytes are still waiting on the
// transport.
func (e *Engine) Draining() bool { return e.drainPos >= 0 }
