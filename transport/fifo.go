package transport

import (
	"sync"

	"github.com/luma/tiller/engine"
)

// Fifo is a fixed-capacity byte ring safe for one producer and one
// consumer on different goroutines.
type Fifo struct {
	mu    sync.Mutex
	buf   []byte
	head  int
	tail  int
	count int
}

func NewFifo(size int) *Fifo {
	if size < 1 {
		size = 1
	}
	return &Fifo{buf: make([]byte, size)}
}

// Len reports how many bytes are queued.
func (f *Fifo) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Free reports how many more bytes fit.
func (f *Fifo) Free() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buf) - f.count
}

// Push queues one byte; false means the ring is full.
func (f *Fifo) Push(b byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.count == len(f.buf) {
		return false
	}

	f.buf[f.tail] = b
	f.tail = (f.tail + 1) % len(f.buf)
	f.count++
	return true
}

// Pop dequeues one byte; false means the ring is empty.
func (f *Fifo) Pop() (byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.count == 0 {
		return 0, false
	}

	b := f.buf[f.head]
	f.head = (f.head + 1) % len(f.buf)
	f.count--
	return b, true
}

// Write queues as much of p as fits and reports how many bytes were
// taken. The remainder is the caller's to drop or retry.
func (f *Fifo) Write(p []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, b := range p {
		if f.count == len(f.buf) {
			break
		}
		f.buf[f.tail] = b
		f.tail = (f.tail + 1) % len(f.buf)
		f.count++
		n++
	}
	return n
}

// Read dequeues up to len(p) bytes into p.
func (f *Fifo) Read(p []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for n < len(p) && f.count > 0 {
		p[n] = f.buf[f.head]
		f.head = (f.head + 1) % len(f.buf)
		f.count--
		n++
	}
	return n
}

// Pipe is a pair of rings presented to an engine as its Stream: the
// transport feeds In from the wire and drains Out back to it.
type Pipe struct {
	In  *Fifo
	Out *Fifo
}

func NewPipe(size int) *Pipe {
	return &Pipe{
		In:  NewFifo(size),
		Out: NewFifo(size),
	}
}

func (p *Pipe) Available() int         { return p.In.Len() }
func (p *Pipe) ReadByte() (byte, bool) { return p.In.Pop() }
func (p *Pipe) AvailableForWrite() int { return p.Out.Free() }
func (p *Pipe) WriteByte(b byte) bool  { return p.Out.Push(b) }

var _ engine.Stream = (*Pipe)(nil)
