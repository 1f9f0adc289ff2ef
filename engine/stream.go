package engine

// Stream is the byte-oriented transport the engine is driven over. It is
// deliberately tiny: a non-blocking source/sink that reports how much it
// can accept. The transport package adapts TCP connections and serial
// ports to it; MemStream covers tests and in-process embedding.
type Stream interface {
	// Available reports how many bytes can be read without blocking.
	Available() int

	// ReadByte pops one byte; ok is false when nothing is buffered.
	ReadByte() (b byte, ok bool)

	// AvailableForWrite reports how many bytes the sink can accept
	// without blocking.
	AvailableForWrite() int

	// WriteByte pushes one byte; false means the sink is full right now.
	WriteByte(b byte) bool
}

// MemStream is an in-memory Stream. Feed queues input for the engine,
// Output collects what the engine wrote.
type MemStream struct {
	in         []byte
	out        []byte
	writeSpace int // remaining writable bytes; < 0 means unlimited
}

func NewMemStream() *MemStream {
	return &MemStream{writeSpace: -1}
}

// Feed queues p as pending input.
func (m *MemStream) Feed(p []byte) {
	m.in = append(m.in, p...)
}

// Output returns everything written so far.
func (m *MemStream) Output() []byte { return m.out }

// TakeOutput returns the written bytes and clears the output.
func (m *MemStream) TakeOutput() []byte {
	out := m.out
	m.out = nil
	return out
}

// SetWriteSpace caps how many more bytes WriteByte will accept. A
// negative n removes the cap.
func (m *MemStream) SetWriteSpace(n int) { m.writeSpace = n }

func (m *MemStream) Available() int { return len(m.in) }

func (m *MemStream) ReadByte() (byte, bool) {
	if len(m.in) == 0 {
		return 0, false
	}
	b := m.in[0]
	m.in = m.in[1:]
	return b, true
}

func (m *MemStream) AvailableForWrite() int {
	if m.writeSpace < 0 {
		return 1 << 15
	}
	return m.writeSpace
}

func (m *MemStream) WriteByte(b byte) bool {
	if m.writeSpace == 0 {
		return false
	}
	if m.writeSpace > 0 {
		m.writeSpace--
	}
	m.out = append(m.out, b)
	return true
}

var _ Stream = (*MemStream)(nil)
