package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/luma/tiller/wire"
)

// Mode selects the face of the protocol an engine speaks.
type Mode uint8

const (
	// ModeText is the line-oriented, human-facing console.
	ModeText Mode = iota

	// ModeBinary is the length-prefixed, checksummed packet protocol.
	ModeBinary
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeBinary:
		return "binary"
	}
	return "invalid"
}

// WaitForever makes the send-side drain block until the transport
// accepts every byte.
const WaitForever = time.Duration(-1)

var ErrConfig = errors.New("engine: invalid configuration")

// Config fixes an engine's capacities at construction. The zero value
// is usable: text mode, default sizes, no prompt, no timeouts.
type Config struct {
	Mode Mode

	// RecvSize and SendSize are the buffer capacities in bytes. The send
	// buffer doubles as the binary packet and so cannot exceed 255.
	RecvSize int
	SendSize int

	// MaxCommands caps the registry (1..256, one per command code).
	MaxCommands int

	Prompt string
	Echo   bool

	// RecvTimeout bounds how long a partial command may sit in the
	// receive buffer. Zero disables the deadline.
	RecvTimeout time.Duration

	// SendWait is the budget for pushing a finished packet to the
	// transport: 0 never waits, WaitForever waits until drained.
	SendWait time.Duration

	// Now is the clock; nil means time.Now. Injectable for tests and
	// simulated schedulers.
	Now func() time.Time
}

const (
	defaultRecvSize    = 128
	defaultSendSize    = 128
	defaultMaxCommands = 32

	minBufferSize = 8
)

func (c *Config) withDefaults() Config {
	out := *c
	if out.RecvSize == 0 {
		out.RecvSize = defaultRecvSize
	}
	if out.SendSize == 0 {
		out.SendSize = defaultSendSize
	}
	if out.MaxCommands == 0 {
		out.MaxCommands = defaultMaxCommands
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return out
}

func (c *Config) validate() error {
	if c.Mode != ModeText && c.Mode != ModeBinary {
		return fmt.Errorf("%w: unknown mode %d", ErrConfig, c.Mode)
	}
	if c.RecvSize < minBufferSize {
		return fmt.Errorf("%w: receive buffer of %d bytes is too small", ErrConfig, c.RecvSize)
	}
	if c.SendSize < minBufferSize || c.SendSize > wire.MaxPacket {
		return fmt.Errorf("%w: send buffer must be %d..%d bytes, got %d",
			ErrConfig, minBufferSize, wire.MaxPacket, c.SendSize)
	}
	if c.MaxCommands < 1 || c.MaxCommands > 256 {
		return fmt.Errorf("%w: max commands must be 1..256, got %d", ErrConfig, c.MaxCommands)
	}
	if c.SendWait < 0 && c.SendWait != WaitForever {
		return fmt.Errorf("%w: negative send wait", ErrConfig)
	}
	if c.RecvTimeout < 0 {
		return fmt.Errorf("%w: negative receive timeout", ErrConfig)
	}
	return nil
}
