package transport

import (
	"time"

	"go.uber.org/zap"

	"github.com/luma/tiller/engine"
)

// EngineFactory builds one engine per accepted connection, bound to the
// stream the transport pumps for it.
type EngineFactory func(s engine.Stream) (*engine.Engine, error)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on
	Port int

	// Trace will dump bytes to the debug log. This is only useful in
	// local debugging
	Trace bool

	NumListeners int

	// FifoSize is the per-direction ring capacity for each connection.
	FifoSize int

	// Tick is the engine service interval for each connection pump.
	Tick time.Duration

	NewEngine EngineFactory

	Log *zap.Logger
}

const (
	defaultFifoSize = 512
	defaultTick     = time.Millisecond
)

func (o *Options) withDefaults() Options {
	out := *o
	if out.FifoSize == 0 {
		out.FifoSize = defaultFifoSize
	}
	if out.Tick == 0 {
		out.Tick = defaultTick
	}
	return out
}
