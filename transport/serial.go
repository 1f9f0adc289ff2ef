package transport

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
	"go.uber.org/zap"

	"github.com/luma/tiller/engine"
)

// SerialOptions configure a single-port serial pump.
type SerialOptions struct {
	Device string
	Baud   int

	// ReadTimeout bounds each port read so the loop can notice
	// cancellation. Zero means 100ms.
	ReadTimeout time.Duration

	FifoSize int
	Tick     time.Duration

	NewEngine EngineFactory

	Log *zap.Logger
}

// Serial pumps one engine over one serial port, the same three-loop
// arrangement as a TCP connection.
type Serial struct {
	cancel     context.CancelFunc
	loopWaiter sync.WaitGroup

	opts SerialOptions
	port *serial.Port
	pipe *Pipe
	eng  *engine.Engine

	bytesIn  uint64
	bytesOut uint64
	dropped  uint64

	log *zap.Logger
}

func NewSerial(opts SerialOptions) *Serial {
	if opts.FifoSize == 0 {
		opts.FifoSize = defaultFifoSize
	}
	if opts.Tick == 0 {
		opts.Tick = defaultTick
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 100 * time.Millisecond
	}

	return &Serial{
		opts: opts,
		log:  opts.Log,
	}
}

func (s *Serial) Start(parentCtx context.Context) error {
	if s.opts.NewEngine == nil {
		return ErrNoFactory
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        s.opts.Device,
		Baud:        s.opts.Baud,
		ReadTimeout: s.opts.ReadTimeout,
	})
	if err != nil {
		return err
	}
	s.port = port

	s.pipe = NewPipe(s.opts.FifoSize)

	eng, err := s.opts.NewEngine(s.pipe)
	if err != nil {
		port.Close()
		return err
	}
	s.eng = eng

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel

	s.log.Info("Serial port open",
		zap.String("device", s.opts.Device),
		zap.Int("baud", s.opts.Baud))

	s.eng.Greet()

	s.loopWaiter.Add(3)

	go func() {
		defer s.loopWaiter.Done()
		s.readLoop(ctx)
	}()

	go func() {
		defer s.loopWaiter.Done()
		s.serviceLoop(ctx)
	}()

	go func() {
		defer s.loopWaiter.Done()
		s.writeLoop(ctx)
	}()

	return nil
}

func (s *Serial) Close() error {
	s.cancel()
	s.loopWaiter.Wait()

	return s.port.Close()
}

// Counters snapshots the port tallies.
func (s *Serial) Counters() Counters {
	return Counters{
		BytesIn:  atomic.LoadUint64(&s.bytesIn),
		BytesOut: atomic.LoadUint64(&s.bytesOut),
		Dropped:  atomic.LoadUint64(&s.dropped),
	}
}

func (s *Serial) readLoop(ctx context.Context) {
	buf := make([]byte, 256)

	for {
		select {
		case <-ctx.Done():
			return

		default:
			// The port read returns after ReadTimeout with n == 0.
			n, err := s.port.Read(buf)
			if n > 0 {
				atomic.AddUint64(&s.bytesIn, uint64(n))

				taken := s.pipe.In.Write(buf[:n])
				if taken < n {
					atomic.AddUint64(&s.dropped, uint64(n-taken))
				}
			}

			if err != nil {
				if errors.Is(err, io.EOF) {
					// A timed-out read surfaces as EOF on some platforms.
					continue
				}
				s.log.Warn("Serial read failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Serial) serviceLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.eng.Service()
		}
	}
}

func (s *Serial) writeLoop(ctx context.Context) {
	buf := make([]byte, 256)

	for {
		select {
		case <-ctx.Done():
			return

		default:
			n := s.pipe.Out.Read(buf)
			if n == 0 {
				time.Sleep(time.Millisecond)
				continue
			}

			if _, err := s.port.Write(buf[:n]); err != nil {
				s.log.Warn("Serial write failed", zap.Error(err))
				return
			}

			atomic.AddUint64(&s.bytesOut, uint64(n))
		}
	}
}
