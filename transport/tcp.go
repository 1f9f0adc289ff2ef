package transport

import (
	"context"
	"errors"
	"net"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/tiller/engine"
)

var ErrNoFactory = errors.New("transport: an engine factory is required")

// Counters are the transport-level tallies exposed for status
// reporting. All fields are read with atomic loads.
type Counters struct {
	Accepted uint64
	Active   int64
	BytesIn  uint64
	BytesOut uint64
	Dropped  uint64
}

type TCP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr string

	numListeners int
	listeners    []*TCPListener

	opts Options

	accepted uint64
	active   int64
	bytesIn  uint64
	bytesOut uint64
	dropped  uint64

	log *zap.Logger
}

func NewTCP(options Options) *TCP {
	opts := options.withDefaults()

	numListeners := opts.NumListeners
	if numListeners < 1 {
		numListeners = runtime.NumCPU()
	}

	return &TCP{
		addr:         net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		numListeners: numListeners,
		listeners:    make([]*TCPListener, 0, numListeners),
		opts:         opts,
		log:          opts.Log,
	}
}

func (t *TCP) Start(parentCtx context.Context) error {
	if t.opts.NewEngine == nil {
		return ErrNoFactory
	}

	ctx, cancel := context.WithCancel(parentCtx)
	t.cancel = cancel

	t.log.Info("Starting tcp listeners", zap.Int("count", t.numListeners))

	for i := 0; i < t.numListeners; i++ {
		t.startListener(ctx, t.addr)
	}

	return nil
}

// Counters snapshots the transport tallies.
func (t *TCP) Counters() Counters {
	return Counters{
		Accepted: atomic.LoadUint64(&t.accepted),
		Active:   atomic.LoadInt64(&t.active),
		BytesIn:  atomic.LoadUint64(&t.bytesIn),
		BytesOut: atomic.LoadUint64(&t.bytesOut),
		Dropped:  atomic.LoadUint64(&t.dropped),
	}
}

func (t *TCP) startListener(ctx context.Context, addr string) {
	t.stopWaiter.Add(1)
	listener := NewTCPListener(
		ctx,
		addr,
		t,
		t.log.Named("listener").With(zap.Int("listener", len(t.listeners))),
	)

	t.listeners = append(t.listeners, &listener)

	go func() {
		defer t.stopWaiter.Done()

		if err := listener.Listen(); err != nil {
			// TODO(rolly) as any of the listeners can fail to listen, but we don't treat this as fatal,
			//             you can end up with less than the required amount of listeners running
			t.log.Error("Failed to listen", zap.Error(err))
		}
	}()
}

// Close immediately closes all active listeners and connections.
func (t *TCP) Close() (err error) {
	t.log.Info("Stopping TCP server")
	t.cancel()

	for _, listener := range t.listeners {
		err = multierr.Append(err, listener.Close())
	}

	t.stopWaiter.Wait()
	t.log.Info("Listeners stopped")

	return err
}

type TCPListener struct {
	ctx context.Context

	addr   string
	server *TCP
	log    *zap.Logger

	mu          sync.Mutex
	activeConns map[*TCPConn]struct{}
}

func NewTCPListener(
	ctx context.Context,
	addr string,
	server *TCP,
	log *zap.Logger,
) TCPListener {
	return TCPListener{
		ctx:         ctx,
		activeConns: make(map[*TCPConn]struct{}),
		addr:        addr,
		server:      server,
		log:         log,
	}
}

func (t *TCPListener) Close() (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for conn := range t.activeConns {
		err = multierr.Append(err, conn.Close())
		delete(t.activeConns, conn)
	}

	return err
}

func (t *TCPListener) Listen() error {
	listener, err := reuseport.Listen("tcp", t.addr)
	if err != nil {
		return err
	}

	defer listener.Close()

	var loopWaiter sync.WaitGroup

	go func() {
		<-t.ctx.Done()

		t.log.Info("Closing listener")
		if err := listener.Close(); err != nil {
			t.log.Warn("TCP Listener did not close cleanly", zap.Error(err))
		}
	}()

	for {
		select {
		case <-t.ctx.Done():
			t.log.Info("Stopped accepting new connections")
			loopWaiter.Wait()

			t.log.Info("Listener stopped")
			return nil

		default:
			conn, err := listener.Accept()
			if err != nil {
				netOpError := new(net.OpError)

				if errors.As(err, &netOpError) && netOpError.Unwrap().Error() == "use of closed network connection" {
					// The listener was closed while we were waiting for new
					// connections, that's fine.
					return nil
				}

				return err
			}

			tcpConn, err := NewTCPConn(t.ctx, conn.(*net.TCPConn), t.server, t.log.Named("conn"))
			if err != nil {
				t.log.Error("Failed to build engine for connection", zap.Error(err))
				conn.Close()
				continue
			}

			atomic.AddUint64(&t.server.accepted, 1)
			atomic.AddInt64(&t.server.active, 1)
			t.addConn(tcpConn)

			loopWaiter.Add(1)
			go func() {
				defer loopWaiter.Done()

				tcpConn.Start()

				atomic.AddInt64(&t.server.active, -1)
				t.removeConn(tcpConn)
			}()
		}
	}
}

func (t *TCPListener) addConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeConns[conn] = struct{}{}
}

func (t *TCPListener) removeConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}

// TCPConn pumps one engine over one connection: a read loop feeds the
// inbound ring, a service loop ticks the engine, a write loop drains
// the outbound ring back to the socket.
type TCPConn struct {
	ctx        context.Context
	cancel     context.CancelFunc
	loopWaiter sync.WaitGroup

	conn   *net.TCPConn
	server *TCP

	pipe *Pipe
	eng  *engine.Engine

	log *zap.Logger
}

func NewTCPConn(
	parentCtx context.Context,
	conn *net.TCPConn,
	server *TCP,
	log *zap.Logger,
) (*TCPConn, error) {
	pipe := NewPipe(server.opts.FifoSize)

	eng, err := server.opts.NewEngine(pipe)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parentCtx)

	return &TCPConn{
		ctx:    ctx,
		cancel: cancel,
		conn:   conn,
		server: server,
		pipe:   pipe,
		eng:    eng,
		log:    log,
	}, nil
}

func (t *TCPConn) Close() error {
	if !t.isRunning() {
		// already stopped
		return nil
	}

	t.cancel()
	t.loopWaiter.Wait()

	return t.conn.Close()
}

func (t *TCPConn) Start() {
	t.eng.Greet()

	t.loopWaiter.Add(3)

	go func() {
		defer t.loopWaiter.Done()
		t.readLoop()
	}()

	go func() {
		defer t.loopWaiter.Done()
		t.serviceLoop()
	}()

	go func() {
		defer t.loopWaiter.Done()
		t.writeLoop()
	}()

	t.loopWaiter.Wait()
}

func (t *TCPConn) readLoop() {
	log := t.log.Named("readLoop")

	defer func() {
		// Stop reading, but allow writes to drain
		err := t.conn.CloseRead()
		if err != nil && !strings.Contains(err.Error(), "transport endpoint is not connected") {
			log.Warn("Failed to close reads on connection cleanly", zap.Error(err))
		}

		// The peer went away or we are shutting down, either way the
		// other loops should stop too.
		t.cancel()
	}()

	buf := make([]byte, 256)

	for {
		select {
		case <-t.ctx.Done():
			return

		default:
			if err := t.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
				log.Warn("Failed to set read deadline", zap.Error(err))
				return
			}

			n, err := t.conn.Read(buf)
			if n > 0 {
				atomic.AddUint64(&t.server.bytesIn, uint64(n))

				// Bytes beyond the ring's capacity are lost; the engine's
				// framing recovers on the next terminator.
				taken := t.pipe.In.Write(buf[:n])
				if taken < n {
					atomic.AddUint64(&t.server.dropped, uint64(n-taken))
				}

				if t.server.opts.Trace {
					log.Debug("rx", zap.ByteString("data", buf[:n]))
				}
			}

			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					continue
				}
				return
			}
		}
	}
}

func (t *TCPConn) serviceLoop() {
	ticker := time.NewTicker(t.server.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return

		case <-ticker.C:
			t.eng.Service()
		}
	}
}

func (t *TCPConn) writeLoop() {
	log := t.log.Named("writeLoop")

	defer func() {
		err := t.conn.CloseWrite()
		if err != nil && !strings.Contains(err.Error(), "transport endpoint is not connected") {
			log.Warn("Failed to close writes on connection cleanly", zap.Error(err))
		}
	}()

	buf := make([]byte, 256)

	for {
		select {
		case <-t.ctx.Done():
			// Final drain so short replies are not cut off mid-line.
			for {
				n := t.pipe.Out.Read(buf)
				if n == 0 {
					return
				}
				if _, err := t.conn.Write(buf[:n]); err != nil {
					return
				}
				atomic.AddUint64(&t.server.bytesOut, uint64(n))
			}

		default:
			n := t.pipe.Out.Read(buf)
			if n == 0 {
				time.Sleep(time.Millisecond)
				continue
			}

			if _, err := t.conn.Write(buf[:n]); err != nil {
				log.Warn("Failed to write to connection", zap.Error(err))
				return
			}

			atomic.AddUint64(&t.server.bytesOut, uint64(n))

			if t.server.opts.Trace {
				log.Debug("tx", zap.ByteString("data", buf[:n]))
			}
		}
	}
}

// isRunning returns true if Close has not been called
func (t *TCPConn) isRunning() bool {
	select {
	case <-t.ctx.Done():
		return false

	default:
		return true
	}
}
