package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/tiller/engine"
	"github.com/luma/tiller/internal/config"
	"github.com/luma/tiller/internal/env"
	"github.com/luma/tiller/internal/meta"
	"github.com/luma/tiller/internal/status"
	"github.com/luma/tiller/transport"
)

var (
	// Path to the yaml service configuration
	configFile string

	// The host to listen on
	host string

	// The port to listen for http requests on
	httpPort string

	// The port to listen for tcp clients on
	port int
)

func init() {
	flags := StartCmd.PersistentFlags()

	flags.StringVarP(&configFile, "config", "c", "", "Path to the service configuration file")
	flags.IntVarP(&port, "port", "p", 0, "The port to listen for client connections on")
	flags.StringVar(&httpPort, "http-port", "", "The port to listen to HTTP requests on")
	flags.StringVarP(&host, "host", "a", "", "The host to listen on")
}

var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start up the tiller command service",
	Long: `Start up the tiller command service

Usage
	tiller start

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
		defer signalStop()

		log, err := env.MakeLogger()
		if err != nil {
			return err
		}

		fileLimit, err := setFileLimit()
		if err != nil {
			return err
		}

		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))

		envConf, err := env.LoadConfig(ctx)
		if err != nil {
			return err
		}

		conf, err := loadServiceConfig(envConf)
		if err != nil {
			return err
		}

		tcp := transport.NewTCP(transport.Options{
			Host:         conf.Service.Host,
			Port:         conf.Service.Port,
			NumListeners: conf.Service.NumListeners,
			FifoSize:     conf.Service.FifoSize,
			Tick:         time.Duration(conf.Service.TickMs) * time.Millisecond,
			Trace:        envConf.Trace,
			NewEngine:    engineFactory(conf, log.Named("engine")),
			Log:          log.Named("transport"),
		})

		if err := tcp.Start(ctx); err != nil {
			return err
		}

		var serialPort *transport.Serial
		if conf.Service.Serial.Device != "" {
			serialPort = transport.NewSerial(transport.SerialOptions{
				Device:    conf.Service.Serial.Device,
				Baud:      conf.Service.Serial.Baud,
				FifoSize:  conf.Service.FifoSize,
				Tick:      time.Duration(conf.Service.TickMs) * time.Millisecond,
				NewEngine: engineFactory(conf, log.Named("engine")),
				Log:       log.Named("serial"),
			})

			if err := serialPort.Start(ctx); err != nil {
				return err
			}
		}

		tracker := status.NewTracker(meta.Version, tcp.Counters)

		router := setupRouter(envConf.DebugHTTP, log)

		// Ping test
		router.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		router.GET("/stats", func(c *gin.Context) {
			doc, err := status.Encode(tracker.Snapshot())
			if err != nil {
				c.String(http.StatusInternalServerError, err.Error())
				return
			}

			c.Data(http.StatusOK, "application/json", doc)
		})

		s := &http.Server{
			Addr:    net.JoinHostPort(conf.Service.Host, conf.Service.HTTPPort),
			Handler: router,
		}

		// Initializing the server in a goroutine so that
		// it won't block the graceful shutdown handling below
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		log.Info("Listening",
			zap.String("host", conf.Service.Host),
			zap.Int("port", conf.Service.Port),
			zap.String("httpPort", conf.Service.HTTPPort),
			zap.String("mode", conf.Engine.Mode))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		if err := tcp.Close(); err != nil {
			log.Error("TCP server forced to shutdown", zap.Error(err))
		}

		if serialPort != nil {
			if err := serialPort.Close(); err != nil {
				log.Error("Serial port did not close cleanly", zap.Error(err))
			}
		}

		log.Info("Exiting")
		return nil
	},
}

// loadServiceConfig layers the yaml file (if any) under the command
// line flags.
func loadServiceConfig(envConf *env.Config) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = envConf.ConfigFile
	}

	conf := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		conf = loaded
	}

	if host != "" {
		conf.Service.Host = host
	}
	if port != 0 {
		conf.Service.Port = port
	}
	if httpPort != "" {
		conf.Service.HTTPPort = httpPort
	}

	return conf, config.Validate(conf)
}

// engineFactory builds one engine per connection with the built-in
// command catalog installed.
func engineFactory(conf *config.Config, log *zap.Logger) transport.EngineFactory {
	return func(s engine.Stream) (*engine.Engine, error) {
		eng, err := engine.New(s, conf.EngineConfig())
		if err != nil {
			return nil, err
		}

		if err := registerBuiltins(eng); err != nil {
			return nil, err
		}

		eng.SetFaultHandler(engine.HandlerFunc(func(e *engine.Engine) bool {
			log.Warn("Command cycle faulted",
				zap.String("fault", e.Fault().String()),
				zap.ByteString("command", e.CommandName()))

			// Report on the console ourselves, then recover so the
			// connection keeps serving commands. Binary peers get no
			// automatic error packet.
			if e.Mode() == engine.ModeText {
				e.SendStrRaw([]byte("ERROR: "))
				e.SendStrRaw([]byte(e.Fault().String()))
			}

			return true
		}))

		return eng, nil
	}
}

func registerBuiltins(eng *engine.Engine) error {
	if err := eng.Register("ping", engine.HandlerFunc(func(e *engine.Engine) bool {
		e.SendStr([]byte("pong"))
		return e.Done()
	}), engine.WithCode(1), engine.WithHelp("Health check"), engine.WithOrigin("builtin")); err != nil {
		return err
	}

	if err := eng.Register("version", engine.HandlerFunc(func(e *engine.Engine) bool {
		e.SendString(meta.Version)
		return e.Done()
	}), engine.WithCode(2), engine.WithHelp("Report the service version"), engine.WithOrigin("builtin")); err != nil {
		return err
	}

	if err := eng.Register("mode", engine.HandlerFunc(func(e *engine.Engine) bool {
		if e.ArgCount() < 2 {
			e.SendString(e.Mode().String())
			return e.Done()
		}

		tok, ok := e.Str()
		if !ok {
			return false
		}

		switch string(tok) {
		case "text":
			e.SetMode(engine.ModeText)
		case "binary":
			e.SetMode(engine.ModeBinary)
		default:
			return false
		}

		// SetMode resets the cycle; the command is already over.
		return true
	}), engine.WithCode(3), engine.WithHelp("Report or switch the protocol mode"), engine.WithOrigin("builtin")); err != nil {
		return err
	}

	return eng.Register("help", engine.HandlerFunc(func(e *engine.Engine) bool {
		e.EachCommand(func(c engine.Command) {
			if c.Name == "" {
				return
			}
			e.SendStrRaw([]byte(c.Name))
			if c.Help != "" {
				e.SendStrRaw([]byte(" - "))
				e.SendStrRaw([]byte(c.Help))
			}
			e.Break()
		})
		return e.Done()
	}), engine.WithCode(4), engine.WithHelp("List available commands"), engine.WithOrigin("builtin"))
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - Logs to stdout.
	//   - RFC3339 with UTC time format.
	r.Use(ginzap.Ginzap(log, time.RFC3339, true))

	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/health"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
