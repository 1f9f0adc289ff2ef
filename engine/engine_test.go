package engine_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/tiller/engine"
)

// runAll services the engine until it goes quiet.
func runAll(e *engine.Engine, ms *engine.MemStream) {
	for i := 0; i < 64; i++ {
		e.Service()
		if ms.Available() == 0 && !e.Handling() && !e.Draining() {
			return
		}
	}
}

var _ = Describe("Engine (text face)", func() {
	var (
		ms *engine.MemStream
		e  *engine.Engine
	)

	newEngine := func(cfg engine.Config) {
		ms = engine.NewMemStream()
		var err error
		e, err = engine.New(ms, cfg)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		newEngine(engine.Config{Prompt: "x> "})
	})

	echoHandler := func() engine.Handler {
		return engine.HandlerFunc(func(e *engine.Engine) bool {
			s, ok := e.Str()
			if !ok {
				return false
			}
			e.SendStr(s)
			return e.Done()
		})
	}

	It("dispatches a command and replies on one line", func() {
		Expect(e.Register("echo", echoHandler())).To(Succeed())

		ms.Feed([]byte("echo hello\r"))
		runAll(e, ms)

		Expect(string(ms.Output())).To(Equal("hello\r\nx> "))
		Expect(e.Fault()).To(Equal(engine.FaultNone))
	})

	It("separates reply values with single spaces", func() {
		Expect(e.Register("pair", engine.HandlerFunc(func(e *engine.Engine) bool {
			e.SendUint8(1)
			e.SendUint8(2)
			return e.Done()
		}))).To(Succeed())

		ms.Feed([]byte("pair\r"))
		runAll(e, ms)

		Expect(string(ms.Output())).To(Equal("1 2\r\nx> "))
	})

	It("starts a fresh line after Break with no leading space", func() {
		Expect(e.Register("rows", engine.HandlerFunc(func(e *engine.Engine) bool {
			e.SendUint8(1)
			e.Break()
			e.SendUint8(2)
			return e.Done()
		}))).To(Succeed())

		ms.Feed([]byte("rows\r"))
		runAll(e, ms)

		Expect(string(ms.Output())).To(Equal("1\r\n2\r\nx> "))
	})

	It("counts the command name as the first token", func() {
		var argc int
		e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
			argc = e.ArgCount()
			return e.Done()
		}))

		ms.Feed([]byte("gcc \"echo_test\"\r"))
		runAll(e, ms)

		Expect(argc).To(Equal(2))
	})

	It("strips quotes and resolves escapes in tokens", func() {
		var got byte
		Expect(e.Register("say", engine.HandlerFunc(func(e *engine.Engine) bool {
			c, ok := e.Char()
			if !ok {
				return false
			}
			got = c
			return e.Done()
		}))).To(Succeed())

		ms.Feed([]byte("say '\\t'\r"))
		runAll(e, ms)

		Expect(got).To(Equal(byte('\t')))
		Expect(e.Fault()).To(Equal(engine.FaultNone))
	})

	It("quotes reply strings that would not survive re-tokenization", func() {
		Expect(e.Register("echo", echoHandler())).To(Succeed())

		ms.Feed([]byte("echo ' '\r"))
		runAll(e, ms)

		Expect(string(ms.Output())).To(Equal("\" \"\r\nx> "))
	})

	It("discards everything after a comment marker", func() {
		var argc int
		e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
			argc = e.ArgCount()
			return e.Done()
		}))

		ms.Feed([]byte("hello # world and more\r"))
		runAll(e, ms)

		Expect(argc).To(Equal(1))
	})

	It("reprints the prompt for an empty line without error", func() {
		ms.Feed([]byte("\r"))
		runAll(e, ms)

		Expect(string(ms.Output())).To(Equal("x> "))
		Expect(e.Fault()).To(Equal(engine.FaultNone))
	})

	It("reports an unknown command on the console", func() {
		ms.Feed([]byte("nope\r"))
		runAll(e, ms)

		Expect(string(ms.Output())).To(Equal("ERROR: unknown command\r\nx> "))
		Expect(e.Fault()).To(Equal(engine.FaultUnknownCommand))

		e.ClearFault()
		Expect(e.Fault()).To(Equal(engine.FaultNone))
	})

	It("renders a fault once and stops consuming input until cleared", func() {
		Expect(e.Register("echo", echoHandler())).To(Succeed())

		ms.Feed([]byte("nope\r"))
		e.Service()

		Expect(string(ms.TakeOutput())).To(Equal("ERROR: unknown command\r\nx> "))

		// Later input waits in the transport while the register is set.
		ms.Feed([]byte("echo hi\r"))
		e.Service()
		e.Service()

		Expect(ms.Output()).To(BeEmpty())
		Expect(ms.Available()).To(Equal(8))

		e.ClearFault()
		runAll(e, ms)

		Expect(string(ms.Output())).To(Equal("hi\r\nx> "))
	})

	It("latches an unterminated quote as a parse error", func() {
		ms.Feed([]byte("echo 'oops\r"))
		runAll(e, ms)

		Expect(string(ms.Output())).To(Equal("ERROR: parse error\r\nx> "))
	})

	It("keeps the first fault and turns later codec calls into no-ops", func() {
		Expect(e.Register("want", engine.HandlerFunc(func(e *engine.Engine) bool {
			_, ok := e.Uint8()
			Expect(ok).To(BeFalse())
			Expect(e.SendUint8(7)).To(BeFalse())
			return e.Done()
		}))).To(Succeed())

		ms.Feed([]byte("want\r"))
		runAll(e, ms)

		Expect(e.Fault()).To(Equal(engine.FaultRecvUnderflow))
		Expect(string(ms.Output())).To(Equal("ERROR: missing argument\r\nx> "))
	})

	It("rejects a malformed numeric argument", func() {
		Expect(e.Register("num", engine.HandlerFunc(func(e *engine.Engine) bool {
			_, ok := e.Uint16()
			if !ok {
				return false
			}
			return e.Done()
		}))).To(Succeed())

		ms.Feed([]byte("num 12x4\r"))
		runAll(e, ms)

		Expect(e.Fault()).To(Equal(engine.FaultBadArg))
	})

	Context("with echo enabled", func() {
		BeforeEach(func() {
			newEngine(engine.Config{Prompt: "x> ", Echo: true})
		})

		It("echoes input and the line terminator", func() {
			e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
				return e.Done()
			}))

			ms.Feed([]byte("hi\r"))
			runAll(e, ms)

			Expect(string(ms.Output())).To(HavePrefix("hi\r\n"))
		})

		It("erases the echoed character on backspace", func() {
			var name string
			e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
				name = string(e.CommandName())
				return e.Done()
			}))

			ms.Feed([]byte("ab\bc\r"))
			runAll(e, ms)

			Expect(name).To(Equal("ac"))
			Expect(string(ms.Output())).To(HavePrefix("ab\b \bc\r\n"))
		})

		It("recalls the previous line on up-arrow", func() {
			var names []string
			e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
				names = append(names, string(e.CommandName()))
				return e.Done()
			}))

			ms.Feed([]byte("hi\r"))
			runAll(e, ms)
			ms.Feed([]byte("\x1b[A\r"))
			runAll(e, ms)

			Expect(names).To(Equal([]string{"hi", "hi"}))
		})

		It("keeps the recall stash across the empty line a CRLF leaves behind", func() {
			var names []string
			e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
				names = append(names, string(e.CommandName()))
				return e.Done()
			}))

			ms.Feed([]byte("hi\r\n"))
			runAll(e, ms)
			ms.Feed([]byte("\x1b[A\r"))
			runAll(e, ms)

			Expect(names).To(Equal([]string{"hi", "hi"}))
		})

		It("swallows the byte after a lone escape", func() {
			var name string
			e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
				name = string(e.CommandName())
				return e.Done()
			}))

			ms.Feed([]byte("a\x1bZb\r"))
			runAll(e, ms)

			Expect(name).To(Equal("ab"))
		})

		It("swallows escape sequences it does not recognize", func() {
			var name string
			e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
				name = string(e.CommandName())
				return e.Done()
			}))

			ms.Feed([]byte("a\x1b[Bb\r"))
			runAll(e, ms)

			Expect(name).To(Equal("ab"))
		})
	})

	Context("deferred completion", func() {
		It("re-invokes the handler once per tick until Done", func() {
			calls := 0
			Expect(e.Register("work", engine.HandlerFunc(func(e *engine.Engine) bool {
				calls++
				if calls < 3 {
					return true
				}
				e.SendUint8(42)
				return e.Done()
			}))).To(Succeed())

			ms.Feed([]byte("work\rnext\r"))

			e.Service()
			Expect(calls).To(Equal(1))
			Expect(e.Handling()).To(BeTrue())

			// Pending input waits while the command is in flight.
			e.Service()
			Expect(calls).To(Equal(2))
			Expect(ms.Available()).To(BeNumerically(">", 0))

			e.Service()
			Expect(calls).To(Equal(3))
			Expect(e.Handling()).To(BeFalse())
			Expect(string(ms.Output())).To(Equal("42\r\nx> "))
		})

		It("treats a false return as a failed command", func() {
			Expect(e.Register("bad", engine.HandlerFunc(func(e *engine.Engine) bool {
				return false
			}))).To(Succeed())

			ms.Feed([]byte("bad\r"))
			runAll(e, ms)

			Expect(e.Fault()).To(Equal(engine.FaultHandler))
			Expect(string(ms.Output())).To(Equal("ERROR: command failed\r\nx> "))
		})
	})

	Context("receive timeout", func() {
		var now time.Time

		BeforeEach(func() {
			now = time.Unix(1000, 0)
			newEngine(engine.Config{
				Prompt:      "x> ",
				RecvTimeout: time.Second,
				Now:         func() time.Time { return now },
			})
		})

		It("abandons a partial line once the deadline passes", func() {
			ms.Feed([]byte("par"))
			e.Service()
			Expect(e.Receiving()).To(BeTrue())

			now = now.Add(2 * time.Second)
			e.Service()

			Expect(e.Fault()).To(Equal(engine.FaultRecvTimeout))
			Expect(e.Receiving()).To(BeFalse())
			Expect(string(ms.Output())).To(Equal("ERROR: receive timeout\r\nx> "))
		})

		It("does not arm the deadline before the first byte", func() {
			now = now.Add(time.Hour)
			e.Service()
			Expect(e.Fault()).To(Equal(engine.FaultNone))
		})
	})

	Context("buffer limits", func() {
		BeforeEach(func() {
			newEngine(engine.Config{RecvSize: 16})
		})

		It("accepts the longest line that still fits", func() {
			done := false
			e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
				done = true
				return e.Done()
			}))

			ms.Feed(append(bytesOf('a', 14), '\r'))
			runAll(e, ms)

			Expect(done).To(BeTrue())
			Expect(e.Fault()).To(Equal(engine.FaultNone))
		})

		It("latches an overflow on a line that would fill the buffer exactly", func() {
			done := false
			e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
				done = true
				return e.Done()
			}))

			// Line plus terminator equal to the capacity is one byte too
			// many.
			ms.Feed(append(bytesOf('a', 15), '\r'))
			e.Service()

			Expect(e.Fault()).To(Equal(engine.FaultRecvOverflow))
			Expect(done).To(BeFalse())
		})
	})

	Context("fault override", func() {
		It("may report and clear the fault", func() {
			var seen engine.Fault
			e.SetFaultHandler(engine.HandlerFunc(func(e *engine.Engine) bool {
				seen = e.Fault()
				return true
			}))

			ms.Feed([]byte("nope\r"))
			runAll(e, ms)

			Expect(seen).To(Equal(engine.FaultUnknownCommand))
			Expect(e.Fault()).To(Equal(engine.FaultNone))
			Expect(string(ms.Output())).NotTo(ContainSubstring("ERROR"))
		})
	})

	Context("mode switching", func() {
		It("rejects an invalid mode", func() {
			e.SetMode(engine.Mode(9))
			Expect(e.Fault()).To(Equal(engine.FaultUnsupported))
			Expect(e.Mode()).To(Equal(engine.ModeText))
		})

		It("switches faces and discards transient state", func() {
			ms.Feed([]byte("par"))
			e.Service()
			Expect(e.Receiving()).To(BeTrue())

			e.SetMode(engine.ModeBinary)
			Expect(e.Mode()).To(Equal(engine.ModeBinary))
			Expect(e.Receiving()).To(BeFalse())
			Expect(e.RecvUsed()).To(BeZero())
		})
	})
})

func bytesOf(b byte, n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = b
	}
	return p
}
