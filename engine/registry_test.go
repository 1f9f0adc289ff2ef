package engine_test

import (
	"fmt"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/tiller/engine"
)

var _ = Describe("Registry", func() {
	var (
		ms *engine.MemStream
		e  *engine.Engine
	)

	nop := engine.HandlerFunc(func(e *engine.Engine) bool { return e.Done() })

	BeforeEach(func() {
		ms = engine.NewMemStream()
		var err error
		e, err = engine.New(ms, engine.Config{MaxCommands: 4})
		Expect(err).NotTo(HaveOccurred())
	})

	It("assigns the next free code when none is pinned", func() {
		Expect(e.Register("a", nop)).To(Succeed())
		Expect(e.Register("b", nop)).To(Succeed())

		Expect(e.Lookup("a").Code).To(Equal(uint8(0)))
		Expect(e.Lookup("b").Code).To(Equal(uint8(1)))
	})

	It("skips pinned codes when assigning", func() {
		Expect(e.Register("a", nop, engine.WithCode(0))).To(Succeed())
		Expect(e.Register("b", nop)).To(Succeed())

		Expect(e.Lookup("b").Code).To(Equal(uint8(1)))
	})

	It("rejects a duplicate name", func() {
		Expect(e.Register("a", nop)).To(Succeed())
		Expect(e.Register("a", nop)).To(MatchError(engine.ErrDuplicateName))
	})

	It("rejects a duplicate code", func() {
		Expect(e.Register("a", nop, engine.WithCode(7))).To(Succeed())
		Expect(e.Register("b", nop, engine.WithCode(7))).To(MatchError(engine.ErrDuplicateCode))
	})

	It("rejects a nil handler", func() {
		Expect(e.Register("a", nil)).To(MatchError(engine.ErrNilHandler))
	})

	It("latches a table-full fault at capacity", func() {
		for i := 0; i < 4; i++ {
			Expect(e.Register(fmt.Sprintf("c%d", i), nop)).To(Succeed())
		}

		Expect(e.Register("overflow", nop)).To(MatchError(engine.ErrRegistryFull))
		Expect(e.Fault()).To(Equal(engine.FaultTableFull))
		Expect(e.Commands()).To(Equal(4))
	})

	It("frees name, code and slot on unregister", func() {
		Expect(e.Register("a", nop, engine.WithCode(3))).To(Succeed())

		Expect(e.Unregister("a")).To(BeTrue())
		Expect(e.Lookup("a")).To(BeNil())
		Expect(e.LookupCode(3)).To(BeNil())
		Expect(e.Commands()).To(BeZero())

		// Both are reusable now.
		Expect(e.Register("a", nop, engine.WithCode(3))).To(Succeed())
	})

	It("unregisters by code", func() {
		Expect(e.Register("a", nop, engine.WithCode(9))).To(Succeed())
		Expect(e.UnregisterCode(9)).To(BeTrue())
		Expect(e.UnregisterCode(9)).To(BeFalse())
	})

	It("unregisters by handler identity", func() {
		other := engine.HandlerFunc(func(e *engine.Engine) bool { return e.Done() })
		Expect(e.Register("a", nop)).To(Succeed())
		Expect(e.Register("b", other)).To(Succeed())

		Expect(e.UnregisterHandler(other)).To(BeTrue())
		Expect(e.Lookup("b")).To(BeNil())
		Expect(e.Lookup("a")).NotTo(BeNil())
	})

	It("keeps metadata attached to the record", func() {
		Expect(e.Register("a", nop,
			engine.WithHelp("does a"),
			engine.WithOrigin("builtin"),
		)).To(Succeed())

		rec := e.Lookup("a")
		Expect(rec.Help).To(Equal("does a"))
		Expect(rec.Origin).To(Equal("builtin"))
	})

	It("iterates records in registration order", func() {
		Expect(e.Register("a", nop)).To(Succeed())
		Expect(e.Register("b", nop)).To(Succeed())

		var names []string
		e.EachCommand(func(c engine.Command) { names = append(names, c.Name) })
		Expect(names).To(Equal([]string{"a", "b"}))
	})

	Context("overrides", func() {
		It("routes every command through the universal handler", func() {
			hits := 0
			Expect(e.Register("a", nop)).To(Succeed())
			e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool {
				hits++
				return e.Done()
			}))

			ms.Feed([]byte("a\rzzz\r"))
			runAll(e, ms)

			Expect(hits).To(Equal(2))
			Expect(e.Fault()).To(Equal(engine.FaultNone))
		})

		It("routes unmatched commands to the fallback", func() {
			var name string
			e.SetFallback(engine.HandlerFunc(func(e *engine.Engine) bool {
				name = string(e.CommandName())
				return e.Done()
			}))

			ms.Feed([]byte("mystery\r"))
			runAll(e, ms)

			Expect(name).To(Equal("mystery"))
			Expect(e.Fault()).To(Equal(engine.FaultNone))
		})

		It("removes an override when set to nil", func() {
			e.SetUniversal(engine.HandlerFunc(func(e *engine.Engine) bool { return e.Done() }))
			e.SetUniversal(nil)

			ms.Feed([]byte("zzz\r"))
			runAll(e, ms)

			Expect(e.Fault()).To(Equal(engine.FaultUnknownCommand))
		})
	})
})
