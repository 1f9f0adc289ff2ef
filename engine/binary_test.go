package engine_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/tiller/engine"
	"github.com/luma/tiller/wire"
)

// packet frames body as a length-prefixed, checksummed packet.
func packet(body ...byte) []byte {
	pkt, err := wire.AppendPacket(nil, body)
	Expect(err).NotTo(HaveOccurred())
	return pkt
}

var _ = Describe("Engine (binary face)", func() {
	var (
		ms *engine.MemStream
		e  *engine.Engine
	)

	BeforeEach(func() {
		ms = engine.NewMemStream()
		var err error
		e, err = engine.New(ms, engine.Config{Mode: engine.ModeBinary})
		Expect(err).NotTo(HaveOccurred())
	})

	It("dispatches by code and answers with a sealed packet", func() {
		Expect(e.Register("", engine.HandlerFunc(func(e *engine.Engine) bool {
			v, ok := e.Uint32()
			if !ok {
				return false
			}
			e.SendUint32(v + 1)
			return e.Done()
		}), engine.WithCode(5))).To(Succeed())

		ms.Feed(packet(5, 0x01, 0x00, 0x00, 0x00))
		runAll(e, ms)

		out := ms.Output()
		Expect(wire.ValidatePacket(out)).To(Succeed())
		Expect(out).To(HaveLen(6))
		Expect(out[1:5]).To(Equal([]byte{0x02, 0x00, 0x00, 0x00}))
	})

	It("decodes multi-byte values little-endian", func() {
		var got uint16
		Expect(e.Register("", engine.HandlerFunc(func(e *engine.Engine) bool {
			v, ok := e.Uint16()
			if !ok {
				return false
			}
			got = v
			return e.Done()
		}), engine.WithCode(1))).To(Succeed())

		ms.Feed(packet(1, 0x34, 0x12))
		runAll(e, ms)

		Expect(got).To(Equal(uint16(0x1234)))
	})

	It("sign-extends narrow signed arguments", func() {
		var got int8
		Expect(e.Register("", engine.HandlerFunc(func(e *engine.Engine) bool {
			v, ok := e.Int8()
			if !ok {
				return false
			}
			got = v
			return e.Done()
		}), engine.WithCode(1))).To(Succeed())

		ms.Feed(packet(1, 0xFF))
		runAll(e, ms)

		Expect(got).To(Equal(int8(-1)))
	})

	It("reads NUL-terminated string arguments from the payload", func() {
		var got string
		Expect(e.Register("", engine.HandlerFunc(func(e *engine.Engine) bool {
			s, ok := e.Str()
			if !ok {
				return false
			}
			got = string(s)
			return e.Done()
		}), engine.WithCode(2))).To(Succeed())

		ms.Feed(packet(2, 'h', 'i', 0x00, 0xAA))
		runAll(e, ms)

		Expect(got).To(Equal("hi"))
	})

	It("latches a bad-packet fault on a checksum mismatch and stays silent", func() {
		Expect(e.Register("", engine.HandlerFunc(func(e *engine.Engine) bool {
			return e.Done()
		}), engine.WithCode(1))).To(Succeed())

		pkt := packet(1)
		pkt[len(pkt)-1] ^= 0x40
		ms.Feed(pkt)
		runAll(e, ms)

		Expect(e.Fault()).To(Equal(engine.FaultBadPacket))
		Expect(ms.Output()).To(BeEmpty())
	})

	It("rejects a length byte below the minimum", func() {
		ms.Feed([]byte{0x01})
		e.Service()

		Expect(e.Fault()).To(Equal(engine.FaultBadPacket))
	})

	It("rejects a length byte beyond the receive buffer", func() {
		ms2 := engine.NewMemStream()
		small, err := engine.New(ms2, engine.Config{
			Mode:     engine.ModeBinary,
			RecvSize: 16,
		})
		Expect(err).NotTo(HaveOccurred())

		ms2.Feed([]byte{0x80})
		small.Service()

		Expect(small.Fault()).To(Equal(engine.FaultRecvOverflow))
	})

	It("latches an underflow when a handler reads past the payload", func() {
		Expect(e.Register("", engine.HandlerFunc(func(e *engine.Engine) bool {
			_, ok := e.Uint32()
			if !ok {
				return false
			}
			return e.Done()
		}), engine.WithCode(1))).To(Succeed())

		ms.Feed(packet(1, 0x01, 0x02))
		runAll(e, ms)

		Expect(e.Fault()).To(Equal(engine.FaultRecvUnderflow))
	})

	It("emits one packet per Break plus the final one at Done", func() {
		Expect(e.Register("", engine.HandlerFunc(func(e *engine.Engine) bool {
			e.SendUint8(1)
			e.Break()
			e.SendUint8(2)
			return e.Done()
		}), engine.WithCode(1))).To(Succeed())

		ms.Feed(packet(1))
		runAll(e, ms)

		out := ms.Output()
		Expect(out).To(HaveLen(6))
		Expect(wire.ValidatePacket(out[:3])).To(Succeed())
		Expect(wire.ValidatePacket(out[3:])).To(Succeed())
		Expect(out[1]).To(Equal(byte(1)))
		Expect(out[4]).To(Equal(byte(2)))
	})

	It("drops an empty reply packet instead of sending a husk", func() {
		Expect(e.Register("", engine.HandlerFunc(func(e *engine.Engine) bool {
			return e.Done()
		}), engine.WithCode(1))).To(Succeed())

		ms.Feed(packet(1))
		runAll(e, ms)

		Expect(ms.Output()).To(BeEmpty())
		Expect(e.Fault()).To(Equal(engine.FaultNone))
	})

	It("keeps draining a sealed packet across ticks when the sink is full", func() {
		Expect(e.Register("", engine.HandlerFunc(func(e *engine.Engine) bool {
			e.SendUint8(0x55)
			return e.Done()
		}), engine.WithCode(1))).To(Succeed())

		ms.SetWriteSpace(1)
		ms.Feed(packet(1))
		e.Service()

		Expect(e.Draining()).To(BeTrue())
		Expect(ms.Output()).To(HaveLen(1))

		ms.SetWriteSpace(-1)
		e.Service()

		Expect(e.Draining()).To(BeFalse())
		Expect(wire.ValidatePacket(ms.Output())).To(Succeed())
	})

	It("latches a send overflow when a reply exceeds the packet budget", func() {
		ms2 := engine.NewMemStream()
		small, err := engine.New(ms2, engine.Config{
			Mode:     engine.ModeBinary,
			SendSize: 8,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(small.Register("", engine.HandlerFunc(func(e *engine.Engine) bool {
			e.SendStr([]byte("toolong")) // 7 bytes + NUL cannot fit
			return e.Done()
		}), engine.WithCode(1))).To(Succeed())

		ms2.Feed(packet(1))
		runAll(small, ms2)

		Expect(small.Fault()).To(Equal(engine.FaultSendOverflow))
	})
})
