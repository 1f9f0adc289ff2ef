package transport_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/tiller/transport"
)

var _ = Describe("Fifo", func() {
	It("pops bytes in push order", func() {
		f := transport.NewFifo(4)

		Expect(f.Push(1)).To(BeTrue())
		Expect(f.Push(2)).To(BeTrue())

		b, ok := f.Pop()
		Expect(ok).To(BeTrue())
		Expect(b).To(Equal(byte(1)))

		b, ok = f.Pop()
		Expect(ok).To(BeTrue())
		Expect(b).To(Equal(byte(2)))

		_, ok = f.Pop()
		Expect(ok).To(BeFalse())
	})

	It("rejects pushes once full", func() {
		f := transport.NewFifo(2)

		Expect(f.Push(1)).To(BeTrue())
		Expect(f.Push(2)).To(BeTrue())
		Expect(f.Push(3)).To(BeFalse())
		Expect(f.Len()).To(Equal(2))
		Expect(f.Free()).To(BeZero())
	})

	It("wraps around the ring boundary", func() {
		f := transport.NewFifo(3)

		Expect(f.Write([]byte{1, 2, 3})).To(Equal(3))

		out := make([]byte, 2)
		Expect(f.Read(out)).To(Equal(2))
		Expect(out).To(Equal([]byte{1, 2}))

		Expect(f.Write([]byte{4, 5})).To(Equal(2))

		out = make([]byte, 3)
		Expect(f.Read(out)).To(Equal(3))
		Expect(out).To(Equal([]byte{3, 4, 5}))
	})

	It("takes only what fits on a bulk write", func() {
		f := transport.NewFifo(2)

		Expect(f.Write([]byte{1, 2, 3, 4})).To(Equal(2))
		Expect(f.Len()).To(Equal(2))
	})

	It("presents a pipe as an engine stream", func() {
		p := transport.NewPipe(8)

		p.In.Write([]byte("hi"))
		Expect(p.Available()).To(Equal(2))

		b, ok := p.ReadByte()
		Expect(ok).To(BeTrue())
		Expect(b).To(Equal(byte('h')))

		Expect(p.WriteByte('x')).To(BeTrue())
		Expect(p.Out.Len()).To(Equal(1))
		Expect(p.AvailableForWrite()).To(Equal(7))
	})
})
