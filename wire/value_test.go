package wire_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/tiller/wire"
)

var _ = Describe("wire / booleans", func() {
	It("accepts every spelling, ignoring case", func() {
		trues := []string{"true", "TRUE", "True", "t", "T", "1", "yes", "YES", "y", "Y"}
		falses := []string{"false", "FALSE", "f", "F", "0", "no", "No", "n", "N"}

		for _, tok := range trues {
			v, err := wire.ParseBool([]byte(tok))
			Expect(err).To(Succeed(), "token %q", tok)
			Expect(v).To(BeTrue(), "token %q", tok)
		}
		for _, tok := range falses {
			v, err := wire.ParseBool([]byte(tok))
			Expect(err).To(Succeed(), "token %q", tok)
			Expect(v).To(BeFalse(), "token %q", tok)
		}
	})

	It("rejects anything else", func() {
		for _, tok := range []string{"", "maybe", "tru", "2", "on"} {
			_, err := wire.ParseBool([]byte(tok))
			Expect(err).To(MatchError(wire.ErrSyntax))
		}
	})

	It("renders the chosen style and case", func() {
		Expect(string(wire.AppendBool(nil, true, wire.BoolWord, false))).To(Equal("true"))
		Expect(string(wire.AppendBool(nil, false, wire.BoolWord, true))).To(Equal("FALSE"))
		Expect(string(wire.AppendBool(nil, true, wire.BoolLetter, true))).To(Equal("T"))
		Expect(string(wire.AppendBool(nil, false, wire.BoolDigit, false))).To(Equal("0"))
		Expect(string(wire.AppendBool(nil, true, wire.BoolYesNo, false))).To(Equal("yes"))
		Expect(string(wire.AppendBool(nil, false, wire.BoolYN, true))).To(Equal("N"))
	})
})

var _ = Describe("wire / floats", func() {
	It("round-trips through the default format", func() {
		for _, v := range []float64{0, 1, -1.5, 3.14159265358979, 1e-9, 6.02e23} {
			tok := wire.AppendFloat(nil, v, 64, wire.FloatFormat{})
			got, err := wire.ParseFloat(tok, 64)
			Expect(err).To(Succeed())
			Expect(got).To(Equal(v))
		}
	})

	It("honours explicit precision in fixed form", func() {
		Expect(string(wire.AppendFloat(nil, 1.5, 64, wire.FloatFormat{Prec: 3}))).To(Equal("1.500"))
	})

	It("uses exponent form when asked", func() {
		out := string(wire.AppendFloat(nil, 1234.5, 64, wire.FloatFormat{Sci: true, Prec: 2}))
		Expect(out).To(Equal("1.23e+03"))
	})

	It("trims trailing zeros when precision is unspecified", func() {
		Expect(string(wire.AppendFloat(nil, 2.5, 64, wire.FloatFormat{}))).To(Equal("2.5"))
		Expect(string(wire.AppendFloat(nil, 4, 64, wire.FloatFormat{}))).To(Equal("4"))
	})

	It("pads to the minimum field width", func() {
		Expect(string(wire.AppendFloat(nil, 2.5, 64, wire.FloatFormat{Width: 6}))).To(Equal("   2.5"))
	})

	It("accepts exponent-form input", func() {
		v, err := wire.ParseFloat([]byte("1.5e3"), 64)
		Expect(err).To(Succeed())
		Expect(v).To(Equal(1500.0))
	})

	It("rejects malformed input", func() {
		for _, tok := range []string{"", "abc", "1.2.3"} {
			_, err := wire.ParseFloat([]byte(tok), 64)
			Expect(err).To(MatchError(wire.ErrSyntax))
		}
	})
})
