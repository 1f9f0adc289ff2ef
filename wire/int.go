package wire

import (
	"errors"
	"math"
	"strconv"
	"unsafe"
)

var (
	ErrSyntax = errors.New("wire: invalid numeric syntax")
	ErrRange  = errors.New("wire: value out of range")
)

// Format controls integer rendering.
type Format struct {
	Width int  // minimum field width; 0 for none
	Pad   byte // '0' or ' '; zero value means ' '
	Left  bool // left-align inside the field
	Hex   bool // base 16
}

const (
	chunkDigits = 4
	chunkBase   = 10000

	// 64 bits never need more than 20 decimal digits.
	maxChunks = 5
)

type chunked struct {
	c [maxChunks]uint16 // base-10000 digits, least significant first
	n int
}

// Precomputed chunk decompositions of the 64-bit limits. Widths below 64
// bits go through the native conversion instead.
var (
	limitU64    = decompose(math.MaxUint64)
	limitI64    = decompose(math.MaxInt64)
	limitI64Neg = decompose(uint64(math.MaxInt64) + 1)
)

func decompose(v uint64) chunked {
	var d chunked
	for {
		d.c[d.n] = uint16(v % chunkBase)
		d.n++
		v /= chunkBase
		if v == 0 {
			return d
		}
	}
}

// exceeds compares two chunk decompositions, most significant chunk
// first.
func (d chunked) exceeds(limit chunked) bool {
	if d.n != limit.n {
		return d.n > limit.n
	}
	for i := d.n - 1; i >= 0; i-- {
		if d.c[i] != limit.c[i] {
			return d.c[i] > limit.c[i]
		}
	}
	return false
}

func (d chunked) assemble() uint64 {
	var v uint64
	for i := d.n - 1; i >= 0; i-- {
		v = v*chunkBase + uint64(d.c[i])
	}
	return v
}

// unsafeString views tok as a string without copying, for the native
// strconv routines. tok must not be mutated while the string is live.
func unsafeString(tok []byte) string {
	return *(*string)(unsafe.Pointer(&tok))
}

// ParseUint parses an unsigned integer token of the given width in bits
// (8, 16, 32 or 64). A 0x/0X prefix switches to hex, as does the
// explicit hex flag for bare hex digits.
func ParseUint(tok []byte, bits int, hex bool) (uint64, error) {
	tok, hex = stripHexPrefix(tok, hex)
	if len(tok) == 0 {
		return 0, ErrSyntax
	}

	if hex {
		return parseHex(tok, bits)
	}

	if bits < 64 {
		v, err := strconv.ParseUint(unsafeString(tok), 10, bits)
		return v, mapStrconvErr(err)
	}

	d, err := parseChunks(tok)
	if err != nil {
		return 0, err
	}
	if d.exceeds(limitU64) {
		return 0, ErrRange
	}

	return d.assemble(), nil
}

// ParseInt is ParseUint for signed widths, accepting a leading sign.
func ParseInt(tok []byte, bits int, hex bool) (int64, error) {
	neg := false
	if len(tok) > 0 && (tok[0] == '-' || tok[0] == '+') {
		neg = tok[0] == '-'
		tok = tok[1:]
	}

	tok, hex = stripHexPrefix(tok, hex)
	if len(tok) == 0 {
		return 0, ErrSyntax
	}

	if hex {
		mag, err := parseHex(tok, bits)
		if err != nil {
			return 0, err
		}
		return signed(mag, neg, bits)
	}

	if bits < 64 {
		mag, err := strconv.ParseUint(unsafeString(tok), 10, 64)
		if err != nil {
			return 0, mapStrconvErr(err)
		}
		return signed(mag, neg, bits)
	}

	d, err := parseChunks(tok)
	if err != nil {
		return 0, err
	}

	limit := limitI64
	if neg {
		limit = limitI64Neg
	}
	if d.exceeds(limit) {
		return 0, ErrRange
	}

	mag := d.assemble()
	if neg {
		return -int64(mag - 1) - 1, nil
	}
	return int64(mag), nil
}

func stripHexPrefix(tok []byte, hex bool) ([]byte, bool) {
	if len(tok) > 2 && tok[0] == '0' && (tok[1] == 'x' || tok[1] == 'X') {
		return tok[2:], true
	}
	return tok, hex
}

func parseChunks(tok []byte) (chunked, error) {
	var d chunked

	for len(tok) > 1 && tok[0] == '0' {
		tok = tok[1:]
	}
	if len(tok) > maxChunks*chunkDigits {
		return d, ErrRange
	}

	end := len(tok)
	for end > 0 {
		start := end - chunkDigits
		if start < 0 {
			start = 0
		}

		var v uint16
		for _, c := range tok[start:end] {
			if c < '0' || c > '9' {
				return d, ErrSyntax
			}
			v = v*10 + uint16(c-'0')
		}

		d.c[d.n] = v
		d.n++
		end = start
	}

	for d.n > 1 && d.c[d.n-1] == 0 {
		d.n--
	}

	return d, nil
}

func parseHex(tok []byte, bits int) (uint64, error) {
	var max uint64 = math.MaxUint64
	if bits < 64 {
		max = 1<<uint(bits) - 1
	}

	var v uint64
	for _, c := range tok {
		var nib uint64
		switch {
		case c >= '0' && c <= '9':
			nib = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			nib = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			nib = uint64(c-'A') + 10
		default:
			return 0, ErrSyntax
		}
		if v > max>>4 {
			return 0, ErrRange
		}
		v = v<<4 | nib
		if v > max {
			return 0, ErrRange
		}
	}

	return v, nil
}

// signed narrows a hex-parsed magnitude into a signed width.
func signed(mag uint64, neg bool, bits int) (int64, error) {
	var top uint64 = math.MaxInt64
	if bits < 64 {
		top = 1<<uint(bits-1) - 1
	}
	if neg {
		top++
	}
	if mag > top {
		return 0, ErrRange
	}
	if neg {
		return -int64(mag-1) - 1, nil
	}
	return int64(mag), nil
}

func mapStrconvErr(err error) error {
	if err == nil {
		return nil
	}
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return ErrRange
	}
	return ErrSyntax
}

const hexDigits = "0123456789abcdef"

// AppendUint renders v per the format spec and appends it to dst. The
// decimal path mirrors the chunked parser: four-digit remainder groups
// extracted least significant first.
func AppendUint(dst []byte, v uint64, f Format) []byte {
	var rev [20]byte // digits, least significant first
	n := 0

	if f.Hex {
		for {
			rev[n] = hexDigits[v&0xF]
			n++
			v >>= 4
			if v == 0 {
				break
			}
		}
	} else {
		for {
			rem := uint16(v % chunkBase)
			v /= chunkBase
			for i := 0; i < chunkDigits; i++ {
				rev[n] = byte(rem%10) + '0'
				rem /= 10
				n++
			}
			if v == 0 {
				break
			}
		}
		for n > 1 && rev[n-1] == '0' {
			n--
		}
	}

	return appendPadded(dst, rev[:n], false, f)
}

// AppendInt is AppendUint with a sign. Hex renders the two's-complement
// magnitude with a leading minus, matching the parser.
func AppendInt(dst []byte, v int64, f Format) []byte {
	mag := uint64(v)
	if v < 0 {
		mag = -uint64(v)
	}

	var rev [20]byte
	n := 0
	if f.Hex {
		for {
			rev[n] = hexDigits[mag&0xF]
			n++
			mag >>= 4
			if mag == 0 {
				break
			}
		}
	} else {
		for {
			rem := uint16(mag % chunkBase)
			mag /= chunkBase
			for i := 0; i < chunkDigits; i++ {
				rev[n] = byte(rem%10) + '0'
				rem /= 10
				n++
			}
			if mag == 0 {
				break
			}
		}
		for n > 1 && rev[n-1] == '0' {
			n--
		}
	}

	return appendPadded(dst, rev[:n], v < 0, f)
}

// appendPadded writes the reversed digit run into a field of at least
// f.Width bytes. Zero padding goes between the sign and the digits;
// left alignment always pads with spaces.
func appendPadded(dst, rev []byte, neg bool, f Format) []byte {
	width := len(rev)
	if neg {
		width++
	}

	pad := f.Width - width
	if pad < 0 {
		pad = 0
	}

	padByte := f.Pad
	if padByte == 0 {
		padByte = ' '
	}

	if !f.Left && padByte == '0' {
		if neg {
			dst = append(dst, '-')
			neg = false
		}
		for ; pad > 0; pad-- {
			dst = append(dst, '0')
		}
	} else if !f.Left {
		for ; pad > 0; pad-- {
			dst = append(dst, padByte)
		}
	}

	if neg {
		dst = append(dst, '-')
	}
	for i := len(rev) - 1; i >= 0; i-- {
		dst = append(dst, rev[i])
	}

	if f.Left {
		for ; pad > 0; pad-- {
			dst = append(dst, ' ')
		}
	}

	return dst
}
