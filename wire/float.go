package wire

import "strconv"

// FloatFormat controls floating point rendering.
type FloatFormat struct {
	Width int  // minimum field width, space padded on the left
	Prec  int  // digits after the point; 0 formats shortest and trims trailing zeros
	Sci   bool // scientific (exponent) form
}

// ParseFloat parses a decimal or exponent-form token and checks it fits
// the target width (32 or 64 bits).
func ParseFloat(tok []byte, bits int) (float64, error) {
	if len(tok) == 0 {
		return 0, ErrSyntax
	}

	v, err := strconv.ParseFloat(unsafeString(tok), bits)
	if err != nil {
		return 0, mapStrconvErr(err)
	}

	return v, nil
}

// AppendFloat renders v per the format spec and appends it to dst.
func AppendFloat(dst []byte, v float64, bits int, f FloatFormat) []byte {
	verb := byte('f')
	if f.Sci {
		verb = 'e'
	}

	prec := f.Prec
	if prec <= 0 {
		prec = -1
	}

	start := len(dst)
	dst = strconv.AppendFloat(dst, v, verb, prec, bits)

	if pad := f.Width - (len(dst) - start); pad > 0 {
		// Shift right inside the field; the engine hands us slices with
		// spare capacity so this stays allocation free in practice.
		for i := 0; i < pad; i++ {
			dst = append(dst, ' ')
		}
		copy(dst[start+pad:], dst[start:len(dst)-pad])
		for i := 0; i < pad; i++ {
			dst[start+i] = ' '
		}
	}

	return dst
}
