package wire

// BoolStyle selects the text spelling of a boolean on output. Input
// accepts every style, case-insensitively.
type BoolStyle uint8

const (
	BoolWord   BoolStyle = iota // true / false
	BoolLetter                  // t / f
	BoolDigit                   // 1 / 0
	BoolYesNo                   // yes / no
	BoolYN                      // y / n
)

var boolSpellings = [...]struct {
	tok   string
	value bool
}{
	{"true", true}, {"false", false},
	{"t", true}, {"f", false},
	{"1", true}, {"0", false},
	{"yes", true}, {"no", false},
	{"y", true}, {"n", false},
}

// ParseBool matches tok against every accepted spelling, ignoring case.
func ParseBool(tok []byte) (bool, error) {
	for _, s := range boolSpellings {
		if len(tok) != len(s.tok) {
			continue
		}
		match := true
		for i := 0; i < len(tok); i++ {
			c := tok[i]
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != s.tok[i] {
				match = false
				break
			}
		}
		if match {
			return s.value, nil
		}
	}

	return false, ErrSyntax
}

// AppendBool renders v in the chosen style and case.
func AppendBool(dst []byte, v bool, style BoolStyle, upper bool) []byte {
	var tok string
	switch style {
	case BoolLetter:
		tok = "f"
		if v {
			tok = "t"
		}
	case BoolDigit:
		tok = "0"
		if v {
			tok = "1"
		}
	case BoolYesNo:
		tok = "no"
		if v {
			tok = "yes"
		}
	case BoolYN:
		tok = "n"
		if v {
			tok = "y"
		}
	default:
		tok = "false"
		if v {
			tok = "true"
		}
	}

	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		dst = append(dst, c)
	}

	return dst
}
