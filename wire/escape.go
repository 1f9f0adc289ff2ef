package wire

// escapes pairs the letter written after a backslash with the byte it
// denotes. The first three entries keep quoting unambiguous; e and d are
// non-standard spellings for ESC and DEL.
var escapes = [...]struct{ letter, value byte }{
	{'\'', '\''},
	{'"', '"'},
	{'\\', '\\'},
	{'a', 0x07},
	{'b', 0x08},
	{'f', 0x0C},
	{'n', 0x0A},
	{'r', 0x0D},
	{'t', 0x09},
	{'v', 0x0B},
	{'e', 0x1B},
	{'d', 0x7F},
}

// Unescape resolves the letter following a backslash. ok is false for
// letters outside the table.
func Unescape(letter byte) (value byte, ok bool) {
	for _, e := range escapes {
		if e.letter == letter {
			return e.value, true
		}
	}
	return 0, false
}

// EscapeOf is the reverse lookup: the letter that denotes value, if any.
func EscapeOf(value byte) (letter byte, ok bool) {
	for _, e := range escapes {
		if e.value == value {
			return e.letter, true
		}
	}
	return 0, false
}

// EscapeCount reports the size of the escape table. Tests iterate the
// table through EscapeAt.
func EscapeCount() int { return len(escapes) }

// EscapeAt returns the i'th letter/value pair of the escape table.
func EscapeAt(i int) (letter, value byte) {
	return escapes[i].letter, escapes[i].value
}

// IsSpace reports whether b separates tokens on a command line.
func IsSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\v', '\f', '\r', '\n':
		return true
	}
	return false
}

// NeedsQuoting reports whether tok can not be sent bare: it is empty or
// contains whitespace, a quote character, a backslash, the comment
// marker, or a byte the escape table exists for.
func NeedsQuoting(tok []byte) bool {
	if len(tok) == 0 {
		return true
	}

	for _, b := range tok {
		if IsSpace(b) || b == '\'' || b == '"' || b == '\\' || b == '#' || b < 0x20 || b == 0x7F {
			return true
		}
	}

	return false
}

// AppendQuoted wraps tok in the given quote character, escaping the
// quote, the backslash and every control byte through the table.
func AppendQuoted(dst, tok []byte, quote byte) []byte {
	dst = append(dst, quote)

	for _, b := range tok {
		if b == quote || b == '\\' || b < 0x20 || b == 0x7F {
			if letter, ok := EscapeOf(b); ok {
				dst = append(dst, '\\', letter)
				continue
			}
		}
		dst = append(dst, b)
	}

	return append(dst, quote)
}
