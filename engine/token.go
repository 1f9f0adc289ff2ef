package engine

import "github.com/luma/tiller/wire"

const (
	tokPlain = iota
	tokString // inside "..."
	tokChar   // inside '...'
)

// tokenize rewrites the received line in place, one left-to-right pass:
// whitespace runs become single NUL separators, quotes are stripped,
// backslash escapes resolve through the wire table, and a bare #
// discards the rest of the line. Sets the token region and count;
// returns false (latching a parse fault) on an unterminated quote or an
// unknown escape.
func (e *Engine) tokenize() bool {
	src := e.recvBuf[:e.recvLen]

	w := 0
	argc := 0
	mode := tokPlain
	inTok := false

	// The separator may land one past the line; the overflow check in
	// feedText reserves that slot.
	endTok := func() {
		e.recvBuf[w] = 0
		w++
		argc++
		inTok = false
	}

scan:
	for r := 0; r < len(src); r++ {
		c := src[r]

		switch mode {
		case tokPlain:
			switch {
			case c == '"':
				mode = tokString
				inTok = true
			case c == '\'':
				mode = tokChar
				inTok = true
			case c == '#':
				break scan
			case wire.IsSpace(c):
				if inTok {
					endTok()
				}
			default:
				inTok = true
				src[w] = c
				w++
			}

		default: // inside quotes
			switch {
			case c == '\\':
				r++
				if r >= len(src) {
					e.setFault(FaultParse)
					return false
				}
				v, ok := wire.Unescape(src[r])
				if !ok {
					e.setFault(FaultParse)
					return false
				}
				src[w] = v
				w++
			case mode == tokString && c == '"', mode == tokChar && c == '\'':
				mode = tokPlain
			default:
				src[w] = c
				w++
			}
		}
	}

	if mode != tokPlain {
		e.setFault(FaultParse)
		return false
	}
	if inTok {
		endTok()
	}

	e.tokEnd = w
	e.argc = argc
	e.readPos = 0
	return true
}

// nextToken returns the next NUL-terminated token and advances the read
// cursor. The slice is a borrowed view into the receive buffer.
func (e *Engine) nextToken() ([]byte, bool) {
	if e.readPos >= e.tokEnd {
		return nil, false
	}

	start := e.readPos
	for e.readPos < e.tokEnd && e.recvBuf[e.readPos] != 0 {
		e.readPos++
	}

	tok := e.recvBuf[start:e.readPos]
	e.readPos++ // past the separator
	return tok, true
}
