package engine

// Fault enumerates everything that can go wrong inside a command cycle.
// The engine carries exactly one, sticky: the first fault of a cycle
// wins and later ones are ignored until the register is cleared.
type Fault uint8

const (
	FaultNone Fault = iota

	// FaultTableFull: Register was called on a full command table.
	FaultTableFull

	// FaultRecvOverflow: an incoming command outgrew the receive buffer.
	FaultRecvOverflow

	// FaultRecvUnderflow: a handler asked for more arguments than the
	// command carried.
	FaultRecvUnderflow

	// FaultRecvTimeout: a partial command sat in the receive buffer past
	// the configured deadline.
	FaultRecvTimeout

	// FaultSendOverflow: a reply outgrew the send buffer.
	FaultSendOverflow

	// FaultUnknownCommand: no registry match and no fallback installed.
	FaultUnknownCommand

	// FaultBadArg: an argument token exists but does not parse.
	FaultBadArg

	// FaultHandler: a handler reported failure.
	FaultHandler

	// FaultBadPacket: binary framing failed (length or checksum).
	FaultBadPacket

	// FaultParse: a text line failed to tokenize.
	FaultParse

	// FaultUnsupported: the operation is not available on this build.
	FaultUnsupported
)

var faultNames = [...]string{
	FaultNone:           "no error",
	FaultTableFull:      "command table full",
	FaultRecvOverflow:   "receive overflow",
	FaultRecvUnderflow:  "missing argument",
	FaultRecvTimeout:    "receive timeout",
	FaultSendOverflow:   "send overflow",
	FaultUnknownCommand: "unknown command",
	FaultBadArg:         "bad argument",
	FaultHandler:        "command failed",
	FaultBadPacket:      "bad packet",
	FaultParse:          "parse error",
	FaultUnsupported:    "unsupported operation",
}

func (f Fault) String() string {
	if int(f) < len(faultNames) {
		return faultNames[f]
	}
	return "unknown fault"
}
