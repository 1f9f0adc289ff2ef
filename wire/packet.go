package wire

import "errors"

const (
	// MaxPacket is the largest total packet size the length byte can express.
	MaxPacket = 255

	// MinPacket is a bare length byte plus its checksum.
	MinPacket = 2
)

var (
	ErrPacketLength   = errors.New("wire: packet length byte is invalid")
	ErrPacketChecksum = errors.New("wire: packet checksum mismatch")
)

// Checksum returns the two's complement of the byte sum of data, so that
// appending it makes the whole run sum to 0 mod 256.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}

// ValidatePacket checks a complete packet: the length byte must match the
// packet size and the bytes, checksum included, must sum to zero.
func ValidatePacket(pkt []byte) error {
	if len(pkt) < MinPacket || len(pkt) > MaxPacket || int(pkt[0]) != len(pkt) {
		return ErrPacketLength
	}

	var sum byte
	for _, b := range pkt {
		sum += b
	}

	if sum != 0 {
		return ErrPacketChecksum
	}

	return nil
}

// Seal finishes a packet being built in place. buf[0] is the reserved
// length slot, buf[1:used] the body; the checksum lands at buf[used].
// buf must have room for it. Returns the total packet size.
func Seal(buf []byte, used int) int {
	total := used + 1
	buf[0] = byte(total)
	buf[used] = Checksum(buf[:used])
	return total
}

// AppendPacket frames body (for incoming packets: command code followed
// by payload) and appends the full packet to dst.
func AppendPacket(dst, body []byte) ([]byte, error) {
	total := len(body) + 2
	if total > MaxPacket {
		return dst, ErrPacketLength
	}

	start := len(dst)
	dst = append(dst, byte(total))
	dst = append(dst, body...)
	dst = append(dst, Checksum(dst[start:]))

	return dst, nil
}
