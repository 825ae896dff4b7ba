package wire

// Pad4 returns the number of zero bytes needed to round n up to a multiple
// of 4, the padding unit every variable-length X11 field uses.
func Pad4(n int) int {
	return (4 - (n % 4)) % 4
}

// RoundUp4 rounds n up to the nearest multiple of 4.
func RoundUp4(n int) int {
	return n + Pad4(n)
}

// AppendPadded appends s followed by enough zero bytes to land on a 4-byte
// boundary, and returns the extended slice.
func AppendPadded(b []byte, s []byte) []byte {
	b = append(b, s...)
	for i := 0; i < Pad4(len(s)); i++ {
		b = append(b, 0)
	}
	return b
}

// RequestHeader is the 4-byte prefix common to every post-setup client
// request: an opcode, an opcode-dependent second byte, and a length in
// 4-byte words that includes the header itself.
type RequestHeader struct {
	MajorOpcode byte
	SecondByte  byte
	LengthWords uint16
}

// ByteLength returns the total request size in bytes, header included.
func (h RequestHeader) ByteLength() int {
	return int(h.LengthWords) * 4
}

// ParseRequestHeader reads the 4-byte request header from the front of b.
// It does not validate LengthWords != 0; callers apply that protocol rule
// themselves since it carries a distinct disposition (close the connection)
// from ordinary insufficient-data.
func ParseRequestHeader(order Order, b []byte) (RequestHeader, error) {
	if len(b) < 4 {
		return RequestHeader{}, ErrInsufficientData
	}
	length, err := order.Uint16(b[2:4])
	if err != nil {
		return RequestHeader{}, err
	}
	return RequestHeader{
		MajorOpcode: b[0],
		SecondByte:  b[1],
		LengthWords: length,
	}, nil
}

// FixedFrameSize is the size in bytes of every reply, error and event frame
// before any reply's variable trailing data.
const FixedFrameSize = 32
