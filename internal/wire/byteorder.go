// Package wire implements the byte-order-aware codec and request/reply
// framing primitives that sit underneath the X11 wire protocol. Every
// higher layer (internal/xproto) reads and writes through an Order value
// negotiated once per connection during the setup handshake.
package wire

import "github.com/rxserver/rxserver/errors"

// ErrInsufficientData is returned by any Order read method (Uint16, Uint32,
// Int16, ...) when the supplied
// slice does not contain enough bytes to satisfy the read. Callers must
// treat this as "come back with more data", never as a protocol error.
var ErrInsufficientData = errors.New("wire: insufficient data")

// Order selects the per-connection byte order, chosen by the client during
// the setup handshake (byte 0 of the setup request: 'l' little, 'B' big).
type Order byte

const (
	LittleEndian Order = 'l'
	BigEndian    Order = 'B'
)

// Valid reports whether b is one of the two byte-order markers X11 defines.
func Valid(b byte) bool {
	return b == byte(LittleEndian) || b == byte(BigEndian)
}

// Uint16 decodes a 2-byte unsigned integer at offset 0 of b in the
// connection's byte order. b must have at least 2 bytes.
func (o Order) Uint16(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, ErrInsufficientData
	}
	if o == BigEndian {
		return uint16(b[0])<<8 | uint16(b[1]), nil
	}
	return uint16(b[1])<<8 | uint16(b[0]), nil
}

// Uint32 decodes a 4-byte unsigned integer at offset 0 of b.
func (o Order) Uint32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, ErrInsufficientData
	}
	if o == BigEndian {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
	}
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0]), nil
}

// Int16 decodes a 2-byte signed integer (many X11 geometry fields are i16).
func (o Order) Int16(b []byte) (int16, error) {
	u, err := o.Uint16(b)
	return int16(u), err
}

// PutUint16 writes v into b[0:2] in the connection's byte order. b must have
// at least 2 bytes of capacity.
func (o Order) PutUint16(b []byte, v uint16) {
	if o == BigEndian {
		b[0] = byte(v >> 8)
		b[1] = byte(v)
		return
	}
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// PutUint32 writes v into b[0:4] in the connection's byte order.
func (o Order) PutUint32(b []byte, v uint32) {
	if o == BigEndian {
		b[0] = byte(v >> 24)
		b[1] = byte(v >> 16)
		b[2] = byte(v >> 8)
		b[3] = byte(v)
		return
	}
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// PutInt16 writes a signed 16-bit value.
func (o Order) PutInt16(b []byte, v int16) {
	o.PutUint16(b, uint16(v))
}

// AppendUint16 appends a 2-byte encoding of v to b and returns the result.
func (o Order) AppendUint16(b []byte, v uint16) []byte {
	var tmp [2]byte
	o.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

// AppendUint32 appends a 4-byte encoding of v to b and returns the result.
func (o Order) AppendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	o.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}
