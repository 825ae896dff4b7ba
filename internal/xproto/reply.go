package xproto

import "github.com/rxserver/rxserver/internal/wire"

// ErrorFrame is the logical content of a 32-byte X11 error. The serializer
// stamps Sequence at write time; construction sites never set it.
type ErrorFrame struct {
	Code        byte
	BadValue    uint32
	MinorOpcode uint16
	MajorOpcode byte
}

// SerializeError renders an X11 error frame. Always exactly 32 bytes.
func SerializeError(order wire.Order, e ErrorFrame, sequence uint16) []byte {
	b := make([]byte, wire.FixedFrameSize)
	b[0] = 0 // error marker
	b[1] = e.Code
	order.PutUint16(b[2:4], sequence)
	order.PutUint32(b[4:8], e.BadValue)
	order.PutUint16(b[8:10], e.MinorOpcode)
	b[10] = e.MajorOpcode
	// b[11:32] left zero: padding
	return b
}

// Reply is the logical content of a variable-length reply. Data is the
// opcode-specific 24-byte payload (padded/truncated to exactly 24 by the
// caller) and Trailing is any additional variable-length data appended
// after the fixed 32-byte block, already padded to a 4-byte boundary.
type Reply struct {
	OpcodeByte byte // byte 1 of the reply, opcode-specific (often 0 or depth)
	Data       [24]byte
	Trailing   []byte
}

// SerializeReply renders a reply frame: 32-byte fixed header/body plus the
// trailing variable data. AdditionalLength (bytes 4:8, as a count of
// 4-byte words) is computed from len(Trailing), never hard-coded.
func SerializeReply(order wire.Order, r Reply, sequence uint16) []byte {
	b := make([]byte, wire.FixedFrameSize+len(r.Trailing))
	b[0] = 1 // reply marker
	b[1] = r.OpcodeByte
	order.PutUint16(b[2:4], sequence)
	order.PutUint32(b[4:8], uint32(len(r.Trailing)/4))
	copy(b[8:32], r.Data[:])
	copy(b[32:], r.Trailing)
	return b
}

// Event is the logical content of a 32-byte event frame.
type Event struct {
	Code       byte // top bit set for SendEvent-originated events
	Detail     byte
	Data       [28]byte
}

// SerializeEvent renders an event frame. Always exactly 32 bytes.
func SerializeEvent(order wire.Order, e Event, sequence uint16) []byte {
	b := make([]byte, wire.FixedFrameSize)
	b[0] = e.Code
	b[1] = e.Detail
	order.PutUint16(b[2:4], sequence)
	copy(b[4:32], e.Data[:])
	return b
}

// NewExposeEvent builds the Expose event emitted after MapWindow. order
// must be the destination connection's negotiated byte order: event
// payload fields follow connection order like everything else on the wire.
func NewExposeEvent(order wire.Order, window XID, r Rectangle, count uint16) Event {
	var data [28]byte
	order.PutUint32(data[0:4], uint32(window))
	order.PutUint16(data[4:6], uint16(r.X))
	order.PutUint16(data[6:8], uint16(r.Y))
	order.PutUint16(data[8:10], r.Width)
	order.PutUint16(data[10:12], r.Height)
	order.PutUint16(data[12:14], count)
	return Event{Code: EventExpose, Detail: 0, Data: data}
}

// NewConfigureNotifyEvent builds the ConfigureNotify event emitted to
// existing clients when the host display surface resizes.
func NewConfigureNotifyEvent(order wire.Order, window XID, r Rectangle, borderWidth uint16, aboveSibling XID, overrideRedirect bool) Event {
	var data [28]byte
	order.PutUint32(data[0:4], uint32(window))
	order.PutUint32(data[4:8], uint32(window))
	order.PutUint32(data[8:12], uint32(aboveSibling))
	order.PutUint16(data[12:14], uint16(r.X))
	order.PutUint16(data[14:16], uint16(r.Y))
	order.PutUint16(data[16:18], r.Width)
	order.PutUint16(data[18:20], r.Height)
	order.PutUint16(data[20:22], borderWidth)
	if overrideRedirect {
		data[22] = 1
	}
	return Event{Code: EventConfigureNotify, Detail: 0, Data: data}
}
