package xproto

import (
	"github.com/rxserver/rxserver/errors"
	"github.com/rxserver/rxserver/internal/wire"
)

// Setup errors carry a distinct disposition (SetupFailed + close) from the
// post-handshake error taxonomy.
var (
	ErrInvalidByteOrder          = errors.New("xproto: invalid byte order")
	ErrUnsupportedProtocolVersion = errors.New("xproto: unsupported protocol version")
)

// SetupRequest is the parsed client setup request: the 12-byte fixed
// prefix plus its two length-prefixed, 4-byte-padded variable fields.
type SetupRequest struct {
	Order              wire.Order
	MajorVersion       uint16
	MinorVersion       uint16
	AuthProtocolName   string
	AuthProtocolData   []byte
}

// SetupHeaderSize is the size of the fixed portion every setup request
// carries before its two variable-length fields.
const SetupHeaderSize = 12

// ExpectedSetupSize computes the total byte count the connection loop must
// accumulate before calling ParseSetupRequest, from the 12-byte prefix
// alone. Returns an error if the prefix itself is incomplete.
func ExpectedSetupSize(b []byte) (int, error) {
	if len(b) < SetupHeaderSize {
		return 0, wire.ErrInsufficientData
	}
	if !wire.Valid(b[0]) {
		return 0, ErrInvalidByteOrder
	}
	order := wire.Order(b[0])
	nameLen, err := order.Uint16(b[6:8])
	if err != nil {
		return 0, err
	}
	dataLen, err := order.Uint16(b[8:10])
	if err != nil {
		return 0, err
	}
	return SetupHeaderSize + wire.RoundUp4(int(nameLen)) + wire.RoundUp4(int(dataLen)), nil
}

// ParseSetupRequest decodes a complete setup request. b must have exactly
// the length ExpectedSetupSize(b) reported.
func ParseSetupRequest(b []byte) (*SetupRequest, error) {
	if len(b) < SetupHeaderSize {
		return nil, wire.ErrInsufficientData
	}
	if !wire.Valid(b[0]) {
		return nil, ErrInvalidByteOrder
	}
	order := wire.Order(b[0])
	major, err := order.Uint16(b[2:4])
	if err != nil {
		return nil, err
	}
	minor, err := order.Uint16(b[4:6])
	if err != nil {
		return nil, err
	}
	nameLen, err := order.Uint16(b[6:8])
	if err != nil {
		return nil, err
	}
	dataLen, err := order.Uint16(b[8:10])
	if err != nil {
		return nil, err
	}
	offset := SetupHeaderSize
	paddedName := wire.RoundUp4(int(nameLen))
	paddedData := wire.RoundUp4(int(dataLen))
	if len(b) < offset+paddedName+paddedData {
		return nil, wire.ErrInsufficientData
	}
	name := string(b[offset : offset+int(nameLen)])
	offset += paddedName
	data := append([]byte(nil), b[offset:offset+int(dataLen)]...)

	return &SetupRequest{
		Order:            order,
		MajorVersion:     major,
		MinorVersion:     minor,
		AuthProtocolName: name,
		AuthProtocolData: data,
	}, nil
}

// PixmapFormat is one entry of the setup reply's format list: supported
// depth/bits-per-pixel/scanline-pad combinations.
type PixmapFormat struct {
	Depth        byte
	BitsPerPixel byte
	ScanlinePad  byte
}

// Visual describes one VISUALTYPE record nested inside a Depth record.
type Visual struct {
	VisualID        uint32
	Class           byte
	BitsPerRGBValue byte
	ColormapEntries uint16
	RedMask         uint32
	GreenMask       uint32
	BlueMask        uint32
}

// Depth is one DEPTH record: a depth value plus the visuals available at
// that depth.
type Depth struct {
	Depth   byte
	Visuals []Visual
}

// Screen describes the single logical screen this server exposes.
type Screen struct {
	Root              XID
	DefaultColormap   uint32
	WhitePixel        uint32
	BlackPixel        uint32
	CurrentInputMasks uint32
	WidthPixels       uint16
	HeightPixels      uint16
	WidthMM           uint16
	HeightMM          uint16
	MinInstalledMaps  uint16
	MaxInstalledMaps  uint16
	RootVisual        uint32
	BackingStores     byte
	SaveUnders        bool
	RootDepth         byte
	Depths            []Depth
}

// SuccessReply carries everything needed to render the "Success" setup
// reply body (§4.5): release number, resource id base/mask, vendor string,
// pixmap formats and the screen list.
type SuccessReply struct {
	ProtocolMajor, ProtocolMinor uint16
	ReleaseNumber                uint32
	ResourceIDBase, ResourceIDMask uint32
	MotionBufferSize              uint32
	MaxRequestLength              uint16
	ImageByteOrder                byte // 0 LSBFirst, 1 MSBFirst
	BitmapBitOrder                byte
	BitmapScanlineUnit            byte
	BitmapScanlinePad             byte
	MinKeycode, MaxKeycode        byte
	Vendor                        string
	Formats                       []PixmapFormat
	Screens                       []Screen
}

// SerializeSuccess renders the full "Success" setup reply: 8-byte header,
// 32-byte fixed body, vendor string, formats, and screens with their
// nested depths/visuals. additional_data_length is computed from the
// actual serialized payload, never hard-coded, per §4.5.
func SerializeSuccess(order wire.Order, r SuccessReply) []byte {
	body := make([]byte, 0, 256)

	// 32-byte fixed body (offsets relative to body start, which is byte 8
	// of the overall reply).
	body = order.AppendUint32(body, r.ReleaseNumber)
	body = order.AppendUint32(body, r.ResourceIDBase)
	body = order.AppendUint32(body, r.ResourceIDMask)
	body = order.AppendUint32(body, r.MotionBufferSize)
	body = order.AppendUint16(body, uint16(len(r.Vendor)))
	body = order.AppendUint16(body, r.MaxRequestLength)
	body = append(body, byte(len(r.Screens)))
	body = append(body, byte(len(r.Formats)))
	body = append(body, r.ImageByteOrder)
	body = append(body, r.BitmapBitOrder)
	body = append(body, r.BitmapScanlineUnit)
	body = append(body, r.BitmapScanlinePad)
	body = append(body, r.MinKeycode)
	body = append(body, r.MaxKeycode)
	body = order.AppendUint32(body, 0) // unused

	body = wire.AppendPadded(body, []byte(r.Vendor))

	for _, f := range r.Formats {
		body = append(body, f.Depth, f.BitsPerPixel, f.ScanlinePad, 0, 0, 0, 0, 0)
	}

	for _, s := range r.Screens {
		body = order.AppendUint32(body, uint32(s.Root))
		body = order.AppendUint32(body, s.DefaultColormap)
		body = order.AppendUint32(body, s.WhitePixel)
		body = order.AppendUint32(body, s.BlackPixel)
		body = order.AppendUint32(body, s.CurrentInputMasks)
		body = order.AppendUint16(body, s.WidthPixels)
		body = order.AppendUint16(body, s.HeightPixels)
		body = order.AppendUint16(body, s.WidthMM)
		body = order.AppendUint16(body, s.HeightMM)
		body = order.AppendUint16(body, s.MinInstalledMaps)
		body = order.AppendUint16(body, s.MaxInstalledMaps)
		body = order.AppendUint32(body, s.RootVisual)
		body = append(body, s.BackingStores)
		saveUnder := byte(0)
		if s.SaveUnders {
			saveUnder = 1
		}
		body = append(body, saveUnder)
		body = append(body, s.RootDepth)
		body = append(body, byte(len(s.Depths)))

		for _, d := range s.Depths {
			body = append(body, d.Depth, 0)
			body = order.AppendUint16(body, uint16(len(d.Visuals)))
			body = order.AppendUint32(body, 0) // unused
			for _, v := range d.Visuals {
				body = order.AppendUint32(body, v.VisualID)
				body = append(body, v.Class, v.BitsPerRGBValue)
				body = order.AppendUint16(body, v.ColormapEntries)
				body = order.AppendUint32(body, v.RedMask)
				body = order.AppendUint32(body, v.GreenMask)
				body = order.AppendUint32(body, v.BlueMask)
				body = order.AppendUint32(body, 0) // unused
			}
		}
	}

	additionalWords := uint32(len(body) / 4)
	out := make([]byte, 8, 8+len(body))
	out[0] = 1
	out[1] = 0
	order.PutUint16(out[2:4], r.ProtocolMajor)
	order.PutUint16(out[4:6], r.ProtocolMinor)
	order.PutUint16(out[6:8], uint16(additionalWords))
	out = append(out, body...)
	return out
}

// SerializeFailed renders the "Failed" setup reply: 1 byte reason length,
// protocol major/minor, additional length, then the reason string padded
// to 4 bytes.
func SerializeFailed(order wire.Order, protoMajor, protoMinor uint16, reason string) []byte {
	out := make([]byte, 8)
	out[0] = 0 // Failed
	out[1] = byte(len(reason))
	order.PutUint16(out[2:4], protoMajor)
	order.PutUint16(out[4:6], protoMinor)
	padded := wire.RoundUp4(len(reason))
	order.PutUint16(out[6:8], uint16(padded/4))
	out = wire.AppendPadded(out, []byte(reason))
	return out
}
