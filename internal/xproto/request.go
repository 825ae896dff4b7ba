package xproto

import (
	"github.com/rxserver/rxserver/errors"
	"github.com/rxserver/rxserver/internal/wire"
)

// ErrBadRequest marks a request body that parsed structurally but violates
// a protocol constraint (bad length, bad enum value). The connection state
// machine turns this into an X11 Request error and keeps the connection
// open.
var ErrBadRequest = errors.New("xproto: bad request")

// ErrUnknownOpcode marks a major opcode this server does not recognize at
// all. Distinct from ErrBadRequest only for logging; both produce the same
// wire disposition (a Request error).
var ErrUnknownOpcode = errors.New("xproto: unknown opcode")

// Request is the parsed form of one client request. Exactly one of the
// typed fields is populated, selected by Opcode; unhandled-but-known
// opcodes carry only the header and raw body.
type Request struct {
	Header wire.RequestHeader
	Opcode byte
	Raw    []byte // full request body, header included, for logging/passthrough

	CreateWindow      *CreateWindowRequest
	DestroyWindow     *DestroyWindowRequest
	MapWindow         *MapWindowRequest
	UnmapWindow       *UnmapWindowRequest
	GetGeometry       *GetGeometryRequest
	InternAtom        *InternAtomRequest
	GetAtomName       *GetAtomNameRequest
	GrabPointer       *GrabPointerRequest
	UngrabPointer     *UngrabPointerRequest
	OpenFont          *OpenFontRequest
	CloseFont         *CloseFontRequest
	CreateGlyphCursor *CreateGlyphCursorRequest
	FreeCursor        *FreeCursorRequest
	CreateGC          *CreateGCRequest
	FreeGC            *FreeGCRequest
	QueryExtension    *QueryExtensionRequest

	// Unhandled is true for opcodes recognized by the dispatch table as
	// "known but not implemented" (must be consumed and ignored, never
	// errored) versus a genuinely unrecognized major opcode.
	Unhandled bool
}

type CreateWindowRequest struct {
	Depth    byte
	Wid      XID
	Parent   XID
	Geometry Rectangle
	Border   uint16
	Class    WindowClass
	Visual   uint32
	ValueMask uint32
	Values    []uint32
}

type DestroyWindowRequest struct{ Window XID }
type MapWindowRequest struct{ Window XID }
type UnmapWindowRequest struct{ Window XID }
type GetGeometryRequest struct{ Drawable XID }

type InternAtomRequest struct {
	OnlyIfExists bool
	Name         string
}

type GetAtomNameRequest struct{ Atom AtomID }

type GrabPointerRequest struct {
	OwnerEvents  bool
	GrabWindow   XID
	EventMask    uint16
	PointerMode  GrabMode
	KeyboardMode GrabMode
	ConfineTo    XID
	Cursor       XID
	Time         uint32
}

type UngrabPointerRequest struct{ Time uint32 }

type OpenFontRequest struct {
	Fid  XID
	Name string
}

type CloseFontRequest struct{ Fid XID }

type CreateGlyphCursorRequest struct {
	Cid        XID
	SourceFont XID
	MaskFont   XID
	SourceChar uint16
	MaskChar   uint16
	ForeRed, ForeGreen, ForeBlue uint16
	BackRed, BackGreen, BackBlue uint16
}

type FreeCursorRequest struct{ Cursor XID }

type CreateGCRequest struct {
	Cid       XID
	Drawable  XID
	ValueMask uint32
	Values    []uint32
}

type FreeGCRequest struct{ Gc XID }

type QueryExtensionRequest struct{ Name string }

// Parse dispatches on header.MajorOpcode and decodes body (the bytes after
// the 4-byte header, i.e. body has header.ByteLength()-4 bytes) into a
// typed Request. body must be exactly that length; the caller (the
// connection loop) is responsible for having already drained a complete
// frame per the wire-framing rules in internal/wire.
func Parse(order wire.Order, header wire.RequestHeader, body []byte) (*Request, error) {
	req := &Request{Header: header, Opcode: header.MajorOpcode, Raw: body}

	switch header.MajorOpcode {
	case OpCreateWindow:
		return req, parseCreateWindow(order, header, body, req)
	case OpDestroyWindow:
		wid, err := fixed4Window(order, header, body)
		if err != nil {
			return nil, err
		}
		req.DestroyWindow = &DestroyWindowRequest{Window: wid}
		return req, nil
	case OpMapWindow:
		wid, err := fixed4Window(order, header, body)
		if err != nil {
			return nil, err
		}
		req.MapWindow = &MapWindowRequest{Window: wid}
		return req, nil
	case OpUnmapWindow:
		wid, err := fixed4Window(order, header, body)
		if err != nil {
			return nil, err
		}
		req.UnmapWindow = &UnmapWindowRequest{Window: wid}
		return req, nil
	case OpGetGeometry:
		wid, err := fixed4Window(order, header, body)
		if err != nil {
			return nil, err
		}
		req.GetGeometry = &GetGeometryRequest{Drawable: wid}
		return req, nil
	case OpInternAtom:
		return req, parseInternAtom(order, header, body, req)
	case OpGetAtomName:
		aid, err := fixed4Window(order, header, body)
		if err != nil {
			return nil, err
		}
		req.GetAtomName = &GetAtomNameRequest{Atom: AtomID(aid)}
		return req, nil
	case OpGrabPointer:
		return req, parseGrabPointer(order, header, body, req)
	case OpUngrabPointer:
		if len(body) < 4 {
			return nil, ErrBadRequest
		}
		t, err := order.Uint32(body[0:4])
		if err != nil {
			return nil, err
		}
		req.UngrabPointer = &UngrabPointerRequest{Time: t}
		return req, nil
	case OpOpenFont:
		return req, parseOpenFont(order, header, body, req)
	case OpCloseFont:
		fid, err := fixed4Window(order, header, body)
		if err != nil {
			return nil, err
		}
		req.CloseFont = &CloseFontRequest{Fid: fid}
		return req, nil
	case OpCreateGlyphCursor:
		return req, parseCreateGlyphCursor(order, header, body, req)
	case OpFreeCursor:
		cid, err := fixed4Window(order, header, body)
		if err != nil {
			return nil, err
		}
		req.FreeCursor = &FreeCursorRequest{Cursor: cid}
		return req, nil
	case OpCreateGC:
		return req, parseCreateGC(order, header, body, req)
	case OpFreeGC:
		gid, err := fixed4Window(order, header, body)
		if err != nil {
			return nil, err
		}
		req.FreeGC = &FreeGCRequest{Gc: gid}
		return req, nil
	case OpQueryExtension:
		return req, parseQueryExtension(order, header, body, req)
	case OpNoOperation:
		return req, nil
	default:
		// Core opcodes run 1-127; no extension is advertised, so anything
		// outside that range is unknown.
		if header.MajorOpcode == 0 || header.MajorOpcode > OpNoOperation {
			return nil, ErrUnknownOpcode
		}
		req.Unhandled = true
		return req, nil
	}
}

// fixed4Window decodes the common shape "4-byte XID, no other body",
// shared by DestroyWindow/MapWindow/UnmapWindow/GetGeometry/CloseFont/
// FreeCursor/FreeGC/GetAtomName.
func fixed4Window(order wire.Order, header wire.RequestHeader, body []byte) (XID, error) {
	if header.ByteLength() != 8 || len(body) < 4 {
		return 0, ErrBadRequest
	}
	v, err := order.Uint32(body[0:4])
	if err != nil {
		return 0, err
	}
	return XID(v), nil
}

func parseCreateWindow(order wire.Order, header wire.RequestHeader, body []byte, req *Request) error {
	if len(body) < 28 {
		return ErrBadRequest
	}
	wid, _ := order.Uint32(body[0:4])
	parent, _ := order.Uint32(body[4:8])
	x, _ := order.Int16(body[8:10])
	y, _ := order.Int16(body[10:12])
	w, _ := order.Uint16(body[12:14])
	h, _ := order.Uint16(body[14:16])
	border, _ := order.Uint16(body[16:18])
	class, _ := order.Uint16(body[18:20])
	visual, _ := order.Uint32(body[20:24])
	if len(body) < 28 {
		req.CreateWindow = &CreateWindowRequest{
			Depth:    header.SecondByte,
			Wid:      XID(wid),
			Parent:   XID(parent),
			Geometry: Rectangle{X: x, Y: y, Width: w, Height: h},
			Border:   border,
			Class:    WindowClass(class),
			Visual:   visual,
		}
		return nil
	}
	valueMask, err := order.Uint32(body[24:28])
	if err != nil {
		// no value list present
		req.CreateWindow = &CreateWindowRequest{
			Depth:  header.SecondByte,
			Wid:    XID(wid),
			Parent: XID(parent),
			Geometry: Rectangle{X: x, Y: y, Width: w, Height: h},
			Border: border,
			Class:  WindowClass(class),
			Visual: visual,
		}
		return nil
	}
	values, err := decodeValueList(order, body[28:], valueMask)
	if err != nil {
		return err
	}
	req.CreateWindow = &CreateWindowRequest{
		Depth:     header.SecondByte,
		Wid:       XID(wid),
		Parent:    XID(parent),
		Geometry:  Rectangle{X: x, Y: y, Width: w, Height: h},
		Border:    border,
		Class:     WindowClass(class),
		Visual:    visual,
		ValueMask: valueMask,
		Values:    values,
	}
	return nil
}

func parseInternAtom(order wire.Order, header wire.RequestHeader, body []byte, req *Request) error {
	if len(body) < 4 {
		return ErrBadRequest
	}
	nameLen, _ := order.Uint16(body[0:2])
	if len(body) < 4+int(nameLen) {
		return ErrBadRequest
	}
	req.InternAtom = &InternAtomRequest{
		OnlyIfExists: header.SecondByte != 0,
		Name:         string(body[4 : 4+int(nameLen)]),
	}
	return nil
}

func parseGrabPointer(order wire.Order, header wire.RequestHeader, body []byte, req *Request) error {
	if len(body) < 20 {
		return ErrBadRequest
	}
	window, _ := order.Uint32(body[0:4])
	eventMask, _ := order.Uint16(body[4:6])
	confineTo, _ := order.Uint32(body[8:12])
	cursor, _ := order.Uint32(body[12:16])
	t, err := order.Uint32(body[16:20])
	if err != nil {
		t = 0
	}
	req.GrabPointer = &GrabPointerRequest{
		OwnerEvents:  header.SecondByte != 0,
		GrabWindow:   XID(window),
		EventMask:    eventMask,
		PointerMode:  GrabMode(body[6]),
		KeyboardMode: GrabMode(body[7]),
		ConfineTo:    XID(confineTo),
		Cursor:       XID(cursor),
		Time:         t,
	}
	return nil
}

func parseOpenFont(order wire.Order, header wire.RequestHeader, body []byte, req *Request) error {
	if len(body) < 8 {
		return ErrBadRequest
	}
	fid, _ := order.Uint32(body[0:4])
	nameLen, _ := order.Uint16(body[4:6])
	if len(body) < 8+int(nameLen) {
		return ErrBadRequest
	}
	req.OpenFont = &OpenFontRequest{Fid: XID(fid), Name: string(body[8 : 8+int(nameLen)])}
	return nil
}

func parseCreateGlyphCursor(order wire.Order, header wire.RequestHeader, body []byte, req *Request) error {
	if len(body) < 28 {
		return ErrBadRequest
	}
	cid, _ := order.Uint32(body[0:4])
	sourceFont, _ := order.Uint32(body[4:8])
	maskFont, _ := order.Uint32(body[8:12])
	sourceChar, _ := order.Uint16(body[12:14])
	maskChar, _ := order.Uint16(body[14:16])
	fr, _ := order.Uint16(body[16:18])
	fg, _ := order.Uint16(body[18:20])
	fb, _ := order.Uint16(body[20:22])
	br, _ := order.Uint16(body[22:24])
	bg, _ := order.Uint16(body[24:26])
	bb, _ := order.Uint16(body[26:28])
	req.CreateGlyphCursor = &CreateGlyphCursorRequest{
		Cid: XID(cid), SourceFont: XID(sourceFont), MaskFont: XID(maskFont),
		SourceChar: sourceChar, MaskChar: maskChar,
		ForeRed: fr, ForeGreen: fg, ForeBlue: fb,
		BackRed: br, BackGreen: bg, BackBlue: bb,
	}
	return nil
}

func parseCreateGC(order wire.Order, header wire.RequestHeader, body []byte, req *Request) error {
	if len(body) < 12 {
		return ErrBadRequest
	}
	cid, _ := order.Uint32(body[0:4])
	drawable, _ := order.Uint32(body[4:8])
	valueMask, err := order.Uint32(body[8:12])
	if err != nil {
		return err
	}
	values, err := decodeValueList(order, body[12:], valueMask)
	if err != nil {
		return err
	}
	req.CreateGC = &CreateGCRequest{Cid: XID(cid), Drawable: XID(drawable), ValueMask: valueMask, Values: values}
	return nil
}

func parseQueryExtension(order wire.Order, header wire.RequestHeader, body []byte, req *Request) error {
	if len(body) < 4 {
		return ErrBadRequest
	}
	nameLen, _ := order.Uint16(body[0:2])
	if len(body) < 4+int(nameLen) {
		return ErrBadRequest
	}
	req.QueryExtension = &QueryExtensionRequest{Name: string(body[4 : 4+int(nameLen)])}
	return nil
}

// decodeValueList reads one uint32 per set bit of mask, low bit first, the
// shape every X11 "value list" request (CreateWindow, CreateGC, ...) uses.
func decodeValueList(order wire.Order, body []byte, mask uint32) ([]uint32, error) {
	var values []uint32
	offset := 0
	for bit := 0; bit < 32; bit++ {
		if mask&(1<<uint(bit)) == 0 {
			continue
		}
		if offset+4 > len(body) {
			return nil, ErrBadRequest
		}
		v, err := order.Uint32(body[offset : offset+4])
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		offset += 4
	}
	return values, nil
}
