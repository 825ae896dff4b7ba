package server

import (
	"github.com/rxserver/rxserver/internal/display"
	"github.com/rxserver/rxserver/internal/resource"
	"github.com/rxserver/rxserver/internal/xproto"
)

// dispatchResult carries the at-most-one reply plus any events a request
// produces. A well-formed request never sets both errorFrame and reply.
type dispatchResult struct {
	reply      *xproto.Reply
	errorFrame *xproto.ErrorFrame
	events     []xproto.Event
}

// dispatch applies one parsed request to the shared resource tables and
// framebuffer, per the opcode table in §4.3. Opcodes recognized by the
// parser but outside spec.md's in-scope set (Unhandled) are silently
// acknowledged; a nil *xproto.Request opcode never reaches here unparsed.
func (c *Client) dispatch(req *xproto.Request) dispatchResult {
	switch {
	case req.CreateWindow != nil:
		return c.doCreateWindow(req.CreateWindow)
	case req.DestroyWindow != nil:
		return c.doDestroyWindow(req.DestroyWindow)
	case req.MapWindow != nil:
		return c.doMapWindow(req.MapWindow)
	case req.UnmapWindow != nil:
		return c.doUnmapWindow(req.UnmapWindow)
	case req.GetGeometry != nil:
		return c.doGetGeometry(req.GetGeometry)
	case req.InternAtom != nil:
		return c.doInternAtom(req.InternAtom)
	case req.GetAtomName != nil:
		return c.doGetAtomName(req.GetAtomName)
	case req.GrabPointer != nil:
		return c.doGrabPointer(req.GrabPointer)
	case req.UngrabPointer != nil:
		return c.doUngrabPointer(req.UngrabPointer)
	case req.OpenFont != nil:
		return c.doOpenFont(req.OpenFont)
	case req.CloseFont != nil:
		return c.doCloseFont(req.CloseFont)
	case req.CreateGlyphCursor != nil:
		return c.doCreateGlyphCursor(req.CreateGlyphCursor)
	case req.FreeCursor != nil:
		return c.doFreeCursor(req.FreeCursor)
	case req.CreateGC != nil:
		return c.doCreateGC(req.CreateGC)
	case req.FreeGC != nil:
		return c.doFreeGC(req.FreeGC)
	case req.QueryExtension != nil:
		return c.doQueryExtension(req.QueryExtension)
	default:
		// NoOperation and every other known-but-unhandled opcode: consumed
		// and silently acknowledged, per §4.3.
		return dispatchResult{}
	}
}

func (c *Client) doCreateWindow(r *xproto.CreateWindowRequest) dispatchResult {
	err := c.server.state.Windows.CreateWindow(
		r.Wid, r.Parent, r.Geometry, r.Border, r.Depth, r.Class, c.resourceClient(),
	)
	if err != nil {
		code := byte(xproto.ErrIDChoice)
		if err == resource.ErrParentMissing {
			code = xproto.ErrWindow
		}
		return errorResult(code, uint32(r.Wid))
	}
	return dispatchResult{}
}

func (c *Client) doDestroyWindow(r *xproto.DestroyWindowRequest) dispatchResult {
	win, ok := c.server.state.Windows.Get(r.Window)
	destroyed := c.server.state.Windows.DestroyWindow(r.Window)
	for _, xid := range destroyed {
		c.server.state.GCs.FreeForDrawable(xid)
	}
	if ok && win.Class != xproto.ClassInputOnly {
		c.server.fb.ClearArea(win.Geometry, blankPixel)
		c.server.publishFramebuffer()
	}
	return dispatchResult{}
}

// doMapWindow sets the mapped bit and, for an InputOutput window, paints
// its background into the framebuffer: the in-scope opcode set has no
// explicit drawing request, so a mapped window's visible representation is
// its background fill until a client with drawing opcodes (out of scope)
// would paint over it.
func (c *Client) doMapWindow(r *xproto.MapWindowRequest) dispatchResult {
	if !c.server.state.Windows.SetMapped(r.Window, true) {
		return dispatchResult{}
	}
	win, ok := c.server.state.Windows.Get(r.Window)
	if !ok {
		return dispatchResult{}
	}
	if win.Class != xproto.ClassInputOnly {
		c.server.fb.ClearArea(win.Geometry, defaultBackgroundPixel)
		c.server.publishFramebuffer()
	}
	ev := xproto.NewExposeEvent(c.order, r.Window, win.Geometry, 0)
	return dispatchResult{events: []xproto.Event{ev}}
}

func (c *Client) doUnmapWindow(r *xproto.UnmapWindowRequest) dispatchResult {
	if !c.server.state.Windows.SetMapped(r.Window, false) {
		return dispatchResult{}
	}
	win, ok := c.server.state.Windows.Get(r.Window)
	if ok && win.Class != xproto.ClassInputOnly {
		c.server.fb.ClearArea(win.Geometry, blankPixel)
		c.server.publishFramebuffer()
	}
	return dispatchResult{}
}

// defaultBackgroundPixel and blankPixel stand in for the window-attribute
// background-pixel value this server doesn't track (CreateWindow's value
// list decoding covers GC attributes, not window attributes, per the
// in-scope opcode set).
const (
	defaultBackgroundPixel = 0xFFC0C0C0
	blankPixel             = 0xFF000000
)

func (c *Client) doGetGeometry(r *xproto.GetGeometryRequest) dispatchResult {
	win, ok := c.server.state.Windows.Get(r.Drawable)
	if !ok {
		return errorResult(xproto.ErrDrawable, uint32(r.Drawable))
	}
	var data [24]byte
	c.order.PutUint32(data[0:4], uint32(c.server.state.Windows.Root()))
	c.order.PutInt16(data[4:6], win.Geometry.X)
	c.order.PutInt16(data[6:8], win.Geometry.Y)
	c.order.PutUint16(data[8:10], win.Geometry.Width)
	c.order.PutUint16(data[10:12], win.Geometry.Height)
	c.order.PutUint16(data[12:14], win.BorderWidth)
	return dispatchResult{reply: &xproto.Reply{OpcodeByte: win.Depth, Data: data}}
}

func (c *Client) doInternAtom(r *xproto.InternAtomRequest) dispatchResult {
	id, _, err := c.server.atoms.Intern(r.Name, r.OnlyIfExists, c.atomClient())
	if err != nil {
		return errorResult(xproto.ErrAtom, 0)
	}
	var data [24]byte
	c.order.PutUint32(data[0:4], uint32(id))
	return dispatchResult{reply: &xproto.Reply{Data: data}}
}

func (c *Client) doGetAtomName(r *xproto.GetAtomNameRequest) dispatchResult {
	name, ok := c.server.atoms.Name(r.Atom)
	if !ok {
		return errorResult(xproto.ErrAtom, uint32(r.Atom))
	}
	var data [24]byte
	c.order.PutUint16(data[0:2], uint16(len(name)))
	return dispatchResult{reply: &xproto.Reply{Data: data, Trailing: padBytes([]byte(name))}}
}

func (c *Client) doGrabPointer(r *xproto.GrabPointerRequest) dispatchResult {
	_, status := c.server.state.Grab.Grab(c.resourceClient(), resource.PointerGrabState{
		GrabWindow:   r.GrabWindow,
		OwnerEvents:  r.OwnerEvents,
		EventMask:    r.EventMask,
		PointerMode:  r.PointerMode,
		KeyboardMode: r.KeyboardMode,
		ConfineTo:    r.ConfineTo,
		Cursor:       r.Cursor,
		Time:         r.Time,
	})
	return dispatchResult{reply: &xproto.Reply{OpcodeByte: status}}
}

func (c *Client) doUngrabPointer(r *xproto.UngrabPointerRequest) dispatchResult {
	c.server.state.Grab.Ungrab(c.resourceClient())
	return dispatchResult{}
}

func (c *Client) doOpenFont(r *xproto.OpenFontRequest) dispatchResult {
	if err := c.server.state.Fonts.Open(r.Fid, r.Name, c.resourceClient()); err != nil {
		return errorResult(xproto.ErrIDChoice, uint32(r.Fid))
	}
	return dispatchResult{}
}

func (c *Client) doCloseFont(r *xproto.CloseFontRequest) dispatchResult {
	c.server.state.Fonts.Close(r.Fid)
	return dispatchResult{}
}

func (c *Client) doCreateGlyphCursor(r *xproto.CreateGlyphCursorRequest) dispatchResult {
	cur := resource.Cursor{
		SourceFont: r.SourceFont,
		SourceChar: r.SourceChar,
		MaskFont:   r.MaskFont,
		MaskChar:   r.MaskChar,
		ForeRGB:    [3]uint16{r.ForeRed, r.ForeGreen, r.ForeBlue},
		BackRGB:    [3]uint16{r.BackRed, r.BackGreen, r.BackBlue},
		Owner:      c.resourceClient(),
	}
	if err := c.server.state.Cursors.Create(r.Cid, cur); err != nil {
		return errorResult(xproto.ErrIDChoice, uint32(r.Cid))
	}
	return dispatchResult{}
}

func (c *Client) doFreeCursor(r *xproto.FreeCursorRequest) dispatchResult {
	c.server.state.Cursors.Free(r.Cursor)
	return dispatchResult{}
}

func (c *Client) doCreateGC(r *xproto.CreateGCRequest) dispatchResult {
	gc := resource.DefaultGC(r.Drawable, c.resourceClient())
	gc.ApplyValues(r.ValueMask, r.Values)
	if err := c.server.state.GCs.Create(r.Cid, gc); err != nil {
		return errorResult(xproto.ErrIDChoice, uint32(r.Cid))
	}
	return dispatchResult{}
}

func (c *Client) doFreeGC(r *xproto.FreeGCRequest) dispatchResult {
	c.server.state.GCs.Free(r.Gc)
	return dispatchResult{}
}

func (c *Client) doQueryExtension(r *xproto.QueryExtensionRequest) dispatchResult {
	// present=0 unconditionally per §4.3: the plugin registry exists for
	// future extensions but no opcode in scope here ever advertises one.
	var data [24]byte
	data[0] = 0
	return dispatchResult{reply: &xproto.Reply{Data: data}}
}

func errorResult(code byte, badValue uint32) dispatchResult {
	return dispatchResult{errorFrame: &xproto.ErrorFrame{Code: code, BadValue: badValue}}
}

func padBytes(s []byte) []byte {
	pad := (4 - len(s)%4) % 4
	out := make([]byte, len(s)+pad)
	copy(out, s)
	return out
}

// publishFramebuffer snapshots the framebuffer and sends it to the display
// bridge, per §4.12's "UpdateFramebuffer carries a snapshot by value".
func (s *Server) publishFramebuffer() {
	w, h := s.fb.Dimensions()
	snapshot := append([]uint32(nil), s.fb.Pixels()...)
	s.bridge.Send(display.Command{Kind: display.CommandUpdateFramebuffer, Framebuffer: snapshot, Width: w, Height: h})
	s.framesDelivered.Add(1)
}
