package resource

import (
	"sync"

	"github.com/rxserver/rxserver/internal/xproto"
)

// GC value-mask bits, in the order CreateGC/ChangeGC's value list encodes
// them (low bit first).
const (
	GCForeground = 1 << 2
	GCBackground = 1 << 3
	GCLineWidth  = 1 << 4
	GCLineStyle  = 1 << 5
	GCCapStyle   = 1 << 6
	GCJoinStyle  = 1 << 7
	GCFillStyle  = 1 << 8
	GCFillRule   = 1 << 9
	GCFont       = 1 << 14
)

// GraphicsContext is a server-side GC record, keyed by XID in GCTable. An
// empty ClipRects slice means "no clipping" per §3/§4.10.
type GraphicsContext struct {
	Drawable    xproto.XID
	Foreground  uint32
	Background  uint32
	LineWidth   uint16
	LineStyle   byte
	CapStyle    byte
	JoinStyle   byte
	FillStyle   byte
	FillRule    byte
	Font        xproto.XID // 0 means unbound
	ClipRects   []xproto.Rectangle
	Owner       ClientID
}

// DefaultGC returns a GraphicsContext with the X11-specified defaults for
// every attribute CreateGC's value list can leave unset.
func DefaultGC(drawable xproto.XID, owner ClientID) GraphicsContext {
	return GraphicsContext{
		Drawable:   drawable,
		Foreground: 0,
		Background: 1,
		LineWidth:  0,
		CapStyle:   1, // Butt
		Owner:      owner,
	}
}

// ApplyValues overlays the bits set in mask from values (in ascending bit
// order, matching decodeValueList) onto gc, preserving every attribute not
// named by mask.
func (gc *GraphicsContext) ApplyValues(mask uint32, values []uint32) {
	idx := 0
	next := func() uint32 {
		v := values[idx]
		idx++
		return v
	}
	// function and plane-mask (bits 0-1) are not tracked but occupy slots.
	for bit := uint(0); bit < 2; bit++ {
		if mask&(1<<bit) != 0 {
			idx++
		}
	}
	if mask&GCForeground != 0 {
		gc.Foreground = next()
	}
	if mask&GCBackground != 0 {
		gc.Background = next()
	}
	if mask&GCLineWidth != 0 {
		gc.LineWidth = uint16(next())
	}
	if mask&GCLineStyle != 0 {
		gc.LineStyle = byte(next())
	}
	if mask&GCCapStyle != 0 {
		gc.CapStyle = byte(next())
	}
	if mask&GCJoinStyle != 0 {
		gc.JoinStyle = byte(next())
	}
	if mask&GCFillStyle != 0 {
		gc.FillStyle = byte(next())
	}
	if mask&GCFillRule != 0 {
		gc.FillRule = byte(next())
	}
	// tile, stipple and their origin (bits 10-13) are not tracked but
	// occupy slots.
	for bit := uint(10); bit < 14; bit++ {
		if mask&(1<<bit) != 0 {
			idx++
		}
	}
	if mask&GCFont != 0 {
		gc.Font = xproto.XID(next())
	}
}

// PointInClip is true when ClipRects is empty (no clipping) or (x, y) lies
// inside at least one clip rectangle.
func (gc *GraphicsContext) PointInClip(x, y int) bool {
	if len(gc.ClipRects) == 0 {
		return true
	}
	for _, r := range gc.ClipRects {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}

// RectInClip is the geometric-intersection analogue of PointInClip.
func (gc *GraphicsContext) RectInClip(rect xproto.Rectangle) bool {
	if len(gc.ClipRects) == 0 {
		return true
	}
	for _, r := range gc.ClipRects {
		if r.Intersects(rect) {
			return true
		}
	}
	return false
}

// SetClipRectangles atomically replaces the clip list.
func (gc *GraphicsContext) SetClipRectangles(rects []xproto.Rectangle) {
	gc.ClipRects = append([]xproto.Rectangle(nil), rects...)
}

// ClearClipRectangles empties the clip list (no clipping).
func (gc *GraphicsContext) ClearClipRectangles() {
	gc.ClipRects = nil
}

// GCTable maps GC XIDs to records.
type GCTable struct {
	mu    sync.RWMutex
	byXID map[xproto.XID]*GraphicsContext
}

func NewGCTable() *GCTable {
	return &GCTable{byXID: make(map[xproto.XID]*GraphicsContext)}
}

func (t *GCTable) Create(cid xproto.XID, gc GraphicsContext) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byXID[cid]; exists {
		return ErrIDAlreadyExists
	}
	t.byXID[cid] = &gc
	return nil
}

func (t *GCTable) Free(cid xproto.XID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byXID, cid)
}

func (t *GCTable) Get(cid xproto.XID) (GraphicsContext, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	gc, ok := t.byXID[cid]
	if !ok {
		return GraphicsContext{}, false
	}
	return *gc, true
}

// Mutate runs fn with exclusive access to the GC record identified by cid,
// so setters can preserve every attribute fn does not touch. Returns false
// if cid is not a known GC.
func (t *GCTable) Mutate(cid xproto.XID, fn func(*GraphicsContext)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	gc, ok := t.byXID[cid]
	if !ok {
		return false
	}
	fn(gc)
	return true
}

// FreeForDrawable removes every GC bound to drawable, used by
// DestroyWindow's cascade (§4.7: "also removes any GCs whose drawable was
// this window").
func (t *GCTable) FreeForDrawable(drawable xproto.XID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for xid, gc := range t.byXID {
		if gc.Drawable == drawable {
			delete(t.byXID, xid)
		}
	}
}

func (t *GCTable) OwnedBy(client ClientID) []xproto.XID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var xids []xproto.XID
	for xid, gc := range t.byXID {
		if gc.Owner == client {
			xids = append(xids, xid)
		}
	}
	return xids
}

func (t *GCTable) Remove(xid xproto.XID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byXID, xid)
}
