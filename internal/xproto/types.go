package xproto

// XID is the 32-bit resource identifier namespace shared by windows,
// pixmaps, fonts, cursors and graphics contexts. Zero denotes "None".
type XID uint32

// NoXID is the wire value for "no resource".
const NoXID XID = 0

// AtomID is the 32-bit atom namespace, distinct from XID even though both
// are encoded as plain uint32 on the wire.
type AtomID uint32

// NoAtom is the wire value for "no atom" / AnyPropertyType in some replies.
const NoAtom AtomID = 0

// Rectangle is an X11 RECTANGLE: origin plus unsigned extent, used for
// window geometry and GC clip lists.
type Rectangle struct {
	X      int16
	Y      int16
	Width  uint16
	Height uint16
}

// Contains reports whether the point (x, y) lies within r, inclusive of the
// origin and exclusive of the far edge, matching X11's half-open rectangle
// semantics.
func (r Rectangle) Contains(x, y int) bool {
	return x >= int(r.X) && x < int(r.X)+int(r.Width) &&
		y >= int(r.Y) && y < int(r.Y)+int(r.Height)
}

// Intersects reports whether r and o overlap in at least one pixel.
func (r Rectangle) Intersects(o Rectangle) bool {
	if r.Width == 0 || r.Height == 0 || o.Width == 0 || o.Height == 0 {
		return false
	}
	rLeft, rTop := int(r.X), int(r.Y)
	rRight, rBottom := rLeft+int(r.Width), rTop+int(r.Height)
	oLeft, oTop := int(o.X), int(o.Y)
	oRight, oBottom := oLeft+int(o.Width), oTop+int(o.Height)
	return rLeft < oRight && oLeft < rRight && rTop < oBottom && oTop < rBottom
}
