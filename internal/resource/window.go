// Package resource holds the server-wide resource tables: windows, fonts,
// cursors, graphics contexts, and the singleton pointer grab. Each table is
// a plain map guarded by its own RWMutex; mutation paths never hold two
// table locks at once, matching the narrow-locking policy of §5.
package resource

import (
	"sync"

	"github.com/rxserver/rxserver/errors"
	"github.com/rxserver/rxserver/internal/xproto"
)

var (
	ErrIDAlreadyExists = errors.New("resource: id already exists")
	ErrParentMissing   = errors.New("resource: parent missing")
	ErrBadWindow       = errors.New("resource: bad window")
)

// ClientID identifies the owning connection of a resource.
type ClientID uint32

// Window is a server-side window record, keyed by XID in WindowTable.
type Window struct {
	Parent      xproto.XID
	Geometry    xproto.Rectangle
	BorderWidth uint16
	Depth       byte
	Class       xproto.WindowClass
	Mapped      bool
	Children    []xproto.XID
	EventMask   uint32
	Owner       ClientID
}

// WindowTable maps window XIDs to records and enforces the parent/child
// forest invariant.
type WindowTable struct {
	mu    sync.RWMutex
	byXID map[xproto.XID]*Window
	root  xproto.XID
}

// NewWindowTable creates a table pre-populated with a root window owned by
// no client (ClientID 0 is never assigned to a real connection).
func NewWindowTable(root xproto.XID, width, height uint16) *WindowTable {
	t := &WindowTable{byXID: make(map[xproto.XID]*Window), root: root}
	t.byXID[root] = &Window{
		Parent:   xproto.NoXID,
		Geometry: xproto.Rectangle{X: 0, Y: 0, Width: width, Height: height},
		Class:    xproto.ClassInputOutput,
		Mapped:   true,
	}
	return t
}

// Root returns the root window's XID.
func (t *WindowTable) Root() xproto.XID { return t.root }

// CreateWindow inserts a new window and appends it to its parent's child
// list. Fails with ErrIDAlreadyExists or ErrParentMissing per §4.7.
func (t *WindowTable) CreateWindow(wid, parent xproto.XID, geom xproto.Rectangle, borderWidth uint16, depth byte, class xproto.WindowClass, owner ClientID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byXID[wid]; exists {
		return ErrIDAlreadyExists
	}
	parentRec, ok := t.byXID[parent]
	if !ok {
		return ErrParentMissing
	}
	t.byXID[wid] = &Window{
		Parent: parent, Geometry: geom, BorderWidth: borderWidth,
		Depth: depth, Class: class, Owner: owner,
	}
	parentRec.Children = append(parentRec.Children, wid)
	return nil
}

// Get returns a copy of the window record for wid.
func (t *WindowTable) Get(wid xproto.XID) (Window, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	w, ok := t.byXID[wid]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// SetMapped sets the mapped flag; a missing window is a silent no-op per
// §4.7 ("map_window / unmap_window ... never fail on a missing window").
func (t *WindowTable) SetMapped(wid xproto.XID, mapped bool) (changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.byXID[wid]
	if !ok {
		return false
	}
	if w.Mapped == mapped {
		return false
	}
	w.Mapped = mapped
	return true
}

// DestroyWindow recursively destroys wid's descendants, then removes wid
// from its parent's child list and from the table. Returns the full set of
// destroyed XIDs (wid plus every descendant), deepest-first, so callers can
// cascade cleanup into other tables (GCs bound to the destroyed drawable).
func (t *WindowTable) DestroyWindow(wid xproto.XID) []xproto.XID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyLocked(wid)
}

func (t *WindowTable) destroyLocked(wid xproto.XID) []xproto.XID {
	w, ok := t.byXID[wid]
	if !ok {
		return nil
	}
	var destroyed []xproto.XID
	children := append([]xproto.XID(nil), w.Children...)
	for _, c := range children {
		destroyed = append(destroyed, t.destroyLocked(c)...)
	}
	if parent, ok := t.byXID[w.Parent]; ok {
		parent.Children = removeXID(parent.Children, wid)
	}
	delete(t.byXID, wid)
	destroyed = append(destroyed, wid)
	return destroyed
}

// OwnedBy returns every XID in the table owned by client, used during
// connection cleanup.
func (t *WindowTable) OwnedBy(client ClientID) []xproto.XID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var xids []xproto.XID
	for xid, w := range t.byXID {
		if w.Owner == client {
			xids = append(xids, xid)
		}
	}
	return xids
}

func removeXID(xids []xproto.XID, target xproto.XID) []xproto.XID {
	out := xids[:0]
	for _, x := range xids {
		if x != target {
			out = append(out, x)
		}
	}
	return out
}
