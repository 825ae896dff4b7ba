package resource

import (
	"sync"

	"github.com/rxserver/rxserver/internal/xproto"
)

// PointerGrabState is a server-wide singleton: at most one active pointer
// grab exists at a time, matching real X11 semantics for the in-scope
// subset (no passive/button grabs, no keyboard grab).
type PointerGrabState struct {
	Owner        ClientID
	GrabWindow   xproto.XID
	OwnerEvents  bool
	EventMask    uint16
	PointerMode  xproto.GrabMode
	KeyboardMode xproto.GrabMode
	ConfineTo    xproto.XID // NoXID means unconfined
	Cursor       xproto.XID // NoXID means "don't change cursor"
	Time         uint32
}

// PointerGrab guards the single active grab, if any.
type PointerGrab struct {
	mu     sync.Mutex
	active *PointerGrabState
}

func NewPointerGrab() *PointerGrab {
	return &PointerGrab{}
}

// Grab attempts to establish the grab described by state for client. Returns
// (true, GrabStatusSuccess) on success, or (false, GrabStatusAlreadyGrabbed)
// if a grab already exists, per §4.7's transition table: grabbing while one
// exists always fails, even for the current owner.
func (g *PointerGrab) Grab(client ClientID, state PointerGrabState) (bool, byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		return false, xproto.GrabStatusAlreadyGrabbed
	}
	state.Owner = client
	g.active = &state
	return true, xproto.GrabStatusSuccess
}

// Ungrab releases the grab if and only if client currently owns it. Any
// other caller (including one with no active grab at all) is a silent
// no-op, per §4.7 ("ungrab_pointer by a non-owning client has no effect").
func (g *PointerGrab) Ungrab(client ClientID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil && g.active.Owner == client {
		g.active = nil
	}
}

// ReleaseClient forcibly clears the grab if owned by client, used on
// connection teardown regardless of whether the client sent UngrabPointer.
func (g *PointerGrab) ReleaseClient(client ClientID) {
	g.Ungrab(client)
}

// Current returns a copy of the active grab state, if any.
func (g *PointerGrab) Current() (PointerGrabState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		return PointerGrabState{}, false
	}
	return *g.active, true
}

// IsGrabbed reports whether any client currently holds the grab.
func (g *PointerGrab) IsGrabbed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active != nil
}
