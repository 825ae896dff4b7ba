package resource

import "github.com/rxserver/rxserver/internal/xproto"

// State aggregates every resource table plus the pointer grab singleton,
// matching the ServerState data model of §3. A single State is shared by
// every connection; each table's own RWMutex is the only synchronization,
// so State itself holds no lock.
type State struct {
	Windows *WindowTable
	Fonts   *FontTable
	Cursors *CursorTable
	GCs     *GCTable
	Grab    *PointerGrab
}

// NewState builds a fresh State with a root window sized width x height.
func NewState(root xproto.XID, width, height uint16) *State {
	return &State{
		Windows: NewWindowTable(root, width, height),
		Fonts:   NewFontTable(),
		Cursors: NewCursorTable(),
		GCs:     NewGCTable(),
		Grab:    NewPointerGrab(),
	}
}

// ReleaseClient tears down every resource owned by client: destroys its
// windows (cascading to their GCs), closes its fonts and cursors, frees its
// GCs, and clears the pointer grab if it held one. Returns the full set of
// window XIDs destroyed, so callers can emit DestroyNotify-equivalent
// bookkeeping or log the cleanup.
func (s *State) ReleaseClient(client ClientID) []xproto.XID {
	var destroyedWindows []xproto.XID
	for _, wid := range s.Windows.OwnedBy(client) {
		for _, d := range s.Windows.DestroyWindow(wid) {
			s.GCs.FreeForDrawable(d)
			destroyedWindows = append(destroyedWindows, d)
		}
	}
	for _, fid := range s.Fonts.OwnedBy(client) {
		s.Fonts.Close(fid)
	}
	for _, cid := range s.Cursors.OwnedBy(client) {
		s.Cursors.Free(cid)
	}
	for _, gid := range s.GCs.OwnedBy(client) {
		s.GCs.Free(gid)
	}
	s.Grab.ReleaseClient(client)
	return destroyedWindows
}
