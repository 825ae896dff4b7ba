package resource

import (
	"sync"

	"github.com/rxserver/rxserver/internal/xproto"
)

// Cursor is a server-side cursor record. This server only implements the
// CreateGlyphCursor variant (font-glyph source), the only cursor-creation
// opcode in scope; Pixmap-sourced cursors are out of scope (no pixmap
// drawable support).
type Cursor struct {
	SourceFont xproto.XID
	SourceChar uint16
	MaskFont   xproto.XID // 0 means "no mask"
	MaskChar   uint16
	ForeRGB    [3]uint16
	BackRGB    [3]uint16
	Owner      ClientID

	// Serial is assigned at creation for debug logging only; it is never
	// part of the wire-visible cursor state.
	Serial uint32
}

// CursorTable maps cursor XIDs to records.
type CursorTable struct {
	mu        sync.RWMutex
	byXID     map[xproto.XID]*Cursor
	nextSerial uint32
}

func NewCursorTable() *CursorTable {
	return &CursorTable{byXID: make(map[xproto.XID]*Cursor)}
}

func (t *CursorTable) Create(cid xproto.XID, c Cursor) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byXID[cid]; exists {
		return ErrIDAlreadyExists
	}
	t.nextSerial++
	c.Serial = t.nextSerial
	t.byXID[cid] = &c
	return nil
}

func (t *CursorTable) Free(cid xproto.XID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byXID, cid)
}

func (t *CursorTable) Get(cid xproto.XID) (Cursor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.byXID[cid]
	if !ok {
		return Cursor{}, false
	}
	return *c, true
}

func (t *CursorTable) OwnedBy(client ClientID) []xproto.XID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var xids []xproto.XID
	for xid, c := range t.byXID {
		if c.Owner == client {
			xids = append(xids, xid)
		}
	}
	return xids
}

func (t *CursorTable) Remove(xid xproto.XID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byXID, xid)
}
