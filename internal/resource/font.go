package resource

import (
	"sync"

	"github.com/rxserver/rxserver/internal/xproto"
)

// DrawDirection mirrors the X11 FontInfo draw_direction enum.
type DrawDirection byte

const (
	LeftToRight DrawDirection = 0
	RightToLeft DrawDirection = 1
)

// FontMetrics is the fixed placeholder metric block every OpenFont /
// QueryFont reply carries, matching the wire shape real X11 clients expect
// even though no font file is ever loaded (Non-goal: "no font file loading
// beyond a metric placeholder").
type FontMetrics struct {
	Ascent, Descent     int16
	MinBounds, MaxBounds int16
	MinCharOrByte2      uint16
	MaxCharOrByte2      uint16
	DefaultChar         uint16
	DrawDirection       DrawDirection
	AllCharsExist       bool
}

// DefaultFontMetrics is the fixed metric block used for every font this
// server opens, a monospace-like placeholder.
var DefaultFontMetrics = FontMetrics{
	Ascent: 11, Descent: 3, MinBounds: 6, MaxBounds: 6,
	MinCharOrByte2: 32, MaxCharOrByte2: 126, DefaultChar: 32,
	DrawDirection: LeftToRight, AllCharsExist: true,
}

// Font is a server-side font record. Multiple XIDs may alias the same
// name; the table stores one record per XID, all sharing Metrics and Name
// per §3 ("first opener populates the record and later openers install
// additional XIDs pointing to a copy").
type Font struct {
	Name    string
	Metrics FontMetrics
	Owner   ClientID
}

// FontTable maps font XIDs to records.
type FontTable struct {
	mu    sync.RWMutex
	byXID map[xproto.XID]*Font
}

func NewFontTable() *FontTable {
	return &FontTable{byXID: make(map[xproto.XID]*Font)}
}

// Open installs a font record for fid. Fails with ErrIDAlreadyExists if fid
// is already in use.
func (t *FontTable) Open(fid xproto.XID, name string, owner ClientID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byXID[fid]; exists {
		return ErrIDAlreadyExists
	}
	t.byXID[fid] = &Font{Name: name, Metrics: DefaultFontMetrics, Owner: owner}
	return nil
}

// Close removes fid. Missing fid is a silent no-op, consistent with the
// font/cursor/GC free semantics observed elsewhere in the protocol.
func (t *FontTable) Close(fid xproto.XID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byXID, fid)
}

func (t *FontTable) Get(fid xproto.XID) (Font, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.byXID[fid]
	if !ok {
		return Font{}, false
	}
	return *f, true
}

func (t *FontTable) OwnedBy(client ClientID) []xproto.XID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var xids []xproto.XID
	for xid, f := range t.byXID {
		if f.Owner == client {
			xids = append(xids, xid)
		}
	}
	return xids
}

func (t *FontTable) Remove(xid xproto.XID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byXID, xid)
}
