// Package atom implements the server-wide atom namespace: the bidirectional
// name<->id table, the 68 predefined entries every X11 server reserves, and
// per-client reference counting used to garbage-collect custom atoms on
// disconnect.
//
// The predefined id assignment below is the X11 core protocol's fixed
// table (PRIMARY=1 .. WM_TRANSIENT_FOR=68); it is load-bearing wire
// compatibility, not a design choice, so it is reproduced verbatim.
package atom

import (
	"sort"
	"sync"

	"github.com/rxserver/rxserver/errors"
	"github.com/rxserver/rxserver/internal/xproto"
)

// ErrInvalidName marks an atom name that is empty, longer than 255 bytes,
// or contains a NUL byte.
var ErrInvalidName = errors.New("atom: invalid name")

// ClientID identifies the connection an atom reference belongs to.
type ClientID uint32

// predefinedNames is the X11 core protocol's fixed atom table, ids 1-68.
var predefinedNames = []string{
	"PRIMARY", "SECONDARY", "ARC", "ATOM", "BITMAP", "CARDINAL", "COLORMAP",
	"CURSOR", "CUT_BUFFER0", "CUT_BUFFER1", "CUT_BUFFER2", "CUT_BUFFER3",
	"CUT_BUFFER4", "CUT_BUFFER5", "CUT_BUFFER6", "CUT_BUFFER7", "DRAWABLE",
	"FONT", "INTEGER", "PIXMAP", "POINT", "RECTANGLE", "RESOURCE_MANAGER",
	"RGB_COLOR_MAP", "RGB_BEST_MAP", "RGB_BLUE_MAP", "RGB_DEFAULT_MAP",
	"RGB_GRAY_MAP", "RGB_GREEN_MAP", "RGB_RED_MAP", "STRING", "VISUALID",
	"WINDOW", "WM_COMMAND", "WM_HINTS", "WM_CLIENT_MACHINE", "WM_ICON_NAME",
	"WM_ICON_SIZE", "WM_NAME", "WM_NORMAL_HINTS", "WM_SIZE_HINTS",
	"WM_ZOOM_HINTS", "MIN_SPACE", "NORM_SPACE", "MAX_SPACE", "END_SPACE",
	"SUPERSCRIPT_X", "SUPERSCRIPT_Y", "SUBSCRIPT_X", "SUBSCRIPT_Y",
	"UNDERLINE_POSITION", "UNDERLINE_THICKNESS", "STRIKEOUT_ASCENT",
	"STRIKEOUT_DESCENT", "ITALIC_ANGLE", "X_HEIGHT", "QUAD_WIDTH", "WEIGHT",
	"POINT_SIZE", "RESOLUTION", "COPYRIGHT", "NOTICE", "FONT_NAME",
	"FAMILY_NAME", "FULL_NAME", "CAP_HEIGHT", "WM_CLASS", "WM_TRANSIENT_FOR",
}

// FirstCustomID is the first id assigned to a non-predefined atom.
const FirstCustomID = xproto.AtomID(len(predefinedNames) + 1)

type entry struct {
	name        string
	canDelete   bool
	referrers   map[ClientID]struct{}
}

// Registry is the server-wide atom table. Zero value is not usable; use
// New.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]xproto.AtomID
	byID    map[xproto.AtomID]*entry
	nextID  xproto.AtomID
}

// New builds a Registry pre-populated with the 68 predefined atoms,
// installed non-deletable and with no initial referrers.
func New() *Registry {
	r := &Registry{
		byName: make(map[string]xproto.AtomID, len(predefinedNames)+64),
		byID:   make(map[xproto.AtomID]*entry, len(predefinedNames)+64),
		nextID: FirstCustomID,
	}
	for i, name := range predefinedNames {
		id := xproto.AtomID(i + 1)
		r.byName[name] = id
		r.byID[id] = &entry{name: name, canDelete: false, referrers: make(map[ClientID]struct{})}
	}
	return r
}

// Intern looks up or allocates an atom, per §4.6. A fresh or existing atom
// is attributed to client in its referrer set, even if that client already
// held a reference (inserting into the set is already idempotent).
func (r *Registry) Intern(name string, onlyIfExists bool, client ClientID) (xproto.AtomID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[name]; ok {
		r.byID[id].referrers[client] = struct{}{}
		return id, true, nil
	}
	if onlyIfExists {
		return 0, false, nil
	}
	if err := validateName(name); err != nil {
		return 0, false, err
	}

	id := r.nextID
	r.nextID++
	e := &entry{name: name, canDelete: true, referrers: map[ClientID]struct{}{client: {}}}
	r.byName[name] = id
	r.byID[id] = e
	return id, true, nil
}

// Name returns the stored name for id, if any.
func (r *Registry) Name(id xproto.AtomID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return e.name, true
}

// RefCount returns the number of distinct clients currently referencing
// id, used by tests asserting the refcount/referrer-set invariant.
func (r *Registry) RefCount(id xproto.AtomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return 0
	}
	return len(e.referrers)
}

// Release removes client from every atom's referrer set and deletes any
// non-predefined atom whose referrer set becomes empty, per §4.6.
func (r *Registry) Release(client ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.byID {
		if _, ok := e.referrers[client]; !ok {
			continue
		}
		delete(e.referrers, client)
		if e.canDelete && len(e.referrers) == 0 {
			delete(r.byID, id)
			delete(r.byName, e.name)
		}
	}
}

// PredefinedCount reports how many reserved ids the registry carries,
// exposed for tests asserting "predefined ids are always present".
func PredefinedCount() int { return len(predefinedNames) }

// Names returns every currently-interned atom name in id order, used by
// diagnostics and tests.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = r.byID[xproto.AtomID(id)].name
	}
	return names
}

func validateName(name string) error {
	if len(name) == 0 || len(name) > 255 {
		return ErrInvalidName
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return ErrInvalidName
		}
	}
	return nil
}
