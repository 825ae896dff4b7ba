package xproto

// Major opcodes this server parses into a typed request. Everything else
// that arrives on the wire is either "known but unhandled" (consumed and
// logged) or genuinely unknown (answered with a Request error), per the
// dispatch rule in the connection state machine.
const (
	OpCreateWindow       = 1
	OpDestroyWindow      = 4
	OpMapWindow          = 8
	OpUnmapWindow        = 10
	OpGetGeometry        = 14
	OpInternAtom         = 16
	OpGetAtomName        = 17
	OpOpenFont           = 45
	OpCloseFont          = 46
	OpCreateGC           = 55
	OpFreeGC             = 60
	OpCreateGlyphCursor  = 94
	OpFreeCursor         = 95
	OpGrabPointer        = 26
	OpUngrabPointer      = 27
	OpQueryExtension     = 98
	OpNoOperation        = 127
)

// WindowClass distinguishes the three CreateWindow class values.
type WindowClass uint16

const (
	ClassCopyFromParent WindowClass = 0
	ClassInputOutput    WindowClass = 1
	ClassInputOnly      WindowClass = 2
)

// Error codes, assigned positions in the X11 core protocol.
const (
	ErrRequest        = 1
	ErrValue          = 2
	ErrWindow         = 3
	ErrPixmap         = 4
	ErrAtom           = 5
	ErrCursor         = 6
	ErrFont           = 7
	ErrMatch          = 8
	ErrDrawable       = 9
	ErrAccess         = 10
	ErrAlloc          = 11
	ErrColormap       = 12
	ErrGContext       = 13
	ErrIDChoice       = 14
	ErrName           = 15
	ErrLength         = 16
	ErrImplementation = 17
)

// Event codes used by this server. The core protocol reserves 0-34; this
// server emits a strict subset.
const (
	EventExpose         = 12
	EventConfigureNotify = 22
)

// Reply status bytes for GrabPointer.
const (
	GrabStatusSuccess      = 0
	GrabStatusAlreadyGrabbed = 1
)

// PointerMode / KeyboardMode values for GrabPointer requests.
type GrabMode byte

const (
	GrabModeSync  GrabMode = 0
	GrabModeAsync GrabMode = 1
)
