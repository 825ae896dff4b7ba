// Package display runs the host window that presents the virtual X11
// screen's framebuffer, and the message bus connecting it to the protocol
// engine. The window must run on an OS thread of its own (gioui.org's
// app.Window, like the teacher's winit+softbuffer original, owns the event
// loop) so all communication with it is channel-based.
package display

// Command is sent from the protocol engine to the UI thread.
type Command struct {
	Kind            CommandKind
	Framebuffer     []uint32
	Width, Height   int
}

type CommandKind int

const (
	CommandUpdateFramebuffer CommandKind = iota
	CommandRefresh
	CommandResize
	CommandShutdown
)

// Callback is sent from the UI thread back to the protocol engine.
type Callback struct {
	Kind          CallbackKind
	Width, Height int
}

type CallbackKind int

const (
	CallbackWindowResized CallbackKind = iota
	CallbackClosed
)

// Bridge is the pair of buffered channels (16 entries each) linking the
// protocol engine and the UI thread, mirroring the teacher's
// DisplayMessage / DisplayCallbackMessage split.
type Bridge struct {
	commands  chan Command
	callbacks chan Callback
}

// NewBridge creates a bridge whose command and callback channels each
// buffer 16 entries.
func NewBridge() *Bridge {
	return &Bridge{
		commands:  make(chan Command, 16),
		callbacks: make(chan Callback, 16),
	}
}

// Send enqueues a command for the UI thread. The command channel holds 16
// entries; while it is full, Send blocks until the UI thread receives one,
// and it stays blocked if nothing is receiving.
func (b *Bridge) Send(cmd Command) {
	b.commands <- cmd
}

// Callbacks returns the channel the protocol engine should range over to
// observe UI-originated events (resize, close).
func (b *Bridge) Callbacks() <-chan Callback {
	return b.callbacks
}

func (b *Bridge) emit(cb Callback) {
	select {
	case b.callbacks <- cb:
	default:
	}
}

func (b *Bridge) commandChan() <-chan Command { return b.commands }
