package display

import (
	"image"
	"image/color"
	"time"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"go.uber.org/zap"
)

// resizeThrottle is the minimum interval between processed resize events,
// matching the teacher's RESIZE_THROTTLE_MS constant.
const resizeThrottle = 50 * time.Millisecond

// UI owns the gioui window and must run on its own goroutine for the
// lifetime of the process (gioui requires the event loop to run on the
// thread app.Main schedules it on).
type UI struct {
	bridge *Bridge
	log    *zap.Logger

	width, height int
	framebuffer   []uint32

	lastResize time.Time
}

// RunMain blocks on gioui's event dispatcher. It must be called from
// func main after UI.Run has been started on its own goroutine; gioui
// requires the OS thread that calls app.Main to live for the process's
// entire lifetime.
func RunMain() {
	app.Main()
}

// NewUI constructs a UI bound to bridge, sized width x height.
func NewUI(bridge *Bridge, width, height int, log *zap.Logger) *UI {
	return &UI{
		bridge:      bridge,
		log:         log,
		width:       width,
		height:      height,
		framebuffer: make([]uint32, width*height),
	}
}

// Run drives the gioui window's event loop. It blocks until the window is
// closed or a Shutdown command arrives. It runs on its own goroutine while
// main itself blocks in RunMain.
func (u *UI) Run() error {
	w := new(app.Window)
	w.Option(
		app.Title("rxserver - virtual display"),
		app.Size(unit.Dp(u.width), unit.Dp(u.height)),
	)

	var ops op.Ops
	commands := u.bridge.commandChan()

	for {
		select {
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			switch cmd.Kind {
			case CommandUpdateFramebuffer:
				n := len(cmd.Framebuffer)
				if n > len(u.framebuffer) {
					n = len(u.framebuffer)
				}
				copy(u.framebuffer, cmd.Framebuffer[:n])
				w.Invalidate()
			case CommandRefresh:
				w.Invalidate()
			case CommandResize:
				u.width, u.height = cmd.Width, cmd.Height
				u.framebuffer = make([]uint32, u.width*u.height)
				w.Invalidate()
			case CommandShutdown:
				return nil
			}
		default:
			ev := w.Event()
			switch e := ev.(type) {
			case app.DestroyEvent:
				u.bridge.emit(Callback{Kind: CallbackClosed})
				return e.Err
			case app.FrameEvent:
				u.handleFrame(e, &ops)
			}
		}
	}
}

func (u *UI) handleFrame(e app.FrameEvent, ops *op.Ops) {
	width, height := e.Size.X, e.Size.Y
	if width > 0 && height > 0 && (width != u.width || height != u.height) {
		now := time.Now()
		if now.Sub(u.lastResize) >= resizeThrottle {
			u.lastResize = now
			u.width, u.height = width, height
			u.framebuffer = make([]uint32, width*height)
			u.bridge.emit(Callback{Kind: CallbackWindowResized, Width: width, Height: height})
		}
	}

	ops.Reset()
	img := u.renderImage()
	paint.NewImageOp(img).Add(ops)
	paint.PaintOp{}.Add(ops)
	e.Frame(ops)
}

// renderImage converts the packed uint32 ARGB framebuffer into an
// image.NRGBA gioui can paint directly.
func (u *UI) renderImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, u.width, u.height))
	for y := 0; y < u.height; y++ {
		for x := 0; x < u.width; x++ {
			idx := y*u.width + x
			if idx >= len(u.framebuffer) {
				continue
			}
			px := u.framebuffer[idx]
			img.SetNRGBA(x, y, color.NRGBA{
				R: byte(px >> 16),
				G: byte(px >> 8),
				B: byte(px),
				A: 0xff,
			})
		}
	}
	return img
}
