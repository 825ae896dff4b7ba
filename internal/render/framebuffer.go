// Package render implements the software framebuffer the virtual display
// draws into: a flat pixel array plus the small set of drawing primitives
// the in-scope GC-bearing requests need (clear, point, line, rectangle
// outline/fill, area copy), each respecting a GraphicsContext's clip
// region.
package render

import (
	"github.com/rxserver/rxserver/internal/resource"
	"github.com/rxserver/rxserver/internal/xproto"
)

// Framebuffer is a software-rendered pixel surface, one uint32 per pixel.
type Framebuffer struct {
	pixels []uint32
	width  int
	height int
	depth  byte
}

// New allocates a zeroed framebuffer of width x height pixels.
func New(width, height int, depth byte) *Framebuffer {
	return &Framebuffer{
		pixels: make([]uint32, width*height),
		width:  width,
		height: height,
		depth:  depth,
	}
}

// Dimensions returns the current width and height in pixels.
func (f *Framebuffer) Dimensions() (int, int) { return f.width, f.height }

// Depth returns the configured color depth.
func (f *Framebuffer) Depth() byte { return f.depth }

// Pixels returns the backing pixel slice, for handoff to the display
// bridge. Callers must not retain it across a Resize.
func (f *Framebuffer) Pixels() []uint32 { return f.pixels }

func (f *Framebuffer) pixelAt(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return 0, false
	}
	return y*f.width + x, true
}

// Clear fills the entire framebuffer with color.
func (f *Framebuffer) Clear(color uint32) {
	for i := range f.pixels {
		f.pixels[i] = color
	}
}

// ClearArea fills rect (clipped to the framebuffer bounds) with color.
func (f *Framebuffer) ClearArea(rect xproto.Rectangle, color uint32) {
	xEnd := clampInt(int(rect.X)+int(rect.Width), f.width)
	yEnd := clampInt(int(rect.Y)+int(rect.Height), f.height)
	for y := maxInt(int(rect.Y), 0); y < yEnd; y++ {
		for x := maxInt(int(rect.X), 0); x < xEnd; x++ {
			if idx, ok := f.pixelAt(x, y); ok {
				f.pixels[idx] = color
			}
		}
	}
}

// DrawPoint sets a single pixel to gc's foreground, honoring gc's clip
// region.
func (f *Framebuffer) DrawPoint(x, y int, gc *resource.GraphicsContext) {
	if !gc.PointInClip(x, y) {
		return
	}
	if idx, ok := f.pixelAt(x, y); ok {
		f.pixels[idx] = gc.Foreground
	}
}

// DrawLine draws a Bresenham line from (x1,y1) to (x2,y2) in gc's
// foreground, honoring gc's clip region per point.
func (f *Framebuffer) DrawLine(x1, y1, x2, y2 int, gc *resource.GraphicsContext) {
	x, y := x1, y1
	dx := absInt(x2 - x1)
	dy := absInt(y2 - y1)
	sx := -1
	if x1 < x2 {
		sx = 1
	}
	sy := -1
	if y1 < y2 {
		sy = 1
	}
	err := dx - dy

	for {
		f.DrawPoint(x, y, gc)
		if x == x2 && y == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

// DrawRectangle draws the four-sided outline of rect in gc's foreground.
func (f *Framebuffer) DrawRectangle(rect xproto.Rectangle, gc *resource.GraphicsContext) {
	if !gc.RectInClip(rect) {
		return
	}
	x1, y1 := int(rect.X), int(rect.Y)
	x2 := x1 + int(rect.Width) - 1
	y2 := y1 + int(rect.Height) - 1

	f.DrawLine(x1, y1, x2, y1, gc)
	f.DrawLine(x2, y1, x2, y2, gc)
	f.DrawLine(x2, y2, x1, y2, gc)
	f.DrawLine(x1, y2, x1, y1, gc)
}

// FillRectangle fills rect solidly with gc's foreground, honoring gc's clip
// region per point.
func (f *Framebuffer) FillRectangle(rect xproto.Rectangle, gc *resource.GraphicsContext) {
	if !gc.RectInClip(rect) {
		return
	}
	xEnd := clampInt(int(rect.X)+int(rect.Width), f.width)
	yEnd := clampInt(int(rect.Y)+int(rect.Height), f.height)
	for y := maxInt(int(rect.Y), 0); y < yEnd; y++ {
		for x := maxInt(int(rect.X), 0); x < xEnd; x++ {
			if gc.PointInClip(x, y) {
				if idx, ok := f.pixelAt(x, y); ok {
					f.pixels[idx] = gc.Foreground
				}
			}
		}
	}
}

// CopyArea copies a width x height block from (srcX, srcY) to (dstX, dstY)
// via an intermediate buffer, so overlapping source/destination regions
// copy correctly regardless of scan direction.
func (f *Framebuffer) CopyArea(srcX, srcY, dstX, dstY, width, height int, gc *resource.GraphicsContext) {
	temp := make([]uint32, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if idx, ok := f.pixelAt(srcX+x, srcY+y); ok {
				temp = append(temp, f.pixels[idx])
			} else {
				temp = append(temp, 0)
			}
		}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := dstX+x, dstY+y
			if !gc.PointInClip(dx, dy) {
				continue
			}
			if idx, ok := f.pixelAt(dx, dy); ok {
				tempIndex := y*width + x
				if tempIndex < len(temp) {
					f.pixels[idx] = temp[tempIndex]
				}
			}
		}
	}
}

// Resize reallocates the framebuffer to new dimensions, discarding prior
// contents (the caller is expected to redraw from scratch on resize, as
// real X11 clients do on ConfigureNotify).
func (f *Framebuffer) Resize(width, height int) {
	f.width = width
	f.height = height
	f.pixels = make([]uint32, width*height)
}

func clampInt(v, max int) int {
	if v > max {
		return max
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
