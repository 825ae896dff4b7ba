package server

import (
	"context"
	"io"
	"net"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rxserver/rxserver/internal/atom"
	"github.com/rxserver/rxserver/internal/resource"
	"github.com/rxserver/rxserver/internal/wire"
	"github.com/rxserver/rxserver/internal/xproto"
)

// protocolMajorVersion is the only X11 major version this server speaks.
const protocolMajorVersion = 11

// Client is one accepted connection and its protocol-level state: byte
// order, authentication phase, sequence counter, and resource id range,
// per §4.8 and §4.5's "AllocateResourceRange" step.
type Client struct {
	id     uint32
	conn   net.Conn
	server *Server
	log    *zap.SugaredLogger

	order         wire.Order
	authenticated bool
	sequence      uint16

	resourceIDBase uint32
	resourceIDMask uint32

	pending []byte
	limiter *rate.Limiter
}

// atomClient and resourceClient adapt this connection's id into the two
// table packages' distinct ClientID types.
func (c *Client) atomClient() atom.ClientID         { return atom.ClientID(c.id) }
func (c *Client) resourceClient() resource.ClientID { return resource.ClientID(c.id) }

// serve runs the per-connection loop of §4.8 until the connection closes,
// ctx is cancelled, or a close-class error occurs. It always releases the
// client's owned resources on exit, regardless of how the loop ended.
func (c *Client) serve(ctx context.Context) {
	defer c.teardown()

	buf := make([]byte, ReadChunkSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			c.pending = append(c.pending, buf[:n]...)
			if !c.drain(ctx) {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				c.log.Debugw("connection read error", "error", err)
			}
			return
		}
	}
}

// drain processes every complete request (or the setup handshake) present
// in c.pending, per §4.8's inner while loop. Returns false if the
// connection must close.
func (c *Client) drain(ctx context.Context) bool {
	for {
		if !c.authenticated {
			switch c.tryHandshake() {
			case handshakeNeedMoreData:
				return true
			case handshakeRejected:
				return false
			case handshakeAccepted:
				continue
			}
		}

		if len(c.pending) < 4 {
			return true
		}
		header, err := wire.ParseRequestHeader(c.order, c.pending)
		if err != nil {
			return true // incomplete header, wait for more bytes
		}
		if header.LengthWords == 0 {
			c.log.Warnw("zero-length request, closing connection")
			return false
		}
		expected := header.ByteLength()
		if len(c.pending) < expected {
			return true
		}

		body := c.pending[4:expected]
		c.handleRequest(ctx, header, body)
		c.pending = c.pending[expected:]
	}
}

// handshakeResult reports the outcome of one tryHandshake call.
type handshakeResult int

const (
	handshakeNeedMoreData handshakeResult = iota
	handshakeRejected
	handshakeAccepted
)

// tryHandshake attempts the setup handshake against c.pending, per §4.5.
func (c *Client) tryHandshake() handshakeResult {
	size, err := xproto.ExpectedSetupSize(c.pending)
	if err != nil {
		return handshakeNeedMoreData // need more bytes for the 12-byte prefix
	}
	if len(c.pending) < size {
		return handshakeNeedMoreData // need more bytes for the full setup request
	}

	req, err := xproto.ParseSetupRequest(c.pending[:size])
	c.pending = c.pending[size:]
	if err != nil {
		c.log.Warnw("malformed setup request", "error", err)
		return handshakeRejected
	}

	c.order = req.Order
	c.log.Debugw("setup request", "major", req.MajorVersion, "minor", req.MinorVersion)

	if req.MajorVersion != protocolMajorVersion {
		c.write(xproto.SerializeFailed(c.order, protocolMajorVersion, 0, "unsupported protocol major version"))
		return handshakeRejected
	}

	// An empty authorization protocol name disables authorization.
	if c.server.Config().Auth.Enabled && req.AuthProtocolName != "" {
		if !c.server.auth.Verify(req.AuthProtocolName, req.AuthProtocolData) {
			c.write(xproto.SerializeFailed(c.order, protocolMajorVersion, 0, "authorization rejected"))
			return handshakeRejected
		}
	}

	c.authenticated = true
	c.write(xproto.SerializeSuccess(c.order, c.successReply()))
	c.log.Infow("client authenticated")
	return handshakeAccepted
}

func (c *Client) successReply() xproto.SuccessReply {
	width, height := c.server.fb.Dimensions()
	root := c.server.state.Windows.Root()
	cfg := c.server.Config()

	return xproto.SuccessReply{
		ProtocolMajor:     protocolMajorVersion,
		ProtocolMinor:     0,
		ReleaseNumber:     1,
		ResourceIDBase:    c.resourceIDBase,
		ResourceIDMask:    c.resourceIDMask,
		MotionBufferSize:  0,
		MaxRequestLength:  65535,
		ImageByteOrder:    0,
		BitmapBitOrder:    0,
		BitmapScanlineUnit: 32,
		BitmapScanlinePad: 32,
		MinKeycode:        8,
		MaxKeycode:        255,
		Vendor:            cfg.Server.Vendor,
		Formats: []xproto.PixmapFormat{
			{Depth: 24, BitsPerPixel: 32, ScanlinePad: 32},
		},
		Screens: []xproto.Screen{
			{
				Root:              root,
				DefaultColormap:   1,
				WhitePixel:        0xFFFFFF,
				BlackPixel:        0,
				CurrentInputMasks: 0,
				WidthPixels:       uint16(width),
				HeightPixels:      uint16(height),
				WidthMM:           cfg.Server.WidthMM,
				HeightMM:          cfg.Server.HeightMM,
				MinInstalledMaps:  1,
				MaxInstalledMaps:  1,
				RootVisual:        1,
				BackingStores:     0,
				SaveUnders:        false,
				RootDepth:         24,
				Depths: []xproto.Depth{
					{
						Depth: 24,
						Visuals: []xproto.Visual{
							{
								VisualID:        1,
								Class:           4, // TrueColor
								BitsPerRGBValue: 8,
								ColormapEntries: 256,
								RedMask:         0xFF0000,
								GreenMask:       0x00FF00,
								BlueMask:        0x0000FF,
							},
						},
					},
				},
			},
		},
	}
}

// handleRequest parses and dispatches one complete request body, writing
// any resulting reply or error frame stamped with the freshly assigned
// sequence number, per §4.8.
func (c *Client) handleRequest(ctx context.Context, header wire.RequestHeader, body []byte) {
	if err := c.limiter.Wait(ctx); err != nil {
		return // connection is closing; caller's read loop will exit next
	}

	c.sequence++

	req, err := xproto.Parse(c.order, header, body)
	if err != nil {
		c.log.Warnw("bad request", "opcode", header.MajorOpcode, "sequence", c.sequence, "error", err)
		c.write(xproto.SerializeError(c.order, xproto.ErrorFrame{
			Code:        xproto.ErrRequest,
			MajorOpcode: header.MajorOpcode,
		}, c.sequence))
		return
	}

	c.log.Debugw("request", "opcode", req.Opcode, "sequence", c.sequence)

	result := c.dispatch(req)
	if result.errorFrame != nil {
		result.errorFrame.MajorOpcode = header.MajorOpcode
		c.write(xproto.SerializeError(c.order, *result.errorFrame, c.sequence))
		return
	}
	if result.reply != nil {
		c.write(xproto.SerializeReply(c.order, *result.reply, c.sequence))
	}
	for _, ev := range result.events {
		c.write(xproto.SerializeEvent(c.order, ev, c.sequence))
	}
}

func (c *Client) write(b []byte) {
	if _, err := c.conn.Write(b); err != nil {
		c.log.Debugw("write error", "error", err)
	}
}

// teardown releases every resource this client owned and removes it from
// the server's client table, per §4.8's "on exit: call
// ServerState.release(client)".
func (c *Client) teardown() {
	c.conn.Close()
	destroyed := c.server.state.ReleaseClient(c.resourceClient())
	c.server.atoms.Release(c.atomClient())
	c.server.removeClient(c.id)
	c.log.Infow("client disconnected", "windows_destroyed", len(destroyed))
}
