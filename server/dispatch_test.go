package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rxserver/rxserver/config"
	"github.com/rxserver/rxserver/internal/resource"
	"github.com/rxserver/rxserver/internal/wire"
	"github.com/rxserver/rxserver/internal/xauth"
	"github.com/rxserver/rxserver/internal/xproto"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Width: 800, Height: 600, Vendor: "rxserver-test"},
	}
	authority, err := xauth.Load("")
	require.NoError(t, err)
	return New(cfg, authority, zap.NewNop().Sugar())
}

func newTestClient(t *testing.T, s *Server, id uint32) *Client {
	t.Helper()
	return &Client{
		id:     id,
		server: s,
		log:    s.log,
		order:  wire.LittleEndian,
	}
}

func TestCreateWindowThenGetGeometry(t *testing.T) {
	s := newTestServer(t)
	c := newTestClient(t, s, 1)

	result := c.dispatch(&xproto.Request{CreateWindow: &xproto.CreateWindowRequest{
		Wid:      10,
		Parent:   s.state.Windows.Root(),
		Geometry: xproto.Rectangle{X: 5, Y: 5, Width: 100, Height: 50},
		Class:    xproto.ClassInputOutput,
	}})
	assert.Nil(t, result.errorFrame)

	result = c.dispatch(&xproto.Request{GetGeometry: &xproto.GetGeometryRequest{Drawable: 10}})
	require.NotNil(t, result.reply)
	x, _ := wire.LittleEndian.Int16(result.reply.Data[4:6])
	assert.EqualValues(t, 5, x)
	w, _ := wire.LittleEndian.Uint16(result.reply.Data[8:10])
	assert.EqualValues(t, 100, w)
}

func TestCreateWindowDuplicateIDErrors(t *testing.T) {
	s := newTestServer(t)
	c := newTestClient(t, s, 1)

	req := &xproto.CreateWindowRequest{Wid: 20, Parent: s.state.Windows.Root(), Class: xproto.ClassInputOutput}
	result := c.dispatch(&xproto.Request{CreateWindow: req})
	assert.Nil(t, result.errorFrame)

	result = c.dispatch(&xproto.Request{CreateWindow: req})
	require.NotNil(t, result.errorFrame)
	assert.Equal(t, byte(xproto.ErrIDChoice), result.errorFrame.Code)
}

func TestGetGeometryUnknownDrawableErrors(t *testing.T) {
	s := newTestServer(t)
	c := newTestClient(t, s, 1)

	result := c.dispatch(&xproto.Request{GetGeometry: &xproto.GetGeometryRequest{Drawable: 999}})
	require.NotNil(t, result.errorFrame)
	assert.Equal(t, byte(xproto.ErrDrawable), result.errorFrame.Code)
}

func TestInternAtomReturnsStableID(t *testing.T) {
	s := newTestServer(t)
	c := newTestClient(t, s, 1)

	first := c.dispatch(&xproto.Request{InternAtom: &xproto.InternAtomRequest{Name: "MY_ATOM"}})
	require.NotNil(t, first.reply)
	second := c.dispatch(&xproto.Request{InternAtom: &xproto.InternAtomRequest{Name: "MY_ATOM"}})
	require.NotNil(t, second.reply)
	assert.Equal(t, first.reply.Data[0:4], second.reply.Data[0:4])
}

func TestGrabPointerSingleton(t *testing.T) {
	s := newTestServer(t)
	owner := newTestClient(t, s, 1)
	other := newTestClient(t, s, 2)

	result := owner.dispatch(&xproto.Request{GrabPointer: &xproto.GrabPointerRequest{GrabWindow: s.state.Windows.Root()}})
	require.NotNil(t, result.reply)
	assert.Equal(t, byte(xproto.GrabStatusSuccess), result.reply.OpcodeByte)

	result = other.dispatch(&xproto.Request{GrabPointer: &xproto.GrabPointerRequest{GrabWindow: s.state.Windows.Root()}})
	require.NotNil(t, result.reply)
	assert.Equal(t, byte(xproto.GrabStatusAlreadyGrabbed), result.reply.OpcodeByte)

	other.dispatch(&xproto.Request{UngrabPointer: &xproto.UngrabPointerRequest{}})
	assert.True(t, s.state.Grab.IsGrabbed(), "ungrab by non-owner must be a no-op")

	owner.dispatch(&xproto.Request{UngrabPointer: &xproto.UngrabPointerRequest{}})
	assert.False(t, s.state.Grab.IsGrabbed())
}

func TestCreateGCPreservesUnsetAttributes(t *testing.T) {
	s := newTestServer(t)
	c := newTestClient(t, s, 1)

	result := c.dispatch(&xproto.Request{CreateGC: &xproto.CreateGCRequest{
		Cid:       30,
		Drawable:  s.state.Windows.Root(),
		ValueMask: resource.GCForeground,
		Values:    []uint32{0xFF0000},
	}})
	assert.Nil(t, result.errorFrame)

	gc, ok := s.state.GCs.Get(30)
	require.True(t, ok)
	assert.EqualValues(t, 0xFF0000, gc.Foreground)
	assert.EqualValues(t, 1, gc.Background) // unset by value mask, left at DefaultGC's default
}

func TestQueryExtensionAlwaysAbsent(t *testing.T) {
	s := newTestServer(t)
	c := newTestClient(t, s, 1)

	result := c.dispatch(&xproto.Request{QueryExtension: &xproto.QueryExtensionRequest{Name: "BIG-REQUESTS"}})
	require.NotNil(t, result.reply)
	assert.Equal(t, byte(0), result.reply.Data[0])
}

func TestReleaseClientTeardownDestroysWindows(t *testing.T) {
	s := newTestServer(t)
	c := newTestClient(t, s, 1)

	c.dispatch(&xproto.Request{CreateWindow: &xproto.CreateWindowRequest{
		Wid: 40, Parent: s.state.Windows.Root(), Class: xproto.ClassInputOutput,
	}})
	_, ok := s.state.Windows.Get(40)
	require.True(t, ok)

	destroyed := s.state.ReleaseClient(c.resourceClient())
	assert.Contains(t, destroyed, xproto.XID(40))
	_, ok = s.state.Windows.Get(40)
	assert.False(t, ok)
}
