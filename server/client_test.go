package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/rxserver/rxserver/internal/wire"
	"github.com/rxserver/rxserver/internal/xproto"
)

// setupPacket builds a raw, unauthenticated X11 setup request with no auth
// protocol fields, matching what a client with xauth disabled would send.
func setupPacket(order wire.Order, major, minor uint16) []byte {
	b := make([]byte, 12)
	b[0] = byte(order)
	order.PutUint16(b[2:4], major)
	order.PutUint16(b[4:6], minor)
	order.PutUint16(b[6:8], 0) // auth protocol name length
	order.PutUint16(b[8:10], 0) // auth protocol data length
	return b
}

func newPipedClient(t *testing.T, s *Server) (*Client, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	c := s.newClient(serverConn)
	return c, clientConn
}

func TestClient_HandshakeAcceptedWithAuthDisabled(t *testing.T) {
	s := newTestServer(t)
	c, conn := newPipedClient(t, s)
	defer conn.Close()

	go c.serve(context.Background())

	_, err := conn.Write(setupPacket(wire.LittleEndian, protocolMajorVersion, 0))
	require.NoError(t, err)

	reply := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(reply)
	require.NoError(t, err)
	assert.EqualValues(t, 1, reply[0]) // success code
}

func TestClient_HandshakeRejectsUnsupportedMajorVersion(t *testing.T) {
	s := newTestServer(t)
	c, conn := newPipedClient(t, s)
	defer conn.Close()

	go c.serve(context.Background())

	_, err := conn.Write(setupPacket(wire.LittleEndian, 12, 0))
	require.NoError(t, err)

	reply := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(reply)
	require.NoError(t, err)
	assert.EqualValues(t, 0, reply[0]) // failed code
}

func TestClient_HandleRequestRespectsLimiterCancellation(t *testing.T) {
	s := newTestServer(t)
	c, conn := newPipedClient(t, s)
	defer conn.Close()

	c.authenticated = true
	c.limiter = rate.NewLimiter(0, 0) // never allows a token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		c.handleRequest(ctx, wire.RequestHeader{MajorOpcode: byte(xproto.OpInternAtom)}, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handleRequest did not return once context was cancelled")
	}
}
