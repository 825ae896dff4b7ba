// Package server implements the acceptor, the per-connection state
// machine, and the background health monitor that together drive the
// protocol engine: everything between a raw TCP/Unix accept and the
// internal/resource and internal/render mutations a request ultimately
// causes.
package server

import (
	"context"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rxserver/rxserver/config"
	"github.com/rxserver/rxserver/errors"
	"github.com/rxserver/rxserver/internal/atom"
	"github.com/rxserver/rxserver/internal/display"
	"github.com/rxserver/rxserver/internal/render"
	"github.com/rxserver/rxserver/internal/resource"
	"github.com/rxserver/rxserver/internal/xauth"
	"github.com/rxserver/rxserver/internal/xproto"
)

// resourceIDMask is the per-client XID range width handed out at setup,
// per §4.5: "mask 0x003FFFFF, giving each client up to ~4 million XIDs".
const resourceIDMask = 0x003FFFFF

// resourceIDBaseStart is the first client's resource id base.
const resourceIDBaseStart = 0x00400000

// rootWindow is the fixed XID of the one root window this server exposes.
const rootWindow = xproto.XID(1)

// Server owns the shared protocol state (resource tables, atom registry,
// framebuffer, display bridge) and the listening transports. One Server
// serves every connection; each connection gets its own Client and
// goroutine.
type Server struct {
	cfgPtr atomic.Pointer[config.Config]
	auth   *xauth.Authority
	log    *zap.SugaredLogger

	state *resource.State
	atoms *atom.Registry
	fb    *render.Framebuffer
	bridge *display.Bridge

	listener     net.Listener
	unixListener net.Listener

	mu      sync.RWMutex
	clients map[uint32]*Client

	nextClientIndex atomic.Uint32

	framesDelivered atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	serverState atomic.Int32
}

// New builds a Server bound to cfg's virtual display dimensions, but opens
// no sockets yet (see Run).
func New(cfg *config.Config, authority *xauth.Authority, log *zap.SugaredLogger) *Server {
	s := &Server{
		auth:    authority,
		log:     log,
		state:   resource.NewState(rootWindow, cfg.Server.Width, cfg.Server.Height),
		atoms:   atom.New(),
		fb:      render.New(int(cfg.Server.Width), int(cfg.Server.Height), 24),
		bridge:  display.NewBridge(),
		clients: make(map[uint32]*Client),
	}
	s.cfgPtr.Store(cfg)
	return s
}

// Bridge exposes the display bridge so cmd/rxserver can hand it to the
// host UI thread before calling Run.
func (s *Server) Bridge() *display.Bridge { return s.bridge }

// Config returns the currently active configuration. Per §4.14, a config
// reload only ever affects what this returns for future client setup
// replies; it never resizes the already-running virtual display.
func (s *Server) Config() *config.Config { return s.cfgPtr.Load() }

// UpdateConfig atomically replaces the active configuration, for use as a
// config.Watcher reload callback.
func (s *Server) UpdateConfig(cfg *config.Config) error {
	s.cfgPtr.Store(cfg)
	return nil
}

// Run opens the configured transports and blocks, accepting connections
// until ctx is cancelled or Stop is called. It spawns the acceptor loop(s)
// and the health monitor as goroutines tracked by s.wg, grounded on the
// teacher's wg/ctx/cancel lifecycle pattern.
func (s *Server) Run(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.serverState.Store(int32(ServerStateRunning))

	cfg := s.Config()
	addr := cfg.Server.ListenAddress + ":" + strconv.Itoa(cfg.TCPPort())
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "server: listening on %s", addr)
	}
	s.listener = ln
	s.log.Infow("listening", "transport", "tcp", "address", addr)

	if cfg.Server.UnixSocket {
		if uln, err := s.listenUnix(); err != nil {
			s.log.Warnw("unix socket listen failed, continuing with TCP only", "error", err)
		} else {
			s.unixListener = uln
			s.log.Infow("listening", "transport", "unix", "path", cfg.UnixSocketPath())
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(s.listener)
	}()

	if s.unixListener != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.acceptLoop(s.unixListener)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runHealthMonitor()
	}()

	<-s.ctx.Done()
	return nil
}

func (s *Server) listenUnix() (net.Listener, error) {
	path := s.Config().UnixSocketPath()
	_ = os.MkdirAll("/tmp/.X11-unix", 0o1777)
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

// acceptLoop accepts connections on ln until the server context is
// cancelled, spawning one goroutine per connection per §4.9. Recoverable
// Accept errors are logged and the loop continues; a closed listener ends
// the loop cleanly.
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			s.log.Warnw("accept error", "error", err)
			continue
		}

		s.mu.RLock()
		atCapacity := len(s.clients) >= MaxClients
		s.mu.RUnlock()
		if atCapacity {
			s.log.Warnw("connection refused, at capacity", "max_clients", MaxClients)
			conn.Close()
			continue
		}

		client := s.newClient(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			client.serve(s.ctx)
		}()
	}
}

func (s *Server) newClient(conn net.Conn) *Client {
	index := s.nextClientIndex.Add(1) - 1
	id := index + 1 // id 0 is reserved (no real client ever owns it)

	base := uint32(resourceIDBaseStart) + index*uint32(resourceIDMask+1)
	c := &Client{
		id:              id,
		conn:            conn,
		server:          s,
		log:             s.log.With(zap.Uint32("client_id", id)),
		resourceIDBase:  base,
		resourceIDMask:  resourceIDMask,
		limiter:         rate.NewLimiter(rate.Limit(ClientRequestRate), ClientRequestBurst),
	}

	s.mu.Lock()
	s.clients[id] = c
	s.mu.Unlock()
	return c
}

func (s *Server) removeClient(id uint32) {
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
}

// clientCount is read by the health monitor.
func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Stop gracefully shuts down the server: it stops accepting new
// connections, closes every client transport so blocked reads unblock,
// cancels the shared context, and waits (bounded by ShutdownTimeout) for
// every spawned goroutine to exit.
func (s *Server) Stop() error {
	s.log.Infow("shutting down")
	s.serverState.Store(int32(ServerStateDraining))

	if s.listener != nil {
		s.listener.Close()
	}
	if s.unixListener != nil {
		s.unixListener.Close()
	}

	s.mu.Lock()
	conns := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.conn.Close()
	}

	s.bridge.Send(display.Command{Kind: display.CommandShutdown})

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Infow("shutdown complete")
	case <-time.After(ShutdownTimeout):
		s.log.Warnw("shutdown timed out, forcing exit", "timeout", ShutdownTimeout)
	}

	s.serverState.Store(int32(ServerStateStopped))
	return nil
}
