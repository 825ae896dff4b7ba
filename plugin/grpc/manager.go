// Package grpc supervises out-of-process extension plugins. Each extension
// is a separate binary (named rxserver-<name>-extension) that the manager
// launches, waits for over gRPC health checks, and tracks for the lifetime
// of the server. The wire contract between rxserver and an extension
// process is deliberately thin: the extension need only serve the standard
// grpc_health_v1 health service on the port it announces on stdout. Richer
// request routing between core and an extension is out of scope until a
// real extension exists to drive the design; today the manager's job is
// process supervision, not protocol translation.
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rxserver/rxserver/errors"
)

// DefaultBasePort is the starting port for extension process allocation.
// Chosen to avoid collision with common development tooling.
const DefaultBasePort = 38700

// PortEnvAnnouncement is the line prefix an extension process writes to its
// own stdout once it has bound its health-check listener, e.g.
// "RXSERVER_EXTENSION_PORT=38701". The manager watches for this line
// instead of assuming the port it requested was the one actually bound.
const PortEnvAnnouncement = "RXSERVER_EXTENSION_PORT="

// Config describes how to supervise a single extension process.
type Config struct {
	// Name must match the extension's own Metadata().Name once the
	// extension is reachable.
	Name string

	// Binary is the path to the extension executable. Relative paths are
	// resolved against BinaryDir.
	Binary string

	// BinaryDir is the directory relative paths in Binary resolve
	// against, typically the plugin directory from config.PluginConfig.
	BinaryDir string

	// Args are additional arguments passed to the extension process.
	Args []string

	// Env are additional environment variables for the extension process.
	Env map[string]string
}

// managedProcess tracks a running extension process.
type managedProcess struct {
	config     Config
	instanceID string // distinguishes relaunches of the same named extension in logs
	process    *os.Process
	conn       *grpc.ClientConn
	port       int
}

// Manager launches and supervises extension processes, reached over
// gRPC health checks on the ports they announce.
type Manager struct {
	mu       sync.RWMutex
	procs    map[string]*managedProcess
	log      *zap.SugaredLogger
	basePort int
}

// NewManager creates a Manager that logs through log.
func NewManager(log *zap.SugaredLogger) *Manager {
	return &Manager{
		procs:    make(map[string]*managedProcess),
		log:      log,
		basePort: DefaultBasePort,
	}
}

// Launch starts the extension process described by cfg and blocks until
// its health service reports SERVING or timeout elapses.
func (m *Manager) Launch(ctx context.Context, cfg Config, timeout time.Duration) error {
	m.mu.Lock()
	if _, exists := m.procs[cfg.Name]; exists {
		m.mu.Unlock()
		return errors.Newf("extension already running: %s", cfg.Name)
	}
	port := m.allocatePortLocked()
	m.mu.Unlock()

	binary := cfg.Binary
	if !filepath.IsAbs(binary) {
		binary = filepath.Join(cfg.BinaryDir, binary)
	}
	if _, err := os.Stat(binary); err != nil {
		return errors.Wrapf(err, "extension binary not found for %s: %s", cfg.Name, binary)
	}

	process, actualPort, err := m.start(cfg, binary, port)
	if err != nil {
		return errors.Wrapf(err, "failed to launch extension %s", cfg.Name)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", actualPort)
	conn, err := m.waitHealthy(ctx, addr, timeout)
	if err != nil {
		process.Kill()
		return errors.Wrapf(err, "extension %s never became healthy at %s", cfg.Name, addr)
	}

	instanceID := uuid.NewString()
	m.mu.Lock()
	m.procs[cfg.Name] = &managedProcess{config: cfg, instanceID: instanceID, process: process, conn: conn, port: actualPort}
	m.mu.Unlock()

	m.log.Infow("extension process ready", "name", cfg.Name, "instance_id", instanceID, "pid", process.Pid, "addr", addr)
	return nil
}

// allocatePortLocked returns the next free port, assuming mu is held.
func (m *Manager) allocatePortLocked() int {
	max := m.basePort - 1
	for _, p := range m.procs {
		if p.port > max {
			max = p.port
		}
	}
	if max < m.basePort {
		return m.basePort
	}
	return max + 1
}

func (m *Manager) start(cfg Config, binary string, port int) (*os.Process, int, error) {
	args := append([]string{"--port", strconv.Itoa(port)}, cfg.Args...)
	cmd := exec.Command(binary, args...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	portCh := make(chan int, 1)
	cmd.Stdout = &processLogger{log: m.log, name: cfg.Name, level: "info", portCh: portCh}
	cmd.Stderr = &processLogger{log: m.log, name: cfg.Name, level: "error"}

	if err := cmd.Start(); err != nil {
		return nil, 0, err
	}

	actual := port
	select {
	case p := <-portCh:
		actual = p
	case <-time.After(2 * time.Second):
		m.log.Debugw("no port announcement from extension, assuming requested port", "name", cfg.Name, "port", port)
	}
	return cmd.Process, actual, nil
}

// waitHealthy polls the extension's gRPC health service until it reports
// SERVING or the deadline passes.
func (m *Manager) waitHealthy(ctx context.Context, addr string, timeout time.Duration) (*grpc.ClientConn, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		dialCtx, cancel := context.WithTimeout(ctx, time.Second)
		conn, err := grpc.DialContext(dialCtx, addr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithBlock(),
		)
		cancel()
		if err != nil {
			lastErr = err
			time.Sleep(100 * time.Millisecond)
			continue
		}

		checkCtx, checkCancel := context.WithTimeout(ctx, time.Second)
		resp, err := healthpb.NewHealthClient(conn).Check(checkCtx, &healthpb.HealthCheckRequest{})
		checkCancel()
		if err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING {
			return conn, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = errors.Newf("extension at %s reported status %s", addr, resp.Status)
		}
		conn.Close()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.Newf("extension at %s never became reachable", addr)
	}
	return nil, errors.Wrapf(lastErr, "timeout waiting for %s to report healthy", addr)
}

// Health returns the most recent health check result for a running
// extension process.
func (m *Manager) Health(ctx context.Context, name string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	m.mu.RLock()
	p, ok := m.procs[name]
	m.mu.RUnlock()
	if !ok {
		return healthpb.HealthCheckResponse_UNKNOWN, errors.Newf("no such extension process: %s", name)
	}

	resp, err := healthpb.NewHealthClient(p.conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}

// Shutdown signals every managed extension process to stop and closes
// its connection.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, p := range m.procs {
		if p.conn != nil {
			p.conn.Close()
		}
		if p.process != nil {
			if err := p.process.Signal(os.Interrupt); err != nil {
				m.log.Warnw("failed to signal extension process, killing", "name", name, "error", err)
				p.process.Kill()
			}
		}
	}
	m.procs = make(map[string]*managedProcess)
	return nil
}

// processLogger relays an extension process's stdout/stderr lines into the
// server's structured logger and watches stdout for the port announcement.
type processLogger struct {
	log    *zap.SugaredLogger
	name   string
	level  string
	buf    strings.Builder
	portCh chan int
}

func (l *processLogger) Write(p []byte) (int, error) {
	l.buf.Write(p)
	for {
		line, rest, found := strings.Cut(l.buf.String(), "\n")
		if !found {
			break
		}
		l.buf.Reset()
		l.buf.WriteString(rest)

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if l.portCh != nil && strings.HasPrefix(line, PortEnvAnnouncement) {
			if port, err := strconv.Atoi(strings.TrimPrefix(line, PortEnvAnnouncement)); err == nil {
				select {
				case l.portCh <- port:
				default:
				}
			}
			continue
		}

		var entry struct {
			Level string `json:"level"`
		}
		level := l.level
		if err := json.Unmarshal([]byte(line), &entry); err == nil && entry.Level != "" {
			level = entry.Level
		}
		switch level {
		case "debug":
			l.log.Debugf("[%s] %s", l.name, line)
		case "warn":
			l.log.Warnf("[%s] %s", l.name, line)
		case "error":
			l.log.Errorf("[%s] %s", l.name, line)
		default:
			l.log.Infof("[%s] %s", l.name, line)
		}
	}
	return len(p), nil
}
