package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestManager_AllocatePortLocked(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t).Sugar())

	assert.Equal(t, DefaultBasePort, m.allocatePortLocked())

	m.procs["a"] = &managedProcess{port: DefaultBasePort}
	assert.Equal(t, DefaultBasePort+1, m.allocatePortLocked())

	m.procs["b"] = &managedProcess{port: DefaultBasePort + 5}
	assert.Equal(t, DefaultBasePort+6, m.allocatePortLocked())
}

func TestManager_LaunchRejectsDuplicateName(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t).Sugar())
	m.procs["dup"] = &managedProcess{port: DefaultBasePort}

	err := m.Launch(nil, Config{Name: "dup"}, 0)
	assert.ErrorContains(t, err, "already running")
}

func TestManager_LaunchMissingBinary(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t).Sugar())

	err := m.Launch(nil, Config{Name: "missing", Binary: "/no/such/rxserver-extension-binary"}, 0)
	assert.ErrorContains(t, err, "not found")
}

func TestProcessLogger_PortAnnouncement(t *testing.T) {
	portCh := make(chan int, 1)
	l := &processLogger{log: zaptest.NewLogger(t).Sugar(), name: "test", level: "info", portCh: portCh}

	_, err := l.Write([]byte("RXSERVER_EXTENSION_PORT=38765\n"))
	assert.NoError(t, err)

	select {
	case port := <-portCh:
		assert.Equal(t, 38765, port)
	default:
		t.Fatal("expected port announcement to be delivered")
	}
}

func TestProcessLogger_PlainLine(t *testing.T) {
	l := &processLogger{log: zaptest.NewLogger(t).Sugar(), name: "test", level: "info"}

	n, err := l.Write([]byte("starting up\n"))
	assert.NoError(t, err)
	assert.Equal(t, len("starting up\n"), n)
}

func TestProcessLogger_JSONLevel(t *testing.T) {
	l := &processLogger{log: zaptest.NewLogger(t).Sugar(), name: "test", level: "info"}

	_, err := l.Write([]byte(`{"level":"error","msg":"boom"}` + "\n"))
	assert.NoError(t, err)
}
