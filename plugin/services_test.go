package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/rxserver/rxserver/config"
	"github.com/rxserver/rxserver/internal/atom"
	"github.com/rxserver/rxserver/internal/render"
	"github.com/rxserver/rxserver/internal/resource"
	"github.com/rxserver/rxserver/internal/xproto"
)

func newTestRegistryDeps(t *testing.T) (*resource.State, *atom.Registry, *render.Framebuffer, *config.Config) {
	t.Helper()
	return resource.NewState(1, 800, 600), atom.New(), render.New(800, 600, 24), &config.Config{}
}

func TestNewServiceRegistry(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	state, atoms, fb, cfg := newTestRegistryDeps(t)

	registry := NewServiceRegistry(state, atoms, fb, logger, cfg)
	assert.NotNil(t, registry)

	var _ ServiceRegistry = registry
}

func TestDefaultServiceRegistry_State(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	state, atoms, fb, cfg := newTestRegistryDeps(t)

	registry := NewServiceRegistry(state, atoms, fb, logger, cfg)
	assert.Equal(t, state, registry.State())
	assert.Equal(t, xproto.XID(1), registry.State().Windows.Root())
}

func TestDefaultServiceRegistry_Atoms(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	state, atoms, fb, cfg := newTestRegistryDeps(t)

	registry := NewServiceRegistry(state, atoms, fb, logger, cfg)
	assert.Equal(t, atoms, registry.Atoms())
}

func TestDefaultServiceRegistry_Framebuffer(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	state, atoms, fb, cfg := newTestRegistryDeps(t)

	registry := NewServiceRegistry(state, atoms, fb, logger, cfg)
	assert.Equal(t, fb, registry.Framebuffer())
}

func TestDefaultServiceRegistry_Config(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	state, atoms, fb, cfg := newTestRegistryDeps(t)

	registry := NewServiceRegistry(state, atoms, fb, logger, cfg)
	assert.Equal(t, cfg, registry.Config())
}

func TestDefaultServiceRegistry_Logger(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	state, atoms, fb, cfg := newTestRegistryDeps(t)
	registry := NewServiceRegistry(state, atoms, fb, logger, cfg)

	t.Run("logger with extension name", func(t *testing.T) {
		named := registry.Logger("big-requests")
		assert.NotNil(t, named)
		named.Info("test message")
	})

	t.Run("different extensions get distinct named loggers", func(t *testing.T) {
		l1 := registry.Logger("ext1")
		l2 := registry.Logger("ext2")
		assert.NotNil(t, l1)
		assert.NotNil(t, l2)
	})
}

func TestServiceRegistry_Integration(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	state, atoms, fb, cfg := newTestRegistryDeps(t)
	registry := NewServiceRegistry(state, atoms, fb, logger, cfg)

	plugin := newMockPlugin("integration-test")
	err := plugin.Initialize(nil, registry)
	assert.NoError(t, err)

	assert.Equal(t, state, registry.State())
	assert.NotNil(t, registry.Logger("integration-test"))
	assert.NotNil(t, registry.Config())
}
