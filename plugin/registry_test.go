package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock Plugin Implementation
// =============================================================================

type mockPlugin struct {
	metadata       Metadata
	low, high      byte
	initCalled     bool
	shutdownCalled bool
	initError      error
	shutdownError  error
	healthStatus   HealthStatus
	mu             sync.Mutex
}

// mockOpcodeSeq hands each mock its own single extension opcode so plugins
// built with newMockPlugin never overlap one another.
var mockOpcodeSeq uint32

func newMockPlugin(name string) *mockPlugin {
	op := byte(128 + atomic.AddUint32(&mockOpcodeSeq, 1)%128)
	return &mockPlugin{
		low:  op,
		high: op,
		metadata: Metadata{
			Name:        name,
			Version:     "1.0.0",
			Description: fmt.Sprintf("Mock %s plugin", name),
			Author:      "Test",
			License:     "MIT",
		},
		healthStatus: HealthStatus{Healthy: true, Message: "OK"},
	}
}

func newMockPluginRange(name string, low, high byte) *mockPlugin {
	p := newMockPlugin(name)
	p.low, p.high = low, high
	return p
}

func (m *mockPlugin) Metadata() Metadata { return m.metadata }

func (m *mockPlugin) Initialize(ctx context.Context, services ServiceRegistry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalled = true
	return m.initError
}

func (m *mockPlugin) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownCalled = true
	return m.shutdownError
}

func (m *mockPlugin) OpcodeRange() (byte, byte) { return m.low, m.high }

func (m *mockPlugin) Health(ctx context.Context) HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthStatus
}

var _ ExtensionPlugin = (*mockPlugin)(nil)

// =============================================================================
// Registry Tests
// =============================================================================

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry("1.0.0")
	assert.NotNil(t, registry)
	assert.Equal(t, "1.0.0", registry.version)
	assert.Empty(t, registry.plugins)
}

func TestRegistry_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		plugin := newMockPlugin("test")

		err := registry.Register(plugin)
		require.NoError(t, err)

		retrieved, ok := registry.Get("test")
		assert.True(t, ok)
		assert.Equal(t, plugin, retrieved)
	})

	t.Run("name conflict", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		plugin1 := newMockPlugin("test")
		plugin2 := newMockPlugin("test")

		require.NoError(t, registry.Register(plugin1))

		err := registry.Register(plugin2)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("overlapping opcode range rejected", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		require.NoError(t, registry.Register(newMockPluginRange("first", 128, 135)))

		err := registry.Register(newMockPluginRange("second", 130, 140))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "overlaps")
	})

	t.Run("disjoint opcode ranges accepted", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		require.NoError(t, registry.Register(newMockPluginRange("first", 128, 135)))
		assert.NoError(t, registry.Register(newMockPluginRange("second", 136, 140)))
	})

	t.Run("version compatibility - no constraint", func(t *testing.T) {
		registry := NewRegistry("2.5.3")
		plugin := newMockPlugin("test")
		plugin.metadata.ServerVersion = ""

		assert.NoError(t, registry.Register(plugin))
	})

	t.Run("version compatibility - valid constraint", func(t *testing.T) {
		registry := NewRegistry("1.5.0")
		plugin := newMockPlugin("test")
		plugin.metadata.ServerVersion = "^1.0.0"

		assert.NoError(t, registry.Register(plugin))
	})

	t.Run("version compatibility - incompatible constraint", func(t *testing.T) {
		registry := NewRegistry("2.0.0")
		plugin := newMockPlugin("test")
		plugin.metadata.ServerVersion = "^1.0.0"

		err := registry.Register(plugin)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "version incompatible")
	})

	t.Run("invalid version constraint syntax", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		plugin := newMockPlugin("test")
		plugin.metadata.ServerVersion = "invalid-constraint"

		err := registry.Register(plugin)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid version constraint")
	})
}

func TestRegistry_Get(t *testing.T) {
	t.Run("existing plugin", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		plugin := newMockPlugin("test")
		registry.Register(plugin)

		retrieved, ok := registry.Get("test")
		assert.True(t, ok)
		assert.Equal(t, plugin, retrieved)
	})

	t.Run("non-existent plugin", func(t *testing.T) {
		registry := NewRegistry("1.0.0")

		retrieved, ok := registry.Get("nonexistent")
		assert.False(t, ok)
		assert.Nil(t, retrieved)
	})
}

func TestRegistry_List(t *testing.T) {
	t.Run("empty registry", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		assert.Empty(t, registry.List())
	})

	t.Run("multiple plugins - sorted order", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		registry.Register(newMockPlugin("zebra"))
		registry.Register(newMockPlugin("alpha"))
		registry.Register(newMockPlugin("beta"))

		list := registry.List()
		assert.Equal(t, []string{"alpha", "beta", "zebra"}, list)
		assert.True(t, sort.StringsAreSorted(list))
	})
}

func TestRegistry_InitializeAll(t *testing.T) {
	t.Run("successful initialization", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		plugin1 := newMockPlugin("test1")
		plugin2 := newMockPlugin("test2")
		registry.Register(plugin1)
		registry.Register(plugin2)

		err := registry.InitializeAll(context.Background(), nil)
		require.NoError(t, err)

		assert.True(t, plugin1.initCalled)
		assert.True(t, plugin2.initCalled)
	})

	t.Run("initialization error", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		plugin1 := newMockPlugin("test1")
		plugin1.initError = fmt.Errorf("init failed")
		registry.Register(plugin1)

		err := registry.InitializeAll(context.Background(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize")
		assert.Contains(t, err.Error(), "test1")
	})

	t.Run("deterministic order", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		var initOrder []string
		var mu sync.Mutex

		for _, name := range []string{"zebra", "alpha", "beta"} {
			plugin := &trackingPlugin{
				mockPlugin: newMockPlugin(name),
				onInit: func(pluginName string) {
					mu.Lock()
					initOrder = append(initOrder, pluginName)
					mu.Unlock()
				},
			}
			registry.Register(plugin)
		}

		require.NoError(t, registry.InitializeAll(context.Background(), nil))
		assert.Equal(t, []string{"alpha", "beta", "zebra"}, initOrder)
	})
}

func TestRegistry_ShutdownAll(t *testing.T) {
	t.Run("successful shutdown", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		plugin1 := newMockPlugin("test1")
		plugin2 := newMockPlugin("test2")
		registry.Register(plugin1)
		registry.Register(plugin2)

		require.NoError(t, registry.ShutdownAll(context.Background()))
		assert.True(t, plugin1.shutdownCalled)
		assert.True(t, plugin2.shutdownCalled)
	})

	t.Run("shutdown errors collected", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		plugin1 := newMockPlugin("test1")
		plugin1.shutdownError = fmt.Errorf("shutdown failed")
		registry.Register(plugin1)

		err := registry.ShutdownAll(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "shutdown errors")
	})

	t.Run("reverse order shutdown", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		var shutdownOrder []string
		var mu sync.Mutex

		for _, name := range []string{"alpha", "beta", "gamma"} {
			plugin := &trackingPlugin{
				mockPlugin: newMockPlugin(name),
				onShutdown: func(pluginName string) {
					mu.Lock()
					shutdownOrder = append(shutdownOrder, pluginName)
					mu.Unlock()
				},
			}
			registry.Register(plugin)
		}

		require.NoError(t, registry.ShutdownAll(context.Background()))
		assert.Equal(t, []string{"gamma", "beta", "alpha"}, shutdownOrder)
	})
}

func TestRegistry_HealthCheckAll(t *testing.T) {
	t.Run("partial health issues", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		plugin1 := newMockPlugin("test1")
		plugin2 := newMockPlugin("test2")
		plugin2.healthStatus = HealthStatus{Healthy: false, Message: "Error"}
		registry.Register(plugin1)
		registry.Register(plugin2)

		health := registry.HealthCheckAll(context.Background())
		assert.Len(t, health, 2)
		assert.True(t, health["test1"].Healthy)
		assert.False(t, health["test2"].Healthy)
		assert.Equal(t, "Error", health["test2"].Message)
	})
}

func TestRegistry_validateVersion(t *testing.T) {
	tests := []struct {
		name          string
		serverVersion string
		constraint    string
		wantErr       bool
	}{
		{"no constraint", "1.0.0", "", false},
		{"exact match", "1.0.0", "1.0.0", false},
		{"caret constraint - compatible", "1.5.2", "^1.0.0", false},
		{"caret constraint - incompatible", "2.0.0", "^1.0.0", true},
		{"tilde constraint - compatible", "1.2.5", "~1.2.0", false},
		{"tilde constraint - incompatible", "1.3.0", "~1.2.0", true},
		{"range constraint - compatible", "1.5.0", ">=1.0.0 <2.0.0", false},
		{"invalid server version", "invalid", "^1.0.0", true},
		{"invalid constraint syntax", "1.0.0", "not-a-version", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry(tt.serverVersion)
			metadata := Metadata{Name: "test", ServerVersion: tt.constraint}

			err := registry.validateVersion(metadata)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestRegistry_Concurrency(t *testing.T) {
	t.Run("concurrent registration", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		var wg sync.WaitGroup
		const workers = 10

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				registry.Register(newMockPlugin(fmt.Sprintf("plugin%d", id)))
			}(i)
		}

		wg.Wait()
		assert.Len(t, registry.List(), workers)
	})

	t.Run("concurrent read/write", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		registry.Register(newMockPlugin("test"))

		var wg sync.WaitGroup
		const readers = 5
		const writers = 5

		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					registry.Get("test")
					registry.List()
				}
			}()
		}

		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					registry.Register(newMockPlugin(fmt.Sprintf("writer%d-%d", id, j)))
				}
			}(i)
		}

		wg.Wait()
	})
}

// =============================================================================
// Tracking Plugin for Order Tests
// =============================================================================

type trackingPlugin struct {
	*mockPlugin
	onInit     func(string)
	onShutdown func(string)
}

func (t *trackingPlugin) Initialize(ctx context.Context, services ServiceRegistry) error {
	if t.onInit != nil {
		t.onInit(t.mockPlugin.metadata.Name)
	}
	return t.mockPlugin.Initialize(ctx, services)
}

func (t *trackingPlugin) Shutdown(ctx context.Context) error {
	if t.onShutdown != nil {
		t.onShutdown(t.mockPlugin.metadata.Name)
	}
	return t.mockPlugin.Shutdown(ctx)
}

var _ ExtensionPlugin = (*trackingPlugin)(nil)
