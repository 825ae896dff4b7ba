package plugin

import (
	"go.uber.org/zap"

	"github.com/rxserver/rxserver/config"
	"github.com/rxserver/rxserver/internal/atom"
	"github.com/rxserver/rxserver/internal/render"
	"github.com/rxserver/rxserver/internal/resource"
)

// ServiceRegistry provides access to rxserver's core state for extension
// plugins. Plugins use this registry to reach the same resource tables,
// atom namespace, and framebuffer the core dispatch table mutates,
// without the core ever calling back into a plugin.
type ServiceRegistry interface {
	// State returns the shared resource tables (windows, fonts, cursors,
	// GCs, pointer grab).
	State() *resource.State

	// Atoms returns the shared atom registry.
	Atoms() *atom.Registry

	// Framebuffer returns the shared software framebuffer.
	Framebuffer() *render.Framebuffer

	// Logger returns a logger namespaced to the given extension name.
	Logger(name string) *zap.SugaredLogger

	// Config returns the server's resolved configuration.
	Config() *config.Config
}

// DefaultServiceRegistry is the standard ServiceRegistry implementation,
// backed directly by a running Server's fields.
type DefaultServiceRegistry struct {
	state  *resource.State
	atoms  *atom.Registry
	fb     *render.Framebuffer
	logger *zap.SugaredLogger
	cfg    *config.Config
}

// NewServiceRegistry builds a ServiceRegistry over the given core state.
func NewServiceRegistry(state *resource.State, atoms *atom.Registry, fb *render.Framebuffer, logger *zap.SugaredLogger, cfg *config.Config) ServiceRegistry {
	return &DefaultServiceRegistry{state: state, atoms: atoms, fb: fb, logger: logger, cfg: cfg}
}

func (r *DefaultServiceRegistry) State() *resource.State           { return r.state }
func (r *DefaultServiceRegistry) Atoms() *atom.Registry            { return r.atoms }
func (r *DefaultServiceRegistry) Framebuffer() *render.Framebuffer { return r.fb }
func (r *DefaultServiceRegistry) Config() *config.Config           { return r.cfg }

func (r *DefaultServiceRegistry) Logger(name string) *zap.SugaredLogger {
	return r.logger.Named(name)
}
