package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Registry manages all registered extension plugins and the major-opcode
// ranges they've claimed.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]ExtensionPlugin
	ranges  map[string][2]byte
	version string // rxserver version
}

// NewRegistry creates a new plugin registry bound to serverVersion, used
// to check each plugin's ServerVersion constraint at Register time.
func NewRegistry(serverVersion string) *Registry {
	return &Registry{
		plugins: make(map[string]ExtensionPlugin),
		ranges:  make(map[string][2]byte),
		version: serverVersion,
	}
}

// Register registers an extension plugin. Returns an error if the name
// conflicts, the version constraint is incompatible, or the requested
// opcode range overlaps one already claimed.
func (r *Registry) Register(p ExtensionPlugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	metadata := p.Metadata()

	if _, exists := r.plugins[metadata.Name]; exists {
		return fmt.Errorf("extension already registered: %s", metadata.Name)
	}

	if err := r.validateVersion(metadata); err != nil {
		return fmt.Errorf("version incompatible for %s: %w", metadata.Name, err)
	}

	low, high := p.OpcodeRange()
	for name, rng := range r.ranges {
		if low <= rng[1] && rng[0] <= high {
			return fmt.Errorf("opcode range [%d,%d] for %s overlaps %s's [%d,%d]", low, high, metadata.Name, name, rng[0], rng[1])
		}
	}

	r.plugins[metadata.Name] = p
	r.ranges[metadata.Name] = [2]byte{low, high}
	return nil
}

// Get retrieves an extension plugin by name.
func (r *Registry) Get(name string) (ExtensionPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// List returns all registered plugin names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InitializeAll initializes every registered plugin, in sorted name order
// for deterministic startup.
func (r *Registry) InitializeAll(ctx context.Context, services ServiceRegistry) error {
	for _, name := range r.List() {
		p, ok := r.Get(name)
		if !ok {
			continue
		}
		if err := p.Initialize(ctx, services); err != nil {
			return fmt.Errorf("failed to initialize extension %s: %w", name, err)
		}
	}
	return nil
}

// ShutdownAll shuts down every registered plugin in reverse name order.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	names := r.List()
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var errs []error
	for _, name := range names {
		p, ok := r.Get(name)
		if !ok {
			continue
		}
		if err := p.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down extension %s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// HealthCheckAll checks the health of every registered plugin.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	r.mu.RLock()
	plugins := make(map[string]ExtensionPlugin, len(r.plugins))
	for name, p := range r.plugins {
		plugins[name] = p
	}
	r.mu.RUnlock()

	results := make(map[string]HealthStatus, len(plugins))
	for name, p := range plugins {
		results[name] = p.Health(ctx)
	}
	return results
}

// validateVersion checks a plugin's ServerVersion constraint, if any,
// against the registry's rxserver version.
func (r *Registry) validateVersion(metadata Metadata) error {
	if metadata.ServerVersion == "" {
		return nil
	}

	serverVer, err := semver.NewVersion(r.version)
	if err != nil {
		return fmt.Errorf("invalid server version %s: %w", r.version, err)
	}

	constraint, err := semver.NewConstraint(metadata.ServerVersion)
	if err != nil {
		return fmt.Errorf("invalid version constraint %s: %w", metadata.ServerVersion, err)
	}

	if !constraint.Check(serverVer) {
		return fmt.Errorf("extension requires rxserver %s, but running %s", metadata.ServerVersion, r.version)
	}
	return nil
}
