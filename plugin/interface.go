// Package plugin provides the extension architecture for out-of-core X11
// extensions (e.g. BIG-REQUESTS, XTEST, a future RENDER implementation).
//
// An extension plugin claims a named major-opcode range and runs as a
// separate process, reached over the plugin/grpc subpackage. The core
// dispatch table in server/dispatch.go never calls into a registered
// plugin for any opcode in spec.md's own table; QueryExtension always
// answers present=0 regardless of what is registered here. The registry
// exists so a future extension has a concrete place to live without
// perturbing core dispatch.
package plugin

import "context"

// ExtensionPlugin is the interface every out-of-core extension implements.
type ExtensionPlugin interface {
	// Metadata returns information about this extension.
	Metadata() Metadata

	// Initialize is called when the plugin is loaded. The plugin receives
	// a service registry to reach core server state.
	Initialize(ctx context.Context, services ServiceRegistry) error

	// Shutdown is called when the server is shutting down.
	Shutdown(ctx context.Context) error

	// OpcodeRange returns the inclusive [low, high] major opcode range
	// this extension wants to claim.
	OpcodeRange() (low, high byte)

	// Health returns the health status of this extension.
	Health(ctx context.Context) HealthStatus
}

// Metadata describes an extension plugin.
type Metadata struct {
	// Name is the extension name as QueryExtension would report it
	// (e.g. "BIG-REQUESTS").
	Name string

	// Version is the plugin version (semver).
	Version string

	// ServerVersion is the required rxserver version (semver constraint).
	ServerVersion string

	// Description is a human-readable description.
	Description string

	// Author is the plugin author/maintainer.
	Author string

	// License is the plugin license (e.g., "MIT", "Apache-2.0").
	License string
}

// HealthStatus represents the health of an extension plugin.
type HealthStatus struct {
	Healthy bool
	Paused  bool // True if plugin is intentionally paused (not a failure)
	Message string
	Details map[string]interface{}
}

// State represents the current lifecycle state of a plugin.
type State string

const (
	StateLoading State = "loading"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
	StateFailed  State = "failed"
)

// PausablePlugin is an optional interface for plugins that support
// pause/resume without a full shutdown/restart cycle.
type PausablePlugin interface {
	ExtensionPlugin

	// Pause temporarily suspends the plugin's operations. The plugin
	// should stop claiming its opcode range but keep its state.
	Pause(ctx context.Context) error

	// Resume restores the plugin to active operation after a pause.
	Resume(ctx context.Context) error
}
