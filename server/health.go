package server

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/rxserver/rxserver/internal/resource"
)

// runHealthMonitor ticks every HealthTickInterval and logs aggregate
// server stats: connected clients, atoms interned, windows live, frames
// delivered to the display bridge, plus host CPU/memory as a coarse
// resource signal. It never influences protocol behavior, per §4.19.
func (s *Server) runHealthMonitor() {
	ticker := time.NewTicker(HealthTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.logHealth()
		}
	}
}

func (s *Server) logHealth() {
	fields := []interface{}{
		"clients", s.clientCount(),
		"atoms", len(s.atoms.Names()),
		"windows", s.windowCount(),
		"frames_delivered", s.framesDelivered.Load(),
		"grabbed", s.state.Grab.IsGrabbed(),
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		fields = append(fields, "cpu_percent", pct[0])
	}
	if v, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, "mem_used_percent", v.UsedPercent)
	}

	s.log.Infow("health", fields...)
}

// windowCount is a live-window census: the root window (owner id 0, never
// assigned to a real connection) plus every window owned by a connected
// client.
func (s *Server) windowCount() int {
	count := len(s.state.Windows.OwnedBy(resource.ClientID(0)))

	s.mu.RLock()
	ids := make([]uint32, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		count += len(s.state.Windows.OwnedBy(resource.ClientID(id)))
	}
	return count
}
