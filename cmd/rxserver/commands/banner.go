package commands

import (
	"fmt"

	"github.com/rxserver/rxserver/config"
	"github.com/rxserver/rxserver/version"
)

// printStartupBanner prints the user-friendly startup message before the
// acceptor loop starts listening.
func printStartupBanner(cfg *config.Config) {
	cyan := "\033[36m"
	green := "\033[32m"
	yellow := "\033[33m"
	bold := "\033[1m"
	reset := "\033[0m"

	info := version.Get()

	fmt.Printf("\n%s%s", cyan, bold)
	fmt.Printf("   ╔═══════════════════════════════════════════╗\n")
	fmt.Printf("   ║   rxserver - virtual X11 display server    ║\n")
	fmt.Printf("   ╚═══════════════════════════════════════════╝%s\n\n", reset)

	fmt.Printf("%s%s┌─ rxserver ───────────────────────────────────┐%s\n", green, bold, reset)
	fmt.Printf("%s│%s Version:    %s (commit %s)\n", green, reset, info.Version, info.Short())
	fmt.Printf("%s│%s Display:    :%d\n", green, reset, cfg.Server.DisplayNumber)
	fmt.Printf("%s│%s Resolution: %dx%d\n", green, reset, cfg.Server.Width, cfg.Server.Height)
	fmt.Printf("%s│%s Listen:     %s:%d\n", green, reset, cfg.Server.ListenAddress, cfg.TCPPort())
	if cfg.Server.UnixSocket {
		fmt.Printf("%s│%s Unix:       %s\n", green, reset, cfg.UnixSocketPath())
	}
	fmt.Printf("%s│%s Auth:       %v\n", green, reset, cfg.Auth.Enabled)
	fmt.Printf("%s└──────────────────────────────────────────────┘%s\n", green, reset)

	fmt.Printf("\n%s%s✨ Point an X11 client at DISPLAY=:%d%s\n", yellow, bold, cfg.Server.DisplayNumber, reset)
	fmt.Printf("Press Ctrl+C to stop\n\n")
}
