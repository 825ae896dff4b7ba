package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rxserver/rxserver/config"
	"github.com/rxserver/rxserver/internal/display"
	"github.com/rxserver/rxserver/internal/xauth"
	"github.com/rxserver/rxserver/logger"
	"github.com/rxserver/rxserver/plugin/grpc"
	"github.com/rxserver/rxserver/server"
)

// ServeCmd starts the rxserver virtual X11 display server.
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the rxserver virtual X11 display server",
	Long:    `Launch rxserver: open the configured TCP/Unix listeners, render into a gioui-backed virtual display window, and serve X11 clients until interrupted.`,
	RunE:    runServe,
}

var serveConfigPath string

func init() {
	ServeCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a TOML config file (when omitted, only defaults and RXSERVER_* environment overrides apply)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(cfg.Log.JSON); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Logger.Named("rxserver")

	authority, err := xauth.Load(cfg.Auth.XauthorityPath)
	if err != nil {
		return fmt.Errorf("failed to load Xauthority: %w", err)
	}
	if !cfg.Auth.Enabled {
		log.Infow("authorization disabled by config, accepting all clients")
	}

	extensions := launchExtensions(cfg, log)
	defer extensions.Shutdown()

	srv := server.New(cfg, authority, log)

	if serveConfigPath != "" {
		watcher, err := config.NewWatcher(serveConfigPath)
		if err != nil {
			log.Warnw("config watcher unavailable, edits to the config file will not be picked up live", "path", serveConfigPath, "error", err)
		} else {
			watcher.OnReload(srv.UpdateConfig)
			watcher.Start()
			defer watcher.Stop()
		}
	}

	printStartupBanner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	ui := display.NewUI(srv.Bridge(), int(cfg.Server.Width), int(cfg.Server.Height), log.Desugar())
	go func() {
		if err := ui.Run(); err != nil {
			log.Warnw("display window closed with error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case err := <-errCh:
			if err != nil {
				log.Errorw("server stopped unexpectedly", "error", err)
			}
			cancel()
			os.Exit(1)
		case <-sigCh:
			pterm.Info.Println("\nShutting down gracefully (press Ctrl+C again to force)...")
			done := make(chan struct{})
			go func() {
				if err := srv.Stop(); err != nil {
					log.Errorw("error during shutdown", "error", err)
				}
				cancel()
				close(done)
			}()

			select {
			case <-done:
				pterm.Success.Println("Server stopped cleanly")
				os.Exit(0)
			case <-sigCh:
				pterm.Warning.Println("\nForce shutdown - exiting immediately")
				os.Exit(1)
			case <-time.After(server.ShutdownTimeout + 5*time.Second):
				pterm.Warning.Println("Shutdown timed out - exiting")
				os.Exit(1)
			}
		}
	}()

	display.RunMain()
	return nil
}

// launchExtensions starts any configured out-of-process extensions and
// returns a handle that stops them on shutdown. Extensions that fail to
// launch are logged and skipped; rxserver runs fine in core-only mode.
func launchExtensions(cfg *config.Config, log *zap.SugaredLogger) *grpc.Manager {
	manager := grpc.NewManager(log.Named("extensions"))
	if len(cfg.Plugin.Enabled) == 0 {
		return manager
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, name := range cfg.Plugin.Enabled {
		binary := "rxserver-" + name + "-extension"
		launched := false
		for _, dir := range cfg.Plugin.Paths {
			resolved := expandHome(dir)
			extraArgs, extraEnv, fileErr := grpc.LoadExtensionFile(resolved, name)
			if fileErr != nil {
				log.Warnw("failed to read extension config file, continuing without it", "name", name, "dir", resolved, "error", fileErr)
			}

			err := manager.Launch(ctx, grpc.Config{
				Name:      name,
				Binary:    binary,
				BinaryDir: resolved,
				Args:      extraArgs,
				Env:       extraEnv,
			}, 5*time.Second)
			if err == nil {
				launched = true
				break
			}
		}
		if !launched {
			log.Warnw("extension not found or failed to start, continuing without it", "name", name, "paths", cfg.Plugin.Paths)
		}
	}
	return manager
}

// expandHome resolves a leading "~" to the current user's home directory,
// matching the shorthand used in rxserver.toml's default plugin.paths.
func expandHome(dir string) string {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return dir
		}
		return filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return dir
}
