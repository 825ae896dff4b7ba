package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/rxserver/rxserver/config"
)

var configPath string

// ConfigCmd shows the resolved configuration rxserver would run with,
// after defaults and RXSERVER_*-prefixed environment overrides are merged.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved rxserver configuration",
	Long:  `Load and print the configuration rxserver would start with, including defaults and environment overrides, without starting the server.`,
	RunE:  runConfig,
}

func init() {
	ConfigCmd.Flags().StringVar(&configPath, "config", "", "Path to a TOML config file (when omitted, only defaults and RXSERVER_* environment overrides apply)")
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data := [][]string{
		{"display_number", fmt.Sprintf("%d", cfg.Server.DisplayNumber)},
		{"listen_address", cfg.Server.ListenAddress},
		{"tcp_port", fmt.Sprintf("%d", cfg.TCPPort())},
		{"unix_socket", fmt.Sprintf("%v", cfg.Server.UnixSocket)},
		{"width", fmt.Sprintf("%d", cfg.Server.Width)},
		{"height", fmt.Sprintf("%d", cfg.Server.Height)},
		{"vendor", cfg.Server.Vendor},
		{"auth.enabled", fmt.Sprintf("%v", cfg.Auth.Enabled)},
		{"log.json", fmt.Sprintf("%v", cfg.Log.JSON)},
		{"log.theme", cfg.Log.Theme},
		{"plugin.enabled", fmt.Sprintf("%v", cfg.Plugin.Enabled)},
		{"plugin.paths", fmt.Sprintf("%v", cfg.Plugin.Paths)},
	}

	table := pterm.DefaultTable.WithHasHeader().WithData(append([][]string{{"Key", "Value"}}, data...))
	return table.Render()
}
