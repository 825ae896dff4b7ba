package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rxserver/rxserver/cmd/rxserver/commands"
	"github.com/rxserver/rxserver/logger"
)

var rootCmd = &cobra.Command{
	Use:   "rxserver",
	Short: "rxserver - a virtual X11 display server",
	Long: `rxserver implements the X11 core protocol over TCP and Unix-domain
sockets, rendering into a software framebuffer shown in a gioui window.

Available commands:
  serve   - Start the display server
  config  - Show the resolved configuration
  version - Show version information

Examples:
  rxserver serve             # Start the display server on :0
  rxserver config            # Show resolved configuration
  rxserver version           # Print version information`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() != "version" {
			if err := logger.Initialize(false); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Verbosity count (-v, -vv, -vvv); accepted, but the log level does not depend on it")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
