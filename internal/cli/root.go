package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"codetyper/internal/config"
	"codetyper/internal/logging"
)

var cfg config.Config

// NewRootCmd creates the root command. Flag defaults come from the
// environment, so flags override env vars.
func NewRootCmd() *cobra.Command {
	cfg = config.Load()

	rootCmd := &cobra.Command{
		Use:   "codetyper",
		Short: "Two-player typing race relay",
		Long: `codetyper runs the WebSocket relay behind two-player typing races and
ships a terminal client for playing against a browser tab.

Players share a room code; the relay pairs them, starts the race once both
are ready and forwards each player's progress to the other.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Setup(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console, json (env: LOG_FORMAT)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newSnippetCmd())
	rootCmd.AddCommand(newRoomCodeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
