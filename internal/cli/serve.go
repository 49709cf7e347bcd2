package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codetyper/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.Port, "port", "p", cfg.Port, "Listen port (env: PORT)")
	cmd.Flags().StringVar(&cfg.FrontendURL, "frontend-url", cfg.FrontendURL, "Allowed browser origin (env: FRONTEND_URL)")
	cmd.Flags().StringVar(&cfg.SnippetSources, "snippet-sources", cfg.SnippetSources, "YAML file of snippet sources (env: SNIPPET_SOURCES)")

	return cmd
}
