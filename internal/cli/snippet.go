package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"codetyper/internal/rooms"
	"codetyper/internal/snippets"
)

func newSnippetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snippet [language]",
		Short: "Print a practice snippet",
		Long: `Fetch a practice snippet the same way the relay's /api/snippets endpoint
does. Languages without a configured source use python. The built-in
snippet is printed when the provider cannot be reached.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			language := snippets.DefaultLanguage
			if len(args) == 1 {
				language = args[0]
			}

			sources := snippets.DefaultSources()
			if cfg.SnippetSources != "" {
				var err error
				if sources, err = snippets.LoadSources(cfg.SnippetSources); err != nil {
					return err
				}
			}
			provider := snippets.NewProvider(sources,
				snippets.WithAttempts(cfg.SnippetAttempts),
				snippets.WithHTTPClient(&http.Client{Timeout: cfg.SnippetTimeout}),
			)

			fmt.Fprintln(cmd.OutOrStdout(), provider.Fetch(cmd.Context(), language))
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.SnippetSources, "sources", cfg.SnippetSources, "YAML file of snippet sources (env: SNIPPET_SOURCES)")
	cmd.Flags().IntVar(&cfg.SnippetAttempts, "attempts", cfg.SnippetAttempts, "Fetch attempts before falling back (env: SNIPPET_ATTEMPTS)")

	return cmd
}

func newRoomCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "room-code",
		Short: "Generate a room code to share",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := rooms.GenerateCode()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
}
