package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the engine's HTTP
// server with all configured LLM providers.
func buildServeCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the engine's HTTP server",
		Long: `Start the engine with every configured LLM provider, the tool registry,
and the run executor, then serve the /api/files, /api/ai, and
/api/terminal routes until interrupted.

Configuration is read entirely from the environment (see README):
OPENAI_API_KEY / ANTHROPIC_API_KEY / CUSTOM_API_KEY select which
providers are available; WORKSPACE_ROOT pins the sandbox every file and
terminal operation is confined to.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}
