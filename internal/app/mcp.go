package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve analytics to AI assistants over MCP (stdio)",
	Long: `Run a Model Context Protocol server on stdin/stdout. Assistants can call
read-only tools for usage, costs, tokens, distributions, heatmaps,
performance, sessions and the data quality audit.

Logs go to stderr so the protocol stream stays clean.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	srv := mcp.NewServer(env.engine, env.auditor,
		mcp.WithLogger(env.log),
		mcp.WithVersion(appVersion),
		mcp.WithDefaultLimit(env.cfg.Sessions.DefaultLimit),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}
