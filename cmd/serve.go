package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/easynet-world/easy-mcp-server/internal/app"
)

var (
	serveDebug  bool
	serveSilent bool
)

// serveCmd starts all three surfaces (REST+OpenAPI, MCP, bridge
// aggregator) and blocks until signaled, mirroring the teacher's `serve`
// command structure.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP, MCP and bridge-aggregator surfaces",
	Long: `Starts the application server: scans API_PATH for handler files, loads the
bridge manifest if one resolves, and serves REST+OpenAPI over HTTP, MCP
over stdio or streamable-HTTP, and the bridge aggregator, all backed by
the same discovered route set. See PORT/HOST/MCP_PORT/MCP_HOST/API_PATH/
MCP_BASE_PATH/BRIDGE_CONFIG_PATH/STDIO_MODE for the recognized environment
variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveSilent)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "Suppress all log output")
}
