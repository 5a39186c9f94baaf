package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands, following the teacher's convention of
// semantic, script-friendly exit statuses.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// rootCmd is the base command for the easy-mcp-server binary.
var rootCmd = &cobra.Command{
	Use:   "easy-mcp-server",
	Short: "Convention-driven application server: REST, MCP and bridge aggregation from one handler tree",
	Long: `easy-mcp-server discovers annotated handler files under a directory tree
and exposes them simultaneously as a REST+OpenAPI HTTP API, a native MCP
tool/prompt/resource server, and an aggregator that fans requests out to
external MCP "bridge" servers declared in a manifest.`,
	SilenceUsage: true,
}

// SetVersion sets the version string printed by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command. Called from main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "easy-mcp-server version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitCodeError)
	}
}
