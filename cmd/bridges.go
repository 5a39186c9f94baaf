package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/easynet-world/easy-mcp-server/internal/bridge"
	"github.com/easynet-world/easy-mcp-server/internal/config"
)

var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "Resolve the bridge manifest and print each bridge's state",
	Long: `Resolves BRIDGE_CONFIG_PATH (or its fallback lookup), starts every enabled
bridge entry, and prints its state, transport and tool count. Bridges are
shut down again before the command exits.`,
	Args: cobra.NoArgs,
	RunE: runBridges,
}

func init() {
	rootCmd.AddCommand(bridgesCmd)
}

func runBridges(cmd *cobra.Command, args []string) error {
	cfg := config.LoadFromEnv()
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	path, err := bridge.ResolveManifestPath(cfg.BridgeConfigPath, cfg.BridgeConfigSet, cwd, hasPackageDependencyCmd)
	if err != nil {
		if err == bridge.ErrBridgingDisabled {
			fmt.Println("bridging disabled (BRIDGE_CONFIG_PATH is empty)")
			return nil
		}
		fmt.Println("no bridge manifest found")
		return nil
	}

	manifest, err := bridge.LoadManifestFile(path)
	if err != nil {
		return fmt.Errorf("loading manifest %s: %w", path, err)
	}

	sv := bridge.NewSupervisor()
	ctx := context.Background()
	sv.ReloadManifest(ctx, manifest)
	defer sv.Shutdown(ctx)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("NAME"),
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("STATE"),
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("TRANSPORT"),
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("TOOLS"),
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("ERROR"),
	})
	for _, b := range sv.Snapshot().All() {
		errMsg := ""
		if b.LastError != nil {
			errMsg = b.LastError.Message
		}
		t.AppendRow(table.Row{b.Name, string(b.State), string(b.Transport), len(b.ToolList), errMsg})
	}
	t.Render()
	return nil
}

// hasPackageDependencyCmd mirrors app.hasPackageDependency: this binary
// has no npm package identity to match against an ancestor package.json.
func hasPackageDependencyCmd(projectManifestPath string) bool {
	return false
}
