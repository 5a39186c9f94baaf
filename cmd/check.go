package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/easynet-world/easy-mcp-server/internal/bridge"
	"github.com/easynet-world/easy-mcp-server/internal/config"
)

// checkCmd is a dry-run validation command: it runs discovery and bridge
// manifest loading exactly once, prints every failure found, and exits
// non-zero if any route or bridge did not come up clean. Useful in CI
// before `serve`.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the discovery root and bridge manifest without serving",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	failed := false

	snap, err := scanOnce()
	if err != nil {
		return err
	}
	valid := snap.Valid()
	loaderErrs := snap.Errors()
	fmt.Printf("discovered %d route(s), %d failure(s)\n", len(valid), len(loaderErrs))
	for _, e := range loaderErrs {
		failed = true
		fmt.Printf("  ROUTE %s [%s]: %s\n", e.FilePath, e.Type, e.Message)
	}

	cfg := config.LoadFromEnv()
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	path, err := bridge.ResolveManifestPath(cfg.BridgeConfigPath, cfg.BridgeConfigSet, cwd, hasPackageDependencyCmd)
	switch {
	case err == bridge.ErrBridgingDisabled:
		fmt.Println("bridging disabled")
	case err != nil:
		fmt.Println("no bridge manifest found")
	default:
		manifest, merr := bridge.LoadManifestFile(path)
		if merr != nil {
			failed = true
			fmt.Printf("  BRIDGE manifest %s: %v\n", path, merr)
			break
		}
		sv := bridge.NewSupervisor()
		ctx := context.Background()
		sv.ReloadManifest(ctx, manifest)
		defer sv.Shutdown(ctx)

		for _, b := range sv.Snapshot().All() {
			if b.State != bridge.StateReady {
				failed = true
				msg := ""
				if b.LastError != nil {
					msg = b.LastError.Message
				}
				fmt.Printf("  BRIDGE %s: %s %s\n", b.Name, b.State, msg)
			}
		}
	}

	if failed {
		return fmt.Errorf("check failed")
	}
	fmt.Println("check passed")
	return nil
}
