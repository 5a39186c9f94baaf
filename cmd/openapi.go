package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/easynet-world/easy-mcp-server/internal/app"
	"github.com/easynet-world/easy-mcp-server/internal/config"
	"github.com/easynet-world/easy-mcp-server/internal/openapi"
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the synthesized OpenAPI document",
	Long:  `Scans API_PATH once and prints the resulting OpenAPI 3.0 document as JSON.`,
	Args:  cobra.NoArgs,
	RunE:  runOpenAPI,
}

func init() {
	rootCmd.AddCommand(openapiCmd)
}

func runOpenAPI(cmd *cobra.Command, args []string) error {
	snap, err := scanOnce()
	if err != nil {
		return err
	}

	cfg := config.LoadFromEnv()
	baseURL := "http://" + cfg.Host + ":" + cfg.Port
	doc := openapi.Synthesize(snap, app.Title, app.Version, baseURL)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling OpenAPI document: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
