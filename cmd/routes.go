package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the discovered route table",
	Long: `Scans API_PATH once and prints every valid route's method, URL template
and source file, followed by any handler files that failed to load.`,
	Args: cobra.NoArgs,
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	snap, err := scanOnce()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("METHOD"),
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("URL TEMPLATE"),
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("FILE"),
	})
	for _, r := range snap.Valid() {
		t.AppendRow(table.Row{string(r.Method), r.URLTemplate, r.FilePath})
	}
	t.Render()

	errs := snap.Errors()
	if len(errs) > 0 {
		fmt.Printf("\n%s %d handler file(s) failed to load:\n",
			text.Colors{text.FgHiRed, text.Bold}.Sprint("!"), len(errs))
		for _, e := range errs {
			fmt.Printf("  %s [%s]: %s\n", e.FilePath, e.Type, e.Message)
		}
	}
	return nil
}
