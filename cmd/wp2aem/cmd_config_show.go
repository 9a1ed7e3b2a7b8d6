/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Output current config",
	Long: `
Is something not working for you?  Have a look whether your config is as you expect.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd.OutOrStdout())
	},
}

func init() {
	configCmd.AddCommand(showCmd)
}

// showConfig only talks about persistent flags; command-specific ones aren't bound here.
func showConfig(w io.Writer) error {
	fmt.Fprintf(w, "Dump current config state:\n\n")

	fmt.Fprintf(w, "  Config file: %s\n", ConfigActual)
	fmt.Fprintf(w, "  Debug: %v\n", Debug)
	fmt.Fprintln(w)

	parsed, err := yaml.Marshal(ParsedConfig)
	if err != nil {
		return fmt.Errorf("config: couldn't render parsed config: %w", err)
	}
	fmt.Fprintf(w, "  Parsed YAML:\n%s\n", parsed)

	fmt.Fprintf(w, "  Export: %s\n", ExportPath)
	fmt.Fprintf(w, "  ExportID: %s\n", ExportID)
	fmt.Fprintf(w, "  ContentRoot: %s\n", ContentRoot)
	fmt.Fprintf(w, "  DamRoot: %s\n", DamRoot)
	fmt.Fprintf(w, "  AssetMarker: %s\n", AssetMarker)
	fmt.Fprintf(w, "  Extraction: %s\n", Extraction)
	fmt.Fprintf(w, "  FetchTimeout: %s\n", FetchTimeout)
	fmt.Fprintf(w, "  Report: %s\n", ReportPath)
	fmt.Fprintf(w, "  Progress: %v\n", Progress)
	return nil
}
