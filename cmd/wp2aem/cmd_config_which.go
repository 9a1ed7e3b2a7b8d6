/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var whichCmd = &cobra.Command{
	Use:   "which",
	Short: "Print the config file wp2aem reads",
	Long: `
Print the config file path after --config, WP2AEM_CONFIG and the default have been considered.
A default path that doesn't exist is fine: flags alone are enough to run a migration.
`,
	Run: func(cmd *cobra.Command, args []string) {
		printConfigPath(cmd.OutOrStdout(), ConfigActual)
	},
}

func printConfigPath(w io.Writer, path string) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(w, "Config path: %s (not present, flags only)\n", path)
		return
	}
	fmt.Fprintf(w, "Config path: %s\n", path)
}

func init() {
	configCmd.AddCommand(whichCmd)
}
