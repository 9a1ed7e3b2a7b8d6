/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"github.com/spf13/cobra"
)

// listCmd only groups the dry-run listings; it does nothing by itself.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Look inside an export without migrating it",
	Long: `
Nothing under 'list' fetches assets or talks to AEM.  Use it to check where posts, pages and their
media would land before running 'import' or 'package'.
`,
}

func init() {
	rootCmd.AddCommand(listCmd)
}
