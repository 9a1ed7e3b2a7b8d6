/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var configUsage = strings.TrimSpace(`
Anything you'd otherwise pass as a flag on every run (the AEM URL, the username, repository
roots) can live in a YAML file instead.  These commands show what wp2aem ends up using and which
file it came from.
`)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the migration settings",
	Long:  configUsage,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
