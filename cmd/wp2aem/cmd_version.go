/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var versionUsage = strings.TrimSpace(`
Show version information
`)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: versionUsage,
	Long:  versionUsage,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return fmt.Errorf("version: could not read build info")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wp2aem version %s (%s)\n", shortVersion(info), info.GoVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Version can be overridden with -ldflags; otherwise "go install ...@version" fills it in from the
// module version.
var Version = "unknown"

// shortVersion builds "<tag>-rev-<sha>[-dirty]" from whatever the build recorded.
func shortVersion(info *debug.BuildInfo) string {
	version := Version
	if version == "unknown" && info.Main.Version != "" {
		version = info.Main.Version
	}

	var revision string
	var lastCommit time.Time
	dirty := false
	for _, kv := range info.Settings {
		switch kv.Key {
		case "vcs.revision":
			revision = kv.Value
		case "vcs.time":
			lastCommit, _ = time.Parse(time.RFC3339, kv.Value)
		case "vcs.modified":
			dirty = kv.Value == "true"
		}
	}

	parts := make([]string, 0, 4)
	if version != "unknown" && version != "(devel)" {
		parts = append(parts, version)
	}
	if revision != "" {
		parts = append(parts, "rev", revision)
		if dirty {
			parts = append(parts, "dirty")
		}
	}
	if len(parts) == 0 {
		return "devel"
	}

	s := strings.Join(parts, "-")
	if !lastCommit.IsZero() {
		s += " " + lastCommit.UTC().Format("2006-01-02")
	}
	return s
}
