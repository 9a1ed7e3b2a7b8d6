/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toothbrush/wp2aem/migrate"
	"github.com/toothbrush/wp2aem/wordpress"
)

var listItemsUsage = strings.TrimSpace(`
Show what a migration would do with each item of the export: where it would land, and which media
it would fetch.  Nothing is downloaded or published.
`)

var listItemsCmd = &cobra.Command{
	Use:   "items [export.xml]",
	Short: "Print the items of an export and where they would go",
	Long:  listItemsUsage,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exportPath, err := exportFile(args)
		if err != nil {
			return err
		}
		cfg, err := migrationConfig(exportPath)
		if err != nil {
			return err
		}

		export, err := wordpress.ParseFile(exportPath)
		if err != nil {
			return fmt.Errorf("list: couldn't read export: %w", err)
		}

		plan, err := migrate.Plan(cfg, export)
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}

		printPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

func init() {
	listCmd.AddCommand(listItemsCmd)
}

func printPlan(w io.Writer, plan []migrate.PlannedItem) {
	migrating := 0
	for _, p := range plan {
		title := p.Title
		if title == "" {
			title = "(untitled)"
		}

		if p.Skip != "" {
			fmt.Fprintf(w, "skip   %-5s %s: %s\n", p.Kind, title, p.Skip)
			continue
		}
		migrating++

		target := "page"
		if p.MediaBearing {
			target = "dam"
		}
		fmt.Fprintf(w, "%-6s %-5s %s -> %s\n", target, p.Kind, title, p.Path)
		for _, a := range p.Assets {
			fmt.Fprintf(w, "         %s\n", a)
		}
	}

	fmt.Fprintf(w, "\n%d of %d items would be migrated.\n", migrating, len(plan))
}
