/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/toothbrush/wp2aem/assets"
	"github.com/toothbrush/wp2aem/migrate"
	"github.com/toothbrush/wp2aem/naming"
	"github.com/toothbrush/wp2aem/repotree"
	"github.com/toothbrush/wp2aem/wordpress"
)

// exportFile resolves the export from a positional argument or --export.
func exportFile(args []string) (string, error) {
	p := ExportPath
	if len(args) > 0 {
		p = args[0]
	}
	if p == "" {
		return "", fmt.Errorf("no WordPress export given.  Pass it as an argument, use --export or set it in your config file")
	}
	return homedir.Expand(p)
}

// defaultExportID is the export's file name without extension, made path-safe.
func defaultExportID(exportPath string) string {
	base := filepath.Base(exportPath)
	return naming.Sanitize(strings.TrimSuffix(base, filepath.Ext(base)))
}

func migrationConfig(exportPath string) (migrate.Config, error) {
	id := ExportID
	if id == "" {
		id = defaultExportID(exportPath)
	}

	cfg := migrate.Config{
		Layout: repotree.Layout{
			ContentRoot: ContentRoot,
			DamRoot:     DamRoot,
			ExportID:    id,
		},
		AssetMarker: AssetMarker,
		Extraction:  Extraction,
	}
	if Progress {
		cfg.Progress = os.Stderr
	}

	if err := cfg.Layout.Validate(); err != nil {
		return cfg, fmt.Errorf("cmd: %w (set --export-id?)", err)
	}
	return cfg, nil
}

// runMigration parses the export and drives it into publisher.  The publisher is built by the
// caller, since only it knows the target.
func runMigration(ctx context.Context, exportPath string, cfg migrate.Config, publisher migrate.Publisher) error {
	export, err := wordpress.ParseFile(exportPath)
	if err != nil {
		var malformed *wordpress.MalformedExportError
		if errors.As(err, &malformed) {
			return fmt.Errorf("cmd: %s is not a usable WordPress export: %w", exportPath, err)
		}
		return fmt.Errorf("cmd: couldn't read export: %w", err)
	}

	Logger.Infof("Read export %q (%s) with %d items", export.Title, export.BaseURL, export.Count())

	fetcher := assets.NewFetcher(FetchTimeout, Logger)
	driver, err := migrate.NewDriver(cfg, publisher, fetcher, Logger)
	if err != nil {
		return fmt.Errorf("cmd: couldn't set up migration: %w", err)
	}

	summary, runErr := driver.Run(ctx, export)
	if summary != nil {
		printSummary(os.Stdout, summary)
		if err := writeReport(summary); err != nil {
			return errors.Join(runErr, err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("cmd: migration did not complete: %w", runErr)
	}
	return nil
}

func printSummary(w io.Writer, summary *migrate.Summary) {
	fmt.Fprintf(w, "Done: %s.\n", summary)
	for _, r := range summary.Results {
		if r.Status != repotree.Failed && len(r.AssetFailures) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-7s %s", r.Status, r.ItemTitle)
		if r.Detail != "" {
			fmt.Fprintf(w, ": %s", r.Detail)
		}
		fmt.Fprintln(w)
		for _, f := range r.AssetFailures {
			fmt.Fprintf(w, "          asset %s: %s\n", f.URL, f.Reason)
		}
	}
}

func writeReport(summary *migrate.Summary) error {
	if ReportPath == "" {
		return nil
	}

	p, err := homedir.Expand(ReportPath)
	if err != nil {
		return fmt.Errorf("cmd: couldn't expand report path: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("cmd: couldn't create report %s: %w", p, err)
	}
	defer f.Close()

	if err := summary.WriteReport(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cmd: couldn't write report %s: %w", p, err)
	}

	Logger.Infof("Wrote report to %s", p)
	return nil
}

// secretFromCmd runs the configured command and keeps the first line of its output.
func secretFromCmd(command []string) (string, error) {
	out, err := exec.Command(command[0], command[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("cmd: couldn't execute '%v': %w", command, err)
	}
	return strings.Split(string(out), "\n")[0], nil
}
