/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/toothbrush/wp2aem/vaultpkg"
)

var packageUsage = strings.TrimSpace(`
Build an installable content package from the export instead of talking to a repository.  Media
is still downloaded from the live site.  Upload the resulting zip through the package manager.
`)

var packageCmd = &cobra.Command{
	Use:   "package [export.xml]",
	Short: "Build a content package from an export",
	Long:  packageUsage,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPackage,
}

var (
	PackageOut     string
	WorkDir        string
	AssetsDir      string
	PackageName    string
	PackageGroup   string
	PackageVersion string
)

func init() {
	rootCmd.AddCommand(packageCmd)

	packageCmd.Flags().StringVar(&PackageOut, "out", "", "archive to write (default: <export-id>.zip)")
	packageCmd.Flags().StringVar(&WorkDir, "work-dir", "", "directory for the temporary tree, removed afterwards (default: system temp)")
	packageCmd.Flags().StringVar(&AssetsDir, "assets-dir", "", "local uploads directory to copy into the DAM as-is")
	packageCmd.Flags().StringVar(&PackageName, "package-name", "", "package name (default: export id)")
	packageCmd.Flags().StringVar(&PackageGroup, "package-group", vaultpkg.DefaultGroup, "package group")
	packageCmd.Flags().StringVar(&PackageVersion, "package-version", vaultpkg.DefaultVersion, "package version")
}

func runPackage(cmd *cobra.Command, args []string) error {
	exportPath, err := exportFile(args)
	if err != nil {
		return err
	}
	cfg, err := migrationConfig(exportPath)
	if err != nil {
		return err
	}

	out := PackageOut
	if out == "" {
		out = cfg.Layout.ExportID + ".zip"
	}

	opts := vaultpkg.Options{
		Name:    PackageName,
		Group:   PackageGroup,
		Version: PackageVersion,
		Layout:  cfg.Layout,
	}
	if opts.Output, err = homedir.Expand(out); err != nil {
		return fmt.Errorf("package: unable to expand homedir: %w", err)
	}
	if opts.WorkDir, err = homedir.Expand(WorkDir); err != nil {
		return fmt.Errorf("package: unable to expand homedir: %w", err)
	}
	if opts.AssetsDir, err = homedir.Expand(AssetsDir); err != nil {
		return fmt.Errorf("package: unable to expand homedir: %w", err)
	}

	publisher, err := vaultpkg.NewPublisher(afero.NewOsFs(), opts, Logger)
	if err != nil {
		return fmt.Errorf("package: %w", err)
	}

	Logger.Infof("Packaging %s into %s", exportPath, opts.Output)
	return runMigration(cmd.Context(), exportPath, cfg, publisher)
}
