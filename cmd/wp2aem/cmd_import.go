/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/dnaeon/go-vcr.v3/cassette"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"

	"github.com/toothbrush/wp2aem/aem"
)

var importUsage = strings.TrimSpace(`
Publish the export straight into a running AEM author instance.  Folders and pages that already
exist are left alone, so an interrupted import can simply be run again.  Assets and page content
are always re-uploaded.
`)

var importCmd = &cobra.Command{
	Use:   "import [export.xml]",
	Short: "Publish an export into a live repository",
	Long:  importUsage,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImport,
}

var (
	AemURL          string
	AuthUsername    string
	AuthPasswordCmd []string
	PublishTimeout  time.Duration
	WithVCR         bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&AemURL, "aem-url", "http://localhost:4502", "AEM author instance to publish into")
	importCmd.Flags().StringVar(&AuthUsername, "auth-username", "", "AEM username")
	importCmd.Flags().StringSliceVar(&AuthPasswordCmd, "auth-password-cmd", []string{}, "shell command to retrieve the AEM password (default: $WP2AEM_PASSWORD)")
	importCmd.Flags().DurationVar(&PublishTimeout, "publish-timeout", aem.DefaultTimeout, "time budget for each repository call")
	importCmd.Flags().BoolVar(&WithVCR, "with-vcr", false, "use go-vcr to record and replay repository traffic")
}

func runImport(cmd *cobra.Command, args []string) error {
	exportPath, err := exportFile(args)
	if err != nil {
		return err
	}
	cfg, err := migrationConfig(exportPath)
	if err != nil {
		return err
	}

	password, err := authPassword()
	if err != nil {
		return err
	}

	api, err := aem.NewAPI(AemURL, AuthUsername, password)
	if err != nil {
		return fmt.Errorf("import: couldn't instantiate repository API: %w", err)
	}
	api.Timeout = PublishTimeout

	if WithVCR {
		// set up VCR recordings.
		opts := &recorder.Options{
			CassetteName:       "fixtures/aem-import",
			Mode:               recorder.ModeReplayWithNewEpisodes,
			SkipRequestLatency: true,
			RealTransport:      http.DefaultTransport,
		}
		r, err := recorder.NewWithOptions(opts)
		if err != nil {
			return fmt.Errorf("import: couldn't set up go-vcr recording: %w", err)
		}

		defer r.Stop() // Make sure recorder is stopped once done with it

		// Add a hook which removes Authorization headers from all requests
		hook := func(i *cassette.Interaction) error {
			delete(i.Request.Headers, "Authorization")
			return nil
		}
		r.AddHook(hook, recorder.AfterCaptureHook)
		r.SetReplayableInteractions(true)

		api.Client = r.GetDefaultClient()
	}

	Logger.Infof("Importing %s into %s as %s", exportPath, api.BaseURI, AuthUsername)
	return runMigration(cmd.Context(), exportPath, cfg, aem.NewPublisher(api, Logger))
}

func authPassword() (string, error) {
	if len(AuthPasswordCmd) > 0 {
		return secretFromCmd(AuthPasswordCmd)
	}
	if pw := os.Getenv("WP2AEM_PASSWORD"); pw != "" {
		return pw, nil
	}
	return "", fmt.Errorf("import: no password.  Use --auth-password-cmd or set WP2AEM_PASSWORD")
}
