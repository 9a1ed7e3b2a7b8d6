/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/fatih/structs"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/toothbrush/wp2aem/assets"
	"github.com/toothbrush/wp2aem/internal/logging"
	"github.com/toothbrush/wp2aem/migrate"
)

const defaultConfig = "~/.config/wp2aem.yaml"

var (
	// Store the result of binding cobra flags
	Config       string
	ConfigActual string
	Debug        bool

	ExportPath   string
	ExportID     string
	ContentRoot  string
	DamRoot      string
	AssetMarker  string
	Extraction   string
	FetchTimeout time.Duration
	ReportPath   string
	Progress     bool

	ParsedConfig YamlConfig

	Logger *logrus.Logger
)

// Build the cobra command that handles our command line tool.
var rootCmd = &cobra.Command{
	Use:   "wp2aem",
	Short: "Migrate a WordPress export into an AEM content repository",
	Long: `
Got a WordPress site that should live in AEM?  Point this tool at the WXR export and it will turn
posts and pages into cq:Pages, and move the media they reference into the DAM.  Publish straight
into a running author instance with 'import', or build an installable package with 'package'.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("wp2aem: failed to initialise config: %w", err)
		}

		// A .env next to the export is a convenient place for WP2AEM_PASSWORD.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("wp2aem: couldn't read .env: %w", err)
		}

		Logger = logging.New(os.Stderr, Debug)
		return nil
	},
}

func init() {
	// Define cobra flags, the default value has the lowest (least significant) precedence
	rootCmd.PersistentFlags().StringVar(&Config, "config", "", "config file location (default: ~/.config/wp2aem.yaml, respects WP2AEM_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "display debug output")
	rootCmd.PersistentFlags().StringVar(&ExportPath, "export", "", "WordPress WXR export file")
	rootCmd.PersistentFlags().StringVar(&ExportID, "export-id", "", "name of this export's DAM folder (default: export file name)")
	rootCmd.PersistentFlags().StringVar(&ContentRoot, "content-root", "/content/sky", "repository folder pages are created under")
	rootCmd.PersistentFlags().StringVar(&DamRoot, "dam-root", "/content/dam", "repository DAM root")
	rootCmd.PersistentFlags().StringVar(&AssetMarker, "asset-marker", "wp-content", "substring that marks an item as carrying media")
	rootCmd.PersistentFlags().StringVar(&Extraction, "extraction", migrate.StructuralExtraction, "how to find asset references: structural or textual")
	rootCmd.PersistentFlags().DurationVar(&FetchTimeout, "fetch-timeout", assets.DefaultTimeout, "time budget for each asset download")
	rootCmd.PersistentFlags().StringVar(&ReportPath, "report", "", "write a YAML run summary to this file")
	rootCmd.PersistentFlags().BoolVar(&Progress, "progress", false, "show a progress bar")
}

func initializeConfig(cmd *cobra.Command) error {
	explicit := Config != ""
	if Config == "" {
		// Did the user provide an ENV?
		envConfig := os.Getenv("WP2AEM_CONFIG")
		if envConfig != "" {
			Config = envConfig
			explicit = true
		} else {
			// As fallback, search for config in home XDG-ish directory
			Config = defaultConfig
		}
	}
	config, err := homedir.Expand(Config)
	if err != nil {
		return fmt.Errorf("wp2aem: unable to expand homedir: %w", err)
	}
	ConfigActual = config

	if _, err := os.Stat(ConfigActual); errors.Is(err, os.ErrNotExist) {
		if explicit {
			return fmt.Errorf("wp2aem: specified config file does not exist: %w", err)
		}
		// everything can come from flags, so no config is fine.
		return nil
	}

	yamlFile, err := os.ReadFile(ConfigActual)
	if err != nil {
		return fmt.Errorf("wp2aem: error reading config file: %w", err)
	}

	// I'd like to bark if a user sets a flag we don't recognise:
	if err := yaml.UnmarshalStrict(yamlFile, &ParsedConfig); err != nil {
		return fmt.Errorf("wp2aem: issue parsing config file: %w", err)
	}

	if err := bindFlags(cmd, ParsedConfig); err != nil {
		return fmt.Errorf("wp2aem: failed to bind flags: %w", err)
	}

	return nil
}

type YamlConfig struct {
	WithVCR  *bool `yaml:"with-vcr"`
	Progress *bool `yaml:"progress"`

	Export       string `yaml:"export"`
	ExportID     string `yaml:"export-id"`
	ContentRoot  string `yaml:"content-root"`
	DamRoot      string `yaml:"dam-root"`
	AssetMarker  string `yaml:"asset-marker"`
	Extraction   string `yaml:"extraction"`
	FetchTimeout string `yaml:"fetch-timeout"`
	Report       string `yaml:"report"`

	AemURL          string   `yaml:"aem-url"`
	AuthUsername    string   `yaml:"auth-username"`
	AuthPasswordCmd []string `yaml:"auth-password-cmd"`
	PublishTimeout  string   `yaml:"publish-timeout"`

	Out            string `yaml:"out"`
	WorkDir        string `yaml:"work-dir"`
	AssetsDir      string `yaml:"assets-dir"`
	PackageName    string `yaml:"package-name"`
	PackageGroup   string `yaml:"package-group"`
	PackageVersion string `yaml:"package-version"`
}

// Bind each cobra flag to its value from the config file, unless it was given on the command
// line.
func bindFlags(cmd *cobra.Command, v YamlConfig) error {
	for _, field := range structs.Fields(v) {
		key := field.Tag("yaml")
		if key == "" {
			return fmt.Errorf("wp2aem: could not retrieve struct tag 'yaml'")
		}
		if flag := cmd.Flag(key); flag == nil {
			// e.g. `package` has no aem-url flag, but a shared config file may well set it.
			continue
		}
		if cmd.Flags().Changed(key) {
			continue
		}

		switch field.Kind() {
		case reflect.Ptr:
			// YamlConfig only uses pointers for bools, so unset and false stay distinguishable.
			b, ok := field.Value().(*bool)
			if !ok {
				return fmt.Errorf("wp2aem: found unrecognised field: %+v", field)
			}
			if b != nil {
				if err := cmd.Flags().Set(key, fmt.Sprintf("%v", *b)); err != nil {
					return fmt.Errorf("wp2aem: bad value for %s: %w", key, err)
				}
			}

		case reflect.String:
			s, ok := field.Value().(string)
			if !ok {
				return fmt.Errorf("wp2aem: found unrecognised field: %+v", field)
			}
			if s != "" {
				if err := cmd.Flags().Set(key, s); err != nil {
					return fmt.Errorf("wp2aem: bad value for %s: %w", key, err)
				}
			}

		case reflect.Slice:
			ss, ok := field.Value().([]string)
			if !ok {
				return fmt.Errorf("wp2aem: found unrecognised field: %+v", field)
			}
			for _, s := range ss {
				// yes, repeatedly calling Set() appends to the slice...
				if err := cmd.Flags().Set(key, s); err != nil {
					return fmt.Errorf("wp2aem: bad value for %s: %w", key, err)
				}
			}

		default:
			return fmt.Errorf("wp2aem: found unrecognised field: %+v", field)
		}
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("wp2aem: execution error: %w", err)
	}

	return nil
}
