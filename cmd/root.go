// =============================================================================
// XML to XLSX Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (xml2xlsx)
//   ├── processCmd (xml2xlsx process)
//   ├── fieldsCmd  (xml2xlsx fields)
//   └── versionCmd (xml2xlsx version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose). The
//   configuration file is optional: when the default path does not exist,
//   the built-in NFe mapping and limits are used.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/config"
)

// cfgFile holds the path to the configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// defaultConfigPath is the config location assumed when --config is not
// given; a missing file at this path falls back to built-in defaults.
const defaultConfigPath = "config.yaml"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "xml2xlsx",
	Short: "XML to XLSX Converter - Transform tax-document XML batches into formatted spreadsheets",
	Long: `XML to XLSX Converter is a CLI tool that ingests batches of electronic
invoice (NFe) XML files and produces analysis-ready spreadsheets.

Key Features:
  - Declarative field mapping with ordered candidate XML paths
  - ZIP archive ingestion alongside loose XML files
  - Per-document outcome reporting (OK / PARTIAL / FAILED)
  - Optional deduplication with a configurable key
  - Date, value and text filtering on the normalized data
  - Styled XLSX output with an optional summary sheet

Example Usage:
  xml2xlsx process                       # Convert everything in the input directory
  xml2xlsx process --dedup --query acme  # Deduplicate and filter by issuer name
  xml2xlsx fields sample.xml             # List the XML paths a sample document offers`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		defaultConfigPath,
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// loadConfig resolves the effective configuration: the --config file when
// present, the built-in defaults when the default path simply isn't there.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		if cfgFile == defaultConfigPath {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("config file not found: %s", cfgFile)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
