// =============================================================================
// XML to XLSX Converter - Fields Command
// =============================================================================
//
// This file defines the 'fields' command, which lists every element and
// attribute path a sample XML document offers. Useful when writing the
// candidate paths for a new field mapping.
//
// COMMAND USAGE:
//   xml2xlsx fields sample.xml
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/xmlparser"
)

// fieldsCmd represents the 'fields' command.
var fieldsCmd = &cobra.Command{
	Use:   "fields <file.xml>",
	Short: "List the XML paths available in a sample document",
	Long: `The fields command parses one XML document and prints every element and
attribute path found, in mapping notation (dot-separated, attributes
prefixed with @). Use the output to build the candidate paths of a field
mapping for a new document type.`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read sample: %w", err)
		}

		paths, err := xmlparser.AvailablePaths(content)
		if err != nil {
			return err
		}

		for _, p := range paths {
			fmt.Println(p)
		}
		fmt.Printf("\n%d path(s) found\n", len(paths))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
