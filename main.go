// =============================================================================
// XML to XLSX Converter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the XML to XLSX Converter CLI. It
// initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   xml2xlsx process        - Convert all XML/ZIP files in the input directory
//   xml2xlsx fields <file>  - List the XML paths of a sample document
//   xml2xlsx version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core pipeline (normalization, formatting, export)
//   - pkg/           : Shared utilities (file management)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/XML-to-XLSX-conversion/cmd"
)

func main() {
	cmd.Execute()
}
