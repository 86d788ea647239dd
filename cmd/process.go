// =============================================================================
// XML to XLSX Converter - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs the full conversion
// pipeline over the input directory.
//
// COMMAND USAGE:
//   xml2xlsx process [flags]
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Discover XML and ZIP files in the input directory
//   3. Load documents into memory (expanding ZIP archives)
//   4. Normalize the batch (field mapping + aggregation + dedup)
//   5. Format values (currency, dates, tax IDs)
//   6. Apply filters
//   7. Export the styled workbook
//   8. Archive processed inputs
//   9. Print the outcome summary
//
// Documents are processed sequentially in input order; that keeps the
// record order deterministic and the dedup first-occurrence guarantee
// intact.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/aggregator"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/datafilter"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/exporter"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/formatter"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/logging"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/types"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// outputFile overrides the generated output file name.
var outputFile string

// noSummary suppresses the summary sheet.
var noSummary bool

// noArchive leaves processed inputs in place.
var noArchive bool

// dedupFlag enables deduplication regardless of the configured default.
var dedupFlag bool

// dedupKeys overrides the configured dedup key fields.
var dedupKeys []string

// Filter flags. Dates accept DD/MM/YYYY or YYYY-MM-DD.
var filterFrom, filterTo string
var filterMin, filterMax float64
var filterQuery string

// Export layout flags.
var sheetName string
var columnOrder []string
var groupField string
var topN int
var sourceColumn bool

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert XML files in the input directory to a formatted XLSX workbook",
	Long: `The process command scans the input directory for XML files and ZIP
archives, normalizes each document against the configured field mapping,
aggregates the results into a single table, and writes a styled XLSX
workbook to the output directory.

A document that cannot be parsed does not abort the batch: it is reported
as FAILED with a reason, and the remaining documents are processed. Only
batch-level problems (for example, more documents than the configured
maximum) fail the whole run.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: generated name in the output directory)")
	processCmd.Flags().BoolVar(&noSummary, "no-summary", false, "Skip the summary sheet")
	processCmd.Flags().BoolVar(&noArchive, "no-archive", false, "Leave processed input files in place")
	processCmd.Flags().BoolVar(&dedupFlag, "dedup", false, "Drop duplicate records (first occurrence wins)")
	processCmd.Flags().StringSliceVar(&dedupKeys, "dedup-key", nil, "Field names forming the dedup key (default: full row)")

	processCmd.Flags().StringVar(&filterFrom, "from", "", "Keep records dated on or after this date (DD/MM/YYYY or YYYY-MM-DD)")
	processCmd.Flags().StringVar(&filterTo, "to", "", "Keep records dated on or before this date")
	processCmd.Flags().Float64Var(&filterMin, "min", 0, "Keep records with value greater than or equal to this amount")
	processCmd.Flags().Float64Var(&filterMax, "max", 0, "Keep records with value less than or equal to this amount")
	processCmd.Flags().StringVar(&filterQuery, "query", "", "Keep records containing this text in any field")

	processCmd.Flags().StringVar(&sheetName, "sheet", "", "Data sheet name (default: Dados)")
	processCmd.Flags().StringSliceVar(&columnOrder, "columns", nil, "Column order override (default: declared order)")
	processCmd.Flags().StringVar(&groupField, "group-field", "", "Grouping field for the summary ranking (default: first text column)")
	processCmd.Flags().IntVar(&topN, "top", 10, "Ranking length in the summary sheet")
	processCmd.Flags().BoolVar(&sourceColumn, "source-column", false, "Append an Arquivo Origem column with each record's source file")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess orchestrates the conversion pipeline.
func runProcess(cmd *cobra.Command) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Println("=== XML to XLSX Converter ===")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if dedupFlag {
		cfg.Dedup.Enabled = true
	}
	if len(dedupKeys) > 0 {
		cfg.Dedup.Enabled = true
		cfg.Dedup.KeyFields = dedupKeys
	}

	log, err := logging.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	// =========================================================================
	// STEP 2: DISCOVER AND LOAD INPUT FILES
	// =========================================================================

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.MaxFileSizeBytes())
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	inputPaths, err := fm.DiscoverInputFiles()
	if err != nil {
		return err
	}
	if len(inputPaths) == 0 {
		fmt.Println("No XML or ZIP files found in the input directory.")
		return nil
	}
	fmt.Printf("Found %d input file(s)\n", len(inputPaths))

	loaded, loadErrs := fm.LoadDocuments(inputPaths)
	for _, e := range loadErrs {
		fmt.Printf("  ! %s\n", e)
	}
	if len(loaded) == 0 {
		return fmt.Errorf("no readable XML documents among the inputs")
	}

	docs := make([]aggregator.Document, len(loaded))
	for i, d := range loaded {
		docs[i] = aggregator.Document{Name: d.Name, Content: d.Content}
	}

	// =========================================================================
	// STEP 3: NORMALIZE THE BATCH
	// =========================================================================

	fmt.Printf("Processing %d document(s)...\n", len(docs))

	dataset, report, err := aggregator.NormalizeBatch(docs, cfg, log)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 4: FORMAT AND FILTER
	// =========================================================================

	formatted := formatter.New(cfg, log).FormatDataset(dataset)

	filterSpec, err := buildFilterSpec(cmd)
	if err != nil {
		return err
	}
	filtered := datafilter.Apply(formatted, filterSpec)
	if !filterSpec.Empty() {
		fmt.Printf("Filters kept %d of %d record(s)\n", len(filtered.Records), len(formatted.Records))
	}

	// =========================================================================
	// STEP 5: EXPORT THE WORKBOOK
	// =========================================================================

	content, hint, err := exporter.New(cfg, log).Export(filtered, exporter.Options{
		SheetName:      sheetName,
		IncludeSummary: !noSummary,
		IncludeSource:  sourceColumn,
		ColumnOrder:    columnOrder,
		GroupField:     groupField,
		TopN:           topN,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	outputPath := outputFile
	if outputPath == "" {
		outputPath = filepath.Join(cfg.OutputDir, utils.CleanFilename(hint))
	}
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("Wrote %s (%d data row(s))\n", outputPath, len(filtered.Records))

	// =========================================================================
	// STEP 6: ARCHIVE PROCESSED INPUTS
	// =========================================================================

	if !noArchive {
		for _, path := range inputPaths {
			if _, err := fm.ArchiveInputFile(path); err != nil {
				log.WithField("file", path).Warnf("Failed to archive input: %v", err)
			}
		}
	}

	// =========================================================================
	// STEP 7: PRINT SUMMARY
	// =========================================================================

	printReport(report)
	fmt.Printf("Time elapsed:    %s\n", time.Since(startTime).Round(time.Millisecond))

	return nil
}

// buildFilterSpec translates the filter flags into a FilterSpec. Bound
// flags count as set when given on the command line, so a bound of exactly
// zero is expressible.
func buildFilterSpec(cmd *cobra.Command) (datafilter.FilterSpec, error) {
	var spec datafilter.FilterSpec

	if filterFrom != "" {
		t, err := formatter.ParseDate(filterFrom)
		if err != nil {
			return spec, fmt.Errorf("invalid --from date %q", filterFrom)
		}
		spec.StartDate = &t
	}
	if filterTo != "" {
		t, err := formatter.ParseDate(filterTo)
		if err != nil {
			return spec, fmt.Errorf("invalid --to date %q", filterTo)
		}
		spec.EndDate = &t
	}
	if cmd.Flags().Changed("min") {
		min := decimal.NewFromFloat(filterMin)
		spec.MinValue = &min
	}
	if cmd.Flags().Changed("max") {
		max := decimal.NewFromFloat(filterMax)
		spec.MaxValue = &max
	}
	spec.TextQuery = filterQuery

	return spec, nil
}

// printReport prints the per-document outcomes and the batch counters.
func printReport(report *types.Report) {
	for _, o := range report.Outcomes {
		switch {
		case o.Duplicate:
			fmt.Printf("  = %s: duplicate, dropped\n", o.Source)
		case o.Status == types.StatusFailed:
			fmt.Printf("  ✗ %s: %s\n", o.Source, o.Reason)
		case o.Status == types.StatusPartial:
			fmt.Printf("  ~ %s: missing %v\n", o.Source, o.Missing)
		default:
			fmt.Printf("  ✓ %s\n", o.Source)
		}
	}

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total documents: %d\n", len(report.Outcomes))
	fmt.Printf("OK:              %d\n", report.OKCount)
	fmt.Printf("Partial:         %d\n", report.PartialCount)
	fmt.Printf("Failed:          %d\n", report.FailedCount)
	fmt.Printf("Duplicates:      %d\n", report.DuplicatesDropped)
}
