// =============================================================================
// XML to XLSX Converter - Spreadsheet Exporter
// =============================================================================
//
// This module renders a formatted (and possibly filtered) dataset into a
// styled XLSX workbook:
//
//   - Data sheet: one styled header row followed by one row per record.
//     Currency and date cells carry their canonical values with
//     type-appropriate number formats, so the columns stay sortable and
//     computable in the recipient's spreadsheet tool. Text and document
//     cells carry the display string.
//   - Summary sheet (optional): record count, generation timestamp, sum and
//     mean of every currency column, and a top-N ranking of a grouping
//     field by total value (descending, ties by first-seen order).
//
// Export options are validated before any cell is written: an unknown
// column or grouping field fails the call and no partial file is emitted.
// Zero-row input is valid and produces a header-only Data sheet.
//
// =============================================================================

package exporter

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/logging"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// SourceColumn is the built-in pseudo-column carrying the originating
// file name of each record. It is not part of the declared schema but can
// be referenced in ColumnOrder and GroupField like any declared column.
const SourceColumn = "Arquivo Origem"

// Options controls a single export call.
type Options struct {
	// SheetName names the data sheet. Default: "Dados"
	SheetName string

	// IncludeSummary adds the "Resumo" sheet.
	IncludeSummary bool

	// IncludeSource appends the SourceColumn pseudo-column after the
	// declared columns. Ignored when ColumnOrder is set; name SourceColumn
	// there instead.
	IncludeSource bool

	// ColumnOrder overrides the declared column order. Every entry must
	// reference a declared column or SourceColumn. Empty keeps the
	// declared order.
	ColumnOrder []string

	// GroupField is the column used for the summary top-N ranking.
	// Empty picks the first text-typed column.
	GroupField string

	// TopN bounds the ranking length. Default: 10
	TopN int
}

// =============================================================================
// EXPORTER
// =============================================================================

// Exporter renders formatted datasets into XLSX byte-streams.
type Exporter struct {
	cfg *config.Config
	log *logrus.Logger
}

// New creates an Exporter bound to the given configuration.
func New(cfg *config.Config, log *logrus.Logger) *Exporter {
	if log == nil {
		log = logging.Discard()
	}
	return &Exporter{cfg: cfg, log: log}
}

// Export renders the dataset into a workbook and returns its bytes plus a
// suggested file name. The workbook is produced fresh on every call; no
// state survives between exports.
func (e *Exporter) Export(ds *types.FormattedDataset, opts Options) ([]byte, string, error) {
	columns, err := e.resolveColumns(ds, &opts)
	if err != nil {
		return nil, "", err
	}

	sheet := opts.SheetName
	if sheet == "" {
		sheet = "Dados"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("failed to create data sheet: %w", err)
	}

	styles, err := e.buildStyles(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build styles: %w", err)
	}

	if err := e.writeDataSheet(f, sheet, ds, columns, styles); err != nil {
		return nil, "", err
	}

	if opts.IncludeSummary {
		if err := e.writeSummarySheet(f, ds, opts, styles); err != nil {
			return nil, "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize workbook: %w", err)
	}

	hint := fmt.Sprintf("notas_fiscais_%s_%s.xlsx",
		time.Now().Format("20060102_150405"), uuid.New().String()[:8])

	e.log.WithFields(logrus.Fields{
		"rows":    len(ds.Records),
		"columns": len(columns),
		"summary": opts.IncludeSummary,
	}).Info("Workbook exported")

	return buf.Bytes(), hint, nil
}

// resolveColumns validates the export options against the dataset schema
// and returns the field specs in output order.
func (e *Exporter) resolveColumns(ds *types.FormattedDataset, opts *Options) ([]types.FieldSpec, error) {
	byName := make(map[string]types.FieldSpec, len(ds.Specs)+1)
	for _, spec := range ds.Specs {
		byName[spec.Name] = spec
	}
	byName[SourceColumn] = types.FieldSpec{Name: SourceColumn, Type: types.FieldText}

	if opts.GroupField != "" {
		if _, ok := byName[opts.GroupField]; !ok {
			return nil, fmt.Errorf("invalid export options: unknown grouping field %q", opts.GroupField)
		}
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}

	if len(opts.ColumnOrder) == 0 {
		if opts.IncludeSource {
			columns := append([]types.FieldSpec{}, ds.Specs...)
			return append(columns, byName[SourceColumn]), nil
		}
		return ds.Specs, nil
	}

	columns := make([]types.FieldSpec, 0, len(opts.ColumnOrder))
	for _, name := range opts.ColumnOrder {
		spec, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("invalid export options: unknown column %q", name)
		}
		columns = append(columns, spec)
	}
	return columns, nil
}

// =============================================================================
// STYLES
// =============================================================================

// sheetStyles holds the style IDs reused across all cells of a workbook.
type sheetStyles struct {
	header   int
	currency int
	date     int
	document int
	text     int
}

// buildStyles registers the cell styles once per workbook.
func (e *Exporter) buildStyles(f *excelize.File) (sheetStyles, error) {
	var s sheetStyles
	hs := e.cfg.Excel.HeaderStyle

	thinBorder := []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}

	headerStyle := &excelize.Style{
		Font: &excelize.Font{
			Bold:  hs.Bold,
			Color: trimHash(hs.FontColor),
			Size:  11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{trimHash(hs.BgColor)},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}
	if hs.Border {
		headerStyle.Border = thinBorder
	}

	var err error
	if s.header, err = f.NewStyle(headerStyle); err != nil {
		return s, err
	}

	moneyFmt := e.cfg.Excel.MoneyFormat
	if s.currency, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: &moneyFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       thinBorder,
	}); err != nil {
		return s, err
	}

	dateFmt := e.cfg.Excel.DateFormat
	if s.date, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: &dateFmt,
		Alignment:    &excelize.Alignment{Horizontal: "center"},
		Border:       thinBorder,
	}); err != nil {
		return s, err
	}

	if s.document, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorder,
	}); err != nil {
		return s, err
	}

	if s.text, err = f.NewStyle(&excelize.Style{
		Border: thinBorder,
	}); err != nil {
		return s, err
	}

	return s, nil
}

// trimHash strips a leading '#' from a hex color; excelize wants bare hex.
func trimHash(color string) string {
	if len(color) > 0 && color[0] == '#' {
		return color[1:]
	}
	return color
}

// =============================================================================
// DATA SHEET
// =============================================================================

// writeDataSheet writes the header row and one row per record.
func (e *Exporter) writeDataSheet(f *excelize.File, sheet string, ds *types.FormattedDataset, columns []types.FieldSpec, styles sheetStyles) error {
	// Header row.
	for c, spec := range columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, spec.Name); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return err
		}
	}

	// Data rows: canonical values where the type carries one, display
	// strings otherwise.
	for r := range ds.Records {
		rec := &ds.Records[r]
		for c, spec := range columns {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}

			fv := rec.Fields[spec.Name]
			style := styles.text

			switch {
			case spec.Name == SourceColumn:
				if err := f.SetCellValue(sheet, cell, rec.Source); err != nil {
					return err
				}
			case spec.Type == types.FieldCurrency && fv.NumberValid:
				if err := f.SetCellValue(sheet, cell, fv.Number.InexactFloat64()); err != nil {
					return err
				}
				style = styles.currency
			case spec.Type == types.FieldDate && fv.DateValid:
				if err := f.SetCellValue(sheet, cell, fv.Date); err != nil {
					return err
				}
				style = styles.date
			case spec.Type == types.FieldDocumentID:
				if err := f.SetCellValue(sheet, cell, fv.Display); err != nil {
					return err
				}
				style = styles.document
			default:
				// Text fields and unparsable values fall back to the
				// display string, which preserves the raw text.
				if fv.Present {
					if err := f.SetCellValue(sheet, cell, fv.Display); err != nil {
						return err
					}
				}
			}

			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}

	return e.adjustColumnWidths(f, sheet, ds, columns)
}

// adjustColumnWidths sizes each column from its content, sampling at most
// the first 100 rows, clamped to the configured bounds.
func (e *Exporter) adjustColumnWidths(f *excelize.File, sheet string, ds *types.FormattedDataset, columns []types.FieldSpec) error {
	sample := len(ds.Records)
	if sample > 100 {
		sample = 100
	}

	for c, spec := range columns {
		width := float64(len(spec.Name))
		for r := 0; r < sample; r++ {
			text := ds.Records[r].Fields[spec.Name].Display
			if spec.Name == SourceColumn {
				text = ds.Records[r].Source
			}
			if l := float64(len(text)); l > width {
				width = l
			}
		}

		width += 2
		if width < e.cfg.Excel.MinColumnWidth {
			width = e.cfg.Excel.MinColumnWidth
		}
		if width > e.cfg.Excel.MaxColumnWidth {
			width = e.cfg.Excel.MaxColumnWidth
		}

		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SUMMARY SHEET
// =============================================================================

// writeSummarySheet writes the "Resumo" sheet: overall metrics, per-column
// currency totals and means, and the top-N grouping ranking.
func (e *Exporter) writeSummarySheet(f *excelize.File, ds *types.FormattedDataset, opts Options, styles sheetStyles) error {
	const sheet = "Resumo"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	row := 1
	writeHeader := func(a, b string) error {
		for c, v := range []string{a, b} {
			cell, err := excelize.CoordinatesToCellName(c+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
				return err
			}
		}
		row++
		return nil
	}
	writeMetric := func(name string, value interface{}, style int) error {
		nameCell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		valueCell, err := excelize.CoordinatesToCellName(2, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, nameCell, name); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, valueCell, value); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, nameCell, nameCell, styles.text); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, valueCell, valueCell, style); err != nil {
			return err
		}
		row++
		return nil
	}

	if err := writeHeader("Métrica", "Valor"); err != nil {
		return err
	}
	if err := writeMetric("Total de Registros", len(ds.Records), styles.text); err != nil {
		return err
	}
	if err := writeMetric("Data de Geração", time.Now().Format("02/01/2006 15:04:05"), styles.text); err != nil {
		return err
	}

	// Sum and arithmetic mean per currency column. Zero rows report zero.
	for _, spec := range ds.Specs {
		if spec.Type != types.FieldCurrency {
			continue
		}
		sum, count := sumColumn(ds, spec.Name)
		mean := decimal.Zero
		if count > 0 {
			mean = sum.Div(decimal.NewFromInt(int64(count))).Round(2)
		}
		if err := writeMetric("Total "+spec.Name, sum.InexactFloat64(), styles.currency); err != nil {
			return err
		}
		if err := writeMetric("Média "+spec.Name, mean.InexactFloat64(), styles.currency); err != nil {
			return err
		}
	}

	if err := e.writeRanking(f, sheet, ds, opts, styles, &row); err != nil {
		return err
	}

	// Match the data-sheet sizing for the two summary columns.
	for _, col := range []string{"A", "B"} {
		if err := f.SetColWidth(sheet, col, col, 28); err != nil {
			return err
		}
	}
	return nil
}

// groupTotal accumulates the ranking value for one distinct group value.
type groupTotal struct {
	value string
	total decimal.Decimal
	count int
	seen  int // first-seen position, the tie breaker
}

// writeRanking appends the "top N by grouping field" section: distinct
// values of the grouping field ranked by total of the first currency
// column, descending, ties broken by first-seen order. Datasets without a
// currency column rank by occurrence count instead.
func (e *Exporter) writeRanking(f *excelize.File, sheet string, ds *types.FormattedDataset, opts Options, styles sheetStyles, row *int) error {
	groupField := opts.GroupField
	if groupField == "" {
		for _, spec := range ds.Specs {
			if spec.Type == types.FieldText {
				groupField = spec.Name
				break
			}
		}
	}
	if groupField == "" {
		return nil
	}

	valueField := ""
	for _, spec := range ds.Specs {
		if spec.Type == types.FieldCurrency {
			valueField = spec.Name
			break
		}
	}

	totals := make(map[string]*groupTotal)
	var order []string
	for i := range ds.Records {
		rec := &ds.Records[i]
		key, present := groupValue(rec, groupField)
		if !present {
			continue
		}

		gt, ok := totals[key]
		if !ok {
			gt = &groupTotal{value: key, seen: len(order)}
			totals[key] = gt
			order = append(order, key)
		}
		gt.count++
		if valueField != "" {
			if fv := rec.Fields[valueField]; fv.NumberValid {
				gt.total = gt.total.Add(fv.Number)
			}
		}
	}

	ranked := make([]*groupTotal, 0, len(totals))
	for _, key := range order {
		ranked = append(ranked, totals[key])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if valueField != "" {
			if !ranked[i].total.Equal(ranked[j].total) {
				return ranked[i].total.GreaterThan(ranked[j].total)
			}
		} else if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].seen < ranked[j].seen
	})
	if len(ranked) > opts.TopN {
		ranked = ranked[:opts.TopN]
	}

	// Blank separator row, then the section header.
	*row++
	for c, v := range []string{fmt.Sprintf("Top %d %s", opts.TopN, groupField), valueHeader(valueField)} {
		cell, err := excelize.CoordinatesToCellName(c+1, *row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return err
		}
	}
	*row++

	for _, gt := range ranked {
		nameCell, err := excelize.CoordinatesToCellName(1, *row)
		if err != nil {
			return err
		}
		valueCell, err := excelize.CoordinatesToCellName(2, *row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, nameCell, gt.value); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, nameCell, nameCell, styles.text); err != nil {
			return err
		}
		if valueField != "" {
			if err := f.SetCellValue(sheet, valueCell, gt.total.InexactFloat64()); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, valueCell, valueCell, styles.currency); err != nil {
				return err
			}
		} else {
			if err := f.SetCellValue(sheet, valueCell, gt.count); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, valueCell, valueCell, styles.text); err != nil {
				return err
			}
		}
		*row++
	}
	return nil
}

// groupValue returns the grouping key for one record: the source file name
// for the built-in pseudo-column, the display string otherwise.
func groupValue(rec *types.FormattedRecord, field string) (string, bool) {
	if field == SourceColumn {
		return rec.Source, rec.Source != ""
	}
	fv := rec.Fields[field]
	return fv.Display, fv.Present
}

func valueHeader(valueField string) string {
	if valueField == "" {
		return "Ocorrências"
	}
	return "Total " + valueField
}

// sumColumn totals the valid canonical numbers of one currency column.
func sumColumn(ds *types.FormattedDataset, name string) (decimal.Decimal, int) {
	sum := decimal.Zero
	count := 0
	for i := range ds.Records {
		fv := ds.Records[i].Fields[name]
		if fv.NumberValid {
			sum = sum.Add(fv.Number)
			count++
		}
	}
	return sum, count
}
