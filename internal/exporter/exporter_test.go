package exporter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/types"
)

var exportSpecs = []types.FieldSpec{
	{Name: "Nome Emitente", Type: types.FieldText},
	{Name: "Data de Emissão", Type: types.FieldDate},
	{Name: "Valor Total", Type: types.FieldCurrency},
	{Name: "CNPJ Emitente", Type: types.FieldDocumentID},
}

func exportRecord(nome string, dt time.Time, valor, cnpj string) types.FormattedRecord {
	num := decimal.RequireFromString(valor)
	return types.FormattedRecord{
		Status: types.StatusOK,
		Fields: map[string]types.FieldValue{
			"Nome Emitente":   {Present: true, Display: nome, Canonical: nome},
			"Data de Emissão": {Present: true, Date: dt, DateValid: true, Display: dt.Format("02/01/2006")},
			"Valor Total":     {Present: true, Number: num, NumberValid: true, Display: "R$ " + valor},
			"CNPJ Emitente":   {Present: true, Canonical: cnpj, Display: cnpj},
		},
	}
}

func exportDataset() *types.FormattedDataset {
	return &types.FormattedDataset{
		Specs: exportSpecs,
		Records: []types.FormattedRecord{
			exportRecord("Loja Alfa", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "100.00", "12.345.678/0001-95"),
			exportRecord("Loja Beta", time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC), "250.00", "98.765.432/0001-10"),
			exportRecord("Loja Alfa", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "500.00", "12.345.678/0001-95"),
		},
	}
}

func open(t *testing.T, content []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestExportDataSheet(t *testing.T) {
	e := New(config.Default(), nil)

	content, hint, err := e.Export(exportDataset(), Options{})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(hint, ".xlsx"))

	f := open(t, content)
	require.Equal(t, []string{"Dados"}, f.GetSheetList())

	rows, err := f.GetRows("Dados")
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 3 records

	require.Equal(t, []string{"Nome Emitente", "Data de Emissão", "Valor Total", "CNPJ Emitente"}, rows[0])
	require.Equal(t, "Loja Alfa", rows[1][0])
	require.Equal(t, "12.345.678/0001-95", rows[1][3])

	// Currency cells carry the canonical number, not the display string.
	v, err := f.GetCellValue("Dados", "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "100", v)
}

func TestExportZeroRows(t *testing.T) {
	e := New(config.Default(), nil)
	ds := &types.FormattedDataset{Specs: exportSpecs}

	content, _, err := e.Export(ds, Options{IncludeSummary: true})
	require.NoError(t, err)

	f := open(t, content)
	rows, err := f.GetRows("Dados")
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only

	// Summary still renders, with a zero count and zero totals.
	resumo, err := f.GetRows("Resumo")
	require.NoError(t, err)
	require.Equal(t, []string{"Total de Registros", "0"}, resumo[1][:2])

	sum, err := f.GetCellValue("Resumo", "B4", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "0", sum) // Total Valor Total over zero rows
}

func TestExportSummarySheet(t *testing.T) {
	e := New(config.Default(), nil)

	content, _, err := e.Export(exportDataset(), Options{IncludeSummary: true})
	require.NoError(t, err)

	f := open(t, content)
	require.Contains(t, f.GetSheetList(), "Resumo")

	rows, err := f.GetRows("Resumo")
	require.NoError(t, err)

	metrics := make(map[string]string)
	for _, row := range rows {
		if len(row) >= 2 {
			metrics[row[0]] = row[1]
		}
	}
	require.Equal(t, "3", metrics["Total de Registros"])
	require.NotEmpty(t, metrics["Data de Geração"])

	sum, err := f.GetCellValue("Resumo", "B4", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "850", sum) // Total Valor Total
	mean, err := f.GetCellValue("Resumo", "B5", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "283.33", mean) // Média Valor Total
}

func TestExportRankingOrder(t *testing.T) {
	e := New(config.Default(), nil)

	content, _, err := e.Export(exportDataset(), Options{IncludeSummary: true})
	require.NoError(t, err)

	f := open(t, content)
	rows, err := f.GetRows("Resumo")
	require.NoError(t, err)

	// Locate the ranking header, then check descending order by total:
	// Loja Alfa has 600, Loja Beta 250.
	start := -1
	for i, row := range rows {
		if len(row) > 0 && strings.HasPrefix(row[0], "Top ") {
			start = i
			break
		}
	}
	require.GreaterOrEqual(t, start, 0, "ranking header not found")
	require.Equal(t, "Loja Alfa", rows[start+1][0])
	require.Equal(t, "Loja Beta", rows[start+2][0])
}

func sourcedDataset() *types.FormattedDataset {
	ds := exportDataset()
	for i, name := range []string{"nota1.xml", "nota2.xml", "nota3.xml"} {
		ds.Records[i].Source = name
	}
	return ds
}

func TestExportSourceColumnAppended(t *testing.T) {
	e := New(config.Default(), nil)

	content, _, err := e.Export(sourcedDataset(), Options{IncludeSource: true})
	require.NoError(t, err)

	f := open(t, content)
	rows, err := f.GetRows("Dados")
	require.NoError(t, err)
	require.Equal(t, SourceColumn, rows[0][len(rows[0])-1])
	require.Equal(t, "nota1.xml", rows[1][len(rows[0])-1])
	require.Equal(t, "nota3.xml", rows[3][len(rows[0])-1])
}

func TestExportSourceColumnInColumnOrder(t *testing.T) {
	e := New(config.Default(), nil)

	content, _, err := e.Export(sourcedDataset(), Options{
		ColumnOrder: []string{"Nome Emitente", SourceColumn},
	})
	require.NoError(t, err)

	f := open(t, content)
	rows, err := f.GetRows("Dados")
	require.NoError(t, err)
	require.Equal(t, []string{"Nome Emitente", SourceColumn}, rows[0])
	require.Equal(t, []string{"Loja Alfa", "nota1.xml"}, rows[1])
	require.Equal(t, []string{"Loja Beta", "nota2.xml"}, rows[2])
}

func TestExportGroupBySourceColumn(t *testing.T) {
	e := New(config.Default(), nil)

	content, _, err := e.Export(sourcedDataset(), Options{
		IncludeSummary: true,
		GroupField:     SourceColumn,
	})
	require.NoError(t, err)

	f := open(t, content)
	rows, err := f.GetRows("Resumo")
	require.NoError(t, err)

	start := -1
	for i, row := range rows {
		if len(row) > 0 && strings.HasPrefix(row[0], "Top ") {
			start = i
			break
		}
	}
	require.GreaterOrEqual(t, start, 0, "ranking header not found")
	// nota3.xml carries the largest value (500.00) and ranks first.
	require.Equal(t, "nota3.xml", rows[start+1][0])
}

func TestExportColumnOrderOverride(t *testing.T) {
	e := New(config.Default(), nil)

	content, _, err := e.Export(exportDataset(), Options{
		ColumnOrder: []string{"Valor Total", "Nome Emitente"},
	})
	require.NoError(t, err)

	f := open(t, content)
	rows, err := f.GetRows("Dados")
	require.NoError(t, err)
	require.Equal(t, []string{"Valor Total", "Nome Emitente"}, rows[0])
}

func TestExportRejectsUnknownColumn(t *testing.T) {
	e := New(config.Default(), nil)

	_, _, err := e.Export(exportDataset(), Options{ColumnOrder: []string{"Coluna Inventada"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown column")
}

func TestExportRejectsUnknownGroupField(t *testing.T) {
	e := New(config.Default(), nil)

	_, _, err := e.Export(exportDataset(), Options{IncludeSummary: true, GroupField: "Nada"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown grouping field")
}

func TestExportCustomSheetName(t *testing.T) {
	e := New(config.Default(), nil)

	content, _, err := e.Export(exportDataset(), Options{SheetName: "Notas"})
	require.NoError(t, err)

	f := open(t, content)
	require.Equal(t, []string{"Notas"}, f.GetSheetList())
}

func TestExportNoSummaryByDefault(t *testing.T) {
	e := New(config.Default(), nil)

	content, _, err := e.Export(exportDataset(), Options{})
	require.NoError(t, err)

	f := open(t, content)
	require.NotContains(t, f.GetSheetList(), "Resumo")
}

func TestExportFlaggedValueFallsBackToDisplay(t *testing.T) {
	ds := exportDataset()
	ds.Records[0].Fields["Valor Total"] = types.FieldValue{
		Present: true,
		Raw:     "isento",
		Display: "isento",
		Flagged: true,
	}

	e := New(config.Default(), nil)
	content, _, err := e.Export(ds, Options{})
	require.NoError(t, err)

	f := open(t, content)
	v, err := f.GetCellValue("Dados", "C2")
	require.NoError(t, err)
	require.Equal(t, "isento", v)
}
