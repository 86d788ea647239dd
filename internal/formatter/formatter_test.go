package formatter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/types"
)

func newFormatter(t *testing.T) *Formatter {
	t.Helper()
	return New(config.Default(), nil)
}

func TestParseCurrencyDotDecimal(t *testing.T) {
	got, err := ParseCurrency("1234.56")
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.RequireFromString("1234.56")))
}

func TestParseCurrencyBrazilianConvention(t *testing.T) {
	got, err := ParseCurrency("1.234,56")
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.RequireFromString("1234.56")))
}

func TestParseCurrencyGroupingOnly(t *testing.T) {
	// Three digits after the rightmost separator: grouping, not decimal.
	got, err := ParseCurrency("1.234")
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.NewFromInt(1234)))

	got, err = ParseCurrency("1,234,567")
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.NewFromInt(1234567)))
}

func TestParseCurrencyNoiseAndNegatives(t *testing.T) {
	got, err := ParseCurrency("R$ 1.234,56")
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.RequireFromString("1234.56")))

	got, err = ParseCurrency("-12,5")
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.RequireFromString("-12.5")))
}

func TestParseCurrencyRejectsNonNumeric(t *testing.T) {
	_, err := ParseCurrency("n/a")
	require.Error(t, err)

	_, err = ParseCurrency("")
	require.Error(t, err)
}

func TestFormatCurrencyDisplay(t *testing.T) {
	require.Equal(t, "R$ 1.234,56", FormatCurrency(decimal.RequireFromString("1234.56"), "R$"))
	require.Equal(t, "R$ 0,50", FormatCurrency(decimal.RequireFromString("0.5"), "R$"))
	require.Equal(t, "R$ 1.234.567,00", FormatCurrency(decimal.NewFromInt(1234567), "R$"))
	require.Equal(t, "R$ -1.234,56", FormatCurrency(decimal.RequireFromString("-1234.56"), "R$"))
}

func TestCurrencyRoundTrip(t *testing.T) {
	f := newFormatter(t)

	fv := f.FormatValue("1234.56", types.FieldCurrency)
	require.True(t, fv.NumberValid)
	require.False(t, fv.Flagged)
	require.True(t, fv.Number.Equal(decimal.RequireFromString("1234.56")))
	require.Equal(t, "R$ 1.234,56", fv.Display)

	// The Brazilian-formatted input reaches the same canonical value.
	fv2 := f.FormatValue("1.234,56", types.FieldCurrency)
	require.True(t, fv2.Number.Equal(fv.Number))
	require.Equal(t, fv.Display, fv2.Display)
}

func TestUnparseableCurrencyIsFlaggedNotFatal(t *testing.T) {
	f := newFormatter(t)

	fv := f.FormatValue("isento", types.FieldCurrency)
	require.True(t, fv.Present)
	require.True(t, fv.Flagged)
	require.False(t, fv.NumberValid)
	require.Equal(t, "isento", fv.Display)
}

func TestParseDateForms(t *testing.T) {
	want := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{
		"2025-03-15",
		"15/03/2025",
		"2025-03-15T10:30:00-03:00",
		"2025-03-15 10:30:00",
		"20250315",
	} {
		got, err := ParseDate(raw)
		require.NoError(t, err, "input %q", raw)
		require.True(t, got.Equal(want), "input %q parsed as %v", raw, got)
	}
}

func TestParseDateTruncatedOffset(t *testing.T) {
	got, err := ParseDate("2025-03-15T10:30:00-03")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("ontem")
	require.Error(t, err)
}

func TestDateDisplayIsDayFirstZeroPadded(t *testing.T) {
	f := newFormatter(t)

	fv := f.FormatValue("2025-03-05", types.FieldDate)
	require.True(t, fv.DateValid)
	require.Equal(t, "05/03/2025", fv.Display)

	// Day-first input yields the same display.
	fv2 := f.FormatValue("05/03/2025", types.FieldDate)
	require.Equal(t, fv.Display, fv2.Display)
	require.True(t, fv.Date.Equal(fv2.Date))
}

func TestFormatDocumentID(t *testing.T) {
	cnpj, ok := FormatDocumentID("12345678000195")
	require.True(t, ok)
	require.Equal(t, "12.345.678/0001-95", cnpj)

	cpf, ok := FormatDocumentID("12345678901")
	require.True(t, ok)
	require.Equal(t, "123.456.789-01", cpf)

	other, ok := FormatDocumentID("12345")
	require.False(t, ok)
	require.Equal(t, "12345", other)
}

func TestDocumentIDStripsExistingSeparators(t *testing.T) {
	f := newFormatter(t)

	fv := f.FormatValue("12.345.678/0001-95", types.FieldDocumentID)
	require.Equal(t, "12345678000195", fv.Canonical)
	require.Equal(t, "12.345.678/0001-95", fv.Display)
	require.False(t, fv.Flagged)
}

func TestUnrecognizedDocumentIDIsFlagged(t *testing.T) {
	f := newFormatter(t)

	fv := f.FormatValue("999", types.FieldDocumentID)
	require.True(t, fv.Flagged)
	require.Equal(t, "999", fv.Display)
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Empresa Exemplo LTDA", CleanText("  Empresa   Exemplo\tLTDA\n"))
	require.Equal(t, "", CleanText("   "))
}

func TestFormatDatasetPreservesAbsence(t *testing.T) {
	cfg := config.Default()
	cfg.Fields = []types.FieldSpec{
		{Name: "Nome", Paths: []string{"nome"}, Type: types.FieldText},
		{Name: "Valor", Paths: []string{"valor"}, Type: types.FieldCurrency},
	}

	ds := &types.Dataset{
		Specs: cfg.Fields,
		Records: []types.Record{{
			Source: "a.xml",
			Status: types.StatusPartial,
			Values: map[string]string{"Nome": "Loja A"},
		}},
	}

	out := New(cfg, nil).FormatDataset(ds)
	require.Len(t, out.Records, 1)

	nome := out.Records[0].Fields["Nome"]
	require.True(t, nome.Present)
	require.Equal(t, "Loja A", nome.Display)

	valor := out.Records[0].Fields["Valor"]
	require.False(t, valor.Present)
	require.Equal(t, "", valor.Display)
}
