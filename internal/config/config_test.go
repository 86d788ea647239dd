package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/types"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	require.Equal(t, 1000, cfg.MaxBatchCount)
	require.Equal(t, 200, cfg.MaxFileSizeMB)
	require.Equal(t, "R$", cfg.Locale.CurrencySymbol)
	require.Equal(t, "#4472C4", cfg.Excel.HeaderStyle.BgColor)
	require.Len(t, cfg.Fields, 9)
}

func TestMaxFileSizeBytes(t *testing.T) {
	cfg := Default()
	cfg.MaxFileSizeMB = 2
	require.Equal(t, int64(2*1024*1024), cfg.MaxFileSizeBytes())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
fields:
  - name: "Número"
    paths: ["ide.nNF"]
    type: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Unset options fall back to the stock values.
	require.Equal(t, "./input", cfg.InputDir)
	require.Equal(t, 1000, cfg.MaxBatchCount)
	require.Equal(t, "R$ #,##0.00", cfg.Excel.MoneyFormat)

	require.Len(t, cfg.Fields, 1)
	require.Equal(t, types.FieldText, cfg.Fields[0].Type)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
input_dir: /tmp/in
max_batch_count: 50
max_file_size_mb: 10
dedup:
  enabled: true
  key_fields: ["Chave"]
locale:
  currency_symbol: "US$"
fields:
  - name: "Chave"
    paths: ["infNFe.@Id"]
    type: text
  - name: "Valor"
    paths: ["total.vNF", "vNF"]
    type: currency
  - name: "Produtos"
    paths: ["det.prod.xProd"]
    type: text
    collect: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/in", cfg.InputDir)
	require.Equal(t, 50, cfg.MaxBatchCount)
	require.True(t, cfg.Dedup.Enabled)
	require.Equal(t, []string{"Chave"}, cfg.Dedup.KeyFields)
	require.Equal(t, "US$", cfg.Locale.CurrencySymbol)

	require.Equal(t, types.FieldCurrency, cfg.Fields[1].Type)
	require.Equal(t, []string{"total.vNF", "vNF"}, cfg.Fields[1].Paths)

	// Collecting fields get the default separator.
	require.True(t, cfg.Fields[2].Collect)
	require.Equal(t, "; ", cfg.Fields[2].Separator)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "fields: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsDuplicateFieldNames(t *testing.T) {
	cfg := Default()
	cfg.Fields = []types.FieldSpec{
		{Name: "Valor", Paths: []string{"a"}, Type: types.FieldCurrency},
		{Name: "Valor", Paths: []string{"b"}, Type: types.FieldCurrency},
	}
	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate field name")
}

func TestValidateRejectsEmptyPaths(t *testing.T) {
	cfg := Default()
	cfg.Fields = []types.FieldSpec{{Name: "Valor", Type: types.FieldCurrency}}
	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no candidate paths")
}

func TestValidateRejectsUnknownFieldType(t *testing.T) {
	cfg := Default()
	cfg.Fields = []types.FieldSpec{{Name: "X", Paths: []string{"x"}, Type: "percentage"}}
	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown type")
}

func TestValidateRejectsUnknownDedupKey(t *testing.T) {
	cfg := Default()
	cfg.Dedup.KeyFields = []string{"Coluna Inexistente"}
	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dedup key")
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	cfg := Default()
	cfg.MaxBatchCount = -1
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.MaxFileSizeMB = 0
	require.Error(t, Validate(cfg))
}
