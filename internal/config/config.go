// =============================================================================
// XML to XLSX Converter - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration. A single YAML file declares everything the pipeline needs:
//
//   - The field-mapping table (output column -> candidate XML paths -> type)
//   - Processing limits (maximum batch count, maximum per-file size)
//   - Deduplication defaults (enabled flag, key fields)
//   - Locale defaults (currency symbol, date display layout)
//   - Excel header styling (colors, bold, border)
//   - CLI directories and logging settings
//
// The configuration is loaded once at process start and threaded explicitly
// into each pipeline call. There is no module-level settings object; tests
// use Default() as the well-defined baseline.
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the full application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS (CLI only; the library never touches the disk)
	// =========================================================================

	// InputDir is the directory scanned for input XML and ZIP files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where generated XLSX files are placed.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir is the directory where processed input files are moved
	// after a successful run. Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls verbosity: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFile is an optional log file path. Empty logs to stderr only.
	LogFile string `yaml:"log_file"`

	// =========================================================================
	// PROCESSING LIMITS
	// =========================================================================

	// MaxBatchCount is the maximum number of documents accepted per batch.
	// Submitting more fails the whole batch call. Default: 1000
	MaxBatchCount int `yaml:"max_batch_count"`

	// MaxFileSizeMB is the maximum size of a single input document in
	// megabytes. Oversized documents degrade to FAILED. Default: 200
	MaxFileSizeMB int `yaml:"max_file_size_mb"`

	// =========================================================================
	// DEDUPLICATION SETTINGS
	// =========================================================================

	// Dedup controls duplicate-record removal during aggregation.
	Dedup DedupConfig `yaml:"dedup"`

	// =========================================================================
	// LOCALE SETTINGS
	// =========================================================================

	// Locale controls currency and date rendering.
	Locale LocaleConfig `yaml:"locale"`

	// =========================================================================
	// EXCEL SETTINGS
	// =========================================================================

	// Excel controls the styling of the exported workbook.
	Excel ExcelConfig `yaml:"excel"`

	// =========================================================================
	// FIELD MAPPING TABLE
	// =========================================================================

	// Fields is the declarative field-mapping table: one entry per output
	// column, probed in declaration order against each document.
	Fields []types.FieldSpec `yaml:"fields"`
}

// DedupConfig controls duplicate-record removal.
type DedupConfig struct {
	// Enabled turns deduplication on. Default: false
	Enabled bool `yaml:"enabled"`

	// KeyFields is the subset of output columns forming the dedup key.
	// Empty means full-row equality over all declared columns.
	KeyFields []string `yaml:"key_fields"`
}

// LocaleConfig controls locale-formatted display strings.
type LocaleConfig struct {
	// CurrencySymbol prefixes currency display strings. Default: "R$"
	CurrencySymbol string `yaml:"currency_symbol"`

	// DateLayout is the Go layout for date display strings.
	// Default: "02/01/2006"
	DateLayout string `yaml:"date_layout"`
}

// ExcelConfig controls workbook styling and layout.
type ExcelConfig struct {
	// HeaderStyle styles the first row of every sheet.
	HeaderStyle HeaderStyle `yaml:"header_style"`

	// MoneyFormat is the number format applied to currency cells.
	// Default: "R$ #,##0.00"
	MoneyFormat string `yaml:"money_format"`

	// DateFormat is the number format applied to date cells.
	// Default: "DD/MM/YYYY"
	DateFormat string `yaml:"date_format"`

	// MinColumnWidth and MaxColumnWidth bound the auto-sized column widths.
	// Defaults: 12 and 50
	MinColumnWidth float64 `yaml:"min_column_width"`
	MaxColumnWidth float64 `yaml:"max_column_width"`
}

// HeaderStyle describes the header-row formatting.
type HeaderStyle struct {
	// Bold renders header text in bold. Default: true
	Bold bool `yaml:"bold"`

	// BgColor is the header background color in hex. Default: "#4472C4"
	BgColor string `yaml:"bg_color"`

	// FontColor is the header font color in hex. Default: "#FFFFFF"
	FontColor string `yaml:"font_color"`

	// Border draws a thin border around header cells. Default: true
	Border bool `yaml:"border"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the baseline configuration: the standard NFe (Nota Fiscal
// Eletrônica) field mapping and the stock limits and styles. Tests build on
// this value.
func Default() *Config {
	cfg := &Config{
		InputDir:        "./input",
		OutputDir:       "./output",
		InputArchiveDir: "./input_archive",
		LogLevel:        "info",
		MaxBatchCount:   1000,
		MaxFileSizeMB:   200,
		Dedup: DedupConfig{
			Enabled: false,
		},
		Locale: LocaleConfig{
			CurrencySymbol: "R$",
			DateLayout:     "02/01/2006",
		},
		Excel: ExcelConfig{
			HeaderStyle: HeaderStyle{
				Bold:      true,
				BgColor:   "#4472C4",
				FontColor: "#FFFFFF",
				Border:    true,
			},
			MoneyFormat:    "R$ #,##0.00",
			DateFormat:     "DD/MM/YYYY",
			MinColumnWidth: 12,
			MaxColumnWidth: 50,
		},
		Fields: DefaultNFeFields(),
	}
	return cfg
}

// DefaultNFeFields returns the standard field mapping for NFe documents.
// Candidate paths cover both bare <NFe> documents and <nfeProc> envelopes.
func DefaultNFeFields() []types.FieldSpec {
	return []types.FieldSpec{
		{
			Name:  "Número da Nota",
			Paths: []string{"nNF", "numero", "nfe.infNFe.ide.nNF"},
			Type:  types.FieldText,
		},
		{
			Name:  "Data de Emissão",
			Paths: []string{"dhEmi", "dataEmissao", "nfe.infNFe.ide.dhEmi"},
			Type:  types.FieldDate,
		},
		{
			Name:  "CNPJ Emitente",
			Paths: []string{"emit.CNPJ", "emitente.cnpj", "nfe.infNFe.emit.CNPJ"},
			Type:  types.FieldDocumentID,
		},
		{
			Name:  "Nome Emitente",
			Paths: []string{"emit.xNome", "emitente.nome", "nfe.infNFe.emit.xNome"},
			Type:  types.FieldText,
		},
		{
			Name:  "CNPJ Destinatário",
			Paths: []string{"dest.CNPJ", "destinatario.cnpj", "nfe.infNFe.dest.CNPJ"},
			Type:  types.FieldDocumentID,
		},
		{
			Name:  "Nome Destinatário",
			Paths: []string{"dest.xNome", "destinatario.nome", "nfe.infNFe.dest.xNome"},
			Type:  types.FieldText,
		},
		{
			Name:  "Valor Total",
			Paths: []string{"vNF", "valorTotal", "nfe.infNFe.total.ICMSTot.vNF", "total.ICMSTot.vNF"},
			Type:  types.FieldCurrency,
		},
		{
			Name:  "Valor Produtos",
			Paths: []string{"vProd", "valorProdutos", "nfe.infNFe.total.ICMSTot.vProd", "total.ICMSTot.vProd"},
			Type:  types.FieldCurrency,
		},
		{
			Name:  "Chave NFe",
			Paths: []string{"chNFe", "chave", "infNFe.@Id", "protNFe.infProt.chNFe"},
			Type:  types.FieldText,
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from a YAML file, applies defaults and
// validates the result.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills unset options with the stock values.
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.InputDir == "" {
		cfg.InputDir = def.InputDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = def.OutputDir
	}
	if cfg.InputArchiveDir == "" {
		cfg.InputArchiveDir = def.InputArchiveDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.MaxBatchCount == 0 {
		cfg.MaxBatchCount = def.MaxBatchCount
	}
	if cfg.MaxFileSizeMB == 0 {
		cfg.MaxFileSizeMB = def.MaxFileSizeMB
	}
	if cfg.Locale.CurrencySymbol == "" {
		cfg.Locale.CurrencySymbol = def.Locale.CurrencySymbol
	}
	if cfg.Locale.DateLayout == "" {
		cfg.Locale.DateLayout = def.Locale.DateLayout
	}
	if cfg.Excel.HeaderStyle.BgColor == "" {
		cfg.Excel.HeaderStyle = def.Excel.HeaderStyle
	}
	if cfg.Excel.MoneyFormat == "" {
		cfg.Excel.MoneyFormat = def.Excel.MoneyFormat
	}
	if cfg.Excel.DateFormat == "" {
		cfg.Excel.DateFormat = def.Excel.DateFormat
	}
	if cfg.Excel.MinColumnWidth == 0 {
		cfg.Excel.MinColumnWidth = def.Excel.MinColumnWidth
	}
	if cfg.Excel.MaxColumnWidth == 0 {
		cfg.Excel.MaxColumnWidth = def.Excel.MaxColumnWidth
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = def.Fields
	}
	for i := range cfg.Fields {
		if cfg.Fields[i].Type == "" {
			cfg.Fields[i].Type = types.FieldText
		}
		if cfg.Fields[i].Collect && cfg.Fields[i].Separator == "" {
			cfg.Fields[i].Separator = "; "
		}
	}
}

// Validate checks the configuration invariants.
func Validate(cfg *Config) error {
	if cfg.MaxBatchCount <= 0 {
		return fmt.Errorf("max_batch_count must be positive, got %d", cfg.MaxBatchCount)
	}
	if cfg.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max_file_size_mb must be positive, got %d", cfg.MaxFileSizeMB)
	}
	if len(cfg.Fields) == 0 {
		return fmt.Errorf("at least one field mapping is required")
	}

	// Output names must be unique across all field specs.
	seen := make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if f.Name == "" {
			return fmt.Errorf("field mapping with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %q", f.Name)
		}
		seen[f.Name] = true

		if len(f.Paths) == 0 {
			return fmt.Errorf("field %q has no candidate paths", f.Name)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("field %q has unknown type %q", f.Name, f.Type)
		}
	}

	// Dedup key fields must reference declared columns.
	for _, k := range cfg.Dedup.KeyFields {
		if !seen[k] {
			return fmt.Errorf("dedup key references unknown field: %q", k)
		}
	}

	return nil
}

// MaxFileSizeBytes returns the per-document size limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}
