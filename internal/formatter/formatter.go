// =============================================================================
// XML to XLSX Converter - Value Formatter
// =============================================================================
//
// This module turns raw extracted strings into (canonical value, display
// string) pairs according to the declared field type. The canonical value is
// locale-independent and drives sorting, filtering and aggregation; the
// display string is derived from it and can always be regenerated.
//
// TYPE VARIANTS (closed set):
//   - text        : trimmed string, inner whitespace collapsed
//   - currency    : decimal canonical, "R$ 1.234,56"-style display
//   - date        : calendar-date canonical, zero-padded DD/MM/YYYY display
//   - document_id : CNPJ (14 digits) or CPF (11 digits), separators
//                   re-inserted at the fixed positions for display
//
// SEPARATOR HEURISTIC (currency):
//   Inputs arrive both as "1234.56" and as "1.234,56". The rightmost '.' or
//   ',' is taken as the decimal mark iff it is followed by one or two
//   digits; every other '.' and ',' is a grouping separator and is removed.
//   "1.234" therefore parses as one thousand two hundred thirty-four.
//
// All formatting failures are field-scoped: the field is flagged, the raw
// text is kept as the display fallback, and the record and batch continue.
//
// =============================================================================

package formatter

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/logging"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/types"
)

// =============================================================================
// FORMATTER
// =============================================================================

// Formatter applies type-aware formatting to a Dataset.
type Formatter struct {
	cfg *config.Config
	log *logrus.Logger
}

// New creates a Formatter bound to the given configuration.
func New(cfg *config.Config, log *logrus.Logger) *Formatter {
	if log == nil {
		log = logging.Discard()
	}
	return &Formatter{cfg: cfg, log: log}
}

// FormatDataset converts every record of a Dataset into its formatted form.
// The input Dataset is not modified.
func (f *Formatter) FormatDataset(ds *types.Dataset) *types.FormattedDataset {
	out := &types.FormattedDataset{
		Specs:   ds.Specs,
		Records: make([]types.FormattedRecord, 0, len(ds.Records)),
	}

	flagged := 0
	for i := range ds.Records {
		rec := f.formatRecord(&ds.Records[i])
		for _, fv := range rec.Fields {
			if fv.Flagged {
				flagged++
			}
		}
		out.Records = append(out.Records, rec)
	}

	if flagged > 0 {
		f.log.WithField("fields", flagged).Warn("Some field values could not be parsed into their declared type")
	}

	return out
}

// formatRecord formats every declared column of one record. Absent fields
// get an entry with Present == false and an empty display string.
func (f *Formatter) formatRecord(rec *types.Record) types.FormattedRecord {
	out := types.FormattedRecord{
		Source: rec.Source,
		Status: rec.Status,
		Fields: make(map[string]types.FieldValue, len(f.cfg.Fields)),
	}

	for _, spec := range f.cfg.Fields {
		raw, ok := rec.Value(spec.Name)
		if !ok {
			out.Fields[spec.Name] = types.FieldValue{}
			continue
		}
		out.Fields[spec.Name] = f.FormatValue(raw, spec.Type)
	}

	return out
}

// FormatValue maps one raw string to its canonical value and display string
// per the declared type.
func (f *Formatter) FormatValue(raw string, fieldType types.FieldType) types.FieldValue {
	fv := types.FieldValue{Present: true, Raw: raw}

	switch fieldType {
	case types.FieldCurrency:
		num, err := ParseCurrency(raw)
		if err != nil {
			fv.Display = raw
			fv.Flagged = true
			return fv
		}
		fv.Number = num
		fv.NumberValid = true
		fv.Display = FormatCurrency(num, f.cfg.Locale.CurrencySymbol)

	case types.FieldDate:
		date, err := ParseDate(raw)
		if err != nil {
			fv.Display = raw
			fv.Flagged = true
			return fv
		}
		fv.Date = date
		fv.DateValid = true
		fv.Display = date.Format(f.cfg.Locale.DateLayout)

	case types.FieldDocumentID:
		digits := nonDigits.ReplaceAllString(raw, "")
		fv.Canonical = digits
		display, ok := FormatDocumentID(digits)
		if !ok {
			fv.Display = digits
			fv.Flagged = true
			return fv
		}
		fv.Display = display

	default: // FieldText
		clean := CleanText(raw)
		fv.Canonical = clean
		fv.Display = clean
	}

	return fv
}

// =============================================================================
// CURRENCY
// =============================================================================

var nonDigits = regexp.MustCompile(`\D`)

// currencyNoise strips everything that is not part of the number itself:
// currency symbols, letters, whitespace.
var currencyNoise = regexp.MustCompile(`[^\d.,\-]`)

// ParseCurrency parses a decimal number tolerant of both "1234.56" and
// "1.234,56"-style inputs. The rightmost separator followed by one or two
// digits is the decimal mark; all other separators are grouping.
func ParseCurrency(raw string) (decimal.Decimal, error) {
	s := currencyNoise.ReplaceAllString(strings.TrimSpace(raw), "")

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	lastSep := lastDot
	if lastComma > lastSep {
		lastSep = lastComma
	}

	if lastSep >= 0 {
		trailing := len(s) - lastSep - 1
		if trailing >= 1 && trailing <= 2 {
			intPart := strings.Map(dropSeparators, s[:lastSep])
			s = intPart + "." + s[lastSep+1:]
		} else {
			s = strings.Map(dropSeparators, s)
		}
	}

	return decimal.NewFromString(s)
}

func dropSeparators(r rune) rune {
	if r == '.' || r == ',' {
		return -1
	}
	return r
}

// FormatCurrency renders a decimal in the Brazilian convention: thousands
// separated by '.', two fraction digits after ',', prefixed with the
// currency symbol. Example: FormatCurrency(1234.56, "R$") == "R$ 1.234,56".
func FormatCurrency(value decimal.Decimal, symbol string) string {
	fixed := value.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var grouped strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(d)
	}

	out := symbol + " " + grouped.String() + "," + fracPart
	if neg {
		out = symbol + " -" + grouped.String() + "," + fracPart
	}
	return out
}

// =============================================================================
// DATE
// =============================================================================

// dateLayouts are the accepted textual forms, tried in order. NFe emission
// stamps are ISO-8601 with offset; legacy exports use day-first forms.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"20060102",
}

// ParseDate parses ISO-8601 and day-month-year textual forms into a
// calendar date. Any time-of-day or timezone component is discarded: the
// canonical value is the date alone, in UTC.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)

	var t time.Time
	var err error
	for _, layout := range dateLayouts {
		t, err = time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	// ISO stamps sometimes carry a malformed or truncated offset; retry on
	// the bare datetime portion.
	if len(s) > 19 && s[10] == 'T' {
		if t, err2 := time.Parse("2006-01-02T15:04:05", s[:19]); err2 == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, err
}

// =============================================================================
// DOCUMENT ID (CNPJ / CPF)
// =============================================================================

// FormatDocumentID re-inserts the fixed separators for the two recognized
// digit counts: 14 digits formats as a CNPJ (00.000.000/0000-00) and 11 as
// a CPF (000.000.000-00). Any other count is unrecognized.
func FormatDocumentID(digits string) (string, bool) {
	switch len(digits) {
	case 14:
		return digits[:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:], true
	case 11:
		return digits[:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:], true
	}
	return digits, false
}

// =============================================================================
// TEXT
// =============================================================================

var innerSpace = regexp.MustCompile(`\s+`)

// CleanText trims a string and collapses runs of inner whitespace.
func CleanText(raw string) string {
	return innerSpace.ReplaceAllString(strings.TrimSpace(raw), " ")
}
