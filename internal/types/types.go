// =============================================================================
// XML to XLSX Converter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - xmlparser
//   - aggregator
//   - formatter
//   - datafilter
//   - exporter
//
// =============================================================================

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FIELD SPECIFICATION
// =============================================================================

// FieldType identifies how a field's raw value is interpreted and formatted.
// The set is closed: new behaviors are added as new variants, never as
// string switches scattered through the code.
type FieldType string

const (
	// FieldText is a plain text value. Canonical form is the trimmed string.
	FieldText FieldType = "text"

	// FieldCurrency is a monetary amount. Canonical form is a fixed-precision
	// decimal; the display string is locale-formatted (e.g. "R$ 1.234,56").
	FieldCurrency FieldType = "currency"

	// FieldDate is a calendar date. Canonical form is a time.Time; the
	// display string is zero-padded day/month/year.
	FieldDate FieldType = "date"

	// FieldDocumentID is a Brazilian tax identifier (CNPJ or CPF). Canonical
	// form is the bare digit string; the display string carries the fixed
	// separator positions for the recognized digit counts.
	FieldDocumentID FieldType = "document_id"
)

// Valid reports whether t is one of the recognized field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldCurrency, FieldDate, FieldDocumentID:
		return true
	}
	return false
}

// FieldSpec declares one output column: where to find it in the source XML
// and how to interpret it.
type FieldSpec struct {
	// Name is the output column name. Unique across all FieldSpecs.
	Name string `yaml:"name"`

	// Paths are the candidate XML paths, probed in declaration order.
	// The first path that resolves to a non-empty leaf wins.
	//
	// Path grammar: dot-separated element names; a final "@attr" segment
	// reads an attribute instead of element text.
	// Examples: "emit.CNPJ", "nfe.infNFe.ide.nNF", "infNFe.@Id"
	Paths []string `yaml:"paths"`

	// Type selects the parse/format pair applied by the formatter.
	Type FieldType `yaml:"type"`

	// Collect, when true, gathers every occurrence a candidate path
	// resolves to, joined with Separator, instead of taking the first.
	Collect bool `yaml:"collect,omitempty"`

	// Separator joins collected values. Defaults to "; " when empty.
	Separator string `yaml:"separator,omitempty"`
}

// =============================================================================
// PARSE STATUS
// =============================================================================

// ParseStatus is the per-document outcome of normalization.
type ParseStatus string

const (
	// StatusOK means every declared field resolved.
	StatusOK ParseStatus = "OK"

	// StatusPartial means the document parsed but at least one declared
	// field did not resolve.
	StatusPartial ParseStatus = "PARTIAL"

	// StatusFailed means the document could not be parsed at all
	// (malformed XML, oversized input). No fields were extracted.
	StatusFailed ParseStatus = "FAILED"
)

// =============================================================================
// RECORD AND DATASET
// =============================================================================

// Record is the flat extraction result for a single source document.
// A Record is created once by the normalizer and never mutated afterward;
// corrections produce a new Record.
type Record struct {
	// Source is the originating file name.
	Source string

	// Status is OK, PARTIAL or FAILED.
	Status ParseStatus

	// Values maps output column name to the raw extracted string.
	// A missing key is the absent-marker.
	Values map[string]string

	// Missing lists the declared fields that did not resolve.
	// Populated only when Status is PARTIAL.
	Missing []string

	// FailureReason describes why parsing failed.
	// Populated only when Status is FAILED.
	FailureReason string
}

// Value returns the raw extracted value for a column and whether it resolved.
func (r *Record) Value(name string) (string, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Dataset is an ordered sequence of Records sharing one FieldSpec schema.
type Dataset struct {
	// Specs is the schema all records share, in declared column order.
	Specs []FieldSpec

	// Records holds the surviving records in input order.
	Records []Record
}

// =============================================================================
// OUTCOME REPORT
// =============================================================================

// DocumentOutcome is the per-document entry in the batch report.
type DocumentOutcome struct {
	// Source is the originating file name.
	Source string

	// Status is OK, PARTIAL or FAILED.
	Status ParseStatus

	// Reason carries the failure reason for FAILED documents.
	Reason string

	// Missing lists unresolved fields for PARTIAL documents.
	Missing []string

	// Duplicate is true when the record was dropped by deduplication.
	// Duplicate documents keep their parse status but do not appear in
	// the Dataset.
	Duplicate bool
}

// Report summarizes a batch run: one outcome per input document plus counts.
type Report struct {
	Outcomes []DocumentOutcome

	// OKCount, PartialCount and FailedCount tally parse statuses across
	// all input documents, duplicates included.
	OKCount      int
	PartialCount int
	FailedCount  int

	// DuplicatesDropped counts records removed by deduplication.
	DuplicatesDropped int
}

// Add appends an outcome and updates the counters.
func (rep *Report) Add(o DocumentOutcome) {
	rep.Outcomes = append(rep.Outcomes, o)
	switch o.Status {
	case StatusOK:
		rep.OKCount++
	case StatusPartial:
		rep.PartialCount++
	case StatusFailed:
		rep.FailedCount++
	}
	if o.Duplicate {
		rep.DuplicatesDropped++
	}
}

// =============================================================================
// FORMATTED DATASET
// =============================================================================

// FieldValue is one formatted cell: the canonical typed value used for
// sorting, filtering and aggregation, plus the display string derived from
// it. The canonical value is format-independent; the display string is
// regenerable from canonical value plus type.
type FieldValue struct {
	// Present is false when the field did not resolve in the source
	// document (the absent-marker).
	Present bool

	// Raw is the extracted string exactly as found in the document.
	Raw string

	// Canonical is the canonical textual form, used for text and
	// document_id fields.
	Canonical string

	// Number is the canonical decimal for currency fields.
	// Meaningful only when NumberValid is true.
	Number      decimal.Decimal
	NumberValid bool

	// Date is the canonical calendar date for date fields.
	// Meaningful only when DateValid is true.
	Date      time.Time
	DateValid bool

	// Display is the locale-formatted rendering. Falls back to Raw when
	// the value could not be parsed into its declared type.
	Display string

	// Flagged is true when Raw was present but not parseable into the
	// declared type. Non-fatal: the record and batch continue.
	Flagged bool
}

// FormattedRecord pairs a source record with its typed field values.
type FormattedRecord struct {
	// Source is the originating file name.
	Source string

	// Status is carried over from the underlying Record.
	Status ParseStatus

	// Fields maps output column name to its formatted value. Every declared
	// column has an entry; absent fields have Present == false.
	Fields map[string]FieldValue
}

// FormattedDataset is a Dataset after type-aware formatting.
type FormattedDataset struct {
	// Specs is the shared schema in declared column order.
	Specs []FieldSpec

	// Records holds the formatted records, order preserved.
	Records []FormattedRecord
}
