// =============================================================================
// XML to XLSX Converter - Filter Engine
// =============================================================================
//
// This module applies date-range, value-range and substring predicates to a
// formatted dataset. Filtering is non-destructive: it returns a new subset
// view over the same records, relative order preserved. Filter components
// compose conjunctively; an unset component imposes no constraint, which
// makes application idempotent.
//
// ABSENT VALUES:
//   A record without a canonical date is excluded while a date filter is
//   active; likewise for numeric values under a value filter. An absent
//   value cannot satisfy an inclusive bound.
//
// =============================================================================

package datafilter

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/types"
)

// =============================================================================
// FILTER SPECIFICATION
// =============================================================================

// FilterSpec declares the active predicates. All components are optional
// and stateless; the zero value filters nothing.
type FilterSpec struct {
	// StartDate and EndDate bound date-typed fields, both inclusive.
	// A record matches when any of its date fields falls inside the range.
	StartDate *time.Time
	EndDate   *time.Time

	// MinValue and MaxValue bound currency-typed fields, both inclusive.
	// A record matches when any of its currency fields falls inside.
	MinValue *decimal.Decimal
	MaxValue *decimal.Decimal

	// TextQuery is matched case-insensitively as a substring against every
	// textual display field of a record; any single match qualifies.
	TextQuery string
}

// Empty reports whether no predicate is set.
func (f *FilterSpec) Empty() bool {
	return f.StartDate == nil && f.EndDate == nil &&
		f.MinValue == nil && f.MaxValue == nil &&
		f.TextQuery == ""
}

// =============================================================================
// APPLICATION
// =============================================================================

// Apply returns the subset of ds matching every active predicate, in the
// original relative order. ds is never modified.
func Apply(ds *types.FormattedDataset, spec FilterSpec) *types.FormattedDataset {
	out := &types.FormattedDataset{Specs: ds.Specs}

	if spec.Empty() {
		out.Records = append(out.Records, ds.Records...)
		return out
	}

	for i := range ds.Records {
		if matches(&ds.Records[i], ds.Specs, spec) {
			out.Records = append(out.Records, ds.Records[i])
		}
	}
	return out
}

// matches evaluates all active predicates conjunctively for one record.
func matches(rec *types.FormattedRecord, specs []types.FieldSpec, f FilterSpec) bool {
	if f.StartDate != nil || f.EndDate != nil {
		if !matchesDateRange(rec, specs, f.StartDate, f.EndDate) {
			return false
		}
	}
	if f.MinValue != nil || f.MaxValue != nil {
		if !matchesValueRange(rec, specs, f.MinValue, f.MaxValue) {
			return false
		}
	}
	if f.TextQuery != "" {
		if !matchesText(rec, specs, f.TextQuery) {
			return false
		}
	}
	return true
}

// matchesDateRange compares canonical date values inclusively on both
// bounds. Records with no valid date are excluded.
func matchesDateRange(rec *types.FormattedRecord, specs []types.FieldSpec, start, end *time.Time) bool {
	for _, spec := range specs {
		if spec.Type != types.FieldDate {
			continue
		}
		fv := rec.Fields[spec.Name]
		if !fv.DateValid {
			continue
		}
		if start != nil && fv.Date.Before(*start) {
			continue
		}
		if end != nil && fv.Date.After(*end) {
			continue
		}
		return true
	}
	return false
}

// matchesValueRange compares canonical numeric values inclusively on both
// bounds. Records with no valid number are excluded.
func matchesValueRange(rec *types.FormattedRecord, specs []types.FieldSpec, min, max *decimal.Decimal) bool {
	for _, spec := range specs {
		if spec.Type != types.FieldCurrency {
			continue
		}
		fv := rec.Fields[spec.Name]
		if !fv.NumberValid {
			continue
		}
		if min != nil && fv.Number.LessThan(*min) {
			continue
		}
		if max != nil && fv.Number.GreaterThan(*max) {
			continue
		}
		return true
	}
	return false
}

// matchesText performs a case-insensitive substring match across all
// display fields of a record; one matching field qualifies the record.
func matchesText(rec *types.FormattedRecord, specs []types.FieldSpec, query string) bool {
	q := strings.ToLower(query)
	for _, spec := range specs {
		fv := rec.Fields[spec.Name]
		if !fv.Present {
			continue
		}
		if strings.Contains(strings.ToLower(fv.Display), q) {
			return true
		}
	}
	return false
}
