// =============================================================================
// XML to XLSX Converter - Batch Aggregator
// =============================================================================
//
// This module combines per-document normalization results into a single
// Dataset plus an outcome report. Documents are processed sequentially, in
// input order, which keeps record order deterministic and makes the
// first-occurrence guarantee of deduplication trivial to uphold.
//
// FAILURE MODEL:
//   - Batch count above the configured maximum fails the whole call before
//     any document is processed (precondition violation, not a per-document
//     fault).
//   - Everything scoped to a single document degrades to a FAILED outcome
//     in the report; the batch continues.
//
// DEDUPLICATION:
//   When enabled, a key is computed per record from the configured field
//   subset (or the full row when no subset is declared). The first
//   occurrence in input order is kept; later matches are dropped and
//   counted. Source file names never participate in the key, so identical
//   documents under different names deduplicate.
//
// =============================================================================

package aggregator

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/logging"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/types"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/xmlparser"
)

// ErrBatchTooLarge is returned when more documents are submitted than the
// configured maximum allows. Nothing is processed in that case.
var ErrBatchTooLarge = fmt.Errorf("batch count exceeded")

// Document is one input to a batch: a file name and its raw bytes.
type Document struct {
	Name    string
	Content []byte
}

// Key separators for dedup keys. The unit separator keeps "a"+"bc" distinct
// from "ab"+"c"; the substitute byte marks an absent field as distinct from
// an empty one.
const (
	keySep    = "\x1f"
	keyAbsent = "\x1a"
)

// NormalizeBatch runs the full normalization pipeline over a batch of
// documents: per-document extraction, stable-order aggregation and optional
// deduplication. It returns the Dataset of parsed records (input order
// preserved) and the per-document outcome report.
//
// The only batch-level failure is a count precondition violation; every
// per-document fault is recorded in the report instead.
func NormalizeBatch(docs []Document, cfg *config.Config, log *logrus.Logger) (*types.Dataset, *types.Report, error) {
	if log == nil {
		log = logging.Discard()
	}

	if len(docs) > cfg.MaxBatchCount {
		return nil, nil, fmt.Errorf("%w: %d documents submitted, maximum is %d",
			ErrBatchTooLarge, len(docs), cfg.MaxBatchCount)
	}

	normalizer := xmlparser.New(cfg, log)
	dataset := &types.Dataset{Specs: cfg.Fields}
	report := &types.Report{}
	seen := make(map[string]bool)

	for _, doc := range docs {
		rec := normalizer.Normalize(doc.Name, doc.Content)

		outcome := types.DocumentOutcome{
			Source:  rec.Source,
			Status:  rec.Status,
			Reason:  rec.FailureReason,
			Missing: rec.Missing,
		}

		// FAILED records carry no fields and never enter the dataset.
		if rec.Status == types.StatusFailed {
			report.Add(outcome)
			continue
		}

		if cfg.Dedup.Enabled {
			key := dedupKey(&rec, cfg)
			if seen[key] {
				outcome.Duplicate = true
				report.Add(outcome)
				log.WithField("file", rec.Source).Debug("Duplicate record dropped")
				continue
			}
			seen[key] = true
		}

		dataset.Records = append(dataset.Records, rec)
		report.Add(outcome)
	}

	log.WithFields(logrus.Fields{
		"documents":  len(docs),
		"records":    len(dataset.Records),
		"failed":     report.FailedCount,
		"duplicates": report.DuplicatesDropped,
	}).Info("Batch normalized")

	return dataset, report, nil
}

// dedupKey builds the deduplication key for a record from the configured
// field subset, falling back to the full row.
func dedupKey(rec *types.Record, cfg *config.Config) string {
	fields := cfg.Dedup.KeyFields
	if len(fields) == 0 {
		fields = make([]string, len(cfg.Fields))
		for i, spec := range cfg.Fields {
			fields[i] = spec.Name
		}
	}

	parts := make([]string, len(fields))
	for i, name := range fields {
		if v, ok := rec.Values[name]; ok {
			parts[i] = v
		} else {
			parts[i] = keyAbsent
		}
	}
	return strings.Join(parts, keySep)
}
