// =============================================================================
// XML to XLSX Converter - XML Parser and Field Mapper
// =============================================================================
//
// This module turns one raw XML document into a flat Record using the
// declarative field-mapping table. For each FieldSpec it probes the candidate
// paths in declaration order and takes the first one that resolves to a
// non-empty leaf (element text or attribute).
//
// PATH GRAMMAR:
//   A path is a dot-separated sequence of element names, optionally ending
//   in "@attr" to read an attribute. NFe files arrive under different
//   envelopes (<NFe>, <nfeProc>, proprietary wrappers), so the first segment
//   is anchored at the first matching element anywhere in the tree, in
//   document order; descent is strict from there. A missing intermediate
//   node short-circuits to absent, never to an error.
//
// FAILURE MODEL:
//   Malformed or oversized input degrades that single document to a FAILED
//   record with a reason attached. An unresolved field degrades to the
//   absent-marker and marks the record PARTIAL. Nothing here aborts a batch.
//
// =============================================================================

package xmlparser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/logging"
	"github.com/ginjaninja78/XML-to-XLSX-conversion/internal/types"
)

// =============================================================================
// RAW DOCUMENT
// =============================================================================

// RawDocument is a parsed XML tree plus its source identifier. It is
// immutable once parsed.
type RawDocument struct {
	// Source is the originating file name.
	Source string

	root *etree.Element
}

// Parse builds a RawDocument from raw file bytes.
func Parse(source string, content []byte) (*RawDocument, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("malformed XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("malformed XML: no root element")
	}

	return &RawDocument{Source: source, root: root}, nil
}

// =============================================================================
// NORMALIZER
// =============================================================================

// Normalizer converts raw file bytes into Records according to a field
// mapping. It is stateless across documents.
type Normalizer struct {
	specs   []types.FieldSpec
	maxSize int64
	log     *logrus.Logger
}

// New creates a Normalizer from the application configuration.
func New(cfg *config.Config, log *logrus.Logger) *Normalizer {
	if log == nil {
		log = logging.Discard()
	}
	return &Normalizer{
		specs:   cfg.Fields,
		maxSize: cfg.MaxFileSizeBytes(),
		log:     log,
	}
}

// Normalize turns one document into a Record. It never returns an error:
// unparsable input produces a FAILED record with the reason attached, so a
// bad document cannot abort the batch.
func (n *Normalizer) Normalize(filename string, content []byte) types.Record {
	if int64(len(content)) > n.maxSize {
		n.log.WithFields(logrus.Fields{
			"file": filename,
			"size": len(content),
		}).Warn("Document rejected: too large")
		return types.Record{
			Source:        filename,
			Status:        types.StatusFailed,
			FailureReason: "too large",
		}
	}

	doc, err := Parse(filename, content)
	if err != nil {
		n.log.WithField("file", filename).Warnf("Document rejected: %v", err)
		return types.Record{
			Source:        filename,
			Status:        types.StatusFailed,
			FailureReason: err.Error(),
		}
	}

	return n.Extract(doc)
}

// Extract probes every declared field against an already-parsed document.
// The record is OK when all fields resolve, PARTIAL otherwise.
func (n *Normalizer) Extract(doc *RawDocument) types.Record {
	rec := types.Record{
		Source: doc.Source,
		Status: types.StatusOK,
		Values: make(map[string]string, len(n.specs)),
	}

	for _, spec := range n.specs {
		value, ok := doc.Resolve(spec)
		if !ok {
			rec.Missing = append(rec.Missing, spec.Name)
			continue
		}
		rec.Values[spec.Name] = value
	}

	if len(rec.Missing) > 0 {
		rec.Status = types.StatusPartial
		n.log.WithFields(logrus.Fields{
			"file":    doc.Source,
			"missing": rec.Missing,
		}).Debug("Document extracted partially")
	}

	return rec
}

// =============================================================================
// PATH RESOLUTION
// =============================================================================

// Resolve probes the spec's candidate paths in declaration order and returns
// the first non-empty value, or collects every occurrence of the first
// resolving path when the spec is collect-all.
func (d *RawDocument) Resolve(spec types.FieldSpec) (string, bool) {
	for _, path := range spec.Paths {
		values := d.resolveAll(path)
		if len(values) == 0 {
			continue
		}
		if spec.Collect {
			sep := spec.Separator
			if sep == "" {
				sep = "; "
			}
			return strings.Join(values, sep), true
		}
		return values[0], true
	}
	return "", false
}

// resolveAll returns every non-empty leaf value the path resolves to, in
// document order.
func (d *RawDocument) resolveAll(path string) []string {
	segs := strings.Split(path, ".")
	if len(segs) == 0 || segs[0] == "" || strings.HasPrefix(segs[0], "@") {
		return nil
	}

	var values []string
	for _, anchor := range findByTag(d.root, segs[0]) {
		descend(anchor, segs[1:], &values)
	}
	return values
}

// findByTag returns all elements in the subtree (root included) whose local
// tag matches name, in document order. Namespace prefixes are ignored: NFe
// producers disagree on them.
func findByTag(el *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	if el.Tag == name {
		out = append(out, el)
	}
	for _, child := range el.ChildElements() {
		out = append(out, findByTag(child, name)...)
	}
	return out
}

// descend walks the remaining path segments strictly from el, appending
// every non-empty leaf value reached.
func descend(el *etree.Element, segs []string, values *[]string) {
	if len(segs) == 0 {
		if text := strings.TrimSpace(el.Text()); text != "" {
			*values = append(*values, text)
		}
		return
	}

	seg := segs[0]
	if strings.HasPrefix(seg, "@") {
		// Attribute segments are terminal.
		if len(segs) > 1 {
			return
		}
		name := strings.TrimPrefix(seg, "@")
		for _, attr := range el.Attr {
			if attr.Key == name {
				if v := strings.TrimSpace(attr.Value); v != "" {
					*values = append(*values, v)
				}
				return
			}
		}
		return
	}

	for _, child := range el.ChildElements() {
		if child.Tag == seg {
			descend(child, segs[1:], values)
		}
	}
}

// =============================================================================
// PATH INTROSPECTION
// =============================================================================

// AvailablePaths lists every distinct element path in a sample document,
// dot-joined and sorted. Useful when building a mapping for a new XML
// dialect.
func AvailablePaths(content []byte) ([]string, error) {
	doc, err := Parse("sample", content)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	collectPaths(doc.root, "", seen)

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func collectPaths(el *etree.Element, prefix string, seen map[string]bool) {
	path := el.Tag
	if prefix != "" {
		path = prefix + "." + el.Tag
	}
	seen[path] = true

	for _, attr := range el.Attr {
		seen[path+".@"+attr.Key] = true
	}
	for _, child := range el.ChildElements() {
		collectPaths(child, path, seen)
	}
}
