// =============================================================================
// XML to XLSX Converter - File Manager Utility
// =============================================================================
//
// This module provides the file operations the CLI needs around the
// in-memory pipeline:
//   - Input discovery (XML files and ZIP archives in the input directory)
//   - ZIP extraction into (name, bytes) document pairs
//   - Extension and size validation before a batch is assembled
//   - Archival of processed inputs
//   - File naming utilities
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after successful processing
//   - Failed files remain in their original location
//
// =============================================================================

package utils

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around the pipeline.
type FileManager struct {
	// InputDir is the directory scanned for input files.
	InputDir string

	// OutputDir is the directory where workbooks are written.
	OutputDir string

	// InputArchiveDir is the directory for archived input files.
	InputArchiveDir string

	// MaxFileSize is the per-file size limit in bytes, applied to loose
	// files and to entries inside ZIP archives alike.
	MaxFileSize int64
}

// NewFileManager creates a FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir string, maxFileSize int64) *FileManager {
	return &FileManager{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
		MaxFileSize:     maxFileSize,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.InputArchiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// allowedExtensions are the input types accepted from the input directory.
var allowedExtensions = map[string]bool{
	".xml": true,
	".zip": true,
}

// ValidExtension reports whether the file name carries an accepted
// extension.
func ValidExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// DiscoverInputFiles scans the input directory (non-recursively) for XML
// and ZIP files, sorted by name for a deterministic batch order.
func (fm *FileManager) DiscoverInputFiles() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ValidExtension(entry.Name()) {
			files = append(files, filepath.Join(fm.InputDir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// DOCUMENT LOADING
// =============================================================================

// NamedContent is one loaded input document: a file name plus raw bytes.
type NamedContent struct {
	Name    string
	Content []byte
}

// LoadDocuments reads the given paths into memory, expanding ZIP archives
// into their contained XML files. Per-file problems (unreadable file,
// corrupt archive, oversized entry) are collected as error strings so one
// bad input does not abort the load.
func (fm *FileManager) LoadDocuments(paths []string) ([]NamedContent, []string) {
	var docs []NamedContent
	var errs []string

	for _, path := range paths {
		name := filepath.Base(path)

		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if fm.MaxFileSize > 0 && info.Size() > fm.MaxFileSize {
			errs = append(errs, fmt.Sprintf("%s: file too large (%d bytes)", name, info.Size()))
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		if strings.EqualFold(filepath.Ext(name), ".zip") {
			extracted, zipErrs := fm.ExtractZip(name, content)
			docs = append(docs, extracted...)
			errs = append(errs, zipErrs...)
			continue
		}

		docs = append(docs, NamedContent{Name: name, Content: content})
	}

	return docs, errs
}

// ExtractZip expands the XML entries of a ZIP archive into document pairs.
// Non-XML entries are skipped; oversized or unreadable entries are reported
// without failing the rest of the archive.
func (fm *FileManager) ExtractZip(archiveName string, content []byte) ([]NamedContent, []string) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, []string{fmt.Sprintf("%s: corrupt ZIP archive: %v", archiveName, err)}
	}

	var docs []NamedContent
	var errs []string

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(entry.Name)
		if !strings.EqualFold(filepath.Ext(name), ".xml") {
			continue
		}
		if fm.MaxFileSize > 0 && entry.UncompressedSize64 > uint64(fm.MaxFileSize) {
			errs = append(errs, fmt.Sprintf("%s/%s: entry too large", archiveName, name))
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s/%s: %v", archiveName, name, err))
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s/%s: %v", archiveName, name, err))
			continue
		}

		docs = append(docs, NamedContent{Name: name, Content: data})
	}

	return docs, errs
}

// =============================================================================
// ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a processed input file to the input archive.
// A name collision in the archive gets a numeric suffix instead of
// overwriting the earlier file.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if err := os.MkdirAll(fm.InputArchiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	base := filepath.Base(filePath)
	archivePath := filepath.Join(fm.InputArchiveDir, base)

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; FileExists(archivePath); i++ {
		archivePath = filepath.Join(fm.InputArchiveDir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive input file: %w", err)
	}
	return archivePath, nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

var unsafeFilenameChars = regexp.MustCompile(`[^\w\s\-.]`)
var filenameSpaces = regexp.MustCompile(`\s+`)

// CleanFilename strips characters that are unsafe in file names and
// replaces whitespace runs with underscores.
func CleanFilename(filename string) string {
	clean := unsafeFilenameChars.ReplaceAllString(filename, "")
	return filenameSpaces.ReplaceAllString(clean, "_")
}

// FileExists reports whether the path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
