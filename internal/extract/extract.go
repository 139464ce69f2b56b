// Package extract provides text extraction from knowledge-base documents.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupported is returned for file extensions the extractor does not
// handle. Callers skip such files rather than failing an indexing run.
var ErrUnsupported = errors.New("unsupported file type")

// Source type labels stored in chunk metadata.
const (
	SourceTypePDF  = "PDF"
	SourceTypeText = "Text"
)

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content together with
// a source type label. Plain text files (.txt, .md) are returned as-is,
// UTF-8 validated. PDF content is extracted page by page. Other extensions
// return ErrUnsupported.
func (e *Extractor) Extract(path string) (text, sourceType string, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("read file: %w", err)
		}
		text, err := extractPDF(content)
		if err != nil {
			return "", "", err
		}
		return text, SourceTypePDF, nil
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("read file: %w", err)
		}
		return extractPlain(content), SourceTypeText, nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

// extractPlain returns content as a string, replacing invalid UTF-8
// sequences with the replacement character.
func extractPlain(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�")
	}
	return string(content)
}
