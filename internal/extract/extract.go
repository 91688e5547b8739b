// Package extract turns uploaded files into plain text ready for segmentation.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoText          = errors.New("no text could be extracted")
)

// Kind is the source format, derived from the file extension.
type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindPDF      Kind = "pdf"
)

var extensions = map[string]Kind{
	".txt":      KindText,
	".text":     KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".pdf":      KindPDF,
}

// KindOf returns the format for filename, or ErrUnsupportedType.
func KindOf(filename string) (Kind, error) {
	kind, ok := extensions[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
	return kind, nil
}

// Supported reports whether filename has an extension Extract understands.
func Supported(filename string) bool {
	_, err := KindOf(filename)
	return err == nil
}

// Result is the extracted content of one file.
type Result struct {
	Filename string
	Kind     Kind
	Title    string // First heading for Markdown, empty otherwise
	Text     string
}

// Extractor converts supported files to text. Safe for concurrent use.
type Extractor struct {
	markdown *markdownExtractor
}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{markdown: newMarkdownExtractor()}
}

// Extract dispatches on the file extension and returns the text content.
// A file with no non-whitespace text yields ErrNoText.
func (e *Extractor) Extract(filename string, data []byte) (*Result, error) {
	kind, err := KindOf(filename)
	if err != nil {
		return nil, err
	}

	res := &Result{Filename: filename, Kind: kind}
	switch kind {
	case KindText:
		res.Text = plainText(data)
	case KindMarkdown:
		res.Text, res.Title, err = e.markdown.extract(data)
	case KindPDF:
		res.Text, err = pdfText(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", filename, err)
	}

	if strings.TrimSpace(res.Text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoText, filename)
	}
	return res, nil
}

// plainText drops a UTF-8 byte order mark and replaces invalid sequences.
func plainText(data []byte) string {
	s := strings.TrimPrefix(string(data), "\ufeff")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return s
}
