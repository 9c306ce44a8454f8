// Package parser converts uploaded documents into plain text suitable for
// segmentation. Structural elements such as headings and page breaks are
// rendered as marker lines so downstream boundary detection can use them.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Parser converts raw document bytes into plain text.
type Parser interface {
	Parse(r io.Reader, filename string) (string, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// headingLine renders a heading as a markdown-style marker line, which the
// segmenter recognizes as a structural boundary.
func headingLine(level int, title string) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + title
}
