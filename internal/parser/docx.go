package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading-styled paragraphs become marker
// lines and table rows are flattened cell by cell.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (string, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "compligest-docx-*.docx")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return "", fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var blocks []string
	for _, item := range doc.Document.Body.Items {
		switch el := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(el)
			if text == "" {
				continue
			}
			if level := docxHeadingLevel(el); level > 0 {
				blocks = append(blocks, headingLine(level, text))
			} else {
				blocks = append(blocks, text)
			}
		case *docx.Table:
			if t := docxTableText(el); t != "" {
				blocks = append(blocks, t)
			}
		}
	}

	return strings.Join(blocks, "\n\n"), nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch style[len("heading"):] {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func docxTableText(table *docx.Table) string {
	var rows []string
	for _, row := range table.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var buf strings.Builder
			for _, para := range cell.Paragraphs {
				if t := docxParagraphText(para); t != "" {
					if buf.Len() > 0 {
						buf.WriteString(" ")
					}
					buf.WriteString(t)
				}
			}
			if buf.Len() > 0 {
				cells = append(cells, buf.String())
			}
		}
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	}
	return strings.Join(rows, "\n")
}
