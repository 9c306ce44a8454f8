package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVParser flattens CSV files. The first row is treated as headers and
// each data row becomes a line of header-labeled cells.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	headers := records[0]
	var lines []string
	for _, row := range records[1:] {
		var cells []string
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if j < len(headers) && strings.TrimSpace(headers[j]) != "" {
				cells = append(cells, strings.TrimSpace(headers[j])+": "+cell)
			} else {
				cells = append(cells, cell)
			}
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, ", "))
		}
	}

	return strings.Join(lines, "\n\n"), nil
}
