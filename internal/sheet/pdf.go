package sheet

import (
	"bytes"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"ledgerrecon/internal"
)

var reColumnGap = regexp.MustCompile(`\s{2,}|\t`)

// ReadPDF turns a printed report into rows: one row per text line, cells
// split on runs of two or more spaces.
func ReadPDF(content []byte) (internal.RawGrid, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	var grid internal.RawGrid
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
			if row := splitColumns(line); len(row) > 0 {
				grid = append(grid, row)
			}
		}
	}
	return grid, nil
}

func splitColumns(line string) []any {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	parts := reColumnGap.Split(line, -1)
	cells := make([]any, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			cells = append(cells, part)
		}
	}
	return cells
}
