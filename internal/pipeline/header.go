package pipeline

import (
	"fmt"
	"strings"

	"ledgerrecon/internal"
	"ledgerrecon/internal/util"
)

const DefaultHeaderDepth = 10

// LocateHeader returns the first of the leading depth rows whose joined,
// upper-cased cell text contains any keyword. found is false when no row
// qualifies; callers then use row 0.
func LocateHeader(grid internal.RawGrid, keywords []string, depth int) (int, bool) {
	if depth <= 0 {
		depth = DefaultHeaderDepth
	}
	upper := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			upper = append(upper, k)
		}
	}

	for i := 0; i < len(grid) && i < depth; i++ {
		parts := make([]string, 0, len(grid[i]))
		for _, cell := range grid[i] {
			if cell == nil {
				continue
			}
			parts = append(parts, strings.ToUpper(util.CellString(cell)))
		}
		text := strings.Join(parts, " ")
		for _, k := range upper {
			if strings.Contains(text, k) {
				return i, true
			}
		}
	}
	return 0, false
}

// ApplyHeader builds a table from the grid using row as the header. Blank
// header cells are named "UNNAMED: n"; rows with no values are skipped.
func ApplyHeader(grid internal.RawGrid, row int) *internal.Table {
	if row < 0 || row >= len(grid) {
		return &internal.Table{}
	}
	width := 0
	for _, r := range grid[row:] {
		if len(r) > width {
			width = len(r)
		}
	}

	table := &internal.Table{Columns: make([]string, width)}
	for i := 0; i < width; i++ {
		name := ""
		if i < len(grid[row]) {
			name = util.CellString(grid[row][i])
		}
		if name == "" {
			name = fmt.Sprintf("UNNAMED: %d", i)
		}
		table.Columns[i] = name
	}

	for _, r := range grid[row+1:] {
		if isEmptyRow(r) {
			continue
		}
		cells := make([]any, width)
		copy(cells, r)
		table.Rows = append(table.Rows, cells)
	}
	return table
}

func isEmptyRow(row []any) bool {
	for _, cell := range row {
		if cell == nil {
			continue
		}
		if s, ok := cell.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}
