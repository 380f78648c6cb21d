package catalog

import (
	"fmt"
	"strings"

	"ledgerrecon/internal"
	"ledgerrecon/internal/util"
)

const headerSearchRows = 10

// FromGrid reads code/name pairs from a sheet. The header row is the first
// of the leading rows naming either column; columns are found by exact name,
// then by substring, then the first two columns are used.
func FromGrid(grid internal.RawGrid, keyColumn, nameColumn string) ([]internal.CatalogEntry, error) {
	if len(grid) == 0 {
		return nil, internal.ErrEmptyGrid
	}
	keyColumn = util.NormalizeColumn(keyColumn)
	nameColumn = util.NormalizeColumn(nameColumn)

	headerRow := 0
	for i := 0; i < len(grid) && i < headerSearchRows; i++ {
		if findColumn(headers(grid[i]), keyColumn, -1) >= 0 || findColumn(headers(grid[i]), nameColumn, -1) >= 0 {
			headerRow = i
			break
		}
	}

	cols := headers(grid[headerRow])
	keyIdx := findColumn(cols, keyColumn, -1)
	nameIdx := findColumn(cols, nameColumn, keyIdx)
	if keyIdx < 0 && nameIdx < 0 {
		if len(cols) < 2 {
			return nil, fmt.Errorf("catalog needs %s and %s columns, got %v", keyColumn, nameColumn, cols)
		}
		keyIdx, nameIdx = 0, 1
	} else if keyIdx < 0 || nameIdx < 0 {
		return nil, fmt.Errorf("catalog needs %s and %s columns, got %v", keyColumn, nameColumn, cols)
	}

	out := make([]internal.CatalogEntry, 0, len(grid)-headerRow-1)
	for _, row := range grid[headerRow+1:] {
		code := cell(row, keyIdx)
		name := cell(row, nameIdx)
		if code == "" || util.IsBlankText(name) {
			continue
		}
		out = append(out, internal.CatalogEntry{Code: code, Name: name})
	}
	return out, nil
}

func headers(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = util.NormalizeColumn(util.CellString(v))
	}
	return out
}

func findColumn(cols []string, want string, skip int) int {
	for i, c := range cols {
		if i != skip && c == want {
			return i
		}
	}
	for i, c := range cols {
		if i != skip && c != "" && strings.Contains(c, want) {
			return i
		}
	}
	return -1
}

func cell(row []any, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return util.CellString(row[idx])
}
