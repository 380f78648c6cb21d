package sheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ledgerrecon/internal"
)

// ReadXLSX returns one worksheet with typed cells: numbers (and date serials)
// as float64, booleans as bool, ISO date cells as time.Time, text as string.
func ReadXLSX(r io.Reader, sheetName string) (internal.RawGrid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, internal.ErrEmptyGrid
	}
	sheet := sheets[0]
	if sheetName != "" {
		if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
			return nil, fmt.Errorf("sheet %q not found (have %s)", sheetName, strings.Join(sheets, ", "))
		}
		sheet = sheetName
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	grid := make(internal.RawGrid, 0, len(rows))
	for r, row := range rows {
		cells := make([]any, len(row))
		for c, value := range row {
			if value == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				cells[c] = value
				continue
			}
			typ, err := f.GetCellType(sheet, ref)
			if err != nil {
				cells[c] = value
				continue
			}
			cells[c] = typedCell(typ, value)
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

func typedCell(typ excelize.CellType, value string) any {
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case excelize.CellTypeBool:
		return value == "1" || strings.EqualFold(value, "true")
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, value); err == nil {
				return t
			}
		}
	}
	return value
}
