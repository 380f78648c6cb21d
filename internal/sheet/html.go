package sheet

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ledgerrecon/internal"
)

var reSpaces = regexp.MustCompile(`\s+`)

// ReadHTML reads the largest table of an HTML export (the ".xls" files
// produced by web reporting tools).
func ReadHTML(r io.Reader) (internal.RawGrid, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var best *goquery.Selection
	bestRows := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		n := table.Find("tr").Length()
		if n > bestRows {
			best, bestRows = table, n
		}
	})
	if best == nil {
		return nil, nil
	}

	var grid internal.RawGrid
	best.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := []any{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			text := strings.TrimSpace(reSpaces.ReplaceAllString(strings.ReplaceAll(cell.Text(), "\u00A0", " "), " "))
			if text == "" {
				cells = append(cells, nil)
				return
			}
			cells = append(cells, text)
		})
		grid = append(grid, cells)
	})
	return grid, nil
}
