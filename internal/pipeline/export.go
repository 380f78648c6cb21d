package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"ledgerrecon/internal"
	"ledgerrecon/internal/util"
)

var transactionHeaders = []string{
	"period", "reference", "description", "date", "amount", "quantity",
	"counterparty_code", "commerce", "commerce_source", "seller_code", "seller",
	"customer_name", "channel", "city", "department", "join_key", "cross_ref", "ekm",
}

func transactionRecord(t internal.Transaction) []any {
	var date any = ""
	if t.Date != nil {
		date = *t.Date
	}
	return []any{
		t.Period, t.Reference, t.Description, date, t.Amount.InexactFloat64(), t.Quantity.InexactFloat64(),
		t.CounterpartyCode, t.Commerce, string(t.CommerceSource), t.SellerCode, t.Seller,
		t.CustomerName, t.Channel, t.City, t.Department, t.JoinKey, t.CrossRef, IsProductLine(t),
	}
}

func ExportTransactionsXLSX(rows []internal.Transaction, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return err
	}
	writeHeaders(f, sheet, transactionHeaders)

	for i, t := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		for c, v := range transactionRecord(t) {
			set(c+1, v)
		}
		if t.Date != nil {
			cell, _ := excelize.CoordinatesToCellName(4, r)
			_ = f.SetCellStyle(sheet, cell, cell, dateStyle)
		}
	}
	return saveWorkbook(f, outputPath)
}

// ExportTransactionsCSV writes the reconciled table as CSV in enc (utf-8,
// latin1 or windows1252). Amounts keep full decimal precision.
func ExportTransactionsCSV(rows []internal.Transaction, outputPath, enc string) error {
	return writeCSV(outputPath, enc, func(w *csv.Writer) error {
		if err := w.Write(transactionHeaders); err != nil {
			return err
		}
		for _, t := range rows {
			date := ""
			if t.Date != nil {
				date = t.Date.Format("2006-01-02")
			}
			record := []string{
				t.Period, t.Reference, t.Description, date, t.Amount.String(), t.Quantity.String(),
				t.CounterpartyCode, t.Commerce, string(t.CommerceSource), t.SellerCode, t.Seller,
				t.CustomerName, t.Channel, t.City, t.Department, t.JoinKey, t.CrossRef,
				strconv.FormatBool(IsProductLine(t)),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

func ExportConcentrationCSV(report ConcentrationReport, outputPath string) error {
	return writeCSV(outputPath, "", func(w *csv.Writer) error {
		if err := w.Write([]string{"rank", "entity", "value", "cumulative", "cumulative_share", "tier"}); err != nil {
			return err
		}
		for i, e := range report.Entries {
			record := []string{
				strconv.Itoa(i + 1),
				e.Entity,
				formatFloat(e.Value),
				formatFloat(e.Cumulative),
				strconv.FormatFloat(e.CumulativeShare, 'f', 2, 64),
				string(e.Tier),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return w.Write([]string{"", "HHI", strconv.FormatFloat(report.HHI, 'f', 2, 64), "", "", ""})
	})
}

// ExportGridCSV dumps a raw grid as read from its source, one CSV record per
// row.
func ExportGridCSV(grid internal.RawGrid, outputPath, enc string) error {
	return writeCSV(outputPath, enc, func(w *csv.Writer) error {
		for _, row := range grid {
			record := make([]string, len(row))
			for i, v := range row {
				record[i] = util.CellString(v)
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

func ExportAssignmentsXLSX(assignments []Assignment, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	writeHeaders(f, sheet, []string{"title", "pass", "code", "name", "score", "accepted", "explicit"})

	for i, a := range assignments {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, a.Title)
		set(2, a.Pass)
		set(3, a.Match.Code)
		set(4, a.Match.Name)
		set(5, a.Match.Score)
		set(6, a.Match.Accepted)
		set(7, a.Explicit)
	}
	return saveWorkbook(f, outputPath)
}

func writeHeaders(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func saveWorkbook(f *excelize.File, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeCSV(outputPath, enc string, write func(*csv.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	var out io.WriteCloser = nopWriteCloser{file}
	switch strings.ToLower(strings.ReplaceAll(enc, "-", "")) {
	case "", "utf8":
	case "latin1", "iso88591":
		out = transform.NewWriter(file, encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()))
	case "windows1252", "cp1252":
		out = transform.NewWriter(file, encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()))
	default:
		return fmt.Errorf("unsupported csv encoding: %s", enc)
	}

	w := csv.NewWriter(out)
	if err := write(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
