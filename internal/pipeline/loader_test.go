package pipeline

import (
	"testing"
	"time"

	"ledgerrecon/internal"
	"ledgerrecon/internal/rules"
	"ledgerrecon/internal/util"
)

func ledgerTable(t *testing.T, grid internal.RawGrid) *internal.Table {
	t.Helper()
	row, _ := LocateHeader(grid, rules.DefaultHeaderKeywords(), DefaultHeaderDepth)
	table, _, err := NormalizeColumns(ApplyHeader(grid, row), rules.DefaultColumnRules(), LedgerDataset.Required)
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestLoadTransactionsLedger(t *testing.T) {
	grid := internal.RawGrid{
		{"Informe"},
		{"NRO", "FECHA", "GRAVADAS IVA", "NOMBRE", "FECHA DESPACHO"},
		{"1001", "02/01/2025", "1.234,56", "SODIMAC COLOMBIA", "05/01/2025"},
		{"1002", "03/01/2025", "$ 999,00", "Juan", nil},
		{"1003", nil, "  80", "X", nil},
		{"1004", "04/01/2025", "abc", "Y", nil},
	}
	rows, stats := LoadTransactions(ledgerTable(t, grid), LoadOptions{
		Locale:        util.LocaleLatAm,
		Period:        "2025",
		DropIfMissing: LedgerDataset.DropIfMissing,
	})

	if stats.Read != 4 || stats.Kept != 3 || stats.Dropped["missing_date"] != 1 {
		t.Fatalf("stats %+v", stats)
	}
	if stats.ZeroFilled[internal.FieldAmount] != 1 {
		t.Fatalf("zero filled %v", stats.ZeroFilled)
	}

	want := []string{"1234.56", "999", "0"}
	for i, w := range want {
		if rows[i].Amount.String() != w {
			t.Fatalf("amount %d = %s, want %s", i, rows[i].Amount, w)
		}
	}
	if rows[0].IsZeroFilled(internal.FieldAmount) || !rows[2].IsZeroFilled(internal.FieldAmount) {
		t.Fatalf("zero-filled marks %v %v", rows[0].ZeroFilled, rows[2].ZeroFilled)
	}
	if !rows[0].IsZeroFilled(internal.FieldQuantity) {
		t.Fatal("absent quantity column must be marked zero-filled")
	}
	if rows[0].JoinKey != "1001" || rows[0].CustomerName != "SODIMAC COLOMBIA" || rows[0].Period != "2025" {
		t.Fatalf("row 0 %+v", rows[0])
	}
	if !rows[0].Date.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date %v", rows[0].Date)
	}
	if rows[0].Attributes["FECHA DESPACHO"] != "2025-01-05" {
		t.Fatalf("attributes %v", rows[0].Attributes)
	}
	if _, ok := rows[1].Attributes["FECHA DESPACHO"]; ok {
		t.Fatal("blank attribute must be omitted")
	}
}

func TestLoadTransactionsKeepsRowsWithoutDropFields(t *testing.T) {
	table := &internal.Table{
		Columns: []string{"reference", "amount"},
		Rows:    [][]any{{"", "10"}, {"EKM-1", 5.5}},
	}
	rows, stats := LoadTransactions(table, LoadOptions{})
	if len(rows) != 2 || stats.DroppedTotal() != 0 {
		t.Fatalf("rows=%d stats=%+v", len(rows), stats)
	}
	if rows[1].Amount.String() != "5.5" {
		t.Fatalf("typed amount %s", rows[1].Amount)
	}
}

func TestDefaultLoadOptionsDropMissingReference(t *testing.T) {
	table := &internal.Table{
		Columns: []string{"reference", "date"},
		Rows:    [][]any{{"", "02/01/2025"}, {"EKM-1", "02/01/2025"}},
	}
	rows, stats := LoadTransactions(table, DefaultLoadOptions())
	if len(rows) != 1 || stats.Dropped["missing_reference"] != 1 {
		t.Fatalf("rows=%d stats=%+v", len(rows), stats)
	}
}
