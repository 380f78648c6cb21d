package pipeline

import (
	"testing"

	"ledgerrecon/internal"
	"ledgerrecon/internal/rules"
)

func TestLocateHeaderSkipsTitleRows(t *testing.T) {
	grid := internal.RawGrid{
		{"EKONOMODO SAS"},
		{nil, nil},
		{"Informe generado", "2025"},
		{"NRO", "FECHA", "GRAVADAS IVA", "NOMBRE"},
		{"1001", "02/01/2025", "1.000", "Cliente"},
	}
	row, found := LocateHeader(grid, rules.DefaultHeaderKeywords(), DefaultHeaderDepth)
	if !found || row != 3 {
		t.Fatalf("row=%d found=%v", row, found)
	}
}

func TestLocateHeaderRespectsDepth(t *testing.T) {
	grid := internal.RawGrid{{"a"}, {"b"}, {"c"}, {"REFERENCIA", "FECHA"}}
	if _, found := LocateHeader(grid, rules.DefaultHeaderKeywords(), 3); found {
		t.Fatal("header beyond depth must not be found")
	}
	row, found := LocateHeader(grid, rules.DefaultHeaderKeywords(), 0)
	if !found || row != 3 {
		t.Fatalf("default depth: row=%d found=%v", row, found)
	}
}

func TestLocateHeaderFallback(t *testing.T) {
	row, found := LocateHeader(internal.RawGrid{{"x", "y"}, {"1", "2"}}, rules.DefaultHeaderKeywords(), 10)
	if found || row != 0 {
		t.Fatalf("row=%d found=%v", row, found)
	}
}

func TestApplyHeader(t *testing.T) {
	grid := internal.RawGrid{
		{"NRO", nil, "VALOR"},
		{"1001", "x", 10.0, "extra"},
		{nil, "  "},
		{"1002"},
	}
	table := ApplyHeader(grid, 0)
	want := []string{"NRO", "UNNAMED: 1", "VALOR", "UNNAMED: 3"}
	if len(table.Columns) != len(want) {
		t.Fatalf("columns %v", table.Columns)
	}
	for i := range want {
		if table.Columns[i] != want[i] {
			t.Fatalf("column %d = %q, want %q", i, table.Columns[i], want[i])
		}
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows %v", table.Rows)
	}
	if len(table.Rows[1]) != 4 || table.Rows[1][0] != "1002" || table.Rows[1][3] != nil {
		t.Fatalf("padded row %v", table.Rows[1])
	}
}
