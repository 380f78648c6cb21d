package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"ledgerrecon/internal"
	"ledgerrecon/internal/cache"
)

type countingDownloader struct {
	calls int
	data  []byte
	url   string
}

func (d *countingDownloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	d.calls++
	d.url = rawURL
	return d.data, nil
}

type fakeValues struct {
	id, rng string
}

func (f *fakeValues) Values(ctx context.Context, id, rng string) (internal.RawGrid, error) {
	f.id, f.rng = id, rng
	return internal.RawGrid{{"Z", "NOMBRE"}, {"Z-001", "Homecenter"}}, nil
}

func xlsxBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", "NRO")
	_ = f.SetCellValue(sheet, "B1", "VALOR")
	_ = f.SetCellValue(sheet, "A2", "A-1")
	_ = f.SetCellValue(sheet, "B2", 1500)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestGoogleLinkDownloadsExportOnce(t *testing.T) {
	dl := &countingDownloader{data: xlsxBytes(t)}
	l := &Loader{Cache: cache.NewMemory(4, time.Minute), Downloads: dl}
	ref := "https://docs.google.com/spreadsheets/d/abc123/edit#gid=0"

	for i := 0; i < 2; i++ {
		grid, err := l.Grid(context.Background(), ref)
		if err != nil {
			t.Fatal(err)
		}
		if len(grid) != 2 || grid[0][0] != "NRO" {
			t.Fatalf("grid %v", grid)
		}
	}
	if dl.calls != 1 {
		t.Fatalf("downloads=%d, want 1", dl.calls)
	}
	if dl.url != "https://docs.google.com/spreadsheets/d/abc123/export?format=xlsx" {
		t.Fatalf("url %q", dl.url)
	}

	if err := l.Cache.Invalidate(); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Grid(context.Background(), ref); err != nil {
		t.Fatal(err)
	}
	if dl.calls != 2 {
		t.Fatalf("downloads after invalidate=%d", dl.calls)
	}
}

func TestSheetsRef(t *testing.T) {
	values := &fakeValues{}
	l := &Loader{Values: values}
	grid, err := l.Grid(context.Background(), "gsheets:sheet-1/Vendedores!A:B")
	if err != nil {
		t.Fatal(err)
	}
	if values.id != "sheet-1" || values.rng != "Vendedores!A:B" || len(grid) != 2 {
		t.Fatalf("id=%q rng=%q grid=%v", values.id, values.rng, grid)
	}

	if _, err := l.Grid(context.Background(), "gsheets:sheet-1"); err != nil {
		t.Fatal(err)
	}
	if values.rng != "A:ZZ" {
		t.Fatalf("default range %q", values.rng)
	}
}

func TestLocalFileAndIntake(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "libro.xlsx")
	if err := os.WriteFile(p, xlsxBytes(t), 0o644); err != nil {
		t.Fatal(err)
	}
	intakeDir := filepath.Join(dir, "intake")
	if err := os.MkdirAll(intakeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(intakeDir, "20250103T100000_abcd1234_libro_ventas.xlsx"), xlsxBytes(t), 0o644); err != nil {
		t.Fatal(err)
	}

	l := &Loader{Cache: cache.NewMemory(4, time.Minute), IntakeDir: intakeDir}
	if _, err := l.Grid(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	grid, err := l.Grid(context.Background(), "intake:libro ventas*.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if len(grid) != 2 {
		t.Fatalf("grid %v", grid)
	}
}

func TestUnsupportedReferences(t *testing.T) {
	l := &Loader{}
	if _, err := l.Grid(context.Background(), "gsheets:id"); !errors.Is(err, internal.ErrUnsupportedSource) {
		t.Fatalf("err=%v", err)
	}
	if _, err := l.Grid(context.Background(), "https://example.test/a.xlsx"); !errors.Is(err, internal.ErrUnsupportedSource) {
		t.Fatalf("err=%v", err)
	}
}
