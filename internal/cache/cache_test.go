package cache

import (
	"path/filepath"
	"testing"
	"time"

	"ledgerrecon/internal"
	"ledgerrecon/internal/config"
	"ledgerrecon/internal/storage"
)

func sampleGrid() internal.RawGrid {
	return internal.RawGrid{
		{"NRO", "FECHA", "VALOR", "OK"},
		{"A-1", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), 1500.5, true},
		{"A-2", nil, 10.0, false},
	}
}

func TestContentKeyDependsOnBytes(t *testing.T) {
	a := ContentKey("ledger.xlsx", []byte("one"))
	b := ContentKey("ledger.xlsx", []byte("two"))
	if a == b {
		t.Fatal("different content must give different keys")
	}
	if a != ContentKey("ledger.xlsx", []byte("one")) {
		t.Fatal("same content must give the same key")
	}
}

func TestMemoryPutGetInvalidate(t *testing.T) {
	c := NewMemory(4, time.Minute)
	key := URLKey("https://example.test/sheet")
	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit")
	}
	if err := c.Put(key, sampleGrid()); err != nil {
		t.Fatal(err)
	}
	grid, ok := c.Get(key)
	if !ok || len(grid) != 3 {
		t.Fatalf("get: ok=%v len=%d", ok, len(grid))
	}
	if err := c.Invalidate(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); ok {
		t.Fatal("entry survived invalidate")
	}
}

func TestSQLiteKeepsCellTypes(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	c := NewSQLite(db, time.Minute)
	key := ContentKey("ledger.xlsx", []byte("payload"))
	if err := c.Put(key, sampleGrid()); err != nil {
		t.Fatal(err)
	}
	grid, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if _, isTime := grid[1][1].(time.Time); !isTime {
		t.Fatalf("date cell type %T", grid[1][1])
	}
	if v, _ := grid[1][2].(float64); v != 1500.5 {
		t.Fatalf("amount cell %v", grid[1][2])
	}
	if v, _ := grid[1][3].(bool); !v {
		t.Fatalf("bool cell %v", grid[1][3])
	}
	if grid[2][1] != nil {
		t.Fatalf("nil cell %v", grid[2][1])
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, ok := c.Get(key); ok {
		t.Fatal("entry should be expired")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	if _, ok := mustNew(t, config.Config{CacheBackend: "memory", CacheSize: 2}).(*Memory); !ok {
		t.Fatal("memory backend expected")
	}
	if _, ok := mustNew(t, config.Config{CacheBackend: "off"}).(Nop); !ok {
		t.Fatal("nop backend expected")
	}
	if _, err := New(config.Config{CacheBackend: "redis"}, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func mustNew(t *testing.T, cfg config.Config) Cache {
	t.Helper()
	c, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}
