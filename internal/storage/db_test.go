package storage

import (
	"path/filepath"
	"testing"
	"time"

	"ledgerrecon/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "recon.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCatalogRoundTrip(t *testing.T) {
	db := openTestDB(t)
	entries := []internal.CatalogEntry{{Code: "Z-001", Name: "Homecenter"}, {Code: "Z-082", Name: "Falabella"}}
	if err := db.ReplaceCatalog("commerces", entries); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceCatalog("commerces", entries[:1]); err != nil {
		t.Fatal(err)
	}
	got, err := db.ListCatalog("commerces")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Homecenter" {
		t.Fatalf("unexpected catalog: %+v", got)
	}
}

func TestCacheEntryExpiry(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()
	if err := db.PutCacheEntry("k", []byte("v"), now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	payload, ok, err := db.GetCacheEntry("k", now)
	if err != nil || !ok || string(payload) != "v" {
		t.Fatalf("get: %q %v %v", payload, ok, err)
	}
	if _, ok, _ := db.GetCacheEntry("k", now.Add(2*time.Minute)); ok {
		t.Fatal("entry should be expired")
	}
	n, err := db.ClearCache()
	if err != nil || n != 1 {
		t.Fatalf("clear: %d %v", n, err)
	}
}

func TestRunsAndMetadata(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertRun("trace-1", "2025", map[string]float64{"totalMs": 3}, map[string]int{"kept": 2}, nil); err != nil {
		t.Fatal(err)
	}
	runs, err := db.ListRuns(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Counts["kept"] != 2 || runs[0].Label != "2025" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	if err := db.SetMetadata("catalog.last_sync.commerces", "x"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMetadata("catalog.last_sync.commerces")
	if err != nil || v == nil || *v != "x" {
		t.Fatalf("metadata: %v %v", v, err)
	}
}

func TestUpsertMessage(t *testing.T) {
	db := openTestDB(t)
	msg, err := db.UpsertMessage("imap", "<1@x>", "Libro", "a@b", "2025-01-01T00:00:00Z", "h", "/tmp/h.eml", "fetched")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateMessageStatus(msg.ID, "processed"); err != nil {
		t.Fatal(err)
	}
	pending, err := db.ListMessagesByStatus("fetched", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending, got %d", len(pending))
	}
}
