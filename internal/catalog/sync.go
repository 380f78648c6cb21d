package catalog

import (
	"context"
	"fmt"
	"time"

	"ledgerrecon/internal"
	"ledgerrecon/internal/storage"
)

// Kind describes how a catalog sheet is read and looked up.
type Kind struct {
	Name       string
	KeyColumn  string
	NameColumn string
	Options    Options
}

var (
	Commerces = Kind{Name: "commerces", KeyColumn: "Z", NameColumn: "NOMBRE"}
	Sellers   = Kind{Name: "sellers", KeyColumn: "VENDEDOR", NameColumn: "NOMBRE", Options: Options{StripLeadingZeros: true}}
)

type GridSource interface {
	Grid(ctx context.Context, ref string) (internal.RawGrid, error)
}

// SyncService snapshots catalog sheets into the local database so runs can
// classify without re-reading the source.
type SyncService struct {
	db     *storage.DB
	source GridSource
}

func NewSyncService(db *storage.DB, source GridSource) *SyncService {
	return &SyncService{db: db, source: source}
}

func (s *SyncService) Sync(ctx context.Context, kind Kind, ref string) (int, error) {
	grid, err := s.source.Grid(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("load %s catalog: %w", kind.Name, err)
	}
	entries, err := FromGrid(grid, kind.KeyColumn, kind.NameColumn)
	if err != nil {
		return 0, fmt.Errorf("read %s catalog: %w", kind.Name, err)
	}
	if err := s.db.ReplaceCatalog(kind.Name, entries); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("catalog.last_sync."+kind.Name, time.Now().UTC().Format(time.RFC3339))
	return len(entries), nil
}

// Stored returns the last synced snapshot, empty when none exists.
func (s *SyncService) Stored(kind Kind) (*Catalog, error) {
	entries, err := s.db.ListCatalog(kind.Name)
	if err != nil {
		return nil, err
	}
	return New(entries, kind.Options), nil
}

// Resolve loads the catalog from ref when given, falling back to the stored
// snapshot.
func (s *SyncService) Resolve(ctx context.Context, kind Kind, ref string) (*Catalog, error) {
	if ref == "" {
		return s.Stored(kind)
	}
	grid, err := s.source.Grid(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load %s catalog: %w", kind.Name, err)
	}
	entries, err := FromGrid(grid, kind.KeyColumn, kind.NameColumn)
	if err != nil {
		return nil, fmt.Errorf("read %s catalog: %w", kind.Name, err)
	}
	return New(entries, kind.Options), nil
}
