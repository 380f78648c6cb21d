package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"ledgerrecon/internal"
	"ledgerrecon/internal/storage"
)

// SQLite stores grids in the cache_entries table so they survive restarts.
type SQLite struct {
	db  *storage.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLite(db *storage.DB, ttl time.Duration) *SQLite {
	if ttl <= 0 {
		ttl = 100 * 365 * 24 * time.Hour
	}
	return &SQLite{db: db, ttl: ttl, now: time.Now}
}

func (s *SQLite) Get(key Key) (internal.RawGrid, bool) {
	payload, ok, err := s.db.GetCacheEntry(key.String(), s.now())
	if err != nil || !ok {
		return nil, false
	}
	grid, err := decodeGrid(payload)
	if err != nil {
		return nil, false
	}
	return grid, true
}

func (s *SQLite) Put(key Key, grid internal.RawGrid) error {
	payload, err := encodeGrid(grid)
	if err != nil {
		return err
	}
	return s.db.PutCacheEntry(key.String(), payload, s.now().Add(s.ttl))
}

func (s *SQLite) Invalidate() error {
	_, err := s.db.ClearCache()
	return err
}

// cell keeps the dynamic type of a grid value through JSON.
type cell struct {
	S *string    `json:"s,omitempty"`
	N *float64   `json:"n,omitempty"`
	B *bool      `json:"b,omitempty"`
	D *time.Time `json:"d,omitempty"`
}

func encodeGrid(grid internal.RawGrid) ([]byte, error) {
	rows := make([][]cell, len(grid))
	for i, row := range grid {
		rows[i] = make([]cell, len(row))
		for j, v := range row {
			switch t := v.(type) {
			case nil:
			case string:
				rows[i][j].S = &t
			case float64:
				rows[i][j].N = &t
			case int:
				f := float64(t)
				rows[i][j].N = &f
			case bool:
				rows[i][j].B = &t
			case time.Time:
				rows[i][j].D = &t
			default:
				s := fmt.Sprint(t)
				rows[i][j].S = &s
			}
		}
	}
	return json.Marshal(rows)
}

func decodeGrid(payload []byte) (internal.RawGrid, error) {
	var rows [][]cell
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, err
	}
	grid := make(internal.RawGrid, len(rows))
	for i, row := range rows {
		grid[i] = make([]any, len(row))
		for j, c := range row {
			switch {
			case c.S != nil:
				grid[i][j] = *c.S
			case c.N != nil:
				grid[i][j] = *c.N
			case c.B != nil:
				grid[i][j] = *c.B
			case c.D != nil:
				grid[i][j] = *c.D
			}
		}
	}
	return grid, nil
}
