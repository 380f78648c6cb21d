package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"ledgerrecon/internal"
	"ledgerrecon/internal/config"
	"ledgerrecon/internal/storage"
)

// Key identifies a loaded source: local files by content digest, remote
// sources by URL.
type Key struct {
	Source   string
	Identity string
}

func (k Key) String() string {
	return k.Source + "|" + k.Identity
}

func ContentKey(source string, data []byte) Key {
	sum := sha256.Sum256(data)
	return Key{Source: source, Identity: hex.EncodeToString(sum[:])}
}

func URLKey(url string) Key {
	return Key{Source: "url", Identity: strings.TrimSpace(url)}
}

// Cache memoizes loaded grids. Entries are never updated in place; a refresh
// invalidates everything.
type Cache interface {
	Get(key Key) (internal.RawGrid, bool)
	Put(key Key, grid internal.RawGrid) error
	Invalidate() error
}

// New builds the backend named by cfg.CacheBackend: memory, sqlite or off.
func New(cfg config.Config, db *storage.DB) (Cache, error) {
	ttl := time.Duration(cfg.CacheTTLSec) * time.Second
	switch strings.ToLower(strings.TrimSpace(cfg.CacheBackend)) {
	case "", "memory":
		return NewMemory(cfg.CacheSize, ttl), nil
	case "sqlite":
		if db == nil {
			return nil, fmt.Errorf("sqlite cache needs a database")
		}
		return NewSQLite(db, ttl), nil
	case "off", "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.CacheBackend)
	}
}

type Nop struct{}

func (Nop) Get(Key) (internal.RawGrid, bool) { return nil, false }

func (Nop) Put(Key, internal.RawGrid) error { return nil }

func (Nop) Invalidate() error { return nil }
