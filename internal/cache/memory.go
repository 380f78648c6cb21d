package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"ledgerrecon/internal"
)

type Memory struct {
	lru *expirable.LRU[string, internal.RawGrid]
}

// NewMemory keeps at most size grids for ttl each. A zero size is unbounded
// and a zero ttl never expires.
func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, internal.RawGrid](size, nil, ttl)}
}

func (m *Memory) Get(key Key) (internal.RawGrid, bool) {
	return m.lru.Get(key.String())
}

func (m *Memory) Put(key Key, grid internal.RawGrid) error {
	m.lru.Add(key.String(), grid)
	return nil
}

func (m *Memory) Invalidate() error {
	m.lru.Purge()
	return nil
}

func (m *Memory) Len() int {
	return m.lru.Len()
}
