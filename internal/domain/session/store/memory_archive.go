// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sync"
)

// MemoryArchive keeps archived sessions in process memory.
type MemoryArchive struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{records: make(map[string]Record)}
}

func (m *MemoryArchive) Put(_ context.Context, rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	rec.Session = rec.Session.Clone()
	m.mu.Lock()
	m.records[rec.Session.ID] = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryArchive) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Session = rec.Session.Clone()
	return rec, nil
}

func (m *MemoryArchive) List(_ context.Context, limit int) ([]Summary, error) {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, summarize(rec))
	}
	m.mu.RUnlock()
	return sortSummaries(out, limit), nil
}

func (m *MemoryArchive) Close() error { return nil }
