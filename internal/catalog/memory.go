// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package catalog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time check to verify Memory implements Catalog.
var _ Catalog = (*Memory)(nil)

// Memory is an in-memory Catalog used by tests that exercise Selection,
// the Build Worker, or the Downloader Loop without a live database.
type Memory struct {
	mu    sync.Mutex
	rows  map[Family]map[string]Row
	locks map[string]bool
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		rows:  make(map[Family]map[string]Row),
		locks: make(map[string]bool),
	}
}

func (m *Memory) Upsert(ctx context.Context, row Row) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byFamily, ok := m.rows[row.Family()]
	if !ok {
		byFamily = make(map[string]Row)
		m.rows[row.Family()] = byFamily
	}

	_, existed := byFamily[row.UniquenessKey()]
	byFamily[row.UniquenessKey()] = row
	return !existed, nil
}

func (m *Memory) FindExact(ctx context.Context, family Family, uniquenessKey string) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byFamily, ok := m.rows[family]
	if !ok {
		return nil, nil
	}
	return byFamily[uniquenessKey], nil
}

func (m *Memory) FindCovering(ctx context.Context, family Family, t time.Time, c Constraints) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Row
	for _, row := range m.rows[family] {
		if !row.ValidTime().Equal(t) {
			continue
		}
		if c.Nowcast && row.Tau() != 0 {
			continue
		}
		if !matchesIdentity(row, c) {
			continue
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ForecastCycle().Equal(out[j].ForecastCycle()) {
			return out[i].ForecastCycle().After(out[j].ForecastCycle())
		}
		if out[i].Tau() != out[j].Tau() {
			return out[i].Tau() < out[j].Tau()
		}
		return out[i].StorageKey() < out[j].StorageKey()
	})
	return out, nil
}

func matchesIdentity(row Row, c Constraints) bool {
	switch r := row.(type) {
	case *EnsembleRow:
		return c.EnsembleMember == nil || r.EnsembleMember == *c.EnsembleMember
	case *TropicalRow:
		if c.StormName != nil && r.StormName != *c.StormName {
			return false
		}
		if c.Basin != nil && r.Basin != *c.Basin {
			return false
		}
		if c.StormYear != nil && r.StormYear != *c.StormYear {
			return false
		}
		if c.StormNumber != nil && r.StormNumber != *c.StormNumber {
			return false
		}
		if c.Advisory != nil && r.Advisory != *c.Advisory {
			return false
		}
		if c.EnsembleMember != nil && r.EnsembleMember != *c.EnsembleMember {
			return false
		}
		return true
	default:
		return true
	}
}

func (m *Memory) ListCycles(ctx context.Context, family Family) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[int64]time.Time)
	for _, row := range m.rows[family] {
		seen[row.ForecastCycle().Unix()] = row.ForecastCycle()
	}

	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (m *Memory) Lock(ctx context.Context, name string) (UnlockFn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locks[name] {
		return nil, ErrAlreadyLocked
	}
	m.locks[name] = true

	unlocked := false
	return func(ctx context.Context) error {
		if unlocked {
			return nil
		}
		unlocked = true
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.locks, name)
		return nil
	}, nil
}
