// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package credit

import (
	"context"
	"sync"
)

// MemoryKey is one row of the in-memory ledger fake.
type MemoryKey struct {
	Enabled     bool
	Limit       int // -1 = unlimited
	Remaining   int
	Permissions map[string]bool
}

// Memory is an in-process stand-in for Ledger, used by request API and
// end-to-end scenario tests.
type Memory struct {
	mu      sync.Mutex
	keys    map[string]*MemoryKey
	enforce bool
}

// NewMemory creates an empty in-memory ledger. enforce mirrors
// Config.EnforceLimits.
func NewMemory(enforce bool) *Memory {
	return &Memory{keys: make(map[string]*MemoryKey), enforce: enforce}
}

// Put installs or replaces a key's standing.
func (m *Memory) Put(apiKey string, k MemoryKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[apiKey] = &k
}

func (m *Memory) Authorize(ctx context.Context, apiKey string) (Authorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.keys[apiKey]
	if !ok {
		return Authorization{}, ErrUnknownKey
	}
	return Authorization{
		Enabled:     k.Enabled,
		Unlimited:   k.Limit < 0,
		Remaining:   k.Remaining,
		Permissions: k.Permissions,
	}, nil
}

func (m *Memory) Debit(ctx context.Context, apiKey string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enforce {
		return nil
	}

	k, ok := m.keys[apiKey]
	if !ok || !k.Enabled {
		return ErrDenied
	}
	if k.Limit == -1 {
		return nil
	}
	if k.Remaining < amount {
		return ErrDenied
	}
	k.Remaining -= amount
	return nil
}
