// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thewaterinstitute/metget-server/internal/logging"
)

// Compile-time check to verify implements interface.
var _ Manager = (*Cacher)(nil)

// Cacher is a secret manager implementation that wraps another secret manager
// and caches secret values.
type Cacher struct {
	sm  Manager
	ttl time.Duration

	cache      map[string]*cachedItem
	cacheMutex sync.Mutex
}

type cachedItem struct {
	value    string
	cachedAt time.Time
}

// NewCacher creates a new secret manager that caches results for the given ttl.
func NewCacher(ctx context.Context, f ManagerFunc, ttl time.Duration) (Manager, error) {
	sm, err := f(ctx)
	if err != nil {
		return nil, fmt.Errorf("cacher: %w", err)
	}

	return WrapCacher(ctx, sm, ttl), nil
}

// WrapCacher wraps an existing Manager with caching.
func WrapCacher(ctx context.Context, sm Manager, ttl time.Duration) Manager {
	return &Cacher{
		sm:    sm,
		ttl:   ttl,
		cache: make(map[string]*cachedItem),
	}
}

// GetSecretValue implements the Manager interface, but caches values and
// retrieves them from the cache.
func (sm *Cacher) GetSecretValue(ctx context.Context, name string) (string, error) {
	logger := logging.FromContext(ctx)

	// Lock
	sm.cacheMutex.Lock()
	defer sm.cacheMutex.Unlock()

	// Lookup in cache
	if i, ok := sm.cache[name]; ok && time.Since(i.cachedAt) < sm.ttl {
		logger.Debugf("loaded secret %v from cache", name)
		return i.value, nil
	}

	// Delegate lookup to parent sm.
	plaintext, err := sm.sm.GetSecretValue(ctx, name)
	if err != nil {
		return "", err
	}

	// Cache value
	sm.cache[name] = &cachedItem{
		value:    plaintext,
		cachedAt: time.Now(),
	}

	return plaintext, nil
}
