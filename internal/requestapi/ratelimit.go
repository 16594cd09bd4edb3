// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// keyLimiters caches one token-bucket limiter per API key so a single
// misbehaving client can't starve the others. Sized generously; an
// evicted key's caller simply gets a fresh, full bucket.
type keyLimiters struct {
	cache *lru.Cache[string, *rate.Limiter]
	rps   rate.Limit
	burst int
}

func newKeyLimiters(perMinute int) (*keyLimiters, error) {
	cache, err := lru.New[string, *rate.Limiter](4096)
	if err != nil {
		return nil, err
	}
	if perMinute <= 0 {
		perMinute = 1
	}
	return &keyLimiters{
		cache: cache,
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: perMinute,
	}, nil
}

// allow reports whether apiKey may make another request right now,
// creating its limiter on first use.
func (k *keyLimiters) allow(apiKey string) bool {
	limiter, ok := k.cache.Get(apiKey)
	if !ok {
		limiter = rate.NewLimiter(k.rps, k.burst)
		k.cache.Add(apiKey, limiter)
	}
	return limiter.Allow()
}
