// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package worker implements the Build Worker: it consumes build
// envelopes off the message bus, drives the Selection Engine against
// the catalog, hands resolved catalog rows to an external re-gridding
// collaborator, encodes the result to the requested output format, and
// updates the owning request row.
package worker

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/thewaterinstitute/metget-server/internal/config"
	"github.com/thewaterinstitute/metget-server/internal/requests"
	"github.com/thewaterinstitute/metget-server/internal/selection"
	"github.com/thewaterinstitute/metget-server/internal/serverenv"
)

// Worker owns one build-envelope consumption loop.
type Worker struct {
	cfg       *config.Config
	env       *serverenv.ServerEnv
	requests  requests.Store
	engine    *selection.Engine
	regridder Regridder
	encoder   Encoder
	blobCache *lru.Cache[string, []byte]
}

// New constructs a Worker. regridder and encoder are the external
// collaborators this component drives but does not implement; pass
// NullRegridder{}/JSONEncoder{} where no production collaborator is
// wired yet.
func New(cfg *config.Config, env *serverenv.ServerEnv, store requests.Store, regridder Regridder, encoder Encoder) (*Worker, error) {
	if env.Catalog() == nil {
		return nil, fmt.Errorf("worker: server environment has no catalog installed")
	}
	if env.Blobstore() == nil {
		return nil, fmt.Errorf("worker: server environment has no blobstore installed")
	}
	if env.Bus() == nil {
		return nil, fmt.Errorf("worker: server environment has no bus installed")
	}

	size := cfg.BlobCacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("worker: building blob cache: %w", err)
	}

	return &Worker{
		cfg:       cfg,
		env:       env,
		requests:  store,
		engine:    selection.New(env.Catalog()),
		regridder: regridder,
		encoder:   encoder,
		blobCache: cache,
	}, nil
}
