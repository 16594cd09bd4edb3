// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package worker

import (
	"context"

	"github.com/thewaterinstitute/metget-server/internal/selection"
	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

// Regridder interpolates one catalog entry's raw bytes onto a requested
// output domain's geometry. Re-gridding itself is an external
// collaborator this component drives but does not implement.
type Regridder interface {
	Regrid(ctx context.Context, entry selection.Entry, domain v1.Domain, raw []byte) (Grid, error)
}

// NullRegridder is a deterministic stub used by tests and by any
// deployment that has not wired a production re-gridding collaborator.
// It performs no interpolation; it reports the fetched payload's byte
// length as a single variable, just enough for a completed build to
// have verifiable, non-empty content.
type NullRegridder struct{}

func (NullRegridder) Regrid(_ context.Context, _ selection.Entry, _ v1.Domain, raw []byte) (Grid, error) {
	return Grid{Values: map[string][]float64{"raw_bytes": {float64(len(raw))}}}, nil
}
