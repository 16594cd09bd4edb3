// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package worker

import (
	"context"
	"encoding/json"
	"fmt"

	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

// Encoder serializes a resolved set of per-timestep grids into the
// bytes of one output format. Each format's on-disk layout (owi-ascii,
// owi-netcdf, ras-netcdf, delft3d) is a file-format writer external to
// this component.
type Encoder interface {
	Encode(ctx context.Context, format v1.OutputFormat, spec *v1.RequestSpec, grids []TimestepGrids) ([]byte, error)
}

// JSONEncoder is a deterministic stub used by tests and by any
// deployment that has not wired a production format writer. It
// serializes the resolved grids as JSON regardless of the requested
// format, so a completed build always has something to download.
type JSONEncoder struct{}

func (JSONEncoder) Encode(_ context.Context, format v1.OutputFormat, _ *v1.RequestSpec, grids []TimestepGrids) ([]byte, error) {
	b, err := json.Marshal(struct {
		Format v1.OutputFormat `json:"format"`
		Grids  []TimestepGrids `json:"grids"`
	}{Format: format, Grids: grids})
	if err != nil {
		return nil, fmt.Errorf("worker: encoding stub output: %w", err)
	}
	return b, nil
}
