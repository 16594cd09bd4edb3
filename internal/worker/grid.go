// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package worker

import "time"

// Grid is one (timestep, domain) cell's re-gridded values, ready for an
// Encoder to write. Hole reports that the Selection Engine could not
// resolve this cell and backfill was disabled or unavailable; the
// Encoder writes the requested format's null value in that case.
type Grid struct {
	ValidTime time.Time
	Values    map[string][]float64
	Hole      bool
}

// TimestepGrids is the full multi-domain stack resolved for one output
// timestep, in the same ascending-level domain order the Selection
// Engine used to build the Plan it came from.
type TimestepGrids struct {
	ValidTime time.Time
	Domains   []Grid
}
