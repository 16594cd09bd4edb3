// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlan_Summarize(t *testing.T) {
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	p := &Plan{Timesteps: []TimestepPlan{
		{ValidTime: t0, Domains: []Entry{
			{StorageKey: "gfs/one"},
			{StorageKey: "nam/one", Backfilled: true},
			{Hole: true},
		}},
	}}

	s := p.Summarize()
	assert.Equal(t, 1, s.Covered)
	assert.Equal(t, 1, s.Backfilled)
	assert.Equal(t, 1, s.Holes)
}

func TestPlan_HasUnfillableHole(t *testing.T) {
	clean := &Plan{Timesteps: []TimestepPlan{{Domains: []Entry{{StorageKey: "gfs/one"}}}}}
	assert.False(t, clean.HasUnfillableHole())

	withHole := &Plan{Timesteps: []TimestepPlan{{Domains: []Entry{{Hole: true}}}}}
	assert.True(t, withHole.HasUnfillableHole())
}
