// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package selection implements the catalog-driven selection algorithm:
// given a validated build request, resolve an ordered plan of catalog
// entries (or hole markers) satisfying it. The Build Worker drives this
// package; it never queries the catalog directly.
package selection

import (
	"time"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
)

// Entry is one (timestep, domain) cell of a resolved Plan: either a
// concrete catalog row to pull bytes from, or a hole the caller must
// backfill or null out.
type Entry struct {
	Family     catalog.Family
	StorageKey string
	ForecastCycle time.Time
	ValidTime  time.Time
	Tau        int

	// Backfilled reports whether this entry was copied down from a
	// lower-priority domain level rather than resolved directly against
	// the requested domain (§4.8 step 4).
	Backfilled bool

	// Hole reports that no row covered this cell and backfill could not
	// (or was not allowed to) fill it; the encoder writes the format's
	// null value here.
	Hole bool
}

// TimestepPlan is the resolved domain stack, in ascending level order,
// for one output timestep.
type TimestepPlan struct {
	ValidTime time.Time
	Domains   []Entry
}

// Plan is the complete output of the Selection Engine: one TimestepPlan
// per requested output timestep, in ascending ValidTime order.
type Plan struct {
	Timesteps []TimestepPlan
}

// Summary reports how a Plan covered its requested cells, the shape the
// Build Worker writes into a completed Request row's message column.
type Summary struct {
	Covered    int `json:"covered"`
	Backfilled int `json:"backfilled"`
	Holes      int `json:"holes"`
}

// Summarize counts every domain cell across every timestep.
func (p *Plan) Summarize() Summary {
	var s Summary
	for _, ts := range p.Timesteps {
		for _, e := range ts.Domains {
			switch {
			case e.Hole:
				s.Holes++
			case e.Backfilled:
				s.Backfilled++
			default:
				s.Covered++
			}
		}
	}
	return s
}

// HasUnfillableHole reports whether p contains any hole, used by the
// Build Worker to decide whether a backfill=false plan must fail
// (§4.9 step 2).
func (p *Plan) HasUnfillableHole() bool {
	for _, ts := range p.Timesteps {
		for _, e := range ts.Domains {
			if e.Hole {
				return true
			}
		}
	}
	return false
}
