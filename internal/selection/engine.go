// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package selection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/thewaterinstitute/metget-server/internal/apperror"
	"github.com/thewaterinstitute/metget-server/internal/catalog"
)

// Request is the reduced input the Selection Engine needs out of a
// validated build request.
type Request struct {
	Start             time.Time
	End               time.Time
	TimeStep          time.Duration
	Nowcast           bool
	MultipleForecasts bool
	Backfill          bool
	Domains           []DomainSpec
}

// Timesteps enumerates r's output timesteps (§4.8 step 1): start,
// start+step, ... up to and including end.
func (r Request) Timesteps() []time.Time {
	var out []time.Time
	for t := r.Start; !t.After(r.End); t = t.Add(r.TimeStep) {
		out = append(out, t)
	}
	return out
}

// Engine resolves plans against a catalog.
type Engine struct {
	Catalog catalog.Catalog
}

// New constructs an Engine backed by cat.
func New(cat catalog.Catalog) *Engine {
	return &Engine{Catalog: cat}
}

// Resolve runs the full selection algorithm (§4.8) and returns a Plan.
// Domains are sorted ascending by Level before stack resolution, per
// step 4's "walk domains in ascending level" rule.
func (e *Engine) Resolve(ctx context.Context, req Request) (*Plan, error) {
	domains := append([]DomainSpec(nil), req.Domains...)
	sort.SliceStable(domains, func(i, j int) bool { return domains[i].Level < domains[j].Level })

	timesteps := req.Timesteps()
	if len(timesteps) == 0 {
		return nil, apperror.New(apperror.Validation, fmt.Errorf("selection: empty timestep range"))
	}

	// Resolve each domain independently across every timestep, then
	// assemble rows into per-timestep stacks (step 3, then step 4).
	perDomain := make([][]rowOrHole, len(domains))
	for i, d := range domains {
		rows, err := e.resolveDomain(ctx, d, req, timesteps)
		if err != nil {
			return nil, err
		}
		perDomain[i] = rows
	}

	plan := &Plan{Timesteps: make([]TimestepPlan, len(timesteps))}
	for ti, t := range timesteps {
		tsPlan := TimestepPlan{ValidTime: t, Domains: make([]Entry, len(domains))}

		var carry *Entry // most recent non-hole entry at a lower level, for backfill
		for di := range domains {
			cell := perDomain[di][ti]
			var entry Entry
			switch {
			case cell.row != nil:
				entry = entryFromRow(cell.row)
				carry = &entry
			case req.Backfill && carry != nil:
				entry = *carry
				entry.Backfilled = true
			default:
				entry = Entry{ValidTime: t, Hole: true}
			}
			tsPlan.Domains[di] = entry
		}
		plan.Timesteps[ti] = tsPlan
	}

	return plan, nil
}

// rowOrHole is the per-(domain, timestep) intermediate result of step 3,
// before step 4's backfill pass.
type rowOrHole struct {
	row catalog.Row
}

// resolveDomain runs steps 2-3 of §4.8 for a single domain, across every
// requested timestep.
func (e *Engine) resolveDomain(ctx context.Context, d DomainSpec, req Request, timesteps []time.Time) ([]rowOrHole, error) {
	family, err := FamilyForService(d.Service)
	if err != nil {
		return nil, apperror.New(apperror.Validation, err)
	}
	constraints, err := d.constraints(family, req.Nowcast)
	if err != nil {
		return nil, apperror.New(apperror.Validation, err)
	}

	candidatesByT := make([][]catalog.Row, len(timesteps))
	for i, t := range timesteps {
		rows, err := e.Catalog.FindCovering(ctx, family, t, constraints)
		if err != nil {
			return nil, fmt.Errorf("selection: find_covering(%s, %s): %w", family, t, err)
		}
		if req.Nowcast {
			rows = filterTau0(rows)
		}
		candidatesByT[i] = rows
	}

	out := make([]rowOrHole, len(timesteps))
	if !req.MultipleForecasts {
		cycle, ok := singleCoveringCycle(candidatesByT)
		if !ok {
			// §4.8 step 3c: no single cycle covers the whole window for
			// this domain. Every timestep becomes a hole; step 4's
			// backfill rule (or the format's null value) takes it from
			// there.
			return out, nil
		}
		for i, rows := range candidatesByT {
			out[i] = rowOrHole{row: pickForCycle(rows, cycle)}
		}
		return out, nil
	}

	for i, rows := range candidatesByT {
		out[i] = rowOrHole{row: pickNewest(rows)}
	}
	return out, nil
}

// filterTau0 keeps only rows whose Tau is zero (§4.8 step 2).
func filterTau0(rows []catalog.Row) []catalog.Row {
	out := rows[:0:0]
	for _, r := range rows {
		if r.Tau() == 0 {
			out = append(out, r)
		}
	}
	return out
}

// singleCoveringCycle finds the latest forecast_cycle present in every
// timestep's candidate list (§4.8 step 3c). Returns ok=false if no
// cycle covers every timestep.
func singleCoveringCycle(candidatesByT [][]catalog.Row) (time.Time, bool) {
	if len(candidatesByT) == 0 {
		return time.Time{}, false
	}

	counts := map[int64]int{}
	latest := map[int64]time.Time{}
	for _, rows := range candidatesByT {
		seen := map[int64]bool{}
		for _, r := range rows {
			cycle := r.ForecastCycle().Unix()
			if seen[cycle] {
				continue
			}
			seen[cycle] = true
			counts[cycle]++
			latest[cycle] = r.ForecastCycle()
		}
	}

	var best time.Time
	found := false
	for cycle, n := range counts {
		if n != len(candidatesByT) {
			continue
		}
		t := latest[cycle]
		if !found || t.After(best) {
			best = t
			found = true
		}
	}
	return best, found
}

// pickForCycle returns the candidate row for the given forecast_cycle,
// applying the step 3e tie-break among same-cycle rows.
func pickForCycle(rows []catalog.Row, cycle time.Time) catalog.Row {
	var matches []catalog.Row
	for _, r := range rows {
		if r.ForecastCycle().Equal(cycle) {
			matches = append(matches, r)
		}
	}
	return bestOf(matches)
}

// pickNewest returns the newest-cycle candidate, breaking ties per step
// 3e (§4.8).
func pickNewest(rows []catalog.Row) catalog.Row {
	if len(rows) == 0 {
		return nil
	}
	newest := rows[0].ForecastCycle()
	for _, r := range rows {
		if r.ForecastCycle().After(newest) {
			newest = r.ForecastCycle()
		}
	}
	return pickForCycle(rows, newest)
}

// bestOf applies the step 3e tie-break: lower tau first, then
// deterministic storage_key comparison.
func bestOf(rows []catalog.Row) catalog.Row {
	if len(rows) == 0 {
		return nil
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if r.Tau() < best.Tau() || (r.Tau() == best.Tau() && r.StorageKey() < best.StorageKey()) {
			best = r
		}
	}
	return best
}

func entryFromRow(r catalog.Row) Entry {
	return Entry{
		Family:        r.Family(),
		StorageKey:    r.StorageKey(),
		ForecastCycle: r.ForecastCycle(),
		ValidTime:     r.ValidTime(),
		Tau:           r.Tau(),
	}
}
