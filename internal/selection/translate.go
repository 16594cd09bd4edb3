// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package selection

import (
	"fmt"
	"strconv"
	"time"

	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

// RequestFromSpec reduces a validated wire RequestSpec to the input this
// package's Engine and ValidateDomains need. Both the Request API (at
// intake) and the Build Worker (at build time, decoding the same spec
// back out of a bus envelope) call this, so the wire-to-engine
// conversion lives in one place rather than two.
//
// Two conversions are load-bearing: Advisory is a human-typed wire
// string but an int here, and TimeStep is whole seconds on the wire but
// a time.Duration here.
func RequestFromSpec(spec *v1.RequestSpec) (Request, error) {
	domains := make([]DomainSpec, 0, len(spec.Domains))
	for i, d := range spec.Domains {
		var advisory int
		if d.Advisory != "" {
			n, err := strconv.Atoi(d.Advisory)
			if err != nil {
				return Request{}, fmt.Errorf("domain[%d]: advisory %q must be numeric: %w", i, d.Advisory, err)
			}
			advisory = n
		}

		domains = append(domains, DomainSpec{
			Service:        d.Service,
			Level:          d.Level,
			EnsembleMember: d.EnsembleMember,
			StormName:      d.StormName,
			Basin:          d.Basin,
			StormYear:      d.StormYear,
			Advisory:       advisory,
		})
	}

	return Request{
		Start:             spec.StartDate,
		End:               spec.EndDate,
		TimeStep:          time.Duration(spec.TimeStep) * time.Second,
		Nowcast:           spec.Nowcast,
		MultipleForecasts: spec.MultipleForecasts,
		Backfill:          spec.Backfill,
		Domains:           domains,
	}, nil
}
