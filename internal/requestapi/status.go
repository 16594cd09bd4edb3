// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"fmt"
	"net/http"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

// statusFamilies lists the families GET /status reports coverage for,
// ordered the way the operator-facing output should read.
var statusFamilies = []catalog.Family{
	catalog.FamilyGlobal,
	catalog.FamilyRegional,
	catalog.FamilyRegionalAlaska,
	catalog.FamilyPrecipitation,
	catalog.FamilyEnsembleGlobal,
	catalog.FamilyTropicalDeterministic,
	catalog.FamilyTropicalEnsemble,
	catalog.FamilyTropicalAnalysis,
}

// handleStatus implements GET /status: the forecast cycles currently on
// hand per family, so a client can decide whether a build is even
// possible before spending credit on it.
func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		families := make([]v1.FamilyCoverage, 0, len(statusFamilies))
		for _, family := range statusFamilies {
			cycles, err := s.env.Catalog().ListCycles(ctx, family)
			if err != nil {
				writeError(w, r, fmt.Errorf("requestapi: listing cycles for %s: %w", family, err))
				return
			}

			fc := v1.FamilyCoverage{Family: string(family), Cycles: cycles}
			if len(cycles) > 0 {
				min, max := cycles[0], cycles[0]
				for _, c := range cycles {
					if c.Before(min) {
						min = c
					}
					if c.After(max) {
						max = c
					}
				}
				fc.MinCycle = &min
				fc.MaxCycle = &max
				fc.LatestCompleteCycle = &max
			}
			families = append(families, fc)
		}

		writeJSON(w, http.StatusOK, v1.StatusResponse{Families: families})
	}
}
