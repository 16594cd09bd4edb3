// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package download

import (
	"fmt"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
	"github.com/thewaterinstitute/metget-server/internal/sources"
)

// StorageKeyFor computes the blobstore key a candidate's fetched payload
// is written to: storage_key = f(family, identity), per spec.md §4.5
// point 3. This key is independent of wherever the adapter fetched the
// bytes from (Candidate.SourceURL) — it is MetGet-Server's own object
// layout, not the upstream's.
func StorageKeyFor(family catalog.Family, c sources.Candidate) string {
	cycle := c.ForecastCycle.UTC().Format("20060102/15")

	switch {
	case family == catalog.FamilyEnsembleGlobal:
		return fmt.Sprintf("%s/%s/%s/f%03d", family, cycle, memberOrDefault(c.EnsembleMember), c.Tau)

	case family == catalog.FamilyTropicalDeterministic || family == catalog.FamilyTropicalEnsemble || family == catalog.FamilyTropicalAnalysis:
		storm := fmt.Sprintf("%04d/%s%02d", c.StormYear, c.Basin, c.StormNumber)
		if family == catalog.FamilyTropicalEnsemble {
			return fmt.Sprintf("%s/%s/adv%03d/%s/f%03d", family, storm, c.Advisory, memberOrDefault(c.EnsembleMember), c.Tau)
		}
		return fmt.Sprintf("%s/%s/adv%03d/f%03d", family, storm, c.Advisory, c.Tau)

	default:
		return fmt.Sprintf("%s/%s/f%03d", family, cycle, c.Tau)
	}
}

func memberOrDefault(member string) string {
	if member == "" {
		return "unknown"
	}
	return member
}
