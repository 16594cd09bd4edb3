// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package selection

import (
	"fmt"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
)

// DomainSpec is one entry of a request's domain stack, reduced to what
// the Selection Engine needs: its catalog family and identity
// constraints. RequestFromSpec builds these from the wire-level
// metgetapi/v1.Domain before the Build Worker invokes Resolve.
type DomainSpec struct {
	Service string
	Level   int

	EnsembleMember string
	StormName      string
	Basin          string
	StormYear      int
	StormNumber    int
	Advisory       int
}

// serviceFamilies maps a request's "service" field to the catalog
// family it draws from. Kept in lockstep with the adapters registered
// in internal/sources: every family an adapter populates has a service
// name a domain can request here.
var serviceFamilies = map[string]catalog.Family{
	"gfs":         catalog.FamilyGlobal,
	"nam":         catalog.FamilyRegional,
	"hrrr-alaska": catalog.FamilyRegionalAlaska,
	"hwrf":        catalog.FamilyTropicalDeterministic,
	"hafs":        catalog.FamilyTropicalDeterministic,
	"ctcx":        catalog.FamilyTropicalEnsemble,
	"nhc":         catalog.FamilyTropicalAnalysis,
	"gefs":        catalog.FamilyEnsembleGlobal,
	"wpc":         catalog.FamilyPrecipitation,
}

// FamilyForService resolves a domain's requested service to a catalog
// family.
func FamilyForService(service string) (catalog.Family, error) {
	f, ok := serviceFamilies[service]
	if !ok {
		return "", fmt.Errorf("selection: unknown service %q", service)
	}
	return f, nil
}

// defaultEnsembleMember is the member name resolved when an ensemble
// family domain doesn't specify one (§4.8 edge-case policies: "default
// 'mean' or fail per adapter policy"). MetGet-Server's adapter policy
// is to default rather than fail.
const defaultEnsembleMember = "mean"

// constraints builds catalog.Constraints for d, applying the family's
// edge-case identity requirements (§4.8). Storm-scoped families without
// a storm identity are rejected here — at plan-build time, which the
// Request API calls at intake, not per-timestep, satisfying "fail fast
// at intake, not per-t".
func (d DomainSpec) constraints(family catalog.Family, nowcast bool) (catalog.Constraints, error) {
	c := catalog.Constraints{Nowcast: nowcast}

	switch family {
	case catalog.FamilyTropicalDeterministic, catalog.FamilyTropicalEnsemble, catalog.FamilyTropicalAnalysis:
		if d.StormName == "" && d.Basin == "" {
			return c, fmt.Errorf("selection: domain %q: storm-scoped family %s requires storm_name/basin + storm_year", d.Service, family)
		}
		if d.StormYear == 0 {
			return c, fmt.Errorf("selection: domain %q: storm-scoped family %s requires storm_year", d.Service, family)
		}
		if d.StormName != "" {
			c.StormName = &d.StormName
		}
		if d.Basin != "" {
			c.Basin = &d.Basin
		}
		c.StormYear = &d.StormYear
		if d.StormNumber != 0 {
			c.StormNumber = &d.StormNumber
		}
		if d.Advisory != 0 {
			c.Advisory = &d.Advisory
		}
	}

	if family == catalog.FamilyEnsembleGlobal || family == catalog.FamilyTropicalEnsemble {
		member := d.EnsembleMember
		if member == "" {
			member = defaultEnsembleMember
		}
		c.EnsembleMember = &member
	}

	return c, nil
}

// ValidateDomains runs every domain's service-resolution and identity
// checks without touching the catalog, so the Request API can reject a
// malformed domain stack at intake instead of waiting for the Build
// Worker to discover it mid-plan.
func ValidateDomains(domains []DomainSpec, nowcast bool) error {
	for _, d := range domains {
		family, err := FamilyForService(d.Service)
		if err != nil {
			return err
		}
		if _, err := d.constraints(family, nowcast); err != nil {
			return err
		}
	}
	return nil
}
