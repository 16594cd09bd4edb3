// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package sources

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
)

// stormCycleDirPattern matches a per-storm NOMADS HWRF/HAFS run
// directory, e.g. "hwrf.2024082500" or "hafs.2024082512". Grounded on
// the "hwrf." prefix match hwrfdownloader.py's download() walks for.
var stormCycleDirPattern = regexp.MustCompile(`^(?P<model>hwrf|hafs)\.(?P<year>\d{4})(?P<month>\d{2})(?P<day>\d{2})(?P<hour>\d{2})$`)

// stormCodePattern matches a storm working directory named by 2-digit
// cyclone number + basin letter, e.g. "09l" under a cycle dir, optionally
// followed by a 4-digit year ("09l2024") or preceded by a dotted prefix.
// The basin-first "al092024" form does not match.
var stormCodePattern = regexp.MustCompile(`^(?:\w+\.)?(?P<number>\d{2})(?P<basin>[lcepqsz])(?:(?P<year>\d{4}))?$`)

// HwrfHafs lists and fetches storm-scoped deterministic vortex-following
// guidance (HWRF or HAFS) from the NOMADS hurricane tree. Both models
// share the same nested cycle/storm/file layout; which one an instance
// tracks is fixed by filePattern's model prefix.
type HwrfHafs struct {
	idx          *httpIndex
	family       catalog.Family
	root         string
	filePattern  *regexp.Regexp
	maxLeadHours int
}

// NewHWRF constructs the HWRF adapter (tropical_deterministic).
func NewHWRF(client *http.Client) *HwrfHafs {
	return &HwrfHafs{
		idx:          newHTTPIndex(client),
		family:       catalog.FamilyTropicalDeterministic,
		root:         "https://nomads.ncep.noaa.gov/pub/data/nccf/com/hwrf/prod/",
		filePattern:  regexp.MustCompile(`^hwrf\.storm\.t(?P<hour>\d{2})z\.hwrfprs\.storm\.0p015\.f(?P<tau>\d{3})\.grb2$`),
		maxLeadHours: 126,
	}
}

// NewHAFS constructs the HAFS adapter (tropical_deterministic).
func NewHAFS(client *http.Client) *HwrfHafs {
	return &HwrfHafs{
		idx:          newHTTPIndex(client),
		family:       catalog.FamilyTropicalDeterministic,
		root:         "https://nomads.ncep.noaa.gov/pub/data/nccf/com/hafs/prod/",
		filePattern:  regexp.MustCompile(`^hafs\.storm\.t(?P<hour>\d{2})z\.hfsa\.storm\.atm\.f(?P<tau>\d{3})\.grb2$`),
		maxLeadHours: 126,
	}
}

func (h *HwrfHafs) Family() catalog.Family { return h.family }

func (h *HwrfHafs) Discover(ctx context.Context, since time.Time) ([]Candidate, error) {
	cycleDirs, err := h.idx.list(ctx, h.root, stormCycleDirPattern)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, cycleDir := range cycleDirs {
		cm := stormCycleDirPattern.FindStringSubmatch(lastPathSegment(cycleDir))
		if cm == nil {
			continue
		}
		cg := namedGroups(stormCycleDirPattern, cm)
		cycle := time.Date(atoiOr0(cg["year"]), time.Month(atoiOr0(cg["month"])), atoiOr0(cg["day"]), atoiOr0(cg["hour"]), 0, 0, 0, time.UTC)
		if cycle.Before(since) {
			continue
		}

		stormDirs, err := h.idx.list(ctx, trimTrailingSlash(cycleDir)+"/", stormCodePattern)
		if err != nil {
			continue
		}
		for _, stormDir := range stormDirs {
			sm := stormCodePattern.FindStringSubmatch(lastPathSegment(stormDir))
			if sm == nil {
				continue
			}
			sg := namedGroups(stormCodePattern, sm)
			basin, number := basinNameFor(sg["basin"]), atoiOr0(sg["number"])

			files, err := h.idx.list(ctx, trimTrailingSlash(stormDir)+"/", h.filePattern)
			if err != nil {
				continue
			}
			for _, f := range files {
				fm := h.filePattern.FindStringSubmatch(lastPathSegment(f))
				if fm == nil {
					continue
				}
				fg := namedGroups(h.filePattern, fm)
				tau := atoiOr0(fg["tau"])
				if tau > h.maxLeadHours {
					continue
				}
				out = append(out, Candidate{
					ForecastCycle: cycle,
					ValidTime:     cycle.Add(time.Duration(tau) * time.Hour),
					Tau:           tau,
					Basin:         basin,
					StormNumber:   number,
					StormYear:     cycle.Year(),
					SourceURL:     f,
				})
			}
		}
	}
	return out, nil
}

func (h *HwrfHafs) Fetch(ctx context.Context, c Candidate) (io.ReadCloser, error) {
	return fetchURL(ctx, h.idx.client, c.SourceURL)
}

// basinNameFor converts an ATCF basin letter to the short basin code the
// Request API and catalog constraints use (spec §4.8 edge-case policies
// for storm-scoped families).
func basinNameFor(letter string) string {
	switch letter {
	case "l":
		return "al"
	case "e":
		return "ep"
	case "c":
		return "cp"
	case "p":
		return "wp"
	default:
		return letter
	}
}
