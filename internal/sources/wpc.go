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

// wpcFilePattern matches a Weather Prediction Center QPF grid, e.g.
// "p06m_2024082512f024.grb". Grounded on wpcdownloader.py's address
// (ftp.wpc.ncep.noaa.gov); WPC serves the same tree over HTTPS under
// www.wpc.ncep.noaa.gov, so this adapter fetches it with plain GETs
// rather than opening an FTP control connection.
var wpcFilePattern = regexp.MustCompile(`^p06m_(?P<year>\d{4})(?P<month>\d{2})(?P<day>\d{2})(?P<hour>\d{2})f(?P<tau>\d{3})\.grb$`)

// WPC lists and fetches Weather Prediction Center quantitative
// precipitation forecast grids, the precipitation family's source. WPC
// publishes into a single flat directory per product rather than
// NOMADS's nested cycle/hour tree, so Discover only issues one list
// call.
type WPC struct {
	idx          *httpIndex
	root         string
	maxLeadHours int
}

// NewWPC constructs the WPC adapter.
func NewWPC(client *http.Client) *WPC {
	return &WPC{
		idx:          newHTTPIndex(client),
		root:         "https://www.wpc.ncep.noaa.gov/qpf/incoming/",
		maxLeadHours: 168,
	}
}

func (w *WPC) Family() catalog.Family { return catalog.FamilyPrecipitation }

func (w *WPC) Discover(ctx context.Context, since time.Time) ([]Candidate, error) {
	files, err := w.idx.list(ctx, w.root, wpcFilePattern)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, f := range files {
		m := wpcFilePattern.FindStringSubmatch(lastPathSegment(f))
		if m == nil {
			continue
		}
		g := namedGroups(wpcFilePattern, m)
		cycle := time.Date(atoiOr0(g["year"]), time.Month(atoiOr0(g["month"])), atoiOr0(g["day"]), atoiOr0(g["hour"]), 0, 0, 0, time.UTC)
		if cycle.Before(since) {
			continue
		}
		tau := atoiOr0(g["tau"])
		if tau > w.maxLeadHours {
			continue
		}
		out = append(out, Candidate{
			ForecastCycle: cycle,
			ValidTime:     cycle.Add(time.Duration(tau) * time.Hour),
			Tau:           tau,
			SourceURL:     f,
		})
	}
	return out, nil
}

func (w *WPC) Fetch(ctx context.Context, c Candidate) (io.ReadCloser, error) {
	return fetchURL(ctx, w.idx.client, c.SourceURL)
}
