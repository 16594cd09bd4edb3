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

// btkFilePattern matches an NHC best-track ATCF filename, e.g.
// "bal092024.dat" (basin "al", cyclone number "09", year "2024").
// Grounded on nhcdownloader.py's download_forecast_ftp/btk handling,
// which cwds into "atcf/btk" on ftp.nhc.noaa.gov and globs "*.dat".
var btkFilePattern = regexp.MustCompile(`^b(?P<basin>[a-z]{2})(?P<number>\d{2})(?P<year>\d{4})\.dat$`)

// NHC lists and fetches National Hurricane Center best-track files,
// which this catalog treats as the tropical_analysis family: every
// point in a best-track is an analyzed position, not a forecast, so
// catalog.TropicalRow.Tau always reports 0 for this family regardless
// of the row's own forecast_cycle/valid_time arithmetic.
//
// A single Candidate here represents one storm's full best-track file;
// decoding it into one catalog row per track point is the Downloader
// Loop's job, not this adapter's — Discover only tells the loop which
// storms have best-track data at all. It lists every best-track file
// regardless of since and does not report whether a file has changed.
type NHC struct {
	idx  *httpIndex
	root string
}

// NewNHC constructs the NHC best-track adapter. client may be nil to
// use http.DefaultClient; NOAA serves the ATCF archive over HTTPS as
// well as FTP, so this package only ever needs an HTTP client.
func NewNHC(client *http.Client) *NHC {
	return &NHC{
		idx:  newHTTPIndex(client),
		root: "https://ftp.nhc.noaa.gov/atcf/btk/",
	}
}

func (n *NHC) Family() catalog.Family { return catalog.FamilyTropicalAnalysis }

func (n *NHC) Discover(ctx context.Context, since time.Time) ([]Candidate, error) {
	files, err := n.idx.list(ctx, n.root, btkFilePattern)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, f := range files {
		m := btkFilePattern.FindStringSubmatch(lastPathSegment(f))
		if m == nil {
			continue
		}
		g := namedGroups(btkFilePattern, m)
		out = append(out, Candidate{
			// The best-track file itself carries no single cycle; the
			// Downloader Loop stamps ForecastCycle/ValidTime per point
			// once it has parsed the file body.
			Basin:       basinNameFor(g["basin"]),
			StormNumber: atoiOr0(g["number"]),
			StormYear:   atoiOr0(g["year"]),
			SourceURL:   f,
		})
	}
	return out, nil
}

func (n *NHC) Fetch(ctx context.Context, c Candidate) (io.ReadCloser, error) {
	return fetchURL(ctx, n.idx.client, c.SourceURL)
}
