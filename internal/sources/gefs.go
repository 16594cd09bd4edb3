// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package sources

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
)

// gefsKeyPattern matches a single ensemble member's forecast object key
// in noaa-gefs-pds, e.g. "gefs.20240101/00/atmos/pgrb2sp25/gec00.t00z.pgrb2s.0p25.f024"
// (control) or "gep03.t00z.pgrb2s.0p25.f024" (perturbation 3). Grounded
// on NcepGefsdownloader._download_aws_big_data, which reimplements the
// base class's S3 listing specifically to pull the member code out of
// keys[4][2:5] of the object key.
var gefsKeyPattern = regexp.MustCompile(`^gefs\.(?P<year>\d{4})(?P<month>\d{2})(?P<day>\d{2})/(?P<hour>\d{2})/atmos/pgrb2sp25/ge(?P<member>c00|p\d{2})\.t\d{2}z\.pgrb2s\.0p25\.f(?P<tau>\d{3})$`)

// GEFS lists and fetches NOAA Global Ensemble Forecast System members
// out of the noaa-gefs-pds Big Data Program bucket. Every member is
// cataloged under the same forecast_cycle/valid_time pair, distinguished
// by EnsembleMember (spec's ensemble_global identity).
type GEFS struct {
	svc          *s3.S3
	bucket       string
	maxLeadHours int
}

// NewGEFS constructs the GEFS adapter.
func NewGEFS(region string) (*GEFS, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("sources: creating aws session for gefs: %w", err)
	}
	return &GEFS{svc: s3.New(sess), bucket: "noaa-gefs-pds", maxLeadHours: 384}, nil
}

func (g *GEFS) Family() catalog.Family { return catalog.FamilyEnsembleGlobal }

func (g *GEFS) Discover(ctx context.Context, since time.Time) ([]Candidate, error) {
	var out []Candidate
	err := g.svc.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			m := gefsKeyPattern.FindStringSubmatch(key)
			if m == nil {
				continue
			}
			fg := namedGroups(gefsKeyPattern, m)
			cycle := time.Date(atoiOr0(fg["year"]), time.Month(atoiOr0(fg["month"])), atoiOr0(fg["day"]), atoiOr0(fg["hour"]), 0, 0, 0, time.UTC)
			if cycle.Before(since) {
				continue
			}
			tau := atoiOr0(fg["tau"])
			if tau > g.maxLeadHours {
				continue
			}
			out = append(out, Candidate{
				ForecastCycle:  cycle,
				ValidTime:      cycle.Add(time.Duration(tau) * time.Hour),
				Tau:            tau,
				EnsembleMember: fg["member"],
				SourceURL:      key,
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("sources: listing %s: %w", g.bucket, err)
	}
	return out, nil
}

func (g *GEFS) Fetch(ctx context.Context, c Candidate) (io.ReadCloser, error) {
	out, err := g.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(c.SourceURL),
	})
	if err != nil {
		return nil, fmt.Errorf("sources: fetching s3://%s/%s: %w", g.bucket, c.SourceURL, err)
	}
	return out.Body, nil
}
