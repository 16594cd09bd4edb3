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

// ctcxKeyPattern extracts cycle and ensemble member from a CTCX object
// key, e.g. "ctcx/al092024/2024082500/ctcx.09.2024082500.ens03.nc".
var ctcxKeyPattern = regexp.MustCompile(`ctcx\.(?P<number>\d{2})\.(?P<year>\d{4})(?P<month>\d{2})(?P<day>\d{2})(?P<hour>\d{2})\.ens(?P<member>\d{2})\.nc$`)

// CTCX lists and fetches Combined Tropical Cyclone eXtended ensemble
// snapshots, the tropical_ensemble family's source, grounded on
// ctcxdownloader.py's per-member, per-cycle S3 layout
// (ENSEMBLE_MEMBER_MIN..ENSEMBLE_MEMBER_MAX snapshots per storm cycle).
// Unlike the NOMADS-backed adapters, CTCX is read directly off S3 with
// the AWS SDK rather than scraped from an HTML index.
type CTCX struct {
	svc    *s3.S3
	bucket string
	prefix string
	basin  string
}

// NewCTCX constructs the CTCX adapter for a single S3 bucket/prefix,
// using the default AWS credential chain. basin is the ATCF basin code
// ("al", "ep", ...) this instance tracks, since CTCX keys are bucketed
// per basin.
func NewCTCX(region, bucket, prefix, basin string) (*CTCX, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("sources: creating aws session for ctcx: %w", err)
	}
	return &CTCX{svc: s3.New(sess), bucket: bucket, prefix: prefix, basin: basin}, nil
}

func (c *CTCX) Family() catalog.Family { return catalog.FamilyTropicalEnsemble }

func (c *CTCX) Discover(ctx context.Context, since time.Time) ([]Candidate, error) {
	var out []Candidate
	err := c.svc.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			km := ctcxKeyPattern.FindStringSubmatch(key)
			if km == nil {
				continue
			}
			kg := namedGroups(ctcxKeyPattern, km)
			cycle := time.Date(atoiOr0(kg["year"]), time.Month(atoiOr0(kg["month"])), atoiOr0(kg["day"]), atoiOr0(kg["hour"]), 0, 0, 0, time.UTC)
			if cycle.Before(since) {
				continue
			}
			out = append(out, Candidate{
				ForecastCycle:  cycle,
				ValidTime:      cycle,
				Tau:            0,
				Basin:          c.basin,
				StormNumber:    atoiOr0(kg["number"]),
				StormYear:      cycle.Year(),
				EnsembleMember: kg["member"],
				SourceURL:      key,
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("sources: listing ctcx bucket %s: %w", c.bucket, err)
	}
	return out, nil
}

func (c *CTCX) Fetch(ctx context.Context, cand Candidate) (io.ReadCloser, error) {
	out, err := c.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(cand.SourceURL),
	})
	if err != nil {
		return nil, fmt.Errorf("sources: fetching ctcx object %s: %w", cand.SourceURL, err)
	}
	return out.Body, nil
}
