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

// NoaaBigDataBucket lists and fetches a deterministic NOMADS product out
// of its NOAA Open Data Dissemination ("Big Data Program") S3 mirror
// rather than scraping the NOMADS HTTP tree directly. Grounded on
// noaadownloader.py's _download_aws_big_data, which every
// use_aws_big_data=True downloader (GFS, NAM, GEFS) delegates to: it
// lists bucket.objects.filter(Prefix=prefix) for prefix =
// _generate_prefix(date, hour) and reads the forecast hour back out of
// the object key with _filename_to_hour.
type NoaaBigDataBucket struct {
	svc          *s3.S3
	family       catalog.Family
	bucket       string
	filePattern  *regexp.Regexp
	cycleHours   []int
	maxLeadHours int
}

// bigDataConfig names the bucket, file-name pattern, cycle hours and
// maximum lead hour for one product. It carries no per-cycle key prefix:
// Discover lists the whole bucket and filters keys with filePattern.
type bigDataConfig struct {
	family       catalog.Family
	bucket       string
	filePattern  *regexp.Regexp
	cycleHours   []int
	maxLeadHours int
}

func newBigDataBucket(region string, cfg bigDataConfig) (*NoaaBigDataBucket, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("sources: creating aws session for %s: %w", cfg.bucket, err)
	}
	return &NoaaBigDataBucket{
		svc:          s3.New(sess),
		family:       cfg.family,
		bucket:       cfg.bucket,
		filePattern:  cfg.filePattern,
		cycleHours:   cfg.cycleHours,
		maxLeadHours: cfg.maxLeadHours,
	}, nil
}

// NewGFS constructs the Global Forecast System adapter against
// noaa-gfs-bdp-pds.
func NewGFS(region string) (*NoaaBigDataBucket, error) {
	return newBigDataBucket(region, bigDataConfig{
		family:       catalog.FamilyGlobal,
		bucket:       "noaa-gfs-bdp-pds",
		filePattern:  regexp.MustCompile(`^gfs\.(?P<year>\d{4})(?P<month>\d{2})(?P<day>\d{2})/(?P<hour>\d{2})/atmos/gfs\.t\d{2}z\.pgrb2\.0p25\.f(?P<tau>\d{3})$`),
		cycleHours:   []int{0, 6, 12, 18},
		maxLeadHours: 384,
	})
}

// NewNAM constructs the North American Mesoscale adapter against
// noaa-nam-pds.
func NewNAM(region string) (*NoaaBigDataBucket, error) {
	return newBigDataBucket(region, bigDataConfig{
		family:       catalog.FamilyRegional,
		bucket:       "noaa-nam-pds",
		filePattern:  regexp.MustCompile(`^nam\.(?P<year>\d{4})(?P<month>\d{2})(?P<day>\d{2})/nam\.t(?P<hour>\d{2})z\.awphys(?P<tau>\d{2})\.tm00\.grib2$`),
		cycleHours:   []int{0, 6, 12, 18},
		maxLeadHours: 84,
	})
}

// NewHRRRAlaska constructs the Alaska-domain HRRR adapter against
// noaa-hrrr-bdp-pds.
func NewHRRRAlaska(region string) (*NoaaBigDataBucket, error) {
	return newBigDataBucket(region, bigDataConfig{
		family:       catalog.FamilyRegionalAlaska,
		bucket:       "noaa-hrrr-bdp-pds",
		filePattern:  regexp.MustCompile(`^hrrr\.(?P<year>\d{4})(?P<month>\d{2})(?P<day>\d{2})/alaska/hrrr\.t(?P<hour>\d{2})z\.wrfprsf(?P<tau>\d{2})\.ak\.grib2$`),
		cycleHours:   []int{0, 3, 6, 9, 12, 15, 18, 21},
		maxLeadHours: 48,
	})
}

func (n *NoaaBigDataBucket) Family() catalog.Family { return n.family }

// isKnownCycleHour reports whether hour is one of this product's cycle
// hours, mirroring set_cycles/self.cycles() in noaadownloader.py: a
// product is only initialized at fixed synoptic hours, so any other
// value in a matched key is either noise or a naming collision.
func (n *NoaaBigDataBucket) isKnownCycleHour(hour int) bool {
	if len(n.cycleHours) == 0 {
		return true
	}
	for _, h := range n.cycleHours {
		if h == hour {
			return true
		}
	}
	return false
}

func (n *NoaaBigDataBucket) Discover(ctx context.Context, since time.Time) ([]Candidate, error) {
	var out []Candidate
	err := n.svc.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(n.bucket),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			m := n.filePattern.FindStringSubmatch(key)
			if m == nil {
				continue
			}
			g := namedGroups(n.filePattern, m)
			hour := atoiOr0(g["hour"])
			if !n.isKnownCycleHour(hour) {
				continue
			}
			cycle := time.Date(atoiOr0(g["year"]), time.Month(atoiOr0(g["month"])), atoiOr0(g["day"]), hour, 0, 0, 0, time.UTC)
			if cycle.Before(since) {
				continue
			}
			tau := atoiOr0(g["tau"])
			if tau > n.maxLeadHours {
				continue
			}
			out = append(out, Candidate{
				ForecastCycle: cycle,
				ValidTime:     cycle.Add(time.Duration(tau) * time.Hour),
				Tau:           tau,
				SourceURL:     key,
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("sources: listing %s: %w", n.bucket, err)
	}
	return out, nil
}

func (n *NoaaBigDataBucket) Fetch(ctx context.Context, c Candidate) (io.ReadCloser, error) {
	out, err := n.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(n.bucket),
		Key:    aws.String(c.SourceURL),
	})
	if err != nil {
		return nil, fmt.Errorf("sources: fetching s3://%s/%s: %w", n.bucket, c.SourceURL, err)
	}
	return out.Body, nil
}
