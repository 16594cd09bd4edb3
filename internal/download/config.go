// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package download

import "time"

// Config configures the set of source adapters cmd/download registers
// and how far back each invocation looks for new candidates.
type Config struct {
	// Lookback bounds how far before "now" Discover is asked for
	// candidates, so a missed invocation can still catch up without
	// re-scanning a provider's entire history.
	Lookback time.Duration `envconfig:"DOWNLOAD_LOOKBACK" default:"72h"`

	// CTCXBucket and CTCXPrefix locate the CTCX ensemble bucket; CTCX has
	// no fixed AWS-hosted bucket name the way GFS/NAM/HRRR/GEFS do, so
	// the bucket must be supplied; the prefix defaults to "ctcx".
	CTCXBucket string `envconfig:"CTCX_BUCKET"`
	CTCXPrefix string `envconfig:"CTCX_PREFIX" default:"ctcx"`
	CTCXBasin  string `envconfig:"CTCX_BASIN" default:"al"`
}
