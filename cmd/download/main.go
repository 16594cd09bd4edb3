// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Deployable job that runs one Downloader Loop invocation for a single
// upstream service, then exits. An external scheduler (cron, Argo)
// invokes this once per service per interval; scheduling itself is out
// of scope here.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/thewaterinstitute/metget-server/internal/download"
	"github.com/thewaterinstitute/metget-server/internal/interrupt"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/setup"
	"github.com/thewaterinstitute/metget-server/internal/sources"
)

func main() {
	ctx, done := interrupt.Context()
	defer done()

	service := flag.String("service", "", "upstream service to download (gfs, nam, hrrr_alaska, gefs, ctcx, nhc, hwrf, hafs, wpc)")
	flag.Parse()

	if err := realMain(ctx, *service); err != nil {
		logger := logging.FromContext(ctx)
		logger.Fatal(err)
	}
}

func realMain(ctx context.Context, service string) error {
	if service == "" {
		return fmt.Errorf("download: -service is required")
	}

	logger := logging.FromContext(ctx)

	cfg, env, err := setup.Setup(ctx)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	adapter, err := adapterFor(service, cfg.Storage.Region, &cfg.Download)
	if err != nil {
		return err
	}
	sources.Register(adapter)

	since := time.Now().Add(-cfg.Download.Lookback)

	result, err := download.Run(ctx, env, service, adapter, since)
	if err != nil {
		return fmt.Errorf("download.Run(%s): %w", service, err)
	}

	logger.Infow("download invocation finished", "service", service,
		"discovered", result.Discovered, "fetched", result.Fetched,
		"skipped", result.Skipped, "failed", result.Failed)
	return nil
}

// adapterFor constructs the one adapter service names. HWRF and HAFS
// share catalog.FamilyTropicalDeterministic, so they cannot both be
// registered under sources.Registered() at once — callers select
// between them by service name, not family, which is why this dispatch
// lives here instead of in the package-level registry lookup.
func adapterFor(service, region string, dlCfg *download.Config) (sources.Adapter, error) {
	switch service {
	case "gfs":
		return sources.NewGFS(region)
	case "nam":
		return sources.NewNAM(region)
	case "hrrr_alaska":
		return sources.NewHRRRAlaska(region)
	case "gefs":
		return sources.NewGEFS(region)
	case "ctcx":
		return sources.NewCTCX(region, dlCfg.CTCXBucket, dlCfg.CTCXPrefix, dlCfg.CTCXBasin)
	case "nhc":
		return sources.NewNHC(http.DefaultClient), nil
	case "hwrf":
		return sources.NewHWRF(http.DefaultClient), nil
	case "hafs":
		return sources.NewHAFS(http.DefaultClient), nil
	case "wpc":
		return sources.NewWPC(http.DefaultClient), nil
	default:
		return nil, fmt.Errorf("download: unknown service %q", service)
	}
}
