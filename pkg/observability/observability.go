// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package observability

import (
	"context"
	"fmt"
	"io"
	"sync"

	"contrib.go.opencensus.io/integrations/ocsql"
	"go.opencensus.io/plugin/ocgrpc"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/stats/view"
)

// EnableSQLViews adds the ocsql connection-pool views to AllViews. Called
// by setup once it has registered a traced sql.DB driver; skipped by
// anything that talks to the catalog only through pgx.
func EnableSQLViews() {
	CollectViews(ocsql.DefaultViews...)
}

func defaultViews() []*view.View {
	var ret []*view.View
	ret = append(ret, ochttp.DefaultClientViews...)
	ret = append(ret, ochttp.DefaultServerViews...)
	ret = append(ret, ocgrpc.DefaultClientViews...)
	ret = append(ret, ocgrpc.DefaultServerViews...)
	return ret
}

var collectedViews = struct {
	views []*view.View
	sync.Mutex
}{}

// CollectViews registers views to be included the next time AllViews is
// read. Packages that define their own views (request counts, build
// durations) call this from an init() so registration happens regardless
// of which exporter a binary ends up starting.
func CollectViews(views ...*view.View) {
	collectedViews.Lock()
	defer collectedViews.Unlock()
	collectedViews.views = append(collectedViews.views, views...)
}

// AllViews returns every view collected so far plus the HTTP/gRPC
// defaults.
func AllViews() []*view.View {
	collectedViews.Lock()
	defer collectedViews.Unlock()
	return append(collectedViews.views, defaultViews()...)
}

// Exporter is the minimum shared functionality an observability exporter
// needs: start publishing the registered views, and stop cleanly on
// shutdown.
type Exporter interface {
	io.Closer
	StartExporter() error
}

// NewFromEnv returns the exporter selected by config, or an error if its
// type is unrecognized.
func NewFromEnv(config *Config) (Exporter, error) {
	ctx := context.Background()
	switch config.ExporterType {
	case ExporterNoop, "":
		return NewNoop(ctx)
	case ExporterPrometheus:
		return NewPrometheus(ctx, &config.Prometheus)
	default:
		return nil, fmt.Errorf("observability: unknown exporter type %v", config.ExporterType)
	}
}
