// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package observability

import (
	"context"
	"fmt"
	"net/http"

	ocprometheus "contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats/view"
)

var _ Exporter = (*prometheusExporter)(nil)

type prometheusExporter struct {
	exporter *ocprometheus.Exporter
}

// NewPrometheus builds an exporter that publishes AllViews at whatever
// path the owning binary mounts its Handler on.
func NewPrometheus(_ context.Context, config *PrometheusConfig) (Exporter, error) {
	exporter, err := ocprometheus.NewExporter(ocprometheus.Options{Namespace: config.Namespace})
	if err != nil {
		return nil, fmt.Errorf("observability: building prometheus exporter: %w", err)
	}
	return &prometheusExporter{exporter: exporter}, nil
}

// StartExporter registers AllViews with OpenCensus and hooks this
// exporter in as their sink.
func (e *prometheusExporter) StartExporter() error {
	view.RegisterExporter(e.exporter)
	if err := view.Register(AllViews()...); err != nil {
		return fmt.Errorf("observability: registering views: %w", err)
	}
	return nil
}

// Handler returns the http.Handler a binary mounts at /metrics.
func (e *prometheusExporter) Handler() http.Handler {
	return e.exporter
}

func (e *prometheusExporter) Close() error {
	view.UnregisterExporter(e.exporter)
	return nil
}
