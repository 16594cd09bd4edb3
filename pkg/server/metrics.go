// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/pkg/observability"
)

// ServeMetrics starts exp's exporter and, if it exposes a scrape
// handler (the Prometheus exporter does; the noop exporter does not),
// serves it at /metrics on metricsPort. Returns the exporter's Close so
// the caller can shut it down alongside the rest of the process.
func ServeMetrics(ctx context.Context, exp observability.Exporter, metricsPort string) (func() error, error) {
	logger := logging.FromContext(ctx).Named("server.metrics")

	if err := exp.StartExporter(); err != nil {
		return nil, err
	}

	type handlerExporter interface {
		Handler() http.Handler
	}
	if he, ok := exp.(handlerExporter); ok && metricsPort != "" {
		r := mux.NewRouter()
		r.Handle("/metrics", he.Handler())

		srv := &http.Server{Addr: ":" + metricsPort, Handler: r}
		go func() {
			logger.Debugw("metrics endpoint listening", "port", metricsPort)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorw("metrics endpoint stopped", "error", err)
			}
		}()
	}

	return exp.Close, nil
}
