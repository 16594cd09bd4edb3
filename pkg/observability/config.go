// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package observability sets up and configures the OpenCensus metrics and
// tracing views the rest of the server records against.
package observability

// ExporterType selects which backend AllViews are published to.
type ExporterType string

const (
	ExporterPrometheus ExporterType = "PROMETHEUS"
	ExporterNoop       ExporterType = "NOOP"
)

// Config holds the observability exporter selection for one process.
type Config struct {
	ExporterType ExporterType `envconfig:"OBSERVABILITY_EXPORTER" default:"PROMETHEUS"`

	Prometheus PrometheusConfig
}

// PrometheusConfig holds the configuration options for the Prometheus
// exporter. The exporter itself only produces a http.Handler; the binary
// that owns the process decides what address to serve it on.
type PrometheusConfig struct {
	Namespace string `envconfig:"OBSERVABILITY_PROMETHEUS_NAMESPACE" default:"metget"`
}
