// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package observability

import "context"

var _ Exporter = (*noopExporter)(nil)

// noopExporter discards everything. It's selected by
// OBSERVABILITY_EXPORTER=NOOP (or an empty exporter type), so local
// development and tests need no running Prometheus.
type noopExporter struct{}

func NewNoop(_ context.Context) (Exporter, error) {
	return &noopExporter{}, nil
}

func (*noopExporter) StartExporter() error {
	return nil
}

func (*noopExporter) Close() error {
	return nil
}
