package cli

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/homesync/internal/engine"
)

// metricsSink gives one command run its own registry and writes it in the
// Prometheus text format (node_exporter textfile collector layout) when a
// path is set.
type metricsSink struct {
	path    string
	reg     *prometheus.Registry
	metrics *engine.Metrics
}

func newMetricsSink(path string) *metricsSink {
	reg := prometheus.NewRegistry()
	return &metricsSink{path: path, reg: reg, metrics: engine.NewMetrics(reg)}
}

func (s *metricsSink) option() engine.Option {
	return engine.WithMetrics(s.metrics)
}

// flush writes the registry to the sink's path. The file is replaced
// atomically.
func (s *metricsSink) flush() error {
	if s.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(s.path, s.reg); err != nil {
		return WrapExitError(ExitCommandError, "failed to write metrics", err)
	}
	return nil
}
