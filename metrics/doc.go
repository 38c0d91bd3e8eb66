// Package metrics exports arena metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	a, err := tensorarena.New(
//	    tensorarena.WithMetricsCollector(metrics.NewPrometheusCollector(reg, "activations")),
//	)
package metrics
