// Package metric provides Prometheus-based metrics for the library API.
//
// A MetricsRegistry owns a private prometheus.Registry with the core metrics
// (facade requests, backend health, RPC handling, store operations, errors)
// and Go runtime collectors. Components with metrics of their own register
// them through the MetricsRegistrar interface.
//
// Server exposes the registry over HTTP:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//	go func() { _ = server.Start() }()
//	defer server.Stop(ctx)
//
// The Record* helpers on *Metrics are nil-safe, so components can run without
// a registry in tests.
package metric
