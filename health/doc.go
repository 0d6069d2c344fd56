// Package health provides health status reporting for the gateway and the
// catalog services.
//
// The package supports three health states:
//   - Healthy: component operating normally
//   - Degraded: reachable but not serving
//   - Unhealthy: unreachable or failing
//
// Catalog services publish their state through the standard gRPC health
// service. The gateway probes each backend, converts the result with
// FromProbe, records it in a Monitor and serves the aggregate on /health:
//
//	monitor := health.NewMonitor()
//	monitor.Update("book", health.FromProbe("book", serving, err, latency))
//	status := monitor.AggregateHealth("api-gateway")
//
// Probe errors are sanitized before they reach the status message so
// addresses, paths and credentials are never published.
package health
