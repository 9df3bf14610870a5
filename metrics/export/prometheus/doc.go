// Package prometheus exposes relay counters through prometheus/client_golang.
//
// [Exporter] implements prometheus.Collector. Counter names are gorelay_*_total;
// the single histogram is gorelay_github_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register the
//     Exporter on a registry of their choosing, or mount [Exporter.Handler].
//   - Mutate relay state.
package prometheus
