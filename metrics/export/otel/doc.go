// Package otel provides OpenTelemetry metric bindings for relay counters and
// histograms.
//
// [NewExporter] registers Int64ObservableCounter instruments for each relay counter
// and an Int64ObservableGauge per histogram bucket. A single callback reads
// [goRelay.Relay.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate relay state.
package otel
