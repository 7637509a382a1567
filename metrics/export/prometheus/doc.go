// Package prometheus renders goInvite metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [goInvite.Engine] and exposes an
// [http.Handler] that serves all engine counters and histograms. Counter names
// are prefixed goinvite_*_total; the single histogram is
// goinvite_authorize_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry (callers mount the Handler).
//   - Mutate engine state.
package prometheus
